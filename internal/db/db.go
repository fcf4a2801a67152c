package db

import (
	"context"
	"time"
)

// Store is the vector index facade every backend implements.
type Store interface {
	Pinger
	Searcher
	Writer
	IndexManager
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks backend connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Searcher runs nearest-neighbour queries.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
}

// Writer stores vectors together with their display fields.
type Writer interface {
	Upsert(ctx context.Context, index string, records []VectorRecord) error
}

// IndexManager prepares the backing index/table/collection.
type IndexManager interface {
	EnsureIndex(ctx context.Context, spec IndexSpec) error
}
