// Package qdrant implements db.Store on a Qdrant collection over raw gRPC.
package qdrant

import (
	"context"
	"fmt"
	"time"

	qc "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/williamjung/voiceagent/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

// Config holds the gRPC address (host:6334) and collection name.
type Config struct {
	Addr       string
	Collection string
}

// Store talks to Qdrant's Points and Collections services.
type Store struct {
	conn        *grpc.ClientConn
	points      qc.PointsClient
	collections qc.CollectionsClient
	collection  string
}

// NewStore creates a lazy gRPC connection to Qdrant.
func NewStore(cfg Config) (*Store, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("addr is required")
	}
	conn, err := grpc.NewClient(cfg.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}
	return NewStoreFromConn(conn, cfg.Collection), nil
}

// NewStoreFromConn wraps an existing connection.
func NewStoreFromConn(conn *grpc.ClientConn, collection string) *Store {
	return &Store{
		conn:        conn,
		points:      qc.NewPointsClient(conn),
		collections: qc.NewCollectionsClient(conn),
		collection:  collection,
	}
}

// Ping lists collections.
func (s *Store) Ping(ctx context.Context) error {
	if _, err := s.collections.List(ctx, &qc.ListCollectionsRequest{}); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close closes the gRPC connection.
func (s *Store) Close() {
	_ = s.conn.Close()
}

// WaitForReady polls Ping until Qdrant responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for qdrant: %w", ctx.Err())
		case <-ticker.C:
			if err := s.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// EnsureIndex creates a cosine collection of the given size unless it already exists.
func (s *Store) EnsureIndex(ctx context.Context, spec db.IndexSpec) error {
	if err := spec.Validate(); err != nil {
		return err
	}

	list, err := s.collections.List(ctx, &qc.ListCollectionsRequest{})
	if err != nil {
		return &db.Error{Op: db.OpCreateColl, Err: fmt.Errorf("list collections: %w", err)}
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == spec.Name {
			return nil
		}
	}

	_, err = s.collections.Create(ctx, &qc.CreateCollection{
		CollectionName: spec.Name,
		VectorsConfig: &qc.VectorsConfig{
			Config: &qc.VectorsConfig_Params{
				Params: &qc.VectorParams{
					Size:     uint64(spec.Dimensions),
					Distance: qc.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return &db.Error{Op: db.OpCreateColl, Err: err}
	}
	return nil
}

func (s *Store) collectionName(index string) string {
	if index != "" {
		return index
	}
	return s.collection
}
