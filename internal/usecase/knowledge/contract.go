package knowledge

import (
	"context"

	"github.com/williamjung/voiceagent/internal/domain"
	"github.com/williamjung/voiceagent/internal/domain/rerank"
)

// Embedder vectorizes the query.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Index returns documents with score >= threshold, best first, at most limit.
type Index interface {
	Search(ctx context.Context, vector []float32, threshold float64, limit int) ([]domain.Document, error)
}

// Reranker reorders candidates. Implementations never return an error; failures are
// reported as rerank.Failed and the caller falls back to similarity order.
type Reranker interface {
	Rerank(ctx context.Context, query string, docs []domain.Document, topN int) rerank.Outcome
}

// RerankBackend is the remote cross-encoder service.
type RerankBackend interface {
	Rerank(ctx context.Context, req domain.RerankRequest) ([]domain.RerankHit, error)
}

// Formatter serializes documents into the context block handed to the model.
type Formatter interface {
	Format(docs []domain.Document) string
}
