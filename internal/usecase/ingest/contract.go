package ingest

import (
	"context"

	"github.com/williamjung/voiceagent/internal/domain"
)

// Embedder vectorizes chunk texts in one call.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}

// Contextualizer writes a short description placing a chunk inside its document.
type Contextualizer interface {
	Contextualize(ctx context.Context, req domain.ContextRequest) (string, error)
}

// Writer persists chunks into the vector index.
type Writer interface {
	EnsureIndex(ctx context.Context, dimensions int) error
	Upsert(ctx context.Context, chunks []domain.Chunk) error
}
