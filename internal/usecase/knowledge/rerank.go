package knowledge

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/williamjung/voiceagent/internal/domain"
	"github.com/williamjung/voiceagent/internal/domain/rerank"
)

// NullReranker keeps similarity order. Used when no rerank backend is configured.
type NullReranker struct{}

// Rerank returns the first topN documents unchanged.
func (NullReranker) Rerank(_ context.Context, _ string, docs []domain.Document, topN int) rerank.Outcome {
	if len(docs) > topN {
		docs = docs[:topN]
	}
	return rerank.Reranked(docs)
}

// ActiveReranker delegates to a remote backend and validates its answer.
type ActiveReranker struct {
	backend RerankBackend
	model   string
	logger  *zap.Logger
}

// NewActiveReranker wraps a rerank backend.
func NewActiveReranker(backend RerankBackend, model string, logger *zap.Logger) *ActiveReranker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActiveReranker{backend: backend, model: model, logger: logger}
}

var (
	errEmptyRerank     = errors.New("rerank returned no results")
	errIndexOutOfRange = errors.New("rerank index out of range")
	errDuplicateIndex  = errors.New("rerank index repeated")
)

// Rerank sends document contents to the backend and maps hits back to documents.
// Any backend error or malformed response becomes rerank.Failed.
func (r *ActiveReranker) Rerank(ctx context.Context, query string, docs []domain.Document, topN int) rerank.Outcome {
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}

	hits, err := r.backend.Rerank(ctx, domain.RerankRequest{
		Query:     query,
		Documents: texts,
		TopN:      topN,
		Model:     r.model,
	})
	if err != nil {
		return r.fail(ctx, err)
	}

	out, err := pick(docs, hits, topN)
	if err != nil {
		return r.fail(ctx, err)
	}
	return rerank.Reranked(out)
}

func (r *ActiveReranker) fail(ctx context.Context, err error) rerank.Outcome {
	if !errors.Is(err, domain.ErrRerankFailed) {
		err = fmt.Errorf("%w: %w", domain.ErrRerankFailed, err)
	}
	r.logger.Warn("Rerank failed, falling back to similarity order",
		zap.String("model", r.model),
		zap.Bool("ctx_done", ctx.Err() != nil),
		zap.Error(err),
	)
	return rerank.Failed(err)
}

// pick maps hits to documents, keeping hit order and at most topN entries.
func pick(docs []domain.Document, hits []domain.RerankHit, topN int) ([]domain.Document, error) {
	if len(hits) == 0 {
		return nil, errEmptyRerank
	}

	seen := make(map[int]struct{}, len(hits))
	out := make([]domain.Document, 0, min(len(hits), topN))
	for _, h := range hits {
		if h.Index < 0 || h.Index >= len(docs) {
			return nil, fmt.Errorf("%w: %d of %d", errIndexOutOfRange, h.Index, len(docs))
		}
		if _, dup := seen[h.Index]; dup {
			return nil, fmt.Errorf("%w: %d", errDuplicateIndex, h.Index)
		}
		seen[h.Index] = struct{}{}
		if len(out) < topN {
			out = append(out, docs[h.Index])
		}
	}
	return out, nil
}
