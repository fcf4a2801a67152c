package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/williamjung/voiceagent/internal/domain"
)

// DefaultMaxAPIBatchSize is the largest number of inputs sent in one API request.
const DefaultMaxAPIBatchSize = 256

// InstrumentedEmbedder wraps Embedder with dimension checks and logging.
// Transport metrics (requests, duration, tokens) are recorded in transport/openai.
type InstrumentedEmbedder struct {
	inner      domain.Embedder
	provider   string
	model      string
	dimensions int
	logger     *zap.Logger
}

// NewInstrumentedEmbedder wraps an embedder. dimensions <= 0 disables the width check.
func NewInstrumentedEmbedder(
	inner domain.Embedder, provider, model string,
	dimensions int, logger *zap.Logger,
) *InstrumentedEmbedder {
	return &InstrumentedEmbedder{
		inner:      inner,
		provider:   provider,
		model:      model,
		dimensions: dimensions,
		logger:     logger,
	}
}

// Dimensions returns the expected vector width.
func (p *InstrumentedEmbedder) Dimensions() int { return p.dimensions }

// Embed delegates to the inner embedder and verifies the vector width.
func (p *InstrumentedEmbedder) Embed(
	ctx context.Context, text string,
) (domain.EmbeddingResult, error) {
	start := time.Now()

	result, err := p.inner.Embed(ctx, text)

	duration := time.Since(start)

	if err != nil {
		p.logger.Error("Embedding request failed",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	if err := p.checkDimensions(result.Embedding); err != nil {
		p.logger.Error("Embedding dimension mismatch",
			zap.String("model", p.model),
			zap.Int("expected", p.dimensions),
			zap.Int("got", len(result.Embedding)),
		)
		return domain.EmbeddingResult{}, err
	}

	p.logger.Debug("Embedding request completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.Duration("duration", duration),
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("prompt_tokens", result.PromptTokens),
		zap.Int("total_tokens", result.TotalTokens),
	)

	return result, nil
}

// BatchEmbed splits texts into API-sized sub-batches and delegates to inner.
func (p *InstrumentedEmbedder) BatchEmbed(
	ctx context.Context, texts []string,
) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	start := time.Now()

	result, err := p.embedChunked(ctx, texts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, err
	}

	for i, vec := range result.Embeddings {
		if err := p.checkDimensions(vec); err != nil {
			return domain.BatchEmbeddingResult{}, fmt.Errorf("batch item %d: %w", i, err)
		}
	}

	p.logger.Debug("Batch embedding completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.Duration("duration", time.Since(start)),
		zap.Int("batch_size", len(texts)),
		zap.Int("prompt_tokens", result.PromptTokens),
		zap.Int("total_tokens", result.TotalTokens),
	)

	return result, nil
}

func (p *InstrumentedEmbedder) checkDimensions(vec []float32) error {
	if p.dimensions <= 0 || len(vec) == p.dimensions {
		return nil
	}
	return fmt.Errorf("expected %d dimensions, got %d: %w: %w",
		p.dimensions, len(vec), domain.ErrEmbeddingProviderError, domain.ErrVectorDimMismatch)
}

// embedChunked splits texts into DefaultMaxAPIBatchSize chunks.
func (p *InstrumentedEmbedder) embedChunked(
	ctx context.Context, texts []string,
) (domain.BatchEmbeddingResult, error) {
	var allEmbeddings [][]float32
	var totalPrompt, totalTokens int

	for offset := 0; offset < len(texts); offset += DefaultMaxAPIBatchSize {
		end := min(offset+DefaultMaxAPIBatchSize, len(texts))
		chunk := texts[offset:end]

		chunkResult, err := p.embedInner(ctx, chunk)
		if err != nil {
			p.logger.Error("Batch embedding request failed",
				zap.String("provider", p.provider),
				zap.String("model", p.model),
				zap.Int("chunk_offset", offset),
				zap.Int("chunk_size", len(chunk)),
				zap.Error(err),
			)
			return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed: %w", err)
		}

		allEmbeddings = append(allEmbeddings, chunkResult.Embeddings...)
		totalPrompt += chunkResult.PromptTokens
		totalTokens += chunkResult.TotalTokens
	}

	return domain.BatchEmbeddingResult{
		Embeddings:   allEmbeddings,
		PromptTokens: totalPrompt,
		TotalTokens:  totalTokens,
	}, nil
}

func (p *InstrumentedEmbedder) embedInner(
	ctx context.Context, texts []string,
) (domain.BatchEmbeddingResult, error) {
	if be, ok := p.inner.(domain.BatchEmbedder); ok {
		res, err := be.BatchEmbed(ctx, texts)
		if err != nil {
			return domain.BatchEmbeddingResult{}, fmt.Errorf("inner batch embed: %w", err)
		}
		return res, nil
	}
	res, err := domain.BatchFallback(ctx, p.inner, texts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("inner batch fallback: %w", err)
	}
	return res, nil
}
