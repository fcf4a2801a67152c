// Package knowledge implements the search_knowledge tool: embed, search, rerank, format.
package knowledge

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/williamjung/voiceagent/internal/domain"
	"github.com/williamjung/voiceagent/internal/domain/rerank"
	"github.com/williamjung/voiceagent/internal/domain/retrieval"
	"github.com/williamjung/voiceagent/internal/metrics"
)

// Stage names used in logs and metrics.
const (
	StageEmbed  = "embed"
	StageSearch = "search"
	StageRerank = "rerank"
	StageFormat = "format"
)

// Timeouts bound each stage. Zero leaves the stage bounded only by the caller's context.
type Timeouts struct {
	Embed  time.Duration
	Search time.Duration
	Rerank time.Duration
}

// Result is one completed retrieval.
type Result struct {
	Documents  []domain.Document // what was formatted, at most RerankCap
	Candidates int               // documents returned by the index
	Rerank     string            // metrics.Rerank* label
	Context    string            // empty when Documents is empty
}

// Service runs the retrieval pipeline. It holds no per-call state and is safe for concurrent use.
type Service struct {
	embedder  Embedder
	index     Index
	reranker  Reranker
	formatter Formatter
	opts      retrieval.Options
	timeouts  Timeouts
	messages  Messages
	logger    *zap.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithTimeouts sets per-stage timeouts.
func WithTimeouts(t Timeouts) Option {
	return func(s *Service) { s.timeouts = t }
}

// WithMessages overrides the no-results and error strings.
func WithMessages(m Messages) Option {
	return func(s *Service) { s.messages = m.withDefaults() }
}

// New creates a retrieval service. A nil reranker or formatter gets the default.
func New(
	embedder Embedder, index Index, reranker Reranker, formatter Formatter,
	opts retrieval.Options, logger *zap.Logger, options ...Option,
) *Service {
	if reranker == nil {
		reranker = NullReranker{}
	}
	if formatter == nil {
		formatter = ContextFormatter{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		embedder:  embedder,
		index:     index,
		reranker:  reranker,
		formatter: formatter,
		opts:      opts,
		messages:  DefaultMessages(),
		logger:    logger,
	}
	for _, o := range options {
		o(s)
	}
	return s
}

// Options returns the retrieval options the service was built with.
func (s *Service) Options() retrieval.Options { return s.opts }

// SearchKnowledge is the tool entry point. It always returns a string: the context block,
// the no-results sentence, or the error prefix followed by the failure category.
func (s *Service) SearchKnowledge(ctx context.Context, query string) string {
	res, err := s.Retrieve(ctx, query)
	switch {
	case err != nil:
		metrics.KnowledgeRequestsTotal.WithLabelValues(metrics.OutcomeError).Inc()
		return s.messages.ErrorPrefix + Category(err)
	case len(res.Documents) == 0:
		metrics.KnowledgeRequestsTotal.WithLabelValues(metrics.OutcomeNoResults).Inc()
		return s.messages.NoResults
	default:
		metrics.KnowledgeRequestsTotal.WithLabelValues(metrics.OutcomeContext).Inc()
		return res.Context
	}
}

// Retrieve runs all stages. An error wraps ErrEmbeddingProviderError or ErrIndexUnavailable.
// Zero candidates is not an error: the result has no documents and no context.
func (s *Service) Retrieve(ctx context.Context, query string) (Result, error) {
	vec, err := s.embed(ctx, query)
	if err != nil {
		return Result{}, err
	}

	docs, err := s.search(ctx, vec)
	if err != nil {
		return Result{}, err
	}
	metrics.KnowledgeCandidates.Observe(float64(len(docs)))
	if len(docs) == 0 {
		s.logger.Debug("No documents above threshold",
			zap.Float64("threshold", s.opts.Threshold()),
		)
		return Result{Rerank: metrics.RerankSkipped}, nil
	}

	selected, label := s.rerankOrFallback(ctx, query, docs)

	start := time.Now()
	text := s.formatter.Format(selected)
	observeStage(StageFormat, start)

	return Result{
		Documents:  selected,
		Candidates: len(docs),
		Rerank:     label,
		Context:    text,
	}, nil
}

func (s *Service) embed(ctx context.Context, query string) ([]float32, error) {
	ctx, cancel := withTimeout(ctx, s.timeouts.Embed)
	defer cancel()

	start := time.Now()
	res, err := s.embedder.Embed(ctx, query)
	observeStage(StageEmbed, start)
	if err != nil {
		s.logger.Error("Query embedding failed", zap.Error(err))
		if !errors.Is(err, domain.ErrEmbeddingProviderError) {
			err = fmt.Errorf("%w: %w", domain.ErrEmbeddingProviderError, err)
		}
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(res.Embedding) == 0 {
		return nil, fmt.Errorf("embed query: %w: empty vector", domain.ErrEmbeddingProviderError)
	}
	return res.Embedding, nil
}

func (s *Service) search(ctx context.Context, vec []float32) ([]domain.Document, error) {
	ctx, cancel := withTimeout(ctx, s.timeouts.Search)
	defer cancel()

	start := time.Now()
	docs, err := s.index.Search(ctx, vec, s.opts.Threshold(), s.opts.Limit())
	observeStage(StageSearch, start)
	if err != nil {
		s.logger.Error("Vector search failed", zap.Error(err))
		if !errors.Is(err, domain.ErrIndexUnavailable) {
			err = fmt.Errorf("%w: %w", domain.ErrIndexUnavailable, err)
		}
		return nil, fmt.Errorf("search index: %w", err)
	}
	if len(docs) > s.opts.Limit() {
		docs = docs[:s.opts.Limit()]
	}
	return docs, nil
}

// rerankOrFallback never fails. The fallback is always the head of the similarity-ordered slice.
func (s *Service) rerankOrFallback(
	ctx context.Context, query string, docs []domain.Document,
) ([]domain.Document, string) {
	limit := s.opts.TopN(len(docs))

	if !s.opts.RerankEnabled() || len(docs) <= 1 {
		metrics.RerankTotal.WithLabelValues(metrics.RerankSkipped).Inc()
		return docs[:limit], metrics.RerankSkipped
	}

	rctx, cancel := withTimeout(ctx, s.timeouts.Rerank)
	defer cancel()

	start := time.Now()
	outcome := s.reranker.Rerank(rctx, query, slices.Clone(docs), limit)
	observeStage(StageRerank, start)

	label := metrics.RerankReranked
	if outcome.Kind() == rerank.KindFailed {
		label = metrics.RerankFallback
		s.logger.Warn("Using similarity order",
			zap.Int("candidates", len(docs)),
			zap.NamedError("reason", outcome.Reason()),
		)
	}
	metrics.RerankTotal.WithLabelValues(label).Inc()

	return outcome.Resolve(docs, limit), label
}

// Category maps a retrieval error to the short text appended to the error prefix.
// Only sentinel messages are exposed; provider bodies and credentials never are.
func Category(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmbeddingProviderError):
		return domain.ErrEmbeddingProviderError.Error()
	case errors.Is(err, domain.ErrIndexUnavailable):
		return domain.ErrIndexUnavailable.Error()
	default:
		return "internal error"
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func observeStage(stage string, start time.Time) {
	metrics.KnowledgeStageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
