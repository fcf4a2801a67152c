// Package cohere is the rerank backend over the Cohere API.
package cohere

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
	"github.com/cohere-ai/cohere-go/v2/core"
	"github.com/cohere-ai/cohere-go/v2/option"
	"go.uber.org/zap"

	"github.com/williamjung/voiceagent/internal/domain"
)

// DefaultModel is the rerank model used when none is configured.
const DefaultModel = "rerank-english-v3.0"

// Config holds the rerank provider settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Reranker calls Cohere's rerank endpoint.
type Reranker struct {
	client *cohereclient.Client
	model  string
	logger *zap.Logger
}

// NewReranker creates a Cohere rerank backend.
func NewReranker(cfg *Config) *Reranker {
	opts := []option.RequestOption{option.WithToken(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	opts = append(opts, option.WithHTTPClient(httpClient))

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Reranker{
		client: cohereclient.NewClient(opts...),
		model:  model,
		logger: logger,
	}
}

// Model returns the configured rerank model.
func (r *Reranker) Model() string { return r.model }

// Rerank returns hits in relevance order. Errors wrap domain.ErrRerankFailed.
func (r *Reranker) Rerank(ctx context.Context, req domain.RerankRequest) ([]domain.RerankHit, error) {
	// Documents go as {"text": ...} objects so empty content still serializes.
	docs := make([]*cohere.RerankRequestDocumentsItem, len(req.Documents))
	for i, d := range req.Documents {
		docs[i] = &cohere.RerankRequestDocumentsItem{
			RerankDocument: cohere.RerankDocument{"text": d},
		}
	}

	model := req.Model
	if model == "" {
		model = r.model
	}
	topN := req.TopN

	resp, err := r.client.Rerank(ctx, &cohere.RerankRequest{
		Query:     req.Query,
		Documents: docs,
		TopN:      &topN,
		Model:     &model,
	})
	if err != nil {
		return nil, parseAPIError(err)
	}
	if resp == nil {
		return nil, fmt.Errorf("empty rerank response: %w", domain.ErrRerankFailed)
	}

	hits := make([]domain.RerankHit, 0, len(resp.Results))
	for _, res := range resp.Results {
		if res == nil {
			continue
		}
		hits = append(hits, domain.RerankHit{Index: res.Index, RelevanceScore: res.RelevanceScore})
	}
	r.logger.Debug("rerank completed", zap.Int("documents", len(req.Documents)), zap.Int("hits", len(hits)))
	return hits, nil
}

// parseAPIError keeps the status code and drops provider bodies from the message.
func parseAPIError(err error) error {
	var apiErr *core.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("rerank API error %d: %w", apiErr.StatusCode, errors.Join(domain.ErrRerankFailed, domain.ErrRateLimited))
		}
		return fmt.Errorf("rerank API error %d: %w", apiErr.StatusCode, domain.ErrRerankFailed)
	}
	return fmt.Errorf("rerank request: %w: %w", domain.ErrRerankFailed, err)
}
