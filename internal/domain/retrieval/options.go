// Package retrieval holds the immutable knowledge-search options.
package retrieval

import "fmt"

// Defaults used by the search_knowledge tool.
const (
	DefaultThreshold = 0.2
	DefaultLimit     = 20
	DefaultRerankCap = 5
	MaxLimit         = 100
)

// Options is a validated, read-only set of retrieval parameters.
type Options struct {
	threshold     float64
	limit         int
	rerankCap     int
	rerankEnabled bool
}

// DefaultOptions returns threshold=0.2, limit=20, rerankCap=5 with reranking disabled.
func DefaultOptions() Options {
	return Options{
		threshold: DefaultThreshold,
		limit:     DefaultLimit,
		rerankCap: DefaultRerankCap,
	}
}

// NewOptions validates parameters. Zero limit or cap fall back to defaults.
// threshold is a cosine similarity in [0,1].
func NewOptions(threshold float64, limit, rerankCap int, rerankEnabled bool) (Options, error) {
	if threshold < 0 || threshold > 1 {
		return Options{}, fmt.Errorf("threshold must be between 0 and 1, got %v", threshold)
	}
	if limit < 0 || rerankCap < 0 {
		return Options{}, fmt.Errorf("limit and rerank cap must not be negative")
	}
	if limit == 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		return Options{}, fmt.Errorf("limit must be at most %d, got %d", MaxLimit, limit)
	}
	if rerankCap == 0 {
		rerankCap = DefaultRerankCap
	}
	if rerankCap > limit {
		rerankCap = limit
	}
	return Options{
		threshold:     threshold,
		limit:         limit,
		rerankCap:     rerankCap,
		rerankEnabled: rerankEnabled,
	}, nil
}

// Threshold returns the minimum similarity score.
func (o Options) Threshold() float64 { return o.threshold }

// Limit returns the maximum number of candidates requested from the index.
func (o Options) Limit() int { return o.limit }

// RerankCap returns the maximum number of documents handed to the formatter.
func (o Options) RerankCap() int { return o.rerankCap }

// RerankEnabled reports whether a rerank backend is configured.
func (o Options) RerankEnabled() bool { return o.rerankEnabled }

// TopN returns min(RerankCap, n).
func (o Options) TopN(n int) int {
	return min(o.rerankCap, n)
}
