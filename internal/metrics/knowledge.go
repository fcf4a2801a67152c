package metrics

import "github.com/prometheus/client_golang/prometheus"

// Knowledge tool outcomes.
const (
	OutcomeContext   = "context"
	OutcomeNoResults = "no_results"
	OutcomeError     = "error"
)

// Rerank outcomes.
const (
	RerankReranked = "reranked"
	RerankFallback = "fallback"
	RerankSkipped  = "skipped"
)

// Knowledge retrieval Prometheus metrics.
var (
	KnowledgeRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "knowledge_requests_total",
			Help:      "search_knowledge invocations by outcome",
		},
		[]string{"outcome"},
	)

	KnowledgeStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "knowledge_stage_duration_seconds",
			Help:      "Duration of each retrieval stage",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"stage"},
	)

	KnowledgeCandidates = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "knowledge_candidates",
			Help:      "Documents returned by the vector index per query",
			Buckets:   []float64{0, 1, 2, 5, 10, 15, 20},
		},
	)

	RerankTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rerank_total",
			Help:      "Rerank stage results",
		},
		[]string{"outcome"},
	)

	IngestChunksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_chunks_total",
			Help:      "Chunks processed by the indexer",
		},
		[]string{"status"},
	)
)

var knowledgeMetricsRegistered bool

// RegisterKnowledgeMetrics registers retrieval and ingest metrics. Must be called once from main.
func RegisterKnowledgeMetrics() {
	if knowledgeMetricsRegistered {
		return
	}
	prometheus.MustRegister(KnowledgeRequestsTotal)
	prometheus.MustRegister(KnowledgeStageDuration)
	prometheus.MustRegister(KnowledgeCandidates)
	prometheus.MustRegister(RerankTotal)
	prometheus.MustRegister(IngestChunksTotal)
	knowledgeMetricsRegistered = true
}
