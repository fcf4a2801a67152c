package health

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates every probed dependency failed.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
	// CheckDisabled marks an optional component that is not configured.
	CheckDisabled CheckResult = "disabled"
)

// Component names in Report.Checks.
const (
	ComponentIndex     = "index"
	ComponentEmbedding = "embedding"
	ComponentRerank    = "rerank"
)

// DefaultProbeTimeout bounds each probe.
const DefaultProbeTimeout = 3 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	index         IndexPinger
	embedding     EmbeddingChecker
	rerankEnabled bool
	timeout       time.Duration
	logger        *zap.Logger
}

// New creates a Service. embedding can be nil. Rerank is reported but never probed:
// a failing reranker does not affect answers.
func New(index IndexPinger, embedding EmbeddingChecker, rerankEnabled bool, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		index:         index,
		embedding:     embedding,
		rerankEnabled: rerankEnabled,
		timeout:       DefaultProbeTimeout,
		logger:        logger,
	}
}

// Check runs health checks against all components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, 3)
	probed, failed := 0, 0

	probe := func(name string, fn func(context.Context) error) {
		pctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		probed++
		if err := fn(pctx); err != nil {
			failed++
			checks[name] = CheckError
			s.logger.Warn("Health probe failed", zap.String("component", name), zap.Error(err))
			return
		}
		checks[name] = CheckOK
	}

	probe(ComponentIndex, s.index.Ping)
	if s.embedding != nil {
		probe(ComponentEmbedding, s.embedding.HealthCheck)
	}

	if s.rerankEnabled {
		checks[ComponentRerank] = CheckOK
	} else {
		checks[ComponentRerank] = CheckDisabled
	}

	status := Healthy
	switch {
	case failed == probed:
		status = Unhealthy
	case failed > 0:
		status = Degraded
	}

	return Report{Status: status, Checks: checks}
}
