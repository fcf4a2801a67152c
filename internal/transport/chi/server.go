// Package chi serves the search_knowledge tool, the agent manifest and operational endpoints.
package chi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/williamjung/voiceagent/internal/agent"
	"github.com/williamjung/voiceagent/internal/domain"
	logpkg "github.com/williamjung/voiceagent/internal/logger"
	healthuc "github.com/williamjung/voiceagent/internal/usecase/health"
	knowledgeuc "github.com/williamjung/voiceagent/internal/usecase/knowledge"
)

// Routes.
const (
	PathSearchKnowledge = "/v1/tools/search_knowledge"
	PathRetrieve        = "/v1/knowledge/retrieve"
	PathAgent           = "/v1/agent"
	PathHealth          = "/health"
	PathMetrics         = "/metrics"
)

// maxBodyBytes bounds tool request bodies.
const maxBodyBytes = 64 << 10

// Knowledge is the retrieval use case.
type Knowledge interface {
	SearchKnowledge(ctx context.Context, query string) string
	Retrieve(ctx context.Context, query string) (knowledgeuc.Result, error)
}

// HealthReporter aggregates dependency health.
type HealthReporter interface {
	Check(ctx context.Context) healthuc.Report
}

// ToolRequest is the search_knowledge argument object.
type ToolRequest struct {
	Query string `json:"query"`
}

// ToolResponse carries the tool's string result.
type ToolResponse struct {
	Result string `json:"result"`
}

// RetrieveResponse exposes the ranked documents behind a tool answer.
type RetrieveResponse struct {
	Query      string         `json:"query"`
	Candidates int            `json:"candidates"`
	Rerank     string         `json:"rerank"`
	Documents  []DocumentItem `json:"documents"`
	Context    string         `json:"context"`
}

// DocumentItem is one formatted document.
type DocumentItem struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	URL   string  `json:"url,omitempty"`
	Score float64 `json:"score"`
}

// HealthResponse is the /health body.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Server implements the HTTP handlers.
type Server struct {
	knowledge     Knowledge
	agent         agent.Definition
	health        HealthReporter
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(knowledge Knowledge, def agent.Definition, health HealthReporter, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		knowledge:     knowledge,
		agent:         def,
		health:        health,
		logger:        logger,
		errorHandlers: defaultErrorHandlers(),
	}
}

// RouterConfig holds cross-cutting HTTP settings.
type RouterConfig struct {
	APIKeys     []string
	CORSOrigins []string
}

// Router mounts all routes with the standard middleware chain.
func (s *Server) Router(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	for _, mw := range standardMiddleware(s.logger, cfg) {
		r.Use(mw)
	}

	r.Post(PathSearchKnowledge, s.SearchKnowledge)
	r.Post(PathRetrieve, s.Retrieve)
	r.Get(PathAgent, s.Agent)
	r.Get(PathHealth, s.HealthCheck)
	r.Method(http.MethodGet, PathMetrics, promhttp.Handler())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeBadRequest, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
	})
	return r
}

// SearchKnowledge handles POST /v1/tools/search_knowledge. Once the body parses the
// response is always 200: failures are reported inside the result string.
func (s *Server) SearchKnowledge(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeToolRequest(w, r)
	if !ok {
		return
	}

	result := s.knowledge.SearchKnowledge(r.Context(), req.Query)
	writeJSON(w, http.StatusOK, ToolResponse{Result: result})
}

// Retrieve handles POST /v1/knowledge/retrieve, the debugging view of the same pipeline.
func (s *Server) Retrieve(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeToolRequest(w, r)
	if !ok {
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "query is required")
		return
	}

	res, err := s.knowledge.Retrieve(r.Context(), req.Query)
	if err != nil {
		s.handleDomainError(r.Context(), w, err)
		return
	}

	docs := make([]DocumentItem, len(res.Documents))
	for i, d := range res.Documents {
		docs[i] = documentItem(d)
	}
	writeJSON(w, http.StatusOK, RetrieveResponse{
		Query:      req.Query,
		Candidates: res.Candidates,
		Rerank:     res.Rerank,
		Documents:  docs,
		Context:    res.Context,
	})
}

// Agent handles GET /v1/agent.
func (s *Server) Agent(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.agent)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

func (s *Server) decodeToolRequest(w http.ResponseWriter, r *http.Request) (ToolRequest, bool) {
	var req ToolRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		msg := "invalid request body"
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			msg = "request body too large"
		case errors.Is(err, io.EOF):
			msg = "request body is empty"
		}
		writeError(w, http.StatusBadRequest, CodeBadRequest, msg)
		return ToolRequest{}, false
	}
	return req, true
}

func (s *Server) handleDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	log := logpkg.FromContext(ctx)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

func documentItem(d domain.Document) DocumentItem {
	return DocumentItem{
		ID:    d.ID,
		Title: d.DisplayTitle(),
		URL:   d.URL,
		Score: d.Score,
	}
}
