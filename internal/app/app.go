// Package app assembles the components shared by the server, the indexer and the CLI.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/williamjung/voiceagent/internal/agent"
	"github.com/williamjung/voiceagent/internal/config"
	"github.com/williamjung/voiceagent/internal/db"
	dbPostgres "github.com/williamjung/voiceagent/internal/db/postgres"
	dbQdrant "github.com/williamjung/voiceagent/internal/db/qdrant"
	dbRedis "github.com/williamjung/voiceagent/internal/db/redis"
	"github.com/williamjung/voiceagent/internal/domain/retrieval"
	documentrepo "github.com/williamjung/voiceagent/internal/repository/document"
	cohereRerank "github.com/williamjung/voiceagent/internal/transport/cohere"
	openaiEmb "github.com/williamjung/voiceagent/internal/transport/openai"
	embeddinguc "github.com/williamjung/voiceagent/internal/usecase/embedding"
	knowledgeuc "github.com/williamjung/voiceagent/internal/usecase/knowledge"
)

// Embedders is the embedding decorator chain plus the raw client used for health probes.
type Embedders struct {
	Base         *openaiEmb.Embedder
	Instrumented *embeddinguc.InstrumentedEmbedder
}

// IndexName returns the backend-specific name the repository addresses.
func IndexName(cfg *config.Config) string {
	switch cfg.Index.Driver {
	case config.DriverPostgres:
		return cfg.Index.Postgres.Table
	case config.DriverQdrant:
		return cfg.Index.Qdrant.Collection
	default:
		return cfg.Index.Redis.IndexName
	}
}

// OpenStore connects to the configured backend and waits until it answers.
func OpenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (db.Store, error) {
	var (
		store db.Store
		err   error
	)
	switch cfg.Index.Driver {
	case config.DriverRedis:
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:     cfg.Index.Redis.Addrs,
			Password:  cfg.Index.Redis.Password,
			KeyPrefix: cfg.Index.Redis.KeyPrefix,
		})
	case config.DriverPostgres:
		store, err = dbPostgres.NewStore(ctx, dbPostgres.Config{
			DSN:           cfg.Index.Postgres.DSN,
			MatchFunction: cfg.Index.Postgres.MatchFunction,
			Table:         cfg.Index.Postgres.Table,
			MaxConns:      cfg.Index.Postgres.MaxConns,
		})
	case config.DriverQdrant:
		store, err = dbQdrant.NewStore(dbQdrant.Config{
			Addr:       cfg.Index.Qdrant.Addr,
			Collection: cfg.Index.Qdrant.Collection,
		})
	default:
		return nil, fmt.Errorf("unknown index driver %q", cfg.Index.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Index.Driver, err)
	}

	timeout := time.Duration(cfg.Index.ReadinessTimeout) * time.Second
	if err := store.WaitForReady(ctx, timeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("%s not ready: %w", cfg.Index.Driver, err)
	}
	logger.Info("Connected to vector index",
		zap.String("driver", cfg.Index.Driver),
		zap.String("index", IndexName(cfg)),
	)
	return store, nil
}

// NewRepository binds the document repository to the configured index.
func NewRepository(cfg *config.Config, store db.Store) *documentrepo.Repo {
	return documentrepo.New(store, IndexName(cfg),
		documentrepo.WithHNSW(cfg.Index.Redis.HNSWM, cfg.Index.Redis.HNSWEFConstruct))
}

// NewEmbedders builds OpenAI -> Instrumented.
func NewEmbedders(cfg *config.Config, logger *zap.Logger) Embedders {
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   "openai",
		Logger:     logger,
	})
	return Embedders{
		Base: base,
		Instrumented: embeddinguc.NewInstrumentedEmbedder(
			base, "openai", cfg.Embedding.Model, cfg.Embedding.Dimensions, logger,
		),
	}
}

// NewReranker picks the Cohere-backed reranker when credentials exist, else identity.
func NewReranker(cfg *config.Config, logger *zap.Logger) knowledgeuc.Reranker {
	if !cfg.Rerank.Enabled() {
		return knowledgeuc.NullReranker{}
	}
	backend := cohereRerank.NewReranker(&cohereRerank.Config{
		APIKey:  cfg.Rerank.APIKey,
		BaseURL: cfg.Rerank.BaseURL,
		Model:   cfg.Rerank.Model,
		Logger:  logger,
	})
	return knowledgeuc.NewActiveReranker(backend, backend.Model(), logger)
}

// NewKnowledge builds the search_knowledge service.
func NewKnowledge(
	cfg *config.Config, index knowledgeuc.Index, embedder knowledgeuc.Embedder, logger *zap.Logger,
) (*knowledgeuc.Service, error) {
	opts, err := retrieval.NewOptions(
		cfg.Retrieval.Threshold(),
		cfg.Retrieval.MatchCount,
		cfg.Retrieval.RerankCap,
		cfg.Rerank.Enabled(),
	)
	if err != nil {
		return nil, fmt.Errorf("retrieval options: %w", err)
	}

	return knowledgeuc.New(
		embedder, index, NewReranker(cfg, logger), knowledgeuc.ContextFormatter{},
		opts, logger,
		knowledgeuc.WithTimeouts(knowledgeuc.Timeouts{
			Embed:  cfg.Retrieval.EmbedTimeout(),
			Search: cfg.Retrieval.SearchTimeout(),
			Rerank: cfg.Retrieval.RerankTimeout(),
		}),
		knowledgeuc.WithMessages(knowledgeuc.Messages{
			NoResults:   cfg.Messages.NoResults,
			ErrorPrefix: cfg.Messages.ErrorPrefix,
		}),
	), nil
}

// NewAgent builds the manifest from the agent section. toolEndpoint is where the runtime
// should POST search_knowledge calls.
func NewAgent(cfg *config.Config, toolEndpoint string) (agent.Definition, error) {
	persona, err := agent.LoadPersona(cfg.Agent.PersonaFile)
	if err != nil {
		return agent.Definition{}, err
	}

	a := cfg.Agent
	temperature := 0.8
	if a.LLM.Temperature != nil {
		temperature = *a.LLM.Temperature
	}
	session := agent.Session{
		VAD: agent.VAD{Provider: a.VAD.Provider},
		STT: agent.STT{Provider: a.STT.Provider, Model: a.STT.Model, Language: a.STT.Language},
		LLM: agent.LLM{Provider: a.LLM.Provider, Model: a.LLM.Model, Temperature: temperature},
		TTS: agent.TTS{
			Provider:         a.TTS.Provider,
			VoiceID:          a.TTS.VoiceID,
			Model:            a.TTS.Model,
			StreamingLatency: a.TTS.StreamingLatency,
		},
	}
	return agent.New(a.Name, persona, a.Greeting, session, agent.SearchKnowledgeTool(toolEndpoint)), nil
}
