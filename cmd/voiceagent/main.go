package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/williamjung/voiceagent/internal/app"
	"github.com/williamjung/voiceagent/internal/config"
	logpkg "github.com/williamjung/voiceagent/internal/logger"
	"github.com/williamjung/voiceagent/internal/metrics"
	chiTransport "github.com/williamjung/voiceagent/internal/transport/chi"
	healthuc "github.com/williamjung/voiceagent/internal/usecase/health"
	"github.com/williamjung/voiceagent/internal/version"
)

func main() {
	configPath := flag.String("config", "", "path to a config file (default: config/<ENV>.yaml)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("voiceagent"))
		return
	}

	env := config.GetEnv()

	var (
		cfg config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFile(*configPath)
	} else {
		cfg, err = config.Load(env)
	}
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting voice agent backend",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("index_driver", cfg.Index.Driver),
		zap.Bool("rerank_enabled", cfg.Rerank.Enabled()),
	)

	ctx := context.Background()
	store, err := app.OpenStore(ctx, &cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open vector index", zap.Error(err))
	}
	defer store.Close()

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterKnowledgeMetrics()

	embedders := app.NewEmbedders(&cfg, logger)
	repo := app.NewRepository(&cfg, store)

	knowledgeSvc, err := app.NewKnowledge(&cfg, repo, embedders.Instrumented, logger)
	if err != nil {
		logger.Fatal("Failed to build knowledge service", zap.Error(err))
	}
	opts := knowledgeSvc.Options()
	logger.Info("Knowledge tool ready",
		zap.String("model", cfg.Embedding.Model),
		zap.Float64("threshold", opts.Threshold()),
		zap.Int("match_count", opts.Limit()),
		zap.Int("rerank_cap", opts.RerankCap()),
	)

	def, err := app.NewAgent(&cfg, chiTransport.PathSearchKnowledge)
	if err != nil {
		logger.Fatal("Failed to build agent manifest", zap.Error(err))
	}

	healthSvc := healthuc.New(store, embedders.Base, cfg.Rerank.Enabled(), logger)

	server := chiTransport.NewServer(knowledgeSvc, def, healthSvc, logger)
	handler := server.Router(chiTransport.RouterConfig{
		APIKeys:     cfg.Auth.APIKeys,
		CORSOrigins: cfg.HTTP.CORSOrigins,
	})

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}
