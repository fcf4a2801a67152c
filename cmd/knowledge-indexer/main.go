package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/williamjung/voiceagent/internal/app"
	"github.com/williamjung/voiceagent/internal/config"
	logpkg "github.com/williamjung/voiceagent/internal/logger"
	"github.com/williamjung/voiceagent/internal/metrics"
	openaiEmb "github.com/williamjung/voiceagent/internal/transport/openai"
	ingestuc "github.com/williamjung/voiceagent/internal/usecase/ingest"
	"github.com/williamjung/voiceagent/internal/version"
)

func main() {
	configPath := flag.String("config", "", "path to a config file (default: config/<ENV>.yaml)")
	contentDirs := flag.String("content", "", "comma-separated content directories (overrides ingest.content_dirs)")
	noContext := flag.Bool("no-context", false, "skip contextual enrichment of chunks")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String("knowledge-indexer"))
		return
	}

	if err := run(*configPath, *contentDirs, *noContext); err != nil {
		color.Red("indexing failed: %v", err)
		os.Exit(1)
	}
}

func run(configPath, contentDirs string, noContext bool) error {
	env := config.GetEnv()
	var (
		cfg config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFile(configPath)
	} else {
		cfg, err = config.Load(env)
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := app.OpenStore(ctx, &cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterKnowledgeMetrics()

	embedders := app.NewEmbedders(&cfg, logger)
	repo := app.NewRepository(&cfg, store)

	contextualize := cfg.Ingest.ContextualizeEnabled() && !noContext
	var contextualizer ingestuc.Contextualizer
	if contextualize {
		contextualizer = openaiEmb.NewContextualizer(&openaiEmb.ContextualizerConfig{
			APIKey:  cfg.Embedding.APIKey,
			BaseURL: cfg.Embedding.BaseURL,
			Model:   cfg.Ingest.ContextModel,
			Logger:  logger,
		})
	}

	svc := ingestuc.New(
		embedders.Instrumented, contextualizer, repo,
		ingestuc.NewLimiter(cfg.Ingest.RequestsPerSecond),
		ingestuc.Options{
			ChunkSize:     cfg.Ingest.ChunkSize,
			ChunkOverlap:  cfg.Ingest.ChunkOverlap,
			Contextualize: contextualize,
			BatchSize:     cfg.Ingest.BatchSize,
			Dimensions:    cfg.Embedding.Dimensions,
		},
		logger,
	)

	dirs := cfg.Ingest.ContentDirs
	if contentDirs != "" {
		dirs = splitList(contentDirs)
	}

	var total ingestuc.Stats
	for _, dir := range dirs {
		fsys := os.DirFS(dir)
		files, err := ingestuc.Discover(fsys)
		if err != nil {
			return fmt.Errorf("discover %s: %w", dir, err)
		}
		logger.Info("Indexing content directory",
			zap.String("dir", dir),
			zap.Int("files", len(files)),
			zap.Bool("contextualize", contextualize),
		)

		stats, err := svc.Run(ctx, fsys, files)
		total = add(total, stats)
		if err != nil {
			return fmt.Errorf("index %s: %w", dir, err)
		}
	}

	printSummary(total)
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func add(a, b ingestuc.Stats) ingestuc.Stats {
	return ingestuc.Stats{
		Files:            a.Files + b.Files,
		FailedFiles:      a.FailedFiles + b.FailedFiles,
		Chunks:           a.Chunks + b.Chunks,
		ContextFallbacks: a.ContextFallbacks + b.ContextFallbacks,
	}
}

func printSummary(s ingestuc.Stats) {
	color.Green("Indexed %d files, %d chunks", s.Files, s.Chunks)
	if s.FailedFiles > 0 {
		color.Red("  %d files failed", s.FailedFiles)
	}
	if s.ContextFallbacks > 0 {
		color.Yellow("  %d chunks stored without context", s.ContextFallbacks)
	}
}
