// Package ingest turns markdown sources into embedded, indexed chunks.
package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"strconv"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/williamjung/voiceagent/internal/domain"
	"github.com/williamjung/voiceagent/internal/metrics"
)

// DefaultBatchSize is the number of chunks embedded per request.
const DefaultBatchSize = 16

// Chunk statuses for metrics.
const (
	statusStored = "stored"
	statusFailed = "failed"
)

// chunkNamespace seeds deterministic chunk IDs so re-running the indexer overwrites.
var chunkNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("voiceagent/knowledge"))

// Options control chunking and request shape.
type Options struct {
	ChunkSize     int
	ChunkOverlap  int
	Contextualize bool
	BatchSize     int
	Dimensions    int
}

func (o Options) withDefaults() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.ChunkOverlap < 0 || o.ChunkOverlap >= o.ChunkSize {
		o.ChunkOverlap = min(DefaultChunkOverlap, o.ChunkSize/10)
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	return o
}

// Stats summarizes a run.
type Stats struct {
	Files            int
	FailedFiles      int
	Chunks           int
	ContextFallbacks int
}

// Service indexes markdown sources.
type Service struct {
	embedder       Embedder
	contextualizer Contextualizer
	writer         Writer
	limiter        *rate.Limiter
	opts           Options
	logger         *zap.Logger
}

// New creates an ingest service. contextualizer and limiter may be nil.
func New(
	embedder Embedder, contextualizer Contextualizer, writer Writer,
	limiter *rate.Limiter, opts Options, logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		embedder:       embedder,
		contextualizer: contextualizer,
		writer:         writer,
		limiter:        limiter,
		opts:           opts.withDefaults(),
		logger:         logger,
	}
}

// NewLimiter allows rps requests per second with a burst of one. rps <= 0 disables pacing.
func NewLimiter(rps float64) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(rps), 1)
}

// Run provisions the index and ingests files in order. A failing file is logged and
// skipped; only index provisioning and cancellation abort the run.
func (s *Service) Run(ctx context.Context, fsys fs.FS, files []string) (Stats, error) {
	var stats Stats

	if err := s.writer.EnsureIndex(ctx, s.opts.Dimensions); err != nil {
		return stats, fmt.Errorf("prepare index: %w", err)
	}

	for _, name := range files {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		res, err := s.IngestFile(ctx, fsys, name)
		stats.Files++
		stats.ContextFallbacks += res.ContextFallbacks
		if err != nil {
			stats.FailedFiles++
			s.logger.Error("Source ingest failed", zap.String("file", name), zap.Error(err))
			if ctx.Err() != nil {
				return stats, ctx.Err()
			}
			continue
		}
		stats.Chunks += res.Chunks
		s.logger.Info("Source indexed",
			zap.String("file", name),
			zap.Int("chunks", res.Chunks),
		)
	}
	return stats, nil
}

// IngestFile chunks, contextualizes, embeds and stores one source.
func (s *Service) IngestFile(ctx context.Context, fsys fs.FS, name string) (Stats, error) {
	var stats Stats

	raw, err := fs.ReadFile(fsys, name)
	if err != nil {
		return stats, fmt.Errorf("read %s: %w", name, err)
	}
	fm, body, err := ParseMarkdown(raw)
	if err != nil {
		return stats, fmt.Errorf("%s: %w", name, err)
	}

	src := newSource(name, fm, body)
	parts := SplitWords(body, s.opts.ChunkSize, s.opts.ChunkOverlap)
	if len(parts) == 0 {
		s.logger.Debug("Source has no content", zap.String("file", name))
		return stats, nil
	}

	chunks := make([]domain.Chunk, len(parts))
	for i, part := range parts {
		situated, ok, err := s.situate(ctx, src, part)
		if err != nil {
			return stats, err
		}
		if !ok {
			stats.ContextFallbacks++
		}
		chunks[i] = src.chunk(i, len(parts), part, situated)
	}

	if err := s.embed(ctx, chunks); err != nil {
		metrics.IngestChunksTotal.WithLabelValues(statusFailed).Add(float64(len(chunks)))
		return stats, fmt.Errorf("%s: %w", name, err)
	}

	if err := s.writer.Upsert(ctx, chunks); err != nil {
		metrics.IngestChunksTotal.WithLabelValues(statusFailed).Add(float64(len(chunks)))
		return stats, fmt.Errorf("%s: %w", name, err)
	}
	metrics.IngestChunksTotal.WithLabelValues(statusStored).Add(float64(len(chunks)))

	stats.Chunks = len(chunks)
	return stats, nil
}

// situate returns the context description for a chunk. ok is false when the chunk is
// embedded bare because contextualizing is off or failed.
func (s *Service) situate(ctx context.Context, src source, part string) (string, bool, error) {
	if !s.opts.Contextualize || s.contextualizer == nil {
		return "", false, nil
	}
	if err := s.wait(ctx); err != nil {
		return "", false, err
	}

	text, err := s.contextualizer.Contextualize(ctx, domain.ContextRequest{
		Title:    src.title,
		Type:     src.typ,
		Category: src.category,
		Tags:     src.tags,
		Document: src.body,
		Chunk:    part,
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", false, ctx.Err()
		}
		s.logger.Warn("Chunk context generation failed, using bare chunk",
			zap.String("file", src.name),
			zap.Error(err),
		)
		return "", false, nil
	}
	return text, text != "", nil
}

// embed fills Vector for every chunk, BatchSize chunks per request.
func (s *Service) embed(ctx context.Context, chunks []domain.Chunk) error {
	for offset := 0; offset < len(chunks); offset += s.opts.BatchSize {
		end := min(offset+s.opts.BatchSize, len(chunks))
		texts := make([]string, 0, end-offset)
		for _, c := range chunks[offset:end] {
			texts = append(texts, c.ContentWithContext)
		}

		if err := s.wait(ctx); err != nil {
			return err
		}
		res, err := s.embedder.BatchEmbed(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed chunks %d-%d: %w", offset, end-1, err)
		}
		if len(res.Embeddings) != len(texts) {
			return fmt.Errorf("embed chunks %d-%d: %w: got %d vectors for %d inputs",
				offset, end-1, domain.ErrEmbeddingProviderError, len(res.Embeddings), len(texts))
		}
		for i, vec := range res.Embeddings {
			chunks[offset+i].Vector = vec
		}
	}
	return nil
}

func (s *Service) wait(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	return s.limiter.Wait(ctx)
}

// source is a parsed markdown file with defaults applied.
type source struct {
	name       string
	title      string
	typ        domain.DocumentType
	url        string
	tags       []string
	category   string
	priority   string
	visibility string
	date       string
	body       string
}

func newSource(name string, fm Frontmatter, body string) source {
	typ := DetectType(name, fm)

	visibility := "public"
	if typ == domain.DocumentTraining {
		visibility = "private"
	}

	var url string
	if typ == domain.DocumentArticle {
		url = "/posts/" + Slug(name)
	}

	return source{
		name:       name,
		title:      orDefault(fm.Title, Slug(name)),
		typ:        typ,
		url:        url,
		tags:       cleanTags(fm.Tags),
		category:   orDefault(fm.Category, "general"),
		priority:   orDefault(fm.Priority, "medium"),
		visibility: orDefault(fm.Visibility, visibility),
		date:       fm.Date,
		body:       body,
	}
}

func (src source) chunk(i, n int, part, situated string) domain.Chunk {
	withContext := part
	if situated != "" {
		withContext = situated + "\n\n" + part
	}

	meta := map[string]string{
		"source_file":    src.name,
		"chunk_index":    strconv.Itoa(i),
		"total_chunks":   strconv.Itoa(n),
		"context_length": strconv.Itoa(utf8.RuneCountInString(situated)),
		"category":       src.category,
		"priority":       src.priority,
		"visibility":     src.visibility,
	}
	if src.date != "" {
		meta["published_date"] = src.date
	}

	return domain.Chunk{
		ID:                 uuid.NewSHA1(chunkNamespace, []byte(src.name+"#"+strconv.Itoa(i))).String(),
		Title:              chunkTitle(src.title, i, n),
		Content:            part,
		ContentWithContext: withContext,
		Type:               src.typ,
		URL:                src.url,
		Tags:               src.tags,
		Metadata:           meta,
	}
}
