package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/williamjung/voiceagent/internal/domain"
)

// --- Mocks ---

type mockEmbedder struct {
	err    error
	short  bool
	calls  int
	inputs []string
}

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.calls++
	m.inputs = append(m.inputs, texts...)
	if m.err != nil {
		return domain.BatchEmbeddingResult{}, m.err
	}
	n := len(texts)
	if m.short {
		n--
	}
	out := make([][]float32, n)
	for i := range out {
		out[i] = []float32{float32(i), 1}
	}
	return domain.BatchEmbeddingResult{Embeddings: out}, nil
}

type mockContextualizer struct {
	text string
	err  error
	reqs []domain.ContextRequest
}

func (m *mockContextualizer) Contextualize(_ context.Context, req domain.ContextRequest) (string, error) {
	m.reqs = append(m.reqs, req)
	return m.text, m.err
}

type mockWriter struct {
	ensureErr  error
	upsertErr  error
	ensureDims int
	chunks     []domain.Chunk
}

func (m *mockWriter) EnsureIndex(_ context.Context, dimensions int) error {
	m.ensureDims = dimensions
	return m.ensureErr
}

func (m *mockWriter) Upsert(_ context.Context, chunks []domain.Chunk) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.chunks = append(m.chunks, chunks...)
	return nil
}

func words(n int) string {
	w := make([]string, n)
	for i := range w {
		w[i] = "단어"
	}
	return strings.Join(w, " ")
}

// --- Tests ---

func TestRun_ArticleSingleChunk(t *testing.T) {
	fsys := fstest.MapFS{
		"posts/hello-world.md": {Data: []byte("---\ntitle: Hello\ntags: [go]\n---\n짧은 글입니다")},
	}
	emb := &mockEmbedder{}
	cz := &mockContextualizer{text: "맥락"}
	w := &mockWriter{}
	svc := New(emb, cz, w, nil, Options{Contextualize: true, Dimensions: 1536}, nil)

	stats, err := svc.Run(context.Background(), fsys, []string{"posts/hello-world.md"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.ensureDims != 1536 {
		t.Errorf("expected EnsureIndex(1536), got %d", w.ensureDims)
	}
	if stats.Files != 1 || stats.Chunks != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
	if len(w.chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(w.chunks))
	}

	c := w.chunks[0]
	if c.Title != "Hello" {
		t.Errorf("single chunk title should not be numbered, got %q", c.Title)
	}
	if c.URL != "/posts/hello-world" {
		t.Errorf("unexpected url %q", c.URL)
	}
	if c.Type != domain.DocumentArticle {
		t.Errorf("unexpected type %q", c.Type)
	}
	if c.Content != "짧은 글입니다" {
		t.Errorf("content must be the bare chunk, got %q", c.Content)
	}
	if c.ContentWithContext != "맥락\n\n짧은 글입니다" {
		t.Errorf("unexpected content_with_context %q", c.ContentWithContext)
	}
	if emb.inputs[0] != c.ContentWithContext {
		t.Error("embedding input must be the contextualized text")
	}
	if c.Metadata["visibility"] != "public" || c.Metadata["category"] != "general" || c.Metadata["priority"] != "medium" {
		t.Errorf("unexpected metadata defaults: %v", c.Metadata)
	}
	if c.Metadata["context_length"] != "2" {
		t.Errorf("expected context_length 2, got %q", c.Metadata["context_length"])
	}
	if len(c.Vector) == 0 {
		t.Error("expected vector to be set")
	}
	if cz.reqs[0].Title != "Hello" || cz.reqs[0].Type != domain.DocumentArticle {
		t.Errorf("unexpected context request: %+v", cz.reqs[0])
	}
}

func TestIngestFile_MultiChunkTraining(t *testing.T) {
	fsys := fstest.MapFS{
		"training/deep.md": {Data: []byte("---\ntitle: Deep\n---\n" + words(1000))},
	}
	emb := &mockEmbedder{}
	w := &mockWriter{}
	svc := New(emb, nil, w, nil, Options{BatchSize: 1}, nil)

	stats, err := svc.IngestFile(context.Background(), fsys, "training/deep.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Chunks != 2 {
		t.Fatalf("expected 2 chunks, got %d", stats.Chunks)
	}
	if emb.calls != 2 {
		t.Errorf("expected 2 embed calls with batch size 1, got %d", emb.calls)
	}
	if w.chunks[0].Title != "Deep (part 1/2)" || w.chunks[1].Title != "Deep (part 2/2)" {
		t.Errorf("unexpected titles: %q, %q", w.chunks[0].Title, w.chunks[1].Title)
	}
	if w.chunks[0].URL != "" {
		t.Errorf("training chunks have no url, got %q", w.chunks[0].URL)
	}
	if w.chunks[0].Metadata["visibility"] != "private" {
		t.Errorf("training defaults to private, got %q", w.chunks[0].Metadata["visibility"])
	}
	if w.chunks[1].Metadata["chunk_index"] != "1" || w.chunks[1].Metadata["total_chunks"] != "2" {
		t.Errorf("unexpected chunk metadata: %v", w.chunks[1].Metadata)
	}
	if w.chunks[0].ID == w.chunks[1].ID {
		t.Error("chunk ids must differ")
	}
	if w.chunks[0].ContentWithContext != w.chunks[0].Content {
		t.Error("without contextualizer the embedded text is the bare chunk")
	}
}

func TestIngestFile_StableIDs(t *testing.T) {
	fsys := fstest.MapFS{"intro.md": {Data: []byte("안녕하세요")}}
	w1, w2 := &mockWriter{}, &mockWriter{}
	New(&mockEmbedder{}, nil, w1, nil, Options{}, nil).IngestFile(context.Background(), fsys, "intro.md")
	New(&mockEmbedder{}, nil, w2, nil, Options{}, nil).IngestFile(context.Background(), fsys, "intro.md")

	if w1.chunks[0].ID != w2.chunks[0].ID {
		t.Error("re-indexing the same file must produce the same ids")
	}
	if w1.chunks[0].Title != "intro" {
		t.Errorf("title should fall back to the file name, got %q", w1.chunks[0].Title)
	}
}

func TestIngestFile_ContextFailureFallsBack(t *testing.T) {
	fsys := fstest.MapFS{"opinions.md": {Data: []byte("의견")}}
	cz := &mockContextualizer{err: errors.New("429")}
	w := &mockWriter{}
	svc := New(&mockEmbedder{}, cz, w, nil, Options{Contextualize: true}, nil)

	stats, err := svc.IngestFile(context.Background(), fsys, "opinions.md")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.ContextFallbacks != 1 {
		t.Errorf("expected 1 fallback, got %d", stats.ContextFallbacks)
	}
	c := w.chunks[0]
	if c.ContentWithContext != "의견" {
		t.Errorf("expected bare chunk, got %q", c.ContentWithContext)
	}
	if c.Metadata["context_length"] != "0" {
		t.Errorf("expected context_length 0, got %q", c.Metadata["context_length"])
	}
}

func TestIngestFile_EmbedCountMismatch(t *testing.T) {
	fsys := fstest.MapFS{"intro.md": {Data: []byte("x")}}
	w := &mockWriter{}
	svc := New(&mockEmbedder{short: true}, nil, w, nil, Options{}, nil)

	_, err := svc.IngestFile(context.Background(), fsys, "intro.md")
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Errorf("expected ErrEmbeddingProviderError, got %v", err)
	}
	if len(w.chunks) != 0 {
		t.Error("nothing should be written on embed failure")
	}
}

func TestRun_SkipsFailingFile(t *testing.T) {
	fsys := fstest.MapFS{
		"intro.md":    {Data: []byte("---\ntitle: [bad\n---\nx")},
		"opinions.md": {Data: []byte("good")},
	}
	w := &mockWriter{}
	svc := New(&mockEmbedder{}, nil, w, nil, Options{}, nil)

	stats, err := svc.Run(context.Background(), fsys, []string{"intro.md", "opinions.md", "missing.md"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Files != 3 || stats.FailedFiles != 2 || stats.Chunks != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestRun_EnsureIndexError(t *testing.T) {
	w := &mockWriter{ensureErr: domain.ErrIndexUnavailable}
	emb := &mockEmbedder{}
	svc := New(emb, nil, w, nil, Options{}, nil)

	_, err := svc.Run(context.Background(), fstest.MapFS{"intro.md": {Data: []byte("x")}}, []string{"intro.md"})
	if !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Errorf("expected ErrIndexUnavailable, got %v", err)
	}
	if emb.calls != 0 {
		t.Error("no embedding should happen when the index cannot be prepared")
	}
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc := New(&mockEmbedder{}, nil, &mockWriter{}, NewLimiter(1), Options{}, nil)

	_, err := svc.Run(ctx, fstest.MapFS{"intro.md": {Data: []byte("x")}}, []string{"intro.md"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestNewLimiter(t *testing.T) {
	if NewLimiter(0) != nil {
		t.Error("expected nil limiter for rps 0")
	}
	if l := NewLimiter(10); l == nil || l.Burst() != 1 {
		t.Error("expected limiter with burst 1")
	}
}
