package document

import (
	"context"
	"errors"
	"testing"

	"github.com/williamjung/voiceagent/internal/db"
	"github.com/williamjung/voiceagent/internal/domain"
)

func TestSearch_PassesQuery(t *testing.T) {
	repo, ms := newTestRepo(t)

	var got *db.KNNQuery
	ms.searchKNNFn = func(_ context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
		got = q
		return &db.SearchResult{}, nil
	}

	if _, err := repo.Search(context.Background(), []float32{0.1}, 0.2, 20); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.IndexName != "knowledge" || got.K != 20 || got.MinScore != 0.2 {
		t.Errorf("unexpected query %+v", got)
	}
}

func TestSearch_FiltersSortsAndLimits(t *testing.T) {
	repo, ms := newTestRepo(t)

	ms.searchKNNFn = func(context.Context, *db.KNNQuery) (*db.SearchResult, error) {
		return &db.SearchResult{Entries: []db.SearchEntry{
			entry("low", 0.1, "below threshold"),
			entry("b", 0.5, "B"),
			entry("a", 0.9, "A"),
			entry("c", 0.5, "C"),
			entry("edge", 0.2, "exactly threshold"),
		}}, nil
	}

	docs, err := repo.Search(context.Background(), []float32{0.1}, 0.2, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("expected 3 docs, got %d", len(docs))
	}
	want := []string{"a", "b", "c"}
	for i, id := range want {
		if docs[i].ID != id {
			t.Errorf("docs[%d].ID = %q, want %q", i, docs[i].ID, id)
		}
	}
	if docs[0].Title != "A" || docs[0].Content != "content of a" {
		t.Errorf("fields not mapped: %+v", docs[0])
	}
}

func TestSearch_ThresholdInclusive(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.searchKNNFn = func(context.Context, *db.KNNQuery) (*db.SearchResult, error) {
		return &db.SearchResult{Entries: []db.SearchEntry{entry("edge", 0.2, "")}}, nil
	}

	docs, err := repo.Search(context.Background(), []float32{0.1}, 0.2, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("score == threshold must be kept, got %d docs", len(docs))
	}
}

func TestSearch_Empty(t *testing.T) {
	repo, _ := newTestRepo(t)

	docs, err := repo.Search(context.Background(), []float32{0.1}, 0.2, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("expected no docs, got %d", len(docs))
	}
}

func TestSearch_StoreErrorIsIndexUnavailable(t *testing.T) {
	repo, ms := newTestRepo(t)
	backend := errors.New("connection refused")
	ms.searchKNNFn = func(context.Context, *db.KNNQuery) (*db.SearchResult, error) {
		return nil, backend
	}

	_, err := repo.Search(context.Background(), []float32{0.1}, 0.2, 20)
	if !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Errorf("expected ErrIndexUnavailable, got %v", err)
	}
	if !errors.Is(err, backend) {
		t.Errorf("expected backend error to be wrapped, got %v", err)
	}
}

func TestUpsert_MapsChunks(t *testing.T) {
	repo, ms := newTestRepo(t)

	var got []db.VectorRecord
	ms.upsertFn = func(_ context.Context, index string, records []db.VectorRecord) error {
		if index != "knowledge" {
			t.Errorf("index = %q", index)
		}
		got = records
		return nil
	}

	err := repo.Upsert(context.Background(), []domain.Chunk{{
		ID:                 "id-1",
		Title:              "휴가 정책 (part 1/2)",
		Content:            "연차는 15일",
		ContentWithContext: "회사 규정 문서. 연차는 15일",
		Type:               domain.DocumentArticle,
		URL:                "/posts/leave",
		Tags:               []string{"hr", "leave"},
		Metadata:           map[string]string{"category": "hr"},
		Vector:             []float32{1, 2},
	}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	f := got[0].Fields
	if f[db.FieldTags] != "hr,leave" || f[db.FieldType] != "article" || f[db.FieldURL] != "/posts/leave" {
		t.Errorf("unexpected fields %+v", f)
	}
	if f[db.FieldMetadata] != `{"category":"hr"}` {
		t.Errorf("metadata = %q", f[db.FieldMetadata])
	}
}

func TestUpsert_RejectsChunkWithoutVector(t *testing.T) {
	repo, _ := newTestRepo(t)

	err := repo.Upsert(context.Background(), []domain.Chunk{{ID: "x"}})
	if !errors.Is(err, domain.ErrInvalidDocument) {
		t.Errorf("expected ErrInvalidDocument, got %v", err)
	}
}

func TestUpsert_StoreError(t *testing.T) {
	repo, ms := newTestRepo(t)
	ms.upsertFn = func(context.Context, string, []db.VectorRecord) error {
		return errors.New("down")
	}

	err := repo.Upsert(context.Background(), []domain.Chunk{{ID: "x", Vector: []float32{1}}})
	if !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Errorf("expected ErrIndexUnavailable, got %v", err)
	}
}

func TestEnsureIndex_PassesSpec(t *testing.T) {
	ms := &mockStore{}
	var got db.IndexSpec
	ms.ensureFn = func(_ context.Context, spec db.IndexSpec) error {
		got = spec
		return nil
	}
	r := New(ms, "knowledge", WithHNSW(32, 400))

	if err := r.EnsureIndex(context.Background(), 1536); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := db.IndexSpec{Name: "knowledge", Dimensions: 1536, M: 32, EFConstruct: 400}
	if got != want {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestEnsureIndex_StoreError(t *testing.T) {
	r, ms := newTestRepo(t)
	ms.ensureFn = func(context.Context, db.IndexSpec) error { return errors.New("READONLY") }

	err := r.EnsureIndex(context.Background(), 8)
	if !errors.Is(err, domain.ErrIndexUnavailable) {
		t.Errorf("expected ErrIndexUnavailable, got %v", err)
	}
}
