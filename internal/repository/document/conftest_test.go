package document

import (
	"context"
	"testing"

	"github.com/williamjung/voiceagent/internal/db"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	searchKNNFn func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	upsertFn    func(ctx context.Context, index string, records []db.VectorRecord) error
	ensureFn    func(ctx context.Context, spec db.IndexSpec) error
}

func (m *mockStore) EnsureIndex(ctx context.Context, spec db.IndexSpec) error {
	if m.ensureFn != nil {
		return m.ensureFn(ctx, spec)
	}
	return nil
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) Upsert(ctx context.Context, index string, records []db.VectorRecord) error {
	if m.upsertFn != nil {
		return m.upsertFn(ctx, index, records)
	}
	return nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, "knowledge"), ms
}

func entry(key string, score float64, title string) db.SearchEntry {
	return db.SearchEntry{
		Key:   key,
		Score: score,
		Fields: map[string]string{
			db.FieldTitle:   title,
			db.FieldContent: "content of " + key,
		},
	}
}
