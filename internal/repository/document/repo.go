// Package document adapts a db.Store to the knowledge index contract.
package document

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/williamjung/voiceagent/internal/db"
	"github.com/williamjung/voiceagent/internal/domain"
)

// store is the consumer interface for documents (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	Upsert(ctx context.Context, index string, records []db.VectorRecord) error
	EnsureIndex(ctx context.Context, spec db.IndexSpec) error
}

// Repo implements the vector search index over one named index.
type Repo struct {
	store       store
	index       string
	m           int
	efConstruct int
}

// Option configures a Repo.
type Option func(*Repo)

// WithHNSW overrides the HNSW graph parameters used when the index is created.
func WithHNSW(m, efConstruct int) Option {
	return func(r *Repo) {
		r.m = m
		r.efConstruct = efConstruct
	}
}

// New creates a document repository bound to index.
func New(s store, index string, opts ...Option) *Repo {
	r := &Repo{store: s, index: index}
	for _, o := range opts {
		o(r)
	}
	return r
}

// EnsureIndex provisions the index for vectors of the given width. Existing indexes are kept.
func (r *Repo) EnsureIndex(ctx context.Context, dimensions int) error {
	err := r.store.EnsureIndex(ctx, db.IndexSpec{
		Name:        r.index,
		Dimensions:  dimensions,
		M:           r.m,
		EFConstruct: r.efConstruct,
	})
	if err != nil {
		return fmt.Errorf("ensure index %s: %w: %w", r.index, domain.ErrIndexUnavailable, err)
	}
	return nil
}

// Search returns documents with score >= threshold, best first, at most limit of them.
// Backend failures are wrapped with domain.ErrIndexUnavailable.
func (r *Repo) Search(ctx context.Context, vector []float32, threshold float64, limit int) ([]domain.Document, error) {
	if limit <= 0 {
		return nil, nil
	}

	sr, err := r.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    r.index,
		Vector:       vector,
		K:            limit,
		MinScore:     threshold,
		ReturnFields: db.DisplayFields,
	})
	if err != nil {
		return nil, fmt.Errorf("search %s: %w: %w", r.index, domain.ErrIndexUnavailable, err)
	}

	docs := make([]domain.Document, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		if e.Score < threshold {
			continue
		}
		docs = append(docs, domain.Document{
			ID:      e.Key,
			Title:   e.Fields[db.FieldTitle],
			Content: e.Fields[db.FieldContent],
			URL:     e.Fields[db.FieldURL],
			Score:   e.Score,
		})
	}

	// Backends already order by score; the stable sort keeps their tie order.
	slices.SortStableFunc(docs, func(a, b domain.Document) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})

	if len(docs) > limit {
		docs = docs[:limit]
	}
	return docs, nil
}

// Upsert writes embedded chunks to the index.
func (r *Repo) Upsert(ctx context.Context, chunks []domain.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	records := make([]db.VectorRecord, 0, len(chunks))
	for i := range chunks {
		rec, err := toRecord(&chunks[i])
		if err != nil {
			return err
		}
		records = append(records, rec)
	}

	if err := r.store.Upsert(ctx, r.index, records); err != nil {
		return fmt.Errorf("upsert %d chunks into %s: %w: %w", len(records), r.index, domain.ErrIndexUnavailable, err)
	}
	return nil
}

func toRecord(c *domain.Chunk) (db.VectorRecord, error) {
	if c.ID == "" || len(c.Vector) == 0 {
		return db.VectorRecord{}, fmt.Errorf("chunk %q: %w: id and vector are required", c.Title, domain.ErrInvalidDocument)
	}

	fields := map[string]string{
		db.FieldContent: c.Content,
	}
	setIf(fields, db.FieldTitle, c.Title)
	setIf(fields, db.FieldContentWithContext, c.ContentWithContext)
	setIf(fields, db.FieldURL, c.URL)
	setIf(fields, db.FieldType, string(c.Type))
	setIf(fields, db.FieldTags, strings.Join(c.Tags, ","))

	if len(c.Metadata) > 0 {
		data, err := json.Marshal(c.Metadata)
		if err != nil {
			return db.VectorRecord{}, fmt.Errorf("marshal metadata: %w", err)
		}
		fields[db.FieldMetadata] = string(data)
	}

	return db.VectorRecord{Key: c.ID, Vector: c.Vector, Fields: fields}, nil
}

func setIf(m map[string]string, k, v string) {
	if v != "" {
		m[k] = v
	}
}
