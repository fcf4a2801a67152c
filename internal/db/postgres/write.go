package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/williamjung/voiceagent/internal/db"
)

// Upsert inserts or replaces rows in one pgx batch. The index argument is the table name
// when non-empty.
func (s *Store) Upsert(ctx context.Context, index string, records []db.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}
	table := s.table
	if index != "" {
		if !isSQLIdentifier(index) {
			return fmt.Errorf("invalid table name %q", index)
		}
		table = index
	}

	sql := fmt.Sprintf(`insert into %s
  (id, title, content, content_with_context, url, type, tags, metadata, embedding)
values ($1, $2, $3, $4, $5, $6, $7, $8::text::jsonb, $9::text::vector)
on conflict (id) do update set
  title = excluded.title,
  content = excluded.content,
  content_with_context = excluded.content_with_context,
  url = excluded.url,
  type = excluded.type,
  tags = excluded.tags,
  metadata = excluded.metadata,
  embedding = excluded.embedding`, table)

	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(sql, insertArgs(rec)...)
	}

	br := s.q.SendBatch(ctx, batch)
	defer br.Close()

	for i := range records {
		if _, err := br.Exec(); err != nil {
			return &db.Error{Op: db.OpInsert, Err: fmt.Errorf("row %s: %w", records[i].Key, err)}
		}
	}
	return nil
}

func insertArgs(rec db.VectorRecord) []any {
	f := rec.Fields
	return []any{
		rec.Key,
		nullable(f[db.FieldTitle]),
		f[db.FieldContent],
		nullable(f[db.FieldContentWithContext]),
		nullable(f[db.FieldURL]),
		nullable(f[db.FieldType]),
		splitTags(f[db.FieldTags]),
		metadataJSON(f[db.FieldMetadata]),
		vectorLiteral(rec.Vector),
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func splitTags(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// metadataJSON passes through valid JSON and falls back to an empty object.
func metadataJSON(s string) string {
	if s == "" || !json.Valid([]byte(s)) {
		return "{}"
	}
	return s
}
