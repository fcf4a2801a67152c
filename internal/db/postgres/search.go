package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/williamjung/voiceagent/internal/db"
)

// SearchKNN calls match_documents(query_embedding, match_threshold, match_count).
// The function already returns cosine similarity ordered best-first.
func (s *Store) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if err := db.ValidateKNN(q); err != nil {
		return nil, err
	}

	sql := fmt.Sprintf(
		"select id::text, coalesce(title, ''), coalesce(content, ''), coalesce(url, ''), similarity "+
			"from %s($1::text::vector, $2::float8, $3::int)", s.matchFn)

	rows, err := s.q.Query(ctx, sql, vectorLiteral(q.Vector), q.MinScore, q.K)
	if err != nil {
		return nil, &db.Error{Op: db.OpQuery, Err: err}
	}
	defer rows.Close()

	var entries []db.SearchEntry
	for rows.Next() {
		var (
			id, title, content, url string
			similarity              float64
		)
		if err := rows.Scan(&id, &title, &content, &url, &similarity); err != nil {
			return nil, &db.Error{Op: db.OpQuery, Err: fmt.Errorf("scan: %w", err)}
		}
		entries = append(entries, db.SearchEntry{
			Key:   id,
			Score: db.ClampSimilarity(similarity),
			Fields: map[string]string{
				db.FieldTitle:   title,
				db.FieldContent: content,
				db.FieldURL:     url,
			},
		})
	}
	if err := rows.Err(); err != nil {
		return nil, &db.Error{Op: db.OpQuery, Err: err}
	}

	return &db.SearchResult{Total: len(entries), Entries: entries}, nil
}

// vectorLiteral renders a pgvector text literal: [0.1,0.2,...].
func vectorLiteral(v []float32) string {
	var b strings.Builder
	b.Grow(len(v) * 10)
	b.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
