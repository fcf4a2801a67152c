package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/williamjung/voiceagent/internal/db"
)

// --- fakes ---

type fakeRow struct {
	id, title, content, url string
	similarity              float64
}

type fakeRows struct {
	rows []fakeRow
	pos  int
	err  error
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return nil, nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	row := r.rows[r.pos-1]
	*dest[0].(*string) = row.id
	*dest[1].(*string) = row.title
	*dest[2].(*string) = row.content
	*dest[3].(*string) = row.url
	*dest[4].(*float64) = row.similarity
	return nil
}

type fakeBatchResults struct {
	execErr error
	execs   int
}

func (b *fakeBatchResults) Exec() (pgconn.CommandTag, error) {
	b.execs++
	return pgconn.CommandTag{}, b.execErr
}
func (b *fakeBatchResults) Query() (pgx.Rows, error) { return nil, errors.New("not implemented") }
func (b *fakeBatchResults) QueryRow() pgx.Row        { return nil }
func (b *fakeBatchResults) Close() error             { return nil }

type fakeQuerier struct {
	pingErr  error
	rows     *fakeRows
	queryErr error
	lastSQL  string
	lastArgs []any
	batch    *pgx.Batch
	results  *fakeBatchResults
}

func (f *fakeQuerier) Ping(context.Context) error { return f.pingErr }

func (f *fakeQuerier) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.lastSQL, f.lastArgs = sql, args
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.rows, nil
}

func (f *fakeQuerier) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (f *fakeQuerier) SendBatch(_ context.Context, b *pgx.Batch) pgx.BatchResults {
	f.batch = b
	if f.results == nil {
		f.results = &fakeBatchResults{}
	}
	return f.results
}

// --- tests ---

func TestSearchKNN_MapsRows(t *testing.T) {
	q := &fakeQuerier{rows: &fakeRows{rows: []fakeRow{
		{id: "1", title: "휴가 정책", content: "연차는 15일", url: "/posts/leave", similarity: 0.82},
		{id: "2", title: "", content: "복지", similarity: 0.41},
	}}}
	s := NewStoreForTest(q)

	res, err := s.SearchKNN(context.Background(), &db.KNNQuery{
		IndexName: "documents",
		Vector:    []float32{0.5, -1},
		K:         20,
		MinScore:  0.2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(res.Entries))
	}
	if res.Entries[0].Key != "1" || res.Entries[0].Fields[db.FieldTitle] != "휴가 정책" {
		t.Errorf("unexpected first entry %+v", res.Entries[0])
	}
	if !strings.Contains(q.lastSQL, "match_documents(") {
		t.Errorf("sql does not call match_documents: %s", q.lastSQL)
	}
	if q.lastArgs[0] != "[0.5,-1]" {
		t.Errorf("vector arg = %v", q.lastArgs[0])
	}
	if q.lastArgs[1] != 0.2 || q.lastArgs[2] != 20 {
		t.Errorf("threshold/count args = %v, %v", q.lastArgs[1], q.lastArgs[2])
	}
}

func TestSearchKNN_QueryError(t *testing.T) {
	q := &fakeQuerier{queryErr: errors.New("connection refused")}
	s := NewStoreForTest(q)

	_, err := s.SearchKNN(context.Background(), &db.KNNQuery{IndexName: "documents", Vector: []float32{1}, K: 20})
	var dbErr *db.Error
	if !errors.As(err, &dbErr) {
		t.Fatalf("expected db.Error, got %v", err)
	}
}

func TestSearchKNN_RowsError(t *testing.T) {
	q := &fakeQuerier{rows: &fakeRows{err: errors.New("conn reset")}}
	s := NewStoreForTest(q)

	if _, err := s.SearchKNN(context.Background(), &db.KNNQuery{IndexName: "documents", Vector: []float32{1}, K: 20}); err == nil {
		t.Fatal("expected error")
	}
}

func TestSearchKNN_Validation(t *testing.T) {
	s := NewStoreForTest(&fakeQuerier{})
	_, err := s.SearchKNN(context.Background(), &db.KNNQuery{IndexName: "documents", Vector: []float32{1}})
	if !errors.Is(err, db.ErrInvalidQuery) {
		t.Fatalf("expected ErrInvalidQuery, got %v", err)
	}
}

func TestUpsert_QueuesOnePerRecord(t *testing.T) {
	q := &fakeQuerier{}
	s := NewStoreForTest(q)

	err := s.Upsert(context.Background(), "", []db.VectorRecord{
		{Key: "a", Vector: []float32{1, 2}, Fields: map[string]string{
			db.FieldTitle: "A", db.FieldContent: "x", db.FieldTags: "hr, leave", db.FieldMetadata: `{"category":"hr"}`,
		}},
		{Key: "b", Vector: []float32{3, 4}, Fields: map[string]string{db.FieldContent: "y"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.batch.Len() != 2 {
		t.Fatalf("batch len = %d, want 2", q.batch.Len())
	}
	if q.results.execs != 2 {
		t.Errorf("execs = %d, want 2", q.results.execs)
	}
	first := q.batch.QueuedQueries[0]
	if !strings.Contains(first.SQL, "insert into documents") {
		t.Errorf("unexpected sql %s", first.SQL)
	}
	tags := first.Arguments[6].([]string)
	if len(tags) != 2 || tags[0] != "hr" || tags[1] != "leave" {
		t.Errorf("tags = %v", tags)
	}
	if first.Arguments[8] != "[1,2]" {
		t.Errorf("vector = %v", first.Arguments[8])
	}
}

func TestUpsert_ExecError(t *testing.T) {
	q := &fakeQuerier{results: &fakeBatchResults{execErr: errors.New("duplicate")}}
	s := NewStoreForTest(q)

	err := s.Upsert(context.Background(), "", []db.VectorRecord{{Key: "a", Vector: []float32{1}}})
	var dbErr *db.Error
	if !errors.As(err, &dbErr) {
		t.Fatalf("expected db.Error, got %v", err)
	}
}

func TestUpsert_RejectsBadTable(t *testing.T) {
	s := NewStoreForTest(&fakeQuerier{})
	err := s.Upsert(context.Background(), "docs; drop table x", []db.VectorRecord{{Key: "a", Vector: []float32{1}}})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestEnsureIndex_DimensionMismatch(t *testing.T) {
	s := NewStoreForTest(&fakeQuerier{})
	if err := s.EnsureIndex(context.Background(), db.IndexSpec{Name: "documents", Dimensions: 768}); err == nil {
		t.Fatal("expected dimension error")
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	data, err := migrationsFS.ReadFile("migrations/00001_documents.sql")
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}
	for _, want := range []string{"+goose Up", "match_documents", "vector(1536)", "+goose StatementEnd"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("migration missing %q", want)
		}
	}
}

func TestPing(t *testing.T) {
	s := NewStoreForTest(&fakeQuerier{pingErr: errors.New("down")})
	if err := s.Ping(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestVectorLiteral(t *testing.T) {
	if got := vectorLiteral([]float32{0.25, 1, -3}); got != "[0.25,1,-3]" {
		t.Errorf("vectorLiteral = %q", got)
	}
	if got := vectorLiteral(nil); got != "[]" {
		t.Errorf("vectorLiteral(nil) = %q", got)
	}
}

func TestNames(t *testing.T) {
	fn, table, err := names(Config{})
	if err != nil || fn != "match_documents" || table != "documents" {
		t.Fatalf("defaults = %q %q %v", fn, table, err)
	}
	if _, _, err := names(Config{MatchFunction: "Match-Docs"}); err == nil {
		t.Error("expected error for invalid function name")
	}
	if _, _, err := names(Config{Table: "public.documents"}); err != nil {
		t.Errorf("schema-qualified table rejected: %v", err)
	}
}

func TestMetadataJSON(t *testing.T) {
	if metadataJSON("") != "{}" || metadataJSON("not json") != "{}" {
		t.Error("invalid metadata should become {}")
	}
	if metadataJSON(`{"a":1}`) != `{"a":1}` {
		t.Error("valid metadata should pass through")
	}
}
