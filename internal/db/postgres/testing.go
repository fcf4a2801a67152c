package postgres

// NewStoreForTest creates a Store over the provided querier (test-only).
func NewStoreForTest(q querier) *Store {
	return &Store{q: q, matchFn: "match_documents", table: "documents"}
}
