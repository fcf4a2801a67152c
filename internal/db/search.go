package db

// Stored field names shared by all backends.
const (
	FieldTitle              = "title"
	FieldContent            = "content"
	FieldContentWithContext = "content_with_context"
	FieldURL                = "url"
	FieldType               = "type"
	FieldTags               = "tags"
	FieldMetadata           = "metadata"
)

// DisplayFields are the fields the knowledge tool needs back from a search.
var DisplayFields = []string{FieldTitle, FieldContent, FieldURL}

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName    string
	Vector       []float32
	K            int
	MinScore     float64 // cosine similarity floor, inclusive
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single hit. Score is cosine similarity in [0,1].
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}

// VectorRecord is one row to upsert.
type VectorRecord struct {
	Key    string
	Vector []float32
	Fields map[string]string
}

// SimilarityFromDistance converts cosine distance to similarity clamped to [0,1].
func SimilarityFromDistance(d float64) float64 {
	return min(1, max(0, 1.0-d))
}

// ClampSimilarity clamps an already-similarity score to [0,1].
func ClampSimilarity(s float64) float64 {
	return min(1, max(0, s))
}
