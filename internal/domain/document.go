package domain

// UntitledPlaceholder replaces a missing or empty document title.
const UntitledPlaceholder = "제목 없음"

// Document is a single retrieval unit returned by the vector index.
// Identity inside the retrieval pipeline is positional; ID is informational.
type Document struct {
	ID      string
	Title   string
	Content string
	URL     string
	Score   float64 // cosine similarity in [0,1], higher is better
}

// DisplayTitle returns the title, or UntitledPlaceholder when it is empty.
func (d Document) DisplayTitle() string {
	if d.Title == "" {
		return UntitledPlaceholder
	}
	return d.Title
}

// DocumentType classifies ingested sources.
type DocumentType string

const (
	// DocumentArticle is a public blog post.
	DocumentArticle DocumentType = "article"
	// DocumentTraining is private material used only for grounding.
	DocumentTraining DocumentType = "training"
	// DocumentNote is anything else.
	DocumentNote DocumentType = "note"
)

// Chunk is an embedded slice of a source document ready to be written to the index.
type Chunk struct {
	ID                 string
	Title              string
	Content            string // shown to the model
	ContentWithContext string // what was embedded
	Type               DocumentType
	URL                string
	Tags               []string
	Metadata           map[string]string
	Vector             []float32
}

// ContextRequest asks for a short description that situates Chunk inside Document.
type ContextRequest struct {
	Title    string
	Type     DocumentType
	Category string
	Tags     []string
	Document string
	Chunk    string
}

// TypeLabel is the Korean label used in prompts.
func (t DocumentType) TypeLabel() string {
	switch t {
	case DocumentArticle:
		return "공개 블로그 글"
	case DocumentTraining:
		return "학습 자료"
	default:
		return "노트"
	}
}
