package domain

// RerankRequest is what crosses the rerank service boundary.
type RerankRequest struct {
	Query     string
	Documents []string
	TopN      int
	Model     string
}

// RerankHit points back into RerankRequest.Documents.
type RerankHit struct {
	Index          int
	RelevanceScore float64
}
