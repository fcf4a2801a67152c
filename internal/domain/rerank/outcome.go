// Package rerank models the result of the optional rerank stage.
package rerank

import "github.com/williamjung/voiceagent/internal/domain"

// Kind tags an Outcome.
type Kind int

const (
	// KindReranked means the backend returned a usable ordering.
	KindReranked Kind = iota
	// KindFailed means the backend errored and the caller must fall back.
	KindFailed
)

// Outcome is either Reranked(documents) or Failed(reason). It is returned instead of an error
// so the caller cannot forget the fallback.
type Outcome struct {
	kind   Kind
	docs   []domain.Document
	reason error
}

// Reranked wraps a reordered subset of the input documents.
func Reranked(docs []domain.Document) Outcome {
	return Outcome{kind: KindReranked, docs: docs}
}

// Failed wraps the reason the backend could not produce an ordering.
func Failed(reason error) Outcome {
	return Outcome{kind: KindFailed, reason: reason}
}

// Kind returns the outcome tag.
func (o Outcome) Kind() Kind { return o.kind }

// Documents returns the reranked documents; nil for Failed.
func (o Outcome) Documents() []domain.Document { return o.docs }

// Reason returns the failure reason; nil for Reranked.
func (o Outcome) Reason() error { return o.reason }

// Resolve returns the reranked documents, or the first limit entries of fallback on failure.
// fallback must be the similarity-ordered input that was handed to the reranker.
func (o Outcome) Resolve(fallback []domain.Document, limit int) []domain.Document {
	if o.kind == KindReranked {
		if len(o.docs) > limit {
			return o.docs[:limit]
		}
		return o.docs
	}
	if len(fallback) > limit {
		return fallback[:limit]
	}
	return fallback
}
