package result

import "github.com/aaronbrezel/mcp-census/internal/domain"

// Result is a single search hit.
type Result struct {
	document domain.Document
	score    float64
}

// New creates a search result.
func New(doc domain.Document, score float64) Result {
	return Result{document: doc, score: score}
}

// Document returns the matched document.
func (r *Result) Document() domain.Document { return r.document }

// Score returns the cosine similarity to the query.
func (r *Result) Score() float64 { return r.score }

// Content returns the document content.
func (r *Result) Content() string { return r.document.Content }

// Metadata returns the document metadata.
func (r *Result) Metadata() map[string]any { return r.document.Metadata }

// Contents extracts the content of every result, preserving order.
func Contents(results []Result) []string {
	out := make([]string, len(results))
	for i := range results {
		out[i] = results[i].Content()
	}
	return out
}

// Documents extracts the document of every result, preserving order.
func Documents(results []Result) []domain.Document {
	out := make([]domain.Document, len(results))
	for i := range results {
		out[i] = results[i].document
	}
	return out
}
