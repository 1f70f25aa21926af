package domain

// Document is one searchable unit: the rendered text that gets embedded and
// the structured attributes it was rendered from.
// Content is derived from Metadata at construction and never edited on its own.
type Document struct {
	Content  string
	Metadata map[string]any
}
