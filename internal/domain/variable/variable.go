// Package variable models a dataset's variable catalog (variables.json).
package variable

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/aaronbrezel/mcp-census/internal/domain"
)

// Placeholders substituted for absent definition fields.
const (
	NoLabel   = "No Label"
	NoConcept = "No Concept"
)

// Catalog maps a variable name to its definition exactly as received.
type Catalog map[string]json.RawMessage

// Response mirrors the upstream {"variables": {...}} shape.
type Response struct {
	Variables Catalog `json:"variables"`
}

// Names returns the variable names in sorted order.
func (c Catalog) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Documents renders one document per variable in sorted-name order.
// Each document's metadata holds a single entry: name -> definition.
func (c Catalog) Documents() []domain.Document {
	names := c.Names()
	docs := make([]domain.Document, len(names))
	for i, name := range names {
		def := c[name]
		docs[i] = domain.Document{
			Content:  render(name, def),
			Metadata: map[string]any{name: def},
		}
	}
	return docs
}

func render(name string, def json.RawMessage) string {
	var fields struct {
		Label   string `json:"label"`
		Concept string `json:"concept"`
	}
	// Definitions that are not objects still render, with placeholders.
	_ = json.Unmarshal(def, &fields)

	label := fields.Label
	if label == "" {
		label = NoLabel
	}
	concept := fields.Concept
	if concept == "" {
		concept = NoConcept
	}

	return "Variable: " + name +
		"\nLabel: " + label +
		"\nConcept: " + concept +
		"\nDefinition: " + compact(def)
}

func compact(def json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, def); err != nil {
		return string(def)
	}
	return buf.String()
}

// FromDocuments merges the single-entry metadata of documents built by
// Documents back into a Catalog.
func FromDocuments(docs []domain.Document) (Catalog, error) {
	out := make(Catalog, len(docs))
	for _, doc := range docs {
		for name, v := range doc.Metadata {
			def, err := rawDefinition(v)
			if err != nil {
				return nil, fmt.Errorf("variable %q: %w", name, err)
			}
			out[name] = def
		}
	}
	return out, nil
}

func rawDefinition(v any) (json.RawMessage, error) {
	switch def := v.(type) {
	case json.RawMessage:
		return def, nil
	case []byte:
		return json.RawMessage(def), nil
	default:
		b, err := json.Marshal(def)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
}
