// Package vectorindex is an immutable in-memory cosine-similarity index over documents.
package vectorindex

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/aaronbrezel/mcp-census/internal/domain"
	"github.com/aaronbrezel/mcp-census/internal/domain/search/filter"
	"github.com/aaronbrezel/mcp-census/internal/domain/search/result"
)

// Entry pairs a document with its embedding.
type Entry struct {
	Vector   []float32
	Document domain.Document
}

// Index holds entries in insertion order. It is never mutated after
// construction, so concurrent searches need no locking.
type Index struct {
	identity domain.EmbedderIdentity
	dims     int
	entries  []Entry
}

// New pairs docs with vectors. Counts must match and every vector must have
// the same dimension (identity.Dimensions when set).
func New(identity domain.EmbedderIdentity, docs []domain.Document, vectors [][]float32) (*Index, error) {
	if len(docs) != len(vectors) {
		return nil, fmt.Errorf("%w: %d documents, %d vectors", domain.ErrVectorDimMismatch, len(docs), len(vectors))
	}

	dims := identity.Dimensions
	if dims == 0 && len(vectors) > 0 {
		dims = len(vectors[0])
	}

	entries := make([]Entry, len(docs))
	for i := range docs {
		if len(vectors[i]) != dims {
			return nil, fmt.Errorf("%w: vector %d has %d dimensions, want %d",
				domain.ErrVectorDimMismatch, i, len(vectors[i]), dims)
		}
		entries[i] = Entry{Vector: vectors[i], Document: docs[i]}
	}

	return &Index{identity: identity, dims: dims, entries: entries}, nil
}

// Build embeds every document's content in one batch and indexes the result.
// An empty document list yields an empty index without calling the embedder.
func Build(
	ctx context.Context, e domain.Embedder, identity domain.EmbedderIdentity, docs []domain.Document,
) (*Index, error) {
	if len(docs) == 0 {
		return &Index{identity: identity, dims: identity.Dimensions}, nil
	}

	texts := make([]string, len(docs))
	for i := range docs {
		texts[i] = docs[i].Content
	}

	res, err := domain.EmbedAll(ctx, e, texts)
	if err != nil {
		return nil, fmt.Errorf("embed documents: %w", err)
	}

	return New(identity, docs, res.Embeddings)
}

// Identity returns the embedding space the index was built in.
func (idx *Index) Identity() domain.EmbedderIdentity { return idx.identity }

// Dimensions returns the vector length shared by every entry.
func (idx *Index) Dimensions() int { return idx.dims }

// Len returns the number of entries.
func (idx *Index) Len() int { return len(idx.entries) }

// Entries returns the entries in insertion order. Callers must not modify them.
func (idx *Index) Entries() []Entry { return idx.entries }

type candidate struct {
	pos   int
	score float64
}

// Search returns up to k entries matching f, ordered by descending cosine
// similarity to query. Equal scores keep insertion order.
func (idx *Index) Search(query []float32, k int, f filter.Expression) ([]result.Result, error) {
	if k <= 0 || len(idx.entries) == 0 {
		return []result.Result{}, nil
	}
	if len(query) != idx.dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			domain.ErrVectorDimMismatch, len(query), idx.dims)
	}

	cands := make([]candidate, 0, len(idx.entries))
	for i := range idx.entries {
		if !f.Matches(idx.entries[i].Document.Metadata) {
			continue
		}
		cands = append(cands, candidate{pos: i, score: Cosine(query, idx.entries[i].Vector)})
	}

	sort.SliceStable(cands, func(i, j int) bool {
		return cands[i].score > cands[j].score
	})

	if len(cands) > k {
		cands = cands[:k]
	}

	out := make([]result.Result, len(cands))
	for i, c := range cands {
		out[i] = result.New(idx.entries[c.pos].Document, c.score)
	}
	return out, nil
}

// Cosine returns the cosine similarity of a and b, or 0 when either is a zero
// vector or the lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}
