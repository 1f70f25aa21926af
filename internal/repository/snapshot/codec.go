// Package snapshot persists a built vector index so later processes can load
// it without re-embedding.
package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/aaronbrezel/mcp-census/internal/domain"
	"github.com/aaronbrezel/mcp-census/internal/vectorindex"
)

// CurrentVersion is the snapshot format version. Increment on breaking changes.
const CurrentVersion = 1

// ErrSnapshotNotFound is returned by stores that hold no snapshot yet.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Snapshot is the persisted form of a vector index.
type Snapshot struct {
	Version   int
	Identity  domain.EmbedderIdentity
	CreatedAt time.Time
	Entries   []vectorindex.Entry
}

// FromIndex captures idx for persistence.
func FromIndex(idx *vectorindex.Index, now time.Time) *Snapshot {
	return &Snapshot{
		Version:   CurrentVersion,
		Identity:  idx.Identity(),
		CreatedAt: now.UTC(),
		Entries:   idx.Entries(),
	}
}

// Index rebuilds the vector index from stored vectors.
func (s *Snapshot) Index() (*vectorindex.Index, error) {
	docs := make([]domain.Document, len(s.Entries))
	vectors := make([][]float32, len(s.Entries))
	for i, e := range s.Entries {
		docs[i] = e.Document
		vectors[i] = e.Vector
	}
	idx, err := vectorindex.New(s.Identity, docs, vectors)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrCorruptIndex, err)
	}
	return idx, nil
}

type wireDocument struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
	Vector   []byte         `json:"vector"`
}

type wireSnapshot struct {
	Version   int                     `json:"version"`
	Identity  domain.EmbedderIdentity `json:"identity"`
	CreatedAt time.Time               `json:"created_at"`
	Documents []wireDocument          `json:"documents"`
}

// Encode writes s as zstd-compressed JSON.
func Encode(w io.Writer, s *Snapshot) error {
	wire := wireSnapshot{
		Version:   s.Version,
		Identity:  s.Identity,
		CreatedAt: s.CreatedAt,
		Documents: make([]wireDocument, len(s.Entries)),
	}
	for i, e := range s.Entries {
		wire.Documents[i] = wireDocument{
			Content:  e.Document.Content,
			Metadata: e.Document.Metadata,
			Vector:   vectorindex.EncodeVector(e.Vector),
		}
	}

	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("create zstd writer: %w", err)
	}
	if err := json.NewEncoder(zw).Encode(&wire); err != nil {
		_ = zw.Close()
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("flush zstd writer: %w", err)
	}
	return nil
}

// Decode reads a snapshot written by Encode. Metadata numbers are kept as
// json.Number. Any decoding failure wraps domain.ErrCorruptIndex.
func Decode(r io.Reader) (*Snapshot, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrCorruptIndex, err)
	}
	defer zr.Close()

	dec := json.NewDecoder(zr)
	dec.UseNumber()

	var wire wireSnapshot
	if err := dec.Decode(&wire); err != nil {
		return nil, fmt.Errorf("%w: decode snapshot: %w", domain.ErrCorruptIndex, err)
	}
	if wire.Version != CurrentVersion {
		return nil, fmt.Errorf("%w: unsupported snapshot version %d (want %d)",
			domain.ErrCorruptIndex, wire.Version, CurrentVersion)
	}

	s := &Snapshot{
		Version:   wire.Version,
		Identity:  wire.Identity,
		CreatedAt: wire.CreatedAt,
		Entries:   make([]vectorindex.Entry, len(wire.Documents)),
	}
	for i, d := range wire.Documents {
		vec, err := vectorindex.DecodeVector(d.Vector)
		if err != nil {
			return nil, fmt.Errorf("%w: document %d: %w", domain.ErrCorruptIndex, i, err)
		}
		s.Entries[i] = vectorindex.Entry{
			Vector:   vec,
			Document: domain.Document{Content: d.Content, Metadata: d.Metadata},
		}
	}
	return s, nil
}

// Marshal encodes s into a byte slice.
func Marshal(s *Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Unmarshal decodes a byte slice produced by Marshal.
func Unmarshal(data []byte) (*Snapshot, error) {
	return Decode(bytes.NewReader(data))
}
