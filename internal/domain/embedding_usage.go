package domain

import (
	"context"
	"sync"
)

type embeddingUsageKey struct{}

// EmbeddingUsage collects embedding activity for a single tool call.
// The transport puts a pointer into the context before calling the service,
// the services record after embedding, and the transport reports it in
// response headers. Safe for concurrent use.
type EmbeddingUsage struct {
	mu          sync.Mutex
	totalTokens int
	texts       int
}

// NewContextWithUsage returns a context with an embedded usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *EmbeddingUsage) {
	u := &EmbeddingUsage{}
	return context.WithValue(ctx, embeddingUsageKey{}, u), u
}

// UsageFromContext extracts the usage collector from context. Returns nil if not set.
func UsageFromContext(ctx context.Context) *EmbeddingUsage {
	u, _ := ctx.Value(embeddingUsageKey{}).(*EmbeddingUsage)
	return u
}

// Add records texts embedded and tokens consumed. Nil receivers are ignored.
func (u *EmbeddingUsage) Add(texts, tokens int) {
	if u == nil {
		return
	}
	u.mu.Lock()
	u.texts += texts
	u.totalTokens += tokens
	u.mu.Unlock()
}

// Snapshot returns the texts and tokens recorded so far.
func (u *EmbeddingUsage) Snapshot() (texts, tokens int) {
	if u == nil {
		return 0, 0
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.texts, u.totalTokens
}

// Used reports whether any text was embedded.
func (u *EmbeddingUsage) Used() bool {
	texts, _ := u.Snapshot()
	return texts > 0
}
