package main

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/aaronbrezel/mcp-census/internal/config"
	"github.com/aaronbrezel/mcp-census/internal/domain"
)

func TestBuildProvider(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.EmbeddingConfig
		wantID   string
		wantFail bool
	}{
		{
			name:   "ollama",
			cfg:    config.EmbeddingConfig{Provider: config.ProviderOllama, Model: "all-minilm:l6-v2", Dimensions: 384},
			wantID: "ollama/all-minilm:l6-v2/384",
		},
		{
			name:   "openai",
			cfg:    config.EmbeddingConfig{Provider: config.ProviderOpenAI, Model: "text-embedding-3-small", Dimensions: 512},
			wantID: "openai/text-embedding-3-small/512",
		},
		{
			name:     "unknown",
			cfg:      config.EmbeddingConfig{Provider: "cohere"},
			wantFail: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, id, err := buildProvider(tt.cfg, zap.NewNop())
			if tt.wantFail {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("buildProvider: %v", err)
			}
			if e == nil {
				t.Fatal("nil embedder")
			}
			if id.String() != tt.wantID {
				t.Errorf("identity = %q, want %q", id, tt.wantID)
			}
		})
	}
}

type stubEmbedder struct {
	last string
	err  error
}

func (s *stubEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	s.last = text
	return domain.EmbeddingResult{Embedding: []float32{1}}, nil
}

func (s *stubEmbedder) HealthCheck(context.Context) error { return s.err }

func TestWithInstruction(t *testing.T) {
	inner := &stubEmbedder{}

	if withInstruction(inner, "") != domain.Embedder(inner) {
		t.Error("empty instruction must not wrap")
	}

	wrapped := withInstruction(inner, "query: ")
	if _, err := wrapped.Embed(context.Background(), "median income"); err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if inner.last != "query: median income" {
		t.Errorf("inner saw %q", inner.last)
	}
}

func TestEmbeddingHealthChecker(t *testing.T) {
	inner := &stubEmbedder{err: errors.New("connection refused")}
	if err := newEmbeddingHealthChecker(inner).HealthCheck(context.Background()); err == nil {
		t.Error("expected provider error")
	}

	inner.err = nil
	if err := newEmbeddingHealthChecker(inner).HealthCheck(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
