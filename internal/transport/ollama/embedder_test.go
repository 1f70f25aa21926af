package ollama

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/aaronbrezel/mcp-census/internal/domain"
	"github.com/aaronbrezel/mcp-census/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterEmbeddingMetrics()
	os.Exit(m.Run())
}

func vector(dims int, v float32) []float32 {
	out := make([]float32, dims)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestNewEmbedder_Defaults(t *testing.T) {
	e := NewEmbedder()
	if e.baseURL != DefaultURL {
		t.Errorf("baseURL = %s, want %s", e.baseURL, DefaultURL)
	}
	if e.model != DefaultModel {
		t.Errorf("model = %s, want %s", e.model, DefaultModel)
	}
	if e.dimensions != DefaultDimensions {
		t.Errorf("dimensions = %d, want %d", e.dimensions, DefaultDimensions)
	}

	id := e.Identity()
	if id.Provider != "ollama" || id.Model != DefaultModel || id.Dimensions != DefaultDimensions {
		t.Errorf("Identity() = %+v", id)
	}
}

func TestNewEmbedder_WithOptions(t *testing.T) {
	e := NewEmbedder(
		WithBaseURL("http://custom:8080"),
		WithModel("nomic-embed-text"),
		WithDimensions(768),
		WithTimeout(5*time.Second),
	)
	if e.baseURL != "http://custom:8080" || e.model != "nomic-embed-text" || e.dimensions != 768 {
		t.Errorf("options not applied: %+v", e)
	}
	if e.client.Timeout != 5*time.Second {
		t.Errorf("timeout = %v", e.client.Timeout)
	}
}

func TestBatchEmbed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var req embedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "test-model" || len(req.Input) != 2 {
			t.Errorf("unexpected request body: %+v", req)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(embedResponse{
			Model:           req.Model,
			Embeddings:      [][]float32{vector(4, 0.1), vector(4, 0.2)},
			PromptEvalCount: 7,
		})
	}))
	defer server.Close()

	e := NewEmbedder(WithBaseURL(server.URL), WithModel("test-model"), WithDimensions(4))

	res, err := e.BatchEmbed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("BatchEmbed: %v", err)
	}
	if len(res.Embeddings) != 2 || res.Embeddings[1][0] != 0.2 {
		t.Errorf("unexpected embeddings: %v", res.Embeddings)
	}
	if res.TotalTokens != 7 {
		t.Errorf("TotalTokens = %d", res.TotalTokens)
	}
}

func TestEmbed_Single(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float32{vector(3, 1)}})
	}))
	defer server.Close()

	e := NewEmbedder(WithBaseURL(server.URL), WithDimensions(3))
	res, err := e.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(res.Embedding) != 3 {
		t.Errorf("len = %d", len(res.Embedding))
	}
}

func TestBatchEmbed_Empty(t *testing.T) {
	e := NewEmbedder(WithBaseURL("http://unused"))
	res, err := e.BatchEmbed(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Embeddings != nil {
		t.Errorf("expected nil embeddings, got %v", res.Embeddings)
	}
}

func TestBatchEmbed_Errors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"status", func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
		}},
		{"bad json", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("{"))
		}},
		{"count mismatch", func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float32{vector(3, 1)}})
		}},
		{"dimension mismatch", func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float32{vector(2, 1), vector(2, 1)}})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			e := NewEmbedder(WithBaseURL(server.URL), WithDimensions(3))
			_, err := e.BatchEmbed(context.Background(), []string{"a", "b"})
			if !errors.Is(err, domain.ErrEmbeddingProviderError) {
				t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
			}
		})
	}
}

func TestBatchEmbed_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	e := NewEmbedder(WithBaseURL(url))
	if _, err := e.BatchEmbed(context.Background(), []string{"a"}); !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Fatalf("expected ErrEmbeddingProviderError, got %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"models":[{"name":"all-minilm:l6-v2","model":"all-minilm:l6-v2"}]}`))
	}))
	defer server.Close()

	if err := NewEmbedder(WithBaseURL(server.URL)).HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}

	err := NewEmbedder(WithBaseURL(server.URL), WithModel("missing")).HealthCheck(context.Background())
	if err == nil || !strings.Contains(err.Error(), "not pulled") {
		t.Fatalf("expected missing model error, got %v", err)
	}
}
