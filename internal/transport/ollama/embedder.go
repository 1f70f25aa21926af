// Package ollama is an embedding provider backed by a local Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/aaronbrezel/mcp-census/internal/domain"
	"github.com/aaronbrezel/mcp-census/internal/metrics"
)

const (
	// DefaultURL is the default Ollama API endpoint.
	DefaultURL = "http://localhost:11434"

	// DefaultModel is the default embedding model.
	DefaultModel = "all-minilm:l6-v2"

	// DefaultDimensions is the output dimension of all-minilm.
	DefaultDimensions = 384

	// DefaultTimeout bounds one embedding request.
	DefaultTimeout = 60 * time.Second

	providerName = "ollama"
	apiPathTags  = "/api/tags"
	apiPathEmbed = "/api/embed"
)

// Embedder generates embeddings with the Ollama /api/embed endpoint.
type Embedder struct {
	baseURL    string
	model      string
	dimensions int
	client     *http.Client
	logger     *zap.Logger
}

// Option configures an Embedder.
type Option func(*Embedder)

// WithBaseURL sets the Ollama API base URL.
func WithBaseURL(url string) Option {
	return func(e *Embedder) { e.baseURL = url }
}

// WithModel sets the embedding model.
func WithModel(model string) Option {
	return func(e *Embedder) { e.model = model }
}

// WithDimensions sets the expected vector dimensions.
func WithDimensions(dims int) Option {
	return func(e *Embedder) { e.dimensions = dims }
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(e *Embedder) { e.client.Timeout = timeout }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Embedder) { e.client = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Embedder) { e.logger = l }
}

// NewEmbedder creates an Ollama embedding provider.
func NewEmbedder(opts ...Option) *Embedder {
	e := &Embedder{
		baseURL:    DefaultURL,
		model:      DefaultModel,
		dimensions: DefaultDimensions,
		client:     &http.Client{Timeout: DefaultTimeout},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Identity names the embedding space produced by this provider.
func (e *Embedder) Identity() domain.EmbedderIdentity {
	return domain.EmbedderIdentity{Provider: providerName, Model: e.model, Dimensions: e.dimensions}
}

// Embed implements domain.Embedder.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	res, err := e.BatchEmbed(ctx, []string{text})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	return domain.EmbeddingResult{
		Embedding:    res.Embeddings[0],
		PromptTokens: res.PromptTokens,
		TotalTokens:  res.TotalTokens,
	}, nil
}

// BatchEmbed implements domain.BatchEmbedder in a single /api/embed call.
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	body, err := json.Marshal(embedRequest{Model: e.model, Input: texts})
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+apiPathEmbed, bytes.NewReader(body))
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		e.recordError("transport_error")
		return domain.BatchEmbeddingResult{}, fmt.Errorf("ollama request: %v: %w", err, domain.ErrEmbeddingProviderError)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		e.recordError("api_error")
		return domain.BatchEmbeddingResult{}, fmt.Errorf("ollama returned status %d: %s: %w",
			resp.StatusCode, readBody(resp.Body), domain.ErrEmbeddingProviderError)
	}

	var result embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		e.recordError("decode_error")
		return domain.BatchEmbeddingResult{}, fmt.Errorf("decode response: %v: %w", err, domain.ErrEmbeddingProviderError)
	}
	duration := time.Since(start)

	if len(result.Embeddings) != len(texts) {
		e.recordError("count_mismatch")
		return domain.BatchEmbeddingResult{}, fmt.Errorf("expected %d embeddings, got %d: %w",
			len(texts), len(result.Embeddings), domain.ErrEmbeddingProviderError)
	}
	for i, vec := range result.Embeddings {
		if len(vec) != e.dimensions {
			e.recordError("dimension_mismatch")
			return domain.BatchEmbeddingResult{}, fmt.Errorf("embedding %d has %d dimensions, want %d: %w",
				i, len(vec), e.dimensions, domain.ErrEmbeddingProviderError)
		}
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, e.model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(providerName, e.model).Observe(duration.Seconds())
	if result.PromptEvalCount > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues(providerName, e.model, "prompt").Add(float64(result.PromptEvalCount))
		metrics.EmbeddingTokensTotal.WithLabelValues(providerName, e.model, "total").Add(float64(result.PromptEvalCount))
	}

	e.logger.Debug("Embedded batch",
		zap.Int("texts", len(texts)),
		zap.Int("prompt_tokens", result.PromptEvalCount),
		zap.Duration("duration", duration),
	)

	return domain.BatchEmbeddingResult{
		Embeddings:   result.Embeddings,
		PromptTokens: result.PromptEvalCount,
		TotalTokens:  result.PromptEvalCount,
	}, nil
}

// HealthCheck verifies that Ollama is reachable and the model is pulled.
func (e *Embedder) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+apiPathTags, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama is not running: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama returned status %d", resp.StatusCode)
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return fmt.Errorf("decode tags: %w", err)
	}

	for _, m := range tags.Models {
		if m.Name == e.model || m.Model == e.model {
			return nil
		}
	}
	return fmt.Errorf("model %q not pulled (run: ollama pull %s)", e.model, e.model)
}

func (e *Embedder) recordError(errorType string) {
	metrics.EmbeddingRequestsTotal.WithLabelValues(providerName, e.model, "error").Inc()
	metrics.EmbeddingErrorsTotal.WithLabelValues(providerName, e.model, errorType).Inc()
}

func readBody(body io.Reader) string {
	b, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil {
		return fmt.Sprintf("(failed to read response body: %v)", err)
	}
	return string(b)
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Model           string      `json:"model"`
	Embeddings      [][]float32 `json:"embeddings"`
	PromptEvalCount int         `json:"prompt_eval_count"`
}

type tagsResponse struct {
	Models []struct {
		Name  string `json:"name"`
		Model string `json:"model"`
	} `json:"models"`
}
