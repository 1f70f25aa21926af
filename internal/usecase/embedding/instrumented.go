package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aaronbrezel/mcp-census/internal/domain"
)

const (
	// DefaultMaxAPIBatchSize is the largest batch sent to the provider in one request.
	DefaultMaxAPIBatchSize = 256

	// DefaultConcurrency bounds the number of sub-batches in flight.
	DefaultConcurrency = 4
)

// InstrumentedEmbedder wraps Embedder with chunking, logging and per-call usage recording.
// Transport metrics (requests, duration, tokens) are recorded by the provider.
type InstrumentedEmbedder struct {
	inner       domain.Embedder
	provider    string
	model       string
	batchSize   int
	concurrency int
	logger      *zap.Logger
}

// Option configures an InstrumentedEmbedder.
type Option func(*InstrumentedEmbedder)

// WithMaxBatchSize sets the sub-batch size. Values below 1 are ignored.
func WithMaxBatchSize(n int) Option {
	return func(p *InstrumentedEmbedder) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithConcurrency sets how many sub-batches may be embedded at once. Values below 1 are ignored.
func WithConcurrency(n int) Option {
	return func(p *InstrumentedEmbedder) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// NewInstrumentedEmbedder wraps an embedder with chunking and observability.
func NewInstrumentedEmbedder(
	inner domain.Embedder, provider, model string, logger *zap.Logger, opts ...Option,
) *InstrumentedEmbedder {
	p := &InstrumentedEmbedder{
		inner:       inner,
		provider:    provider,
		model:       model,
		batchSize:   DefaultMaxAPIBatchSize,
		concurrency: DefaultConcurrency,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Embed delegates to the inner embedder and records usage.
func (p *InstrumentedEmbedder) Embed(
	ctx context.Context, text string,
) (domain.EmbeddingResult, error) {
	start := time.Now()

	result, err := p.inner.Embed(ctx, text)

	duration := time.Since(start)

	if err != nil {
		p.logger.Error("Embedding request failed",
			zap.String("provider", p.provider),
			zap.String("model", p.model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.EmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}

	domain.UsageFromContext(ctx).Add(1, result.TotalTokens)

	p.logger.Debug("Embedding request completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.Duration("duration", duration),
		zap.Int("dimensions", len(result.Embedding)),
		zap.Int("total_tokens", result.TotalTokens),
	)

	return result, nil
}

// BatchEmbed splits texts into sub-batches, embeds them concurrently
// and reassembles the vectors in input order.
func (p *InstrumentedEmbedder) BatchEmbed(
	ctx context.Context, texts []string,
) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	start := time.Now()

	result, err := p.embedChunked(ctx, texts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, err
	}

	duration := time.Since(start)
	domain.UsageFromContext(ctx).Add(len(texts), result.TotalTokens)

	p.logger.Debug("Batch embedding completed",
		zap.String("provider", p.provider),
		zap.String("model", p.model),
		zap.Duration("duration", duration),
		zap.Int("batch_size", len(texts)),
		zap.Int("prompt_tokens", result.PromptTokens),
		zap.Int("total_tokens", result.TotalTokens),
	)

	return result, nil
}

// HealthCheck delegates to inner when it supports health checks.
func (p *InstrumentedEmbedder) HealthCheck(ctx context.Context) error {
	if hc, ok := p.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
	}
	return nil
}

func (p *InstrumentedEmbedder) embedChunked(
	ctx context.Context, texts []string,
) (domain.BatchEmbeddingResult, error) {
	chunks := (len(texts) + p.batchSize - 1) / p.batchSize
	results := make([]domain.BatchEmbeddingResult, chunks)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i := 0; i < chunks; i++ {
		offset := i * p.batchSize
		end := min(offset+p.batchSize, len(texts))
		chunk := texts[offset:end]

		g.Go(func() error {
			res, err := domain.EmbedAll(gctx, p.inner, chunk)
			if err != nil {
				p.logger.Error("Batch embedding request failed",
					zap.String("provider", p.provider),
					zap.String("model", p.model),
					zap.Int("chunk_offset", offset),
					zap.Int("chunk_size", len(chunk)),
					zap.Error(err),
				)
				return fmt.Errorf("batch embed (chunk %d): %w", offset, err)
			}
			if len(res.Embeddings) != len(chunk) {
				return fmt.Errorf("batch embed (chunk %d): expected %d embeddings, got %d: %w",
					offset, len(chunk), len(res.Embeddings), domain.ErrEmbeddingProviderError)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.BatchEmbeddingResult{}, err //nolint:wrapcheck // wrapped in goroutine
	}

	all := domain.BatchEmbeddingResult{Embeddings: make([][]float32, 0, len(texts))}
	for _, res := range results {
		all.Embeddings = append(all.Embeddings, res.Embeddings...)
		all.PromptTokens += res.PromptTokens
		all.TotalTokens += res.TotalTokens
	}
	return all, nil
}
