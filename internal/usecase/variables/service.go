// Package variables narrows a dataset's variable catalog with a throwaway semantic index.
package variables

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aaronbrezel/mcp-census/internal/domain"
	"github.com/aaronbrezel/mcp-census/internal/domain/search/filter"
	"github.com/aaronbrezel/mcp-census/internal/domain/search/result"
	"github.com/aaronbrezel/mcp-census/internal/domain/variable"
	"github.com/aaronbrezel/mcp-census/internal/metrics"
	"github.com/aaronbrezel/mcp-census/internal/vectorindex"
)

// DefaultTopK is the number of variables kept when the caller does not say.
const DefaultTopK = 10

const indexName = "variables"

// Request selects a dataset's variables, optionally narrowed by a query.
type Request struct {
	Year    string
	Dataset string
	Query   string
	TopK    int
}

// Service builds an index per call; nothing is shared between calls except
// the embedders.
type Service struct {
	fetcher     CatalogFetcher
	documents   domain.Embedder
	queries     domain.Embedder
	identity    domain.EmbedderIdentity
	defaultTopK int
	logger      *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithDefaultTopK overrides DefaultTopK. Values below 1 are ignored.
func WithDefaultTopK(k int) Option {
	return func(s *Service) {
		if k > 0 {
			s.defaultTopK = k
		}
	}
}

// New creates a variable search service.
func New(
	fetcher CatalogFetcher, documents, queries domain.Embedder, identity domain.EmbedderIdentity,
	logger *zap.Logger, opts ...Option,
) *Service {
	s := &Service{
		fetcher:     fetcher,
		documents:   documents,
		queries:     queries,
		identity:    identity,
		defaultTopK: DefaultTopK,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Fetch returns the dataset's variable catalog, narrowed to the topK
// variables most similar to req.Query when a query is given.
func (s *Service) Fetch(ctx context.Context, req Request) (variable.Response, error) {
	if req.Year == "" || req.Dataset == "" {
		return variable.Response{}, fmt.Errorf("%w: year and dataset are required", domain.ErrInvalidArgument)
	}

	resp, err := s.fetcher.FetchVariables(ctx, req.Year, req.Dataset)
	if err != nil {
		return variable.Response{}, fmt.Errorf("fetch variables: %w", err)
	}
	if req.Query == "" {
		return resp, nil
	}

	subset, err := s.Search(ctx, resp.Variables, req.Query, req.TopK)
	if err != nil {
		return variable.Response{}, err
	}
	return variable.Response{Variables: subset}, nil
}

// Search returns the topK variables of catalog most similar to query, with
// definitions byte-identical to the input. topK <= 0 means the default.
func (s *Service) Search(
	ctx context.Context, catalog variable.Catalog, query string, topK int,
) (variable.Catalog, error) {
	if len(catalog) == 0 {
		return variable.Catalog{}, nil
	}
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", domain.ErrInvalidArgument)
	}
	if topK <= 0 {
		topK = s.defaultTopK
	}

	start := time.Now()

	idx, err := vectorindex.Build(ctx, s.documents, s.identity, catalog.Documents())
	if err != nil {
		return nil, fmt.Errorf("build variable index: %w", err)
	}

	emb, err := s.queries.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := idx.Search(emb.Embedding, topK, filter.Expression{})
	if err != nil {
		return nil, fmt.Errorf("search variables: %w", err)
	}

	subset, err := variable.FromDocuments(result.Documents(results))
	if err != nil {
		return nil, fmt.Errorf("reshape variables: %w", err)
	}

	metrics.IndexSearchDuration.WithLabelValues(indexName).Observe(time.Since(start).Seconds())
	s.logger.Debug("Variable search completed",
		zap.Int("variables", len(catalog)),
		zap.Int("top_k", topK),
		zap.Int("results", len(subset)),
		zap.Duration("duration", time.Since(start)),
	)
	return subset, nil
}
