package censusdex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/aaronbrezel/mcp-census/internal/db"
	dbRedis "github.com/aaronbrezel/mcp-census/internal/db/redis"
	"github.com/aaronbrezel/mcp-census/internal/domain"
	"github.com/aaronbrezel/mcp-census/internal/domain/geography"
	"github.com/aaronbrezel/mcp-census/internal/domain/search/result"
	"github.com/aaronbrezel/mcp-census/internal/domain/variable"
	"github.com/aaronbrezel/mcp-census/internal/repository/snapshot"
	"github.com/aaronbrezel/mcp-census/internal/transport/census"
	ollamaEmb "github.com/aaronbrezel/mcp-census/internal/transport/ollama"
	openaiEmb "github.com/aaronbrezel/mcp-census/internal/transport/openai"
	datasetsuc "github.com/aaronbrezel/mcp-census/internal/usecase/datasets"
	embeddinguc "github.com/aaronbrezel/mcp-census/internal/usecase/embedding"
	geographyuc "github.com/aaronbrezel/mcp-census/internal/usecase/geography"
	healthuc "github.com/aaronbrezel/mcp-census/internal/usecase/health"
	variablesuc "github.com/aaronbrezel/mcp-census/internal/usecase/variables"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultIndexDir         = "census_datasets_index"
	defaultKeyPrefix        = "censusdex:"
	indexRedisKey           = "index:datasets"
)

// Internal interfaces for substitution in tests.
type datasetUseCase interface {
	SearchDatasets(ctx context.Context, q datasetsuc.Query) ([]result.Result, error)
	Rebuild(ctx context.Context) (datasetsuc.BuildStats, error)
	Stats() datasetsuc.Stats
}

type variableUseCase interface {
	Fetch(ctx context.Context, req variablesuc.Request) (variable.Response, error)
}

type geographyUseCase interface {
	Geographies(ctx context.Context, ds geographyuc.Dataset) (geography.Response, error)
	Examples(ctx context.Context, ds geographyuc.Dataset) (json.RawMessage, error)
	RequiredParents(ctx context.Context, ds geographyuc.Dataset, name string) ([]string, error)
	FIPS(ctx context.Context, ds geographyuc.Dataset, geo string, in []geography.Predicate) (geography.Table, error)
	Lookup(
		ctx context.Context, name string, ds geographyuc.Dataset, geo string, in []geography.Predicate,
	) (map[string]string, error)
	Data(
		ctx context.Context, ds geographyuc.Dataset, variables []string, targets, in []geography.Predicate,
	) (geography.Table, error)
}

// Client is the censusdex SDK entry point.
type Client struct {
	store     db.Store // nil unless the index lives in Redis
	datasets  datasetUseCase
	variables variableUseCase
	geography geographyUseCase
	healthSvc healthUseCase
	obs       *observer
}

// New creates a Client. An embedder is required (WithOllama, WithOpenAI or
// WithEmbedder). The provided context is used for the Redis readiness check;
// the dataset index itself is loaded lazily on the first search.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		indexDir:  defaultIndexDir,
		keyPrefix: defaultKeyPrefix,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	embedder, err := createEmbedder(cfg)
	if err != nil {
		return nil, err
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	var store db.Store
	if cfg.redisAddr != "" {
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    []string{cfg.redisAddr},
			Password: cfg.redisPassword,
		})
		if err != nil {
			return nil, fmt.Errorf("censusdex: create redis store: %w", err)
		}
		if err := s.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			s.Close()
			return nil, fmt.Errorf("censusdex: database not ready: %w", err)
		}
		store = s
	}

	return wireClient(cfg, embedder, store, obs), nil
}

func createEmbedder(cfg *clientConfig) (domain.Embedder, error) {
	if cfg.embedder == nil && cfg.provider == "" {
		return nil, errors.New("censusdex: embedder required (use WithOllama, WithOpenAI or WithEmbedder)")
	}
	info := cfg.embedderInfo
	if info.Dimensions <= 0 {
		return nil, fmt.Errorf("censusdex: embedder dimensions must be positive, got %d", info.Dimensions)
	}

	switch {
	case cfg.embedder != nil:
		return &embedderAdapter{inner: cfg.embedder}, nil
	case cfg.provider == providerOllama:
		opts := []ollamaEmb.Option{ollamaEmb.WithModel(info.Model), ollamaEmb.WithDimensions(info.Dimensions)}
		if cfg.providerURL != "" {
			opts = append(opts, ollamaEmb.WithBaseURL(cfg.providerURL))
		}
		return ollamaEmb.NewEmbedder(opts...), nil
	case cfg.provider == providerOpenAI:
		return openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     cfg.providerKey,
			BaseURL:    cfg.providerURL,
			Model:      info.Model,
			Dimensions: info.Dimensions,
			Provider:   providerOpenAI,
		}), nil
	default:
		return nil, fmt.Errorf("censusdex: unknown provider %q", cfg.provider)
	}
}

func wireClient(cfg *clientConfig, provider domain.Embedder, store db.Store, obs *observer) *Client {
	logger := zap.NewNop()
	info := cfg.embedderInfo
	identity := domain.EmbedderIdentity{
		Provider:            info.Provider,
		Model:               info.Model,
		Dimensions:          info.Dimensions,
		DocumentInstruction: cfg.instruction,
	}

	var embedOpts []embeddinguc.Option
	if cfg.maxBatch > 0 {
		embedOpts = append(embedOpts, embeddinguc.WithMaxBatchSize(cfg.maxBatch))
	}
	var queries domain.Embedder = embeddinguc.NewInstrumentedEmbedder(provider, info.Provider, info.Model, logger, embedOpts...)
	documents := queries
	if cfg.instruction != "" {
		documents = domain.NewInstructionEmbedder(queries, cfg.instruction)
	}

	clientOpts := []census.ClientOption{census.WithAPIKey(cfg.apiKey), census.WithLogger(logger)}
	if cfg.baseURL != "" {
		clientOpts = append(clientOpts, census.WithBaseURL(cfg.baseURL))
	}
	if cfg.catalogURL != "" {
		clientOpts = append(clientOpts, census.WithCatalogURL(cfg.catalogURL))
	}
	if cfg.rateLimit != nil {
		clientOpts = append(clientOpts, census.WithRateLimit(*cfg.rateLimit))
	}
	if cfg.httpClient != nil {
		clientOpts = append(clientOpts, census.WithHTTPClient(cfg.httpClient))
	}
	client := census.NewClient(clientOpts...)

	var snapshots datasetsuc.SnapshotStore = snapshot.NewFileStore(cfg.indexDir)
	if store != nil {
		snapshots = snapshot.NewRedisStore(store, cfg.keyPrefix+indexRedisKey)
	}

	var varOpts []variablesuc.Option
	if cfg.defaultTopK > 0 {
		varOpts = append(varOpts, variablesuc.WithDefaultTopK(cfg.defaultTopK))
	}

	datasets := datasetsuc.New(client, snapshots, documents, queries, identity, logger)

	// nil interfaces, not typed nil pointers
	var pinger healthuc.DBPinger
	if store != nil {
		pinger = store
	}
	var checker healthuc.EmbeddingChecker
	if hc, ok := provider.(domain.HealthChecker); ok {
		checker = hc
	}

	return &Client{
		store:     store,
		datasets:  datasets,
		variables: variablesuc.New(client, documents, queries, identity, logger, varOpts...),
		geography: geographyuc.New(client, logger),
		healthSvc: healthuc.New(pinger, checker, datasets),
		obs:       obs,
	}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Datasets returns the dataset search service.
func (c *Client) Datasets() *DatasetService {
	return &DatasetService{svc: c.datasets, obs: c.obs}
}

// Variables returns the variable search service.
func (c *Client) Variables() *VariableService {
	return &VariableService{svc: c.variables, obs: c.obs}
}

// Geography returns the geography, FIPS and data service.
func (c *Client) Geography() *GeographyService {
	return &GeographyService{svc: c.geography, obs: c.obs}
}

// embedderAdapter wraps public Embedder to satisfy internal domain.Embedder.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	r, err := a.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("%w: %w", domain.ErrEmbeddingProviderError, err)
	}
	return domain.EmbeddingResult{
		Embedding:    r.Embedding,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}

// BatchEmbed uses the inner BatchEmbedder when there is one.
func (a *embedderAdapter) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	be, ok := a.inner.(BatchEmbedder)
	if !ok {
		return domain.BatchFallback(ctx, a, texts)
	}
	r, err := be.BatchEmbed(ctx, texts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("%w: %w", domain.ErrEmbeddingProviderError, err)
	}
	if len(r.Embeddings) != len(texts) {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("%w: got %d embeddings for %d texts",
			domain.ErrEmbeddingProviderError, len(r.Embeddings), len(texts))
	}
	return domain.BatchEmbeddingResult{
		Embeddings:   r.Embeddings,
		PromptTokens: r.PromptTokens,
		TotalTokens:  r.TotalTokens,
	}, nil
}
