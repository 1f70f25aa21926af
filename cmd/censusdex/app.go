package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/aaronbrezel/mcp-census/internal/config"
	"github.com/aaronbrezel/mcp-census/internal/db"
	dbRedis "github.com/aaronbrezel/mcp-census/internal/db/redis"
	"github.com/aaronbrezel/mcp-census/internal/domain"
	logpkg "github.com/aaronbrezel/mcp-census/internal/logger"
	"github.com/aaronbrezel/mcp-census/internal/metrics"
	"github.com/aaronbrezel/mcp-census/internal/repository/embcache"
	"github.com/aaronbrezel/mcp-census/internal/repository/snapshot"
	"github.com/aaronbrezel/mcp-census/internal/transport/census"
	ollamaEmb "github.com/aaronbrezel/mcp-census/internal/transport/ollama"
	openaiEmb "github.com/aaronbrezel/mcp-census/internal/transport/openai"
	datasetsuc "github.com/aaronbrezel/mcp-census/internal/usecase/datasets"
	embeddinguc "github.com/aaronbrezel/mcp-census/internal/usecase/embedding"
	geographyuc "github.com/aaronbrezel/mcp-census/internal/usecase/geography"
	healthuc "github.com/aaronbrezel/mcp-census/internal/usecase/health"
	variablesuc "github.com/aaronbrezel/mcp-census/internal/usecase/variables"
	"github.com/aaronbrezel/mcp-census/internal/version"
)

// app is the composition root shared by every command.
type app struct {
	env    string
	cfg    config.Config
	logger *zap.Logger
	store  db.Store // nil unless cache or snapshot store use Redis

	datasets  *datasetsuc.Service
	variables *variablesuc.Service
	geography *geographyuc.Service
	health    *healthuc.Service
}

// newApp loads configuration and wires every service.
func newApp(ctx context.Context) (*app, error) {
	env := resolveEnv()

	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	logger.Info("Starting censusdex",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("embedding_model", cfg.Embedding.Model),
		zap.String("index_store", cfg.Index.Store),
	)

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterIndexMetrics()

	a := &app{env: env, cfg: cfg, logger: logger}

	if cfg.UsesRedis() {
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("create database store: %w", err)
		}
		a.store = store

		timeout := time.Duration(cfg.Database.ReadinessTimeout) * time.Second
		if err := store.WaitForReady(ctx, timeout); err != nil {
			store.Close()
			return nil, fmt.Errorf("database not ready: %w", err)
		}
		logger.Info("Connected to database", zap.Strings("addrs", cfg.Database.Addrs))
	}

	provider, identity, err := buildProvider(cfg.Embedding, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	documents, queries := a.buildEmbedders(provider, identity)
	identity.DocumentInstruction = cfg.Embedding.DocumentInstruction

	client := census.NewClient(
		census.WithAPIKey(cfg.Census.APIKey),
		census.WithBaseURL(cfg.Census.BaseURL),
		census.WithCatalogURL(cfg.Census.CatalogURL),
		census.WithRateLimit(cfg.Census.RateLimit),
		census.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Census.TimeoutSec) * time.Second}),
		census.WithLogger(logger),
	)
	if cfg.Census.APIKey == "" {
		logger.Warn("No Census API key configured; data requests are subject to anonymous rate limits")
	}

	a.datasets = datasetsuc.New(client, a.snapshotStore(), documents, queries, identity, logger,
		datasetsuc.WithRebuildOnCorrupt(cfg.Index.RebuildOnCorrupt),
	)
	a.variables = variablesuc.New(client, documents, queries, identity, logger,
		variablesuc.WithDefaultTopK(cfg.Variables.DefaultTopK),
	)
	a.geography = geographyuc.New(client, logger)

	// Pass nil interfaces, not typed nil pointers, for absent components.
	var pinger healthuc.DBPinger
	if a.store != nil {
		pinger = a.store
	}
	a.health = healthuc.New(pinger, newEmbeddingHealthChecker(provider), a.datasets)

	logger.Info("Services ready",
		zap.String("embedding", identity.String()),
		zap.String("index_location", a.datasets.Stats().Location),
	)
	return a, nil
}

// Close releases the database connection and flushes the logger.
func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
	_ = a.logger.Sync()
}

// warm loads or builds the dataset index in the background when configured.
func (a *app) warm(ctx context.Context) {
	if !a.cfg.Index.WarmOnStart {
		return
	}
	go func() {
		start := time.Now()
		if _, err := a.datasets.Ensure(ctx); err != nil {
			a.logger.Warn("Dataset index warm-up failed; it will be retried on first search", zap.Error(err))
			return
		}
		st := a.datasets.Stats()
		a.logger.Info("Dataset index warm",
			zap.String("source", st.Source),
			zap.Int("documents", st.Documents),
			zap.Duration("duration", time.Since(start)),
		)
	}()
}

func (a *app) snapshotStore() datasetsuc.SnapshotStore {
	if a.cfg.Index.Store == config.StoreRedis {
		return snapshot.NewRedisStore(a.store, a.cfg.Storage.KeyPrefix+a.cfg.Index.RedisKey)
	}
	return snapshot.NewFileStore(a.cfg.Index.Dir)
}

// buildEmbedders assembles the decorator chain:
// provider -> cached -> instrumented -> instruction (document / query).
func (a *app) buildEmbedders(provider domain.Embedder, identity domain.EmbedderIdentity) (documents, queries domain.Embedder) {
	cfg := a.cfg

	embedder := provider
	if cfg.Cache.Enabled {
		embedder = embcache.New(provider, a.store, identity, cfg.Storage.KeyPrefix, a.logger,
			embcache.WithTTL(time.Duration(cfg.Cache.TTLSec)*time.Second),
			embcache.WithCacheCounter(metrics.EmbeddingCacheTotal),
		)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, identity.Provider, identity.Model, a.logger,
		embeddinguc.WithMaxBatchSize(cfg.Embedding.MaxBatchSize),
		embeddinguc.WithConcurrency(cfg.Embedding.Concurrency),
	)

	// Instruction prefix is outermost so the cache key includes it
	return withInstruction(embedder, cfg.Embedding.DocumentInstruction),
		withInstruction(embedder, cfg.Embedding.QueryInstruction)
}

func withInstruction(e domain.Embedder, instruction string) domain.Embedder {
	if instruction == "" {
		return e
	}
	return domain.NewInstructionEmbedder(e, instruction)
}

// buildProvider creates the base embedding provider (with transport metrics built-in).
func buildProvider(cfg config.EmbeddingConfig, logger *zap.Logger) (domain.Embedder, domain.EmbedderIdentity, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		e := openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Provider:   cfg.Provider,
			Logger:     logger,
		})
		return e, e.Identity(), nil
	case config.ProviderOllama:
		e := ollamaEmb.NewEmbedder(
			ollamaEmb.WithBaseURL(cfg.BaseURL),
			ollamaEmb.WithModel(cfg.Model),
			ollamaEmb.WithDimensions(cfg.Dimensions),
			ollamaEmb.WithTimeout(time.Duration(cfg.TimeoutSec)*time.Second),
			ollamaEmb.WithLogger(logger),
		)
		return e, e.Identity(), nil
	default:
		return nil, domain.EmbedderIdentity{}, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}
