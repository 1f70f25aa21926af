// Package datasets owns the persistent semantic index over the Census dataset catalog.
package datasets

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/aaronbrezel/mcp-census/internal/domain"
	"github.com/aaronbrezel/mcp-census/internal/domain/dataset"
	"github.com/aaronbrezel/mcp-census/internal/domain/search/filter"
	"github.com/aaronbrezel/mcp-census/internal/domain/search/result"
	"github.com/aaronbrezel/mcp-census/internal/metrics"
	"github.com/aaronbrezel/mcp-census/internal/repository/snapshot"
	"github.com/aaronbrezel/mcp-census/internal/vectorindex"
)

// DefaultK is the number of datasets returned when the caller does not say.
const DefaultK = 5

const indexName = "datasets"

// Index sources, used in Stats and metrics.
const (
	SourceSnapshot = "snapshot"
	SourceBuild    = "build"
	SourceRebuild  = "rebuild"
)

// Query is a dataset search with optional exact-match filters.
type Query struct {
	Text       string
	K          int
	Vintage    *int
	Key        string
	APIBaseURL string
}

// Filter converts the optional fields into a conjunctive filter.
// A zero vintage is treated as absent.
func (q Query) Filter() (filter.Expression, error) {
	m := map[string]string{}
	if q.Vintage != nil && *q.Vintage != 0 {
		m[dataset.FieldVintage] = strconv.Itoa(*q.Vintage)
	}
	if q.Key != "" {
		m[dataset.FieldKey] = q.Key
	}
	if q.APIBaseURL != "" {
		m[dataset.FieldAPIBaseURL] = q.APIBaseURL
	}
	f, err := filter.FromMap(m)
	if err != nil {
		return filter.Expression{}, fmt.Errorf("%w: %w", domain.ErrInvalidArgument, err)
	}
	return f, nil
}

// BuildStats describes a freshly built index.
type BuildStats struct {
	Documents int
	Duration  time.Duration
	Location  string
}

// Stats describes the published index.
type Stats struct {
	Ready     bool
	Documents int
	Source    string
	BuiltAt   time.Time
	Location  string
	Identity  domain.EmbedderIdentity
}

type published struct {
	index   *vectorindex.Index
	source  string
	builtAt time.Time
}

// Service loads or builds the dataset index at most once per process and
// serves lock-free searches against it.
type Service struct {
	catalog   CatalogFetcher
	store     SnapshotStore
	documents domain.Embedder
	queries   domain.Embedder
	identity  domain.EmbedderIdentity
	logger    *zap.Logger

	rebuildOnCorrupt bool
	now              func() time.Time

	mu      sync.Mutex
	current atomic.Pointer[published]
}

// Option configures a Service.
type Option func(*Service)

// WithRebuildOnCorrupt treats an undecodable snapshot like a missing one.
func WithRebuildOnCorrupt(enabled bool) Option {
	return func(s *Service) { s.rebuildOnCorrupt = enabled }
}

// WithClock overrides the time source used for snapshot timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a dataset index service. documents embeds catalog entries at
// build time and queries embeds search text; both must produce vectors in the
// space named by identity.
func New(
	catalog CatalogFetcher, store SnapshotStore,
	documents, queries domain.Embedder, identity domain.EmbedderIdentity,
	logger *zap.Logger, opts ...Option,
) *Service {
	s := &Service{
		catalog:   catalog,
		store:     store,
		documents: documents,
		queries:   queries,
		identity:  identity,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ready reports whether an index has been published.
func (s *Service) Ready() bool { return s.current.Load() != nil }

// Stats describes the published index.
func (s *Service) Stats() Stats {
	st := Stats{Location: s.store.Location(), Identity: s.identity}
	if p := s.current.Load(); p != nil {
		st.Ready = true
		st.Documents = p.index.Len()
		st.Source = p.source
		st.BuiltAt = p.builtAt
	}
	return st
}

// Ensure loads the persisted index, or builds and persists one when none
// exists. Concurrent callers wait for the same attempt. Failures are not
// remembered and the next call retries.
func (s *Service) Ensure(ctx context.Context) (*vectorindex.Index, error) {
	if p := s.current.Load(); p != nil {
		return p.index, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if p := s.current.Load(); p != nil {
		return p.index, nil
	}

	idx, builtAt, err := s.load(ctx)
	switch {
	case err == nil:
		s.publish(idx, SourceSnapshot, builtAt)
		return idx, nil
	case errors.Is(err, snapshot.ErrSnapshotNotFound):
		s.logger.Info("No saved dataset index found, building one",
			zap.String("location", s.store.Location()),
		)
	case errors.Is(err, domain.ErrCorruptIndex) && s.rebuildOnCorrupt:
		s.logger.Warn("Saved dataset index is corrupt, rebuilding",
			zap.String("location", s.store.Location()),
			zap.Error(err),
		)
	default:
		metrics.IndexLoadsTotal.WithLabelValues(indexName, SourceSnapshot, "error").Inc()
		return nil, err
	}

	idx, _, err = s.build(ctx, SourceBuild)
	if err != nil {
		return nil, err
	}
	return idx, nil
}

// Search returns the content of the k most similar datasets matching f.
func (s *Service) Search(ctx context.Context, query string, k int, f filter.Expression) ([]string, error) {
	results, err := s.search(ctx, query, k, f)
	if err != nil {
		return nil, err
	}
	return result.Contents(results), nil
}

// SearchDatasets runs a dataset search built from q. K defaults to DefaultK.
func (s *Service) SearchDatasets(ctx context.Context, q Query) ([]result.Result, error) {
	if q.K == 0 {
		q.K = DefaultK
	}
	f, err := q.Filter()
	if err != nil {
		return nil, err
	}
	return s.search(ctx, q.Text, q.K, f)
}

// Rebuild re-ingests the catalog, builds a fresh index, overwrites the
// snapshot and then swaps it in. Searches keep using the previous index until
// the swap.
func (s *Service) Rebuild(ctx context.Context) (BuildStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, stats, err := s.build(ctx, SourceRebuild)
	if err != nil {
		return BuildStats{}, err
	}
	return stats, nil
}

func (s *Service) search(ctx context.Context, query string, k int, f filter.Expression) ([]result.Result, error) {
	if k < 1 {
		return nil, fmt.Errorf("%w: k must be at least 1, got %d", domain.ErrInvalidArgument, k)
	}
	if query == "" {
		return nil, fmt.Errorf("%w: query is required", domain.ErrInvalidArgument)
	}

	idx, err := s.Ensure(ctx)
	if err != nil {
		return nil, fmt.Errorf("ensure index: %w", err)
	}

	start := time.Now()
	emb, err := s.queries.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := idx.Search(emb.Embedding, k, f)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	metrics.IndexSearchDuration.WithLabelValues(indexName).Observe(time.Since(start).Seconds())

	s.logger.Debug("Dataset search completed",
		zap.Int("k", k),
		zap.Int("filters", len(f.Must())),
		zap.Int("results", len(results)),
	)
	return results, nil
}

// load reads the snapshot and checks that it was built in this embedding space.
func (s *Service) load(ctx context.Context) (*vectorindex.Index, time.Time, error) {
	snap, err := s.store.Load(ctx)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("load snapshot: %w", err)
	}
	if snap.Identity != s.identity {
		return nil, time.Time{}, &domain.StaleIndexError{Persisted: snap.Identity, Current: s.identity}
	}
	idx, err := snap.Index()
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("restore snapshot: %w", err)
	}

	metrics.IndexLoadsTotal.WithLabelValues(indexName, SourceSnapshot, "success").Inc()
	s.logger.Info("Loaded dataset index",
		zap.String("location", s.store.Location()),
		zap.Int("documents", idx.Len()),
		zap.Time("built_at", snap.CreatedAt),
	)
	return idx, snap.CreatedAt, nil
}

// build fetches, embeds, persists and publishes a new index. The caller holds s.mu.
// Nothing is published unless the snapshot was saved.
func (s *Service) build(ctx context.Context, source string) (*vectorindex.Index, BuildStats, error) {
	start := time.Now()

	fail := func(err error) (*vectorindex.Index, BuildStats, error) {
		metrics.IndexLoadsTotal.WithLabelValues(indexName, source, "error").Inc()
		s.logger.Error("Dataset index build failed", zap.String("source", source), zap.Error(err))
		return nil, BuildStats{}, err
	}

	catalog, err := s.catalog.FetchCatalog(ctx)
	if err != nil {
		return fail(fmt.Errorf("ingest catalog: %w", err))
	}

	docs := catalog.Documents()
	s.logger.Info("Embedding dataset catalog", zap.Int("documents", len(docs)))

	idx, err := vectorindex.Build(ctx, s.documents, s.identity, docs)
	if err != nil {
		return fail(fmt.Errorf("build index: %w", err))
	}

	now := s.now()
	if err := s.store.Save(ctx, snapshot.FromIndex(idx, now)); err != nil {
		return fail(fmt.Errorf("persist index: %w", err))
	}

	s.publish(idx, source, now.UTC())
	metrics.IndexLoadsTotal.WithLabelValues(indexName, source, "success").Inc()

	stats := BuildStats{
		Documents: idx.Len(),
		Duration:  time.Since(start),
		Location:  s.store.Location(),
	}
	s.logger.Info("Dataset index built",
		zap.String("source", source),
		zap.String("location", stats.Location),
		zap.Int("documents", stats.Documents),
		zap.Duration("duration", stats.Duration),
	)
	return idx, stats, nil
}

func (s *Service) publish(idx *vectorindex.Index, source string, builtAt time.Time) {
	s.current.Store(&published{index: idx, source: source, builtAt: builtAt})
	metrics.IndexDocuments.WithLabelValues(indexName).Set(float64(idx.Len()))
}
