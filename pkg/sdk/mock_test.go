package censusdex

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/aaronbrezel/mcp-census/internal/domain/geography"
	"github.com/aaronbrezel/mcp-census/internal/domain/search/result"
	"github.com/aaronbrezel/mcp-census/internal/domain/variable"
	datasetsuc "github.com/aaronbrezel/mcp-census/internal/usecase/datasets"
	geographyuc "github.com/aaronbrezel/mcp-census/internal/usecase/geography"
	variablesuc "github.com/aaronbrezel/mcp-census/internal/usecase/variables"
)

// --- datasetUseCase mock ---

type mockDatasetUC struct {
	searchFn  func(ctx context.Context, q datasetsuc.Query) ([]result.Result, error)
	rebuildFn func(ctx context.Context) (datasetsuc.BuildStats, error)
	stats     datasetsuc.Stats
}

func (m *mockDatasetUC) SearchDatasets(ctx context.Context, q datasetsuc.Query) ([]result.Result, error) {
	return m.searchFn(ctx, q)
}

func (m *mockDatasetUC) Rebuild(ctx context.Context) (datasetsuc.BuildStats, error) {
	return m.rebuildFn(ctx)
}

func (m *mockDatasetUC) Stats() datasetsuc.Stats { return m.stats }

// --- variableUseCase mock ---

type mockVariableUC struct {
	fetchFn func(ctx context.Context, req variablesuc.Request) (variable.Response, error)
}

func (m *mockVariableUC) Fetch(ctx context.Context, req variablesuc.Request) (variable.Response, error) {
	return m.fetchFn(ctx, req)
}

// --- geographyUseCase mock ---

type mockGeographyUC struct {
	geographiesFn func(ctx context.Context, ds geographyuc.Dataset) (geography.Response, error)
	examplesFn    func(ctx context.Context, ds geographyuc.Dataset) (json.RawMessage, error)
	parentsFn     func(ctx context.Context, ds geographyuc.Dataset, name string) ([]string, error)
	fipsFn        func(
		ctx context.Context, ds geographyuc.Dataset, geo string, in []geography.Predicate,
	) (geography.Table, error)
	lookupFn func(
		ctx context.Context, name string, ds geographyuc.Dataset, geo string, in []geography.Predicate,
	) (map[string]string, error)
	dataFn func(
		ctx context.Context, ds geographyuc.Dataset, variables []string, targets, in []geography.Predicate,
	) (geography.Table, error)
}

func (m *mockGeographyUC) Geographies(ctx context.Context, ds geographyuc.Dataset) (geography.Response, error) {
	return m.geographiesFn(ctx, ds)
}

func (m *mockGeographyUC) Examples(ctx context.Context, ds geographyuc.Dataset) (json.RawMessage, error) {
	return m.examplesFn(ctx, ds)
}

func (m *mockGeographyUC) RequiredParents(ctx context.Context, ds geographyuc.Dataset, name string) ([]string, error) {
	return m.parentsFn(ctx, ds, name)
}

func (m *mockGeographyUC) FIPS(
	ctx context.Context, ds geographyuc.Dataset, geo string, in []geography.Predicate,
) (geography.Table, error) {
	return m.fipsFn(ctx, ds, geo, in)
}

func (m *mockGeographyUC) Lookup(
	ctx context.Context, name string, ds geographyuc.Dataset, geo string, in []geography.Predicate,
) (map[string]string, error) {
	return m.lookupFn(ctx, name, ds, geo, in)
}

func (m *mockGeographyUC) Data(
	ctx context.Context, ds geographyuc.Dataset, variables []string, targets, in []geography.Predicate,
) (geography.Table, error) {
	return m.dataFn(ctx, ds, variables, targets, in)
}

// --- Embedder mocks ---

type mockEmbedder struct {
	fn func(ctx context.Context, text string) (EmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (EmbeddingResult, error) {
	return m.fn(ctx, text)
}

type mockBatchEmbedder struct {
	mockEmbedder
	batchFn func(ctx context.Context, texts []string) (BatchEmbeddingResult, error)
}

func (m *mockBatchEmbedder) BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error) {
	return m.batchFn(ctx, texts)
}

// keywordEmbedder places texts on one axis per keyword they mention.
type keywordEmbedder struct {
	keywords []string
}

func (k *keywordEmbedder) info() EmbedderInfo {
	return EmbedderInfo{Provider: "test", Model: "keywords", Dimensions: len(k.keywords) + 1}
}

func (k *keywordEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	text = strings.ToLower(text)
	vec := make([]float32, len(k.keywords)+1)
	for i, kw := range k.keywords {
		if strings.Contains(text, kw) {
			vec[i] = 1
		}
	}
	vec[len(k.keywords)] = 0.01
	return EmbeddingResult{Embedding: vec, PromptTokens: 1, TotalTokens: 1}, nil
}
