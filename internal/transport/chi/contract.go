package chi

import (
	"context"
	"encoding/json"

	"github.com/aaronbrezel/mcp-census/internal/domain/geography"
	"github.com/aaronbrezel/mcp-census/internal/domain/search/result"
	"github.com/aaronbrezel/mcp-census/internal/domain/variable"
	"github.com/aaronbrezel/mcp-census/internal/usecase/datasets"
	geographyuc "github.com/aaronbrezel/mcp-census/internal/usecase/geography"
	healthuc "github.com/aaronbrezel/mcp-census/internal/usecase/health"
	"github.com/aaronbrezel/mcp-census/internal/usecase/variables"
)

// DatasetIndex searches and rebuilds the dataset index.
type DatasetIndex interface {
	SearchDatasets(ctx context.Context, q datasets.Query) ([]result.Result, error)
	Rebuild(ctx context.Context) (datasets.BuildStats, error)
}

// VariableFetcher returns a dataset's variables, optionally narrowed by a query.
type VariableFetcher interface {
	Fetch(ctx context.Context, req variables.Request) (variable.Response, error)
}

// GeographyService wraps the Census geography, FIPS and data endpoints.
type GeographyService interface {
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

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}
