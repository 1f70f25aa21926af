// Package mcp exposes the Census tools to agents over the Model Context Protocol.
package mcp

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/aaronbrezel/mcp-census/internal/domain/geography"
	"github.com/aaronbrezel/mcp-census/internal/domain/search/result"
	"github.com/aaronbrezel/mcp-census/internal/domain/variable"
	"github.com/aaronbrezel/mcp-census/internal/usecase/datasets"
	geographyuc "github.com/aaronbrezel/mcp-census/internal/usecase/geography"
	"github.com/aaronbrezel/mcp-census/internal/usecase/variables"
)

// Errors returned by Ports.Validate.
var (
	ErrMissingDatasets  = errors.New("mcp: dataset search is required")
	ErrMissingVariables = errors.New("mcp: variable service is required")
	ErrMissingGeography = errors.New("mcp: geography service is required")
)

// DatasetSearcher searches the dataset index.
type DatasetSearcher interface {
	SearchDatasets(ctx context.Context, q datasets.Query) ([]result.Result, error)
}

// IndexStats describes the published dataset index.
type IndexStats interface {
	Stats() datasets.Stats
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

// Ports aggregates the services the MCP server calls.
type Ports struct {
	Datasets  DatasetSearcher
	Variables VariableFetcher
	Geography GeographyService

	// Index is optional. When set, index stats are published as a resource.
	Index IndexStats
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	switch {
	case p.Datasets == nil:
		return ErrMissingDatasets
	case p.Variables == nil:
		return ErrMissingVariables
	case p.Geography == nil:
		return ErrMissingGeography
	}
	return nil
}
