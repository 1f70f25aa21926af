package mcp

import (
	"context"
	"encoding/json"

	"github.com/aaronbrezel/mcp-census/internal/domain"
	"github.com/aaronbrezel/mcp-census/internal/domain/geography"
	"github.com/aaronbrezel/mcp-census/internal/domain/search/result"
	"github.com/aaronbrezel/mcp-census/internal/domain/variable"
	"github.com/aaronbrezel/mcp-census/internal/usecase/datasets"
	geographyuc "github.com/aaronbrezel/mcp-census/internal/usecase/geography"
	"github.com/aaronbrezel/mcp-census/internal/usecase/variables"
)

// mockDatasets is a mock implementation of DatasetSearcher and IndexStats.
type mockDatasets struct {
	results []result.Result
	err     error
	got     datasets.Query
	stats   datasets.Stats
}

func (m *mockDatasets) SearchDatasets(ctx context.Context, q datasets.Query) ([]result.Result, error) {
	m.got = q
	if m.err != nil {
		return nil, m.err
	}
	domain.UsageFromContext(ctx).Add(1, 4)
	return m.results, nil
}

func (m *mockDatasets) Stats() datasets.Stats { return m.stats }

// mockVariables is a mock implementation of VariableFetcher.
type mockVariables struct {
	resp variable.Response
	err  error
	got  variables.Request
}

func (m *mockVariables) Fetch(_ context.Context, req variables.Request) (variable.Response, error) {
	m.got = req
	return m.resp, m.err
}

// mockGeography is a mock implementation of GeographyService.
type mockGeography struct {
	err error

	geographies geography.Response
	examples    json.RawMessage
	parents     []string
	table       geography.Table
	codes       map[string]string

	gotDataset   geographyuc.Dataset
	gotGeo       string
	gotName      string
	gotVariables []string
	gotTargets   []geography.Predicate
	gotIn        []geography.Predicate
}

func (m *mockGeography) Geographies(_ context.Context, ds geographyuc.Dataset) (geography.Response, error) {
	m.gotDataset = ds
	return m.geographies, m.err
}

func (m *mockGeography) Examples(_ context.Context, ds geographyuc.Dataset) (json.RawMessage, error) {
	m.gotDataset = ds
	return m.examples, m.err
}

func (m *mockGeography) RequiredParents(_ context.Context, ds geographyuc.Dataset, name string) ([]string, error) {
	m.gotDataset = ds
	m.gotGeo = name
	return m.parents, m.err
}

func (m *mockGeography) FIPS(
	_ context.Context, ds geographyuc.Dataset, geo string, in []geography.Predicate,
) (geography.Table, error) {
	m.gotDataset = ds
	m.gotGeo = geo
	m.gotIn = in
	return m.table, m.err
}

func (m *mockGeography) Lookup(
	_ context.Context, name string, ds geographyuc.Dataset, geo string, in []geography.Predicate,
) (map[string]string, error) {
	m.gotName = name
	m.gotDataset = ds
	m.gotGeo = geo
	m.gotIn = in
	return m.codes, m.err
}

func (m *mockGeography) Data(
	_ context.Context, ds geographyuc.Dataset, vars []string, targets, in []geography.Predicate,
) (geography.Table, error) {
	m.gotDataset = ds
	m.gotVariables = vars
	m.gotTargets = targets
	m.gotIn = in
	return m.table, m.err
}
