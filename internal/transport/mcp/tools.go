package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/aaronbrezel/mcp-census/internal/domain"
	"github.com/aaronbrezel/mcp-census/internal/domain/geography"
	"github.com/aaronbrezel/mcp-census/internal/domain/search/result"
	"github.com/aaronbrezel/mcp-census/internal/domain/variable"
	"github.com/aaronbrezel/mcp-census/internal/usecase/datasets"
	geographyuc "github.com/aaronbrezel/mcp-census/internal/usecase/geography"
	"github.com/aaronbrezel/mcp-census/internal/usecase/variables"
)

// Tool names.
const (
	ToolFetchDatasets        = "fetch_datasets"
	ToolFetchGeographies     = "fetch_dataset_geographies"
	ToolFetchVariables       = "fetch_dataset_variables"
	ToolFetchExamples        = "fetch_dataset_examples"
	ToolFetchRequiredParents = "fetch_dataset_required_parent_geographies"
	ToolFetchFIPS            = "fetch_dataset_fips"
	ToolLookupFIPS           = "lookup_dataset_fips"
	ToolFetchData            = "fetch_dataset_data"
)

const parentPredicatesHint = `ordered parent geography predicates, outermost first, e.g. ["state:06", "county:001"]`

// FetchDatasetsInput is the input schema for fetch_datasets.
type FetchDatasetsInput struct {
	Query      string `json:"query" jsonschema:"description of the data you are looking for"`
	Year       string `json:"year,omitempty" jsonschema:"only return datasets of this vintage, e.g. 2020"`
	Dataset    string `json:"dataset,omitempty" jsonschema:"only return this dataset identifier, e.g. acs/acs5"`
	APIBaseURL string `json:"api_base_url,omitempty" jsonschema:"only return the dataset served at this API base URL"`
	K          int    `json:"k,omitempty" jsonschema:"number of datasets to return (default 5)"`
}

// FetchDatasetsOutput lists the matching dataset descriptions, best match first.
type FetchDatasetsOutput struct {
	Datasets []string `json:"datasets"`
}

// DatasetInput addresses one dataset vintage.
type DatasetInput struct {
	Year    string `json:"year,omitempty" jsonschema:"dataset vintage, e.g. 2020; omit for timeseries datasets"`
	Dataset string `json:"dataset" jsonschema:"dataset identifier, e.g. dec/pl"`
}

// FetchVariablesInput is the input schema for fetch_dataset_variables.
type FetchVariablesInput struct {
	Year    string `json:"year,omitempty" jsonschema:"dataset vintage, e.g. 2020; omit for timeseries datasets"`
	Dataset string `json:"dataset" jsonschema:"dataset identifier, e.g. acs/acs5"`
	Query   string `json:"query,omitempty" jsonschema:"semantic filter; only the closest variables are returned"`
	TopK    int    `json:"top_k,omitempty" jsonschema:"number of variables to return with a query (default 10)"`
}

// RequiredParentsInput is the input schema for fetch_dataset_required_parent_geographies.
type RequiredParentsInput struct {
	Year          string `json:"year,omitempty" jsonschema:"dataset vintage, e.g. 2020; omit for timeseries datasets"`
	Dataset       string `json:"dataset" jsonschema:"dataset identifier, e.g. dec/pl"`
	GeographyName string `json:"geography_name" jsonschema:"geography level, e.g. tract"`
}

// RequiredParentsOutput lists the parent geographies a level needs.
type RequiredParentsOutput struct {
	Geography string   `json:"geography"`
	Requires  []string `json:"requires"`
}

// FetchFIPSInput is the input schema for fetch_dataset_fips.
type FetchFIPSInput struct {
	Year                      string   `json:"year,omitempty" jsonschema:"dataset vintage, e.g. 2020; omit for timeseries datasets"`
	Dataset                   string   `json:"dataset" jsonschema:"dataset identifier, e.g. dec/pl"`
	Geography                 string   `json:"geography" jsonschema:"geography level to list, e.g. county"`
	RequiredParentGeographies []string `json:"required_parent_geographies,omitempty" jsonschema:"ordered parent geography predicates, outermost first, e.g. [\"state:06\"]"`
}

// LookupFIPSInput is the input schema for lookup_dataset_fips.
type LookupFIPSInput struct {
	Name                      string   `json:"name" jsonschema:"exact place name, e.g. Los Angeles County, California"`
	Year                      string   `json:"year,omitempty" jsonschema:"dataset vintage, e.g. 2020; omit for timeseries datasets"`
	Dataset                   string   `json:"dataset" jsonschema:"dataset identifier, e.g. dec/pl"`
	Geography                 string   `json:"geography" jsonschema:"geography level of the place, e.g. county"`
	RequiredParentGeographies []string `json:"required_parent_geographies,omitempty" jsonschema:"ordered parent geography predicates, outermost first, e.g. [\"state:06\"]"`
}

// LookupFIPSOutput maps each geography column to the place's code.
type LookupFIPSOutput struct {
	Name  string            `json:"name"`
	Codes map[string]string `json:"codes"`
}

// FetchDataInput is the input schema for fetch_dataset_data.
type FetchDataInput struct {
	Year              string   `json:"year,omitempty" jsonschema:"dataset vintage, e.g. 2020; omit for timeseries datasets"`
	Dataset           string   `json:"dataset" jsonschema:"dataset identifier, e.g. acs/acs5"`
	Variables         []string `json:"variables" jsonschema:"variable names to retrieve, e.g. [\"NAME\", \"B01001_001E\"]"`
	TargetGeographies []string `json:"target_geographies" jsonschema:"geographies to retrieve data for, e.g. [\"county:001,003\"] or [\"state:*\"]"`
	ParentGeographies []string `json:"parent_geographies,omitempty" jsonschema:"ordered parent geography predicates, outermost first, e.g. [\"state:06\"]"`
}

func readOnly(title string) *mcp.ToolAnnotations {
	return &mcp.ToolAnnotations{Title: title, ReadOnlyHint: true, IdempotentHint: true}
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name: ToolFetchDatasets,
		Description: "Search for relevant Census datasets using semantic search. " +
			"Start here to find datasets matching your data needs. " +
			"Optionally filter by year, dataset identifier or API base URL.",
		Annotations: readOnly("Search Census Datasets"),
	}, s.handleFetchDatasets)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolFetchGeographies,
		Description: "Discover what geographic levels (state, county, tract, etc.) are available for a dataset.",
		Annotations: readOnly("Get Available Geographic Levels"),
	}, s.handleFetchGeographies)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: ToolFetchVariables,
		Description: "Find specific data variables in a dataset. " +
			"Use a semantic query to filter thousands of variables to relevant ones.",
		Annotations: readOnly("Explore Dataset Variables"),
	}, s.handleFetchVariables)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: ToolFetchExamples,
		Description: "See example API calls for proper usage patterns. " +
			"Use when unsure how to structure your data request.",
		Annotations: readOnly("Get Dataset Usage Examples"),
	}, s.handleFetchExamples)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: ToolFetchRequiredParents,
		Description: "Find what parent geographies are needed for a specific geographic level " +
			"(e.g., tracts require county and state).",
		Annotations: readOnly("Check Required Parent Geographies"),
	}, s.handleFetchRequiredParents)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: ToolFetchFIPS,
		Description: "Explore all available FIPS codes for a geographic level. " +
			"Helpful for discovering available counties, tracts, etc.",
		Annotations: readOnly("Browse Available FIPS Codes"),
	}, s.handleFetchFIPS)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolLookupFIPS,
		Description: "Convert place names (like 'Los Angeles County, California') to FIPS codes needed for data requests.",
		Annotations: readOnly("Convert Place Names to FIPS Codes"),
	}, s.handleLookupFIPS)

	mcp.AddTool(s.server, &mcp.Tool{
		Name: ToolFetchData,
		Description: "Get actual Census data values. Use as final step after identifying variables and geographies. " +
			"Requires proper target_geographies and parent_geographies parameters; " +
			"parent_geographies is " + parentPredicatesHint + ".",
		Annotations: readOnly("Retrieve Census Data"),
	}, s.handleFetchData)
}

func (s *Server) handleFetchDatasets(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input FetchDatasetsInput,
) (*mcp.CallToolResult, FetchDatasetsOutput, error) {
	q := datasets.Query{
		Text:       input.Query,
		K:          input.K,
		Key:        input.Dataset,
		APIBaseURL: input.APIBaseURL,
	}
	if input.Year != "" {
		vintage, err := strconv.Atoi(input.Year)
		if err != nil {
			return nil, FetchDatasetsOutput{}, fmt.Errorf("%w: year %q is not a number", domain.ErrInvalidArgument, input.Year)
		}
		q.Vintage = &vintage
	}

	var results []result.Result
	err := s.observe(ctx, ToolFetchDatasets, func(ctx context.Context) error {
		var err error
		results, err = s.ports.Datasets.SearchDatasets(ctx, q)
		return err
	})
	if err != nil {
		return nil, FetchDatasetsOutput{}, err
	}
	return nil, FetchDatasetsOutput{Datasets: result.Contents(results)}, nil
}

func (s *Server) handleFetchGeographies(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DatasetInput,
) (*mcp.CallToolResult, any, error) {
	var resp geography.Response
	err := s.observe(ctx, ToolFetchGeographies, func(ctx context.Context) error {
		var err error
		resp, err = s.ports.Geography.Geographies(ctx, dataset(input.Year, input.Dataset))
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return jsonResult(resp)
}

func (s *Server) handleFetchVariables(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input FetchVariablesInput,
) (*mcp.CallToolResult, any, error) {
	req := variables.Request{
		Year:    input.Year,
		Dataset: input.Dataset,
		Query:   input.Query,
		TopK:    input.TopK,
	}
	if req.TopK < 0 {
		return nil, nil, fmt.Errorf("%w: top_k must be positive", domain.ErrInvalidArgument)
	}

	var resp variable.Response
	err := s.observe(ctx, ToolFetchVariables, func(ctx context.Context) error {
		var err error
		resp, err = s.ports.Variables.Fetch(ctx, req)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return jsonResult(resp)
}

func (s *Server) handleFetchExamples(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DatasetInput,
) (*mcp.CallToolResult, any, error) {
	var raw json.RawMessage
	err := s.observe(ctx, ToolFetchExamples, func(ctx context.Context) error {
		var err error
		raw, err = s.ports.Geography.Examples(ctx, dataset(input.Year, input.Dataset))
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return textResult(string(raw)), nil, nil
}

func (s *Server) handleFetchRequiredParents(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RequiredParentsInput,
) (*mcp.CallToolResult, RequiredParentsOutput, error) {
	var requires []string
	err := s.observe(ctx, ToolFetchRequiredParents, func(ctx context.Context) error {
		var err error
		requires, err = s.ports.Geography.RequiredParents(ctx, dataset(input.Year, input.Dataset), input.GeographyName)
		return err
	})
	if err != nil {
		return nil, RequiredParentsOutput{}, err
	}
	return nil, RequiredParentsOutput{Geography: input.GeographyName, Requires: requires}, nil
}

func (s *Server) handleFetchFIPS(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input FetchFIPSInput,
) (*mcp.CallToolResult, any, error) {
	in, err := geography.ParsePredicates(input.RequiredParentGeographies)
	if err != nil {
		return nil, nil, err
	}

	var table geography.Table
	err = s.observe(ctx, ToolFetchFIPS, func(ctx context.Context) error {
		var err error
		table, err = s.ports.Geography.FIPS(ctx, dataset(input.Year, input.Dataset), input.Geography, in)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return jsonResult(table)
}

func (s *Server) handleLookupFIPS(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input LookupFIPSInput,
) (*mcp.CallToolResult, LookupFIPSOutput, error) {
	in, err := geography.ParsePredicates(input.RequiredParentGeographies)
	if err != nil {
		return nil, LookupFIPSOutput{}, err
	}

	var codes map[string]string
	err = s.observe(ctx, ToolLookupFIPS, func(ctx context.Context) error {
		var err error
		codes, err = s.ports.Geography.Lookup(ctx, input.Name, dataset(input.Year, input.Dataset), input.Geography, in)
		return err
	})
	if err != nil {
		return nil, LookupFIPSOutput{}, err
	}
	return nil, LookupFIPSOutput{Name: input.Name, Codes: codes}, nil
}

func (s *Server) handleFetchData(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input FetchDataInput,
) (*mcp.CallToolResult, any, error) {
	targets, err := geography.ParsePredicates(input.TargetGeographies)
	if err != nil {
		return nil, nil, err
	}
	in, err := geography.ParsePredicates(input.ParentGeographies)
	if err != nil {
		return nil, nil, err
	}

	var table geography.Table
	err = s.observe(ctx, ToolFetchData, func(ctx context.Context) error {
		var err error
		table, err = s.ports.Geography.Data(ctx, dataset(input.Year, input.Dataset), input.Variables, targets, in)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return jsonResult(table)
}

// observe runs one tool call with an embedding usage collector and logs the outcome.
func (s *Server) observe(ctx context.Context, tool string, fn func(context.Context) error) error {
	ctx, usage := domain.NewContextWithUsage(ctx)
	start := time.Now()
	err := fn(ctx)
	texts, tokens := usage.Snapshot()

	fields := []zap.Field{
		zap.String("tool", tool),
		zap.Duration("latency", time.Since(start)),
		zap.Int("embedded_texts", texts),
		zap.Int("embedding_tokens", tokens),
	}
	if err != nil {
		s.logger.Warn("Tool call failed", append(fields, zap.Error(err))...)
		return err
	}
	s.logger.Info("Tool call", fields...)
	return nil
}

func dataset(year, name string) geographyuc.Dataset {
	return geographyuc.Dataset{Year: year, Dataset: name}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: text}}}
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, nil, fmt.Errorf("encode result: %w", err)
	}
	return textResult(string(b)), nil, nil
}
