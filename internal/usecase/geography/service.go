// Package geography implements the geography, FIPS and data lookups.
package geography

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/aaronbrezel/mcp-census/internal/domain"
	"github.com/aaronbrezel/mcp-census/internal/domain/geography"
)

// NameColumn is the variable holding a geography's display name.
const NameColumn = "NAME"

// Dataset addresses one dataset vintage.
type Dataset struct {
	Year    string
	Dataset string
}

func (d Dataset) validate() error {
	if d.Dataset == "" {
		return fmt.Errorf("%w: dataset is required", domain.ErrInvalidArgument)
	}
	return nil
}

// Service wraps the Census API geography endpoints.
type Service struct {
	client Client
	logger *zap.Logger
}

// New creates a geography service.
func New(client Client, logger *zap.Logger) *Service {
	return &Service{client: client, logger: logger}
}

// Geographies lists the geography levels a dataset supports.
func (s *Service) Geographies(ctx context.Context, ds Dataset) (geography.Response, error) {
	if err := ds.validate(); err != nil {
		return geography.Response{}, err
	}
	resp, err := s.client.FetchGeographies(ctx, ds.Year, ds.Dataset)
	if err != nil {
		return geography.Response{}, fmt.Errorf("geographies: %w", err)
	}
	return resp, nil
}

// Examples returns the dataset's example calls verbatim.
func (s *Service) Examples(ctx context.Context, ds Dataset) (json.RawMessage, error) {
	if err := ds.validate(); err != nil {
		return nil, err
	}
	raw, err := s.client.FetchExamples(ctx, ds.Year, ds.Dataset)
	if err != nil {
		return nil, fmt.Errorf("examples: %w", err)
	}
	return raw, nil
}

// RequiredParents lists the parent geographies a level needs. Unknown levels
// have none.
func (s *Service) RequiredParents(ctx context.Context, ds Dataset, name string) ([]string, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: geography is required", domain.ErrInvalidArgument)
	}
	resp, err := s.Geographies(ctx, ds)
	if err != nil {
		return nil, err
	}
	return resp.Requires(name), nil
}

// FIPS lists NAME and codes of every member of a geography level, constrained
// by the ordered parent predicates.
func (s *Service) FIPS(
	ctx context.Context, ds Dataset, geo string, in []geography.Predicate,
) (geography.Table, error) {
	if err := ds.validate(); err != nil {
		return nil, err
	}
	if geo == "" {
		return nil, fmt.Errorf("%w: geography is required", domain.ErrInvalidArgument)
	}
	table, err := s.client.FetchTable(ctx, ds.Year, ds.Dataset, geography.Query{
		Get: []string{NameColumn},
		For: []geography.Predicate{{Geography: geo, Codes: geography.Wildcard}},
		In:  in,
	})
	if err != nil {
		return nil, fmt.Errorf("fips: %w", err)
	}
	return table, nil
}

// Lookup resolves an exact place name to its codes, keyed by column.
func (s *Service) Lookup(
	ctx context.Context, name string, ds Dataset, geo string, in []geography.Predicate,
) (map[string]string, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", domain.ErrInvalidArgument)
	}
	table, err := s.FIPS(ctx, ds, geo, in)
	if err != nil {
		return nil, err
	}
	codes, err := table.Lookup(name)
	if err != nil {
		s.logger.Debug("FIPS lookup missed",
			zap.String("name", name),
			zap.String("dataset", ds.Dataset),
			zap.String("geography", geo),
			zap.Int("rows", len(table.Rows())),
		)
		return nil, fmt.Errorf("lookup: %w", err)
	}
	return codes, nil
}

// Data retrieves variables for the target geographies.
func (s *Service) Data(
	ctx context.Context, ds Dataset, variables []string, targets, in []geography.Predicate,
) (geography.Table, error) {
	if err := ds.validate(); err != nil {
		return nil, err
	}
	if len(variables) == 0 {
		return nil, fmt.Errorf("%w: at least one variable is required", domain.ErrInvalidArgument)
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("%w: at least one target geography is required", domain.ErrInvalidArgument)
	}
	table, err := s.client.FetchTable(ctx, ds.Year, ds.Dataset, geography.Query{
		Get: variables,
		For: targets,
		In:  in,
	})
	if err != nil {
		return nil, fmt.Errorf("data: %w", err)
	}
	return table, nil
}
