package censusdex

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aaronbrezel/mcp-census/internal/domain/geography"
	geographyuc "github.com/aaronbrezel/mcp-census/internal/usecase/geography"
)

// GeographyService wraps the geography, FIPS and data endpoints.
//
// Parent and target geographies are predicates of the form "geography:codes",
// e.g. "state:06" or "county:001,003" or "tract:*". Parents are applied in
// the order given, outermost first.
type GeographyService struct {
	svc geographyUseCase
	obs *observer
}

// Levels returns the dataset's geography listing.
func (s *GeographyService) Levels(ctx context.Context, ds Dataset) (_ Geographies, err error) {
	start := time.Now()
	defer func() { s.obs.observe("geography.levels", start, err) }()

	resp, err := s.svc.Geographies(ctx, toDataset(ds))
	if err != nil {
		return Geographies{}, fmt.Errorf("fetch geographies: %w", err)
	}
	return resp, nil
}

// Examples returns the dataset's example calls exactly as served.
func (s *GeographyService) Examples(ctx context.Context, ds Dataset) (_ json.RawMessage, err error) {
	start := time.Now()
	defer func() { s.obs.observe("geography.examples", start, err) }()

	raw, err := s.svc.Examples(ctx, toDataset(ds))
	if err != nil {
		return nil, fmt.Errorf("fetch examples: %w", err)
	}
	return raw, nil
}

// RequiredParents returns the parent geographies the named level must be
// qualified with. Unknown levels have none.
func (s *GeographyService) RequiredParents(ctx context.Context, ds Dataset, name string) (_ []string, err error) {
	start := time.Now()
	defer func() { s.obs.observe("geography.required_parents", start, err) }()

	parents, err := s.svc.RequiredParents(ctx, toDataset(ds), name)
	if err != nil {
		return nil, fmt.Errorf("fetch required parents: %w", err)
	}
	return parents, nil
}

// FIPS lists the names and codes of every member of geo within parents.
func (s *GeographyService) FIPS(ctx context.Context, ds Dataset, geo string, parents ...string) (_ Table, err error) {
	start := time.Now()
	defer func() { s.obs.observe("geography.fips", start, err) }()

	in, err := geography.ParsePredicates(parents)
	if err != nil {
		return nil, err
	}
	table, err := s.svc.FIPS(ctx, toDataset(ds), geo, in)
	if err != nil {
		return nil, fmt.Errorf("fetch fips: %w", err)
	}
	return table, nil
}

// Lookup returns the codes of the geography whose NAME equals name.
// ErrNameNotFound is returned when no row matches.
func (s *GeographyService) Lookup(
	ctx context.Context, ds Dataset, geo, name string, parents ...string,
) (_ map[string]string, err error) {
	start := time.Now()
	defer func() { s.obs.observe("geography.lookup", start, err) }()

	in, err := geography.ParsePredicates(parents)
	if err != nil {
		return nil, err
	}
	codes, err := s.svc.Lookup(ctx, name, toDataset(ds), geo, in)
	if err != nil {
		return nil, fmt.Errorf("lookup fips: %w", err)
	}
	return codes, nil
}

// Data fetches variables for the target geographies within parents.
func (s *GeographyService) Data(
	ctx context.Context, ds Dataset, variables, targets []string, parents ...string,
) (_ Table, err error) {
	start := time.Now()
	defer func() { s.obs.observe("geography.data", start, err) }()

	targetPreds, err := geography.ParsePredicates(targets)
	if err != nil {
		return nil, err
	}
	in, err := geography.ParsePredicates(parents)
	if err != nil {
		return nil, err
	}
	table, err := s.svc.Data(ctx, toDataset(ds), variables, targetPreds, in)
	if err != nil {
		return nil, fmt.Errorf("fetch data: %w", err)
	}
	return table, nil
}

func toDataset(ds Dataset) geographyuc.Dataset {
	return geographyuc.Dataset{Year: ds.Year, Dataset: ds.Name}
}
