package geography

import (
	"context"
	"encoding/json"

	"github.com/aaronbrezel/mcp-census/internal/domain/geography"
)

// Client is the subset of the Census API the geography tools use.
type Client interface {
	FetchGeographies(ctx context.Context, year, dataset string) (geography.Response, error)
	FetchExamples(ctx context.Context, year, dataset string) (json.RawMessage, error)
	FetchTable(ctx context.Context, year, dataset string, q geography.Query) (geography.Table, error)
}
