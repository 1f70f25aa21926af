package variables

import (
	"context"

	"github.com/aaronbrezel/mcp-census/internal/domain/variable"
)

// CatalogFetcher downloads one dataset's variable catalog.
type CatalogFetcher interface {
	FetchVariables(ctx context.Context, year, dataset string) (variable.Response, error)
}
