package datasets

import (
	"context"

	"github.com/aaronbrezel/mcp-census/internal/domain/dataset"
	"github.com/aaronbrezel/mcp-census/internal/repository/snapshot"
)

// CatalogFetcher downloads the upstream dataset catalog.
type CatalogFetcher interface {
	FetchCatalog(ctx context.Context) (dataset.Catalog, error)
}

// SnapshotStore persists the dataset index between processes.
// Load returns snapshot.ErrSnapshotNotFound when nothing has been saved yet.
type SnapshotStore interface {
	Load(ctx context.Context) (*snapshot.Snapshot, error)
	Save(ctx context.Context, snap *snapshot.Snapshot) error
	Location() string
}
