package censusdex

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aaronbrezel/mcp-census/internal/domain/dataset"
	"github.com/aaronbrezel/mcp-census/internal/domain/search/result"
	datasetsuc "github.com/aaronbrezel/mcp-census/internal/usecase/datasets"
)

// DatasetService searches the Census dataset catalog.
type DatasetService struct {
	svc datasetUseCase
	obs *observer
}

// Search returns the datasets most similar to q.Text, best first.
func (s *DatasetService) Search(ctx context.Context, q DatasetQuery) (_ []DatasetHit, err error) {
	start := time.Now()
	defer func() { s.obs.observe("datasets.search", start, err) }()

	query := datasetsuc.Query{Text: q.Text, K: q.K, Key: q.Key, APIBaseURL: q.APIBaseURL}
	if q.Vintage != 0 {
		query.Vintage = &q.Vintage
	}

	results, err := s.svc.SearchDatasets(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search datasets: %w", err)
	}

	hits := make([]DatasetHit, len(results))
	for i := range results {
		hits[i] = datasetHitFromResult(&results[i])
	}
	return hits, nil
}

// Rebuild replaces the dataset index with one built from the live catalog.
// The previous index keeps serving if the rebuild fails.
func (s *DatasetService) Rebuild(ctx context.Context) (_ RebuildStats, err error) {
	start := time.Now()
	defer func() { s.obs.observe("datasets.rebuild", start, err) }()

	st, err := s.svc.Rebuild(ctx)
	if err != nil {
		return RebuildStats{}, fmt.Errorf("rebuild dataset index: %w", err)
	}
	return RebuildStats{Documents: st.Documents, Duration: st.Duration, Location: st.Location}, nil
}

// Stats describes the dataset index. It never triggers a load.
func (s *DatasetService) Stats() IndexStats {
	st := s.svc.Stats()
	return IndexStats{
		Ready:     st.Ready,
		Documents: st.Documents,
		Source:    st.Source,
		BuiltAt:   st.BuiltAt,
		Location:  st.Location,
		Embedding: st.Identity.String(),
	}
}

func datasetHitFromResult(r *result.Result) DatasetHit {
	md := r.Metadata()
	return DatasetHit{
		Description: r.Content(),
		Score:       r.Score(),
		Title:       stringField(md, dataset.FieldTitle),
		Key:         stringField(md, dataset.FieldKey),
		Vintage:     intField(md, dataset.FieldVintage),
		APIBaseURL:  stringField(md, dataset.FieldAPIBaseURL),
	}
}

func stringField(md map[string]any, key string) string {
	s, _ := md[key].(string)
	return s
}

// intField reads a number that may have round-tripped through JSON.
func intField(md map[string]any, key string) int {
	switch v := md[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		n, _ := v.Int64()
		return int(n)
	default:
		return 0
	}
}
