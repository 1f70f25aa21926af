package censusdex

import (
	"context"
	"fmt"
	"time"

	variablesuc "github.com/aaronbrezel/mcp-census/internal/usecase/variables"
)

// VariableService lists and narrows dataset variables.
type VariableService struct {
	svc variableUseCase
	obs *observer
}

// Fetch returns the dataset's variables. Without a query every variable is
// returned; with one, the TopK most similar.
func (s *VariableService) Fetch(ctx context.Context, req VariablesRequest) (_ Variables, err error) {
	start := time.Now()
	defer func() { s.obs.observe("variables.fetch", start, err) }()

	resp, err := s.svc.Fetch(ctx, variablesuc.Request{
		Year:    req.Dataset.Year,
		Dataset: req.Dataset.Name,
		Query:   req.Query,
		TopK:    req.TopK,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch variables: %w", err)
	}
	return Variables(resp.Variables), nil
}
