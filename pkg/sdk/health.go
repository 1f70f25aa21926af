package censusdex

import (
	"context"

	healthuc "github.com/aaronbrezel/mcp-census/internal/usecase/health"
)

// HealthStatus represents the aggregated health of the client's dependencies.
type HealthStatus struct {
	Status string            // "ok", "degraded", "error"
	Checks map[string]string // component: "ok", "error" or "pending"
}

// Health pings the embedding provider and Redis (when used) and reports
// whether the dataset index is loaded. An unloaded index is "pending".
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.healthSvc.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	return HealthStatus{
		Status: string(report.Status),
		Checks: checks,
	}
}

// healthUseCase is the internal interface for health checks.
type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}
