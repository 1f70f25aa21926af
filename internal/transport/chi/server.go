package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/aaronbrezel/mcp-census/internal/domain"
	"github.com/aaronbrezel/mcp-census/internal/domain/geography"
	"github.com/aaronbrezel/mcp-census/internal/domain/search/result"
	"github.com/aaronbrezel/mcp-census/internal/usecase/datasets"
	geographyuc "github.com/aaronbrezel/mcp-census/internal/usecase/geography"
	healthuc "github.com/aaronbrezel/mcp-census/internal/usecase/health"
	"github.com/aaronbrezel/mcp-census/internal/usecase/variables"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// DatasetHit is one dataset search result.
type DatasetHit struct {
	Content  string         `json:"content"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata"`
}

// DatasetListResponse is the body of GET /v1/datasets.
type DatasetListResponse struct {
	Items []DatasetHit `json:"items"`
	Total int          `json:"total"`
}

// RequiredParentsResponse is the body of GET /v1/geographies/parents.
type RequiredParentsResponse struct {
	Geography string   `json:"geography"`
	Requires  []string `json:"requires"`
}

// RebuildResponse is the body of POST /v1/admin/rebuild.
type RebuildResponse struct {
	Documents  int    `json:"documents"`
	DurationMs int64  `json:"duration_ms"`
	Location   string `json:"location"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Server implements ServerInterface on top of the use case services.
type Server struct {
	datasets      DatasetIndex
	variables     VariableFetcher
	geography     GeographyService
	health        HealthChecker
	logger        *zap.Logger
	errorHandlers []errorHandler
}

var _ ServerInterface = (*Server)(nil)

// NewServer creates an HTTP API server.
func NewServer(
	datasets DatasetIndex,
	variables VariableFetcher,
	geography GeographyService,
	health HealthChecker,
	logger *zap.Logger,
) *Server {
	s := &Server{
		datasets:  datasets,
		variables: variables,
		geography: geography,
		health:    health,
		logger:    logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidArgument, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrNameNotFound, http.StatusNotFound, CodeNameNotFound),
		sentinelHandler(domain.ErrUpstreamUnavailable, http.StatusBadGateway, CodeUpstreamUnavailable),
		sentinelHandler(domain.ErrEmbeddingProviderError,
			http.StatusBadGateway, CodeEmbeddingProviderError),
		sentinelHandler(domain.ErrIndexNotReady, http.StatusServiceUnavailable, CodeIndexNotReady),
		sentinelHandler(domain.ErrStaleIndex, http.StatusServiceUnavailable, CodeIndexStale),
		sentinelHandler(domain.ErrCorruptIndex, http.StatusServiceUnavailable, CodeIndexCorrupt),
	}
	return s
}

// SearchDatasets handles GET /v1/datasets.
func (s *Server) SearchDatasets(w http.ResponseWriter, r *http.Request, params SearchDatasetsParams) {
	q := datasets.Query{
		Text:       params.Query,
		K:          derefInt(params.K),
		Vintage:    params.Vintage,
		Key:        derefString(params.Key),
		APIBaseURL: derefString(params.APIBaseURL),
	}
	if params.K != nil && *params.K < 1 {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "k must be at least 1")
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	results, err := s.datasets.SearchDatasets(ctx, q)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	items := make([]DatasetHit, len(results))
	for i := range results {
		items[i] = datasetHit(&results[i])
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, DatasetListResponse{Items: items, Total: len(items)})
}

// ListVariables handles GET /v1/variables.
func (s *Server) ListVariables(w http.ResponseWriter, r *http.Request, params ListVariablesParams) {
	if params.TopK != nil && *params.TopK < 1 {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "top_k must be at least 1")
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	resp, err := s.variables.Fetch(ctx, variables.Request{
		Year:    derefString(params.Year),
		Dataset: params.Dataset,
		Query:   derefString(params.Query),
		TopK:    derefInt(params.TopK),
	})
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, resp)
}

// GetGeographies handles GET /v1/geographies.
func (s *Server) GetGeographies(w http.ResponseWriter, r *http.Request, params DatasetParams) {
	resp, err := s.geography.Geographies(r.Context(), datasetRef(params.Year, params.Dataset))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetRequiredParents handles GET /v1/geographies/parents.
func (s *Server) GetRequiredParents(w http.ResponseWriter, r *http.Request, params RequiredParentsParams) {
	requires, err := s.geography.RequiredParents(r.Context(),
		datasetRef(params.Year, params.Dataset), params.Geography)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RequiredParentsResponse{Geography: params.Geography, Requires: requires})
}

// GetExamples handles GET /v1/examples. The upstream document is passed through.
func (s *Server) GetExamples(w http.ResponseWriter, r *http.Request, params DatasetParams) {
	raw, err := s.geography.Examples(r.Context(), datasetRef(params.Year, params.Dataset))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, raw)
}

// ListFIPS handles GET /v1/fips.
func (s *Server) ListFIPS(w http.ResponseWriter, r *http.Request, params ListFIPSParams) {
	in, err := parsePredicates(params.In)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	table, err := s.geography.FIPS(r.Context(), datasetRef(params.Year, params.Dataset), params.Geography, in)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, table)
}

// LookupFIPS handles GET /v1/fips/lookup.
func (s *Server) LookupFIPS(w http.ResponseWriter, r *http.Request, params LookupFIPSParams) {
	in, err := parsePredicates(params.In)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	codes, err := s.geography.Lookup(r.Context(), params.Name,
		datasetRef(params.Year, params.Dataset), params.Geography, in)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, codes)
}

// GetData handles GET /v1/data.
func (s *Server) GetData(w http.ResponseWriter, r *http.Request, params GetDataParams) {
	targets, err := geography.ParsePredicates(params.For)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	in, err := parsePredicates(params.In)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	table, err := s.geography.Data(r.Context(), datasetRef(params.Year, params.Dataset), params.Get, targets, in)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, table)
}

// RebuildIndex handles POST /v1/admin/rebuild.
func (s *Server) RebuildIndex(w http.ResponseWriter, r *http.Request) {
	ctx, usage := domain.NewContextWithUsage(r.Context())
	stats, err := s.datasets.Rebuild(ctx)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	s.logger.Info("Dataset index rebuilt",
		zap.Int("documents", stats.Documents),
		zap.Duration("duration", stats.Duration),
		zap.String("location", stats.Location),
	)
	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, RebuildResponse{
		Documents:  stats.Documents,
		DurationMs: stats.Duration.Milliseconds(),
		Location:   stats.Location,
	})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// InvalidParamHandler renders query binding failures as 400 responses.
func InvalidParamHandler(w http.ResponseWriter, _ *http.Request, err error) {
	msg := "invalid request"
	var pe *InvalidParamFormatError
	if errors.As(err, &pe) {
		msg = "invalid parameter " + pe.ParamName
	}
	writeError(w, http.StatusBadRequest, CodeBadRequest, msg)
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if !usage.Used() {
		return
	}
	texts, tokens := usage.Snapshot()
	w.Header().Set("X-Embedding-Texts", strconv.Itoa(texts))
	w.Header().Set("X-Embedding-Tokens", strconv.Itoa(tokens))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a client message without exposing internals.
// Validation and lookup errors carry caller input only, so their text is kept.
func safeDomainMessage(err error) string {
	if errors.Is(err, domain.ErrInvalidArgument) || errors.Is(err, domain.ErrNameNotFound) {
		return err.Error()
	}
	sentinels := []error{
		domain.ErrUpstreamUnavailable,
		domain.ErrEmbeddingProviderError,
		domain.ErrIndexNotReady,
		domain.ErrStaleIndex,
		domain.ErrCorruptIndex,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

func datasetHit(r *result.Result) DatasetHit {
	return DatasetHit{
		Content:  r.Content(),
		Score:    r.Score(),
		Metadata: r.Metadata(),
	}
}

func datasetRef(year *string, dataset string) geographyuc.Dataset {
	return geographyuc.Dataset{Year: derefString(year), Dataset: dataset}
}

func parsePredicates(items *[]string) ([]geography.Predicate, error) {
	if items == nil {
		return nil, nil
	}
	return geography.ParsePredicates(*items)
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
