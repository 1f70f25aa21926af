package chi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// ErrorCode is the machine-readable code of an ErrorResponse.
type ErrorCode string

// Error codes returned by the REST API.
const (
	CodeBadRequest             ErrorCode = "bad_request"
	CodeUnauthorized           ErrorCode = "unauthorized"
	CodeValidationFailed       ErrorCode = "validation_failed"
	CodeNameNotFound           ErrorCode = "name_not_found"
	CodeUpstreamUnavailable    ErrorCode = "upstream_unavailable"
	CodeEmbeddingProviderError ErrorCode = "embedding_provider_error"
	CodeIndexNotReady          ErrorCode = "index_not_ready"
	CodeIndexStale             ErrorCode = "index_stale"
	CodeIndexCorrupt           ErrorCode = "index_corrupt"
	CodeInternalError          ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// SearchDatasetsParams are the query parameters of GET /v1/datasets.
type SearchDatasetsParams struct {
	Query      string  `form:"query"`
	K          *int    `form:"k,omitempty"`
	Vintage    *int    `form:"vintage,omitempty"`
	Key        *string `form:"key,omitempty"`
	APIBaseURL *string `form:"api_base_url,omitempty"`
}

// ListVariablesParams are the query parameters of GET /v1/variables.
type ListVariablesParams struct {
	Year    *string `form:"year,omitempty"`
	Dataset string  `form:"dataset"`
	Query   *string `form:"query,omitempty"`
	TopK    *int    `form:"top_k,omitempty"`
}

// DatasetParams address one dataset vintage. Year is empty for timeseries.
type DatasetParams struct {
	Year    *string `form:"year,omitempty"`
	Dataset string  `form:"dataset"`
}

// RequiredParentsParams are the query parameters of GET /v1/geographies/parents.
type RequiredParentsParams struct {
	Year      *string `form:"year,omitempty"`
	Dataset   string  `form:"dataset"`
	Geography string  `form:"geography"`
}

// ListFIPSParams are the query parameters of GET /v1/fips. In is repeated
// ("in=state:06&in=county:001") because a predicate may itself hold commas.
type ListFIPSParams struct {
	Year      *string   `form:"year,omitempty"`
	Dataset   string    `form:"dataset"`
	Geography string    `form:"geography"`
	In        *[]string `form:"in,omitempty"`
}

// LookupFIPSParams are the query parameters of GET /v1/fips/lookup.
type LookupFIPSParams struct {
	Name      string    `form:"name"`
	Year      *string   `form:"year,omitempty"`
	Dataset   string    `form:"dataset"`
	Geography string    `form:"geography"`
	In        *[]string `form:"in,omitempty"`
}

// GetDataParams are the query parameters of GET /v1/data. Get is a
// comma-separated list, For and In are repeated.
type GetDataParams struct {
	Year    *string   `form:"year,omitempty"`
	Dataset string    `form:"dataset"`
	Get     []string  `form:"get"`
	For     []string  `form:"for"`
	In      *[]string `form:"in,omitempty"`
}

// ServerInterface lists the REST operations.
type ServerInterface interface {
	// (GET /health)
	HealthCheck(w http.ResponseWriter, r *http.Request)
	// (GET /metrics)
	Metrics(w http.ResponseWriter, r *http.Request)
	// (GET /v1/datasets)
	SearchDatasets(w http.ResponseWriter, r *http.Request, params SearchDatasetsParams)
	// (GET /v1/variables)
	ListVariables(w http.ResponseWriter, r *http.Request, params ListVariablesParams)
	// (GET /v1/geographies)
	GetGeographies(w http.ResponseWriter, r *http.Request, params DatasetParams)
	// (GET /v1/geographies/parents)
	GetRequiredParents(w http.ResponseWriter, r *http.Request, params RequiredParentsParams)
	// (GET /v1/examples)
	GetExamples(w http.ResponseWriter, r *http.Request, params DatasetParams)
	// (GET /v1/fips)
	ListFIPS(w http.ResponseWriter, r *http.Request, params ListFIPSParams)
	// (GET /v1/fips/lookup)
	LookupFIPS(w http.ResponseWriter, r *http.Request, params LookupFIPSParams)
	// (GET /v1/data)
	GetData(w http.ResponseWriter, r *http.Request, params GetDataParams)
	// (POST /v1/admin/rebuild)
	RebuildIndex(w http.ResponseWriter, r *http.Request)
}

// InvalidParamFormatError reports a query parameter that failed to bind.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error { return e.Err }

// binding describes how one query parameter is decoded.
type binding struct {
	name     string
	explode  bool
	required bool
	dest     any
}

// ServerInterfaceWrapper binds query parameters and dispatches to a ServerInterface.
type ServerInterfaceWrapper struct {
	Handler          ServerInterface
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

func (siw *ServerInterfaceWrapper) bind(w http.ResponseWriter, r *http.Request, bindings ...binding) bool {
	query := r.URL.Query()
	for _, b := range bindings {
		if err := runtime.BindQueryParameter("form", b.explode, b.required, b.name, query, b.dest); err != nil {
			siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: b.name, Err: err})
			return false
		}
	}
	return true
}

// HealthCheck operation middleware.
func (siw *ServerInterfaceWrapper) HealthCheck(w http.ResponseWriter, r *http.Request) {
	siw.Handler.HealthCheck(w, r)
}

// Metrics operation middleware.
func (siw *ServerInterfaceWrapper) Metrics(w http.ResponseWriter, r *http.Request) {
	siw.Handler.Metrics(w, r)
}

// SearchDatasets operation middleware.
func (siw *ServerInterfaceWrapper) SearchDatasets(w http.ResponseWriter, r *http.Request) {
	var params SearchDatasetsParams
	if !siw.bind(w, r,
		binding{name: "query", explode: true, required: true, dest: &params.Query},
		binding{name: "k", explode: true, dest: &params.K},
		binding{name: "vintage", explode: true, dest: &params.Vintage},
		binding{name: "key", explode: true, dest: &params.Key},
		binding{name: "api_base_url", explode: true, dest: &params.APIBaseURL},
	) {
		return
	}
	siw.Handler.SearchDatasets(w, r, params)
}

// ListVariables operation middleware.
func (siw *ServerInterfaceWrapper) ListVariables(w http.ResponseWriter, r *http.Request) {
	var params ListVariablesParams
	if !siw.bind(w, r,
		binding{name: "year", explode: true, dest: &params.Year},
		binding{name: "dataset", explode: true, required: true, dest: &params.Dataset},
		binding{name: "query", explode: true, dest: &params.Query},
		binding{name: "top_k", explode: true, dest: &params.TopK},
	) {
		return
	}
	siw.Handler.ListVariables(w, r, params)
}

// GetGeographies operation middleware.
func (siw *ServerInterfaceWrapper) GetGeographies(w http.ResponseWriter, r *http.Request) {
	var params DatasetParams
	if !siw.bind(w, r, datasetBindings(&params.Year, &params.Dataset)...) {
		return
	}
	siw.Handler.GetGeographies(w, r, params)
}

// GetRequiredParents operation middleware.
func (siw *ServerInterfaceWrapper) GetRequiredParents(w http.ResponseWriter, r *http.Request) {
	var params RequiredParentsParams
	bindings := append(datasetBindings(&params.Year, &params.Dataset),
		binding{name: "geography", explode: true, required: true, dest: &params.Geography})
	if !siw.bind(w, r, bindings...) {
		return
	}
	siw.Handler.GetRequiredParents(w, r, params)
}

// GetExamples operation middleware.
func (siw *ServerInterfaceWrapper) GetExamples(w http.ResponseWriter, r *http.Request) {
	var params DatasetParams
	if !siw.bind(w, r, datasetBindings(&params.Year, &params.Dataset)...) {
		return
	}
	siw.Handler.GetExamples(w, r, params)
}

// ListFIPS operation middleware.
func (siw *ServerInterfaceWrapper) ListFIPS(w http.ResponseWriter, r *http.Request) {
	var params ListFIPSParams
	bindings := append(datasetBindings(&params.Year, &params.Dataset),
		binding{name: "geography", explode: true, required: true, dest: &params.Geography},
		binding{name: "in", explode: true, dest: &params.In},
	)
	if !siw.bind(w, r, bindings...) {
		return
	}
	siw.Handler.ListFIPS(w, r, params)
}

// LookupFIPS operation middleware.
func (siw *ServerInterfaceWrapper) LookupFIPS(w http.ResponseWriter, r *http.Request) {
	var params LookupFIPSParams
	bindings := append(datasetBindings(&params.Year, &params.Dataset),
		binding{name: "name", explode: true, required: true, dest: &params.Name},
		binding{name: "geography", explode: true, required: true, dest: &params.Geography},
		binding{name: "in", explode: true, dest: &params.In},
	)
	if !siw.bind(w, r, bindings...) {
		return
	}
	siw.Handler.LookupFIPS(w, r, params)
}

// GetData operation middleware.
func (siw *ServerInterfaceWrapper) GetData(w http.ResponseWriter, r *http.Request) {
	var params GetDataParams
	bindings := append(datasetBindings(&params.Year, &params.Dataset),
		binding{name: "get", explode: false, required: true, dest: &params.Get},
		binding{name: "for", explode: true, required: true, dest: &params.For},
		binding{name: "in", explode: true, dest: &params.In},
	)
	if !siw.bind(w, r, bindings...) {
		return
	}
	siw.Handler.GetData(w, r, params)
}

// RebuildIndex operation middleware.
func (siw *ServerInterfaceWrapper) RebuildIndex(w http.ResponseWriter, r *http.Request) {
	siw.Handler.RebuildIndex(w, r)
}

func datasetBindings(year **string, dataset *string) []binding {
	return []binding{
		{name: "year", explode: true, dest: year},
		{name: "dataset", explode: true, required: true, dest: dataset},
	}
}

// ChiServerOptions configures HandlerWithOptions.
type ChiServerOptions struct {
	BaseURL          string
	BaseRouter       chi.Router
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// Handler creates an http.Handler with routing matching the REST API.
func Handler(si ServerInterface) http.Handler {
	return HandlerWithOptions(si, ChiServerOptions{})
}

// HandlerWithOptions registers the REST routes on options.BaseRouter.
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter
	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}
	wrapper := ServerInterfaceWrapper{
		Handler:          si,
		ErrorHandlerFunc: options.ErrorHandlerFunc,
	}

	base := options.BaseURL
	r.Get(base+"/health", wrapper.HealthCheck)
	r.Get(base+"/metrics", wrapper.Metrics)
	r.Get(base+"/v1/datasets", wrapper.SearchDatasets)
	r.Get(base+"/v1/variables", wrapper.ListVariables)
	r.Get(base+"/v1/geographies", wrapper.GetGeographies)
	r.Get(base+"/v1/geographies/parents", wrapper.GetRequiredParents)
	r.Get(base+"/v1/examples", wrapper.GetExamples)
	r.Get(base+"/v1/fips", wrapper.ListFIPS)
	r.Get(base+"/v1/fips/lookup", wrapper.LookupFIPS)
	r.Get(base+"/v1/data", wrapper.GetData)
	r.Post(base+"/v1/admin/rebuild", wrapper.RebuildIndex)
	return r
}
