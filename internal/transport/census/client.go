// Package census is a thin, rate-limited client for the Census Data API.
package census

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/aaronbrezel/mcp-census/internal/domain"
	"github.com/aaronbrezel/mcp-census/internal/domain/dataset"
	"github.com/aaronbrezel/mcp-census/internal/domain/geography"
	"github.com/aaronbrezel/mcp-census/internal/domain/variable"
	"github.com/aaronbrezel/mcp-census/internal/metrics"
)

const (
	// BaseURL is the Census Data API root.
	BaseURL = "https://api.census.gov/data"

	// CatalogURL lists every dataset the API serves.
	CatalogURL = "https://api.census.gov/data.json"

	// DefaultTimeout bounds one request. The catalog is several megabytes.
	DefaultTimeout = 60 * time.Second

	// DefaultRateLimit is requests per second.
	DefaultRateLimit = 5.0

	maxErrorBody = 512
)

// Endpoint names used as metric labels.
const (
	endpointCatalog   = "catalog"
	endpointVariables = "variables"
	endpointGeography = "geography"
	endpointExamples  = "examples"
	endpointTable     = "data"
)

// Client is a rate-limited HTTP client for the Census Data API.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	apiKey     string
	baseURL    string
	catalogURL string
	logger     *zap.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithAPIKey sets the API key appended to data requests.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithBaseURL sets a custom data API root (for testing).
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithCatalogURL sets a custom catalog location.
func WithCatalogURL(u string) ClientOption {
	return func(c *Client) { c.catalogURL = u }
}

// WithRateLimit sets requests per second. Zero or negative disables limiting.
func WithRateLimit(rps float64) ClientOption {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// NewClient creates a Census Data API client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(DefaultRateLimit), 1),
		baseURL:    BaseURL,
		catalogURL: CatalogURL,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchCatalog downloads and decodes the full dataset catalog.
func (c *Client) FetchCatalog(ctx context.Context) (dataset.Catalog, error) {
	var catalog dataset.Catalog
	err := c.get(ctx, endpointCatalog, c.catalogURL, nil, func(r io.Reader) error {
		var err error
		catalog, err = dataset.DecodeCatalog(r)
		return err //nolint:wrapcheck // wrapped by get
	})
	if err != nil {
		return nil, fmt.Errorf("fetch catalog: %w", err)
	}
	return catalog, nil
}

// FetchVariables returns the variable catalog of one dataset.
func (c *Client) FetchVariables(ctx context.Context, year, ds string) (variable.Response, error) {
	var resp variable.Response
	if err := c.getJSON(ctx, endpointVariables, c.datasetURL(year, ds, "variables.json"), nil, &resp); err != nil {
		return variable.Response{}, fmt.Errorf("fetch variables: %w", err)
	}
	if resp.Variables == nil {
		resp.Variables = variable.Catalog{}
	}
	return resp, nil
}

// FetchGeographies returns the geography levels a dataset supports.
func (c *Client) FetchGeographies(ctx context.Context, year, ds string) (geography.Response, error) {
	var resp geography.Response
	if err := c.getJSON(ctx, endpointGeography, c.datasetURL(year, ds, "geography.json"), nil, &resp); err != nil {
		return geography.Response{}, fmt.Errorf("fetch geographies: %w", err)
	}
	return resp, nil
}

// FetchExamples returns the dataset's example queries verbatim.
func (c *Client) FetchExamples(ctx context.Context, year, ds string) (json.RawMessage, error) {
	var resp json.RawMessage
	if err := c.getJSON(ctx, endpointExamples, c.datasetURL(year, ds, "examples.json"), nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch examples: %w", err)
	}
	return resp, nil
}

// FetchTable queries dataset rows. An empty upstream result yields an empty table.
func (c *Client) FetchTable(ctx context.Context, year, ds string, q geography.Query) (geography.Table, error) {
	if len(q.Get) == 0 || len(q.For) == 0 {
		return nil, fmt.Errorf("%w: get and for are required", domain.ErrInvalidArgument)
	}

	params := url.Values{}
	params.Set("get", strings.Join(q.Get, ","))
	for _, p := range q.For {
		params.Add("for", p.String())
	}
	for _, p := range q.In {
		params.Add("in", p.String())
	}

	var table geography.Table
	err := c.get(ctx, endpointTable, c.datasetURL(year, ds, ""), params, func(r io.Reader) error {
		dec := json.NewDecoder(r)
		dec.UseNumber()
		if err := dec.Decode(&table); err != nil && !errors.Is(err, io.EOF) {
			return err //nolint:wrapcheck // wrapped by get
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch table: %w", err)
	}
	if table == nil {
		table = geography.Table{}
	}
	return table, nil
}

// datasetURL builds <base>/<year>/<dataset>[/<file>]. An empty year addresses
// timeseries datasets, which have no vintage segment.
func (c *Client) datasetURL(year, ds, file string) string {
	parts := []string{c.baseURL}
	if year != "" {
		parts = append(parts, url.PathEscape(year))
	}
	parts = append(parts, strings.Trim(ds, "/"))
	if file != "" {
		parts = append(parts, file)
	}
	return strings.Join(parts, "/")
}

func (c *Client) getJSON(ctx context.Context, endpoint, rawURL string, params url.Values, out any) error {
	return c.get(ctx, endpoint, rawURL, params, func(r io.Reader) error {
		return json.NewDecoder(r).Decode(out) //nolint:wrapcheck // wrapped by get
	})
}

// get performs one rate-limited GET and hands the body to decode.
// Every failure wraps domain.ErrUpstreamUnavailable. The API key never
// appears in errors or logs.
func (c *Client) get(
	ctx context.Context, endpoint, rawURL string, params url.Values, decode func(io.Reader) error,
) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	display := rawURL
	if len(params) > 0 {
		display += "?" + params.Encode()
	}
	target := display
	if c.apiKey != "" && endpoint != endpointCatalog {
		q := url.Values{}
		for k, v := range params {
			q[k] = v
		}
		q.Set("key", c.apiKey)
		target = rawURL + "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	metrics.CensusRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
	if err != nil {
		metrics.CensusRequestsTotal.WithLabelValues(endpoint, "transport_error").Inc()
		cause := redact(err, c.apiKey)
		c.logger.Warn("Census request failed",
			zap.String("endpoint", endpoint),
			zap.String("url", display),
			zap.Error(cause),
		)
		return &domain.UpstreamError{URL: display, Err: cause}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		metrics.CensusRequestsTotal.WithLabelValues(endpoint, "success").Inc()
		return decode(strings.NewReader(""))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.CensusRequestsTotal.WithLabelValues(endpoint, "http_error").Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Warn("Census request rejected",
			zap.String("endpoint", endpoint),
			zap.String("url", display),
			zap.Int("status", resp.StatusCode),
		)
		return &domain.UpstreamError{
			URL:        display,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	if err := decode(resp.Body); err != nil {
		metrics.CensusRequestsTotal.WithLabelValues(endpoint, "decode_error").Inc()
		return fmt.Errorf("decode %s response: %v: %w", endpoint, err, domain.ErrUpstreamUnavailable)
	}

	metrics.CensusRequestsTotal.WithLabelValues(endpoint, "success").Inc()
	c.logger.Debug("Census request completed",
		zap.String("endpoint", endpoint),
		zap.String("url", display),
		zap.Duration("duration", duration),
	)
	return nil
}

// redact hides the API key in the message and keeps the chain for errors.Is.
func redact(err error, key string) error {
	if key == "" {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), key, "REDACTED"), err: err}
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }

func (e *redactedError) Unwrap() error { return e.err }
