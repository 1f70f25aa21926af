package censusdex

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

// provider names accepted by the built-in embedders.
const (
	providerOllama = "ollama"
	providerOpenAI = "openai"
)

type clientConfig struct {
	apiKey     string
	baseURL    string
	catalogURL string
	rateLimit  *float64
	httpClient *http.Client

	embedder     Embedder
	embedderInfo EmbedderInfo
	provider     string // built-in provider, when embedder is nil
	providerURL  string
	providerKey  string
	instruction  string

	indexDir      string
	redisAddr     string
	redisPassword string
	keyPrefix     string

	defaultTopK int
	maxBatch    int

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

// WithCensusAPIKey sets the Census Data API key. Without one, requests are
// subject to the anonymous rate limits.
func WithCensusAPIKey(key string) Option {
	return optionFunc(func(c *clientConfig) {
		c.apiKey = key
	})
}

// WithCensusBaseURL overrides the Data API root and catalog location.
// Empty values keep the defaults.
func WithCensusBaseURL(baseURL, catalogURL string) Option {
	return optionFunc(func(c *clientConfig) {
		c.baseURL = baseURL
		c.catalogURL = catalogURL
	})
}

// WithRateLimit caps Census API requests per second. Zero disables limiting.
func WithRateLimit(rps float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.rateLimit = &rps
	})
}

// WithHTTPClient sets the HTTP client used for Census API calls.
func WithHTTPClient(hc *http.Client) Option {
	return optionFunc(func(c *clientConfig) {
		c.httpClient = hc
	})
}

// WithEmbedder sets a caller-provided embedding provider. info names the
// vector space; a persisted index built under a different info is rebuilt.
func WithEmbedder(e Embedder, info EmbedderInfo) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
		c.embedderInfo = info
	})
}

// WithOllama embeds with a local Ollama server.
func WithOllama(baseURL, model string, dimensions int) Option {
	return optionFunc(func(c *clientConfig) {
		c.provider = providerOllama
		c.providerURL = baseURL
		c.embedderInfo = EmbedderInfo{Provider: providerOllama, Model: model, Dimensions: dimensions}
	})
}

// WithOpenAI embeds with an OpenAI-compatible API. An empty baseURL uses OpenAI.
func WithOpenAI(apiKey, baseURL, model string, dimensions int) Option {
	return optionFunc(func(c *clientConfig) {
		c.provider = providerOpenAI
		c.providerURL = baseURL
		c.providerKey = apiKey
		c.embedderInfo = EmbedderInfo{Provider: providerOpenAI, Model: model, Dimensions: dimensions}
	})
}

// WithDocumentInstruction prefixes every indexed text. Changing it
// invalidates a persisted index.
func WithDocumentInstruction(instruction string) Option {
	return optionFunc(func(c *clientConfig) {
		c.instruction = instruction
	})
}

// WithIndexDir sets where the dataset index is persisted.
// Default: ./census_datasets_index.
func WithIndexDir(dir string) Option {
	return optionFunc(func(c *clientConfig) {
		c.indexDir = dir
	})
}

// WithRedis persists the dataset index in Redis or Valkey instead of on disk,
// so several processes share one index.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.redisAddr = addr
		c.redisPassword = password
	})
}

// WithKeyPrefix namespaces Redis keys. Default: "censusdex:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithDefaultTopK sets how many variables a query keeps when the request does
// not say. Default: 10.
func WithDefaultTopK(k int) Option {
	return optionFunc(func(c *clientConfig) {
		c.defaultTopK = k
	})
}

// WithMaxBatchSize caps texts per embedding call. Default: 256.
func WithMaxBatchSize(size int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxBatch = size
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
