package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/aaronbrezel/mcp-census/internal/domain"
)

// Supported embedding providers.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Supported snapshot stores.
const (
	StoreFile  = "file"
	StoreRedis = "redis"
)

// Config holds the censusdex configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
	Census    CensusConfig    `yaml:"census"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Index     IndexConfig     `yaml:"index"`
	Database  DatabaseConfig  `yaml:"database"`
	Storage   StorageConfig   `yaml:"storage"`
	Cache     CacheConfig     `yaml:"cache"`
	Variables VariablesConfig `yaml:"variables"`
	MCP       MCPConfig       `yaml:"mcp"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings. No keys disables auth.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// CensusConfig holds Census Data API settings.
type CensusConfig struct {
	APIKey     string  `yaml:"api_key"`
	BaseURL    string  `yaml:"base_url"`
	CatalogURL string  `yaml:"catalog_url"`
	RateLimit  float64 `yaml:"rate_limit"` // requests per second
	TimeoutSec int     `yaml:"timeout_sec"`
}

// EmbeddingConfig holds the embedding provider and vectorizer settings.
type EmbeddingConfig struct {
	Provider            string `yaml:"provider"` // openai, ollama (default: ollama)
	Model               string `yaml:"model"`
	Dimensions          int    `yaml:"dimensions"`
	BaseURL             string `yaml:"base_url"`
	APIKey              string `yaml:"api_key"`
	TimeoutSec          int    `yaml:"timeout_sec"`
	DocumentInstruction string `yaml:"document_instruction"`
	QueryInstruction    string `yaml:"query_instruction"`
	MaxBatchSize        int    `yaml:"max_batch_size"`
	Concurrency         int    `yaml:"concurrency"`
}

// IndexConfig holds persistent dataset index settings.
type IndexConfig struct {
	Store            string `yaml:"store"` // file, redis (default: file)
	Dir              string `yaml:"dir"`
	RedisKey         string `yaml:"redis_key"`
	RebuildOnCorrupt bool   `yaml:"rebuild_on_corrupt"`
	WarmOnStart      bool   `yaml:"warm_on_start"`
}

// DatabaseConfig holds Redis/Valkey connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// CacheConfig holds embedding cache settings.
type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	TTLSec  int  `yaml:"ttl_sec"` // 0 = no expiry
}

// VariablesConfig holds variable search settings.
type VariablesConfig struct {
	DefaultTopK int `yaml:"default_top_k"`
}

// MCPConfig holds MCP server settings.
type MCPConfig struct {
	Name     string `yaml:"name"`
	HTTPPath string `yaml:"http_path"` // streamable HTTP mount; empty disables it under serve
}

// UsesRedis reports whether any component needs the Redis connection.
func (c *Config) UsesRedis() bool {
	return c.Cache.Enabled || c.Index.Store == StoreRedis
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
// A .env file in the working directory is loaded first; it never overrides
// variables already set in the environment.
func Load(env string) (Config, error) {
	_ = godotenv.Load()

	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse expands environment variables in data and decodes it.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		// A cold dataset index build runs inside the first request.
		c.HTTP.WriteTimeoutSec = 300
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if c.Census.BaseURL == "" {
		c.Census.BaseURL = "https://api.census.gov/data"
	}
	if c.Census.CatalogURL == "" {
		c.Census.CatalogURL = "https://api.census.gov/data.json"
	}
	if c.Census.RateLimit == 0 {
		c.Census.RateLimit = 5
	}
	if c.Census.TimeoutSec <= 0 {
		c.Census.TimeoutSec = 60
	}

	vec := domain.DefaultVectorConfig()
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = vec.Provider
	}
	if c.Embedding.Model == "" {
		c.Embedding.Model = vec.Model
	}
	if c.Embedding.Dimensions <= 0 {
		c.Embedding.Dimensions = vec.Dimensions
	}
	if c.Embedding.BaseURL == "" && c.Embedding.Provider == ProviderOllama {
		c.Embedding.BaseURL = "http://localhost:11434"
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 60
	}
	if c.Embedding.MaxBatchSize <= 0 {
		c.Embedding.MaxBatchSize = 256
	}
	if c.Embedding.Concurrency <= 0 {
		c.Embedding.Concurrency = 4
	}

	if c.Index.Store == "" {
		c.Index.Store = StoreFile
	}
	if c.Index.Dir == "" {
		c.Index.Dir = "census_datasets_index"
	}
	if c.Index.RedisKey == "" {
		c.Index.RedisKey = "index:datasets"
	}

	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "censusdex:"
	}
	if c.Variables.DefaultTopK <= 0 {
		c.Variables.DefaultTopK = 10
	}
	if c.MCP.Name == "" {
		c.MCP.Name = "censusdex"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Embedding.Provider {
	case ProviderOpenAI, ProviderOllama:
	default:
		return fmt.Errorf("embedding.provider must be %q or %q, got %q",
			ProviderOpenAI, ProviderOllama, c.Embedding.Provider)
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive, got %d", c.Embedding.Dimensions)
	}
	switch c.Index.Store {
	case StoreFile, StoreRedis:
	default:
		return fmt.Errorf("index.store must be %q or %q, got %q", StoreFile, StoreRedis, c.Index.Store)
	}
	if c.UsesRedis() && len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required when cache.enabled or index.store is %q", StoreRedis)
	}
	if c.Census.RateLimit < 0 {
		return fmt.Errorf("census.rate_limit must not be negative, got %g", c.Census.RateLimit)
	}
	if c.MCP.HTTPPath != "" && !strings.HasPrefix(c.MCP.HTTPPath, "/") {
		return fmt.Errorf("mcp.http_path must start with /, got %q", c.MCP.HTTPPath)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
