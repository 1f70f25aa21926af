package domain

// VectorConfig holds internal vectorization settings, not exposed to clients.
type VectorConfig struct {
	Provider       string
	Model          string
	Dimensions     int
	DistanceMetric string
}

// DefaultVectorConfig returns the default configuration tuned for all-MiniLM-L6-v2 served by Ollama.
func DefaultVectorConfig() VectorConfig {
	return VectorConfig{
		Provider:       "ollama",
		Model:          "all-minilm:l6-v2",
		Dimensions:     384,
		DistanceMetric: "cosine",
	}
}
