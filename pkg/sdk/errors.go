package censusdex

import "github.com/aaronbrezel/mcp-census/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrInvalidArgument        = domain.ErrInvalidArgument
	ErrNameNotFound           = domain.ErrNameNotFound
	ErrUpstreamUnavailable    = domain.ErrUpstreamUnavailable
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
	ErrIndexNotReady          = domain.ErrIndexNotReady
	ErrStaleIndex             = domain.ErrStaleIndex
	ErrCorruptIndex           = domain.ErrCorruptIndex
)
