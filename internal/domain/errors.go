package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument signals a malformed request.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNameNotFound signals a place name missing from a FIPS listing.
	ErrNameNotFound = errors.New("name not found")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")

	// ErrUpstreamUnavailable signals a failed call to the Census API.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")

	// ErrIndexNotReady signals that no dataset index has been loaded or built yet.
	ErrIndexNotReady = errors.New("index not ready")
	// ErrStaleIndex signals a persisted index built with a different embedder.
	ErrStaleIndex = errors.New("stale index")
	// ErrCorruptIndex signals a persisted index that cannot be decoded.
	ErrCorruptIndex = errors.New("corrupt index")
)

// UpstreamError carries the Census API response that caused a failure.
// Err is the transport-level cause when no response was received.
type UpstreamError struct {
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 0 {
		if e.Err != nil {
			return fmt.Sprintf("%s: %s: %v", ErrUpstreamUnavailable.Error(), e.URL, e.Err)
		}
		return fmt.Sprintf("%s: %s", ErrUpstreamUnavailable.Error(), e.URL)
	}
	if e.Body == "" {
		return fmt.Sprintf("%s: %s returned %d", ErrUpstreamUnavailable.Error(), e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s returned %d: %s", ErrUpstreamUnavailable.Error(), e.URL, e.StatusCode, e.Body)
}

func (e *UpstreamError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrUpstreamUnavailable}
	}
	return []error{ErrUpstreamUnavailable, e.Err}
}

// StaleIndexError describes an embedder identity mismatch between a snapshot and the running process.
type StaleIndexError struct {
	Persisted EmbedderIdentity
	Current   EmbedderIdentity
}

func (e *StaleIndexError) Error() string {
	return fmt.Sprintf("%s: built with %s, running %s", ErrStaleIndex.Error(), e.Persisted, e.Current)
}

func (e *StaleIndexError) Unwrap() error { return ErrStaleIndex }
