package domain

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestUpstreamError_Unwrap(t *testing.T) {
	err := error(&UpstreamError{URL: "https://api.census.gov/data.json", Err: context.Canceled})

	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Error("expected ErrUpstreamUnavailable")
	}
	if !errors.Is(err, context.Canceled) {
		t.Error("expected context.Canceled")
	}
	if !strings.Contains(err.Error(), "context canceled") {
		t.Errorf("message drops the cause: %q", err.Error())
	}
}

func TestUpstreamError_Status(t *testing.T) {
	err := error(&UpstreamError{URL: "u", StatusCode: 400, Body: "unknown variable"})

	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Error("expected ErrUpstreamUnavailable")
	}
	if errors.Is(err, context.Canceled) {
		t.Error("unexpected context.Canceled")
	}
	if got := err.Error(); got != "upstream unavailable: u returned 400: unknown variable" {
		t.Errorf("Error() = %q", got)
	}
}
