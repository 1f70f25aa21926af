package censusdex

import (
	"encoding/json"
	"time"

	"github.com/aaronbrezel/mcp-census/internal/domain/geography"
)

// Dataset addresses one dataset vintage, e.g. {Year: "2020", Name: "dec/pl"}.
// Timeseries datasets leave Year empty.
type Dataset struct {
	Year string
	Name string
}

// DatasetQuery is a semantic dataset search. Vintage, Key and APIBaseURL
// are optional exact-match filters.
type DatasetQuery struct {
	Text       string
	K          int // 0 means the default (5)
	Vintage    int // 0 means any
	Key        string
	APIBaseURL string
}

// DatasetHit is one dataset search result.
type DatasetHit struct {
	Description string
	Score       float64
	Title       string
	Key         string
	Vintage     int
	APIBaseURL  string
}

// IndexStats describes the dataset index held by the client.
type IndexStats struct {
	Ready     bool
	Documents int
	Source    string // "snapshot", "build" or "rebuild"
	BuiltAt   time.Time
	Location  string
	Embedding string
}

// RebuildStats describes a completed rebuild.
type RebuildStats struct {
	Documents int
	Duration  time.Duration
	Location  string
}

// VariablesRequest selects a dataset's variables. With a Query, only the TopK
// most similar variables are returned.
type VariablesRequest struct {
	Dataset Dataset
	Query   string
	TopK    int
}

// Variables maps a variable name to its definition as served by the Census API.
type Variables map[string]json.RawMessage

// Geographies is a dataset's geography listing.
type Geographies = geography.Response

// GeographyLevel is one level of a dataset's geography listing.
type GeographyLevel = geography.Level

// Table is a Census API tabular response. The first row is the header.
type Table = geography.Table
