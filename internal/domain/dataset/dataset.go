// Package dataset models entries of the Census dataset catalog (https://api.census.gov/data.json).
package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aaronbrezel/mcp-census/internal/domain"
)

// Placeholders substituted for absent upstream fields.
const (
	UnknownVintage   = "Unknown Vintage"
	NoTitle          = "No Title"
	NoDescription    = "No Description"
	NoAPIBaseURL     = "No API Base URL"
	datasetSeparator = "/"
)

// Metadata field names. Filters address documents by these keys.
const (
	FieldVintage      = "c_vintage"
	FieldDataset      = "c_dataset"
	FieldTitle        = "title"
	FieldDescription  = "description"
	FieldDistribution = "distribution"
	FieldKey          = "key"
	FieldAPIBaseURL   = "apiBaseURL"
	fieldAccessURL    = "accessURL"
)

// Distribution is one access point of a dataset.
type Distribution struct {
	AccessURL string
	Extra     map[string]any
}

// Descriptor is a normalized catalog entry. Known fields are typed, every other
// upstream field is kept verbatim in Extra.
type Descriptor struct {
	Vintage      *int
	Dataset      []string
	Title        string
	Description  string
	Distribution []Distribution
	Extra        map[string]any
}

// Key joins the dataset path segments, e.g. "acs/acs5".
func (d *Descriptor) Key() string {
	return strings.Join(d.Dataset, datasetSeparator)
}

// APIBaseURL returns the first distribution's access URL or NoAPIBaseURL.
func (d *Descriptor) APIBaseURL() string {
	if len(d.Distribution) == 0 || d.Distribution[0].AccessURL == "" {
		return NoAPIBaseURL
	}
	return d.Distribution[0].AccessURL
}

// Document renders the descriptor as a searchable document.
func (d *Descriptor) Document() domain.Document {
	vintage := UnknownVintage
	if d.Vintage != nil {
		vintage = strconv.Itoa(*d.Vintage)
	}

	key := d.Key()
	apiBaseURL := d.APIBaseURL()

	content := "Vintage: " + vintage +
		"\nDataset: " + key +
		"\nAPI base URL: " + apiBaseURL +
		"\nTitle: " + orDefault(d.Title, NoTitle) +
		"\nDescription: " + orDefault(d.Description, NoDescription)

	return domain.Document{Content: content, Metadata: d.metadata(key, apiBaseURL)}
}

func (d *Descriptor) metadata(key, apiBaseURL string) map[string]any {
	md := make(map[string]any, len(d.Extra)+7)
	for k, v := range d.Extra {
		md[k] = v
	}
	if d.Vintage != nil {
		md[FieldVintage] = *d.Vintage
	}
	if d.Dataset != nil {
		segments := make([]any, len(d.Dataset))
		for i, s := range d.Dataset {
			segments[i] = s
		}
		md[FieldDataset] = segments
	}
	if d.Title != "" {
		md[FieldTitle] = d.Title
	}
	if d.Description != "" {
		md[FieldDescription] = d.Description
	}
	if d.Distribution != nil {
		dists := make([]any, len(d.Distribution))
		for i, dist := range d.Distribution {
			m := make(map[string]any, len(dist.Extra)+1)
			for k, v := range dist.Extra {
				m[k] = v
			}
			if dist.AccessURL != "" {
				m[fieldAccessURL] = dist.AccessURL
			}
			dists[i] = m
		}
		md[FieldDistribution] = dists
	}
	md[FieldKey] = key
	md[FieldAPIBaseURL] = apiBaseURL
	return md
}

// UnmarshalJSON splits an upstream object into typed fields and Extra.
// Numbers stay json.Number so nothing is rounded.
func (d *Descriptor) UnmarshalJSON(data []byte) error {
	raw, err := decodeObject(data)
	if err != nil {
		return err
	}

	*d = fromRaw(raw)
	return nil
}

// fromRaw never fails. A known field with an unexpected shape is kept in Extra
// and treated as absent.
func fromRaw(raw map[string]any) Descriptor {
	d := Descriptor{Extra: make(map[string]any)}

	for k, v := range raw {
		switch k {
		case FieldVintage:
			if n, ok := v.(json.Number); ok {
				if i, err := strconv.Atoi(n.String()); err == nil {
					d.Vintage = &i
					continue
				}
			}
			d.Extra[k] = v
		case FieldDataset:
			segments, ok := stringSlice(v)
			if !ok {
				d.Extra[k] = v
				continue
			}
			d.Dataset = segments
		case FieldTitle:
			s, ok := v.(string)
			if !ok {
				d.Extra[k] = v
				continue
			}
			d.Title = s
		case FieldDescription:
			s, ok := v.(string)
			if !ok {
				d.Extra[k] = v
				continue
			}
			d.Description = s
		case FieldDistribution:
			dists, ok := distributions(v)
			if !ok {
				d.Extra[k] = v
				continue
			}
			d.Distribution = dists
		default:
			d.Extra[k] = v
		}
	}
	return d
}

// distributions keeps the object entries of an array and skips the rest.
func distributions(v any) ([]Distribution, bool) {
	items, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]Distribution, 0, len(items))
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		dist := Distribution{Extra: make(map[string]any, len(obj))}
		for k, val := range obj {
			if s, isStr := val.(string); isStr && k == fieldAccessURL && s != "" {
				dist.AccessURL = s
				continue
			}
			dist.Extra[k] = val
		}
		out = append(out, dist)
	}
	return out, true
}

func stringSlice(v any) ([]string, bool) {
	items, ok := v.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out[i] = s
	}
	return out, true
}

func decodeObject(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode dataset descriptor: %w", err)
	}
	return raw, nil
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// Catalog is the ordered list of catalog entries.
type Catalog []Descriptor

// Documents maps every descriptor to a document, preserving catalog order.
func (c Catalog) Documents() []domain.Document {
	docs := make([]domain.Document, len(c))
	for i := range c {
		docs[i] = c[i].Document()
	}
	return docs
}

// DecodeCatalog parses the upstream {"dataset": [...]} envelope.
func DecodeCatalog(r io.Reader) (Catalog, error) {
	var envelope struct {
		Dataset Catalog `json:"dataset"`
	}
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&envelope); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if envelope.Dataset == nil {
		return Catalog{}, nil
	}
	return envelope.Dataset, nil
}
