// Package geography models Census geography listings, predicates and tabular responses.
package geography

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aaronbrezel/mcp-census/internal/domain"
)

// Level is one entry of a dataset's geography.json listing. Fields not
// modelled here are kept verbatim in Extra and written back on marshal.
type Level struct {
	Name              string                     `json:"name"`
	GeoLevelDisplay   string                     `json:"geoLevelDisplay,omitempty"`
	ReferenceDate     string                     `json:"referenceDate,omitempty"`
	Requires          []string                   `json:"requires,omitempty"`
	Wildcard          []string                   `json:"wildcard,omitempty"`
	OptionalWithWCFor string                     `json:"optionalWithWCFor,omitempty"`
	Extra             map[string]json.RawMessage `json:"-"`
}

type levelFields Level

func (l *Level) UnmarshalJSON(data []byte) error {
	var known levelFields
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	extra, err := residual(data, "name", "geoLevelDisplay", "referenceDate", "requires", "wildcard", "optionalWithWCFor")
	if err != nil {
		return err
	}
	known.Extra = extra
	*l = Level(known)
	return nil
}

func (l Level) MarshalJSON() ([]byte, error) {
	return withResidual(levelFields(l), l.Extra)
}

// Response mirrors the upstream {"fips": [...]} shape. Other top-level
// fields are kept in Extra.
type Response struct {
	Fips  []Level                    `json:"fips"`
	Extra map[string]json.RawMessage `json:"-"`
}

type responseFields Response

func (r *Response) UnmarshalJSON(data []byte) error {
	var known responseFields
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	extra, err := residual(data, "fips")
	if err != nil {
		return err
	}
	known.Extra = extra
	*r = Response(known)
	return nil
}

func (r Response) MarshalJSON() ([]byte, error) {
	return withResidual(responseFields(r), r.Extra)
}

// residual returns the members of a JSON object not named in known, or nil.
func residual(data []byte, known ...string) (map[string]json.RawMessage, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	for _, k := range known {
		delete(all, k)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all, nil
}

// withResidual marshals v and merges extra into it. Modelled fields win.
func withResidual(v any, extra map[string]json.RawMessage) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil || len(extra) == 0 {
		return data, err
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for k, raw := range extra {
		if _, ok := merged[k]; !ok {
			merged[k] = raw
		}
	}
	return json.Marshal(merged)
}

// Requires returns the parent geographies the named level needs, or an empty
// list when the level is unknown or has none.
func (r Response) Requires(name string) []string {
	for _, lvl := range r.Fips {
		if lvl.Name == name {
			if lvl.Requires == nil {
				return []string{}
			}
			return lvl.Requires
		}
	}
	return []string{}
}

// Predicate constrains a geography level to a comma-separated list of codes
// or the wildcard "*". It renders as "state:06".
type Predicate struct {
	Geography string
	Codes     string
}

// Wildcard is the code selecting every member of a geography level.
const Wildcard = "*"

func (p Predicate) String() string { return p.Geography + ":" + p.Codes }

// ParsePredicate parses "county:001,003". The geography may contain spaces
// ("school district (unified)") but never a colon.
func ParsePredicate(s string) (Predicate, error) {
	geo, codes, ok := strings.Cut(s, ":")
	geo = strings.TrimSpace(geo)
	codes = strings.TrimSpace(codes)
	if !ok || geo == "" || codes == "" {
		return Predicate{}, fmt.Errorf("%w: predicate %q must look like geography:codes", domain.ErrInvalidArgument, s)
	}
	return Predicate{Geography: geo, Codes: codes}, nil
}

// ParsePredicates parses each element with ParsePredicate, preserving order.
func ParsePredicates(items []string) ([]Predicate, error) {
	out := make([]Predicate, 0, len(items))
	for _, s := range items {
		p, err := ParsePredicate(s)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// Strings renders predicates in order.
func Strings(ps []Predicate) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.String()
	}
	return out
}

// Query selects columns and geographies from a dataset. In predicates are
// sent in order; the API rejects parents listed out of hierarchy order.
type Query struct {
	Get []string
	For []Predicate
	In  []Predicate
}

// Table is a Census data response: the first row is the header.
type Table [][]any

// Header returns the column names.
func (t Table) Header() []string {
	if len(t) == 0 {
		return nil
	}
	out := make([]string, len(t[0]))
	for i, v := range t[0] {
		out[i] = cell(v)
	}
	return out
}

// Rows returns the data rows without the header.
func (t Table) Rows() [][]any {
	if len(t) < 2 {
		return nil
	}
	return t[1:]
}

// Lookup finds the row whose first column equals name exactly and returns the
// remaining columns keyed by header. Later rows win over earlier duplicates.
func (t Table) Lookup(name string) (map[string]string, error) {
	header := t.Header()

	var found []any
	for _, row := range t.Rows() {
		if len(row) > 0 && cell(row[0]) == name {
			found = row
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%w: %q", domain.ErrNameNotFound, name)
	}

	out := make(map[string]string, len(header))
	for i := 1; i < len(header) && i < len(found); i++ {
		out[header[i]] = cell(found[i])
	}
	return out, nil
}

func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}
