package filter

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// MaxConditions is the maximum number of conditions in one expression.
const MaxConditions = 32

// Expression is a conjunction of exact-match conditions.
// The zero value matches every document.
type Expression struct {
	must []Condition
}

// NewExpression validates and creates a filter Expression.
func NewExpression(must ...Condition) (Expression, error) {
	if len(must) > MaxConditions {
		return Expression{}, fmt.Errorf("too many conditions (max %d)", MaxConditions)
	}
	return Expression{must: must}, nil
}

// FromMap builds an expression from key/value pairs in sorted key order.
func FromMap(m map[string]string) (Expression, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	conds := make([]Condition, 0, len(keys))
	for _, k := range keys {
		c, err := NewMatch(k, m[k])
		if err != nil {
			return Expression{}, err
		}
		conds = append(conds, c)
	}
	return NewExpression(conds...)
}

// Must returns the conditions.
func (e Expression) Must() []Condition { return e.must }

// IsEmpty reports whether the expression has no conditions.
func (e Expression) IsEmpty() bool { return len(e.must) == 0 }

// Matches reports whether every condition holds for metadata.
func (e Expression) Matches(metadata map[string]any) bool {
	for _, c := range e.must {
		if !c.Matches(metadata) {
			return false
		}
	}
	return true
}

// Condition is a single exact-match clause.
type Condition struct {
	key   string
	match string
}

// NewMatch creates an exact match condition.
func NewMatch(key, match string) (Condition, error) {
	if key == "" {
		return Condition{}, fmt.Errorf("filter key is required")
	}
	if match == "" {
		return Condition{}, fmt.Errorf("match value is required for key %q", key)
	}
	return Condition{key: key, match: match}, nil
}

// Key returns the field name.
func (c Condition) Key() string { return c.key }

// Match returns the exact match value.
func (c Condition) Match() string { return c.match }

// Matches reports whether metadata holds the key with a value equal to Match.
func (c Condition) Matches(metadata map[string]any) bool {
	v, ok := metadata[c.key]
	if !ok {
		return false
	}
	s, ok := Canonical(v)
	return ok && s == c.match
}

// Canonical renders a scalar metadata value in the form conditions compare against.
// Non-scalar values have no canonical form and never match.
func Canonical(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case json.Number:
		return x.String(), true
	case bool:
		return strconv.FormatBool(x), true
	case int:
		return strconv.Itoa(x), true
	case int32:
		return strconv.FormatInt(int64(x), 10), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case uint:
		return strconv.FormatUint(uint64(x), 10), true
	case uint64:
		return strconv.FormatUint(x, 10), true
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	default:
		return "", false
	}
}
