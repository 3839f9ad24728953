package core

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// Reserved query document keys. Everything else in the document is an
// arbitrary filter constraint, matched against record fields or state paths.
const (
	QueryKeyType    = "type"
	QueryKeyObjID   = "obj_id"
	QueryKeyVersion = "version"
	QueryKeySort    = "sort"
)

// VersionLatest is the sentinel version filter meaning "latest version of
// each object that has not been deleted".
const VersionLatest = -1

// Query is a filter document passed to the store's record search. It is a
// plain mapping so that user-edited documents survive a round trip through
// JSON unchanged; the typed accessors below interpret the reserved keys.
type Query map[string]any

// NewQuery returns a query showing current (latest, non-deleted) objects.
func NewQuery() Query {
	return Query{QueryKeyVersion: VersionLatest}
}

// ParseQuery decodes a JSON filter document. Integral numbers are
// normalised to int so that value comparison against programmatically built
// queries behaves as expected.
func ParseQuery(text string) (Query, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Query{}, nil
	}
	var raw map[string]any
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("invalid query document: %w", err)
	}
	return Query(normaliseMap(raw)), nil
}

// String renders the query as compact JSON with deterministic key order.
func (q Query) String() string {
	if len(q) == 0 {
		return "{}"
	}
	b, err := json.Marshal(map[string]any(q))
	if err != nil {
		return fmt.Sprintf("%v", map[string]any(q))
	}
	return string(b)
}

// Clone returns a shallow copy. Nested filter values are shared; callers
// treat documents as immutable once set.
func (q Query) Clone() Query {
	out := make(Query, len(q))
	for k, v := range q {
		out[k] = v
	}
	return out
}

// Equal reports value equality of two query documents.
func (q Query) Equal(other Query) bool {
	if len(q) == 0 && len(other) == 0 {
		return true
	}
	return reflect.DeepEqual(normaliseMap(q), normaliseMap(other))
}

// Merge returns a copy of q with every entry of update applied on top
// (shallow merge, matching the original update_query semantics).
func (q Query) Merge(update Query) Query {
	out := q.Clone()
	for k, v := range update {
		out[k] = v
	}
	return out
}

// TypeRestriction returns the type filter, or "" when unrestricted.
func (q Query) TypeRestriction() string {
	s, _ := q[QueryKeyType].(string)
	return s
}

// ObjIDs returns the explicit object-id restriction, or nil.
func (q Query) ObjIDs() []string {
	switch v := q[QueryKeyObjID].(type) {
	case nil:
		return nil
	case string:
		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			out = append(out, fmt.Sprintf("%v", e))
		}
		return out
	}
	return nil
}

// ShowCurrent reports whether the document carries the version=-1 filter.
func (q Query) ShowCurrent() bool {
	n, ok := intValue(q[QueryKeyVersion])
	return ok && n == VersionLatest
}

// Sort returns the sort specification as an ordered list of (path,
// ascending) pairs, sorted by path for determinism.
func (q Query) Sort() []SortKey {
	m, ok := q[QueryKeySort].(map[string]any)
	if !ok {
		if typed, ok := q[QueryKeySort].(map[string]int); ok {
			m = make(map[string]any, len(typed))
			for k, v := range typed {
				m[k] = v
			}
		} else {
			return nil
		}
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]SortKey, 0, len(keys))
	for _, k := range keys {
		dir, _ := intValue(m[k])
		out = append(out, SortKey{Path: k, Ascending: dir >= 0})
	}
	return out
}

// Filters returns the constraint portion of the document: every entry that
// is not the sort specification.
func (q Query) Filters() Query {
	out := make(Query, len(q))
	for k, v := range q {
		if k == QueryKeySort {
			continue
		}
		out[k] = v
	}
	return out
}

// SortKey is one entry of a sort specification.
type SortKey struct {
	Path      string
	Ascending bool
}

// SortSpec builds the document representation of a single-key sort.
func SortSpec(path string, ascending bool) map[string]any {
	dir := 1
	if !ascending {
		dir = -1
	}
	return map[string]any{path: dir}
}

// intValue coerces the numeric representations a document value can take
// after a JSON round trip.
func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
	}
	return 0, false
}

func normaliseMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normaliseValue(v)
	}
	return out
}

func normaliseValue(v any) any {
	switch val := v.(type) {
	case float64:
		if n, ok := intValue(val); ok {
			return n
		}
		return val
	case map[string]any:
		return normaliseMap(val)
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = normaliseValue(e)
		}
		return out
	default:
		return v
	}
}
