package core

import (
	"strconv"
	"strings"
)

// PathSeparator joins path segments in column names and sort criteria.
const PathSeparator = "."

// JoinPath renders a field path as a dotted name.
func JoinPath(path []string) string {
	return strings.Join(path, PathSeparator)
}

// SplitPath splits a dotted name into path segments.
func SplitPath(name string) []string {
	if name == "" {
		return nil
	}
	return strings.Split(name, PathSeparator)
}

// ResolvePath descends a nested value along path, indexing maps by key and
// sequences by decimal index. It returns false when any segment cannot be
// resolved; an absent state key or a path into a differently shaped value
// is a soft miss, not an error.
func ResolvePath(value any, path []string) (any, bool) {
	cur := value
	for _, seg := range path {
		switch v := cur.(type) {
		case map[string]any:
			next, ok := v[seg]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(v) {
				return nil, false
			}
			cur = v[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}

// ResolveRecordPath resolves a path whose first segment is a fixed record
// field, descending into the state payload (or any other nested field
// value) for the remaining segments.
func ResolveRecordPath(rec Record, path []string) (any, bool) {
	if len(path) == 0 {
		return nil, false
	}
	head, ok := rec.Field(path[0])
	if !ok {
		return nil, false
	}
	if len(path) == 1 {
		return head, true
	}
	return ResolvePath(head, path[1:])
}
