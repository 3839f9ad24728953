package core

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// DisplayMaxLength bounds the pretty-printed form of a table cell.
const DisplayMaxLength = 100

// FormatValue pretty-prints a value on a single line, truncated to maxLen
// runes. Timestamps in the current year omit the year, matching how the
// entry table keeps its time columns narrow.
func FormatValue(v any, maxLen int) string {
	s := formatValue(v, 0)
	s = strings.ReplaceAll(s, "\n", " ")
	if maxLen > 0 {
		if r := []rune(s); len(r) > maxLen {
			s = string(r[:maxLen-3]) + "..."
		}
	}
	return s
}

func formatValue(v any, depth int) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case time.Time:
		if val.Year() == time.Now().Year() {
			return val.Format("Jan 02 15:04:05")
		}
		return val.Format("Jan 02 2006 15:04:05")
	case map[string]any:
		if depth >= 2 {
			return "{...}"
		}
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+formatValue(val[k], depth+1))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case []any:
		if depth >= 2 {
			return "[...]"
		}
		parts := make([]string, 0, len(val))
		for _, e := range val {
			parts = append(parts, formatValue(e, depth+1))
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return fmt.Sprintf("%v", val)
	}
}

// TypeLabel returns the short human-readable label shown in the detail
// tree's type column.
func TypeLabel(v any) string {
	switch v.(type) {
	case nil:
		return "none"
	case string:
		return "str"
	case bool:
		return "bool"
	case int, int64:
		return "int"
	case float64:
		return "float"
	case time.Time:
		return "datetime"
	case map[string]any:
		return "dict"
	case []any:
		return "list"
	case Record:
		return "record"
	case Inspectable:
		return "object"
	default:
		return strings.TrimPrefix(fmt.Sprintf("%T", v), "*")
	}
}
