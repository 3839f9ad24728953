// Package plugin loads actioner plugins from Starlark files. A plugin
// exports a name, a probe function offering actions for a selection, and a
// do function performing them; records cross the boundary as plain dicts.
package plugin

import (
	"fmt"
	"time"

	"go.starlark.net/starlark"

	"github.com/chronicle-labs/chronicle/internal/actions"
	"github.com/chronicle-labs/chronicle/pkg/core"
)

// goToStarlark converts a Go value to its Starlark form. Timestamps become
// RFC3339 strings; unknown types are an error.
func goToStarlark(v any) (starlark.Value, error) {
	if v == nil {
		return starlark.None, nil
	}

	switch val := v.(type) {
	case string:
		return starlark.String(val), nil
	case int:
		return starlark.MakeInt(val), nil
	case int64:
		return starlark.MakeInt64(val), nil
	case float64:
		return starlark.Float(val), nil
	case bool:
		return starlark.Bool(val), nil
	case time.Time:
		return starlark.String(val.Format(time.RFC3339)), nil
	case core.Record:
		return recordToStarlark(val)
	case []any:
		list := make([]starlark.Value, len(val))
		for i, item := range val {
			sv, err := goToStarlark(item)
			if err != nil {
				return nil, fmt.Errorf("list index %d: %w", i, err)
			}
			list[i] = sv
		}
		return starlark.NewList(list), nil
	case map[string]any:
		dict := starlark.NewDict(len(val))
		for k, item := range val {
			sv, err := goToStarlark(item)
			if err != nil {
				return nil, fmt.Errorf("dict key %q: %w", k, err)
			}
			if err := dict.SetKey(starlark.String(k), sv); err != nil {
				return nil, fmt.Errorf("dict key %q: %w", k, err)
			}
		}
		return dict, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// recordToStarlark exposes a record as a dict with the fixed field names.
func recordToStarlark(rec core.Record) (starlark.Value, error) {
	return goToStarlark(rec.AsMap())
}

// selectionToStarlark converts a selection: a record dict, a list of record
// dicts, or the plain value.
func selectionToStarlark(sel actions.Selection) (starlark.Value, error) {
	switch sel.Kind {
	case actions.SingleRecord:
		return recordToStarlark(sel.Record)
	case actions.RecordList:
		list := make([]any, len(sel.Records))
		for i, rec := range sel.Records {
			list[i] = rec
		}
		return goToStarlark(list)
	default:
		return goToStarlark(sel.Value)
	}
}

// starlarkToGo converts a Starlark value back to a Go value: string, int64,
// float64, bool, []any, map[string]any or nil.
func starlarkToGo(v starlark.Value) (any, error) {
	switch val := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.String:
		return string(val), nil
	case starlark.Int:
		i64, ok := val.Int64()
		if !ok {
			return val.String(), nil
		}
		return i64, nil
	case starlark.Float:
		return float64(val), nil
	case starlark.Bool:
		return bool(val), nil
	case *starlark.List:
		out := make([]any, val.Len())
		for i := 0; i < val.Len(); i++ {
			gv, err := starlarkToGo(val.Index(i))
			if err != nil {
				return nil, fmt.Errorf("list index %d: %w", i, err)
			}
			out[i] = gv
		}
		return out, nil
	case starlark.Tuple:
		out := make([]any, val.Len())
		for i := 0; i < val.Len(); i++ {
			gv, err := starlarkToGo(val.Index(i))
			if err != nil {
				return nil, fmt.Errorf("tuple index %d: %w", i, err)
			}
			out[i] = gv
		}
		return out, nil
	case *starlark.Dict:
		out := make(map[string]any)
		for _, item := range val.Items() {
			key, ok := item[0].(starlark.String)
			if !ok {
				return nil, fmt.Errorf("dict key must be string, got %T", item[0])
			}
			gv, err := starlarkToGo(item[1])
			if err != nil {
				return nil, fmt.Errorf("dict key %q: %w", key, err)
			}
			out[string(key)] = gv
		}
		return out, nil
	default:
		return val.String(), nil
	}
}

// stringList interprets a probe result: None means no offers, otherwise a
// list of action names.
func stringList(v starlark.Value) ([]string, error) {
	if _, ok := v.(starlark.NoneType); ok {
		return nil, nil
	}
	list, ok := v.(*starlark.List)
	if !ok {
		return nil, fmt.Errorf("expected a list of action names, got %s", v.Type())
	}
	out := make([]string, 0, list.Len())
	for i := 0; i < list.Len(); i++ {
		s, ok := list.Index(i).(starlark.String)
		if !ok {
			return nil, fmt.Errorf("action name at index %d is %s, not a string", i, list.Index(i).Type())
		}
		out = append(out, string(s))
	}
	return out, nil
}
