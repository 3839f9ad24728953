package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestResolvePath(t *testing.T) {
	value := map[string]any{
		"colour": "red",
		"dims":   map[string]any{"h": 10, "w": 20},
		"tags":   []any{"a", "b"},
	}

	tests := []struct {
		name   string
		path   []string
		want   any
		wantOK bool
	}{
		{"top level key", []string{"colour"}, "red", true},
		{"nested key", []string{"dims", "h"}, 10, true},
		{"sequence index", []string{"tags", "1"}, "b", true},
		{"missing key", []string{"size"}, nil, false},
		{"index out of range", []string{"tags", "7"}, nil, false},
		{"index into scalar", []string{"colour", "0"}, nil, false},
		{"non-numeric index", []string{"tags", "x"}, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolvePath(value, tt.path)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveRecordPath(t *testing.T) {
	rec := Record{
		ObjID:  "id1",
		TypeID: "garden.plant",
		CTime:  time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		State:  map[string]any{"colour": "red"},
	}

	v, ok := ResolveRecordPath(rec, []string{"obj_id"})
	assert.True(t, ok)
	assert.Equal(t, "id1", v)

	v, ok = ResolveRecordPath(rec, []string{"state", "colour"})
	assert.True(t, ok)
	assert.Equal(t, "red", v)

	// Absent state key is a soft miss.
	_, ok = ResolveRecordPath(rec, []string{"state", "size"})
	assert.False(t, ok)

	_, ok = ResolveRecordPath(rec, []string{"no_such_field"})
	assert.False(t, ok)
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "", FormatValue(nil, 40))
	assert.Equal(t, "red", FormatValue("red", 40))
	assert.Equal(t, "{a: 1, b: [x]}", FormatValue(map[string]any{"a": 1, "b": []any{"x"}}, 40))

	long := FormatValue(map[string]any{"k": string(make([]byte, 400))}, 20)
	assert.Len(t, []rune(long), 20)
	assert.Contains(t, long, "...")

	// Previous-year timestamps keep the year.
	old := time.Date(2019, 3, 5, 12, 0, 0, 0, time.UTC)
	assert.Contains(t, FormatValue(old, 0), "2019")
}
