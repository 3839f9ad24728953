package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuery(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		want    Query
		wantErr bool
	}{
		{
			name: "empty document",
			text: "",
			want: Query{},
		},
		{
			name: "version filter normalised to int",
			text: `{"version": -1}`,
			want: Query{"version": -1},
		},
		{
			name: "nested filter",
			text: `{"state.colour": "red", "sort": {"ctime": -1}}`,
			want: Query{"state.colour": "red", "sort": map[string]any{"ctime": -1}},
		},
		{
			name:    "malformed document",
			text:    `{"version": `,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseQuery(tt.text)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %v want %v", got, tt.want)
		})
	}
}

func TestQuery_Equal_NumericForms(t *testing.T) {
	// A query re-parsed from its JSON rendering must compare equal to the
	// programmatically built one, despite JSON turning ints into floats.
	built := Query{"version": VersionLatest, "state.age": 35}
	parsed, err := ParseQuery(built.String())
	require.NoError(t, err)
	assert.True(t, parsed.Equal(built))
}

func TestQuery_Accessors(t *testing.T) {
	q := Query{
		"version": -1,
		"type":    "garden.plant",
		"obj_id":  []any{"id1", "id2"},
		"sort":    map[string]any{"state.height": -1, "ctime": 1},
	}

	assert.True(t, q.ShowCurrent())
	assert.Equal(t, "garden.plant", q.TypeRestriction())
	assert.Equal(t, []string{"id1", "id2"}, q.ObjIDs())

	keys := q.Sort()
	require.Len(t, keys, 2)
	assert.Equal(t, SortKey{Path: "ctime", Ascending: true}, keys[0])
	assert.Equal(t, SortKey{Path: "state.height", Ascending: false}, keys[1])

	filters := q.Filters()
	assert.NotContains(t, filters, QueryKeySort)
	assert.Contains(t, filters, "type")
}

func TestQuery_MergeDoesNotMutate(t *testing.T) {
	q := Query{"version": -1}
	merged := q.Merge(Query{"type": "x"})

	assert.Equal(t, Query{"version": -1}, q)
	assert.True(t, merged.Equal(Query{"version": -1, "type": "x"}))
}
