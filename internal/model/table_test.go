package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronicle-labs/chronicle/pkg/core"
)

type fakeNamer map[string]string

func (n fakeNamer) ObjType(typeID string) (string, error) {
	if name, ok := n[typeID]; ok {
		return name, nil
	}
	return "", core.ErrUnknownType
}

func stateRecord(objID string, state map[string]any) core.Record {
	return core.Record{ObjID: objID, TypeID: "t", State: state}
}

func columnTitles(t *EntryTable) []string {
	cols := t.Columns()
	titles := make([]string, len(cols))
	for i, c := range cols {
		titles[i] = c.Title()
	}
	return titles
}

func TestEntryTable_FixedColumnsPrecedeStateColumns(t *testing.T) {
	table := NewEntryTable(nil)
	table.AppendRecords([]core.Record{
		stateRecord("id1", map[string]any{"zebra": 1, "apple": 2}),
	})

	assert.Equal(t,
		[]string{"type", "created", "modified", "version", "apple", "zebra"},
		columnTitles(table))
}

func TestEntryTable_FetchMoreBatching(t *testing.T) {
	table := NewEntryTable(nil)
	table.pageSize = 3

	var inserts []RowsInserted
	table.Subscribe(func(e TableEvent) {
		if ins, ok := e.(RowsInserted); ok {
			inserts = append(inserts, ins)
		}
	})

	src := &sliceSource{records: makeRecords(7)}
	require.NoError(t, table.SetSource(src))

	// The first page arrives synchronously with SetSource.
	require.Len(t, inserts, 1)
	assert.Equal(t, RowsInserted{Row: 0, Count: 3}, inserts[0])
	assert.True(t, table.CanFetchMore())

	for table.CanFetchMore() {
		_, err := table.FetchMore()
		require.NoError(t, err)
	}

	// 7 rows with page size 3: insert events of 3, 3, 1.
	assert.Equal(t, []RowsInserted{
		{Row: 0, Count: 3},
		{Row: 3, Count: 3},
		{Row: 6, Count: 1},
	}, inserts)
	assert.Equal(t, 7, table.RowCount())
	assert.False(t, table.CanFetchMore())

	// Fetching past the end is a harmless no-op.
	n, err := table.FetchMore()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestEntryTable_SetSourceResets(t *testing.T) {
	table := NewEntryTable(nil)
	require.NoError(t, table.SetSource(&sliceSource{records: []core.Record{
		stateRecord("id1", map[string]any{"colour": "red"}),
	}}))
	require.Equal(t, 1, table.RowCount())

	var events []TableEvent
	table.Subscribe(func(e TableEvent) { events = append(events, e) })

	require.NoError(t, table.SetSource(&sliceSource{records: []core.Record{
		stateRecord("id2", map[string]any{"height": 10}),
	}}))

	require.Len(t, events, 4)
	assert.Equal(t, RowsRemoved{Row: 0, Count: 1}, events[0])
	assert.Equal(t, ColumnsRemoved{Cols: []int{4}}, events[1])
	assert.Equal(t, ColumnsInserted{Cols: []int{4}}, events[2])
	assert.Equal(t, RowsInserted{Row: 0, Count: 1}, events[3])
	assert.Equal(t, []string{"type", "created", "modified", "version", "height"}, columnTitles(table))
}

func TestEntryTable_InferenceAndPruning(t *testing.T) {
	table := NewEntryTable(nil)
	table.AppendRecords([]core.Record{
		stateRecord("id1", map[string]any{"a": 1, "b": 2}),
		stateRecord("id2", map[string]any{"b": 3, "c": 4}),
		stateRecord("id3", map[string]any{"c": 5}),
	})
	require.Equal(t,
		[]string{"type", "created", "modified", "version", "a", "b", "c"},
		columnTitles(table))

	// Removing the only row carrying "a" prunes exactly that column.
	table.RemoveRecord(0)
	assert.Equal(t,
		[]string{"type", "created", "modified", "version", "b", "c"},
		columnTitles(table))

	table.RemoveRecord(0)
	assert.Equal(t,
		[]string{"type", "created", "modified", "version", "c"},
		columnTitles(table))
}

func TestEntryTable_ColumnDiscoveryWithUnsetCells(t *testing.T) {
	table := NewEntryTable(fakeNamer{"t": "Thing"})
	table.AppendRecords([]core.Record{
		stateRecord("id1", map[string]any{"colour": "red"}),
		stateRecord("id2", map[string]any{"height": 10}),
		stateRecord("id3", map[string]any{"colour": "blue", "height": 20}),
	})

	titles := columnTitles(table)
	colourCol := indexOf(t, titles, "colour")
	heightCol := indexOf(t, titles, "height")

	assert.Equal(t, "red", table.RawValue(0, colourCol))
	assert.Nil(t, table.RawValue(0, heightCol), "unset cell must resolve to nil")
	assert.Equal(t, "", table.Display(0, heightCol))
	assert.Equal(t, 10, table.RawValue(1, heightCol))
	assert.Equal(t, "blue", table.RawValue(2, colourCol))

	assert.Equal(t, "Thing", table.RawValue(0, 0), "type column shows the helper name")
	assert.True(t, table.Emphasized(0))
	assert.False(t, table.Emphasized(colourCol))
}

func TestEntryTable_RemoveMatching(t *testing.T) {
	table := NewEntryTable(nil)
	table.AppendRecords([]core.Record{
		stateRecord("id1", map[string]any{"a": 1}),
		stateRecord("id2", map[string]any{"b": 2}),
		stateRecord("id3", map[string]any{"a": 3}),
	})

	removed := table.RemoveMatching(func(rec core.Record) bool {
		return rec.ObjID == "id1" || rec.ObjID == "id3"
	})
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, table.RowCount())

	rec, ok := table.GetRecord(0)
	require.True(t, ok)
	assert.Equal(t, "id2", rec.ObjID)
	assert.Equal(t,
		[]string{"type", "created", "modified", "version", "b"},
		columnTitles(table), "keys exclusive to removed rows are pruned")
}

func TestEntryTable_SortRequestsOnlyForPathColumns(t *testing.T) {
	table := NewEntryTable(nil)
	table.AppendRecords([]core.Record{stateRecord("id1", map[string]any{"height": 1})})

	var requests []SortRequested
	table.Subscribe(func(e TableEvent) {
		if req, ok := e.(SortRequested); ok {
			requests = append(requests, req)
		}
	})

	table.Sort(1, true)  // created
	table.Sort(4, false) // state.height
	table.Sort(99, true) // out of range

	assert.Equal(t, []SortRequested{
		{Path: "ctime", Ascending: true},
		{Path: "state.height", Ascending: false},
	}, requests)
}

func TestEntryTable_ManualColumns(t *testing.T) {
	table := NewEntryTable(nil)
	table.AppendColumns(StateColumn{Key: "zebra"}, StateColumn{Key: "apple"})
	assert.Equal(t,
		[]string{"type", "created", "modified", "version", "apple", "zebra"},
		columnTitles(table))

	// Duplicates are ignored.
	table.AppendColumns(StateColumn{Key: "apple"})
	assert.Equal(t, 6, table.ColumnCount())

	table.RemoveColumns("zebra")
	assert.Equal(t,
		[]string{"type", "created", "modified", "version", "apple"},
		columnTitles(table))

	table.ClearColumns()
	assert.Equal(t, []string{"type", "created", "modified", "version"}, columnTitles(table))
}

func TestEntryTable_AppendColumnsEventListsOnlyNewColumns(t *testing.T) {
	table := NewEntryTable(nil)
	table.AppendColumns(StateColumn{Key: "apple"})

	var inserts []ColumnsInserted
	table.Subscribe(func(e TableEvent) {
		if ins, ok := e.(ColumnsInserted); ok {
			inserts = append(inserts, ins)
		}
	})

	// "apple" is already present: only "new" may appear in the event.
	table.AppendColumns(StateColumn{Key: "apple"}, StateColumn{Key: "new"})
	require.Len(t, inserts, 1)
	assert.Equal(t, ColumnsInserted{Cols: []int{5}}, inserts[0])

	// All duplicates: no event at all.
	table.AppendColumns(StateColumn{Key: "apple"}, StateColumn{Key: "new"})
	assert.Len(t, inserts, 1)
}

func TestEntryTable_SetColumns(t *testing.T) {
	table := NewEntryTable(nil)
	table.AppendColumns(StateColumn{Key: "old1"}, StateColumn{Key: "old2"})

	var events []TableEvent
	table.Subscribe(func(e TableEvent) { events = append(events, e) })

	table.SetColumns(StateColumn{Key: "zebra"}, StateColumn{Key: "apple"})

	require.Len(t, events, 2)
	assert.Equal(t, ColumnsRemoved{Cols: []int{4, 5}}, events[0])
	assert.Equal(t, ColumnsInserted{Cols: []int{4, 5}}, events[1])
	assert.Equal(t,
		[]string{"type", "created", "modified", "version", "apple", "zebra"},
		columnTitles(table))

	// Replacing with nothing leaves only the fixed columns.
	table.SetColumns()
	assert.Equal(t, []string{"type", "created", "modified", "version"}, columnTitles(table))
}

func TestEntryTable_TooltipIsStaticColumnText(t *testing.T) {
	table := NewEntryTable(nil)
	table.AppendRecords([]core.Record{
		stateRecord("id1", map[string]any{"colour": "red"}),
	})

	assert.Equal(t, "Object type", table.Tooltip(0))
	assert.Equal(t, "Creation time", table.Tooltip(1))
	assert.Equal(t, "Modification time", table.Tooltip(2))
	assert.Equal(t, "Version", table.Tooltip(3))

	colourCol := indexOf(t, columnTitles(table), "colour")
	assert.NotEqual(t, "red", table.Tooltip(colourCol),
		"tooltip must not leak the cell value")
	assert.Empty(t, table.Tooltip(colourCol))
	assert.Empty(t, table.Tooltip(99))
}

func indexOf(t *testing.T, titles []string, want string) int {
	t.Helper()
	for i, title := range titles {
		if title == want {
			return i
		}
	}
	t.Fatalf("column %q not found in %v", want, titles)
	return -1
}
