package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronicle-labs/chronicle/pkg/core"
)

func setupTestStore(t *testing.T) *SQLStore {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err, "failed to open in-memory store")
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func seedRecords(t *testing.T, s *SQLStore, records ...core.Record) {
	t.Helper()
	require.NoError(t, s.SaveRecords(context.Background(), records))
}

func drain(t *testing.T, it *RecordIterator) []core.Record {
	t.Helper()
	var out []core.Record
	for {
		rec, ok := it.Next()
		if !ok {
			break
		}
		out = append(out, rec)
	}
	require.NoError(t, it.Err())
	return out
}

func TestOpen_Migrates(t *testing.T) {
	s := setupTestStore(t)

	rows, err := s.db.Query("SELECT obj_id, version, type_id, ctime, mtime, deleted, state FROM records LIMIT 1")
	require.NoError(t, err, "records table should exist after open")
	_ = rows.Close()
}

func TestFindRecords_RoundTrip(t *testing.T) {
	s := setupTestStore(t)
	seedRecords(t, s,
		core.Record{ObjID: "id1", TypeID: "garden.plant", State: map[string]any{"colour": "red", "height": 10}},
		core.Record{ObjID: "id2", TypeID: "garden.plant", State: map[string]any{"colour": "white"}},
		core.Record{ObjID: "id3", TypeID: "garden.person", State: map[string]any{"name": "martin", "age": 35}},
	)

	it, err := s.FindRecords(context.Background(), core.NewQuery())
	require.NoError(t, err)
	records := drain(t, it)

	require.Len(t, records, 3)
	assert.Equal(t, "id1", records[0].ObjID)
	assert.Equal(t, map[string]any{"colour": "red", "height": 10}, records[0].State)
	assert.False(t, records[0].CTime.IsZero())
}

func TestFindRecords_Filters(t *testing.T) {
	s := setupTestStore(t)
	seedRecords(t, s,
		core.Record{ObjID: "id1", TypeID: "garden.plant", State: map[string]any{"colour": "red"}},
		core.Record{ObjID: "id2", TypeID: "garden.plant", State: map[string]any{"colour": "white"}},
		core.Record{ObjID: "id3", TypeID: "garden.person", State: map[string]any{"name": "martin", "age": 35}},
	)

	tests := []struct {
		name    string
		query   core.Query
		wantIDs []string
	}{
		{
			name:    "type restriction",
			query:   core.Query{"type": "garden.person", "version": -1},
			wantIDs: []string{"id3"},
		},
		{
			name:    "state key equality",
			query:   core.Query{"state.colour": "red"},
			wantIDs: []string{"id1"},
		},
		{
			name:    "bare state key shorthand",
			query:   core.Query{"colour": "white"},
			wantIDs: []string{"id2"},
		},
		{
			name:    "numeric state value",
			query:   core.Query{"state.age": 35},
			wantIDs: []string{"id3"},
		},
		{
			name:    "object id list",
			query:   core.Query{"obj_id": []any{"id1", "id3"}},
			wantIDs: []string{"id1", "id3"},
		},
		{
			name:    "no match",
			query:   core.Query{"state.colour": "blue"},
			wantIDs: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			it, err := s.FindRecords(context.Background(), tt.query)
			require.NoError(t, err)
			var ids []string
			for _, rec := range drain(t, it) {
				ids = append(ids, rec.ObjID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestFindRecords_ShowCurrent(t *testing.T) {
	s := setupTestStore(t)
	// Two versions of the same object; version filter -1 must return only
	// the latest.
	seedRecords(t, s,
		core.Record{ObjID: "id1", Version: 0, TypeID: "t", State: map[string]any{"n": 1}},
	)
	seedRecords(t, s,
		core.Record{ObjID: "id1", TypeID: "t", State: map[string]any{"n": 2}},
	)

	it, err := s.FindRecords(context.Background(), core.NewQuery())
	require.NoError(t, err)
	records := drain(t, it)
	require.Len(t, records, 1)
	assert.Equal(t, 1, records[0].Version)
	assert.Equal(t, map[string]any{"n": 2}, records[0].State)

	// Without the filter all versions come back.
	it, err = s.FindRecords(context.Background(), core.Query{})
	require.NoError(t, err)
	assert.Len(t, drain(t, it), 2)
}

func TestFindRecords_Sort(t *testing.T) {
	s := setupTestStore(t)
	seedRecords(t, s,
		core.Record{ObjID: "a", TypeID: "t", State: map[string]any{"height": 30}},
		core.Record{ObjID: "b", TypeID: "t", State: map[string]any{"height": 10}},
		core.Record{ObjID: "c", TypeID: "t", State: map[string]any{"height": 20}},
	)

	q := core.Query{"sort": core.SortSpec("state.height", false)}
	it, err := s.FindRecords(context.Background(), q)
	require.NoError(t, err)

	var ids []string
	for _, rec := range drain(t, it) {
		ids = append(ids, rec.ObjID)
	}
	assert.Equal(t, []string{"a", "c", "b"}, ids)
}

func TestFindRecords_RejectsHostileField(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.FindRecords(context.Background(), core.Query{"state.x; DROP TABLE records": 1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid field")
}

func TestDelete(t *testing.T) {
	s := setupTestStore(t)
	seedRecords(t, s,
		core.Record{ObjID: "id1", TypeID: "t", State: map[string]any{}},
		core.Record{ObjID: "id2", TypeID: "t", State: map[string]any{}},
	)

	deleted, err := s.Delete(context.Background(), "id1", "id2")
	require.NoError(t, err)
	assert.Equal(t, []string{"id1", "id2"}, deleted)

	// Deleted objects disappear from the current view.
	it, err := s.FindRecords(context.Background(), core.NewQuery())
	require.NoError(t, err)
	assert.Empty(t, drain(t, it))
}

func TestDelete_NotFoundRollsBackBatch(t *testing.T) {
	s := setupTestStore(t)
	seedRecords(t, s, core.Record{ObjID: "id1", TypeID: "t", State: map[string]any{}})

	_, err := s.Delete(context.Background(), "id1", "missing")
	require.ErrorIs(t, err, core.ErrNotFound)

	// All-or-nothing: id1 must survive the failed batch.
	it, err := s.FindRecords(context.Background(), core.NewQuery())
	require.NoError(t, err)
	assert.Len(t, drain(t, it), 1)
}

func TestLoadAndLoadSnapshot(t *testing.T) {
	s := setupTestStore(t)
	seedRecords(t, s, core.Record{ObjID: "id1", Version: 0, TypeID: "t", State: map[string]any{"n": 1}})
	seedRecords(t, s, core.Record{ObjID: "id1", TypeID: "t", State: map[string]any{"n": 2}})

	latest, err := s.Load(context.Background(), "id1")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"n": 2}, latest)

	old, err := s.LoadSnapshot(context.Background(), core.SnapshotID{ObjID: "id1", Version: 0})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"n": 1}, old)

	_, err = s.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestLoad_AdaptsFilePayload(t *testing.T) {
	s := setupTestStore(t)
	seedRecords(t, s, core.Record{
		ObjID:  "f1",
		TypeID: FileTypeID,
		State:  map[string]any{"filename": "notes.txt", "content": "hello"},
	})

	obj, err := s.Load(context.Background(), "f1")
	require.NoError(t, err)

	insp, ok := obj.(core.Inspectable)
	require.True(t, ok, "file payloads should load as inspectable objects")
	fields := insp.Fields()
	require.Len(t, fields, 2)
	assert.Equal(t, "content", fields[0].Name)
}

func TestFindDistinct(t *testing.T) {
	s := setupTestStore(t)
	seedRecords(t, s,
		core.Record{ObjID: "a", TypeID: "garden.plant", State: map[string]any{}},
		core.Record{ObjID: "b", TypeID: "garden.plant", State: map[string]any{}},
		core.Record{ObjID: "c", TypeID: "garden.person", State: map[string]any{}},
	)

	types, err := s.FindDistinct(context.Background(), core.FieldTypeID)
	require.NoError(t, err)
	assert.Equal(t, []string{"garden.person", "garden.plant"}, types)

	_, err = s.FindDistinct(context.Background(), "state.colour")
	assert.Error(t, err)
}

func TestSaveRecords_AssignsIDsAndVersions(t *testing.T) {
	s := setupTestStore(t)
	before := time.Now().UTC().Add(-time.Second)

	require.NoError(t, s.SaveRecords(context.Background(), []core.Record{
		{TypeID: "t", State: map[string]any{"k": "v"}},
	}))

	it, err := s.FindRecords(context.Background(), core.NewQuery())
	require.NoError(t, err)
	records := drain(t, it)
	require.Len(t, records, 1)
	assert.NotEmpty(t, records[0].ObjID)
	assert.Equal(t, 0, records[0].Version)
	assert.True(t, records[0].CTime.After(before))
}

func TestHelperRegistry(t *testing.T) {
	r := DefaultHelpers()

	h, err := r.Get(FileTypeID)
	require.NoError(t, err)
	assert.True(t, h.IsFile())
	assert.Equal(t, "File", h.Name)

	_, err = r.Get("no.such.type")
	assert.ErrorIs(t, err, core.ErrUnknownType)

	r.Register(&TypeHelper{TypeID: "garden.plant", Name: "Plant"})
	name, err := r.Get("garden.plant")
	require.NoError(t, err)
	assert.Equal(t, "Plant", name.Name)
}
