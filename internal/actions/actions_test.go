package actions

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronicle-labs/chronicle/internal/store"
	"github.com/chronicle-labs/chronicle/pkg/core"
)

type recordingNotifier struct {
	infos, warns, errors []string
}

func (n *recordingNotifier) Info(msg string)  { n.infos = append(n.infos, msg) }
func (n *recordingNotifier) Warn(msg string)  { n.warns = append(n.warns, msg) }
func (n *recordingNotifier) Error(msg string) { n.errors = append(n.errors, msg) }

type stubConfirmer bool

func (c stubConfirmer) Confirm(string) bool { return bool(c) }

type memClipboard struct{ text string }

func (c *memClipboard) Write(text string) error { c.text = text; return nil }

func openSeededStore(t *testing.T, records ...core.Record) *store.SQLStore {
	t.Helper()
	s, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.SaveRecords(context.Background(), records))
	return s
}

func countRecords(t *testing.T, s *store.SQLStore) int {
	t.Helper()
	it, err := s.FindRecords(context.Background(), core.NewQuery())
	require.NoError(t, err)
	n := 0
	for {
		if _, ok := it.Next(); !ok {
			break
		}
		n++
	}
	require.NoError(t, it.Err())
	return n
}

func TestRegistry_ProbeAllSortedByActionName(t *testing.T) {
	s := openSeededStore(t, core.Record{ObjID: "id1", TypeID: "t", State: map[string]any{}})
	actx := Context{
		KeyStore:     store.Store(s),
		KeyClipboard: Clipboard(&memClipboard{}),
	}

	offered := DefaultRegistry().ProbeAll(SelectRecord(core.Record{ObjID: "id1", TypeID: "t"}), actx)

	names := make([]string, len(offered))
	for i, a := range offered {
		names[i] = a.Name
	}
	assert.Equal(t, []string{ActionCopyID, ActionDelete}, names)
}

func TestRegistry_Find(t *testing.T) {
	r := DefaultRegistry()
	assert.NotNil(t, r.Find("delete"))
	assert.Nil(t, r.Find("no-such-actioner"))
}

func TestDeleteActioner_ConfirmedFlow(t *testing.T) {
	s := openSeededStore(t,
		core.Record{ObjID: "id1", TypeID: "t", State: map[string]any{}},
		core.Record{ObjID: "id2", TypeID: "t", State: map[string]any{}},
	)
	notifier := &recordingNotifier{}
	var deletedIDs []string
	actx := Context{
		KeyStore:     store.Store(s),
		KeyConfirmer: Confirmer(stubConfirmer(true)),
		KeyNotifier:  Notifier(notifier),
		KeyOnDeleted: func(ids []string) { deletedIDs = ids },
	}

	sel := SelectRecords([]core.Record{{ObjID: "id1"}, {ObjID: "id2"}})
	require.NoError(t, DeleteActioner{}.Do(ActionDelete, sel, actx))

	assert.Equal(t, []string{"id1", "id2"}, deletedIDs)
	assert.Zero(t, countRecords(t, s))
	assert.Len(t, notifier.infos, 1)
}

func TestDeleteActioner_DeclinedLeavesStore(t *testing.T) {
	s := openSeededStore(t, core.Record{ObjID: "id1", TypeID: "t", State: map[string]any{}})
	actx := Context{
		KeyStore:     store.Store(s),
		KeyConfirmer: Confirmer(stubConfirmer(false)),
	}

	require.NoError(t, DeleteActioner{}.Do(ActionDelete, SelectRecord(core.Record{ObjID: "id1"}), actx))
	assert.Equal(t, 1, countRecords(t, s))
}

func TestDeleteActioner_MissingObjectIsWarningNotError(t *testing.T) {
	s := openSeededStore(t)
	notifier := &recordingNotifier{}
	actx := Context{
		KeyStore:    store.Store(s),
		KeyNotifier: Notifier(notifier),
	}

	err := DeleteActioner{}.Do(ActionDelete, SelectRecord(core.Record{ObjID: "ghost"}), actx)
	require.NoError(t, err, "deleting an already-gone object must not fail")
	assert.Len(t, notifier.warns, 1)
}

func TestCopyActioner(t *testing.T) {
	clip := &memClipboard{}
	actx := Context{KeyClipboard: Clipboard(clip)}

	sel := SelectRecords([]core.Record{{ObjID: "id1"}, {ObjID: "id2"}})
	assert.Equal(t, []string{ActionCopyID}, CopyActioner{}.Probe(sel, actx))
	require.NoError(t, CopyActioner{}.Do(ActionCopyID, sel, actx))
	assert.Equal(t, "id1\nid2", clip.text)

	val := SelectValue(map[string]any{"colour": "red"})
	assert.Equal(t, []string{ActionCopy}, CopyActioner{}.Probe(val, actx))
	require.NoError(t, CopyActioner{}.Do(ActionCopy, val, actx))
	assert.Equal(t, "{colour: red}", clip.text)

	// No clipboard capability: nothing offered.
	assert.Nil(t, CopyActioner{}.Probe(sel, Context{}))
}

func TestSaveFileActioner(t *testing.T) {
	rec := core.Record{
		ObjID:  "f1",
		TypeID: store.FileTypeID,
		State:  map[string]any{"filename": "notes.txt", "content": "hello"},
	}
	s := openSeededStore(t, rec)
	dir := t.TempDir()
	actx := Context{
		KeyStore:   store.Store(s),
		KeySaveDir: dir,
	}

	assert.Equal(t, []string{ActionSaveFile}, SaveFileActioner{}.Probe(SelectRecord(rec), actx))
	require.NoError(t, SaveFileActioner{}.Do(ActionSaveFile, SelectRecord(rec), actx))

	data, err := os.ReadFile(filepath.Join(dir, "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	// Non-file types are not offered the action.
	plain := core.Record{ObjID: "p1", TypeID: "t"}
	assert.Nil(t, SaveFileActioner{}.Probe(SelectRecord(plain), actx))
}

func TestBuildMenu(t *testing.T) {
	s := openSeededStore(t, core.Record{ObjID: "id1", TypeID: "t", State: map[string]any{}})
	actx := Context{
		KeyStore:     store.Store(s),
		KeyClipboard: Clipboard(&memClipboard{}),
	}
	reg := DefaultRegistry()

	menu := BuildMenu(reg, []Group{
		{Label: "Selected rows", Selection: SelectRecord(core.Record{ObjID: "id1", TypeID: "t"})},
		{Label: "Value", Selection: SelectValue(nil)},
	}, actx)

	// The nil-value group offers nothing and is dropped entirely.
	require.Len(t, menu.Sections, 1)
	assert.Equal(t, "Selected rows", menu.Sections[0].Label)
	assert.False(t, menu.Empty())

	empty := BuildMenu(reg, nil, actx)
	assert.True(t, empty.Empty())
}

func TestMenuItem_InvokeRoutesErrorsToNotifier(t *testing.T) {
	notifier := &recordingNotifier{}
	actx := Context{KeyNotifier: Notifier(notifier)}

	item := MenuItem{
		Label:     ActionSaveFile,
		Actioner:  SaveFileActioner{},
		Selection: SelectRecord(core.Record{ObjID: "id1", TypeID: "t"}),
	}
	item.Invoke(actx) // store is absent; Helper lookup fails

	require.Len(t, notifier.errors, 1)
}
