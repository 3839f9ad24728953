package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronicle-labs/chronicle/internal/model"
	"github.com/chronicle-labs/chronicle/pkg/core"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	a := New(context.Background(), Options{})
	a.width, a.height = 100, 40
	return a
}

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func testRecords(ids ...string) []core.Record {
	recs := make([]core.Record, len(ids))
	for i, id := range ids {
		recs[i] = core.Record{
			ObjID:   id,
			Version: 0,
			TypeID:  "garden.plant",
			CTime:   time.Now(),
			MTime:   time.Now(),
			State:   map[string]any{"colour": "red"},
		}
	}
	return recs
}

func (a *App) feed(t *testing.T, msg tea.Msg) {
	t.Helper()
	m, _ := a.Update(msg)
	require.Same(t, a, m)
}

func TestApp_StreamBatchesAppend(t *testing.T) {
	a := newTestApp(t)

	a.feed(t, streamMsg{event: model.StreamEvent{Kind: model.StreamInvalidated, Epoch: 1}})
	a.feed(t, streamMsg{event: model.StreamEvent{Kind: model.StreamBatch, Epoch: 1, Records: testRecords("a", "b")}})
	a.feed(t, streamMsg{event: model.StreamEvent{Kind: model.StreamDrained, Epoch: 1}})

	assert.Equal(t, 2, a.table.RowCount())
	assert.True(t, a.drained)
}

func TestApp_StaleBatchDropped(t *testing.T) {
	a := newTestApp(t)

	a.feed(t, streamMsg{event: model.StreamEvent{Kind: model.StreamInvalidated, Epoch: 1}})
	a.feed(t, streamMsg{event: model.StreamEvent{Kind: model.StreamInvalidated, Epoch: 2}})

	// Late delivery from the superseded query must not land.
	a.feed(t, streamMsg{event: model.StreamEvent{Kind: model.StreamBatch, Epoch: 1, Records: testRecords("stale")}})
	assert.Equal(t, 0, a.table.RowCount())

	a.feed(t, streamMsg{event: model.StreamEvent{Kind: model.StreamBatch, Epoch: 2, Records: testRecords("fresh")}})
	assert.Equal(t, 1, a.table.RowCount())
}

func TestApp_InvalidationResetsTableAndTree(t *testing.T) {
	a := newTestApp(t)

	a.feed(t, streamMsg{event: model.StreamEvent{Kind: model.StreamInvalidated, Epoch: 1}})
	a.feed(t, streamMsg{event: model.StreamEvent{Kind: model.StreamBatch, Epoch: 1, Records: testRecords("a")}})
	a.selectRecord()
	require.NotEmpty(t, a.treePane.rows)

	a.feed(t, streamMsg{event: model.StreamEvent{Kind: model.StreamInvalidated, Epoch: 2}})
	assert.Equal(t, 0, a.table.RowCount())
	assert.Empty(t, a.treePane.rows)
	assert.Equal(t, 0, a.cursor)
}

func TestApp_ParseErrorPreservesResults(t *testing.T) {
	a := newTestApp(t)
	a.feed(t, streamMsg{event: model.StreamEvent{Kind: model.StreamInvalidated, Epoch: 1}})
	a.feed(t, streamMsg{event: model.StreamEvent{Kind: model.StreamBatch, Epoch: 1, Records: testRecords("a", "b")}})
	before := a.qstate.GetQuery()

	a.feed(t, tea.KeyMsg{Type: tea.KeyTab})
	require.Equal(t, focusQuery, a.focus)

	a.queryInput.SetValue(`{"type": unquoted}`)
	a.feed(t, tea.KeyMsg{Type: tea.KeyEnter})

	assert.NotEmpty(t, a.parseErr)
	assert.Equal(t, focusQuery, a.focus, "a broken document keeps the editor open")
	assert.Equal(t, 2, a.table.RowCount())
	assert.True(t, before.Equal(a.qstate.GetQuery()))
}

func TestApp_QuerySubmit(t *testing.T) {
	a := newTestApp(t)
	a.feed(t, tea.KeyMsg{Type: tea.KeyTab})

	a.queryInput.SetValue(`{"type": "garden.plant"}`)
	a.feed(t, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Empty(t, a.parseErr)
	assert.Equal(t, focusTable, a.focus)
	assert.Equal(t, "garden.plant", a.qstate.GetQuery().TypeRestriction())
}

func TestApp_ConfirmRoundTrip(t *testing.T) {
	a := newTestApp(t)

	resp := make(chan bool, 1)
	a.feed(t, confirmMsg{req: confirmRequest{prompt: "Delete 1 object(s)?", resp: resp}})
	require.Equal(t, focusConfirm, a.focus)

	a.feed(t, keyRune('y'))

	select {
	case answer := <-resp:
		assert.True(t, answer)
	default:
		t.Fatal("no answer delivered to the waiting actioner")
	}
	assert.Equal(t, focusTable, a.focus)
	assert.Nil(t, a.pending)
}

func TestApp_ConfirmDeclined(t *testing.T) {
	a := newTestApp(t)

	resp := make(chan bool, 1)
	a.feed(t, confirmMsg{req: confirmRequest{prompt: "sure?", resp: resp}})
	a.feed(t, tea.KeyMsg{Type: tea.KeyEsc})

	assert.False(t, <-resp)
	assert.Equal(t, focusTable, a.focus)
}

func TestApp_DeletedRemovesRows(t *testing.T) {
	a := newTestApp(t)
	a.feed(t, streamMsg{event: model.StreamEvent{Kind: model.StreamInvalidated, Epoch: 1}})
	a.feed(t, streamMsg{event: model.StreamEvent{Kind: model.StreamBatch, Epoch: 1, Records: testRecords("a", "b", "c")}})
	a.cursor = 2

	a.feed(t, deletedMsg{ids: []string{"b", "c"}})

	assert.Equal(t, 1, a.table.RowCount())
	assert.Equal(t, 0, a.cursor)
	rec, ok := a.table.GetRecord(0)
	require.True(t, ok)
	assert.Equal(t, "a", rec.ObjID)
}

func TestApp_ViewRenders(t *testing.T) {
	a := newTestApp(t)
	a.feed(t, streamMsg{event: model.StreamEvent{Kind: model.StreamInvalidated, Epoch: 1}})
	a.feed(t, streamMsg{event: model.StreamEvent{Kind: model.StreamBatch, Epoch: 1, Records: testRecords("a")}})
	a.selectRecord()

	out := a.View()
	assert.Contains(t, out, "query>")
	assert.Contains(t, out, "type")
	assert.Contains(t, out, "no store connected")
}
