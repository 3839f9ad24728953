package model

import (
	"sort"
	"sync"

	"github.com/chronicle-labs/chronicle/pkg/core"
)

// DefaultTablePage is how many records one FetchMore pulls from the source.
// Deliberately larger than the stream batch: fetching fills a screen,
// streaming keeps the first rows responsive.
const DefaultTablePage = 128

// TableEvent is a structural change to the entry table. Exactly one event
// is emitted per batch of changes of a kind.
type TableEvent interface{ isTableEvent() }

// RowsInserted reports a contiguous run of new rows.
type RowsInserted struct{ Row, Count int }

// RowsRemoved reports a contiguous run of removed rows.
type RowsRemoved struct{ Row, Count int }

// ColumnsInserted reports new columns by their final indices.
type ColumnsInserted struct{ Cols []int }

// ColumnsRemoved reports removed columns by their former indices.
type ColumnsRemoved struct{ Cols []int }

// SortRequested asks the owner to re-query ordered by a record path. The
// table never sorts in place; ordering is the database's job.
type SortRequested struct {
	Path      string
	Ascending bool
}

func (RowsInserted) isTableEvent()    {}
func (RowsRemoved) isTableEvent()     {}
func (ColumnsInserted) isTableEvent() {}
func (ColumnsRemoved) isTableEvent()  {}
func (SortRequested) isTableEvent()   {}

// EntryTable is the lazily growing table of query results. Fixed record
// columns come first; state columns are inferred from the rows present and
// kept name-sorted among themselves, appearing as rows introduce their keys
// and disappearing when the last row carrying a key is removed.
type EntryTable struct {
	mu        sync.Mutex
	obs       observers[TableEvent]
	fixed     []Column
	state     []Column
	rows      []core.Record
	src       RecordSource
	exhausted bool
	pageSize  int
}

// NewEntryTable returns an empty table with the fixed column set.
func NewEntryTable(namer TypeNamer) *EntryTable {
	return &EntryTable{
		fixed:    DefaultColumns(namer),
		pageSize: DefaultTablePage,
	}
}

// Subscribe registers an observer, returning its unsubscribe func.
func (t *EntryTable) Subscribe(fn func(TableEvent)) func() {
	return t.obs.subscribe(fn)
}

// RowCount returns the number of rows fetched so far.
func (t *EntryTable) RowCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.rows)
}

// ColumnCount returns the current number of columns.
func (t *EntryTable) ColumnCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.fixed) + len(t.state)
}

// Columns returns the current column list, fixed columns first.
func (t *EntryTable) Columns() []Column {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Column, 0, len(t.fixed)+len(t.state))
	out = append(out, t.fixed...)
	out = append(out, t.state...)
	return out
}

// GetRecord returns the record backing a row.
func (t *EntryTable) GetRecord(row int) (core.Record, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if row < 0 || row >= len(t.rows) {
		return core.Record{}, false
	}
	return t.rows[row], true
}

// SetSource resets the table onto a new record source: one remove event for
// the old rows, removal of the inferred columns, then the first page is
// fetched synchronously.
func (t *EntryTable) SetSource(src RecordSource) error {
	t.mu.Lock()
	var events []TableEvent
	if old := t.src; old != nil {
		_ = old.Close()
	}
	if n := len(t.rows); n > 0 {
		t.rows = nil
		events = append(events, RowsRemoved{Row: 0, Count: n})
	}
	if n := len(t.state); n > 0 {
		cols := make([]int, n)
		for i := range cols {
			cols[i] = len(t.fixed) + i
		}
		t.state = nil
		events = append(events, ColumnsRemoved{Cols: cols})
	}
	t.src = src
	t.exhausted = src == nil
	t.mu.Unlock()

	for _, e := range events {
		t.obs.notify(e)
	}
	if src == nil {
		return nil
	}
	_, err := t.FetchMore()
	return err
}

// CanFetchMore reports whether the source may still have records.
func (t *EntryTable) CanFetchMore() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.src != nil && !t.exhausted
}

// FetchMore pulls the next page from the source and appends it as a single
// insertion. Returns the number of rows added.
func (t *EntryTable) FetchMore() (int, error) {
	t.mu.Lock()
	if t.src == nil || t.exhausted {
		t.mu.Unlock()
		return 0, nil
	}
	page := make([]core.Record, 0, t.pageSize)
	for len(page) < t.pageSize {
		rec, ok := t.src.Next()
		if !ok {
			t.exhausted = true
			break
		}
		page = append(page, rec)
	}
	err := t.src.Err()
	events := t.appendLocked(page)
	t.mu.Unlock()

	for _, e := range events {
		t.obs.notify(e)
	}
	return len(page), err
}

// AppendRecords appends a batch directly, bypassing the source. Streaming
// consumers feed result batches through here.
func (t *EntryTable) AppendRecords(records []core.Record) {
	t.mu.Lock()
	events := t.appendLocked(records)
	t.mu.Unlock()
	for _, e := range events {
		t.obs.notify(e)
	}
}

// appendLocked inserts rows and infers new state columns. Column events
// precede the row event so views size themselves before laying out rows.
func (t *EntryTable) appendLocked(records []core.Record) []TableEvent {
	if len(records) == 0 {
		return nil
	}
	var events []TableEvent
	if cols := t.inferLocked(records); len(cols) > 0 {
		events = append(events, ColumnsInserted{Cols: cols})
	}
	start := len(t.rows)
	t.rows = append(t.rows, records...)
	events = append(events, RowsInserted{Row: start, Count: len(records)})
	return events
}

// inferLocked adds state columns for keys the table has not seen yet,
// keeping the state section name-sorted. Returns the new columns' final
// indices.
func (t *EntryTable) inferLocked(records []core.Record) []int {
	known := make(map[string]bool, len(t.state))
	for _, col := range t.state {
		if sc, ok := col.(StateColumn); ok {
			known[sc.Key] = true
		}
	}

	var fresh []string
	for _, rec := range records {
		for _, key := range rec.StateKeys() {
			if !known[key] {
				known[key] = true
				fresh = append(fresh, key)
			}
		}
	}
	if len(fresh) == 0 {
		return nil
	}

	for _, key := range fresh {
		t.state = append(t.state, StateColumn{Key: key})
	}
	sort.Slice(t.state, func(i, j int) bool { return t.state[i].Title() < t.state[j].Title() })

	freshSet := make(map[string]bool, len(fresh))
	for _, key := range fresh {
		freshSet[key] = true
	}
	var cols []int
	for i, col := range t.state {
		if sc, ok := col.(StateColumn); ok && freshSet[sc.Key] {
			cols = append(cols, len(t.fixed)+i)
		}
	}
	return cols
}

// RemoveRecord removes a single row.
func (t *EntryTable) RemoveRecord(row int) { t.RemoveRecords(row, 1) }

// RemoveRecords removes a contiguous run of rows and prunes state columns
// whose keys no surviving row carries.
func (t *EntryTable) RemoveRecords(row, count int) {
	t.mu.Lock()
	events := t.removeLocked(row, count)
	t.mu.Unlock()
	for _, e := range events {
		t.obs.notify(e)
	}
}

// RemoveMatching removes every row the predicate accepts and returns how
// many were removed. Used when the store reports objects deleted elsewhere.
func (t *EntryTable) RemoveMatching(match func(core.Record) bool) int {
	t.mu.Lock()
	var events []TableEvent
	removed := 0
	// Walk runs of matches from the end so indices stay valid.
	for end := len(t.rows); end > 0; {
		if !match(t.rows[end-1]) {
			end--
			continue
		}
		start := end - 1
		for start > 0 && match(t.rows[start-1]) {
			start--
		}
		events = append(events, t.removeLocked(start, end-start)...)
		removed += end - start
		end = start
	}
	t.mu.Unlock()

	for _, e := range events {
		t.obs.notify(e)
	}
	return removed
}

func (t *EntryTable) removeLocked(row, count int) []TableEvent {
	if row < 0 || count <= 0 || row+count > len(t.rows) {
		return nil
	}
	removed := make([]core.Record, count)
	copy(removed, t.rows[row:row+count])
	t.rows = append(t.rows[:row], t.rows[row+count:]...)

	events := []TableEvent{RowsRemoved{Row: row, Count: count}}
	if cols := t.pruneLocked(removed); len(cols) > 0 {
		events = append(events, ColumnsRemoved{Cols: cols})
	}
	return events
}

// pruneLocked drops state columns whose key appeared in a removed row and
// in no surviving row.
func (t *EntryTable) pruneLocked(removed []core.Record) []int {
	candidates := make(map[string]bool)
	for _, rec := range removed {
		for _, key := range rec.StateKeys() {
			candidates[key] = true
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	for _, rec := range t.rows {
		for key := range candidates {
			if rec.HasStateKey(key) {
				delete(candidates, key)
			}
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	var (
		cols []int
		kept []Column
	)
	for i, col := range t.state {
		if sc, ok := col.(StateColumn); ok && candidates[sc.Key] {
			cols = append(cols, len(t.fixed)+i)
			continue
		}
		kept = append(kept, col)
	}
	t.state = kept
	return cols
}

// AppendColumns adds columns to the state section, keeping it name-sorted.
// Columns whose title is already present are ignored.
func (t *EntryTable) AppendColumns(cols ...Column) {
	t.mu.Lock()
	indices := t.appendColumnsLocked(cols)
	t.mu.Unlock()
	if len(indices) > 0 {
		t.obs.notify(ColumnsInserted{Cols: indices})
	}
}

// appendColumnsLocked adds columns whose title is not yet present and
// returns the final indices of those actually added. Skipped duplicates
// never appear in the result.
func (t *EntryTable) appendColumnsLocked(cols []Column) []int {
	present := make(map[string]bool, len(t.state))
	for _, col := range t.state {
		present[col.Title()] = true
	}
	added := make(map[string]bool, len(cols))
	for _, col := range cols {
		if present[col.Title()] {
			continue
		}
		present[col.Title()] = true
		added[col.Title()] = true
		t.state = append(t.state, col)
	}
	if len(added) == 0 {
		return nil
	}
	sort.Slice(t.state, func(i, j int) bool { return t.state[i].Title() < t.state[j].Title() })
	indices := make([]int, 0, len(added))
	for i, col := range t.state {
		if added[col.Title()] {
			indices = append(indices, len(t.fixed)+i)
		}
	}
	return indices
}

// SetColumns replaces the state section wholesale: the existing state
// columns are removed, then the given columns appended.
func (t *EntryTable) SetColumns(cols ...Column) {
	t.mu.Lock()
	var events []TableEvent
	if n := len(t.state); n > 0 {
		removed := make([]int, n)
		for i := range removed {
			removed[i] = len(t.fixed) + i
		}
		t.state = nil
		events = append(events, ColumnsRemoved{Cols: removed})
	}
	if indices := t.appendColumnsLocked(cols); len(indices) > 0 {
		events = append(events, ColumnsInserted{Cols: indices})
	}
	t.mu.Unlock()
	for _, e := range events {
		t.obs.notify(e)
	}
}

// RemoveColumns removes state-section columns by title.
func (t *EntryTable) RemoveColumns(titles ...string) {
	t.mu.Lock()
	drop := make(map[string]bool, len(titles))
	for _, title := range titles {
		drop[title] = true
	}
	var (
		cols []int
		kept []Column
	)
	for i, col := range t.state {
		if drop[col.Title()] {
			cols = append(cols, len(t.fixed)+i)
			continue
		}
		kept = append(kept, col)
	}
	t.state = kept
	t.mu.Unlock()
	if len(cols) > 0 {
		t.obs.notify(ColumnsRemoved{Cols: cols})
	}
}

// ClearColumns removes the whole state section.
func (t *EntryTable) ClearColumns() {
	t.mu.Lock()
	titles := make([]string, len(t.state))
	for i, col := range t.state {
		titles[i] = col.Title()
	}
	t.mu.Unlock()
	t.RemoveColumns(titles...)
}

// Sort requests re-ordering by a column. Only path-backed columns can
// drive a sort; others are ignored.
func (t *EntryTable) Sort(col int, ascending bool) {
	t.mu.Lock()
	column := t.columnLocked(col)
	t.mu.Unlock()
	if column == nil || column.Path() == "" {
		return
	}
	t.obs.notify(SortRequested{Path: column.Path(), Ascending: ascending})
}

func (t *EntryTable) columnLocked(col int) Column {
	if col < 0 || col >= len(t.fixed)+len(t.state) {
		return nil
	}
	if col < len(t.fixed) {
		return t.fixed[col]
	}
	return t.state[col-len(t.fixed)]
}

// RawValue returns the cell value at (row, col), nil when the record has no
// value at the column's path.
func (t *EntryTable) RawValue(row, col int) any {
	t.mu.Lock()
	defer t.mu.Unlock()
	if row < 0 || row >= len(t.rows) {
		return nil
	}
	column := t.columnLocked(col)
	if column == nil {
		return nil
	}
	v, ok := column.RawValue(t.rows[row])
	if !ok {
		return nil
	}
	return v
}

// Display returns the bounded single-line rendering of a cell.
func (t *EntryTable) Display(row, col int) string {
	v := t.RawValue(row, col)
	if v == nil {
		return ""
	}
	return core.FormatValue(v, core.DisplayMaxLength)
}

// Tooltip returns a column's static tooltip text, "" for columns without
// one. Cell values never leak into the tooltip role.
func (t *EntryTable) Tooltip(col int) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	column := t.columnLocked(col)
	if column == nil {
		return ""
	}
	return column.Tooltip()
}

// Emphasized reports whether a column is record-derived; views render those
// cells visually distinct from state data.
func (t *EntryTable) Emphasized(col int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	column := t.columnLocked(col)
	return column != nil && column.Emphasized()
}
