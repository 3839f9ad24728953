package model

import (
	"sync"

	"github.com/chronicle-labs/chronicle/pkg/core"
)

// QueryEventKind labels which aspect of the query document changed.
type QueryEventKind int

const (
	// QueryChanged is emitted for every effective change to the document.
	QueryChanged QueryEventKind = iota

	// SortChanged is additionally emitted when the sort clause differs.
	SortChanged

	// TypeRestrictionChanged is additionally emitted when the type
	// restriction differs.
	TypeRestrictionChanged
)

// QueryEvent carries the kind of change and a copy of the new document.
type QueryEvent struct {
	Kind  QueryEventKind
	Query core.Query
}

// QueryState holds the current query document and notifies observers of
// effective changes. Setting a value-equal document is a no-op: no copy, no
// notification.
type QueryState struct {
	mu    sync.Mutex
	query core.Query
	obs   observers[QueryEvent]
}

// NewQueryState starts with the default document, which restricts results
// to the latest non-deleted version of each object.
func NewQueryState() *QueryState {
	return &QueryState{query: core.NewQuery()}
}

// Subscribe registers an observer, returning its unsubscribe func.
func (s *QueryState) Subscribe(fn func(QueryEvent)) func() {
	return s.obs.subscribe(fn)
}

// GetQuery returns a copy of the current document.
func (s *QueryState) GetQuery() core.Query {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query.Clone()
}

// SetQuery replaces the document. Value-equal documents produce no
// notification; an effective change produces exactly one QueryChanged,
// plus SortChanged or TypeRestrictionChanged when those aspects moved.
func (s *QueryState) SetQuery(query core.Query) {
	s.mu.Lock()
	if s.query.Equal(query) {
		s.mu.Unlock()
		return
	}
	old := s.query
	s.query = query.Clone()
	snapshot := s.query.Clone()
	s.mu.Unlock()

	s.obs.notify(QueryEvent{Kind: QueryChanged, Query: snapshot})
	if !sortEqual(old.Sort(), snapshot.Sort()) {
		s.obs.notify(QueryEvent{Kind: SortChanged, Query: snapshot})
	}
	if old.TypeRestriction() != snapshot.TypeRestriction() {
		s.obs.notify(QueryEvent{Kind: TypeRestrictionChanged, Query: snapshot})
	}
}

// UpdateQuery shallow-merges the given entries over the current document.
func (s *QueryState) UpdateQuery(partial core.Query) {
	s.SetQuery(s.GetQuery().Merge(partial))
}

// SetSort replaces the sort clause with a single key.
func (s *QueryState) SetSort(path string, ascending bool) {
	s.UpdateQuery(core.Query{core.QueryKeySort: core.SortSpec(path, ascending)})
}

// ClearSort removes the sort clause.
func (s *QueryState) ClearSort() {
	q := s.GetQuery()
	if _, ok := q[core.QueryKeySort]; !ok {
		return
	}
	delete(q, core.QueryKeySort)
	s.SetQuery(q)
}

// SetTypeRestriction restricts results to one type id; the empty string
// removes the restriction.
func (s *QueryState) SetTypeRestriction(typeID string) {
	q := s.GetQuery()
	if typeID == "" {
		delete(q, core.QueryKeyType)
	} else {
		q[core.QueryKeyType] = typeID
	}
	s.SetQuery(q)
}

// SetShowCurrent toggles the latest-version restriction.
func (s *QueryState) SetShowCurrent(current bool) {
	q := s.GetQuery()
	if current {
		q[core.QueryKeyVersion] = core.VersionLatest
	} else {
		delete(q, core.QueryKeyVersion)
	}
	s.SetQuery(q)
}

// SetObjIDRestriction pins the view to the given objects. A non-empty list
// REPLACES the whole document with just the id restriction; nil or empty
// removes only the id key, leaving whatever else the document accumulated
// while pinned.
func (s *QueryState) SetObjIDRestriction(ids []string) {
	if len(ids) > 0 {
		values := make([]any, len(ids))
		for i, id := range ids {
			values[i] = id
		}
		s.SetQuery(core.Query{core.QueryKeyObjID: values})
		return
	}
	q := s.GetQuery()
	delete(q, core.QueryKeyObjID)
	s.SetQuery(q)
}

func sortEqual(a, b []core.SortKey) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
