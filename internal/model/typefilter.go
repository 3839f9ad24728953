package model

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/chronicle-labs/chronicle/internal/store"
	"github.com/chronicle-labs/chronicle/pkg/core"
)

// TypeEntry is one selectable entry of the type filter.
type TypeEntry struct {
	TypeID string

	// Name is the helper's display name, or the raw type id for types
	// without a registered helper.
	Name string
}

// TypeFilterPopulated carries the freshly gathered type list.
type TypeFilterPopulated struct {
	Entries []TypeEntry
}

// TypeFilter gathers the distinct type ids present in the store and feeds
// the user's pick into the query state as a type restriction.
type TypeFilter struct {
	store store.Store
	exec  *Executor
	state *QueryState

	mu      sync.Mutex
	entries []TypeEntry

	obs observers[TypeFilterPopulated]
}

// NewTypeFilter binds a filter to a store and a query state.
func NewTypeFilter(s store.Store, exec *Executor, state *QueryState) *TypeFilter {
	return &TypeFilter{store: s, exec: exec, state: state}
}

// Subscribe registers an observer, returning its unsubscribe func.
func (f *TypeFilter) Subscribe(fn func(TypeFilterPopulated)) func() {
	return f.obs.subscribe(fn)
}

// Entries returns the last gathered type list.
func (f *TypeFilter) Entries() []TypeEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]TypeEntry, len(f.entries))
	copy(out, f.entries)
	return out
}

// Populate gathers the type list in the background and publishes it when
// done.
func (f *TypeFilter) Populate(ctx context.Context) *Task {
	return f.exec.Submit(func() (any, error) {
		entries, err := f.gather(ctx)
		if err != nil {
			return nil, err
		}
		f.mu.Lock()
		f.entries = entries
		f.mu.Unlock()
		f.obs.notify(TypeFilterPopulated{Entries: entries})
		return entries, nil
	}, "Gathering types...", false)
}

// gather lists the distinct type ids and resolves their display names
// concurrently. An unknown type keeps its raw id as the name.
func (f *TypeFilter) gather(ctx context.Context) ([]TypeEntry, error) {
	typeIDs, err := f.store.FindDistinct(ctx, core.FieldTypeID)
	if err != nil {
		return nil, err
	}

	entries := make([]TypeEntry, len(typeIDs))
	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, typeID := range typeIDs {
		i, typeID := i, typeID
		g.Go(func() error {
			name, err := f.store.ObjType(typeID)
			if err != nil {
				name = typeID
			}
			entries[i] = TypeEntry{TypeID: typeID, Name: name}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Select applies a type restriction; the empty type id clears it.
func (f *TypeFilter) Select(typeID string) {
	f.state.SetTypeRestriction(typeID)
}
