package model

import (
	"context"
	"sync"

	"github.com/chronicle-labs/chronicle/internal/store"
	"github.com/chronicle-labs/chronicle/pkg/core"
)

// DefaultStreamBatch is how many records a query worker accumulates before
// publishing a batch. Small on purpose: the first rows appear quickly while
// the rest of the result set is still streaming in.
const DefaultStreamBatch = 4

// RecordSource is a one-shot iterator over records. *store.RecordIterator
// implements it.
type RecordSource interface {
	Next() (core.Record, bool)
	Err() error
	Close() error
}

// Finder executes query documents. May be backed by a real store or absent
// entirely (no database connected yet).
type Finder interface {
	Find(ctx context.Context, query core.Query) (RecordSource, error)
}

// StoreFinder adapts a store handle to the Finder interface.
func StoreFinder(s store.Store) Finder { return storeFinder{s} }

type storeFinder struct{ store store.Store }

func (f storeFinder) Find(ctx context.Context, query core.Query) (RecordSource, error) {
	return f.store.FindRecords(ctx, query)
}

// StreamEventKind labels result stream events.
type StreamEventKind int

const (
	// StreamInvalidated announces a new epoch: previous results are stale.
	StreamInvalidated StreamEventKind = iota

	// StreamBatch delivers the next batch of records for an epoch.
	StreamBatch

	// StreamDrained marks an epoch's result set as complete.
	StreamDrained

	// StreamFailed marks an epoch as failed; Err carries the cause.
	StreamFailed
)

// StreamEvent is one step of an epoch's lifecycle. Consumers must discard
// events whose Epoch is not the one they last saw invalidated.
type StreamEvent struct {
	Kind    StreamEventKind
	Epoch   int
	Records []core.Record
	Err     error
}

// ResultStream re-runs the query whenever the bound QueryState changes and
// streams results out in batches. Each run gets a fresh epoch; workers from
// superseded runs stop at their next batch boundary, and consumers drop any
// of their batches already in flight.
type ResultStream struct {
	ctx    context.Context
	exec   *Executor
	finder Finder

	mu        sync.Mutex
	epoch     int
	query     core.Query
	batchSize int

	obs   observers[StreamEvent]
	unsub func()
}

// NewResultStream binds a stream to a query state. finder may be nil, in
// which case every refresh drains immediately with no records.
func NewResultStream(ctx context.Context, exec *Executor, state *QueryState, finder Finder) *ResultStream {
	s := &ResultStream{
		ctx:       ctx,
		exec:      exec,
		finder:    finder,
		query:     state.GetQuery(),
		batchSize: DefaultStreamBatch,
	}
	s.unsub = state.Subscribe(func(event QueryEvent) {
		if event.Kind != QueryChanged {
			return
		}
		s.mu.Lock()
		s.query = event.Query
		s.mu.Unlock()
		s.Refresh()
	})
	return s
}

// Subscribe registers an observer, returning its unsubscribe func.
func (s *ResultStream) Subscribe(fn func(StreamEvent)) func() {
	return s.obs.subscribe(fn)
}

// SetFinder swaps the backing store. The stream refreshes against the new
// source immediately.
func (s *ResultStream) SetFinder(finder Finder) {
	s.mu.Lock()
	s.finder = finder
	s.mu.Unlock()
	s.Refresh()
}

// Epoch returns the current epoch.
func (s *ResultStream) Epoch() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// Close detaches the stream from its query state and invalidates the
// current epoch so in-flight workers stop.
func (s *ResultStream) Close() {
	if s.unsub != nil {
		s.unsub()
	}
	s.mu.Lock()
	s.epoch++
	s.mu.Unlock()
}

// Refresh starts a new epoch and re-runs the current query in the
// background.
func (s *ResultStream) Refresh() {
	s.mu.Lock()
	s.epoch++
	epoch := s.epoch
	query := s.query.Clone()
	finder := s.finder
	batchSize := s.batchSize
	s.mu.Unlock()

	s.obs.notify(StreamEvent{Kind: StreamInvalidated, Epoch: epoch})

	if finder == nil {
		s.obs.notify(StreamEvent{Kind: StreamDrained, Epoch: epoch})
		return
	}

	s.exec.Submit(func() (any, error) {
		err := s.run(epoch, query, finder, batchSize)
		if err != nil && s.current(epoch) {
			s.obs.notify(StreamEvent{Kind: StreamFailed, Epoch: epoch, Err: err})
		}
		return nil, err
	}, "Querying records...", false)
}

func (s *ResultStream) run(epoch int, query core.Query, finder Finder, batchSize int) error {
	src, err := finder.Find(s.ctx, query)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	batch := make([]core.Record, 0, batchSize)
	flush := func() bool {
		if !s.current(epoch) {
			return false
		}
		if len(batch) > 0 {
			s.obs.notify(StreamEvent{Kind: StreamBatch, Epoch: epoch, Records: batch})
			batch = make([]core.Record, 0, batchSize)
		}
		return true
	}

	for {
		rec, ok := src.Next()
		if !ok {
			break
		}
		batch = append(batch, rec)
		if len(batch) >= batchSize {
			if !flush() {
				return nil
			}
		}
	}
	if err := src.Err(); err != nil {
		return err
	}
	if flush() && s.current(epoch) {
		s.obs.notify(StreamEvent{Kind: StreamDrained, Epoch: epoch})
	}
	return nil
}

func (s *ResultStream) current(epoch int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch == epoch
}
