package model

import "sync"

// observers is a subscription list shared by the model components. Callbacks
// run on the notifying goroutine; subscribers that need a particular thread
// forward the event themselves (the TUI turns them into messages).
type observers[T any] struct {
	mu   sync.Mutex
	next int
	subs map[int]func(T)
}

// subscribe registers a callback and returns its unsubscribe func. The
// returned func is safe to call more than once.
func (o *observers[T]) subscribe(fn func(T)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.subs == nil {
		o.subs = make(map[int]func(T))
	}
	id := o.next
	o.next++
	o.subs[id] = fn
	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.subs, id)
	}
}

// notify delivers the event to every current subscriber. The subscriber set
// is snapshotted so callbacks may unsubscribe themselves.
func (o *observers[T]) notify(event T) {
	o.mu.Lock()
	fns := make([]func(T), 0, len(o.subs))
	for _, fn := range o.subs {
		fns = append(fns, fn)
	}
	o.mu.Unlock()

	for _, fn := range fns {
		fn(event)
	}
}
