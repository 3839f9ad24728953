package model

import (
	"fmt"
	"log/slog"
	"sync"
)

// TaskCounts is a snapshot of the executor's load, taken together with the
// counter update that produced the event carrying it.
type TaskCounts struct {
	// Running is the number of tasks currently executing.
	Running int

	// Blocking is how many of the running tasks were submitted as
	// blocking. A non-zero value means the UI should show a busy state.
	Blocking int
}

// TaskStarted is published after a task's counters have been incremented.
type TaskStarted struct {
	Msg      string
	Blocking bool
	Counts   TaskCounts
}

// TaskEnded is published after a task's counters have been decremented.
// Err carries the task's failure, including recovered panics.
type TaskEnded struct {
	Msg      string
	Blocking bool
	Counts   TaskCounts
	Err      error
}

// Task is a handle to one submitted unit of work.
type Task struct {
	// Msg is the human-readable description shown while the task runs.
	Msg string

	// Blocking marks tasks whose completion the user is waiting on.
	Blocking bool

	done   chan struct{}
	result any
	err    error
}

// Wait blocks until the task finishes and returns its result and error.
func (t *Task) Wait() (any, error) {
	<-t.done
	return t.result, t.err
}

// Done returns a channel closed when the task finishes.
func (t *Task) Done() <-chan struct{} { return t.done }

// Executor runs submitted work on background goroutines and reports
// lifecycle events to a single consumer. Counters are updated before the
// corresponding event is queued, so every event carries counts that already
// include (or exclude) its own task.
type Executor struct {
	mu       sync.Mutex
	running  int
	blocking int
	events   chan any
	logger   *slog.Logger
}

// NewExecutor returns an executor publishing to a buffered event channel.
func NewExecutor(logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		events: make(chan any, 128),
		logger: logger,
	}
}

// Events is the lifecycle event channel. It carries TaskStarted and
// TaskEnded values and must be drained by exactly one consumer.
func (e *Executor) Events() <-chan any { return e.events }

// Counts returns the current load snapshot.
func (e *Executor) Counts() TaskCounts {
	e.mu.Lock()
	defer e.mu.Unlock()
	return TaskCounts{Running: e.running, Blocking: e.blocking}
}

// Submit starts work on a new goroutine and returns its handle immediately.
// A panic inside work is recovered into the task's error.
func (e *Executor) Submit(work func() (any, error), msg string, blocking bool) *Task {
	task := &Task{Msg: msg, Blocking: blocking, done: make(chan struct{})}

	e.mu.Lock()
	e.running++
	if blocking {
		e.blocking++
	}
	counts := TaskCounts{Running: e.running, Blocking: e.blocking}
	e.mu.Unlock()
	e.publish(TaskStarted{Msg: msg, Blocking: blocking, Counts: counts})

	e.logger.Debug("task started", "msg", msg, "blocking", blocking, "running", counts.Running)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				task.err = fmt.Errorf("task %q panicked: %v", msg, r)
			}
			e.finish(task)
		}()
		task.result, task.err = work()
	}()

	return task
}

func (e *Executor) finish(task *Task) {
	e.mu.Lock()
	e.running--
	if task.Blocking {
		e.blocking--
	}
	counts := TaskCounts{Running: e.running, Blocking: e.blocking}
	e.mu.Unlock()

	if task.err != nil {
		e.logger.Warn("task failed", "msg", task.Msg, "error", task.err)
	} else {
		e.logger.Debug("task ended", "msg", task.Msg, "running", counts.Running)
	}

	close(task.done)
	e.publish(TaskEnded{Msg: task.Msg, Blocking: task.Blocking, Counts: counts, Err: task.err})
}

// publish queues an event without ever blocking a worker. If the consumer
// has fallen this far behind the oldest event is discarded; the counts in
// later events supersede it.
func (e *Executor) publish(event any) {
	for {
		select {
		case e.events <- event:
			return
		default:
			select {
			case <-e.events:
			default:
			}
		}
	}
}
