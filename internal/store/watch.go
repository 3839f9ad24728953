package store

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces the bursts of write events a single SQLite
// transaction produces into one change notification.
const watchDebounce = 300 * time.Millisecond

// Watcher publishes a notification whenever the store's database file
// changes on disk, so the browser can offer a refresh. Only file-backed
// SQLite stores are watchable.
type Watcher struct {
	watcher *fsnotify.Watcher
	path    string
	changes chan struct{}
}

// NewWatcher watches the database file behind the given store URI.
func NewWatcher(uri string) (*Watcher, error) {
	d, dsn, err := resolveURI(uri)
	if err != nil {
		return nil, err
	}
	if d.Name != "sqlite" || dsn == ":memory:" {
		return nil, fmt.Errorf("store at %q is not a watchable file", uri)
	}
	path := strings.SplitN(dsn, "?", 2)[0]

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	// Watch the directory: SQLite swaps journal/WAL files around the
	// database file itself.
	if err := fw.Add(filepath.Dir(path)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("failed to watch %q: %w", path, err)
	}

	w := &Watcher{watcher: fw, path: path, changes: make(chan struct{}, 1)}
	return w, nil
}

// Changes delivers at most one pending notification at a time.
func (w *Watcher) Changes() <-chan struct{} { return w.changes }

// Run pumps filesystem events into debounced change notifications until
// the context is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	var timer *time.Timer
	var fire <-chan time.Time

	base := filepath.Base(w.path)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			name := filepath.Base(ev.Name)
			if name != base && !strings.HasPrefix(name, base+"-") {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			select {
			case w.changes <- struct{}{}:
			default:
			}
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error { return w.watcher.Close() }
