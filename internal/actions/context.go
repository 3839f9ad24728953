package actions

import (
	"github.com/atotto/clipboard"

	"github.com/chronicle-labs/chronicle/internal/store"
)

// Notifier receives user-facing outcomes of action invocations.
type Notifier interface {
	Info(msg string)
	Warn(msg string)
	Error(msg string)
}

// Confirmer asks the user to approve a destructive action.
type Confirmer interface {
	Confirm(prompt string) bool
}

// Clipboard writes text to the system clipboard.
type Clipboard interface {
	Write(text string) error
}

// SystemClipboard is the real clipboard.
func SystemClipboard() Clipboard { return systemClipboard{} }

type systemClipboard struct{}

func (systemClipboard) Write(text string) error { return clipboard.WriteAll(text) }

// Key identifies a capability in an action context.
type Key string

const (
	KeyStore     Key = "store"
	KeyClipboard Key = "clipboard"
	KeyConfirmer Key = "confirmer"
	KeyNotifier  Key = "notifier"
	KeyOnDeleted Key = "on-deleted"
	KeySaveDir   Key = "save-dir"
)

// Context carries the capabilities an actioner may use: the store handle,
// the clipboard, confirmation and notification surfaces. Keys an
// environment does not provide simply yield nil capabilities; actioners
// must probe accordingly.
type Context map[Key]any

// With returns a copy of the context with one entry added.
func (c Context) With(key Key, value any) Context {
	out := make(Context, len(c)+1)
	for k, v := range c {
		out[k] = v
	}
	out[key] = value
	return out
}

// Store returns the database handle, or nil when not connected.
func (c Context) Store() store.Store {
	s, _ := c[KeyStore].(store.Store)
	return s
}

// Clipboard returns the clipboard capability, or nil.
func (c Context) Clipboard() Clipboard {
	cb, _ := c[KeyClipboard].(Clipboard)
	return cb
}

// Confirmer returns the confirmation capability, or nil.
func (c Context) Confirmer() Confirmer {
	cf, _ := c[KeyConfirmer].(Confirmer)
	return cf
}

// Notifier returns the notification capability, defaulting to a silent one
// so actioners never have to nil-check it.
func (c Context) Notifier() Notifier {
	if n, ok := c[KeyNotifier].(Notifier); ok {
		return n
	}
	return silentNotifier{}
}

// OnDeleted returns the callback invoked with the ids of deleted objects,
// or a no-op.
func (c Context) OnDeleted() func(ids []string) {
	if fn, ok := c[KeyOnDeleted].(func(ids []string)); ok {
		return fn
	}
	return func([]string) {}
}

// SaveDir returns the directory file payloads are saved into.
func (c Context) SaveDir() string {
	if dir, ok := c[KeySaveDir].(string); ok && dir != "" {
		return dir
	}
	return "."
}

type silentNotifier struct{}

func (silentNotifier) Info(string)  {}
func (silentNotifier) Warn(string)  {}
func (silentNotifier) Error(string) {}
