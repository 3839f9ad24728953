package store

import (
	"fmt"
	"sync"

	"github.com/chronicle-labs/chronicle/pkg/core"
)

// TypeHelper describes how one registered object type presents itself:
// its display name, how its state decomposes for inspection, and, for file
// payloads, how to recover a filename.
type TypeHelper struct {
	// TypeID is the stored type identifier this helper serves.
	TypeID string

	// Name is the human-readable type name shown in the type column and
	// the type filter.
	Name string

	// Adapt turns a raw state payload into an Inspectable view of the
	// live object. Nil means the state is shown as-is.
	Adapt func(state any) core.Inspectable

	// Filename extracts the filename of a file payload. Nil for
	// non-file types.
	Filename func(state any) (string, bool)

	// Content extracts the byte content of a file payload. Nil for
	// non-file types.
	Content func(state any) ([]byte, bool)
}

// IsFile reports whether the helper's type carries a file payload.
func (h *TypeHelper) IsFile() bool { return h != nil && h.Filename != nil }

// HelperRegistry indexes type helpers by type id. Registration happens at
// startup; lookups afterwards are concurrent.
type HelperRegistry struct {
	mu      sync.RWMutex
	helpers map[string]*TypeHelper
}

// NewHelperRegistry returns an empty registry.
func NewHelperRegistry() *HelperRegistry {
	return &HelperRegistry{helpers: make(map[string]*TypeHelper)}
}

// FileTypeID is the builtin type id for stored file payloads. Its state is
// a mapping with "filename" and "content" keys.
const FileTypeID = "chronicle.file"

// DefaultHelpers returns a registry pre-loaded with the builtin types.
func DefaultHelpers() *HelperRegistry {
	r := NewHelperRegistry()
	r.Register(&TypeHelper{
		TypeID: FileTypeID,
		Name:   "File",
		Adapt: func(state any) core.Inspectable {
			if m, ok := state.(map[string]any); ok {
				return core.FieldMap(m)
			}
			return nil
		},
		Filename: func(state any) (string, bool) {
			m, ok := state.(map[string]any)
			if !ok {
				return "", false
			}
			name, ok := m["filename"].(string)
			return name, ok && name != ""
		},
		Content: func(state any) ([]byte, bool) {
			m, ok := state.(map[string]any)
			if !ok {
				return nil, false
			}
			text, ok := m["content"].(string)
			if !ok {
				return nil, false
			}
			return []byte(text), true
		},
	})
	return r
}

// Register adds or replaces the helper for its type id.
func (r *HelperRegistry) Register(h *TypeHelper) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.helpers[h.TypeID] = h
}

// Get resolves a type id, returning core.ErrUnknownType when no helper is
// registered.
func (r *HelperRegistry) Get(typeID string) (*TypeHelper, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.helpers[typeID]
	if !ok {
		return nil, fmt.Errorf("resolving type %q: %w", typeID, core.ErrUnknownType)
	}
	return h, nil
}

// Adapt runs the state payload through the type's adapter when one exists,
// falling back to the raw state. A miss is soft: browsers show the raw
// value rather than failing.
func (r *HelperRegistry) Adapt(typeID string, state any) any {
	h, err := r.Get(typeID)
	if err != nil || h.Adapt == nil {
		return state
	}
	if adapted := h.Adapt(state); adapted != nil {
		return adapted
	}
	return state
}

// Count returns the number of registered helpers.
func (r *HelperRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.helpers)
}
