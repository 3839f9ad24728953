package core

import "sort"

// Field is one named value of an inspectable object, in display order.
type Field struct {
	Name  string
	Value any
}

// Inspectable is the capability an object must expose to be decomposed by
// the detail tree. The store's type-helper layer provides an adapter per
// registered type; there is no generic reflection fallback.
type Inspectable interface {
	// Fields returns the object's public values in a stable order.
	Fields() []Field
}

// FieldMap is a ready-made Inspectable over a plain mapping, with fields
// ordered by name.
type FieldMap map[string]any

// Fields implements Inspectable.
func (m FieldMap) Fields() []Field {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Field, 0, len(keys))
	for _, k := range keys {
		out = append(out, Field{Name: k, Value: m[k]})
	}
	return out
}
