// Package core provides the shared domain types for Chronicle: data
// records, query documents and the value-tree utilities used to project
// schema-less record state into tables and trees.
package core

import (
	"fmt"
	"time"
)

// Record field names, in the fixed order they appear as table columns.
const (
	FieldObjID   = "obj_id"
	FieldTypeID  = "type_id"
	FieldCTime   = "ctime"
	FieldMTime   = "mtime"
	FieldVersion = "version"
	FieldState   = "state"
)

// RecordFields lists the fixed record fields in column order.
var RecordFields = []string{FieldObjID, FieldTypeID, FieldCTime, FieldMTime, FieldVersion, FieldState}

// SnapshotID identifies one immutable version of a stored object.
type SnapshotID struct {
	ObjID   string
	Version int
}

// String renders the snapshot id in the "objid#version" form used in logs
// and the detail tree.
func (s SnapshotID) String() string {
	return fmt.Sprintf("%s#%d", s.ObjID, s.Version)
}

// Record is an immutable snapshot of a stored object plus its metadata.
// Records are produced only by the store; the rest of the application reads
// them and, at most, requests their deletion.
type Record struct {
	ObjID   string
	Version int
	TypeID  string
	CTime   time.Time
	MTime   time.Time

	// State is the schema-less payload: an arbitrary nesting of
	// map[string]any, []any and scalars as decoded from storage.
	State any
}

// SnapshotID returns the identifier of this exact record version.
func (r Record) SnapshotID() SnapshotID {
	return SnapshotID{ObjID: r.ObjID, Version: r.Version}
}

// Field returns the value of a fixed record field by name.
func (r Record) Field(name string) (any, bool) {
	switch name {
	case FieldObjID:
		return r.ObjID, true
	case FieldTypeID:
		return r.TypeID, true
	case FieldCTime:
		return r.CTime, true
	case FieldMTime:
		return r.MTime, true
	case FieldVersion:
		return r.Version, true
	case FieldState:
		return r.State, true
	}
	return nil, false
}

// AsMap returns the record as an ordered-by-RecordFields mapping. Used by
// the detail tree to decompose a record the same way it decomposes state.
func (r Record) AsMap() map[string]any {
	return map[string]any{
		FieldObjID:   r.ObjID,
		FieldTypeID:  r.TypeID,
		FieldCTime:   r.CTime,
		FieldMTime:   r.MTime,
		FieldVersion: r.Version,
		FieldState:   r.State,
	}
}

// StateKeys returns the top-level keys of the state payload when it is a
// mapping, nil otherwise. The entry table uses this for column inference.
func (r Record) StateKeys() []string {
	m, ok := r.State.(map[string]any)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

// HasStateKey reports whether the state payload is a mapping containing key.
func (r Record) HasStateKey(key string) bool {
	m, ok := r.State.(map[string]any)
	if !ok {
		return false
	}
	_, ok = m[key]
	return ok
}
