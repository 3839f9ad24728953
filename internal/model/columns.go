package model

import (
	"github.com/chronicle-labs/chronicle/pkg/core"
)

// Column produces one table column's values from a record.
type Column interface {
	// Title is the header label.
	Title() string

	// Path is the dotted record path the column is backed by, or ""
	// when the column is computed and cannot drive a sort.
	Path() string

	// RawValue resolves the cell value; ok is false when the record has
	// no value at the column's path.
	RawValue(rec core.Record) (value any, ok bool)

	// Tooltip is the column's static hover text, "" when it has none.
	Tooltip() string

	// Emphasized marks columns derived from record metadata rather than
	// object state; views render them visually de-emphasized from data.
	Emphasized() bool
}

// TypeNamer resolves type ids to display names. Store handles implement it.
type TypeNamer interface {
	ObjType(typeID string) (string, error)
}

// RecordColumn is backed by a fixed record field.
type RecordColumn struct {
	Field string
	Label string
	Hint  string
}

func (c RecordColumn) Title() string {
	if c.Label != "" {
		return c.Label
	}
	return c.Field
}

func (c RecordColumn) Path() string { return c.Field }

func (c RecordColumn) RawValue(rec core.Record) (any, bool) {
	return rec.Field(c.Field)
}

func (c RecordColumn) Tooltip() string { return c.Hint }

func (c RecordColumn) Emphasized() bool { return true }

// StateColumn is backed by a top-level key of the state payload.
type StateColumn struct {
	Key string
}

func (c StateColumn) Title() string { return c.Key }

func (c StateColumn) Path() string { return core.JoinPath([]string{core.FieldState, c.Key}) }

func (c StateColumn) RawValue(rec core.Record) (any, bool) {
	m, ok := rec.State.(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := m[c.Key]
	return v, ok
}

// Tooltip is empty: state columns are named after their key and need no
// further explanation.
func (c StateColumn) Tooltip() string { return "" }

func (c StateColumn) Emphasized() bool { return false }

// TypeColumn shows the record's type as a human-readable name, falling back
// to the raw type id for unregistered types.
type TypeColumn struct {
	Namer TypeNamer
}

func (c TypeColumn) Title() string { return "type" }

// Path is the type id field: sorting by display name would require the
// database to know the helper registry.
func (c TypeColumn) Path() string { return core.FieldTypeID }

func (c TypeColumn) RawValue(rec core.Record) (any, bool) {
	if c.Namer != nil {
		if name, err := c.Namer.ObjType(rec.TypeID); err == nil {
			return name, true
		}
	}
	return rec.TypeID, true
}

func (c TypeColumn) Tooltip() string { return "Object type" }

func (c TypeColumn) Emphasized() bool { return true }

// DefaultColumns is the fixed column set shown before any state columns.
func DefaultColumns(namer TypeNamer) []Column {
	return []Column{
		TypeColumn{Namer: namer},
		RecordColumn{Field: core.FieldCTime, Label: "created", Hint: "Creation time"},
		RecordColumn{Field: core.FieldMTime, Label: "modified", Hint: "Modification time"},
		RecordColumn{Field: core.FieldVersion, Label: "version", Hint: "Version"},
	}
}
