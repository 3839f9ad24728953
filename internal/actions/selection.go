// Package actions provides the pluggable context-action layer: actioners
// probe what they can do with the current selection and the UI presents the
// union of their offers as a grouped menu.
package actions

import "github.com/chronicle-labs/chronicle/pkg/core"

// SelectionKind discriminates what a Selection carries.
type SelectionKind int

const (
	// SingleRecord selects one record row.
	SingleRecord SelectionKind = iota

	// RecordList selects several record rows.
	RecordList

	// Value selects a plain value, such as a detail tree cell.
	Value
)

// Selection is what the user has picked when an action menu opens. Exactly
// one of the payload fields is meaningful, per Kind.
type Selection struct {
	Kind    SelectionKind
	Record  core.Record
	Records []core.Record
	Value   any
}

// SelectRecord selects a single record.
func SelectRecord(rec core.Record) Selection {
	return Selection{Kind: SingleRecord, Record: rec}
}

// SelectRecords selects a list of records. A single-element list collapses
// to a SingleRecord selection.
func SelectRecords(records []core.Record) Selection {
	if len(records) == 1 {
		return SelectRecord(records[0])
	}
	return Selection{Kind: RecordList, Records: records}
}

// SelectValue selects a plain value.
func SelectValue(v any) Selection {
	return Selection{Kind: Value, Value: v}
}

// AllRecords returns the selected records regardless of kind, nil for value
// selections.
func (s Selection) AllRecords() []core.Record {
	switch s.Kind {
	case SingleRecord:
		return []core.Record{s.Record}
	case RecordList:
		return s.Records
	}
	return nil
}
