// Package store implements the object-versioning store that Chronicle
// browses: versioned, immutable records with schema-less JSON state,
// persisted in SQLite or Postgres behind a common dialect seam.
package store

import (
	"context"

	"github.com/chronicle-labs/chronicle/pkg/core"
)

// Store is the handle the rest of the application holds on the database.
// It is shared read-mostly; Delete is the only mutation and runs in a
// single transaction.
type Store interface {
	// FindRecords executes a query and returns a lazy, finite, one-shot
	// iterator over matching records. A new call re-queries.
	FindRecords(ctx context.Context, query core.Query) (*RecordIterator, error)

	// Load returns the latest non-deleted state of an object, adapted
	// through its type helper when one is registered.
	Load(ctx context.Context, objID string) (any, error)

	// LoadSnapshot returns the state of one exact version of an object.
	LoadSnapshot(ctx context.Context, id core.SnapshotID) (any, error)

	// Delete marks the given objects deleted inside one transaction.
	// All-or-nothing: a missing id fails the whole batch with
	// core.ErrNotFound.
	Delete(ctx context.Context, objIDs ...string) ([]string, error)

	// FindDistinct returns the distinct values of a fixed record field
	// across all records.
	FindDistinct(ctx context.Context, field string) ([]string, error)

	// Helper resolves the type helper registered for a type id.
	Helper(typeID string) (*TypeHelper, error)

	// ObjType resolves a type id to its human-readable name.
	ObjType(typeID string) (string, error)

	// URI returns the connection string the store was opened with.
	URI() string

	Close() error
}

// Saver is implemented by stores that accept new records (seeding and
// tests). Browsing never writes records.
type Saver interface {
	SaveRecords(ctx context.Context, records []core.Record) error
}
