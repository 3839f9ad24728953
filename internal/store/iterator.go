package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/chronicle-labs/chronicle/pkg/core"
)

// RecordIterator lazily produces the records of one query execution. It is
// finite and not restartable; once exhausted the underlying rows are
// released.
type RecordIterator struct {
	rows *sql.Rows
	err  error
	done bool
}

func newRecordIterator(rows *sql.Rows) *RecordIterator {
	return &RecordIterator{rows: rows}
}

// Next returns the next record. It reports false on exhaustion or error;
// check Err afterwards to tell the two apart.
func (it *RecordIterator) Next() (core.Record, bool) {
	if it.done {
		return core.Record{}, false
	}
	if !it.rows.Next() {
		it.finish(it.rows.Err())
		return core.Record{}, false
	}

	var (
		rec          core.Record
		ctime, mtime string
		state        []byte
	)
	if err := it.rows.Scan(&rec.ObjID, &rec.Version, &rec.TypeID, &ctime, &mtime, &state); err != nil {
		it.finish(fmt.Errorf("failed to scan record: %w", err))
		return core.Record{}, false
	}

	var err error
	if rec.CTime, err = time.Parse(timeLayout, ctime); err != nil {
		it.finish(fmt.Errorf("bad ctime %q: %w", ctime, err))
		return core.Record{}, false
	}
	if rec.MTime, err = time.Parse(timeLayout, mtime); err != nil {
		it.finish(fmt.Errorf("bad mtime %q: %w", mtime, err))
		return core.Record{}, false
	}
	if rec.State, err = core.DecodeState(state); err != nil {
		it.finish(err)
		return core.Record{}, false
	}
	return rec, true
}

// Err returns the error that terminated iteration, if any.
func (it *RecordIterator) Err() error { return it.err }

// Close releases the iterator early. Safe to call after exhaustion.
func (it *RecordIterator) Close() error {
	if it.done {
		return nil
	}
	it.finish(nil)
	return it.err
}

func (it *RecordIterator) finish(err error) {
	it.done = true
	if err != nil && it.err == nil {
		it.err = err
	}
	if it.rows != nil {
		_ = it.rows.Close()
	}
}
