package store

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/chronicle-labs/chronicle/pkg/core"

	// Database drivers for the two supported backends.
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// timeLayout is how timestamps are persisted. RFC3339 in UTC keeps them
// both portable across backends and lexicographically sortable.
const timeLayout = time.RFC3339Nano

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// fixedColumns maps filterable record fields to their table columns.
var fixedColumns = map[string]string{
	core.FieldObjID:   "obj_id",
	core.FieldTypeID:  "type_id",
	core.FieldCTime:   "ctime",
	core.FieldMTime:   "mtime",
	core.FieldVersion: "version",
}

// SQLStore implements Store on top of database/sql with a dialect seam.
type SQLStore struct {
	db      *sql.DB
	dialect *dialect
	uri     string
	helpers *HelperRegistry
}

// Open connects to the store at the given URI, runs pending migrations and
// returns a ready handle.
func Open(uri string) (*SQLStore, error) {
	d, dsn, err := resolveURI(uri)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(d.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open store at %q: %w", uri, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to reach store at %q: %w", uri, err)
	}

	s := &SQLStore{db: db, dialect: d, uri: uri, helpers: DefaultHelpers()}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// URI returns the connection string the store was opened with.
func (s *SQLStore) URI() string { return s.uri }

// Close releases the underlying connection pool.
func (s *SQLStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Helpers exposes the type-helper registry for registration at startup.
func (s *SQLStore) Helpers() *HelperRegistry { return s.helpers }

// Helper implements Store.
func (s *SQLStore) Helper(typeID string) (*TypeHelper, error) {
	return s.helpers.Get(typeID)
}

// ObjType implements Store.
func (s *SQLStore) ObjType(typeID string) (string, error) {
	helper, err := s.helpers.Get(typeID)
	if err != nil {
		return "", err
	}
	return helper.Name, nil
}

// FindRecords implements Store. The iterator must be closed (or drained)
// by the caller.
func (s *SQLStore) FindRecords(ctx context.Context, query core.Query) (*RecordIterator, error) {
	stmt, args, err := s.buildSelect(query)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("record query failed: %w", err)
	}
	return newRecordIterator(rows), nil
}

// Load implements Store.
func (s *SQLStore) Load(ctx context.Context, objID string) (any, error) {
	it, err := s.FindRecords(ctx, core.Query{
		core.QueryKeyObjID:   objID,
		core.QueryKeyVersion: core.VersionLatest,
	})
	if err != nil {
		return nil, err
	}
	defer it.Close()

	rec, ok := it.Next()
	if !ok {
		if err := it.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("loading %q: %w", objID, core.ErrNotFound)
	}
	return s.helpers.Adapt(rec.TypeID, rec.State), nil
}

// LoadSnapshot implements Store.
func (s *SQLStore) LoadSnapshot(ctx context.Context, id core.SnapshotID) (any, error) {
	it, err := s.FindRecords(ctx, core.Query{
		core.QueryKeyObjID:   id.ObjID,
		core.QueryKeyVersion: id.Version,
	})
	if err != nil {
		return nil, err
	}
	defer it.Close()

	rec, ok := it.Next()
	if !ok {
		if err := it.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("loading snapshot %s: %w", id, core.ErrNotFound)
	}
	return s.helpers.Adapt(rec.TypeID, rec.State), nil
}

// Delete implements Store. The whole batch shares one transaction.
func (s *SQLStore) Delete(ctx context.Context, objIDs ...string) ([]string, error) {
	if len(objIDs) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin delete transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt := fmt.Sprintf(
		"UPDATE records SET deleted = 1, mtime = %s WHERE obj_id = %s AND deleted = 0",
		s.dialect.placeholder(1), s.dialect.placeholder(2),
	)
	now := time.Now().UTC().Format(timeLayout)

	deleted := make([]string, 0, len(objIDs))
	for _, id := range objIDs {
		res, err := tx.ExecContext(ctx, stmt, now, id)
		if err != nil {
			return nil, fmt.Errorf("failed to delete %q: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to delete %q: %w", id, err)
		}
		if n == 0 {
			return nil, fmt.Errorf("deleting %q: %w", id, core.ErrNotFound)
		}
		deleted = append(deleted, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit delete: %w", err)
	}
	return deleted, nil
}

// FindDistinct implements Store.
func (s *SQLStore) FindDistinct(ctx context.Context, field string) ([]string, error) {
	col, ok := fixedColumns[field]
	if !ok {
		return nil, fmt.Errorf("cannot gather distinct values of %q: not a record field", field)
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT DISTINCT %s FROM records ORDER BY %s", col, col))
	if err != nil {
		return nil, fmt.Errorf("distinct query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// SaveRecords implements Saver. Records without an object id are assigned
// one; versions default to the next version of their object.
func (s *SQLStore) SaveRecords(ctx context.Context, records []core.Record) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin save transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	next := fmt.Sprintf(
		"SELECT COALESCE(MAX(version) + 1, 0) FROM records WHERE obj_id = %s",
		s.dialect.placeholder(1),
	)
	insert := fmt.Sprintf(
		"INSERT INTO records (obj_id, version, type_id, ctime, mtime, deleted, state) VALUES (%s, %s, %s, %s, %s, 0, %s)",
		s.dialect.placeholder(1), s.dialect.placeholder(2), s.dialect.placeholder(3),
		s.dialect.placeholder(4), s.dialect.placeholder(5), s.dialect.placeholder(6),
	)

	now := time.Now().UTC()
	for _, rec := range records {
		if rec.ObjID == "" {
			rec.ObjID = uuid.New().String()
		}
		if rec.Version == 0 {
			if err := tx.QueryRowContext(ctx, next, rec.ObjID).Scan(&rec.Version); err != nil {
				return fmt.Errorf("failed to resolve next version for %q: %w", rec.ObjID, err)
			}
		}
		if rec.CTime.IsZero() {
			rec.CTime = now
		}
		if rec.MTime.IsZero() {
			rec.MTime = rec.CTime
		}

		state, err := core.EncodeState(rec.State)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, insert,
			rec.ObjID, rec.Version, rec.TypeID,
			rec.CTime.UTC().Format(timeLayout), rec.MTime.UTC().Format(timeLayout),
			string(state),
		)
		if err != nil {
			return fmt.Errorf("failed to save record %s: %w", rec.SnapshotID(), err)
		}
	}

	return tx.Commit()
}

// buildSelect turns a query document into SQL. Filter keys name either
// fixed record fields or paths into the state payload; path segments are
// restricted to identifier characters so documents can never inject SQL.
func (s *SQLStore) buildSelect(query core.Query) (string, []any, error) {
	var (
		where []string
		args  []any
	)
	ph := func() string { return s.dialect.placeholder(len(args) + 1) }

	for key, value := range query.Filters() {
		switch key {
		case core.QueryKeyVersion:
			if query.ShowCurrent() {
				where = append(where,
					"deleted = 0",
					"version = (SELECT MAX(v2.version) FROM records v2 WHERE v2.obj_id = records.obj_id)",
				)
			} else {
				where = append(where, fmt.Sprintf("version = %s", ph()))
				args = append(args, value)
			}

		case core.QueryKeyObjID:
			ids := query.ObjIDs()
			if len(ids) == 0 {
				continue
			}
			marks := make([]string, len(ids))
			for i, id := range ids {
				marks[i] = ph()
				args = append(args, id)
			}
			where = append(where, fmt.Sprintf("obj_id IN (%s)", strings.Join(marks, ", ")))

		case core.QueryKeyType:
			where = append(where, fmt.Sprintf("type_id = %s", ph()))
			args = append(args, value)

		default:
			expr, isState, err := s.fieldExpr(key)
			if err != nil {
				return "", nil, err
			}
			where = append(where, fmt.Sprintf("%s = %s", expr, ph()))
			if isState {
				args = append(args, bindValue(s.dialect, value))
			} else {
				args = append(args, value)
			}
		}
	}

	stmt := "SELECT obj_id, version, type_id, ctime, mtime, state FROM records"
	if len(where) > 0 {
		stmt += " WHERE " + strings.Join(where, " AND ")
	}

	if keys := query.Sort(); len(keys) > 0 {
		order := make([]string, 0, len(keys))
		for _, k := range keys {
			expr, _, err := s.fieldExpr(k.Path)
			if err != nil {
				return "", nil, err
			}
			dir := "ASC"
			if !k.Ascending {
				dir = "DESC"
			}
			order = append(order, expr+" "+dir)
		}
		stmt += " ORDER BY " + strings.Join(order, ", ")
	} else {
		stmt += " ORDER BY obj_id, version"
	}

	return stmt, args, nil
}

// fieldExpr resolves a dotted field name to a SQL expression: a fixed
// column, or a dialect-specific extraction from the state payload.
func (s *SQLStore) fieldExpr(name string) (expr string, isState bool, err error) {
	path := core.SplitPath(name)
	for _, seg := range path {
		if !identPattern.MatchString(seg) {
			return "", false, fmt.Errorf("invalid field %q in query", name)
		}
	}

	if len(path) == 1 {
		if col, ok := fixedColumns[path[0]]; ok {
			return col, false, nil
		}
		// A bare key is shorthand for a top-level state key.
		return s.dialect.StateExpr(path), true, nil
	}
	if path[0] == core.FieldState {
		return s.dialect.StateExpr(path[1:]), true, nil
	}
	return s.dialect.StateExpr(path), true, nil
}

// bindValue prepares a filter value for binding. Postgres extracts state
// paths as text, so values are compared in their JSON text form there;
// SQLite's json_extract yields typed values and binds natively.
func bindValue(d *dialect, value any) any {
	if d.Name != "postgres" {
		return value
	}
	switch v := value.(type) {
	case string:
		return v
	case bool:
		if v {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%v", v)
	}
}
