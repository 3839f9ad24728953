package store

import (
	"fmt"
	"strings"
)

// dialect captures the per-backend differences the SQL store needs: driver
// name, placeholder style and how to address a path inside the JSON state
// column.
type dialect struct {
	// Name is the dialect identifier, also used as the goose dialect and
	// the migrations subdirectory.
	Name string

	// Driver is the database/sql driver name.
	Driver string

	// Numbered placeholders ($1, $2, ...) instead of ?.
	Numbered bool

	// StatePredicate renders an expression extracting a state path as
	// comparable text. The path segments are validated identifiers.
	StateExpr func(path []string) string
}

var dialects = map[string]*dialect{
	"sqlite": {
		Name:   "sqlite",
		Driver: "sqlite",
		StateExpr: func(path []string) string {
			return fmt.Sprintf("json_extract(state, '$.%s')", strings.Join(path, "."))
		},
	},
	"postgres": {
		Name:     "postgres",
		Driver:   "pgx",
		Numbered: true,
		StateExpr: func(path []string) string {
			return fmt.Sprintf("state::jsonb #>> '{%s}'", strings.Join(path, ","))
		},
	},
}

// placeholder renders the n-th (1-based) bind placeholder.
func (d *dialect) placeholder(n int) string {
	if d.Numbered {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// resolveURI maps a connection string to a dialect and a driver DSN.
//
//	postgres://user@host/db  -> postgres
//	sqlite://path/to/file.db -> sqlite
//	sqlite:path/to/file.db   -> sqlite
//	path/to/file.db          -> sqlite
//	:memory:                 -> sqlite
func resolveURI(uri string) (*dialect, string, error) {
	switch {
	case uri == "":
		return nil, "", fmt.Errorf("empty store URI")
	case strings.HasPrefix(uri, "postgres://"), strings.HasPrefix(uri, "postgresql://"):
		return dialects["postgres"], uri, nil
	case strings.HasPrefix(uri, "sqlite://"):
		return dialects["sqlite"], strings.TrimPrefix(uri, "sqlite://"), nil
	case strings.HasPrefix(uri, "sqlite:"):
		return dialects["sqlite"], strings.TrimPrefix(uri, "sqlite:"), nil
	default:
		// Bare paths (and :memory:) are SQLite databases.
		return dialects["sqlite"], uri, nil
	}
}
