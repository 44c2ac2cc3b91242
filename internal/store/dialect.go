package store

import (
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialect captures the SQL differences between backends.
type Dialect interface {
	Name() string
	DriverName() string
	Placeholder(n int) string
	MaxOpenConns() int
}

type sqliteDialect struct{}

func (sqliteDialect) Name() string           { return "sqlite" }
func (sqliteDialect) DriverName() string     { return "sqlite" }
func (sqliteDialect) Placeholder(int) string { return "?" }

// A single connection keeps ":memory:" databases shared and avoids SQLITE_BUSY.
func (sqliteDialect) MaxOpenConns() int { return 1 }

type postgresDialect struct{}

func (postgresDialect) Name() string             { return "postgres" }
func (postgresDialect) DriverName() string       { return "pgx" }
func (postgresDialect) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }
func (postgresDialect) MaxOpenConns() int        { return 10 }

// dialectFor resolves a backend type. Empty means sqlite.
func dialectFor(typ string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(typ)) {
	case "", "sqlite", "sqlite3":
		return sqliteDialect{}, nil
	case "postgres", "postgresql", "pg":
		return postgresDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported store type: %s", typ)
	}
}

func placeholders(d Dialect, n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = d.Placeholder(i + 1)
	}
	return strings.Join(ps, ", ")
}
