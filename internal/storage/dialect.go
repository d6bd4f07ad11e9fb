package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Dialect isolates the SQL differences between the supported backends.
type Dialect interface {
	Name() string
	// DriverName is the database/sql driver the dialect expects.
	DriverName() string
	Placeholder(n int) string
	IdentityDDL() string
	TypeDDL(ColumnType) string
	// TableExists takes the table name as its only argument and returns a count.
	TableExists() string
	// Columns takes the table name as its only argument and returns one name per row.
	Columns() string
	IsDuplicateColumn(err error) bool
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// Postgres is the dialect for pgx's database/sql adapter.
type Postgres struct{}

func (Postgres) Name() string             { return "postgres" }
func (Postgres) DriverName() string       { return "pgx" }
func (Postgres) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }
func (Postgres) IdentityDDL() string      { return quote(IdentityColumn) + " BIGSERIAL PRIMARY KEY" }

func (Postgres) TypeDDL(t ColumnType) string {
	if t == Integer {
		return "INTEGER DEFAULT 0"
	}
	return "TEXT"
}

func (Postgres) TableExists() string {
	return `SELECT COUNT(*) FROM information_schema.tables
	        WHERE table_schema = current_schema() AND table_name = $1`
}

func (Postgres) Columns() string {
	return `SELECT column_name FROM information_schema.columns
	        WHERE table_schema = current_schema() AND table_name = $1
	        ORDER BY ordinal_position`
}

// IsDuplicateColumn matches SQLSTATE 42701 (duplicate_column).
func (Postgres) IsDuplicateColumn(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "42701"
}

// SQLite is the dialect for modernc.org/sqlite.
type SQLite struct{}

func (SQLite) Name() string           { return "sqlite" }
func (SQLite) DriverName() string     { return "sqlite" }
func (SQLite) Placeholder(int) string { return "?" }
func (SQLite) IdentityDDL() string    { return quote(IdentityColumn) + " INTEGER PRIMARY KEY AUTOINCREMENT" }

func (SQLite) TypeDDL(t ColumnType) string {
	if t == Integer {
		return "INTEGER DEFAULT 0"
	}
	return "TEXT"
}

func (SQLite) TableExists() string {
	return `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`
}

func (SQLite) Columns() string {
	return `SELECT name FROM pragma_table_info(?)`
}

func (SQLite) IsDuplicateColumn(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "duplicate column name")
}

// DialectFor returns the dialect of a DB_DRIVER value.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "postgres", "postgresql", "pgx":
		return Postgres{}, nil
	case "sqlite", "sqlite3":
		return SQLite{}, nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", driver)
}
