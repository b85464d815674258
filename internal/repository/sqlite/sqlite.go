// Package sqlite implements the local session cache on SQLite.
//
// WHAT LIVES HERE?
// Only the mirror of provider sessions: one row per signed-in browser,
// holding the provider's tokens (sealed) and the user's id and email.
// Watchlist rows never touch this database.
//
// modernc.org/sqlite is a pure Go translation of SQLite, so the binary needs
// no C toolchain. Use ":memory:" in tests.
//
// MIGRATIONS:
// Schema files live in migrations/ and are embedded into the binary. goose
// records which ones have run in its own version table, so New is safe to
// call on an existing database file.
package sqlite

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Sealer encrypts token material before it is written.
type Sealer interface {
	Seal(plaintext string) (string, error)
	Open(sealed string) (string, error)
}

// DB wraps a sql.DB connection pool and implements
// repository.SessionRepository.
type DB struct {
	conn   *sql.DB
	sealer Sealer
}

// New opens the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/sessions.db"  → file-based database (persistent)
//   - ":memory:"          → in-memory database (tests)
func New(dbPath string, sealer Sealer) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// One connection: SQLite has a single writer anyway, and every
	// ":memory:" connection would otherwise be its own empty database.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting busy timeout: %w", err)
	}

	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return &DB{conn: conn, sealer: sealer}, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

func migrate(conn *sql.DB) error {
	goose.SetBaseFS(migrations)

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.Up(conn, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}
