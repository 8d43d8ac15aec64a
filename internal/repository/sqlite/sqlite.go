// Package sqlite implements the repository interfaces using SQLite as the
// storage backend.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo (calls C code from Go), which means you need a C
// compiler installed and cross-compilation becomes painful. modernc.org/sqlite
// is a pure Go translation of the SQLite C code — no C compiler needed, works
// everywhere Go works.
//
// The session_tokens table is what stands in for the "ordered collection of
// tokens embedded in the user" shape: one row per live credential, with all
// mutations expressed as single targeted statements (INSERT one row, DELETE
// one exact row, DELETE all rows for a user). SQLite executes each statement
// atomically, so concurrent logout/refresh/password-change requests never
// clobber each other the way read-modify-write of a whole token list would.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	// Side-effect import: the driver registers itself with database/sql
	// under the name "sqlite".
	_ "modernc.org/sqlite"
)

// isUniqueViolation detects a UNIQUE constraint failure. The pure-Go driver
// does not export a typed error for this, so we match the stable message
// SQLite has produced for decades.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// DB wraps a sql.DB connection pool and implements every repository
// interface. One type for all repositories keeps the wiring in server.go
// down to a single value.
type DB struct {
	conn *sql.DB
}

// New creates a new SQLite database connection and runs migrations.
//
// dbPath examples:
//   - "data/notes.db" → file-based database (persistent)
//   - ":memory:"      → in-memory database (great for tests, lost on close)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// One connection, always. Two reasons: concurrent writers on a single
	// connection queue instead of failing with SQLITE_BUSY, and ":memory:"
	// would otherwise give every pooled connection its own empty database.
	conn.SetMaxOpenConns(1)

	// Ping verifies the connection actually works. Without this, a bad path
	// or permissions issue would only surface on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL mode keeps writes from rewriting the whole database file and
	// recovers cleanly after a crash.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite (backwards compatibility).
	// Session tokens, activations, links and notes all reference users.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS is idempotent, so
// running it on every start is safe.
func (db *DB) migrate() error {
	// Emails are stored lowercased by the account service; COLLATE NOCASE on
	// the unique index is belt-and-braces for uniqueness if a caller ever
	// slips an uppercased address through.
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL COLLATE NOCASE UNIQUE,
			password_hash TEXT NOT NULL DEFAULT '',
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	// One row per live session credential. The composite primary key makes
	// "remove exactly this token" a single-row DELETE and accidental
	// duplicate issuance impossible.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS session_tokens (
			user_id    TEXT NOT NULL REFERENCES users(id),
			kind       TEXT NOT NULL,
			token      TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, kind, token)
		);
		CREATE INDEX IF NOT EXISTS idx_session_tokens_user ON session_tokens(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating session_tokens table: %w", err)
	}

	// No UNIQUE constraint on user_id: the "one live activation per user"
	// rule is enforced best-effort by delete-then-create in the service.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS activations (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id),
			code       TEXT NOT NULL UNIQUE,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_activations_user ON activations(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating activations table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS identity_links (
			id          TEXT PRIMARY KEY,
			provider    TEXT NOT NULL,
			external_id TEXT NOT NULL,
			user_id     TEXT NOT NULL REFERENCES users(id),
			created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (provider, external_id)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating identity_links table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS notes (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id),
			text       TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_notes_user ON notes(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating notes table: %w", err)
	}

	return nil
}
