// Package sqlite provides SQLite-based storage for the link graph and the
// vector index.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fwojciec/siteqa"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// migrations build the schema step by step. PRAGMA user_version records
// how many have been applied, so a database is only ever moved forward.
//
// A link graph database uses urls and edges; an index database uses
// index_meta and index_entries.
var migrations = []string{
	`CREATE TABLE urls (
		url TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		kind TEXT NOT NULL DEFAULT 'unknown',
		depth INTEGER NOT NULL DEFAULT 0,
		fetched_at TEXT NOT NULL DEFAULT '',
		size INTEGER NOT NULL DEFAULT 0,
		content_hash TEXT NOT NULL DEFAULT '',
		method TEXT NOT NULL DEFAULT '',
		error_code TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX idx_urls_status ON urls(status);
	CREATE TABLE edges (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		parent TEXT NOT NULL,
		child TEXT NOT NULL,
		anchor TEXT NOT NULL DEFAULT '',
		depth INTEGER NOT NULL DEFAULT 0,
		discovered_at TEXT NOT NULL,
		UNIQUE (parent, child)
	);`,

	`CREATE TABLE index_meta (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		model TEXT NOT NULL,
		dimension INTEGER NOT NULL,
		count INTEGER NOT NULL,
		built_at TEXT NOT NULL
	);
	CREATE TABLE index_entries (
		id INTEGER PRIMARY KEY,
		url TEXT NOT NULL,
		domain TEXT NOT NULL,
		position INTEGER NOT NULL,
		text TEXT NOT NULL,
		vector BLOB NOT NULL
	);`,
}

// SchemaVersion is the user_version of a fully migrated database.
var SchemaVersion = len(migrations)

// DB is a SQLite database holding one link graph or one vector index.
type DB struct {
	db      *sql.DB
	path    string
	journal string
}

// DBOption configures a DB.
type DBOption func(*DB)

// WithRollbackJournal opens file databases in DELETE journal mode instead
// of WAL. A database in this mode leaves no -wal or -shm files behind,
// so it can be renamed over another one while readers hold it open.
func WithRollbackJournal() DBOption {
	return func(db *DB) { db.journal = "DELETE" }
}

// NewDB creates a DB for the file at path.
// Use ":memory:" for an in-memory database.
func NewDB(path string, opts ...DBOption) *DB {
	db := &DB{path: path, journal: "WAL"}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// Open connects, applies connection pragmas and migrates the schema.
func (db *DB) Open() error {
	conn, err := sql.Open("sqlite3", db.path)
	if err != nil {
		return siteqa.WrapError(siteqa.ESTORE, err, "opening %s: %v", db.path, err)
	}

	// SQLite allows one writer; a single connection also keeps an
	// in-memory database alive across calls.
	conn.SetMaxOpenConns(1)

	pragmas := []string{"busy_timeout = 5000", "foreign_keys = ON"}
	if db.path != ":memory:" {
		pragmas = append(pragmas, "journal_mode = "+db.journal, "synchronous = NORMAL")
	}
	for _, p := range pragmas {
		if _, err := conn.Exec("PRAGMA " + p); err != nil {
			conn.Close()
			return siteqa.WrapError(siteqa.ESTORE, err, "opening %s: PRAGMA %s: %v", db.path, p, err)
		}
	}

	db.db = conn
	if err := db.migrate(context.Background()); err != nil {
		conn.Close()
		db.db = nil
		return err
	}
	return nil
}

func (db *DB) migrate(ctx context.Context) error {
	var version int
	if err := db.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return siteqa.WrapError(siteqa.ESTORE, err, "reading schema version of %s: %v", db.path, err)
	}
	if version > len(migrations) {
		return siteqa.Errorf(siteqa.ESTORE, "%s has schema version %d, newer than this build supports (%d)",
			db.path, version, len(migrations))
	}

	for i := version; i < len(migrations); i++ {
		tx, err := db.db.BeginTx(ctx, nil)
		if err != nil {
			return siteqa.WrapError(siteqa.ESTORE, err, "migrating %s: %v", db.path, err)
		}
		if _, err := tx.ExecContext(ctx, migrations[i]); err != nil {
			tx.Rollback()
			return siteqa.WrapError(siteqa.ESTORE, err, "migrating %s to version %d: %v", db.path, i+1, err)
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			tx.Rollback()
			return siteqa.WrapError(siteqa.ESTORE, err, "migrating %s to version %d: %v", db.path, i+1, err)
		}
		if err := tx.Commit(); err != nil {
			return siteqa.WrapError(siteqa.ESTORE, err, "migrating %s to version %d: %v", db.path, i+1, err)
		}
	}
	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.db != nil {
		return db.db.Close()
	}
	return nil
}

// QueryRowContext executes a query that returns a single row.
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return db.db.QueryRowContext(ctx, query, args...)
}

// QueryContext executes a query that returns rows.
func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.db.QueryContext(ctx, query, args...)
}

// ExecContext executes a statement that doesn't return rows.
func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.db.ExecContext(ctx, query, args...)
}

// BeginTx starts a transaction.
func (db *DB) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return db.db.BeginTx(ctx, nil)
}
