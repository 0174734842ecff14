// Package index provides the SQLite-backed search index derived from item
// files, with optional FTS5 full-text search.
//
// Nothing in this package is authoritative: every table except the type
// registry, sequences, tags, and statuses is a disposable projection that a
// rebuild regenerates from the file tree.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/raido/internal/models"
)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS item_types (
	name          TEXT PRIMARY KEY,
	base_category TEXT NOT NULL,
	description   TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS sequences (
	type          TEXT PRIMARY KEY,
	current_value INTEGER NOT NULL DEFAULT 0,
	base_category TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS statuses (
	id            INTEGER PRIMARY KEY,
	name          TEXT NOT NULL UNIQUE,
	is_closed     INTEGER NOT NULL DEFAULT 0,
	display_order INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS tags (
	name       TEXT PRIMARY KEY,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS items (
	type        TEXT NOT NULL,
	id          TEXT NOT NULL,
	title       TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	priority    TEXT NOT NULL DEFAULT '',
	status_id   INTEGER,
	start_date  TEXT NOT NULL DEFAULT '',
	end_date    TEXT NOT NULL DEFAULT '',
	tags        TEXT NOT NULL DEFAULT '[]',
	related     TEXT NOT NULL DEFAULT '[]',
	version     TEXT NOT NULL DEFAULT '',
	body        TEXT NOT NULL DEFAULT '',
	created_at  DATETIME,
	updated_at  DATETIME,
	PRIMARY KEY (type, id)
);

CREATE INDEX IF NOT EXISTS idx_items_status ON items(status_id);
CREATE INDEX IF NOT EXISTS idx_items_type ON items(type);
`

// DB wraps a sql.DB with index-specific operations.
type DB struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database, applies the schema, and
// seeds the default statuses and built-in types.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: apply fts schema: %w", err)
	}
	db := &DB{conn: conn}
	if err := db.seed(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: seed: %w", err)
	}
	return db, nil
}

// seed inserts the default status workflow and the built-in item types.
// Idempotent across reopens.
func (db *DB) seed() error {
	for _, s := range models.DefaultStatuses {
		if _, err := db.conn.Exec(`
			INSERT OR IGNORE INTO statuses (id, name, is_closed, display_order)
			VALUES (?, ?, ?, ?)
		`, s.ID, s.Name, s.IsClosed, s.DisplayOrder); err != nil {
			return err
		}
	}
	for _, t := range models.BuiltinTypes {
		if _, err := db.conn.Exec(`
			INSERT OR IGNORE INTO item_types (name, base_category, description)
			VALUES (?, ?, ?)
		`, t.Name, string(t.Base), t.Description); err != nil {
			return err
		}
		if _, err := db.conn.Exec(`
			INSERT OR IGNORE INTO sequences (type, current_value, base_category)
			VALUES (?, 0, ?)
		`, t.Name, string(t.Base)); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}
