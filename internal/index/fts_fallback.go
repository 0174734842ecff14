//go:build !sqlite_fts5

package index

import (
	"database/sql"
)

func initFTS(_ *sql.DB) error {
	// FTS5 not compiled in; full-text search uses substring matching on
	// the items table, which already stores the body.
	return nil
}

func ftsUpsert(_ *sql.Tx, _, _, _, _ string, _ []string) error {
	return nil
}

func ftsDelete(_ *sql.Tx, _, _ string) {}

// Search performs a substring search (fallback when FTS5 is not compiled
// in). A hit must contain every token of the query.
func (db *DB) Search(query string, opts SearchOptions) ([]SearchHit, error) {
	return db.likeSearch(tokenize(query), opts)
}

// Count returns the number of items matching the query.
func (db *DB) Count(query string, types []string) (int, error) {
	return db.likeCount(tokenize(query), types)
}
