package index

import (
	"database/sql"
	"fmt"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
)

// EnsureTags inserts any tag name that does not already exist. Names are
// expected to be pre-cleaned by the caller. Insert-if-absent semantics make
// this idempotent and safe under concurrent callers.
func (db *DB) EnsureTags(names []string) error {
	if len(names) == 0 {
		return nil
	}
	stmt, err := db.conn.Prepare(`INSERT OR IGNORE INTO tags (name) VALUES (?)`)
	if err != nil {
		return fmt.Errorf("index: prepare tag insert: %w", err)
	}
	defer stmt.Close()
	for _, name := range names {
		if _, err := stmt.Exec(name); err != nil {
			return fmt.Errorf("index: ensure tag %s: %w", name, err)
		}
	}
	return nil
}

// SearchTags matches tag names by case-sensitive literal substring.
// instr() treats the pattern's characters literally, so LIKE wildcards in
// the input have no special meaning.
func (db *DB) SearchTags(pattern string) ([]models.Tag, error) {
	rows, err := db.conn.Query(`
		SELECT name, created_at FROM tags
		WHERE instr(name, ?) > 0
		ORDER BY name
	`, pattern)
	if err != nil {
		return nil, fmt.Errorf("index: search tags: %w", err)
	}
	defer rows.Close()
	return scanTags(rows)
}

// ListTags returns every registered tag ordered by name.
func (db *DB) ListTags() ([]models.Tag, error) {
	rows, err := db.conn.Query(`SELECT name, created_at FROM tags ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("index: list tags: %w", err)
	}
	defer rows.Close()
	return scanTags(rows)
}

// DeleteTag removes a tag unconditionally; items keep any references to it.
func (db *DB) DeleteTag(name string) error {
	res, err := db.conn.Exec(`DELETE FROM tags WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("index: delete tag %s: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.TagNotFound(name)
	}
	return nil
}

func scanTags(rows *sql.Rows) ([]models.Tag, error) {
	var out []models.Tag
	for rows.Next() {
		var t models.Tag
		if err := rows.Scan(&t.Name, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
