//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS items_fts USING fts5(
			type UNINDEXED,
			id UNINDEXED,
			title,
			body,
			tags,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, itemType, id, title, body string, tags []string) error {
	_, _ = tx.Exec(`DELETE FROM items_fts WHERE type = ? AND id = ?`, itemType, id)
	_, err := tx.Exec(`INSERT INTO items_fts (type, id, title, body, tags) VALUES (?, ?, ?, ?, ?)`,
		itemType, id, title, body, strings.Join(tags, " "))
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, itemType, id string) {
	_, _ = tx.Exec(`DELETE FROM items_fts WHERE type = ? AND id = ?`, itemType, id)
}

// matchExpr builds an FTS5 MATCH expression that AND-combines the query
// tokens, quoting each so its characters are matched literally.
func matchExpr(tokens []string) string {
	quoted := make([]string, len(tokens))
	for i, tok := range tokens {
		quoted[i] = `"` + strings.ReplaceAll(tok, `"`, `""`) + `"`
	}
	return strings.Join(quoted, " AND ")
}

// Search performs a ranked FTS5 full-text search. A hit must contain every
// token of the query. When FTS5 tokenization yields nothing for a
// non-Latin query, substring containment over the summary rows is tried
// instead, so scripts without whitespace word breaks still match.
func (db *DB) Search(query string, opts SearchOptions) ([]SearchHit, error) {
	tokens := tokenize(query)
	if len(tokens) == 0 {
		return nil, nil
	}

	var qb strings.Builder
	args := []any{matchExpr(tokens)}
	qb.WriteString(`
		SELECT type, id, title,
		       snippet(items_fts, 3, '<b>', '</b>', '...', 64)
		FROM items_fts
		WHERE items_fts MATCH ?`)
	appendTypeFilter(&qb, &args, opts.Types)
	qb.WriteString(` ORDER BY rank LIMIT ? OFFSET ?`)
	args = append(args, normalizeLimit(opts.Limit), opts.Offset)

	rows, err := db.conn.Query(qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchHit
	for rows.Next() {
		var h SearchHit
		if err := rows.Scan(&h.Type, &h.ID, &h.Title, &h.Snippet); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 && hasNonLatin(query) {
		return db.likeSearch(tokens, opts)
	}
	return out, nil
}

// Count returns the number of items matching the query, with the same
// semantics as Search.
func (db *DB) Count(query string, types []string) (int, error) {
	tokens := tokenize(query)
	if len(tokens) == 0 {
		return 0, nil
	}

	var qb strings.Builder
	args := []any{matchExpr(tokens)}
	qb.WriteString(`SELECT count(*) FROM items_fts WHERE items_fts MATCH ?`)
	appendTypeFilter(&qb, &args, types)

	var n int
	if err := db.conn.QueryRow(qb.String(), args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("index: count: %w", err)
	}
	if n == 0 && hasNonLatin(query) {
		return db.likeCount(tokens, types)
	}
	return n, nil
}
