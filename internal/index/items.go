package index

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ListHardCap bounds any single list query regardless of the caller's limit.
const ListHardCap = 10000

// ItemRow is the summary projection of one item in the index. It is
// derived entirely from the item's file and is never authoritative.
type ItemRow struct {
	Type        string
	ID          string
	Title       string
	Description string
	Priority    string
	StatusID    int    // 0 when the item carries no status
	StatusName  string // resolved on reads
	StartDate   string
	EndDate     string
	Tags        []string
	Related     []string
	Version     string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ListOptions controls ListItems filtering.
type ListOptions struct {
	// IncludeClosed includes items whose status resolves to is_closed.
	IncludeClosed bool
	// Statuses, when non-nil, filters by status name and takes precedence
	// over IncludeClosed. A non-nil empty list matches nothing.
	Statuses []string
	// Limit bounds the result count; values <= 0 mean no caller limit.
	// Values above ListHardCap are clamped to it.
	Limit int
}

// UpsertItem inserts or replaces an item's summary row and FTS entry in a
// single transaction. Mutations are whole-row replace so a concurrent
// rebuild never observes a partially updated row.
func (db *DB) UpsertItem(row ItemRow, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	tagsJSON, _ := json.Marshal(row.Tags)
	relatedJSON, _ := json.Marshal(row.Related)

	var statusID any
	if row.StatusID > 0 {
		statusID = row.StatusID
	}

	_, err = tx.Exec(`
		INSERT INTO items (type, id, title, description, priority, status_id,
			start_date, end_date, tags, related, version, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(type, id) DO UPDATE SET
			title       = excluded.title,
			description = excluded.description,
			priority    = excluded.priority,
			status_id   = excluded.status_id,
			start_date  = excluded.start_date,
			end_date    = excluded.end_date,
			tags        = excluded.tags,
			related     = excluded.related,
			version     = excluded.version,
			body        = excluded.body,
			created_at  = excluded.created_at,
			updated_at  = excluded.updated_at
	`, row.Type, row.ID, row.Title, row.Description, row.Priority, statusID,
		row.StartDate, row.EndDate, string(tagsJSON), string(relatedJSON),
		row.Version, body, row.CreatedAt, row.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert item: %w", err)
	}

	if err := ftsUpsert(tx, row.Type, row.ID, row.Title, body, row.Tags); err != nil {
		return err
	}

	return tx.Commit()
}

// DeleteItem removes an item's summary row and FTS entry.
func (db *DB) DeleteItem(itemType, id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, itemType, id)
	_, _ = tx.Exec(`DELETE FROM items WHERE type = ? AND id = ?`, itemType, id)

	return tx.Commit()
}

const itemColumns = `
	i.type, i.id, i.title, i.description, i.priority,
	i.status_id, COALESCE(s.name, ''), i.start_date, i.end_date,
	i.tags, i.related, i.version, i.created_at, i.updated_at`

// ListItems returns the summary rows of one type. By default items whose
// status resolves to is_closed are excluded; see ListOptions.
func (db *DB) ListItems(itemType string, opts ListOptions) ([]ItemRow, error) {
	if opts.Statuses != nil && len(opts.Statuses) == 0 {
		// An explicit empty filter matches nothing, distinct from "no filter".
		return nil, nil
	}

	var qb strings.Builder
	args := []any{itemType}
	qb.WriteString(`SELECT` + itemColumns + `
		FROM items i
		LEFT JOIN statuses s ON s.id = i.status_id
		WHERE i.type = ?`)

	switch {
	case opts.Statuses != nil:
		qb.WriteString(` AND s.name IN (?` + strings.Repeat(",?", len(opts.Statuses)-1) + `)`)
		for _, name := range opts.Statuses {
			args = append(args, name)
		}
	case !opts.IncludeClosed:
		qb.WriteString(` AND (i.status_id IS NULL OR s.is_closed = 0)`)
	}

	limit := opts.Limit
	if limit <= 0 || limit > ListHardCap {
		limit = ListHardCap
	}
	qb.WriteString(` ORDER BY CAST(i.id AS INTEGER), i.id LIMIT ?`)
	args = append(args, limit)

	rows, err := db.conn.Query(qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("index: list items: %w", err)
	}
	defer rows.Close()
	return scanItemRows(rows)
}

// ItemsByTag returns rows whose tag set contains the given tag. An empty
// itemType searches across all types, ordered by type then ID.
func (db *DB) ItemsByTag(itemType, tag string) ([]ItemRow, error) {
	var qb strings.Builder
	qb.WriteString(`SELECT` + itemColumns + `
		FROM items i
		LEFT JOIN statuses s ON s.id = i.status_id
		WHERE EXISTS (SELECT 1 FROM json_each(i.tags) WHERE value = ?)`)
	args := []any{tag}
	if itemType != "" {
		qb.WriteString(` AND i.type = ?`)
		args = append(args, itemType)
	}
	qb.WriteString(` ORDER BY i.type, CAST(i.id AS INTEGER), i.id LIMIT ?`)
	args = append(args, ListHardCap)

	rows, err := db.conn.Query(qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("index: items by tag: %w", err)
	}
	defer rows.Close()
	return scanItemRows(rows)
}

// ItemKeyPair identifies one indexed row.
type ItemKeyPair struct {
	Type string
	ID   string
}

// AllKeys returns every (type, id) currently indexed.
func (db *DB) AllKeys() (map[ItemKeyPair]struct{}, error) {
	rows, err := db.conn.Query(`SELECT type, id FROM items`)
	if err != nil {
		return nil, fmt.Errorf("index: all keys: %w", err)
	}
	defer rows.Close()
	out := make(map[ItemKeyPair]struct{})
	for rows.Next() {
		var k ItemKeyPair
		if err := rows.Scan(&k.Type, &k.ID); err != nil {
			return nil, err
		}
		out[k] = struct{}{}
	}
	return out, rows.Err()
}

func scanItemRows(rows *sql.Rows) ([]ItemRow, error) {
	var out []ItemRow
	for rows.Next() {
		var (
			r           ItemRow
			statusID    sql.NullInt64
			tagsJSON    string
			relatedJSON string
			createdAt   sql.NullTime
			updatedAt   sql.NullTime
		)
		if err := rows.Scan(&r.Type, &r.ID, &r.Title, &r.Description, &r.Priority,
			&statusID, &r.StatusName, &r.StartDate, &r.EndDate,
			&tagsJSON, &relatedJSON, &r.Version, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		r.StatusID = int(statusID.Int64)
		_ = json.Unmarshal([]byte(tagsJSON), &r.Tags)
		_ = json.Unmarshal([]byte(relatedJSON), &r.Related)
		r.CreatedAt = createdAt.Time
		r.UpdatedAt = updatedAt.Time
		out = append(out, r)
	}
	return out, rows.Err()
}
