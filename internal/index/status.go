package index

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
)

// StatusByName resolves a workflow status by its unique name.
func (db *DB) StatusByName(name string) (*models.Status, error) {
	var s models.Status
	err := db.conn.QueryRow(`
		SELECT id, name, is_closed, display_order FROM statuses WHERE name = ?
	`, name).Scan(&s.ID, &s.Name, &s.IsClosed, &s.DisplayOrder)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.E(apperr.ErrNotFound, "Status %s not found", name)
	}
	if err != nil {
		return nil, fmt.Errorf("index: status by name %s: %w", name, err)
	}
	return &s, nil
}

// ListStatuses returns the workflow in display order.
func (db *DB) ListStatuses() ([]models.Status, error) {
	rows, err := db.conn.Query(`
		SELECT id, name, is_closed, display_order FROM statuses ORDER BY display_order
	`)
	if err != nil {
		return nil, fmt.Errorf("index: list statuses: %w", err)
	}
	defer rows.Close()

	var out []models.Status
	for rows.Next() {
		var s models.Status
		if err := rows.Scan(&s.ID, &s.Name, &s.IsClosed, &s.DisplayOrder); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
