package index

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
)

// RegisterType adds a custom type and its sequence row. Fails with a
// duplicate error when the name is taken, including the built-in and
// date/time-keyed names which are seeded at initialization.
func (db *DB) RegisterType(name string, base models.BaseCategory, description string) error {
	exists, err := db.TypeExists(name)
	if err != nil {
		return err
	}
	if exists {
		return apperr.E(apperr.ErrDuplicate, "Type %s already exists", name)
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`
		INSERT INTO item_types (name, base_category, description) VALUES (?, ?, ?)
	`, name, string(base), description); err != nil {
		return fmt.Errorf("index: register type %s: %w", name, err)
	}
	if _, err := tx.Exec(`
		INSERT OR IGNORE INTO sequences (type, current_value, base_category) VALUES (?, 0, ?)
	`, name, string(base)); err != nil {
		return fmt.Errorf("index: create sequence for %s: %w", name, err)
	}
	return tx.Commit()
}

// DescribeType updates a type's description only.
func (db *DB) DescribeType(name, description string) error {
	res, err := db.conn.Exec(`UPDATE item_types SET description = ? WHERE name = ?`, description, name)
	if err != nil {
		return fmt.Errorf("index: describe type %s: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.TypeNotFound(name)
	}
	return nil
}

// RemoveType deletes the registry entry and its sequence. Callers are
// responsible for checking that no files exist for the type.
func (db *DB) RemoveType(name string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.Exec(`DELETE FROM item_types WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("index: remove type %s: %w", name, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return apperr.TypeNotFound(name)
	}
	_, _ = tx.Exec(`DELETE FROM sequences WHERE type = ?`, name)
	return tx.Commit()
}

// ListTypes returns all registered types, built-ins and date/time-keyed
// included, ordered by base category then name.
func (db *DB) ListTypes() ([]models.TypeDescriptor, error) {
	rows, err := db.conn.Query(`
		SELECT name, base_category, description FROM item_types
		ORDER BY base_category, name
	`)
	if err != nil {
		return nil, fmt.Errorf("index: list types: %w", err)
	}
	defer rows.Close()

	var out []models.TypeDescriptor
	for rows.Next() {
		var d models.TypeDescriptor
		var base string
		if err := rows.Scan(&d.Name, &base, &d.Description); err != nil {
			return nil, err
		}
		d.Base = models.BaseCategory(base)
		out = append(out, d)
	}
	return out, rows.Err()
}

// TypeExists reports whether a type is registered.
func (db *DB) TypeExists(name string) (bool, error) {
	var one int
	err := db.conn.QueryRow(`SELECT 1 FROM item_types WHERE name = ?`, name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("index: type exists %s: %w", name, err)
	}
	return true, nil
}

// TypeBase returns the base category of a registered type.
func (db *DB) TypeBase(name string) (models.BaseCategory, error) {
	var base string
	err := db.conn.QueryRow(`SELECT base_category FROM item_types WHERE name = ?`, name).Scan(&base)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperr.TypeNotFound(name)
	}
	if err != nil {
		return "", fmt.Errorf("index: type base %s: %w", name, err)
	}
	return models.BaseCategory(base), nil
}
