package index

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/starford/raido/internal/apperr"
	"github.com/starford/raido/internal/models"
)

// NextID atomically increments and returns the sequence counter for a
// numeric-ID type. The increment is a single SQL statement so concurrent
// creates of the same type never observe the same value.
//
// Date/time-keyed types never reach this; callers derive their IDs from a
// timestamp instead and the counter stays at its initial value.
func (db *DB) NextID(itemType string) (int, error) {
	if models.DateKeyed(itemType) {
		return 0, apperr.E(apperr.ErrValidation, "Type %s uses timestamp IDs, not a sequence", itemType)
	}
	var v int
	err := db.conn.QueryRow(`
		UPDATE sequences SET current_value = current_value + 1
		WHERE type = ?
		RETURNING current_value
	`, itemType).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, apperr.TypeNotFound(itemType)
	}
	if err != nil {
		return 0, fmt.Errorf("index: next id for %s: %w", itemType, err)
	}
	return v, nil
}

// ReconcileSequence raises the counter to maxObserved if it is behind.
// Used only by rebuild; a no-op for date/time-keyed types.
func (db *DB) ReconcileSequence(itemType string, maxObserved int) error {
	if models.DateKeyed(itemType) {
		return nil
	}
	_, err := db.conn.Exec(`
		UPDATE sequences SET current_value = ?
		WHERE type = ? AND current_value < ?
	`, maxObserved, itemType, maxObserved)
	if err != nil {
		return fmt.Errorf("index: reconcile sequence for %s: %w", itemType, err)
	}
	return nil
}

// SequenceValue returns the current counter for a type.
func (db *DB) SequenceValue(itemType string) (int, error) {
	var v int
	err := db.conn.QueryRow(`SELECT current_value FROM sequences WHERE type = ?`, itemType).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, apperr.TypeNotFound(itemType)
	}
	if err != nil {
		return 0, fmt.Errorf("index: sequence value for %s: %w", itemType, err)
	}
	return v, nil
}
