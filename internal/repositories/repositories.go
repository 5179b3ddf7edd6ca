package repositories

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/desertthunder/coursex/internal/shared"
)

// sequenceTables lists the tables that own a "<table>_sequence" counter row.
var sequenceTables = map[string]bool{"attempts": true}

// NextSequence bumps the counter for table inside tx and returns the new value.
//
// The counter only advances if tx commits, so a failed insert hands its number back.
func NextSequence(tx *sql.Tx, table string) (int, error) {
	if !sequenceTables[table] {
		return 0, fmt.Errorf("%w: no sequence for table %q", shared.ErrInvalidInput, table)
	}

	var sequence int
	err := tx.QueryRow("UPDATE " + table + "_sequence SET value = value + 1 WHERE id = 1 RETURNING value").Scan(&sequence)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("sequence for %s is not initialized", table)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to increment sequence: %w", err)
	}
	return sequence, nil
}

// withTx runs fn in a transaction and commits only when fn succeeds.
func withTx(db *sql.DB, fn func(*sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
