package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/coursex/internal/models"
	"github.com/desertthunder/coursex/internal/shared"
)

// AttemptRepository implements [models.Store] for [models.Attempt] persistence.
type AttemptRepository struct {
	db *sql.DB
}

// NewAttemptRepository creates a new [AttemptRepository] with the given database connection
func NewAttemptRepository(db *sql.DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

const attemptColumns = `id, sequence, session_id, description, level, outcome, course_id, error_message, created_at, updated_at, deleted_at`

// Create inserts a new attempt into the database with generated ID and sequence
func (r *AttemptRepository) Create(attempt *models.Attempt) error {
	if err := attempt.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		INSERT INTO attempts (id, sequence, session_id, description, level, outcome, course_id, error_message, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	id := shared.GenerateID()
	var sequence int
	err := withTx(r.db, func(tx *sql.Tx) error {
		var err error
		if sequence, err = NextSequence(tx, "attempts"); err != nil {
			return fmt.Errorf("failed to generate sequence: %w", err)
		}

		_, err = tx.Exec(query, id, sequence, attempt.SessionID(), attempt.Description(), string(attempt.Level()),
			string(attempt.Outcome()), nullString(attempt.CourseID()), nullString(attempt.ErrorMessage()),
			attempt.CreatedAt(), attempt.UpdatedAt())
		if err != nil {
			return fmt.Errorf("failed to insert attempt: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	attempt.SetID(id)
	attempt.SetSequence(sequence)
	return nil
}

// Get retrieves an attempt by ID, excluding soft-deleted attempts
func (r *AttemptRepository) Get(id string) (*models.Attempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM attempts WHERE id = ? AND deleted_at IS NULL`

	attempt, err := scanAttempt(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: attempt %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query attempt: %w", err)
	}
	return attempt, nil
}

// GetBySessionID retrieves the attempt recorded for a creation session
func (r *AttemptRepository) GetBySessionID(sessionID string) (*models.Attempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM attempts WHERE session_id = ? AND deleted_at IS NULL`

	attempt, err := scanAttempt(r.db.QueryRow(query, sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: attempt for session %s", shared.ErrNotFound, sessionID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query attempt: %w", err)
	}
	return attempt, nil
}

// Update modifies the outcome, course and error of an existing attempt
func (r *AttemptRepository) Update(attempt *models.Attempt) error {
	if err := attempt.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	attempt.SetUpdatedAt(now)

	query := `
		UPDATE attempts
		SET outcome = ?, course_id = ?, error_message = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, string(attempt.Outcome()), nullString(attempt.CourseID()),
		nullString(attempt.ErrorMessage()), now, attempt.ID())
	if err != nil {
		return fmt.Errorf("failed to update attempt: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: attempt %s (or already deleted)", shared.ErrNotFound, attempt.ID())
	}

	return nil
}

// Delete soft-deletes an attempt by ID
func (r *AttemptRepository) Delete(id string) error {
	query := `UPDATE attempts SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete attempt: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: attempt %s (or already deleted)", shared.ErrNotFound, id)
	}

	return nil
}

// DeleteAll soft-deletes every attempt and returns how many were removed
func (r *AttemptRepository) DeleteAll() (int64, error) {
	result, err := r.db.Exec(`UPDATE attempts SET deleted_at = ? WHERE deleted_at IS NULL`, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to clear attempts: %w", err)
	}
	return result.RowsAffected()
}

// List retrieves attempts matching the given criteria, newest first, excluding soft-deleted attempts.
//
// Supported criteria: "outcome" (string), "course_id" (string), "limit" (int).
func (r *AttemptRepository) List(criteria map[string]any) ([]*models.Attempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM attempts WHERE deleted_at IS NULL`
	args := []any{}

	if outcome, ok := criteria["outcome"].(string); ok && outcome != "" {
		query += " AND outcome = ?"
		args = append(args, outcome)
	}
	if courseID, ok := criteria["course_id"].(string); ok && courseID != "" {
		query += " AND course_id = ?"
		args = append(args, courseID)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*models.Attempt
	for rows.Next() {
		attempt, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		attempts = append(attempts, attempt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return attempts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row rowScanner) (*models.Attempt, error) {
	var (
		id           string
		sequence     int
		sessionID    string
		description  string
		level        string
		outcome      string
		courseID     sql.NullString
		errorMessage sql.NullString
		createdAt    time.Time
		updatedAt    time.Time
		deletedAt    sql.NullTime
	)

	err := row.Scan(&id, &sequence, &sessionID, &description, &level, &outcome,
		&courseID, &errorMessage, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}

	attempt := models.NewAttempt(sequence, sessionID, description, models.Level(level), models.Outcome(outcome))
	attempt.SetID(id)
	attempt.SetCourseID(courseID.String)
	attempt.SetErrorMessage(errorMessage.String)
	attempt.SetCreatedAt(createdAt)
	attempt.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		attempt.SetDeletedAt(&deletedAt.Time)
	}
	return attempt, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ models.Store[*models.Attempt] = (*AttemptRepository)(nil)
