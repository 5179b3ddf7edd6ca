package repositories

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/desertthunder/coursex/internal/models"
	"github.com/desertthunder/coursex/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	return db
}

func newAttempt(sessionID string, outcome models.Outcome, courseID string) *models.Attempt {
	a := models.NewAttempt(0, sessionID, "Intro to Rust", models.Beginner, outcome)
	a.SetCourseID(courseID)
	return a
}

func TestAttemptRepository(t *testing.T) {
	t.Run("Create", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewAttemptRepository(db)
		attempt := newAttempt("sess-1", models.OutcomeSuccess, "c1")

		if err := repo.Create(attempt); err != nil {
			t.Fatalf("failed to create attempt: %v", err)
		}

		if attempt.ID() == "" {
			t.Error("attempt ID should be set after creation")
		}
		if attempt.Sequence() != 1 {
			t.Errorf("expected sequence 1, got %d", attempt.Sequence())
		}
	})

	t.Run("Create ValidationError", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewAttemptRepository(db)
		attempt := newAttempt("sess-1", models.OutcomeSuccess, "")

		if err := repo.Create(attempt); err == nil {
			t.Fatal("expected validation error for success without course id")
		}
	})

	t.Run("Get", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewAttemptRepository(db)
		attempt := newAttempt("sess-1", models.OutcomeError, "")
		attempt.SetErrorMessage("Invalid course description.")

		if err := repo.Create(attempt); err != nil {
			t.Fatalf("failed to create attempt: %v", err)
		}

		got, err := repo.Get(attempt.ID())
		if err != nil {
			t.Fatalf("failed to get attempt: %v", err)
		}
		if got.SessionID() != "sess-1" {
			t.Errorf("expected session sess-1, got %s", got.SessionID())
		}
		if got.Outcome() != models.OutcomeError {
			t.Errorf("expected outcome error, got %s", got.Outcome())
		}
		if got.ErrorMessage() != "Invalid course description." {
			t.Errorf("expected error message to round-trip, got %q", got.ErrorMessage())
		}
		if got.CourseID() != "" {
			t.Errorf("expected empty course id, got %q", got.CourseID())
		}
	})

	t.Run("Get NotFound", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewAttemptRepository(db)
		if _, err := repo.Get("nonexistent-id"); !errors.Is(err, shared.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Update", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewAttemptRepository(db)
		attempt := newAttempt("sess-1", models.OutcomeError, "")
		if err := repo.Create(attempt); err != nil {
			t.Fatalf("failed to create attempt: %v", err)
		}

		attempt.SetOutcome(models.OutcomeSuccess)
		attempt.SetCourseID("c9")
		if err := repo.Update(attempt); err != nil {
			t.Fatalf("failed to update attempt: %v", err)
		}

		got, err := repo.Get(attempt.ID())
		if err != nil {
			t.Fatalf("failed to get attempt: %v", err)
		}
		if got.Outcome() != models.OutcomeSuccess || got.CourseID() != "c9" {
			t.Errorf("expected success/c9, got %s/%s", got.Outcome(), got.CourseID())
		}
	})

	t.Run("Delete", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewAttemptRepository(db)
		attempt := newAttempt("sess-1", models.OutcomeAbandoned, "")
		if err := repo.Create(attempt); err != nil {
			t.Fatalf("failed to create attempt: %v", err)
		}

		if err := repo.Delete(attempt.ID()); err != nil {
			t.Fatalf("failed to delete attempt: %v", err)
		}
		if _, err := repo.Get(attempt.ID()); err == nil {
			t.Error("expected deleted attempt to be hidden")
		}
		if err := repo.Delete(attempt.ID()); err == nil {
			t.Error("expected error deleting an already deleted attempt")
		}
	})

	t.Run("List", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewAttemptRepository(db)
		for _, a := range []*models.Attempt{
			newAttempt("sess-1", models.OutcomeSuccess, "c1"),
			newAttempt("sess-2", models.OutcomeError, ""),
			newAttempt("sess-3", models.OutcomeSuccess, "c3"),
		} {
			if err := repo.Create(a); err != nil {
				t.Fatalf("failed to create attempt: %v", err)
			}
		}

		all, err := repo.List(nil)
		if err != nil {
			t.Fatalf("failed to list attempts: %v", err)
		}
		if len(all) != 3 {
			t.Fatalf("expected 3 attempts, got %d", len(all))
		}
		if all[0].SessionID() != "sess-3" {
			t.Errorf("expected newest first, got %s", all[0].SessionID())
		}

		succeeded, err := repo.List(map[string]any{"outcome": "success"})
		if err != nil {
			t.Fatalf("failed to list attempts: %v", err)
		}
		if len(succeeded) != 2 {
			t.Errorf("expected 2 successful attempts, got %d", len(succeeded))
		}

		limited, err := repo.List(map[string]any{"limit": 1})
		if err != nil {
			t.Fatalf("failed to list attempts: %v", err)
		}
		if len(limited) != 1 {
			t.Errorf("expected 1 attempt, got %d", len(limited))
		}

		byCourse, err := repo.List(map[string]any{"course_id": "c1"})
		if err != nil {
			t.Fatalf("failed to list attempts: %v", err)
		}
		if len(byCourse) != 1 || byCourse[0].SessionID() != "sess-1" {
			t.Errorf("expected only sess-1 for c1, got %d attempts", len(byCourse))
		}
	})

	t.Run("DeleteAll", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewAttemptRepository(db)
		for _, id := range []string{"a", "b"} {
			if err := repo.Create(newAttempt(id, models.OutcomeAbandoned, "")); err != nil {
				t.Fatalf("failed to create attempt: %v", err)
			}
		}

		n, err := repo.DeleteAll()
		if err != nil {
			t.Fatalf("failed to clear attempts: %v", err)
		}
		if n != 2 {
			t.Errorf("expected 2 cleared attempts, got %d", n)
		}

		remaining, _ := repo.List(nil)
		if len(remaining) != 0 {
			t.Errorf("expected no attempts after clear, got %d", len(remaining))
		}
	})
}

func TestAttemptRecorder(t *testing.T) {
	t.Run("Records Once Per Session", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		repo := NewAttemptRepository(db)
		recorder := NewAttemptRecorder(repo)

		if err := recorder.RecordAttempt(newAttempt("sess-1", models.OutcomeSuccess, "c1")); err != nil {
			t.Fatalf("failed to record attempt: %v", err)
		}

		second := newAttempt("sess-1", models.OutcomeAbandoned, "c1")
		if err := recorder.RecordAttempt(second); err != nil {
			t.Fatalf("failed to record attempt again: %v", err)
		}

		all, err := repo.List(nil)
		if err != nil {
			t.Fatalf("failed to list attempts: %v", err)
		}
		if len(all) != 1 {
			t.Fatalf("expected a single attempt row, got %d", len(all))
		}
		if all[0].Outcome() != models.OutcomeAbandoned {
			t.Errorf("expected latest outcome abandoned, got %s", all[0].Outcome())
		}
		if second.ID() != all[0].ID() {
			t.Error("expected recorded attempt to carry the stored ID")
		}
	})
}

func TestNextSequence(t *testing.T) {
	t.Run("Unknown Table", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		tx, err := db.Begin()
		if err != nil {
			t.Fatalf("failed to begin: %v", err)
		}
		defer tx.Rollback()

		if _, err := NextSequence(tx, "attempts; DROP TABLE attempts"); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("Rollback Returns Number", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		tx, err := db.Begin()
		if err != nil {
			t.Fatalf("failed to begin: %v", err)
		}
		seq, err := NextSequence(tx, "attempts")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if seq != 1 {
			t.Errorf("expected sequence 1, got %d", seq)
		}
		tx.Rollback()

		attempt := newAttempt("sess-1", models.OutcomeSuccess, "c1")
		if err := NewAttemptRepository(db).Create(attempt); err != nil {
			t.Fatalf("failed to create attempt: %v", err)
		}
		if attempt.Sequence() != 1 {
			t.Errorf("expected sequence 1 after rollback, got %d", attempt.Sequence())
		}
	})

	t.Run("Failed Insert Keeps Counter", func(t *testing.T) {
		db := setupTestDB(t)
		defer db.Close()

		if _, err := db.Exec(`INSERT INTO attempts (id, sequence, session_id, description, level, outcome, created_at, updated_at)
			VALUES ('taken', 1, 'sess-0', 'x', 'Beginner', 'error', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`); err != nil {
			t.Fatalf("failed to seed row: %v", err)
		}

		repo := NewAttemptRepository(db)
		if err := repo.Create(newAttempt("sess-1", models.OutcomeSuccess, "c1")); err == nil {
			t.Fatal("expected duplicate sequence to fail")
		}

		var value int
		if err := db.QueryRow(`SELECT value FROM attempts_sequence WHERE id = 1`).Scan(&value); err != nil {
			t.Fatalf("failed to read counter: %v", err)
		}
		if value != 0 {
			t.Errorf("expected counter 0 after failed insert, got %d", value)
		}
	})
}
