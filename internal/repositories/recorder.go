package repositories

import (
	"errors"
	"fmt"

	"github.com/desertthunder/coursex/internal/models"
	"github.com/desertthunder/coursex/internal/shared"
)

// AttemptRecorder implements tasks.Recorder using [AttemptRepository].
//
// A session is recorded once; later outcomes for the same session update the existing row.
type AttemptRecorder struct {
	repo *AttemptRepository
}

// NewAttemptRecorder creates a new AttemptRecorder with the given repository
func NewAttemptRecorder(repo *AttemptRepository) *AttemptRecorder {
	return &AttemptRecorder{repo: repo}
}

// RecordAttempt stores the attempt, or updates the row already stored for its session.
func (a *AttemptRecorder) RecordAttempt(attempt *models.Attempt) error {
	existing, err := a.repo.GetBySessionID(attempt.SessionID())
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return fmt.Errorf("failed to look up attempt: %w", err)
	}

	if existing == nil {
		if err := a.repo.Create(attempt); err != nil {
			return fmt.Errorf("failed to record attempt: %w", err)
		}
		return nil
	}

	existing.SetOutcome(attempt.Outcome())
	existing.SetCourseID(attempt.CourseID())
	existing.SetErrorMessage(attempt.ErrorMessage())
	if err := a.repo.Update(existing); err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}
	attempt.SetID(existing.ID())
	attempt.SetSequence(existing.Sequence())
	return nil
}
