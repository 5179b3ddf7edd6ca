package models

import (
	"fmt"
	"time"
)

// Outcome is how a creation attempt ended.
type Outcome string

const (
	OutcomeSuccess   Outcome = "success"
	OutcomeError     Outcome = "error"
	OutcomeAbandoned Outcome = "abandoned"
)

// Attempt is the persisted record of a finished course creation attempt.
type Attempt struct {
	id           string
	sequence     int
	sessionID    string
	description  string
	level        Level
	outcome      Outcome
	courseID     string
	errorMessage string
	createdAt    time.Time
	updatedAt    time.Time
	deletedAt    *time.Time
}

// NewAttempt creates an Attempt. The ID is assigned by the repository on Create.
func NewAttempt(sequence int, sessionID, description string, level Level, outcome Outcome) *Attempt {
	now := time.Now()
	return &Attempt{
		sequence:    sequence,
		sessionID:   sessionID,
		description: description,
		level:       level,
		outcome:     outcome,
		createdAt:   now,
		updatedAt:   now,
	}
}

func (a *Attempt) ID() string                { return a.id }
func (a *Attempt) Sequence() int             { return a.sequence }
func (a *Attempt) SessionID() string         { return a.sessionID }
func (a *Attempt) Description() string       { return a.description }
func (a *Attempt) Level() Level              { return a.level }
func (a *Attempt) Outcome() Outcome          { return a.outcome }
func (a *Attempt) CourseID() string          { return a.courseID }
func (a *Attempt) ErrorMessage() string      { return a.errorMessage }
func (a *Attempt) CreatedAt() time.Time      { return a.createdAt }
func (a *Attempt) UpdatedAt() time.Time      { return a.updatedAt }
func (a *Attempt) DeletedAt() *time.Time     { return a.deletedAt }
func (a *Attempt) SetID(id string)           { a.id = id }
func (a *Attempt) SetSequence(seq int)       { a.sequence = seq }
func (a *Attempt) SetCourseID(id string)     { a.courseID = id }
func (a *Attempt) SetErrorMessage(m string)  { a.errorMessage = m }
func (a *Attempt) SetOutcome(o Outcome)      { a.outcome = o }
func (a *Attempt) SetCreatedAt(t time.Time)  { a.createdAt = t }
func (a *Attempt) SetUpdatedAt(t time.Time)  { a.updatedAt = t }
func (a *Attempt) SetDeletedAt(t *time.Time) { a.deletedAt = t }

// Validate checks required fields and the outcome value.
func (a *Attempt) Validate() error {
	if a.sessionID == "" {
		return fmt.Errorf("session id is required")
	}
	if a.description == "" {
		return fmt.Errorf("description is required")
	}
	switch a.outcome {
	case OutcomeSuccess, OutcomeError, OutcomeAbandoned:
	default:
		return fmt.Errorf("invalid outcome %q", a.outcome)
	}
	if a.outcome == OutcomeSuccess && a.courseID == "" {
		return fmt.Errorf("successful attempt requires a course id")
	}
	return nil
}

var _ Model = (*Attempt)(nil)
