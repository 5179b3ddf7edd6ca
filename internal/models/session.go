package models

import (
	"slices"
	"strings"
)

// Progress is the lifecycle state of a creation session as the client presents it.
type Progress string

const (
	ProgressIdle       Progress = "idle"
	ProgressInProgress Progress = "in_progress"
	ProgressSuccess    Progress = "success"
	ProgressError      Progress = "error"
)

// Session is one user-initiated course creation attempt.
type Session struct {
	SessionID    string
	Description  string
	Level        Level
	Progress     Progress
	Actions      []string // narration only, most recent last
	CourseID     string   // empty until the backend reports a course
	ErrorMessage string
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Actions = slices.Clone(s.Actions)
	return &out
}

// CurrentAction returns the most recent narration string, if any.
func (s *Session) CurrentAction() string {
	if s == nil || len(s.Actions) == 0 {
		return ""
	}
	return s.Actions[len(s.Actions)-1]
}

// Wire progress values reported by the backend in session updates.
const (
	WireInProgress = "in_progress"
	WireSuccess    = "success"
	WireFailed     = "failed"
)

// SessionUpdate is the payload of an inbound session_update event.
type SessionUpdate struct {
	SessionID    string   `json:"session_id"`
	Description  string   `json:"description"`
	Level        string   `json:"level"`
	Progress     string   `json:"progress"`
	Actions      []string `json:"actions"`
	CourseID     *string  `json:"course_id"`
	ErrorMessage string   `json:"error_message,omitempty"`
}

// CourseIDValue returns the reported course id, or "" when it is null or blank.
func (u SessionUpdate) CourseIDValue() string {
	if u.CourseID == nil {
		return ""
	}
	return strings.TrimSpace(*u.CourseID)
}

// ProtocolError is the payload of an inbound error event.
type ProtocolError struct {
	Error     string `json:"error"`
	SessionID string `json:"session_id"`
}

// StartCreation is the payload of the outbound start_creation command.
type StartCreation struct {
	Description string `json:"description"`
	Level       Level  `json:"level"`
}
