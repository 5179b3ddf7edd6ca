package tasks

import (
	"fmt"

	"github.com/desertthunder/coursex/internal/models"
	"github.com/desertthunder/coursex/internal/session"
)

// Update is what the controller publishes after every processed event.
type Update struct {
	Stage   Stage
	View    session.View
	Notices []session.Notice // notices raised by this event only
}

// Stage condenses a [session.View] into what a CLI or UI should be showing.
type Stage int

const (
	StageIdle Stage = iota
	StageConnecting
	StageGenerating
	StageLoading
	StageReady
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageConnecting:
		return "connecting"
	case StageGenerating:
		return "generating"
	case StageLoading:
		return "loading"
	case StageReady:
		return "ready"
	case StageFailed:
		return "failed"
	default:
		return ""
	}
}

// Terminal reports whether the session has stopped moving on its own.
func (s Stage) Terminal() bool {
	return s == StageReady || s == StageFailed
}

func stageOf(v session.View) Stage {
	switch v.Progress {
	case models.ProgressInProgress:
		switch {
		case !v.Connected:
			return StageConnecting
		case v.PendingDisplay:
			return StageLoading
		default:
			return StageGenerating
		}
	case models.ProgressSuccess:
		return StageReady
	case models.ProgressError:
		return StageFailed
	default:
		return StageIdle
	}
}

func newUpdate(v session.View, notices []session.Notice) Update {
	return Update{Stage: stageOf(v), View: v, Notices: notices}
}

// ProgressUpdate represents a progress event during a bulk export.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
}

// Phase of a bulk export.
type Phase int

const (
	FetchCourses Phase = iota
	ExportCourse
)

func (p Phase) String() string {
	switch p {
	case FetchCourses:
		return "fetch_courses"
	case ExportCourse:
		return "export_course"
	default:
		return ""
	}
}

func fetchingCoursesUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchCourses,
		Step:    0,
		Total:   total,
		Message: fmt.Sprintf("Fetching %d courses...", total),
	}
}

func exportingCourseUpdate(step, total int, title string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportCourse,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Exporting: %s...", step, total, title),
	}
}

func exportCompletedUpdate(step, total int, title string, filesCount int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportCourse,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d files)", step, total, title, filesCount),
	}
}

func exportFailedUpdate(step, total int, title string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportCourse,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, title, err),
	}
}

// sendProgress sends without blocking; a nil or full channel drops the update.
func sendProgress(ch chan<- ProgressUpdate, u ProgressUpdate) {
	if ch == nil {
		return
	}
	select {
	case ch <- u:
	default:
	}
}
