package session

import (
	"fmt"
	"strings"

	"github.com/desertthunder/coursex/internal/models"
	"github.com/desertthunder/coursex/internal/shared"
)

// Dispatcher turns user intents into [Machine] transitions, refusing the ones the
// current state does not allow. It never touches session fields itself.
type Dispatcher struct {
	m     *Machine
	newID func() string
}

// NewDispatcher wraps m. newID generates local session ids and defaults to [shared.GenerateID].
func NewDispatcher(m *Machine, newID func() string) *Dispatcher {
	if newID == nil {
		newID = shared.GenerateID
	}
	return &Dispatcher{m: m, newID: newID}
}

// Machine returns the machine the dispatcher drives.
func (d *Dispatcher) Machine() *Machine { return d.m }

func rejected(format string, args ...any) error {
	return fmt.Errorf("%w: %s", shared.ErrActionRejected, fmt.Sprintf(format, args...))
}

// StartCreation submits a new course request. It is refused while a session is running.
// From success or error the previous session is discarded first.
func (d *Dispatcher) StartCreation(description, level string) ([]Effect, error) {
	if d.m.progress == models.ProgressInProgress {
		return nil, rejected("a course is already being created")
	}

	description = strings.TrimSpace(description)
	if description == "" {
		return nil, shared.ErrEmptyDescription
	}
	lvl, err := models.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidLevel, err)
	}

	if d.m.progress != models.ProgressIdle {
		d.m.reset()
	}
	return d.m.begin(d.newID(), description, lvl), nil
}

// Retry clears a failed session back to a blank form. Nothing is resubmitted.
func (d *Dispatcher) Retry() error {
	if d.m.progress != models.ProgressError {
		return rejected("retry is only available after a failure")
	}
	d.m.reset()
	return nil
}

// DeleteCourse removes the loaded course. Only one delete may be in flight.
func (d *Dispatcher) DeleteCourse() ([]Effect, error) {
	switch {
	case d.m.progress != models.ProgressSuccess || d.m.course == nil:
		return nil, rejected("no course is loaded")
	case d.m.deleting:
		return nil, rejected("course is already being deleted")
	}

	d.m.deleting = true
	d.m.notify(NoticeInfo, "Deleting course...")
	key := FetchKey{Epoch: d.m.epoch, CourseID: d.m.courseID()}
	return []Effect{{Kind: EffectDeleteCourse, Key: key}}, nil
}

// MarkComplete flags a section as done. Completed sections and sections with a
// request already in flight are refused without any network call.
func (d *Dispatcher) MarkComplete(sectionID string) ([]Effect, error) {
	if d.m.progress != models.ProgressSuccess {
		return nil, rejected("no course is loaded")
	}

	var found *models.Section
	for i := range d.m.sections {
		if d.m.sections[i].SectionID == sectionID {
			found = &d.m.sections[i]
			break
		}
	}
	switch {
	case found == nil:
		return nil, fmt.Errorf("%w: section %q", shared.ErrNotFound, sectionID)
	case bool(found.IsCompleted):
		return nil, rejected("section is already completed")
	case d.m.completing[sectionID]:
		return nil, rejected("section is already being completed")
	}

	d.m.completing[sectionID] = true
	key := FetchKey{Epoch: d.m.epoch, CourseID: d.m.courseID()}
	return []Effect{{Kind: EffectMarkComplete, Key: key, SectionID: sectionID}}, nil
}

// MarkCurrentComplete marks the section under the cursor.
func (d *Dispatcher) MarkCurrentComplete() ([]Effect, error) {
	if d.m.cursor < 0 || d.m.cursor >= len(d.m.sections) {
		return nil, rejected("no section is selected")
	}
	return d.MarkComplete(d.m.sections[d.m.cursor].SectionID)
}

// NavigateAway drops whatever is on screen. A session still running is recorded as abandoned.
func (d *Dispatcher) NavigateAway() []Effect {
	var effects []Effect
	if d.m.progress == models.ProgressInProgress {
		effects = d.m.record(models.OutcomeAbandoned)
	}
	d.m.reset()
	return effects
}

// SelectSection moves the cursor to index; -1 selects the course overview.
func (d *Dispatcher) SelectSection(index int) error {
	if d.m.progress != models.ProgressSuccess {
		return rejected("no course is loaded")
	}
	if index < -1 || index >= len(d.m.sections) {
		return fmt.Errorf("%w: section index %d out of range", shared.ErrInvalidInput, index)
	}
	d.m.cursor = index
	return nil
}

// NextSection advances the cursor, stopping at the last section.
func (d *Dispatcher) NextSection() error {
	if d.m.progress != models.ProgressSuccess {
		return rejected("no course is loaded")
	}
	if d.m.cursor < len(d.m.sections)-1 {
		d.m.cursor++
	}
	return nil
}

// PrevSection moves the cursor back, stopping at the overview.
func (d *Dispatcher) PrevSection() error {
	if d.m.progress != models.ProgressSuccess {
		return rejected("no course is loaded")
	}
	if d.m.cursor > -1 {
		d.m.cursor--
	}
	return nil
}
