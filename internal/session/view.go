package session

import "github.com/desertthunder/coursex/internal/models"

// View is the read model handed to presentation. It is a deep copy and safe to keep.
type View struct {
	Progress models.Progress
	// PendingDisplay is set while success has been reported but its course is still loading.
	PendingDisplay bool

	Session       *models.Session
	Course        *models.Course
	Sections      []models.Section // sorted by SectionOrder
	CurrentAction string
	ErrorMessage  string
	Cursor        int // index into Sections, -1 for the course overview

	Connected  bool
	Deleting   bool
	Completing map[string]bool

	CanSubmit bool
	CanRetry  bool
	CanDelete bool
}

// CanMarkComplete reports whether the section may be marked complete right now.
func (v View) CanMarkComplete(sectionID string) bool {
	if v.Progress != models.ProgressSuccess || v.Completing[sectionID] {
		return false
	}
	for _, s := range v.Sections {
		if s.SectionID == sectionID {
			return !bool(s.IsCompleted)
		}
	}
	return false
}

// Current returns the section under the cursor, or nil on the overview.
func (v View) Current() *models.Section {
	if v.Cursor < 0 || v.Cursor >= len(v.Sections) {
		return nil
	}
	s := v.Sections[v.Cursor]
	return &s
}

// Ready reports whether a course can be shown as the result of the session.
func (v View) Ready() bool {
	return v.Progress == models.ProgressSuccess && v.Course != nil
}

// View builds the read model for the current state.
func (m *Machine) View() View {
	v := View{
		Progress:       m.progress,
		PendingDisplay: m.progress == models.ProgressInProgress && m.successSeq != 0,
		Session:        m.session.Clone(),
		Course:         m.course.Clone(),
		Sections:       models.CloneSections(m.sections),
		CurrentAction:  m.session.CurrentAction(),
		ErrorMessage:   m.errMsg,
		Cursor:         m.cursor,
		Connected:      m.connected,
		Deleting:       m.deleting,
		Completing:     make(map[string]bool, len(m.completing)),
	}
	for id := range m.completing {
		v.Completing[id] = true
	}

	v.CanSubmit = m.progress != models.ProgressInProgress
	v.CanRetry = m.progress == models.ProgressError
	v.CanDelete = m.progress == models.ProgressSuccess && m.course != nil && !m.deleting
	return v
}
