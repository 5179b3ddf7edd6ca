package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/coursex/internal/models"
	"github.com/desertthunder/coursex/internal/shared"
)

const (
	msgInitializing     = "Initializing course creation..."
	msgConnectFailed    = "Failed to connect to the course service. Please check your connection and try again."
	msgConnectionLost   = "Connection to the course service was lost, reconnecting..."
	msgMissingCourseID  = "Course creation was successful, but we couldn't retrieve the course ID."
	msgGenerationFailed = "Oops! Course creation couldn't be completed."
	msgProtocolError    = "An unexpected issue occurred with the service."
	msgCourseReady      = "Your course is ready!"
	msgCourseDeleted    = "Course deleted successfully!"
	msgDeleteFailed     = "Failed to delete course."
)

// Machine owns one course creation session and decides every state transition.
//
// It performs no IO. Each event method returns the [Effect]s the caller must run, and each
// effect's outcome comes back through the matching result method carrying the effect's
// [FetchKey]. Results whose key is no longer current are dropped. A Machine is not safe for
// concurrent use; exactly one goroutine should own it.
type Machine struct {
	progress  models.Progress
	session   *models.Session
	course    *models.Course
	sections  []models.Section
	errMsg    string
	connected bool

	// pendingStart holds a submitted command until the channel is up.
	pendingStart bool
	// serverActions is the length of the last narration list adopted from the backend.
	serverActions int

	epoch      uint64
	seq        uint64
	bundleSeq  uint64 // latest bundle fetch issued for the current course
	courseSeq  uint64 // latest course refresh issued
	loadedSeq  uint64 // bundle fetch whose result is merged
	successSeq uint64 // bundle fetch issued when success was reported

	deleting   bool
	completing map[string]bool
	cursor     int

	notices []Notice
	now     func() time.Time
}

// NewMachine returns a Machine in the idle state.
func NewMachine() *Machine {
	return &Machine{
		progress:   models.ProgressIdle,
		completing: map[string]bool{},
		cursor:     -1,
		now:        time.Now,
	}
}

// Progress returns the current state.
func (m *Machine) Progress() models.Progress { return m.progress }

// Notices returns and clears the notifications raised since the last call.
func (m *Machine) Notices() []Notice {
	out := m.notices
	m.notices = nil
	return out
}

func (m *Machine) notify(level NoticeLevel, msg string) {
	m.notices = append(m.notices, Notice{Level: level, Message: msg})
}

func (m *Machine) courseID() string {
	if m.session == nil {
		return ""
	}
	return m.session.CourseID
}

func (m *Machine) setProgress(p models.Progress) {
	m.progress = p
	if m.session != nil {
		m.session.Progress = p
	}
}

// current reports whether key still refers to this epoch and the session's course.
func (m *Machine) current(key FetchKey) bool {
	return key.Epoch == m.epoch && key.CourseID != "" && key.CourseID == m.courseID()
}

func (m *Machine) nextKey() FetchKey {
	m.seq++
	return FetchKey{Epoch: m.epoch, CourseID: m.courseID(), Seq: m.seq}
}

func (m *Machine) fetchBundle() Effect {
	key := m.nextKey()
	m.bundleSeq = key.Seq
	return Effect{Kind: EffectFetchBundle, Key: key}
}

func (m *Machine) startEffect() Effect {
	return Effect{
		Kind:  EffectSendStart,
		Key:   FetchKey{Epoch: m.epoch},
		Start: models.StartCreation{Description: m.session.Description, Level: m.session.Level},
	}
}

// adoptCourse points the session at id. Anything loaded for a previous id is dropped.
func (m *Machine) adoptCourse(id string) {
	if id == m.courseID() {
		return
	}
	m.session.CourseID = id
	m.course = nil
	m.sections = nil
	m.bundleSeq, m.courseSeq, m.loadedSeq, m.successSeq = 0, 0, 0, 0
	m.cursor = -1
}

func (m *Machine) record(outcome models.Outcome) []Effect {
	if m.session == nil {
		return nil
	}
	a := models.NewAttempt(0, m.session.SessionID, m.session.Description, m.session.Level, outcome)
	a.SetCourseID(m.session.CourseID)
	a.SetErrorMessage(m.errMsg)
	return []Effect{{Kind: EffectRecordAttempt, Key: FetchKey{Epoch: m.epoch}, Attempt: a}}
}

// reset returns to idle and invalidates every outstanding key.
func (m *Machine) reset() {
	m.epoch++
	m.progress = models.ProgressIdle
	m.session = nil
	m.course = nil
	m.sections = nil
	m.errMsg = ""
	m.pendingStart = false
	m.serverActions = 0
	m.bundleSeq, m.courseSeq, m.loadedSeq, m.successSeq = 0, 0, 0, 0
	m.deleting = false
	m.completing = map[string]bool{}
	m.cursor = -1
}

// fail moves to error, dropping course data. clearSession also forgets the session itself.
func (m *Machine) fail(msg string, clearSession bool) []Effect {
	m.errMsg = msg
	if m.session != nil {
		m.session.ErrorMessage = msg
	}
	m.setProgress(models.ProgressError)
	effects := m.record(models.OutcomeError)

	m.epoch++
	m.course = nil
	m.sections = nil
	m.pendingStart = false
	m.bundleSeq, m.courseSeq, m.loadedSeq, m.successSeq = 0, 0, 0, 0
	m.deleting = false
	m.completing = map[string]bool{}
	m.cursor = -1
	if clearSession {
		m.session = nil
	}

	m.notify(NoticeError, msg)
	return effects
}

// begin seeds a fresh session. The start command waits for the channel if it is not connected.
func (m *Machine) begin(sessionID, description string, level models.Level) []Effect {
	m.session = &models.Session{
		SessionID:   sessionID,
		Description: description,
		Level:       level,
		Actions:     []string{msgInitializing},
	}
	m.errMsg = ""
	m.setProgress(models.ProgressInProgress)

	if !m.connected {
		m.pendingStart = true
		return nil
	}
	return []Effect{m.startEffect()}
}

// Connected records that the channel is up and releases a held start command.
func (m *Machine) Connected() []Effect {
	m.connected = true
	if !m.pendingStart || m.progress != models.ProgressInProgress {
		return nil
	}
	m.pendingStart = false
	return []Effect{m.startEffect()}
}

// Disconnected records that the channel dropped. The channel may still reconnect.
func (m *Machine) Disconnected(reason string) {
	m.connected = false
	if m.progress == models.ProgressInProgress {
		m.notify(NoticeWarning, msgConnectionLost)
	}
}

// ConnectError fails a live session. Outside a session it is only a notice.
func (m *Machine) ConnectError(reason string) []Effect {
	m.connected = false
	if m.progress == models.ProgressInProgress {
		return m.fail(msgConnectFailed, true)
	}
	m.notify(NoticeWarning, msgConnectFailed)
	return nil
}

// SendFailed handles a start command the channel refused locally.
func (m *Machine) SendFailed(key FetchKey, err error) []Effect {
	if key.Epoch != m.epoch || m.progress != models.ProgressInProgress {
		return nil
	}
	if errors.Is(err, shared.ErrNotConnected) {
		m.connected = false
		m.pendingStart = true
		return nil
	}
	return m.fail(msgConnectFailed, true)
}

// ProtocolError handles an explicit error event from the backend.
func (m *Machine) ProtocolError(e models.ProtocolError) []Effect {
	if m.progress != models.ProgressInProgress {
		return nil
	}
	msg := e.Error
	if msg == "" {
		msg = msgProtocolError
	}
	return m.fail(msg, true)
}

// Update applies a session_update event. Updates outside a live session are ignored.
func (m *Machine) Update(u models.SessionUpdate) []Effect {
	if m.progress != models.ProgressInProgress || m.session == nil {
		return nil
	}

	if n := len(u.Actions); n > 0 && n >= m.serverActions {
		m.session.Actions = append([]string(nil), u.Actions...)
		m.serverActions = n
	}

	switch u.Progress {
	case models.WireInProgress:
		if id := u.CourseIDValue(); id != "" && id != m.courseID() {
			m.adoptCourse(id)
			return []Effect{m.fetchBundle()}
		}
		return nil

	case models.WireSuccess:
		id := u.CourseIDValue()
		if id == "" {
			return m.fail(msgMissingCourseID, false)
		}
		m.adoptCourse(id)
		if m.successSeq != 0 {
			return nil
		}
		// Sections are still being written when the id first appears, so the
		// result shown must come from a fetch issued after the success report.
		eff := m.fetchBundle()
		m.successSeq = eff.Key.Seq
		return []Effect{eff}

	case models.WireFailed:
		msg := u.ErrorMessage
		if msg == "" {
			msg = msgGenerationFailed
		}
		return m.fail(msg, false)
	}
	return nil
}

// BundleResult merges a finished bundle fetch, or fails the session if the fetch failed.
func (m *Machine) BundleResult(key FetchKey, b *models.Bundle, err error) []Effect {
	if !m.current(key) || key.Seq != m.bundleSeq {
		return nil
	}
	if err != nil {
		return m.fail(fmt.Sprintf("Data load failed: %v", err), false)
	}
	if b == nil {
		return m.fail(fmt.Sprintf("Data load failed: %v", shared.ErrFetch), false)
	}

	m.course = b.Course.Clone()
	m.sections = mergeSections(m.sections, b.Sections)
	m.loadedSeq = key.Seq
	return m.join()
}

// join declares success once both halves hold for the same course.
func (m *Machine) join() []Effect {
	if m.progress != models.ProgressInProgress || m.successSeq == 0 || m.loadedSeq < m.successSeq {
		return nil
	}
	m.setProgress(models.ProgressSuccess)
	m.notify(NoticeSuccess, msgCourseReady)
	return m.record(models.OutcomeSuccess)
}

// mergeSections sorts next and carries forward completion flags already seen, so a
// section never goes from completed back to not completed.
func mergeSections(prev, next []models.Section) []models.Section {
	done := map[string]*int64{}
	for _, s := range prev {
		if s.IsCompleted {
			done[s.SectionID] = s.CompletedAt
		}
	}

	out := models.SortSections(next)
	if out == nil {
		out = []models.Section{}
	}
	for i := range out {
		at, ok := done[out[i].SectionID]
		if !ok || bool(out[i].IsCompleted) {
			continue
		}
		out[i].IsCompleted = true
		if out[i].CompletedAt == nil && at != nil {
			v := *at
			out[i].CompletedAt = &v
		}
	}
	return out
}

// CourseResult applies a course refresh issued after a section was completed.
// A failed refresh only raises a notice.
func (m *Machine) CourseResult(key FetchKey, c *models.Course, err error) {
	if !m.current(key) || key.Seq != m.courseSeq || m.progress != models.ProgressSuccess {
		return
	}
	if err != nil || c == nil {
		m.notify(NoticeWarning, fmt.Sprintf("Could not refresh course progress: %v", err))
		return
	}
	m.course = c.Clone()
}

// CompleteResult applies the outcome of a mark-complete request.
func (m *Machine) CompleteResult(key FetchKey, sectionID string, err error) []Effect {
	if !m.current(key) {
		return nil
	}
	delete(m.completing, sectionID)

	if err != nil {
		m.notify(NoticeError, fmt.Sprintf("Failed to mark section complete: %v", err))
		return nil
	}

	for i := range m.sections {
		s := &m.sections[i]
		if s.SectionID != sectionID || bool(s.IsCompleted) {
			continue
		}
		s.IsCompleted = true
		at := m.now().Unix()
		s.CompletedAt = &at
	}
	m.notify(NoticeSuccess, "Section marked as complete")

	key = m.nextKey()
	m.courseSeq = key.Seq
	return []Effect{{Kind: EffectFetchCourse, Key: key}}
}

// DeleteResult applies the outcome of a delete request. Success returns to idle; failure
// keeps the course on screen.
func (m *Machine) DeleteResult(key FetchKey, err error) {
	if !m.current(key) {
		return
	}
	m.deleting = false

	if err != nil {
		m.notify(NoticeError, deleteMessage(err))
		return
	}
	m.reset()
	m.notify(NoticeSuccess, msgCourseDeleted)
}

// serverMessager is implemented by errors that carry the server's own explanation.
type serverMessager interface {
	ServerMessage() string
}

func deleteMessage(err error) string {
	var sm serverMessager
	if errors.As(err, &sm) && sm.ServerMessage() != "" {
		return sm.ServerMessage()
	}
	return msgDeleteFailed
}
