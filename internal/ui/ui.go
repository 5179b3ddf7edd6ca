package ui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/coursex/internal/models"
	"github.com/desertthunder/coursex/internal/session"
	"github.com/desertthunder/coursex/internal/shared"
	"github.com/desertthunder/coursex/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	FormView ViewState = iota
	ProgressView
	CourseView
	ConfirmDeleteView
	ErrorView
)

// Controller is the part of [tasks.Controller] the TUI drives.
type Controller interface {
	Subscribe() <-chan tasks.Update
	Snapshot() tasks.Update
	StartCreation(description string, level models.Level) error
	Retry() error
	DeleteCourse() error
	MarkCurrentComplete() error
	NavigateAway() error
	Select(index int) error
	Next() error
	Prev() error
	Close()
}

// Model represents the TUI application state.
type Model struct {
	ctl     Controller
	updates <-chan tasks.Update
	current tasks.Update

	composing bool // form opened over a finished session
	confirm   bool // delete confirmation pending

	input    textinput.Model
	level    int
	spinner  spinner.Model
	sections list.Model
	content  viewport.Model
	notice   *session.Notice
	err      error

	width  int
	height int
	help   help.Model
	keys   keyMap
}

// NewModel creates a new TUI model driven by ctl. The controller must already be running.
func NewModel(ctl Controller) *Model {
	input := textinput.New()
	input.Placeholder = "What do you want to learn?"
	input.CharLimit = 500
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.title.UnsetMarginBottom()

	sections := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	sections.Title = "Sections"
	sections.SetFilteringEnabled(false)
	sections.SetShowHelp(false)
	sections.SetShowStatusBar(false)

	m := &Model{
		ctl:      ctl,
		updates:  ctl.Subscribe(),
		current:  ctl.Snapshot(),
		input:    input,
		spinner:  sp,
		sections: sections,
		content:  viewport.New(0, 0),
		help:     help.New(),
		keys:     newKeyMap(),
	}
	m.apply(m.current)
	return m
}

// Init starts the spinner and begins listening for session updates.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, m.waitForUpdate())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.quit) && (msg.String() == "ctrl+c" || m.viewState() != FormView) {
			m.leave()
			return m, tea.Quit
		}
		switch m.viewState() {
		case FormView:
			return m.handleFormKeys(msg)
		case ProgressView:
			return m.handleProgressKeys(msg)
		case CourseView:
			return m.handleCourseKeys(msg)
		case ConfirmDeleteView:
			return m.handleConfirmKeys(msg)
		case ErrorView:
			return m.handleErrorKeys(msg)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		switch msg.kind {
		case MsgSessionUpdate:
			m.apply(msg.data.(tasks.Update))
			return m, m.waitForUpdate()
		case MsgIntentDone:
			m.err, _ = msg.data.(error)
			if errors.Is(m.err, shared.ErrStopped) {
				return m, tea.Quit
			}
			return m, nil
		case MsgSessionClosed:
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	if m.viewState() == FormView {
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	var body string
	switch m.viewState() {
	case FormView:
		body = m.renderForm()
	case ProgressView:
		body = m.renderProgress()
	case CourseView, ConfirmDeleteView:
		body = m.renderCourse()
	case ErrorView:
		body = m.renderError()
	}

	var footer []string
	if m.notice != nil {
		footer = append(footer, styles.notice(m.notice.Level).Render(m.notice.Message))
	}
	if m.err != nil {
		footer = append(footer, styles.err.Render(m.err.Error()))
	}
	if len(footer) == 0 {
		return body
	}
	return fmt.Sprintf("%s\n\n%s", body, strings.Join(footer, "\n"))
}

func (m *Model) viewState() ViewState {
	return viewFor(m.current, m.composing, m.confirm)
}

func viewFor(u tasks.Update, composing, confirm bool) ViewState {
	switch u.Stage {
	case tasks.StageConnecting, tasks.StageGenerating, tasks.StageLoading:
		return ProgressView
	case tasks.StageReady:
		switch {
		case composing:
			return FormView
		case confirm:
			return ConfirmDeleteView
		default:
			return CourseView
		}
	case tasks.StageFailed:
		if composing {
			return FormView
		}
		return ErrorView
	default:
		return FormView
	}
}

// apply takes a published update. The latest notice it carries replaces the one on screen.
func (m *Model) apply(u tasks.Update) {
	m.current = u
	if n := len(u.Notices); n > 0 {
		notice := u.Notices[n-1]
		m.notice = &notice
	}
	if u.Stage != tasks.StageReady {
		m.confirm = false
	}
	if u.Stage == tasks.StageIdle {
		m.composing = false
	}

	m.sections.SetItems(sectionItems(u.View.Sections, u.View.Completing))
	if u.View.Cursor >= 0 {
		m.sections.Select(u.View.Cursor)
	}
	m.content.SetContent(renderSection(u.View))
	m.content.GotoTop()
}

func (m *Model) resize() {
	listWidth := m.width / 3
	m.sections.SetSize(listWidth, m.height-6)
	m.content.Width = m.width - listWidth - 6
	m.content.Height = m.height - 8
	m.input.Width = m.width - 8
}

func (m *Model) waitForUpdate() tea.Cmd {
	ch := m.updates
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return sessionClosedMsg()
		}
		return sessionUpdateMsg(u)
	}
}

// intent runs fn off the bubbletea loop since controller calls wait on the session loop.
func (m *Model) intent(fn func() error) tea.Cmd {
	m.err = nil
	return func() tea.Msg { return intentDoneMsg(fn()) }
}

func (m *Model) handleFormKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.submit):
		description := m.input.Value()
		level := models.Levels[m.level]
		m.composing = false
		m.input.Reset()
		return m, m.intent(func() error { return m.ctl.StartCreation(description, level) })
	case key.Matches(msg, m.keys.level):
		m.level = (m.level + 1) % len(models.Levels)
		return m, nil
	case key.Matches(msg, m.keys.back):
		if m.composing {
			m.composing = false
			return m, nil
		}
		m.leave()
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// leave abandons a running session so it is recorded, then stops the controller.
func (m *Model) leave() {
	if err := m.ctl.NavigateAway(); err != nil && !errors.Is(err, shared.ErrStopped) {
		m.err = err
	}
	m.ctl.Close()
}

func (m *Model) handleProgressKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.back) {
		return m, m.intent(m.ctl.NavigateAway)
	}
	return m, nil
}

func (m *Model) handleCourseKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.down):
		return m, m.intent(m.ctl.Next)
	case key.Matches(msg, m.keys.up):
		return m, m.intent(m.ctl.Prev)
	case key.Matches(msg, m.keys.complete):
		return m, m.intent(m.ctl.MarkCurrentComplete)
	case key.Matches(msg, m.keys.remove):
		if m.current.View.CanDelete {
			m.confirm = true
		}
		return m, nil
	case key.Matches(msg, m.keys.create):
		m.composing = true
		m.input.Focus()
		return m, textinput.Blink
	case key.Matches(msg, m.keys.back):
		return m, m.intent(m.ctl.NavigateAway)
	}

	var cmd tea.Cmd
	m.content, cmd = m.content.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		m.confirm = false
		return m, m.intent(m.ctl.DeleteCourse)
	case key.Matches(msg, m.keys.no):
		m.confirm = false
	}
	return m, nil
}

func (m *Model) handleErrorKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.retry):
		return m, m.intent(m.ctl.Retry)
	case key.Matches(msg, m.keys.create):
		m.composing = true
		m.input.Focus()
		return m, textinput.Blink
	case key.Matches(msg, m.keys.back):
		return m, m.intent(m.ctl.NavigateAway)
	}
	return m, nil
}

func (m *Model) renderForm() string {
	title := styles.title.Render("Create a Course")

	var levels []string
	for i, l := range models.Levels {
		if i == m.level {
			levels = append(levels, styles.ok.Render("["+l.String()+"]"))
		} else {
			levels = append(levels, styles.help.Render(" "+l.String()+" "))
		}
	}

	helpKeys := []key.Binding{m.keys.submit, m.keys.level, m.keys.back}
	return fmt.Sprintf("%s\n%s\n\nLevel: %s\n\n%s",
		title, m.input.View(), strings.Join(levels, " "), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderProgress() string {
	v := m.current.View
	title := styles.title.Render("Creating Course")

	status := v.CurrentAction
	switch m.current.Stage {
	case tasks.StageConnecting:
		status = "Connecting to the course service..."
	case tasks.StageLoading:
		status = "Loading your course..."
	}

	var history string
	if v.Session != nil && len(v.Session.Actions) > 1 {
		for _, a := range v.Session.Actions[:len(v.Session.Actions)-1] {
			history += styles.help.Render("  ✓ "+a) + "\n"
		}
	}

	helpView := m.help.ShortHelpView([]key.Binding{m.keys.back, m.keys.quit})
	return fmt.Sprintf("%s\n%s%s %s\n\n%s", title, history, m.spinner.View(), status, helpView)
}

func (m *Model) renderCourse() string {
	v := m.current.View
	if v.Course == nil {
		return styles.warn.Render("No course loaded")
	}

	title := styles.title.Render(v.Course.Title)
	progress := fmt.Sprintf("%s • %s complete", v.Course.Level, shared.FormatPercentage(v.Course.CompletionPercentage))
	panes := fmt.Sprintf("%s\n%s", m.sections.View(), styles.box.Render(m.content.View()))

	if m.viewState() == ConfirmDeleteView {
		prompt := styles.warn.Render(fmt.Sprintf("Delete '%s'? This cannot be undone.", v.Course.Title))
		helpView := m.help.ShortHelpView([]key.Binding{m.keys.yes, m.keys.no})
		return fmt.Sprintf("%s\n%s\n\n%s\n\n%s", title, progress, prompt, helpView)
	}

	helpKeys := []key.Binding{m.keys.up, m.keys.down, m.keys.complete, m.keys.remove, m.keys.create, m.keys.quit}
	if v.Deleting {
		helpKeys = []key.Binding{m.keys.quit}
	}
	return fmt.Sprintf("%s\n%s\n\n%s\n\n%s", title, progress, panes, m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderError() string {
	msg := m.current.View.ErrorMessage
	if msg == "" {
		msg = "Course creation failed."
	}
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.retry, m.keys.create, m.keys.quit})
	return fmt.Sprintf("%s\n\n%s", styles.err.Render(msg), helpView)
}

// renderSection renders the section under the cursor, or the course overview.
func renderSection(v session.View) string {
	if v.Course == nil {
		return ""
	}
	s := v.Current()
	if s == nil {
		var b strings.Builder
		b.WriteString(v.Course.Description)
		fmt.Fprintf(&b, "\n\n%d sections", len(v.Sections))
		return b.String()
	}

	var b strings.Builder
	b.WriteString(s.Title)
	if s.Description != "" {
		fmt.Fprintf(&b, "\n%s", s.Description)
	}
	if s.Content != "" {
		fmt.Fprintf(&b, "\n\n%s", s.Content)
	}
	if s.IsCompleted {
		fmt.Fprintf(&b, "\n\nCompleted %s", shared.FormatTimestamp(s.CompletedAt))
	}
	return b.String()
}
