package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/coursex/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgSessionUpdate MsgKind = iota
	MsgIntentDone
	MsgSessionClosed
)

// sessionUpdateMsg is the constructor for [MsgSessionUpdate]
func sessionUpdateMsg(u tasks.Update) Msg {
	return Msg{kind: MsgSessionUpdate, data: u}
}

// intentDoneMsg is the constructor for [MsgIntentDone]. err is the controller's verdict.
func intentDoneMsg(err error) Msg {
	return Msg{kind: MsgIntentDone, data: err}
}

// sessionClosedMsg is the constructor for [MsgSessionClosed]
func sessionClosedMsg() Msg {
	return Msg{kind: MsgSessionClosed}
}
