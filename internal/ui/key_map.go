package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up       key.Binding
	down     key.Binding
	submit   key.Binding
	level    key.Binding
	back     key.Binding
	complete key.Binding
	remove   key.Binding
	create   key.Binding
	yes      key.Binding
	no       key.Binding
	retry    key.Binding
	quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "previous")),
		down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "next")),
		submit:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "create")),
		level:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "level")),
		back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "leave")),
		complete: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "mark complete")),
		remove:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		create:   key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new course")),
		yes:      key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yes")),
		no:       key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "no")),
		retry:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "retry")),
		quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.submit, k.level},
		{k.complete, k.remove, k.create, k.retry},
		{k.back, k.quit},
	}
}
