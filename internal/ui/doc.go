// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI is a thin shell over a running [tasks.Controller]:
//  1. [FormView] : Describe the course and pick a level
//  2. [ProgressView] : Spinner and backend narration while the course is generated
//  3. [CourseView] : Section list with content, completion and delete
//  4. [ConfirmDeleteView] : Confirm course deletion
//  5. [ErrorView] : Failure message with retry
//
// The view shown is derived from the latest [tasks.Update]; the model keeps only form state and
// two local flags. Intents run as commands because controller calls wait for the session loop.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
