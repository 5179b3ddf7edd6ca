package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/coursex/internal/shared"
	"github.com/desertthunder/coursex/internal/ui"
)

// TUI launches the interactive terminal UI for creating and studying a course.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	logFile := r.config.Logging.File
	if logFile == "" {
		logFile = "./tmp/coursex-tui.log"
	}
	fileLogger, err := shared.NewFileLogger(logFile)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, r.logger.GetLevel())
	r.SetLogger(fileLogger)

	ctl, cleanup, err := r.newController()
	if err != nil {
		return err
	}
	defer cleanup()

	runErr := make(chan error, 1)
	go func() { runErr <- ctl.Run(context.WithoutCancel(ctx)) }()

	p := tea.NewProgram(ui.NewModel(ctl), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()

	// leaving the TUI abandons any session still generating
	if navErr := ctl.NavigateAway(); navErr != nil {
		r.logger.Debug("navigate away", "error", navErr)
	}
	ctl.Close()
	if rerr := <-runErr; rerr != nil {
		r.logger.Warn("controller stopped with error", "error", rerr)
	}

	if err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}
