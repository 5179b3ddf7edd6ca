package main

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/coursex/internal/formatter"
	"github.com/desertthunder/coursex/internal/models"
	"github.com/desertthunder/coursex/internal/session"
	"github.com/desertthunder/coursex/internal/shared"
	"github.com/desertthunder/coursex/internal/tasks"
)

// snapshotInterval bounds how long a dropped update can stall [Runner.follow].
const snapshotInterval = 500 * time.Millisecond

// CreateCourse starts a generation session, narrates it and prints the finished course.
//
// Interrupting the command abandons the session; the attempt is still recorded.
func (r *Runner) CreateCourse(ctx context.Context, cmd *cli.Command) error {
	description := cmd.String("description")
	if description == "" {
		description = cmd.StringArg("description")
	}
	if strings.TrimSpace(description) == "" {
		return fmt.Errorf("%w: pass a description as an argument or with --description", shared.ErrMissingArgument)
	}

	level, err := models.ParseLevel(cmd.String("level"))
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidLevel, err)
	}

	ctl, cleanup, err := r.newController()
	if err != nil {
		return err
	}
	defer cleanup()

	updates := ctl.Subscribe()
	runErr := make(chan error, 1)
	go func() { runErr <- ctl.Run(context.WithoutCancel(ctx)) }()

	final, err := r.createAndFollow(ctx, ctl, updates, description, level)
	if errors.Is(err, context.Canceled) {
		r.logger.Warn("creation interrupted, abandoning session")
		if navErr := ctl.NavigateAway(); navErr != nil && !errors.Is(navErr, shared.ErrStopped) {
			r.logger.Warn("failed to abandon session", "error", navErr)
		}
	}
	ctl.Close()
	if rerr := <-runErr; rerr != nil {
		r.logger.Warn("controller stopped with error", "error", rerr)
	}
	if err != nil {
		return err
	}

	if final.Stage == tasks.StageFailed {
		return fmt.Errorf("%w: %s", shared.ErrGenerationFailed, final.View.ErrorMessage)
	}
	return r.printCreated(final.View, cmd.Bool("json"), cmd.Bool("open"))
}

func (r *Runner) createAndFollow(
	ctx context.Context,
	ctl *tasks.Controller,
	updates <-chan tasks.Update,
	description string,
	level models.Level,
) (tasks.Update, error) {
	if err := ctl.StartCreation(description, level); err != nil {
		return tasks.Update{}, err
	}
	r.writePlain("Creating a %s course: %s\n", level, description)
	return r.follow(ctx, ctl, updates)
}

// follow prints narration until the session reaches a terminal stage.
func (r *Runner) follow(ctx context.Context, ctl *tasks.Controller, updates <-chan tasks.Update) (tasks.Update, error) {
	ticker := time.NewTicker(snapshotInterval)
	defer ticker.Stop()

	n := narrator{r: r}
	for {
		var u tasks.Update
		select {
		case <-ctx.Done():
			return ctl.Snapshot(), ctx.Err()
		case <-ctl.Done():
			return ctl.Snapshot(), shared.ErrStopped
		case <-ticker.C:
			u = ctl.Snapshot()
		case next, ok := <-updates:
			if !ok {
				return ctl.Snapshot(), shared.ErrStopped
			}
			u = next
		}

		n.show(u)
		if u.Stage.Terminal() {
			return u, nil
		}
	}
}

// narrator prints each stage and action once. The session's action list can be
// replaced wholesale when the server reports its own, so only entries past the
// shared prefix with the last printed list are new.
type narrator struct {
	r       *Runner
	stage   tasks.Stage
	actions []string
}

func (n *narrator) show(u tasks.Update) {
	for _, notice := range u.Notices {
		switch notice.Level {
		case session.NoticeError, session.NoticeWarning:
			n.r.logger.Warn(notice.Message)
		default:
			n.r.logger.Info(notice.Message)
		}
	}

	if u.Stage != n.stage {
		n.stage = u.Stage
		switch u.Stage {
		case tasks.StageConnecting:
			n.r.writePlain("Connecting to the course service...\n")
		case tasks.StageLoading:
			n.r.writePlain("Course generated, loading it...\n")
		}
	}

	if u.View.Session == nil {
		return
	}
	actions := u.View.Session.Actions
	common := 0
	for common < len(actions) && common < len(n.actions) && actions[common] == n.actions[common] {
		common++
	}
	if common == len(actions) {
		return
	}
	for _, a := range actions[common:] {
		n.r.writePlain("  • %s\n", a)
	}
	n.actions = slices.Clone(actions)
}

func (r *Runner) printCreated(v session.View, asJSON, open bool) error {
	bundle := &models.Bundle{Course: *v.Course, Sections: v.Sections}

	if asJSON {
		data, err := formatter.ToJSON(bundle)
		if err != nil {
			return err
		}
		r.output.Write(data)
		r.output.Write([]byte("\n"))
	} else {
		data, err := formatter.ExportToText(bundle)
		if err != nil {
			return err
		}
		r.writePlain("\n✓ Course ready\n\n")
		r.output.Write(data)
	}

	if open {
		return r.openCourse(bundle.Course.CourseID)
	}
	return nil
}

func (r *Runner) openCourse(courseID string) error {
	link, err := shared.CourseURL(r.config.Server.FrontendURL, courseID)
	if err != nil {
		return err
	}
	r.logger.Info("opening course", "url", link)
	if err := shared.OpenBrowser(link); err != nil {
		r.writePlain("Open %s in your browser\n", link)
		return err
	}
	return nil
}
