package main

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/coursex/internal/formatter"
)

// Analytics prints the completion dashboard.
func (r *Runner) Analytics(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireCourses(); err != nil {
		return err
	}

	analytics, err := r.courses.FetchAnalytics(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(analytics, true)
	}

	r.writePlainHeader("Learning analytics")
	_, err = r.output.Write(formatter.AnalyticsToText(analytics))
	return err
}
