package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/coursex/internal/formatter"
	"github.com/desertthunder/coursex/internal/models"
	"github.com/desertthunder/coursex/internal/shared"
	"github.com/desertthunder/coursex/internal/tasks"
)

func (r *Runner) requireCourses() error {
	if r.courses == nil {
		return fmt.Errorf("%w: course service not initialized", shared.ErrInvalidConfig)
	}
	return nil
}

// ListCourses prints the generated courses, optionally filtered by title and level.
func (r *Runner) ListCourses(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireCourses(); err != nil {
		return err
	}

	level := cmd.String("level")
	if level != "" {
		l, err := models.ParseLevel(level)
		if err != nil {
			return fmt.Errorf("%w: %v", shared.ErrInvalidLevel, err)
		}
		level = l.String()
	}

	courses, err := r.courses.ListCourses(ctx)
	if err != nil {
		return err
	}
	courses = models.FilterCourses(courses, cmd.String("search"), level)
	r.logger.Debug("listed courses", "count", len(courses))

	if cmd.Bool("json") {
		if courses == nil {
			courses = []models.Course{}
		}
		return r.writeJSON(courses, true)
	}

	if len(courses) == 0 {
		return r.writePlain("No courses found\n")
	}
	_, err = r.output.Write(formatter.CoursesToText(courses))
	return err
}

// ShowCourse prints one course with its sections in the requested format.
func (r *Runner) ShowCourse(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireCourses(); err != nil {
		return err
	}
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: course id", shared.ErrMissingArgument)
	}

	bundle, err := r.courses.FetchCourseBundle(ctx, id)
	if err != nil {
		return err
	}

	var data []byte
	switch format := strings.ToLower(cmd.String("format")); format {
	case "txt", "text":
		data, err = formatter.ExportToText(bundle)
	case "markdown", "md":
		data, err = formatter.ExportToMarkdown(bundle)
	case "csv":
		data, err = formatter.ExportToCSV(bundle)
	case "json":
		data, err = formatter.ToJSON(bundle)
		data = append(data, '\n')
	default:
		return fmt.Errorf("%w: unsupported format %q", shared.ErrInvalidInput, format)
	}
	if err != nil {
		return err
	}

	_, err = r.output.Write(data)
	return err
}

// ExportCourses writes the named courses (or every course with --all) to disk.
func (r *Runner) ExportCourses(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireCourses(); err != nil {
		return err
	}

	ids := cmd.Args().Slice()
	if cmd.Bool("all") {
		courses, err := r.courses.ListCourses(ctx)
		if err != nil {
			return err
		}
		ids = nil
		for _, c := range courses {
			ids = append(ids, c.CourseID)
		}
	}
	if len(ids) == 0 {
		return fmt.Errorf("%w: pass course ids or --all", shared.ErrMissingArgument)
	}

	opts := tasks.BulkExportOpts{
		Format:     cmd.String("format"),
		OutputDir:  cmd.String("output"),
		NumWorkers: cmd.Int("workers"),
		RateLimit:  r.config.Client.RequestsPerSecond,
	}

	progress := make(chan tasks.ProgressUpdate, len(ids)*2+1)
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for u := range progress {
			r.writePlain("[%d/%d] %s\n", u.Step, u.Total, u.Message)
		}
	}()

	result, err := tasks.BulkExport(ctx, progress, r.courses, ids, opts)
	close(progress)
	<-printed
	if err != nil {
		return err
	}

	r.writePlainln("Exported %d of %d courses to %s", result.SuccessfulExports, result.TotalCourses, result.OutputDirectory)
	if result.ManifestPath != "" {
		r.writePlain("Manifest: %s\n", result.ManifestPath)
	}
	if result.FailedExports > 0 {
		for _, res := range result.Results {
			if !res.Success {
				r.logger.Warn("export failed", "course_id", res.CourseID, "error", res.Error)
			}
		}
		return fmt.Errorf("%w: %d of %d exports failed", shared.ErrFetch, result.FailedExports, result.TotalCourses)
	}
	return nil
}

// CompleteSection marks a section complete.
func (r *Runner) CompleteSection(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireCourses(); err != nil {
		return err
	}
	id := cmd.StringArg("section-id")
	if id == "" {
		return fmt.Errorf("%w: section id", shared.ErrMissingArgument)
	}

	if err := r.courses.MarkSectionComplete(ctx, id); err != nil {
		return err
	}
	return r.writePlain("✓ Section %s marked complete\n", id)
}

// DeleteCourse deletes a course.
func (r *Runner) DeleteCourse(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireCourses(); err != nil {
		return err
	}
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: course id", shared.ErrMissingArgument)
	}

	if err := r.courses.DeleteCourse(ctx, id); err != nil {
		return err
	}
	return r.writePlain("✓ Course %s deleted\n", id)
}

// OpenCourse opens a course in the web frontend.
func (r *Runner) OpenCourse(ctx context.Context, cmd *cli.Command) error {
	return r.openCourse(cmd.StringArg("id"))
}
