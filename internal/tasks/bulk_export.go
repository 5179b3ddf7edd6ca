package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/desertthunder/coursex/internal/formatter"
	"github.com/desertthunder/coursex/internal/models"
	"github.com/desertthunder/coursex/internal/shared"
)

// BundleFetcher loads one course with its sections.
type BundleFetcher interface {
	FetchCourseBundle(ctx context.Context, courseID string) (*models.Bundle, error)
}

// BulkExportOpts contains configuration for bulk course exports.
type BulkExportOpts struct {
	Format     string  // Export format: json, csv, markdown, txt
	OutputDir  string  // Base output directory (default: course_export_{epoch})
	NumWorkers int     // Concurrent workers (default: 5, max 10)
	RateLimit  float64 // Fetches per second (default: 5)
}

// CourseExportResult is the outcome of exporting one course.
type CourseExportResult struct {
	CourseID string
	Title    string
	Success  bool
	Files    []string
	Error    error
}

// BulkExportResult summarizes a bulk export.
type BulkExportResult struct {
	TotalCourses      int
	SuccessfulExports int
	FailedExports     int
	OutputDirectory   string
	ManifestPath      string
	Results           []CourseExportResult
}

type courseExportJob struct {
	CourseID string
	Bundle   *models.Bundle
}

// BulkExport exports several courses concurrently with rate-limited fetches.
//
// Fetches happen on one producer goroutine gated by the limiter; file writes are spread over a
// worker pool. A failed course does not stop the others, and cancellation ends the run with
// whatever finished. A manifest summarizing every course is written to the output directory.
func BulkExport(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	fetcher BundleFetcher,
	ids []string,
	opts BulkExportOpts,
) (*BulkExportResult, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("%w: fetcher not initialized", shared.ErrInvalidConfig)
	}
	if opts.Format == "" {
		opts.Format = "json"
	}
	if !formatter.ValidFormat(opts.Format) {
		return nil, fmt.Errorf("%w: unsupported format %q", shared.ErrInvalidInput, opts.Format)
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("course_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 5
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &BulkExportResult{
		TotalCourses:    len(ids),
		OutputDirectory: opts.OutputDir,
		Results:         make([]CourseExportResult, 0, len(ids)),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan courseExportJob, len(ids))
	results := make(chan CourseExportResult, len(ids))

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go exportWorker(ctx, &wg, jobs, results, opts)
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(jobs)

		sendProgress(prog, fetchingCoursesUpdate(len(ids)))
		for i, id := range ids {
			if err := limiter.Wait(ctx); err != nil {
				return
			}

			b, err := fetcher.FetchCourseBundle(ctx, id)
			if err != nil {
				results <- CourseExportResult{
					CourseID: id,
					Title:    fmt.Sprintf("Unknown (%s)", id),
					Error:    fmt.Errorf("failed to fetch course: %w", err),
				}
				continue
			}

			jobs <- courseExportJob{CourseID: id, Bundle: b}
			sendProgress(prog, exportingCourseUpdate(i+1, len(ids), b.Course.Title))
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Success {
			result.SuccessfulExports++
			sendProgress(prog, exportCompletedUpdate(completed, len(ids), res.Title, len(res.Files)))
		} else {
			result.FailedExports++
			sendProgress(prog, exportFailedUpdate(completed, len(ids), res.Title, res.Error))
		}
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := formatter.WriteManifest(manifestOf(result, opts.Format), manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

func exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan courseExportJob,
	results chan<- CourseExportResult,
	opts BulkExportOpts,
) {
	defer wg.Done()

	for job := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}
		results <- exportSingleCourse(job, opts)
	}
}

func exportSingleCourse(j courseExportJob, opts BulkExportOpts) CourseExportResult {
	result := CourseExportResult{
		CourseID: j.CourseID,
		Title:    j.Bundle.Course.Title,
		Files:    []string{},
	}

	files, err := formatter.WriteExport(j.Bundle, opts.Format, opts.OutputDir)
	if err != nil {
		result.Error = fmt.Errorf("%s export failed: %w", opts.Format, err)
		return result
	}
	result.Files = files
	result.Success = true
	return result
}

func manifestOf(r *BulkExportResult, format string) *formatter.Manifest {
	m := &formatter.Manifest{
		ExportedAt: time.Now().UTC(),
		Format:     format,
		Directory:  r.OutputDirectory,
		Total:      r.TotalCourses,
		Succeeded:  r.SuccessfulExports,
		Failed:     r.FailedExports,
		Courses:    make([]formatter.ManifestEntry, 0, len(r.Results)),
	}
	for _, res := range r.Results {
		entry := formatter.ManifestEntry{
			CourseID: res.CourseID,
			Title:    res.Title,
			Success:  res.Success,
			Files:    res.Files,
		}
		if res.Error != nil {
			entry.Error = res.Error.Error()
		}
		m.Courses = append(m.Courses, entry)
	}
	return m
}
