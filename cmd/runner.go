package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/coursex/internal/models"
	"github.com/desertthunder/coursex/internal/repositories"
	"github.com/desertthunder/coursex/internal/services"
	"github.com/desertthunder/coursex/internal/shared"
	"github.com/desertthunder/coursex/internal/tasks"
	"github.com/desertthunder/coursex/internal/transport"
)

// CourseClient is the REST surface the commands use. [services.CourseService] implements it.
type CourseClient interface {
	tasks.CourseFetcher
	ListCourses(ctx context.Context) ([]models.Course, error)
	FetchAnalytics(ctx context.Context) (*models.Analytics, error)
}

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	courses    CourseClient
	api        *services.APIService
	newChannel func() (transport.Channel, error)
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Dependencies left nil are built from the loaded configuration in [Runner.Before].
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Courses    CourseClient
	API        *services.APIService
	NewChannel func() (transport.Channel, error)
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		courses:    opts.Courses,
		api:        opts.API,
		newChannel: opts.NewChannel,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		createCommand, courseCommand, analyticsCommand, historyCommand, apiCommand, setupCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before loads the configuration named by --config (when it exists), applies the log level
// and builds the backend clients that were not injected.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if path := cmd.String("config"); path != "" {
		r.configPath = path
		if _, err := os.Stat(path); err == nil {
			config, err := shared.LoadConfig(path)
			if err != nil {
				return ctx, err
			}
			r.config = config
		}
	}

	if err := r.config.Validate(); err != nil {
		return ctx, err
	}
	level, err := shared.ParseLogLevel(r.config.Logging.Level)
	if err != nil {
		return ctx, err
	}
	shared.SetLogLevel(r.logger, level)

	r.wire(ctx)
	return ctx, nil
}

func (r *Runner) wire(ctx context.Context) {
	server, client := r.config.Server, r.config.Client
	httpClient := services.NewHTTPClient(ctx, server.Token, client.FetchTimeoutDuration())

	if r.courses == nil {
		limiter := services.NewLimiter(client.RequestsPerSecond, client.Burst)
		r.courses = services.NewCourseService(server.BaseURL, httpClient, limiter)
	}
	if r.api == nil {
		r.api = services.NewAPIService(server.BaseURL, httpClient)
	}
	if r.newChannel == nil {
		r.newChannel = func() (transport.Channel, error) {
			return transport.NewSocketChannel(transport.SocketOpts{
				BaseURL:        server.BaseURL,
				Namespace:      server.Namespace,
				Token:          server.Token,
				ConnectTimeout: client.ConnectTimeoutDuration(),
				Logger:         r.logger,
			})
		}
	}
}

// SetLogger swaps the logger, e.g. for a file logger while the TUI owns the terminal.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// openHistory opens the attempt database. Callers close the returned handle.
func (r *Runner) openHistory() (*sql.DB, *repositories.AttemptRepository, error) {
	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, nil, err
	}
	return db, repositories.NewAttemptRepository(db), nil
}

// newController builds a session controller. History is best effort: when the database
// cannot be opened the session runs unrecorded.
func (r *Runner) newController() (*tasks.Controller, func(), error) {
	if r.courses == nil || r.newChannel == nil {
		return nil, nil, fmt.Errorf("%w: backend clients not initialized", shared.ErrInvalidConfig)
	}

	ch, err := r.newChannel()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create channel: %w", err)
	}

	opts := tasks.ControllerOpts{
		Channel:      ch,
		Fetcher:      r.courses,
		Logger:       r.logger,
		FetchTimeout: r.config.Client.FetchTimeoutDuration(),
	}

	cleanup := func() {}
	if db, repo, err := r.openHistory(); err != nil {
		r.logger.Warn("attempt history unavailable", "error", err)
	} else {
		opts.Recorder = repositories.NewAttemptRecorder(repo)
		cleanup = func() { db.Close() }
	}

	ctl, err := tasks.NewController(opts)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return ctl, cleanup, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
