package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/coursex/internal/models"
	"github.com/desertthunder/coursex/internal/repositories"
	"github.com/desertthunder/coursex/internal/services"
	"github.com/desertthunder/coursex/internal/session"
	"github.com/desertthunder/coursex/internal/shared"
	"github.com/desertthunder/coursex/internal/tasks"
	tu "github.com/desertthunder/coursex/internal/testing"
	"github.com/desertthunder/coursex/internal/transport"
)

const (
	courseJSON   = `{"course_id":"c1","title":"Intro to Go","description":"Learn Go","level":"Beginner","created_at":1700000000,"completion_percentage":0.5}`
	sectionsJSON = `[{"section_id":"s2","course_id":"c1","title":"Functions","section_order":2,"is_completed":0},{"section_id":"s1","course_id":"c1","title":"Variables","section_order":1,"is_completed":1,"completed_at":1700000100}]`
	coursesJSON  = `[` + courseJSON + `,{"course_id":"c2","title":"Rust Ownership","level":"Advanced","created_at":1700000500,"completion_percentage":null}]`
)

func backend(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/course", func(w http.ResponseWriter, r *http.Request) {
		switch id := r.URL.Query().Get("id"); {
		case id == "c1" && r.Method == http.MethodGet:
			w.Write([]byte(courseJSON))
		case id == "c1" && r.Method == http.MethodDelete:
			w.Write([]byte(`{"status":"success"}`))
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte(`{"message":"Course is locked"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":"Course not found"}`))
		}
	})
	mux.HandleFunc("/sections", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sectionsJSON))
	})
	mux.HandleFunc("/courses", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(coursesJSON))
	})
	mux.HandleFunc("/section/complete", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"success"}`))
	})
	mux.HandleFunc("/analytics", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"course_counts":{"completed":1,"total":2},"section_counts":{"completed":3,"total":8},"courses_table":[],"daily_section_completions":[]}`))
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

type testEnv struct {
	runner *Runner
	output *bytes.Buffer
	fake   *transport.Fake
	dir    string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	srv := backend(t)
	dir := t.TempDir()

	config := shared.DefaultConfig()
	config.Server.BaseURL = srv.URL
	config.Database.Path = filepath.Join(dir, "coursex.db")

	fake := transport.NewFake()
	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{
		Config:     config,
		Logger:     shared.NewLogger(io.Discard),
		Output:     output,
		Courses:    services.NewCourseService(srv.URL, srv.Client(), nil),
		API:        services.NewAPIService(srv.URL, srv.Client()),
		NewChannel: func() (transport.Channel, error) { return fake, nil },
	})
	return &testEnv{runner: runner, output: output, fake: fake, dir: dir}
}

func (e *testEnv) run(ctx context.Context, args ...string) error {
	app := &cli.Command{
		Name: "coursex",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: filepath.Join(e.dir, "missing.toml")},
		},
		Before:   e.runner.Before,
		Commands: e.runner.register(),
		Writer:   io.Discard,
	}
	return app.Run(ctx, append([]string{"coursex"}, args...))
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			courses := services.NewCourseService("", nil, nil)
			api := &services.APIService{}

			runner := NewRunner(RunnerOpts{
				Config:  config,
				Logger:  logger,
				Output:  output,
				Courses: courses,
				API:     api,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.courses != courses {
				t.Error("expected courses to be set")
			}
			if runner.api != api {
				t.Error("expected api to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: nil})
			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: nil})
			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})
			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with configPath sets field", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{ConfigPath: "/test/path/config.toml"})
			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
		})
	})

	t.Run("Before", func(t *testing.T) {
		t.Run("builds missing services from config", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: shared.NewLogger(io.Discard), Output: io.Discard})
			app := &cli.Command{
				Name:   "coursex",
				Flags:  []cli.Flag{&cli.StringFlag{Name: "config", Value: filepath.Join(t.TempDir(), "none.toml")}},
				Before: runner.Before,
				Action: func(context.Context, *cli.Command) error { return nil },
			}
			if err := app.Run(context.Background(), []string{"coursex"}); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if runner.courses == nil || runner.api == nil || runner.newChannel == nil {
				t.Error("expected services to be wired")
			}
		})

		t.Run("loads the config file", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			content := "[server]\nbase_url = \"https://courses.example.com\"\nnamespace = \"/create\"\n"
			if err := os.WriteFile(path, []byte(content), 0644); err != nil {
				t.Fatal(err)
			}

			runner := NewRunner(RunnerOpts{Logger: shared.NewLogger(io.Discard), Output: io.Discard})
			app := &cli.Command{
				Name:   "coursex",
				Flags:  []cli.Flag{&cli.StringFlag{Name: "config"}},
				Before: runner.Before,
				Action: func(context.Context, *cli.Command) error { return nil },
			}
			if err := app.Run(context.Background(), []string{"coursex", "--config", path}); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if runner.config.Server.BaseURL != "https://courses.example.com" {
				t.Errorf("expected base_url from file, got %s", runner.config.Server.BaseURL)
			}
			if runner.configPath != path {
				t.Errorf("expected configPath %s, got %s", path, runner.configPath)
			}
		})

		t.Run("rejects invalid config", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte("[server]\nbase_url = \"ftp://nope\"\n"), 0644); err != nil {
				t.Fatal(err)
			}

			runner := NewRunner(RunnerOpts{Logger: shared.NewLogger(io.Discard), Output: io.Discard})
			app := &cli.Command{
				Name:   "coursex",
				Flags:  []cli.Flag{&cli.StringFlag{Name: "config"}},
				Before: runner.Before,
				Action: func(context.Context, *cli.Command) error { return nil },
			}
			err := app.Run(context.Background(), []string{"coursex", "--config", path})
			if !errors.Is(err, shared.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if result := output.String(); result != expected {
				t.Errorf("expected %q, got %q", expected, result)
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result := output.String(); result != "hello world" {
				t.Errorf("expected 'hello world', got %q", result)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		commands := NewRunner(RunnerOpts{}).register()

		names := map[string]bool{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names[cmd.Name] = true
		}
		for _, want := range []string{"create", "course", "analytics", "history", "api", "setup", "tui"} {
			if !names[want] {
				t.Errorf("expected %s command to be registered", want)
			}
		}
	})
}

func TestCreateCommand(t *testing.T) {
	t.Run("follows the session to a ready course", func(t *testing.T) {
		env := newTestEnv(t)

		go func() {
			deadline := time.Now().Add(2 * time.Second)
			for len(env.fake.Sent()) == 0 && time.Now().Before(deadline) {
				time.Sleep(5 * time.Millisecond)
			}
			id := "c1"
			env.fake.EmitUpdate(models.SessionUpdate{Progress: models.WireInProgress, Actions: []string{"Planning sections"}, CourseID: &id})
			env.fake.EmitUpdate(models.SessionUpdate{Progress: models.WireSuccess, Actions: []string{"Planning sections", "Writing content"}, CourseID: &id})
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := env.run(ctx, "create", "--level", "intermediate", "Learn Go"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		out := env.output.String()
		for _, want := range []string{"Creating a Intermediate course: Learn Go", "• Planning sections", "• Writing content", "Course ready", "Intro to Go"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, out)
			}
		}
		if strings.Count(out, "• Planning sections") != 1 {
			t.Errorf("expected each action once, got:\n%s", out)
		}

		sent := env.fake.Sent()
		if len(sent) != 1 || sent[0].Level != models.Intermediate {
			t.Errorf("expected one Intermediate start command, got %+v", sent)
		}
		if env.fake.Disconnects() != 1 {
			t.Errorf("expected one disconnect, got %d", env.fake.Disconnects())
		}

		db, err := shared.OpenDatabase(env.runner.config.Database)
		if err != nil {
			t.Fatalf("failed to open history: %v", err)
		}
		defer db.Close()
		attempts, err := repositories.NewAttemptRepository(db).List(nil)
		if err != nil {
			t.Fatalf("failed to list attempts: %v", err)
		}
		if len(attempts) != 1 || attempts[0].Outcome() != models.OutcomeSuccess || attempts[0].CourseID() != "c1" {
			t.Errorf("expected one successful attempt for c1, got %d", len(attempts))
		}
	})

	t.Run("reports a failed generation", func(t *testing.T) {
		env := newTestEnv(t)

		go func() {
			deadline := time.Now().Add(2 * time.Second)
			for len(env.fake.Sent()) == 0 && time.Now().Before(deadline) {
				time.Sleep(5 * time.Millisecond)
			}
			env.fake.EmitUpdate(models.SessionUpdate{Progress: models.WireFailed, ErrorMessage: "Model overloaded"})
		}()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := env.run(ctx, "create", "-d", "Learn Go")
		if !errors.Is(err, shared.ErrGenerationFailed) {
			t.Fatalf("expected ErrGenerationFailed, got %v", err)
		}
		if !strings.Contains(err.Error(), "Model overloaded") {
			t.Errorf("expected backend message in error, got %v", err)
		}
	})

	t.Run("requires a description", func(t *testing.T) {
		env := newTestEnv(t)
		err := env.run(context.Background(), "create", "   ")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("rejects unknown levels", func(t *testing.T) {
		env := newTestEnv(t)
		err := env.run(context.Background(), "create", "--level", "expert", "Learn Go")
		if !errors.Is(err, shared.ErrInvalidLevel) {
			t.Errorf("expected ErrInvalidLevel, got %v", err)
		}
	})
}

func TestCourseCommands(t *testing.T) {
	ctx := context.Background()

	t.Run("list filters by search", func(t *testing.T) {
		env := newTestEnv(t)
		if err := env.run(ctx, "course", "list", "--search", "rust"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		out := env.output.String()
		if !strings.Contains(out, "Rust Ownership") || strings.Contains(out, "Intro to Go") {
			t.Errorf("expected only the Rust course, got:\n%s", out)
		}
		if !strings.Contains(out, "unknown") {
			t.Errorf("expected unknown progress for a missing percentage, got:\n%s", out)
		}
	})

	t.Run("list as JSON", func(t *testing.T) {
		env := newTestEnv(t)
		if err := env.run(ctx, "course", "list", "--level", "advanced", "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		var courses []models.Course
		if err := json.Unmarshal(env.output.Bytes(), &courses); err != nil {
			t.Fatalf("expected JSON output, got %v", err)
		}
		if len(courses) != 1 || courses[0].CourseID != "c2" {
			t.Errorf("expected c2 only, got %+v", courses)
		}
	})

	t.Run("show as markdown", func(t *testing.T) {
		env := newTestEnv(t)
		if err := env.run(ctx, "course", "show", "--format", "markdown", "c1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		out := env.output.String()
		if !strings.HasPrefix(out, "# Intro to Go") {
			t.Errorf("expected markdown title, got:\n%s", out)
		}
		if strings.Index(out, "Variables") > strings.Index(out, "Functions") {
			t.Error("expected sections in order")
		}
	})

	t.Run("show rejects unknown format", func(t *testing.T) {
		env := newTestEnv(t)
		err := env.run(ctx, "course", "show", "--format", "pdf", "c1")
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("show missing course", func(t *testing.T) {
		env := newTestEnv(t)
		err := env.run(ctx, "course", "show", "zzz")
		if !errors.Is(err, shared.ErrFetch) {
			t.Errorf("expected ErrFetch, got %v", err)
		}
	})

	t.Run("export writes files and a manifest", func(t *testing.T) {
		env := newTestEnv(t)
		dir := filepath.Join(env.dir, "export")
		if err := env.run(ctx, "course", "export", "--format", "markdown", "--output", dir, "c1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		tu.AssertFileExists(t, filepath.Join(dir, "c1", "README.md"))
		tu.AssertFileExists(t, filepath.Join(dir, "export_manifest.json"))
		if !strings.Contains(env.output.String(), "Exported 1 of 1 courses") {
			t.Errorf("expected summary, got:\n%s", env.output.String())
		}
	})

	t.Run("export reports failures", func(t *testing.T) {
		env := newTestEnv(t)
		dir := filepath.Join(env.dir, "export")
		err := env.run(ctx, "course", "export", "--output", dir, "c1", "zzz")
		if err == nil || !strings.Contains(err.Error(), "1 of 2 exports failed") {
			t.Errorf("expected partial failure, got %v", err)
		}
	})

	t.Run("export needs ids", func(t *testing.T) {
		env := newTestEnv(t)
		err := env.run(ctx, "course", "export")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("complete and delete", func(t *testing.T) {
		env := newTestEnv(t)
		if err := env.run(ctx, "course", "complete", "s2"); err != nil {
			t.Fatalf("complete failed: %v", err)
		}
		if err := env.run(ctx, "course", "delete", "c1"); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		out := env.output.String()
		if !strings.Contains(out, "Section s2 marked complete") || !strings.Contains(out, "Course c1 deleted") {
			t.Errorf("unexpected output:\n%s", out)
		}
	})

	t.Run("delete surfaces the backend message", func(t *testing.T) {
		env := newTestEnv(t)
		err := env.run(ctx, "course", "delete", "locked")
		if !errors.Is(err, shared.ErrMutation) {
			t.Fatalf("expected ErrMutation, got %v", err)
		}
		if !strings.Contains(err.Error(), "Course is locked") {
			t.Errorf("expected backend message, got %v", err)
		}
	})
}

func TestAnalyticsCommand(t *testing.T) {
	env := newTestEnv(t)
	if err := env.run(context.Background(), "analytics"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out := env.output.String(); !strings.Contains(out, "Courses completed:  1 / 2") {
		t.Errorf("expected course counts, got:\n%s", out)
	}
}

func TestHistoryCommands(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	db, err := shared.OpenDatabase(env.runner.config.Database)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	repo := repositories.NewAttemptRepository(db)
	ok := models.NewAttempt(0, "session-1", "Learn Go", models.Beginner, models.OutcomeSuccess)
	ok.SetCourseID("c1")
	failed := models.NewAttempt(0, "session-2", "Learn Rust", models.Advanced, models.OutcomeError)
	for _, a := range []*models.Attempt{ok, failed} {
		if err := repo.Create(a); err != nil {
			t.Fatalf("failed to seed attempt: %v", err)
		}
	}
	db.Close()

	t.Run("list", func(t *testing.T) {
		env.output.Reset()
		if err := env.run(ctx, "history", "list"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		out := env.output.String()
		if !strings.Contains(out, "Learn Go") || !strings.Contains(out, "Learn Rust") {
			t.Errorf("expected both attempts, got:\n%s", out)
		}
		if strings.Index(out, "Learn Rust") > strings.Index(out, "Learn Go") {
			t.Error("expected newest attempt first")
		}
	})

	t.Run("list by outcome as JSON", func(t *testing.T) {
		env.output.Reset()
		if err := env.run(ctx, "history", "list", "--outcome", "error", "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		var attempts []attemptJSON
		if err := json.Unmarshal(env.output.Bytes(), &attempts); err != nil {
			t.Fatalf("expected JSON output, got %v", err)
		}
		if len(attempts) != 1 || attempts[0].SessionID != "session-2" {
			t.Errorf("expected session-2 only, got %+v", attempts)
		}
	})

	t.Run("list rejects unknown outcome", func(t *testing.T) {
		err := env.run(ctx, "history", "list", "--outcome", "maybe")
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("clear", func(t *testing.T) {
		env.output.Reset()
		if err := env.run(ctx, "history", "clear"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(env.output.String(), "Removed 2 attempts") {
			t.Errorf("unexpected output: %s", env.output.String())
		}

		env.output.Reset()
		if err := env.run(ctx, "history", "list"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(env.output.String(), "No attempts recorded") {
			t.Errorf("expected empty history, got %s", env.output.String())
		}
	})
}

func TestAPICommands(t *testing.T) {
	ctx := context.Background()

	t.Run("get prints JSON", func(t *testing.T) {
		env := newTestEnv(t)
		if err := env.run(ctx, "api", "get", "/health"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(env.output.String(), `"status": "ok"`) {
			t.Errorf("expected pretty JSON, got %s", env.output.String())
		}
	})

	t.Run("get reports status errors", func(t *testing.T) {
		env := newTestEnv(t)
		err := env.run(ctx, "api", "get", "/course?id=zzz")
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("post validates JSON", func(t *testing.T) {
		env := newTestEnv(t)
		err := env.run(ctx, "api", "post", "--data", "{nope", "/section/complete")
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestSetupCommands(t *testing.T) {
	ctx := context.Background()

	t.Run("config writes the example file once", func(t *testing.T) {
		env := newTestEnv(t)
		path := filepath.Join(env.dir, "config.toml")
		args := []string{"--config", path, "setup", "config"}

		app := func() error {
			a := &cli.Command{
				Name:     "coursex",
				Flags:    []cli.Flag{&cli.StringFlag{Name: "config"}},
				Before:   env.runner.Before,
				Commands: env.runner.register(),
				Writer:   io.Discard,
			}
			return a.Run(ctx, append([]string{"coursex"}, args...))
		}

		if err := app(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		tu.AssertFileExists(t, path)
		if err := app(); err == nil {
			t.Error("expected an error when the file already exists")
		}
	})

	t.Run("database reports migration status", func(t *testing.T) {
		env := newTestEnv(t)
		if err := env.run(ctx, "setup", "database"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(env.output.String(), "✓ 0001 create_attempts") {
			t.Errorf("expected applied migration, got:\n%s", env.output.String())
		}

		env.output.Reset()
		if err := env.run(ctx, "setup", "database", "--rollback"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(env.output.String(), "○ 0001 create_attempts (pending)") {
			t.Errorf("expected pending migration, got:\n%s", env.output.String())
		}
	})
}

func TestNarrator(t *testing.T) {
	t.Run("prints server actions that replace the seeded one", func(t *testing.T) {
		output := &bytes.Buffer{}
		n := narrator{r: NewRunner(RunnerOpts{Logger: shared.NewLogger(io.Discard), Output: output})}

		step := func(actions ...string) {
			n.show(tasks.Update{
				Stage: tasks.StageGenerating,
				View:  session.View{Session: &models.Session{Actions: actions}},
			})
		}
		step("Initializing course creation...")
		step("Planning sections")
		step("Planning sections")
		step("Planning sections", "Writing content")

		expected := "  • Initializing course creation...\n  • Planning sections\n  • Writing content\n"
		if output.String() != expected {
			t.Errorf("expected %q, got %q", expected, output.String())
		}
	})
}
