package tasks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/desertthunder/coursex/internal/models"
	"github.com/desertthunder/coursex/internal/shared"
	th "github.com/desertthunder/coursex/internal/testing"
	"github.com/desertthunder/coursex/internal/transport"
)

type memRecorder struct {
	mu       sync.Mutex
	attempts []*models.Attempt
	err      error
}

func (r *memRecorder) RecordAttempt(a *models.Attempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, a)
	return r.err
}

func (r *memRecorder) outcomes() []models.Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Outcome
	for _, a := range r.attempts {
		out = append(out, a.Outcome())
	}
	return out
}

func strPtr(s string) *string { return &s }

func testCourse() models.Bundle {
	half := 0.0
	return models.Bundle{
		Course: models.Course{CourseID: "c1", Title: "Intro to Go", Level: "Beginner", CompletionPercentage: &half},
		Sections: []models.Section{
			{SectionID: "s2", CourseID: "c1", Title: "Two", SectionOrder: 2},
			{SectionID: "s1", CourseID: "c1", Title: "One", SectionOrder: 1},
		},
	}
}

type harness struct {
	c        *Controller
	ch       *transport.Fake
	fetcher  *th.FakeFetcher
	recorder *memRecorder
	cancel   context.CancelFunc
	errc     chan error
}

func newHarness(t *testing.T, ch *transport.Fake) *harness {
	t.Helper()

	fetcher := th.NewFakeFetcher()
	fetcher.SetBundle(testCourse())
	rec := &memRecorder{}

	ids := 0
	c, err := NewController(ControllerOpts{
		Channel:      ch,
		Fetcher:      fetcher,
		Recorder:     rec,
		FetchTimeout: time.Second,
		IDs: func() string {
			ids++
			return "session-" + string(rune('0'+ids))
		},
	})
	if err != nil {
		t.Fatalf("NewController failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	h := &harness{c: c, ch: ch, fetcher: fetcher, recorder: rec, cancel: cancel, errc: make(chan error, 1)}
	go func() { h.errc <- c.Run(ctx) }()
	t.Cleanup(func() { h.stop(t) })
	return h
}

func (h *harness) stop(t *testing.T) {
	t.Helper()
	h.cancel()
	select {
	case <-h.c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("controller did not stop")
	}
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func (h *harness) waitStage(t *testing.T, stage Stage) Update {
	t.Helper()
	var u Update
	eventually(t, "stage "+stage.String(), func() bool {
		u = h.c.Snapshot()
		return u.Stage == stage
	})
	return u
}

func (h *harness) reachReady(t *testing.T) Update {
	t.Helper()
	h.waitStage(t, StageIdle)
	eventually(t, "connection", func() bool { return h.c.Snapshot().View.Connected })

	if err := h.c.StartCreation("Learn Go", models.Beginner); err != nil {
		t.Fatalf("StartCreation failed: %v", err)
	}
	eventually(t, "start command", func() bool { return len(h.ch.Sent()) == 1 })

	h.ch.EmitUpdate(models.SessionUpdate{Progress: models.WireInProgress, Actions: []string{"Generating outline"}, CourseID: strPtr("c1")})
	h.ch.EmitUpdate(models.SessionUpdate{Progress: models.WireSuccess, Actions: []string{"Generating outline", "Done"}, CourseID: strPtr("c1")})
	return h.waitStage(t, StageReady)
}

func TestController(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	t.Run("happy path", func(t *testing.T) {
		h := newHarness(t, transport.NewFake())
		u := h.reachReady(t)

		if u.View.Course == nil || u.View.Course.Title != "Intro to Go" {
			t.Fatalf("expected course Intro to Go, got %+v", u.View.Course)
		}
		if len(u.View.Sections) != 2 || u.View.Sections[0].SectionID != "s1" {
			t.Errorf("expected sorted sections, got %+v", u.View.Sections)
		}
		if sent := h.ch.Sent(); sent[0].Description != "Learn Go" || sent[0].Level != models.Beginner {
			t.Errorf("expected start command for Learn Go, got %+v", sent[0])
		}
		if got := len(h.fetcher.BundleCalls()); got < 2 {
			t.Errorf("expected a bundle fetch after success, got %d calls", got)
		}
		eventually(t, "success attempt", func() bool {
			o := h.recorder.outcomes()
			return len(o) == 1 && o[0] == models.OutcomeSuccess
		})
	})

	t.Run("start is held until connected", func(t *testing.T) {
		ch := transport.NewFake()
		ch.AutoConnect = false
		h := newHarness(t, ch)

		if err := h.c.StartCreation("Learn Go", "Advanced"); err != nil {
			t.Fatalf("StartCreation failed: %v", err)
		}
		u := h.waitStage(t, StageConnecting)
		if u.View.CurrentAction != "Initializing course creation..." {
			t.Errorf("expected initial narration, got %q", u.View.CurrentAction)
		}
		if len(ch.Sent()) != 0 {
			t.Fatal("expected no command before connecting")
		}

		ch.Emit(transport.Signal{Kind: transport.SignalConnected})
		eventually(t, "held start command", func() bool { return len(ch.Sent()) == 1 })
		h.waitStage(t, StageGenerating)
	})

	t.Run("second start is rejected while running", func(t *testing.T) {
		h := newHarness(t, transport.NewFake())
		eventually(t, "connection", func() bool { return h.c.Snapshot().View.Connected })

		if err := h.c.StartCreation("Learn Go", models.Beginner); err != nil {
			t.Fatalf("StartCreation failed: %v", err)
		}
		err := h.c.StartCreation("Learn Rust", models.Beginner)
		if !errors.Is(err, shared.ErrActionRejected) {
			t.Errorf("expected ErrActionRejected, got %v", err)
		}
		eventually(t, "start command", func() bool { return len(h.ch.Sent()) == 1 })
		if len(h.ch.Sent()) != 1 {
			t.Errorf("expected exactly one command, got %d", len(h.ch.Sent()))
		}
	})

	t.Run("invalid input", func(t *testing.T) {
		h := newHarness(t, transport.NewFake())
		if err := h.c.StartCreation("   ", models.Beginner); !errors.Is(err, shared.ErrEmptyDescription) {
			t.Errorf("expected ErrEmptyDescription, got %v", err)
		}
		if err := h.c.StartCreation("Learn Go", "Expert"); !errors.Is(err, shared.ErrInvalidLevel) {
			t.Errorf("expected ErrInvalidLevel, got %v", err)
		}
	})

	t.Run("connect error fails the session", func(t *testing.T) {
		h := newHarness(t, transport.NewFake())
		eventually(t, "connection", func() bool { return h.c.Snapshot().View.Connected })
		if err := h.c.StartCreation("Learn Go", models.Beginner); err != nil {
			t.Fatalf("StartCreation failed: %v", err)
		}

		h.ch.EmitConnectError("connection lost after reconnect")
		u := h.waitStage(t, StageFailed)
		if u.View.Session != nil {
			t.Error("expected session to be cleared")
		}
		if !u.View.CanRetry {
			t.Error("expected retry to be available")
		}

		if err := h.c.Retry(); err != nil {
			t.Fatalf("Retry failed: %v", err)
		}
		h.waitStage(t, StageIdle)
	})

	t.Run("failed generation keeps the session", func(t *testing.T) {
		h := newHarness(t, transport.NewFake())
		eventually(t, "connection", func() bool { return h.c.Snapshot().View.Connected })
		if err := h.c.StartCreation("Learn Go", models.Beginner); err != nil {
			t.Fatalf("StartCreation failed: %v", err)
		}
		eventually(t, "start command", func() bool { return len(h.ch.Sent()) == 1 })

		h.ch.EmitUpdate(models.SessionUpdate{Progress: models.WireFailed, ErrorMessage: "model overloaded"})
		u := h.waitStage(t, StageFailed)
		if u.View.ErrorMessage != "model overloaded" {
			t.Errorf("expected server message, got %q", u.View.ErrorMessage)
		}
		if u.View.Session == nil {
			t.Error("expected session to be kept")
		}
		eventually(t, "error attempt", func() bool {
			o := h.recorder.outcomes()
			return len(o) == 1 && o[0] == models.OutcomeError
		})
	})

	t.Run("mark complete refreshes the course", func(t *testing.T) {
		h := newHarness(t, transport.NewFake())
		h.reachReady(t)

		if err := h.c.Next(); err != nil {
			t.Fatalf("Next failed: %v", err)
		}
		if err := h.c.MarkCurrentComplete(); err != nil {
			t.Fatalf("MarkCurrentComplete failed: %v", err)
		}
		eventually(t, "completed section", func() bool {
			v := h.c.Snapshot().View
			return len(v.Sections) == 2 && bool(v.Sections[0].IsCompleted)
		})
		eventually(t, "course refresh", func() bool { return len(h.fetcher.CourseCalls()) == 1 })

		if calls := h.fetcher.CompleteCalls(); len(calls) != 1 || calls[0] != "s1" {
			t.Errorf("expected completion of s1, got %v", calls)
		}
		if err := h.c.MarkComplete("s1"); !errors.Is(err, shared.ErrActionRejected) {
			t.Errorf("expected ErrActionRejected for completed section, got %v", err)
		}
	})

	t.Run("delete returns to idle", func(t *testing.T) {
		h := newHarness(t, transport.NewFake())
		h.reachReady(t)

		if err := h.c.DeleteCourse(); err != nil {
			t.Fatalf("DeleteCourse failed: %v", err)
		}
		h.waitStage(t, StageIdle)
		if calls := h.fetcher.DeleteCalls(); len(calls) != 1 || calls[0] != "c1" {
			t.Errorf("expected delete of c1, got %v", calls)
		}
	})

	t.Run("delete failure keeps the course", func(t *testing.T) {
		h := newHarness(t, transport.NewFake())
		h.fetcher.DeleteErr["c1"] = errors.New("boom")
		h.reachReady(t)

		if err := h.c.DeleteCourse(); err != nil {
			t.Fatalf("DeleteCourse failed: %v", err)
		}
		eventually(t, "delete attempt", func() bool { return len(h.fetcher.DeleteCalls()) == 1 })
		eventually(t, "delete settled", func() bool { return !h.c.Snapshot().View.Deleting })

		u := h.c.Snapshot()
		if u.Stage != StageReady || u.View.Course == nil {
			t.Errorf("expected course to stay loaded, got stage %v", u.Stage)
		}
	})

	t.Run("navigate away records and tears down", func(t *testing.T) {
		h := newHarness(t, transport.NewFake())
		eventually(t, "connection", func() bool { return h.c.Snapshot().View.Connected })
		if err := h.c.StartCreation("Learn Go", models.Beginner); err != nil {
			t.Fatalf("StartCreation failed: %v", err)
		}

		if err := h.c.NavigateAway(); err != nil {
			t.Fatalf("NavigateAway failed: %v", err)
		}
		select {
		case <-h.c.Done():
		case <-time.After(2 * time.Second):
			t.Fatal("controller did not stop")
		}
		if err := <-h.errc; err != nil {
			t.Errorf("expected Run to return nil, got %v", err)
		}
		if n := h.ch.Disconnects(); n != 1 {
			t.Errorf("expected 1 disconnect, got %d", n)
		}
		if o := h.recorder.outcomes(); len(o) != 1 || o[0] != models.OutcomeAbandoned {
			t.Errorf("expected abandoned attempt, got %v", o)
		}
		if err := h.c.Retry(); !errors.Is(err, shared.ErrStopped) {
			t.Errorf("expected ErrStopped, got %v", err)
		}
	})

	t.Run("cancel disconnects once", func(t *testing.T) {
		h := newHarness(t, transport.NewFake())
		h.waitStage(t, StageIdle)
		h.stop(t)
		h.c.Close()

		if n := h.ch.Disconnects(); n != 1 {
			t.Errorf("expected 1 disconnect, got %d", n)
		}
	})

	t.Run("subscribers", func(t *testing.T) {
		h := newHarness(t, transport.NewFake())
		sub := h.c.Subscribe()

		h.ch.Emit(transport.Signal{Kind: transport.SignalDisconnected, Reason: "transport close"})

		select {
		case u := <-sub:
			if u.Stage != StageIdle {
				t.Errorf("expected idle stage, got %v", u.Stage)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("expected an update")
		}

		h.stop(t)
		eventually(t, "closed subscription", func() bool {
			for {
				select {
				case _, ok := <-sub:
					if !ok {
						return true
					}
				default:
					return false
				}
			}
		})

		late := h.c.Subscribe()
		if _, ok := <-late; ok {
			t.Error("expected late subscription to be closed")
		}
	})

	t.Run("run twice", func(t *testing.T) {
		h := newHarness(t, transport.NewFake())
		eventually(t, "first run to connect", func() bool { return h.ch.Connects() == 1 })

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := h.c.Run(ctx); !errors.Is(err, shared.ErrActionRejected) {
			t.Errorf("expected ErrActionRejected, got %v", err)
		}
		if h.ch.Connects() != 1 {
			t.Errorf("expected 1 connect, got %d", h.ch.Connects())
		}
	})
}

func TestNewController(t *testing.T) {
	t.Run("requires channel", func(t *testing.T) {
		if _, err := NewController(ControllerOpts{Fetcher: th.NewFakeFetcher()}); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("requires fetcher", func(t *testing.T) {
		if _, err := NewController(ControllerOpts{Channel: transport.NewFake()}); !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("stopped before run", func(t *testing.T) {
		c, err := NewController(ControllerOpts{Channel: transport.NewFake(), Fetcher: th.NewFakeFetcher()})
		if err != nil {
			t.Fatalf("NewController failed: %v", err)
		}
		c.Close()
		if err := c.Next(); !errors.Is(err, shared.ErrStopped) {
			t.Errorf("expected ErrStopped, got %v", err)
		}
		if u := c.Snapshot(); u.Stage != StageIdle {
			t.Errorf("expected idle snapshot, got %v", u.Stage)
		}
	})
}

func TestStage(t *testing.T) {
	tc := []struct {
		stage    Stage
		name     string
		terminal bool
	}{
		{StageIdle, "idle", false},
		{StageConnecting, "connecting", false},
		{StageGenerating, "generating", false},
		{StageLoading, "loading", false},
		{StageReady, "ready", true},
		{StageFailed, "failed", true},
	}
	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if tt.stage.String() != tt.name {
				t.Errorf("expected %s, got %s", tt.name, tt.stage)
			}
			if tt.stage.Terminal() != tt.terminal {
				t.Errorf("expected terminal=%v for %s", tt.terminal, tt.name)
			}
		})
	}
}
