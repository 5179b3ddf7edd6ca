package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/desertthunder/coursex/internal/models"
	"github.com/desertthunder/coursex/internal/session"
	"github.com/desertthunder/coursex/internal/shared"
	"github.com/desertthunder/coursex/internal/transport"
)

const defaultFetchTimeout = 30 * time.Second

// CourseFetcher is the request/response half of the backend. [services.CourseService] implements it.
type CourseFetcher interface {
	FetchCourseBundle(ctx context.Context, courseID string) (*models.Bundle, error)
	FetchCourse(ctx context.Context, courseID string) (*models.Course, error)
	MarkSectionComplete(ctx context.Context, sectionID string) error
	DeleteCourse(ctx context.Context, courseID string) error
}

// Recorder persists finished attempts. Errors are logged and never reach the session.
type Recorder interface {
	RecordAttempt(a *models.Attempt) error
}

// ControllerOpts configures a [Controller].
type ControllerOpts struct {
	Channel      transport.Channel
	Fetcher      CourseFetcher
	Logger       *log.Logger
	FetchTimeout time.Duration // default 30s
	Recorder     Recorder      // optional
	IDs          func() string // session ID generator, defaults to shared.GenerateID
}

// task runs on the loop goroutine and returns the effects it produced.
type task func() []session.Effect

// Controller is the single event loop around a [session.Machine].
//
// Transport signals, effect results and user intents are applied one at a time, in the
// order they reach the loop. Network work runs on separate goroutines and posts its
// result back as a task.
type Controller struct {
	ch       transport.Channel
	fetcher  CourseFetcher
	recorder Recorder
	logger   *log.Logger
	timeout  time.Duration

	machine    *session.Machine
	dispatcher *session.Dispatcher

	inbox    chan task
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	running  atomic.Bool

	disconnectOnce sync.Once

	mu       sync.Mutex
	subs     []chan Update
	closed   bool
	snapshot Update
}

// NewController validates opts and returns a Controller in the idle state.
func NewController(opts ControllerOpts) (*Controller, error) {
	if opts.Channel == nil {
		return nil, fmt.Errorf("%w: channel is required", shared.ErrInvalidConfig)
	}
	if opts.Fetcher == nil {
		return nil, fmt.Errorf("%w: fetcher is required", shared.ErrInvalidConfig)
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = defaultFetchTimeout
	}

	m := session.NewMachine()
	c := &Controller{
		ch:         opts.Channel,
		fetcher:    opts.Fetcher,
		recorder:   opts.Recorder,
		logger:     opts.Logger.With("component", "controller"),
		timeout:    opts.FetchTimeout,
		machine:    m,
		dispatcher: session.NewDispatcher(m, opts.IDs),
		inbox:      make(chan task),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	c.snapshot = newUpdate(m.View(), nil)
	return c, nil
}

// Run connects the channel and processes events until ctx is cancelled or [Controller.Close]
// is called. The channel is disconnected exactly once before Run returns.
func (c *Controller) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: controller already started", shared.ErrActionRejected)
	}
	defer close(c.done)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	c.ch.Connect(gctx)
	c.publish()

	g.Go(func() error {
		defer cancel()
		return c.loop(gctx, g)
	})

	err := g.Wait()
	c.disconnect()
	c.closeSubscribers()

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Close stops the loop. It is safe to call more than once.
func (c *Controller) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// Done is closed once Run has returned.
func (c *Controller) Done() <-chan struct{} { return c.done }

func (c *Controller) disconnect() {
	c.disconnectOnce.Do(c.ch.Disconnect)
}

func (c *Controller) loop(ctx context.Context, g *errgroup.Group) error {
	signals := c.ch.Signals()
	for {
		var t task
		select {
		case <-ctx.Done():
			return nil
		case <-c.stop:
			return nil
		case s, ok := <-signals:
			if !ok {
				signals = nil
				continue
			}
			t = func() []session.Effect { return c.handleSignal(s) }
		case t = <-c.inbox:
		}

		from := c.machine.Progress()
		effects := t()
		c.logTransition(from)
		for _, e := range effects {
			c.execute(ctx, g, e)
		}
		c.publish()
	}
}

func (c *Controller) handleSignal(s transport.Signal) []session.Effect {
	c.logger.Debug("signal", "kind", s.Kind, "reason", s.Reason)

	switch s.Kind {
	case transport.SignalConnected:
		return c.machine.Connected()
	case transport.SignalDisconnected:
		c.machine.Disconnected(s.Reason)
	case transport.SignalConnectError:
		c.logger.Warn("connection failed", "reason", s.Reason)
		return c.machine.ConnectError(s.Reason)
	case transport.SignalSessionUpdate:
		if s.Update != nil {
			return c.machine.Update(*s.Update)
		}
	case transport.SignalProtocolError:
		if s.Error != nil {
			c.logger.Warn("backend error", "error", s.Error.Error, "session_id", s.Error.SessionID)
			return c.machine.ProtocolError(*s.Error)
		}
	}
	return nil
}

func (c *Controller) logTransition(from models.Progress) {
	to := c.machine.Progress()
	if from == to {
		return
	}
	v := c.machine.View()
	var sessionID, courseID string
	if v.Session != nil {
		sessionID, courseID = v.Session.SessionID, v.Session.CourseID
	}
	c.logger.Info("session transition", "from", from, "to", to, "session_id", sessionID, "course_id", courseID)
}

// execute starts one effect. Only the send happens inline; everything else runs on the group.
func (c *Controller) execute(ctx context.Context, g *errgroup.Group, e session.Effect) {
	c.logger.Debug("effect", "kind", e.Kind, "key", e.Key)

	switch e.Kind {
	case session.EffectSendStart:
		if err := c.ch.SendStart(e.Start); err != nil {
			c.logger.Warn("start command not sent", "error", err)
			for _, next := range c.machine.SendFailed(e.Key, err) {
				c.execute(ctx, g, next)
			}
		}

	case session.EffectFetchBundle:
		c.spawn(ctx, g, func(fctx context.Context) task {
			b, err := c.fetcher.FetchCourseBundle(fctx, e.Key.CourseID)
			return func() []session.Effect { return c.machine.BundleResult(e.Key, b, err) }
		})

	case session.EffectFetchCourse:
		c.spawn(ctx, g, func(fctx context.Context) task {
			course, err := c.fetcher.FetchCourse(fctx, e.Key.CourseID)
			return func() []session.Effect {
				c.machine.CourseResult(e.Key, course, err)
				return nil
			}
		})

	case session.EffectMarkComplete:
		c.spawn(ctx, g, func(fctx context.Context) task {
			err := c.fetcher.MarkSectionComplete(fctx, e.SectionID)
			return func() []session.Effect { return c.machine.CompleteResult(e.Key, e.SectionID, err) }
		})

	case session.EffectDeleteCourse:
		c.spawn(ctx, g, func(fctx context.Context) task {
			err := c.fetcher.DeleteCourse(fctx, e.Key.CourseID)
			return func() []session.Effect {
				c.machine.DeleteResult(e.Key, err)
				return nil
			}
		})

	case session.EffectRecordAttempt:
		if c.recorder == nil || e.Attempt == nil {
			return
		}
		a := e.Attempt
		g.Go(func() error {
			if err := c.recorder.RecordAttempt(a); err != nil {
				c.logger.Error("failed to record attempt", "session_id", a.SessionID(), "error", err)
			}
			return nil
		})
	}
}

// spawn runs fn with a per-call timeout and posts the task it returns back to the loop.
// Results that arrive after the loop has stopped are dropped.
func (c *Controller) spawn(ctx context.Context, g *errgroup.Group, fn func(context.Context) task) {
	g.Go(func() error {
		fctx, cancel := context.WithTimeout(ctx, c.timeout)
		t := fn(fctx)
		cancel()

		select {
		case c.inbox <- t:
		case <-ctx.Done():
		case <-c.stop:
		}
		return nil
	})
}

// call posts an intent to the loop and waits for the dispatcher's verdict.
func (c *Controller) call(fn func() ([]session.Effect, error)) error {
	reply := make(chan error, 1)
	t := func() []session.Effect {
		effects, err := fn()
		reply <- err
		return effects
	}

	select {
	case c.inbox <- t:
	case <-c.stop:
		return shared.ErrStopped
	case <-c.done:
		return shared.ErrStopped
	}
	return <-reply
}

// StartCreation submits a course request.
func (c *Controller) StartCreation(description string, level models.Level) error {
	return c.call(func() ([]session.Effect, error) {
		return c.dispatcher.StartCreation(description, string(level))
	})
}

// Retry clears a failed session.
func (c *Controller) Retry() error {
	return c.call(func() ([]session.Effect, error) {
		return nil, c.dispatcher.Retry()
	})
}

// DeleteCourse deletes the course produced by the session.
func (c *Controller) DeleteCourse() error {
	return c.call(c.dispatcher.DeleteCourse)
}

// MarkComplete marks one section as completed.
func (c *Controller) MarkComplete(sectionID string) error {
	return c.call(func() ([]session.Effect, error) {
		return c.dispatcher.MarkComplete(sectionID)
	})
}

// MarkCurrentComplete marks the section under the cursor.
func (c *Controller) MarkCurrentComplete() error {
	return c.call(c.dispatcher.MarkCurrentComplete)
}

// NavigateAway abandons the session and stops the controller, which tears down the channel.
func (c *Controller) NavigateAway() error {
	err := c.call(func() ([]session.Effect, error) {
		return c.dispatcher.NavigateAway(), nil
	})
	c.Close()
	return err
}

// Select moves the section cursor; -1 selects the overview.
func (c *Controller) Select(index int) error {
	return c.call(func() ([]session.Effect, error) {
		return nil, c.dispatcher.SelectSection(index)
	})
}

// Next moves the section cursor forward.
func (c *Controller) Next() error {
	return c.call(func() ([]session.Effect, error) {
		return nil, c.dispatcher.NextSection()
	})
}

// Prev moves the section cursor back.
func (c *Controller) Prev() error {
	return c.call(func() ([]session.Effect, error) {
		return nil, c.dispatcher.PrevSection()
	})
}

// Subscribe returns a channel of updates. Sends never block: a subscriber that falls behind
// misses updates and should read [Controller.Snapshot]. The channel is closed when Run returns.
func (c *Controller) Subscribe() <-chan Update {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan Update, 16)
	if c.closed {
		close(ch)
		return ch
	}
	c.subs = append(c.subs, ch)
	return ch
}

// Snapshot returns the most recently published update.
func (c *Controller) Snapshot() Update {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

func (c *Controller) publish() {
	u := newUpdate(c.machine.View(), c.machine.Notices())

	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshot = u
	for _, ch := range c.subs {
		select {
		case ch <- u:
		default:
			c.logger.Debug("subscriber is behind, update dropped")
		}
	}
}

func (c *Controller) closeSubscribers() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.subs {
		close(ch)
	}
	c.subs = nil
	c.closed = true
}
