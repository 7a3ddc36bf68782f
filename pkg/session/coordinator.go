// Package session is the document I/O coordinator. A single control
// goroutine owns the active document, its dirty flag, the I/O jobs and the
// plugin broadcast; every public command is posted to it and awaited.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/molstage/pkg/core"
	"github.com/aretw0/molstage/pkg/formats"
	"github.com/aretw0/molstage/pkg/plugin"
	"github.com/aretw0/molstage/pkg/recent"
	"github.com/aretw0/molstage/pkg/settings"
)

// Defaults.
const (
	DefaultQueueTimeout  = 5 * time.Second
	DefaultProgressDelay = 750 * time.Millisecond
	DefaultEditTool      = "Editing"
	DefaultNavigateTool  = "Navigation"
)

// Config holds the collaborators and tunables of a Coordinator.
type Config struct {
	Logger     *slog.Logger
	Registry   *formats.Registry
	Dispatcher *plugin.Dispatcher
	Collection *core.Collection
	Settings   settings.Store
	// Prompter answers the save/discard/cancel gate. Nil means Cancel.
	Prompter core.Prompter

	// QueuedFiles are opened once codecs are ready, within QueueTimeout
	// of Start.
	QueuedFiles  []string
	QueueTimeout time.Duration
	// ProgressDelay is how long a job runs before IO_PROGRESS is sent.
	ProgressDelay time.Duration

	RecentCapacity int
	// EventBuffer is the subscriber capacity used by Subscribe(0).
	EventBuffer int
	// EditTool is selected for empty documents, NavigateTool otherwise.
	EditTool     string
	NavigateTool string
}

// Coordinator is the document session controller.
type Coordinator struct {
	config     Config
	logger     *slog.Logger
	registry   *formats.Registry
	dispatcher *plugin.Dispatcher
	collection *core.Collection
	settings   settings.Store
	recent     *recent.Tracker
	events     *broker

	// mailbox
	mu      sync.Mutex
	inbox   []func()
	wake    chan struct{}
	closed  bool
	started atomic.Bool
	done    chan struct{}

	// owned by the control goroutine
	runCtx      context.Context
	active      *core.Document
	unsubscribe func()
	dirty       bool
	revision    uint64
	reading     *Job
	writing     *Job
	workers     map[core.JobKind]*ioWorker
	progress    chan *Job
	held        []*Job
	depth       int
	queue       []string
	queueTimer  *time.Timer
	lastOpenDir string
	lastSaveDir string
	quit        bool

	dirtyFlag atomic.Bool
	stateMu   sync.RWMutex
	state     CoordinatorState
}

// New builds a coordinator and loads persisted settings. Nothing runs
// until Start.
func New(config Config) *Coordinator {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Registry == nil {
		config.Registry = formats.NewRegistry(formats.Config{Logger: config.Logger})
	}
	if config.Dispatcher == nil {
		config.Dispatcher = plugin.NewDispatcher(config.Logger)
	}
	if config.Collection == nil {
		config.Collection = core.NewCollection()
	}
	if config.Settings == nil {
		config.Settings = settings.NewMemoryStore()
	}
	if config.QueueTimeout <= 0 {
		config.QueueTimeout = DefaultQueueTimeout
	}
	if config.ProgressDelay <= 0 {
		config.ProgressDelay = DefaultProgressDelay
	}
	if config.EditTool == "" {
		config.EditTool = DefaultEditTool
	}
	if config.NavigateTool == "" {
		config.NavigateTool = DefaultNavigateTool
	}

	if err := config.Settings.Load(); err != nil {
		config.Logger.Warn("failed to load settings", "error", err)
	}

	c := &Coordinator{
		config:      config,
		logger:      config.Logger,
		registry:    config.Registry,
		dispatcher:  config.Dispatcher,
		collection:  config.Collection,
		settings:    config.Settings,
		recent:      recent.New(config.RecentCapacity, config.Settings.Strings(settings.KeyRecentFiles)),
		events:      newBroker(config.Logger, config.EventBuffer),
		wake:        make(chan struct{}, 1),
		done:        make(chan struct{}),
		runCtx:      context.Background(),
		workers:     make(map[core.JobKind]*ioWorker),
		progress:    make(chan *Job, 4),
		queue:       append([]string(nil), config.QueuedFiles...),
		lastOpenDir: config.Settings.String(settings.KeyLastOpenDir),
		lastSaveDir: config.Settings.String(settings.KeyLastSaveDir),
	}

	c.dispatcher.Attach(host{c})
	c.dispatcher.OnToolChanged(func(name string) {
		c.publish(core.Event{Type: core.EventToolChanged, Tool: name})
	})
	c.syncState()
	return c
}

// Registry returns the format registry.
func (c *Coordinator) Registry() *formats.Registry { return c.registry }

// Dispatcher returns the capability dispatcher.
func (c *Coordinator) Dispatcher() *plugin.Dispatcher { return c.dispatcher }

// Collection returns the document collection.
func (c *Coordinator) Collection() *core.Collection { return c.collection }

// Start launches the control goroutine, activates an empty document and
// arms the queued-open deadline.
func (c *Coordinator) Start(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return fmt.Errorf("session already started")
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		return core.ErrClosed
	}
	c.runCtx = ctx

	if len(c.queue) > 0 {
		c.queueTimer = time.NewTimer(c.config.QueueTimeout)
	}

	c.Post(func() {
		if err := c.setActive(c.runCtx, core.NewDocument()); err != nil {
			c.logger.Warn("failed to activate initial document", "error", err)
		}
	})

	lifecycle.Go(ctx, c.run, lifecycle.WithErrorHandler(func(err error) {
		c.logger.Error("session loop failed", "error", err)
	}))
	return nil
}

// Stop shuts the workers down, persists settings and closes every
// subscription. Jobs still running are abandoned.
func (c *Coordinator) Stop(ctx context.Context) error {
	if !c.started.Load() {
		c.mu.Lock()
		already := c.closed
		c.closed = true
		c.mu.Unlock()
		if already {
			return nil
		}
		err := c.persist()
		c.events.close()
		close(c.done)
		return err
	}

	var err error
	if callErr := c.call(ctx, func() { err = c.shutdown(ctx) }); callErr != nil {
		if errors.Is(callErr, core.ErrClosed) {
			return nil
		}
		return callErr
	}

	select {
	case <-c.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return err
}

// Done is closed once the control goroutine has exited.
func (c *Coordinator) Done() <-chan struct{} { return c.done }

// Subscribe returns a channel receiving every event published from now on,
// and a function to unsubscribe. A subscriber that falls behind by more
// than buffer events loses events; zero uses the configured default.
func (c *Coordinator) Subscribe(buffer int) (<-chan core.Event, func()) {
	return c.events.subscribe(buffer)
}

// Post schedules fn on the control goroutine. It returns false once the
// coordinator is stopped.
func (c *Coordinator) Post(fn func()) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	c.inbox = append(c.inbox, fn)
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
	return true
}

// call runs fn on the control goroutine and waits for it. Returning on
// ctx does not withdraw fn.
func (c *Coordinator) call(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !c.Post(func() {
		defer close(finished)
		fn()
		c.syncState()
	}) {
		return core.ErrClosed
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		select {
		case <-finished:
			return nil
		default:
			return core.ErrClosed
		}
	}
}

func (c *Coordinator) takeInbox() []func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	fns := c.inbox
	c.inbox = nil
	return fns
}

func (c *Coordinator) run(ctx context.Context) error {
	defer close(c.done)

	for {
		select {
		case <-ctx.Done():
			if err := c.shutdown(context.Background()); err != nil {
				c.logger.Warn("shutdown failed", "error", err)
			}
			return nil

		case <-c.wake:
			for _, fn := range c.takeInbox() {
				fn()
				c.flushHeld()
				if c.quit {
					return nil
				}
			}

		case job := <-c.results(core.JobRead):
			c.finishRead(job)

		case job := <-c.results(core.JobWrite):
			c.finishWrite(job)

		case job := <-c.progress:
			c.reportProgress(job)

		case <-c.queueDeadline():
			c.expireQueue()
		}

		c.flushHeld()
		c.syncState()
	}
}

// await pumps completions and timers on the control goroutine until
// cond holds. Posted commands are not run meanwhile, and read
// completions are held back until the outermost handler returns.
func (c *Coordinator) await(ctx context.Context, cond func() bool) error {
	c.depth++
	defer func() { c.depth-- }()

	for !cond() {
		select {
		case job := <-c.results(core.JobRead):
			c.held = append(c.held, job)

		case job := <-c.results(core.JobWrite):
			c.finishWrite(job)

		case job := <-c.progress:
			c.reportProgress(job)

		case <-c.queueDeadline():
			c.expireQueue()

		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (c *Coordinator) flushHeld() {
	for c.depth == 0 && len(c.held) > 0 {
		job := c.held[0]
		c.held = c.held[1:]
		c.finishRead(job)
	}
}

func (c *Coordinator) shutdown(ctx context.Context) error {
	c.quit = true

	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()

	c.stopQueueTimer()
	c.abandon(c.reading)
	c.abandon(c.writing)
	for _, job := range c.held {
		c.abandon(job)
	}
	c.reading, c.writing, c.held = nil, nil, nil
	for kind, w := range c.workers {
		if err := w.Stop(ctx); err != nil {
			c.logger.Warn("failed to stop worker", "kind", kind, "error", err)
		}
	}
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}

	err := c.persist()
	c.syncState()
	c.events.close()
	return err
}

// persist stores recent files and dialog directories.
func (c *Coordinator) persist() error {
	c.settings.SetStrings(settings.KeyRecentFiles, c.recent.List())
	if c.lastOpenDir != "" {
		c.settings.SetString(settings.KeyLastOpenDir, c.lastOpenDir)
	}
	if c.lastSaveDir != "" {
		c.settings.SetString(settings.KeyLastSaveDir, c.lastSaveDir)
	}
	if err := c.settings.Save(); err != nil {
		c.logger.Warn("failed to save settings", "error", err)
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

func (c *Coordinator) publish(e core.Event) {
	if e.Timestamp == 0 {
		e.Timestamp = time.Now().Unix()
	}
	c.events.publish(e)
}

func (c *Coordinator) results(kind core.JobKind) <-chan *Job {
	if w := c.workers[kind]; w != nil {
		return w.results
	}
	return nil
}

func (c *Coordinator) queueDeadline() <-chan time.Time {
	if c.queueTimer == nil {
		return nil
	}
	return c.queueTimer.C
}

// host exposes the coordinator to the dispatcher. Its methods run on the
// control goroutine.
type host struct{ c *Coordinator }

func (h host) Post(fn func()) bool { return h.c.Post(fn) }

func (h host) DocumentReady(ext plugin.Extension) {
	doc := core.NewDocument()
	if !ext.ProduceDocument(doc) {
		h.c.logger.Debug("extension produced no document", "extension", ext.Name())
		return
	}
	if err := h.c.setActive(h.c.runCtx, doc); err != nil {
		h.c.logger.Info("document from extension not activated", "extension", ext.Name(), "error", err)
	}
}

func (h host) FormatsReady(ext plugin.Extension) {
	for _, codec := range ext.FileFormats() {
		if err := h.c.registry.Register(codec); err != nil {
			h.c.logger.Debug("format not registered", "extension", ext.Name(), "error", err)
		}
	}
	h.c.drainQueue()
}
