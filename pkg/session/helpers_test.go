package session_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aretw0/molstage/pkg/core"
	"github.com/aretw0/molstage/pkg/formats"
	"github.com/aretw0/molstage/pkg/plugin"
	"github.com/aretw0/molstage/pkg/session"
	"github.com/aretw0/molstage/pkg/settings"
)

const waitTimeout = 5 * time.Second

// stubCodec is a codec whose reads and writes can be held open by the test.
// Instances share the stub so the test can count calls.
type stubCodec struct {
	id       string
	exts     []string
	caps     core.Capability
	atoms    int
	readErr  error
	writeErr error
	// release, when set, must receive once per call before it returns.
	release chan struct{}

	reads  atomic.Int32
	writes atomic.Int32
	mu     sync.Mutex
	paths  []string
}

func newStubCodec(id string, exts ...string) *stubCodec {
	return &stubCodec{id: id, exts: exts, caps: core.CapRead | core.CapWrite | core.CapFile, atoms: 2}
}

func (s *stubCodec) Identifier() string            { return s.id }
func (s *stubCodec) Name() string                  { return "stub " + s.id }
func (s *stubCodec) FileExtensions() []string      { return s.exts }
func (s *stubCodec) Capabilities() core.Capability { return s.caps }
func (s *stubCodec) NewInstance() core.Codec       { return s }

func (s *stubCodec) Read(path string, doc *core.Document) error {
	s.reads.Add(1)
	s.wait()
	if s.readErr != nil {
		return s.readErr
	}
	for i := 0; i < s.atoms; i++ {
		doc.AddAtom(core.Atom{Element: "C", X: float64(i)})
	}
	return nil
}

func (s *stubCodec) Write(doc *core.Document, path string) error {
	s.writes.Add(1)
	s.mu.Lock()
	s.paths = append(s.paths, path)
	s.mu.Unlock()
	s.wait()
	return s.writeErr
}

func (s *stubCodec) wait() {
	if s.release != nil {
		<-s.release
	}
}

func (s *stubCodec) unblock(t *testing.T) {
	t.Helper()
	select {
	case s.release <- struct{}{}:
	case <-time.After(waitTimeout):
		t.Fatal("codec was never called")
	}
}

type stubTool struct {
	name   string
	active atomic.Bool
}

func (t *stubTool) Name() string          { return t.name }
func (t *stubTool) SetActive(active bool) { t.active.Store(active) }
func (t *stubTool) Widget() any           { return nil }

// harness wires a coordinator with the reference formats, two tools and a
// memory settings store.
type harness struct {
	*session.Coordinator
	store    *settings.MemoryStore
	registry *formats.Registry
	events   <-chan core.Event
	ctx      context.Context
}

func newHarness(t *testing.T, config session.Config) *harness {
	t.Helper()

	if config.Registry == nil {
		config.Registry = formats.NewRegistry(formats.Config{})
		for _, f := range formats.DefaultFormats() {
			require.NoError(t, config.Registry.Register(f))
		}
	}
	store, ok := config.Settings.(*settings.MemoryStore)
	if !ok {
		store = settings.NewMemoryStore()
		config.Settings = store
	}
	if config.Dispatcher == nil {
		config.Dispatcher = plugin.NewDispatcher(nil)
		require.NoError(t, config.Dispatcher.RegisterTool(&stubTool{name: session.DefaultNavigateTool}))
		require.NoError(t, config.Dispatcher.RegisterTool(&stubTool{name: session.DefaultEditTool}))
	}

	c := session.New(config)
	events, _ := c.Subscribe(1000)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, c.Start(ctx))
	t.Cleanup(func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), waitTimeout)
		defer stopCancel()
		_ = c.Stop(stopCtx)
		cancel()
	})

	h := &harness{Coordinator: c, store: store, registry: config.Registry, events: events, ctx: ctx}
	h.expect(t, core.EventDocumentChanged)
	return h
}

// expect returns the next event of type typ, skipping others.
func (h *harness) expect(t *testing.T, typ core.EventType) core.Event {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case e, ok := <-h.events:
			require.True(t, ok, "event stream closed while waiting for %s", typ)
			if e.Type == typ {
				return e
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", typ)
		}
	}
}

// drain returns every event published so far.
func (h *harness) drain(t *testing.T) []core.Event {
	t.Helper()
	// A round trip through the control goroutine flushes pending work.
	_, err := h.Snapshot(h.ctx)
	require.NoError(t, err)

	var out []core.Event
	for {
		select {
		case e := <-h.events:
			out = append(out, e)
		default:
			return out
		}
	}
}

func (h *harness) snapshot(t *testing.T) *core.Document {
	t.Helper()
	doc, err := h.Snapshot(h.ctx)
	require.NoError(t, err)
	return doc
}

func wait(t *testing.T, job *session.Job) session.Result {
	t.Helper()
	require.NotNil(t, job)
	select {
	case <-job.Done():
		return job.Result()
	case <-time.After(waitTimeout):
		t.Fatalf("job %s did not finish", job.ID())
		return session.Result{}
	}
}

func count(events []core.Event, typ core.EventType) int {
	n := 0
	for _, e := range events {
		if e.Type == typ {
			n++
		}
	}
	return n
}

func isIOError(err error) bool {
	var ioErr *core.IOError
	return errors.As(err, &ioErr)
}

func prompter(choice core.GateChoice, asked *atomic.Int32) core.Prompter {
	return core.PrompterFunc(func(*core.Document) core.GateChoice {
		if asked != nil {
			asked.Add(1)
		}
		return choice
	})
}
