package session_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/molstage/pkg/core"
	"github.com/aretw0/molstage/pkg/formats"
	"github.com/aretw0/molstage/pkg/plugin"
	"github.com/aretw0/molstage/pkg/session"
)

// builder is an extension that hands out a prepared structure and
// optionally a codec.
type builder struct {
	plugin.BaseExtension
	mu      sync.Mutex
	seen    []string
	produce *core.Document
	codecs  []core.Codec
}

func (b *builder) Name() string { return "builder" }

func (b *builder) SetDocument(doc *core.Document) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seen = append(b.seen, doc.ID)
}

func (b *builder) ProduceDocument(doc *core.Document) bool {
	if b.produce == nil {
		return false
	}
	doc.Replace(b.produce)
	return true
}

func (b *builder) FileFormats() []core.Codec { return b.codecs }

func (b *builder) documents() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.seen...)
}

func newDispatcher(t *testing.T, exts ...plugin.Extension) *plugin.Dispatcher {
	t.Helper()
	d := plugin.NewDispatcher(nil)
	require.NoError(t, d.RegisterTool(&stubTool{name: session.DefaultNavigateTool}))
	require.NoError(t, d.RegisterTool(&stubTool{name: session.DefaultEditTool}))
	for _, ext := range exts {
		require.NoError(t, d.RegisterExtension(ext))
	}
	return d
}

func TestPlugins_Broadcast(t *testing.T) {
	ext := &builder{}
	h := newHarness(t, session.Config{Dispatcher: newDispatcher(t, ext)})

	initial := h.snapshot(t)
	assert.Equal(t, []string{initial.ID}, ext.documents(), "extensions registered early see the initial document")

	require.NoError(t, h.NewDocument(h.ctx))
	second := h.snapshot(t)
	assert.Equal(t, []string{initial.ID, second.ID}, ext.documents())
}

func TestPlugins_DocumentReady(t *testing.T) {
	ext := &builder{produce: water()}
	h := newHarness(t, session.Config{Dispatcher: newDispatcher(t, ext)})

	ext.Emitter().DocumentReady()
	changed := h.expect(t, core.EventDocumentChanged)
	assert.Equal(t, 3, changed.Atoms)

	doc := h.snapshot(t)
	assert.Equal(t, changed.DocumentID, doc.ID)
	assert.Equal(t, "water", doc.Name)
	assert.Equal(t, session.DefaultNavigateTool, h.Dispatcher().ActiveTool())
	assert.False(t, h.IsDirty())
}

func TestPlugins_DocumentReadyRespectsGate(t *testing.T) {
	ext := &builder{produce: water()}
	h := newHarness(t, session.Config{Dispatcher: newDispatcher(t, ext)})
	require.NoError(t, h.Edit(h.ctx, func(doc *core.Document) { doc.AddAtom(core.Atom{Element: "C"}) }))
	before := h.snapshot(t)

	ext.Emitter().DocumentReady()
	h.expect(t, core.EventGateCancelled)
	assert.Equal(t, before.ID, h.snapshot(t).ID)
	assert.Len(t, h.Documents(), 1)
}

func TestPlugins_FormatsReadyDrainsQueue(t *testing.T) {
	stub := newStubCodec("stub", "stub")
	ext := &builder{codecs: []core.Codec{stub}}
	registry := formats.NewRegistry(formats.Config{})

	h := newHarness(t, session.Config{
		Registry:    registry,
		Dispatcher:  newDispatcher(t, ext),
		QueuedFiles: []string{"/data/late.stub"},
	})
	_, ok := registry.ByIdentifier("stub")
	assert.False(t, ok)

	ext.Emitter().FormatsReady()
	done := h.expect(t, core.EventIOCompleted)
	assert.True(t, done.OK)
	assert.Equal(t, "/data/late.stub", done.Path)

	_, ok = registry.ByIdentifier("stub")
	assert.True(t, ok)
	assert.Equal(t, "/data/late.stub", h.snapshot(t).FileName())
}

func TestPlugins_Requests(t *testing.T) {
	ext := &builder{}
	labels := &stubScene{name: "Labels"}
	d := newDispatcher(t, ext)
	require.NoError(t, d.RegisterScene(labels))
	h := newHarness(t, session.Config{Dispatcher: d})

	ext.Emitter().RequestTool(session.DefaultNavigateTool)
	tool := h.expect(t, core.EventToolChanged)
	assert.Equal(t, session.DefaultNavigateTool, tool.Tool)

	ext.Emitter().RequestDisplayTypes("Labels")
	h.drain(t)
	assert.True(t, labels.Enabled())
}

type stubScene struct {
	mu      sync.Mutex
	name    string
	enabled bool
}

func (s *stubScene) Name() string { return s.name }

func (s *stubScene) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

func (s *stubScene) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
}
