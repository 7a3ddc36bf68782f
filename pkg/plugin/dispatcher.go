package plugin

import (
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/aretw0/introspection"

	"github.com/aretw0/molstage/pkg/core"
)

// Host is the session side of the dispatcher.
type Host interface {
	// Post schedules fn on the control goroutine. It returns false once the
	// host is closed.
	Post(fn func()) bool
	// DocumentReady pulls a document out of ext and activates it.
	DocumentReady(ext Extension)
	// FormatsReady registers the codecs of ext.
	FormatsReady(ext Extension)
}

// Dispatcher routes document lifecycle events to plugins and plugin requests
// back to the session. Plugins are kept in registration order and looked up
// by case-sensitive name.
type Dispatcher struct {
	mu            sync.RWMutex
	logger        *slog.Logger
	host          Host
	tools         []Tool
	active        string
	scenes        []Scene
	extensions    []Extension
	onToolChanged func(name string)
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{logger: logger}
}

// Attach connects the dispatcher to its session.
func (d *Dispatcher) Attach(h Host) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.host = h
}

// OnToolChanged registers a callback fired after the active tool changes.
func (d *Dispatcher) OnToolChanged(fn func(name string)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onToolChanged = fn
}

// RegisterTool adds a tool to the single-select group. The first tool
// registered becomes active.
func (d *Dispatcher) RegisterTool(t Tool) error {
	d.mu.Lock()
	if slices.ContainsFunc(d.tools, func(o Tool) bool { return o.Name() == t.Name() }) {
		d.mu.Unlock()
		return fmt.Errorf("tool %q already registered", t.Name())
	}
	d.tools = append(d.tools, t)
	first := len(d.tools) == 1
	d.mu.Unlock()

	if first {
		d.ActivateTool(t.Name())
	} else {
		t.SetActive(false)
	}
	return nil
}

// RegisterScene adds a display type. Its enabled state is left untouched.
func (d *Dispatcher) RegisterScene(s Scene) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if slices.ContainsFunc(d.scenes, func(o Scene) bool { return o.Name() == s.Name() }) {
		return fmt.Errorf("scene %q already registered", s.Name())
	}
	d.scenes = append(d.scenes, s)
	return nil
}

// RegisterExtension subscribes ext to document changes from now on and
// binds its emitter.
func (d *Dispatcher) RegisterExtension(ext Extension) error {
	d.mu.Lock()
	if slices.ContainsFunc(d.extensions, func(o Extension) bool { return o.Name() == ext.Name() }) {
		d.mu.Unlock()
		return fmt.Errorf("extension %q already registered", ext.Name())
	}
	d.extensions = append(d.extensions, ext)
	d.mu.Unlock()

	ext.Bind(&emitter{d: d, ext: ext})
	d.logger.Debug("extension registered", "name", ext.Name())
	return nil
}

// ActivateTool makes name the only active tool. Unknown names are ignored
// and reported with false.
func (d *Dispatcher) ActivateTool(name string) bool {
	d.mu.Lock()
	var target Tool
	for _, t := range d.tools {
		if t.Name() == name {
			target = t
		}
	}
	if target == nil {
		d.mu.Unlock()
		d.logger.Debug("unknown tool requested", "name", name)
		return false
	}
	tools := slices.Clone(d.tools)
	changed := d.active != name
	d.active = name
	notify := d.onToolChanged
	d.mu.Unlock()

	for _, t := range tools {
		t.SetActive(t == target)
	}
	if changed && notify != nil {
		notify(name)
	}
	return true
}

// SetDisplayTypes enables exactly the named scenes and disables the rest.
// It returns the names that matched.
func (d *Dispatcher) SetDisplayTypes(names ...string) []string {
	d.mu.RLock()
	scenes := slices.Clone(d.scenes)
	d.mu.RUnlock()

	var matched []string
	for _, s := range scenes {
		enable := slices.Contains(names, s.Name())
		if s.Enabled() != enable {
			s.SetEnabled(enable)
		}
		if enable {
			matched = append(matched, s.Name())
		}
	}
	return matched
}

// Broadcast hands doc to every registered extension.
func (d *Dispatcher) Broadcast(doc *core.Document) {
	d.mu.RLock()
	exts := slices.Clone(d.extensions)
	d.mu.RUnlock()

	for _, ext := range exts {
		ext.SetDocument(doc)
	}
}

// ActiveTool returns the name of the active tool, or "".
func (d *Dispatcher) ActiveTool() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.active
}

// ToolWidget returns the widget of the active tool.
func (d *Dispatcher) ToolWidget() any {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, t := range d.tools {
		if t.Name() == d.active {
			return t.Widget()
		}
	}
	return nil
}

// Tools returns tool names in registration order.
func (d *Dispatcher) Tools() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, len(d.tools))
	for i, t := range d.tools {
		names[i] = t.Name()
	}
	return names
}

// EnabledScenes returns the names of enabled scenes.
func (d *Dispatcher) EnabledScenes() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var names []string
	for _, s := range d.scenes {
		if s.Enabled() {
			names = append(names, s.Name())
		}
	}
	return names
}

// Extensions returns extension names in registration order.
func (d *Dispatcher) Extensions() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, len(d.extensions))
	for i, e := range d.extensions {
		names[i] = e.Name()
	}
	return names
}

// MenuEntries collects extension menu contributions, ordered by path and
// then by descending priority.
func (d *Dispatcher) MenuEntries() []MenuEntry {
	d.mu.RLock()
	exts := slices.Clone(d.extensions)
	d.mu.RUnlock()

	var entries []MenuEntry
	for _, ext := range exts {
		entries = append(entries, ext.MenuEntries()...)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		pi, pj := strings.Join(entries[i].Path, "/"), strings.Join(entries[j].Path, "/")
		if pi != pj {
			return pi < pj
		}
		return entries[i].Priority > entries[j].Priority
	})
	return entries
}

func (d *Dispatcher) post(fn func()) {
	d.mu.RLock()
	host := d.host
	d.mu.RUnlock()

	if host == nil {
		fn()
		return
	}
	if !host.Post(fn) {
		d.logger.Debug("plugin request dropped, session closed")
	}
}

type emitter struct {
	d   *Dispatcher
	ext Extension
}

func (e *emitter) DocumentReady() {
	e.d.post(func() {
		if h := e.d.currentHost(); h != nil {
			h.DocumentReady(e.ext)
		}
	})
}

func (e *emitter) FormatsReady() {
	e.d.post(func() {
		if h := e.d.currentHost(); h != nil {
			h.FormatsReady(e.ext)
		}
	})
}

func (e *emitter) RequestTool(name string) {
	e.d.post(func() { e.d.ActivateTool(name) })
}

func (e *emitter) RequestDisplayTypes(names ...string) {
	names = slices.Clone(names)
	e.d.post(func() { e.d.SetDisplayTypes(names...) })
}

func (d *Dispatcher) currentHost() Host {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.host
}

// DispatcherState exposes internal state for observability.
type DispatcherState struct {
	ActiveTool    string   `json:"active_tool"`
	Tools         []string `json:"tools"`
	EnabledScenes []string `json:"enabled_scenes,omitempty"`
	Extensions    []string `json:"extensions,omitempty"`
}

// State implements introspection.Introspectable.
func (d *Dispatcher) State() any {
	return DispatcherState{
		ActiveTool:    d.ActiveTool(),
		Tools:         d.Tools(),
		EnabledScenes: d.EnabledScenes(),
		Extensions:    d.Extensions(),
	}
}

// ComponentType implements introspection.Component.
func (d *Dispatcher) ComponentType() string {
	return "dispatcher"
}

var _ introspection.Introspectable = (*Dispatcher)(nil)
var _ introspection.Component = (*Dispatcher)(nil)
