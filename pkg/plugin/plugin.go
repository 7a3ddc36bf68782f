// Package plugin defines the capability contracts the session needs from
// tool, scene and extension plugins, and the dispatcher that wires them to
// the document session. Plugins are instantiated by an external loader.
package plugin

import "github.com/aretw0/molstage/pkg/core"

// Tool is an interaction mode (navigate, edit, measure...). Exactly one tool
// is active at a time; the dispatcher enforces it.
type Tool interface {
	Name() string
	// SetActive is called by the dispatcher's single-select group.
	SetActive(active bool)
	// Widget returns the tool's settings panel, or nil.
	Widget() any
}

// Scene is a display type. Any subset may be enabled.
type Scene interface {
	Name() string
	Enabled() bool
	SetEnabled(enabled bool)
}

// MenuEntry is a menu contribution of an extension.
type MenuEntry struct {
	Path     []string
	Label    string
	Priority int
}

// Emitter is how an extension talks back to the session. Calls may come from
// any goroutine; they are applied on the session's control goroutine.
type Emitter interface {
	// DocumentReady asks the session to pull a document via ProduceDocument.
	DocumentReady()
	// FormatsReady asks the session to register FileFormats.
	FormatsReady()
	RequestTool(name string)
	RequestDisplayTypes(names ...string)
}

// Extension is a general purpose plugin.
type Extension interface {
	Name() string
	MenuEntries() []MenuEntry
	// Bind hands the extension its emitter at registration time.
	Bind(e Emitter)
	// SetDocument is called on every active document change.
	SetDocument(doc *core.Document)
	// ProduceDocument fills doc and reports whether it did.
	ProduceDocument(doc *core.Document) bool
	// FileFormats returns codecs the extension provides.
	FileFormats() []core.Codec
}

// BaseExtension provides no-op defaults. Embed it and override what the
// extension actually does.
type BaseExtension struct {
	emitter Emitter
}

func (b *BaseExtension) MenuEntries() []MenuEntry                { return nil }
func (b *BaseExtension) Bind(e Emitter)                          { b.emitter = e }
func (b *BaseExtension) SetDocument(doc *core.Document)          {}
func (b *BaseExtension) ProduceDocument(doc *core.Document) bool { return false }
func (b *BaseExtension) FileFormats() []core.Codec               { return nil }

// Emitter returns the bound emitter, or a no-op one before Bind.
func (b *BaseExtension) Emitter() Emitter {
	if b.emitter == nil {
		return nopEmitter{}
	}
	return b.emitter
}

type nopEmitter struct{}

func (nopEmitter) DocumentReady()                {}
func (nopEmitter) FormatsReady()                 {}
func (nopEmitter) RequestTool(string)            {}
func (nopEmitter) RequestDisplayTypes(...string) {}
