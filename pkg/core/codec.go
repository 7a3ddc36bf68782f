package core

import "strings"

// Capability flags describe what a codec can do.
type Capability uint8

const (
	CapRead Capability = 1 << iota
	CapWrite
	CapFile
)

// Has reports whether every flag in want is set.
func (c Capability) Has(want Capability) bool { return c&want == want }

func (c Capability) String() string {
	var parts []string
	if c.Has(CapRead) {
		parts = append(parts, "read")
	}
	if c.Has(CapWrite) {
		parts = append(parts, "write")
	}
	if c.Has(CapFile) {
		parts = append(parts, "file")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// Codec decodes or encodes one file format. Codecs are treated as opaque:
// the session only needs the operations below. Instances are not shared
// between jobs; every job calls NewInstance and owns the result.
type Codec interface {
	// Identifier is the unique, stable id of the format (e.g. "cml").
	Identifier() string
	// Name is a human readable description used in dialogs.
	Name() string
	// FileExtensions lists extensions (without dot) or whole file names.
	FileExtensions() []string
	Capabilities() Capability
	// NewInstance returns a fresh codec with no shared mutable state.
	NewInstance() Codec
	// Read decodes path into doc. The error message is shown to the user.
	Read(path string, doc *Document) error
	// Write encodes doc into path.
	Write(doc *Document, path string) error
}

// Intent tells a chooser whether a file is about to be read or written.
type Intent int

const (
	IntentRead Intent = iota
	IntentWrite
)

func (i Intent) String() string {
	if i == IntentWrite {
		return "write"
	}
	return "read"
}

// FormatChooser is the human-facing collaborator asked when resolution
// cannot be decided automatically.
type FormatChooser interface {
	// ChooseFormat picks one codec among several claiming path.
	// Returning nil means the user cancelled.
	ChooseFormat(path string, candidates []Codec) Codec
	// ChooseFile asks for a path and a format, starting in defaultDir.
	// An empty path means the user cancelled.
	ChooseFile(intent Intent, defaultDir string, candidates []Codec) (Codec, string)
}

// GateChoice is the answer to the save/discard/cancel prompt.
type GateChoice int

const (
	GateCancel GateChoice = iota
	GateSave
	GateDiscard
)

func (g GateChoice) String() string {
	switch g {
	case GateSave:
		return "save"
	case GateDiscard:
		return "discard"
	default:
		return "cancel"
	}
}

// Prompter asks the user what to do with a modified document that is about
// to be replaced or closed.
type Prompter interface {
	ConfirmDiscard(doc *Document) GateChoice
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(doc *Document) GateChoice

func (f PrompterFunc) ConfirmDiscard(doc *Document) GateChoice { return f(doc) }
