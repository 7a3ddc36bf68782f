package core

import "fmt"

// JobKind is the direction of an I/O job.
type JobKind string

const (
	JobRead  JobKind = "read"
	JobWrite JobKind = "write"
)

func (k JobKind) verb() string {
	if k == JobWrite {
		return "writing"
	}
	return "reading"
}

// EventType represents the kind of notification emitted by the session.
type EventType string

const (
	EventDocumentChanged EventType = "DOCUMENT_CHANGED"
	EventIOStarted       EventType = "IO_STARTED"
	EventIOProgress      EventType = "IO_PROGRESS"
	EventIOCompleted     EventType = "IO_COMPLETED"
	EventDirtyChanged    EventType = "DIRTY_CHANGED"
	EventGateCancelled   EventType = "GATE_CANCELLED"
	EventOpenFailed      EventType = "OPEN_FAILED"
	EventRecentChanged   EventType = "RECENT_CHANGED"
	EventToolChanged     EventType = "TOOL_CHANGED"
)

// Event is a notification for the surrounding UI and observers.
// Only the fields relevant to Type are set.
type Event struct {
	Type       EventType
	Kind       JobKind
	JobID      string
	Path       string
	OK         bool
	Error      string
	Dirty      bool
	DocumentID string
	Atoms      int
	Bonds      int
	Tool       string
	Timestamp  int64 // Unix timestamp
}

// String implements lifecycle.Event.
func (e Event) String() string {
	switch e.Type {
	case EventIOStarted, EventIOProgress:
		return fmt.Sprintf("%s %s %s", e.Type, e.Kind, e.Path)
	case EventIOCompleted:
		if e.OK {
			return fmt.Sprintf("%s %s %s ok", e.Type, e.Kind, e.Path)
		}
		return fmt.Sprintf("%s %s %s failed: %s", e.Type, e.Kind, e.Path, e.Error)
	case EventDirtyChanged:
		return fmt.Sprintf("%s %t", e.Type, e.Dirty)
	case EventDocumentChanged:
		return fmt.Sprintf("%s %s (%d atoms, %d bonds)", e.Type, e.DocumentID, e.Atoms, e.Bonds)
	case EventOpenFailed:
		return fmt.Sprintf("%s %s: %s", e.Type, e.Path, e.Error)
	case EventToolChanged:
		return fmt.Sprintf("%s %s", e.Type, e.Tool)
	default:
		return string(e.Type)
	}
}
