package session

import (
	"github.com/aretw0/introspection"
	"github.com/aretw0/lifecycle/pkg/core/worker"
)

// CoordinatorState exposes internal state for observability.
type CoordinatorState struct {
	Running        bool                    `json:"running"`
	ActiveDocument string                  `json:"active_document,omitempty"`
	FileName       string                  `json:"file_name,omitempty"`
	Atoms          int                     `json:"atoms"`
	Bonds          int                     `json:"bonds"`
	Dirty          bool                    `json:"dirty"`
	Documents      int                     `json:"documents"`
	Reading        string                  `json:"reading,omitempty"`
	Writing        string                  `json:"writing,omitempty"`
	Queued         []string                `json:"queued,omitempty"`
	Recent         []string                `json:"recent,omitempty"`
	Workers        map[string]worker.State `json:"workers,omitempty"`
}

// syncState refreshes the mirror read by State. Control goroutine only.
func (c *Coordinator) syncState() {
	s := CoordinatorState{
		Running:   c.started.Load() && !c.quit,
		Dirty:     c.dirty,
		Documents: c.collection.Len(),
		Queued:    append([]string(nil), c.queue...),
		Recent:    c.recent.List(),
	}
	if c.active != nil {
		s.ActiveDocument = c.active.ID
		s.FileName = c.active.FileName()
		s.Atoms = c.active.AtomCount()
		s.Bonds = c.active.BondCount()
	}
	if c.reading != nil {
		s.Reading = c.reading.path
	}
	if c.writing != nil {
		s.Writing = c.writing.path
	}
	if len(c.workers) > 0 {
		s.Workers = make(map[string]worker.State, len(c.workers))
		for kind, w := range c.workers {
			s.Workers[string(kind)] = w.State()
		}
	}

	c.stateMu.Lock()
	c.state = s
	c.stateMu.Unlock()
}

// State implements introspection.Introspectable.
func (c *Coordinator) State() any {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

// ComponentType implements introspection.Component.
func (c *Coordinator) ComponentType() string {
	return "session"
}

var _ introspection.Introspectable = (*Coordinator)(nil)
var _ introspection.Component = (*Coordinator)(nil)
