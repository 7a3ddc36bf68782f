package session

import (
	"context"
	"fmt"

	"github.com/aretw0/molstage/pkg/core"
)

// setActive makes doc the active document. It is a no-op for nil or the
// document already active; otherwise the dirty gate runs first and a
// declined gate leaves everything untouched.
func (c *Coordinator) setActive(ctx context.Context, doc *core.Document) error {
	if doc == nil || doc == c.active {
		return nil
	}
	if c.active != nil && doc.ID != "" && doc.ID == c.active.ID {
		return nil
	}

	if err := c.gate(ctx); err != nil {
		return err
	}

	if c.active != nil {
		c.collection.Add(c.active)
	}
	c.collection.Add(doc)

	if c.unsubscribe != nil {
		c.unsubscribe()
	}
	c.active = doc
	c.unsubscribe = doc.OnChange(c.contentChanged)

	tool := c.config.NavigateTool
	if doc.AtomCount() == 0 {
		tool = c.config.EditTool
	}
	c.dispatcher.ActivateTool(tool)
	c.dispatcher.Broadcast(doc)

	c.logger.Debug("document activated", "id", doc.ID, "file", doc.FileName(), "atoms", doc.AtomCount())
	c.publish(core.Event{
		Type:       core.EventDocumentChanged,
		DocumentID: doc.ID,
		Path:       doc.FileName(),
		Atoms:      doc.AtomCount(),
		Bonds:      doc.BondCount(),
	})
	c.setDirty(false)
	return nil
}

func (c *Coordinator) contentChanged(core.ChangeKind) {
	c.revision++
	c.setDirty(true)
}

func (c *Coordinator) setDirty(dirty bool) {
	if c.dirty == dirty {
		return
	}
	c.dirty = dirty
	c.dirtyFlag.Store(dirty)
	c.publish(core.Event{Type: core.EventDirtyChanged, Dirty: dirty})
}

// gate guards every replacement or close of a modified document.
func (c *Coordinator) gate(ctx context.Context) error {
	if !c.dirty || c.active == nil {
		return nil
	}

	choice := core.GateCancel
	if c.config.Prompter != nil {
		choice = c.config.Prompter.ConfirmDiscard(c.active)
	}
	c.logger.Debug("dirty gate", "choice", choice, "file", c.active.FileName())

	switch choice {
	case core.GateSave:
		if _, err := c.save(ctx, false); err != nil {
			return fmt.Errorf("save before discard failed: %w", err)
		}
		return nil
	case core.GateDiscard:
		c.setDirty(false)
		return nil
	default:
		c.publish(core.Event{Type: core.EventGateCancelled, DocumentID: c.active.ID, Path: c.active.FileName()})
		return core.ErrGateCancelled
	}
}
