package session

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/aretw0/molstage/pkg/core"
)

// Commands below may be called from any goroutine except the control
// goroutine itself: plugin and observer callbacks must use an Emitter or
// Post instead.

// NewDocument replaces the active document with an empty one.
func (c *Coordinator) NewDocument(ctx context.Context) error {
	var err error
	if callErr := c.call(ctx, func() { err = c.setActive(ctx, core.NewDocument()) }); callErr != nil {
		return callErr
	}
	return err
}

// OpenPath starts reading path in the background. codecID forces a
// format; empty resolves it from the path. The returned job completes
// asynchronously; resolution, gate and busy errors are returned at once.
func (c *Coordinator) OpenPath(ctx context.Context, path, codecID string) (*Job, error) {
	var (
		job *Job
		err error
	)
	if callErr := c.call(ctx, func() { job, err = c.submitRead(ctx, path, codecID) }); callErr != nil {
		return nil, callErr
	}
	return job, err
}

// OpenRecent opens the i-th recent file, newest first.
func (c *Coordinator) OpenRecent(ctx context.Context, i int) (*Job, error) {
	path, ok := c.recent.At(i)
	if !ok {
		return nil, fmt.Errorf("no recent file at position %d", i)
	}
	return c.OpenPath(ctx, path, "")
}

// ImportViaDialog asks the chooser for a file and format, then opens it.
func (c *Coordinator) ImportViaDialog(ctx context.Context) (*Job, error) {
	var (
		job *Job
		err error
	)
	callErr := c.call(ctx, func() {
		if c.reading != nil {
			err = fmt.Errorf("read %q: %w", c.reading.path, core.ErrJobBusy)
			return
		}
		if err = c.gate(ctx); err != nil {
			return
		}
		var (
			codec core.Codec
			path  string
		)
		codec, path, err = c.registry.ResolveInteractive(core.IntentRead, c.lastOpenDir)
		if err != nil {
			return
		}
		c.lastOpenDir = filepath.Dir(absPath(path))
		job, err = c.startRead(path, codec)
	})
	if callErr != nil {
		return nil, callErr
	}
	return job, err
}

// Save writes the active document to its fileName. Without one, or when
// no writer matches it, the chooser is asked like SaveAs. With async false
// the call returns once the file is written.
func (c *Coordinator) Save(ctx context.Context, async bool) (*Job, error) {
	var (
		job *Job
		err error
	)
	if callErr := c.call(ctx, func() { job, err = c.save(ctx, async) }); callErr != nil {
		return nil, callErr
	}
	return job, err
}

func (c *Coordinator) save(ctx context.Context, async bool) (*Job, error) {
	if c.active == nil {
		return nil, core.ErrNoDocument
	}
	path := c.active.FileName()
	if path == "" {
		return c.saveAs(ctx, "", "", async)
	}
	codec, err := c.resolve(path, "", core.CapWrite|core.CapFile)
	if err != nil {
		c.logger.Debug("no writer for current file, asking", "path", path, "error", err)
		return c.saveAs(ctx, "", "", async)
	}
	return c.submitWrite(ctx, c.active, path, codec, async)
}

// SaveAs writes the active document to path. An empty path asks the
// chooser; codecID forces a format.
func (c *Coordinator) SaveAs(ctx context.Context, path, codecID string, async bool) (*Job, error) {
	var (
		job *Job
		err error
	)
	if callErr := c.call(ctx, func() { job, err = c.saveAs(ctx, path, codecID, async) }); callErr != nil {
		return nil, callErr
	}
	return job, err
}

// ExportViaDialog asks the chooser for any writable format and path.
func (c *Coordinator) ExportViaDialog(ctx context.Context, async bool) (*Job, error) {
	return c.SaveAs(ctx, "", "", async)
}

func (c *Coordinator) saveAs(ctx context.Context, path, codecID string, async bool) (*Job, error) {
	if c.active == nil {
		return nil, core.ErrNoDocument
	}
	if async && c.writing != nil {
		return nil, fmt.Errorf("write %q: %w", c.writing.path, core.ErrJobBusy)
	}

	var (
		codec core.Codec
		err   error
	)
	if path == "" {
		codec, path, err = c.registry.ResolveInteractive(core.IntentWrite, c.lastSaveDir)
	} else {
		codec, err = c.resolve(path, codecID, core.CapWrite|core.CapFile)
	}
	if err != nil {
		return nil, err
	}
	return c.submitWrite(ctx, c.active, path, codec, async)
}

// CloseRequested runs the dirty gate for an application close and persists
// settings when it passes. It reports whether the close may proceed.
func (c *Coordinator) CloseRequested(ctx context.Context) (bool, error) {
	var gateErr, persistErr error
	if callErr := c.call(ctx, func() {
		if gateErr = c.gate(ctx); gateErr != nil {
			return
		}
		persistErr = c.persist()
	}); callErr != nil {
		return false, callErr
	}
	if gateErr != nil {
		return false, gateErr
	}
	return true, persistErr
}

// ActivateDocument makes a document of the collection active again.
func (c *Coordinator) ActivateDocument(ctx context.Context, id string) error {
	var err error
	callErr := c.call(ctx, func() {
		doc, ok := c.collection.Get(id)
		if !ok {
			err = fmt.Errorf("document %q: %w", id, core.ErrNoDocument)
			return
		}
		err = c.setActive(ctx, doc)
	})
	if callErr != nil {
		return callErr
	}
	return err
}

// Edit runs fn against the active document on the control goroutine.
// Structural changes mark the session dirty.
func (c *Coordinator) Edit(ctx context.Context, fn func(doc *core.Document)) error {
	var err error
	callErr := c.call(ctx, func() {
		if c.active == nil {
			err = core.ErrNoDocument
			return
		}
		fn(c.active)
	})
	if callErr != nil {
		return callErr
	}
	return err
}

// Snapshot returns a copy of the active document, identifier included.
func (c *Coordinator) Snapshot(ctx context.Context) (*core.Document, error) {
	var (
		doc *core.Document
		err error
	)
	callErr := c.call(ctx, func() {
		if c.active == nil {
			err = core.ErrNoDocument
			return
		}
		doc = c.active.Clone()
		doc.ID = c.active.ID
	})
	if callErr != nil {
		return nil, callErr
	}
	return doc, err
}

// QueueFiles appends paths to the queued-open list and drains it. While a
// read runs they wait behind it instead of failing as busy. They share the
// queue deadline.
func (c *Coordinator) QueueFiles(ctx context.Context, paths ...string) error {
	return c.call(ctx, func() {
		if len(paths) == 0 {
			return
		}
		c.queue = append(c.queue, paths...)
		if c.queueTimer == nil {
			c.queueTimer = time.NewTimer(c.config.QueueTimeout)
		}
		c.drainQueue()
	})
}

// DrainQueue opens queued startup files that can be resolved now.
func (c *Coordinator) DrainQueue(ctx context.Context) error {
	return c.call(ctx, c.drainQueue)
}

// RegisterCodec adds a codec to the registry.
func (c *Coordinator) RegisterCodec(codec core.Codec) error {
	return c.registry.Register(codec)
}

// IsDirty reports whether the active document has unsaved changes.
func (c *Coordinator) IsDirty() bool { return c.dirtyFlag.Load() }

// ClearRecent forgets every recent file.
func (c *Coordinator) ClearRecent(ctx context.Context) error {
	return c.call(ctx, func() {
		if c.recent.Len() == 0 {
			return
		}
		c.recent.Clear()
		c.publish(core.Event{Type: core.EventRecentChanged})
	})
}

// RecentFiles returns recently opened paths, newest first.
func (c *Coordinator) RecentFiles() []string { return c.recent.List() }

// Documents returns the identifiers of every document in the collection.
func (c *Coordinator) Documents() []string { return c.collection.IDs() }
