package session

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/aretw0/molstage/pkg/core"
)

// resolve picks the codec for path. A non-empty codecID bypasses the
// registry lookup by path but must still support caps.
func (c *Coordinator) resolve(path, codecID string, caps core.Capability) (core.Codec, error) {
	if path == "" {
		return nil, &core.ResolutionError{Err: core.ErrEmptyPath}
	}
	if codecID == "" {
		return c.registry.ResolvePath(path, caps)
	}
	codec, ok := c.registry.ByIdentifier(codecID)
	if !ok {
		return nil, &core.ResolutionError{Path: path, Err: fmt.Errorf("%w: unknown format %q", core.ErrNoCodec, codecID)}
	}
	if !codec.Capabilities().Has(caps) {
		return nil, &core.ResolutionError{Path: path, Err: fmt.Errorf("%w: %s does not support %s", core.ErrNoCodec, codecID, caps)}
	}
	return codec, nil
}

func (c *Coordinator) worker(kind core.JobKind) (*ioWorker, error) {
	if w := c.workers[kind]; w != nil {
		return w, nil
	}
	w := newIOWorker(kind, c.logger)
	if err := w.Start(c.runCtx); err != nil {
		return nil, fmt.Errorf("failed to start %s worker: %w", kind, err)
	}
	c.workers[kind] = w
	return w, nil
}

func (c *Coordinator) slot(kind core.JobKind) **Job {
	if kind == core.JobWrite {
		return &c.writing
	}
	return &c.reading
}

// submit hands job to the worker of its kind. A second job of the same
// kind while one is running is rejected.
func (c *Coordinator) submit(job *Job) error {
	slot := c.slot(job.kind)
	if *slot != nil {
		return fmt.Errorf("%s %q: %w", job.kind, (*slot).path, core.ErrJobBusy)
	}
	w, err := c.worker(job.kind)
	if err != nil {
		return err
	}

	job.start()
	*slot = job
	job.timer = time.AfterFunc(c.config.ProgressDelay, func() {
		select {
		case c.progress <- job:
		default:
		}
	})
	w.jobs <- job

	c.logger.Info("I/O started", "kind", job.kind, "path", job.path, "codec", job.codec.Identifier())
	c.publish(core.Event{Type: core.EventIOStarted, Kind: job.kind, JobID: job.id, Path: job.path})
	return nil
}

// submitRead resolves a reader, passes the gate and starts the read.
// Resolution comes first so an unreadable path never prompts.
func (c *Coordinator) submitRead(ctx context.Context, path, codecID string) (*Job, error) {
	if c.reading != nil {
		return nil, fmt.Errorf("read %q: %w", c.reading.path, core.ErrJobBusy)
	}
	codec, err := c.resolve(path, codecID, core.CapRead|core.CapFile)
	if err != nil {
		return nil, err
	}
	if err := c.gate(ctx); err != nil {
		return nil, err
	}
	return c.startRead(path, codec)
}

func (c *Coordinator) startRead(path string, codec core.Codec) (*Job, error) {
	path = absPath(path)
	target := core.NewDocument()
	target.SetFileName(path)
	job := newJob(core.JobRead, path, codec.NewInstance(), target)
	if err := c.submit(job); err != nil {
		return nil, err
	}
	return job, nil
}

// submitWrite encodes a snapshot of doc. In sync mode it first waits for
// any write in flight, then for its own job, and returns the outcome.
func (c *Coordinator) submitWrite(ctx context.Context, doc *core.Document, path string, codec core.Codec, async bool) (*Job, error) {
	if async && c.writing != nil {
		return nil, fmt.Errorf("write %q: %w", c.writing.path, core.ErrJobBusy)
	}
	if !async {
		if err := c.await(ctx, func() bool { return c.writing == nil }); err != nil {
			return nil, err
		}
	}

	job := newJob(core.JobWrite, absPath(path), codec.NewInstance(), doc.Clone())
	job.sourceID = doc.ID
	job.revision = c.revision
	if err := c.submit(job); err != nil {
		return nil, err
	}
	if async {
		return job, nil
	}

	if err := c.await(ctx, func() bool { return !job.running() }); err != nil {
		job.Cancel()
		return job, err
	}
	return job, job.result.Err
}

func (c *Coordinator) finishRead(job *Job) {
	c.reading = nil
	result := Result{Kind: job.kind, Path: job.path}

	switch {
	case job.Cancelled():
		c.logger.Info("read cancelled", "path", job.path)
		result.Err = core.ErrCancelled
		c.completed(job, JobCancelled, result)

	case job.err != nil:
		result.Err = &core.IOError{Kind: job.kind, Path: job.path, Codec: job.codec.Identifier(), Err: job.err}
		job.doc = nil
		c.logger.Warn("read failed", "path", job.path, "error", job.err)
		if job.queued {
			c.publish(core.Event{Type: core.EventOpenFailed, Path: job.path, Error: result.Message()})
		}
		c.completed(job, JobFailed, result)

	default:
		doc := job.doc
		doc.SetFileName(job.path)
		result.OK = true
		result.Document = doc
		c.logger.Info("document loaded", "path", job.path, "atoms", doc.AtomCount(), "bonds", doc.BondCount())
		// The file was read either way; only an activated one is remembered.
		if err := c.setActive(c.runCtx, doc); err != nil {
			c.logger.Info("loaded document not activated", "path", job.path, "error", err)
		} else {
			c.lastOpenDir = filepath.Dir(job.path)
			c.record(job.path)
		}
		c.completed(job, JobSucceeded, result)
	}

	c.drainQueue()
}

func (c *Coordinator) finishWrite(job *Job) {
	c.writing = nil
	result := Result{Kind: job.kind, Path: job.path, Document: job.doc}

	switch {
	case job.Cancelled():
		c.logger.Info("write cancelled", "path", job.path)
		result.Err = core.ErrCancelled
		c.completed(job, JobCancelled, result)

	case job.err != nil:
		result.Err = &core.IOError{Kind: job.kind, Path: job.path, Codec: job.codec.Identifier(), Err: job.err}
		c.logger.Warn("write failed", "path", job.path, "error", job.err)
		c.completed(job, JobFailed, result)

	default:
		if doc, ok := c.collection.Get(job.sourceID); ok {
			doc.SetFileName(job.path)
		}
		c.lastSaveDir = filepath.Dir(job.path)
		// Edits made while an async write ran are not in the file.
		if c.active != nil && c.active.ID == job.sourceID && c.revision == job.revision {
			c.setDirty(false)
		}
		result.OK = true
		c.logger.Info("file written", "path", job.path)
		c.completed(job, JobSucceeded, result)
	}
}

// completed publishes IO_COMPLETED and releases waiters on job.
func (c *Coordinator) completed(job *Job, state JobState, result Result) {
	c.publish(core.Event{
		Type:  core.EventIOCompleted,
		Kind:  job.kind,
		JobID: job.id,
		Path:  job.path,
		OK:    result.OK,
		Error: result.Message(),
	})
	c.syncState()
	job.finish(state, result)
}

func (c *Coordinator) reportProgress(job *Job) {
	if !job.running() || *c.slot(job.kind) != job {
		return
	}
	c.publish(core.Event{Type: core.EventIOProgress, Kind: job.kind, JobID: job.id, Path: job.path})
}

// abandon finishes a job whose completion will never be processed.
func (c *Coordinator) abandon(job *Job) {
	if job == nil || !job.running() {
		return
	}
	job.Cancel()
	c.logger.Debug("job abandoned", "kind", job.kind, "path", job.path)
	job.finish(JobCancelled, Result{Kind: job.kind, Path: job.path, Err: core.ErrCancelled})
}

// absPath makes path absolute; a path that cannot be resolved is kept.
func absPath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

func (c *Coordinator) record(path string) {
	if c.recent.Record(path) {
		c.publish(core.Event{Type: core.EventRecentChanged, Path: path})
	}
}
