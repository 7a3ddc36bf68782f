package session

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/aretw0/lifecycle/pkg/core/worker"

	"github.com/aretw0/molstage/pkg/core"
)

// ioWorker runs the codec of one job at a time for a single direction.
// It is started lazily and reused across jobs. Jobs arrive on a
// capacity-1 channel and leave on a capacity-1 completion channel read
// only by the control goroutine.
type ioWorker struct {
	*worker.BaseWorker
	kind    core.JobKind
	jobs    chan *Job
	results chan *Job
	logger  *slog.Logger
	cancel  context.CancelFunc
}

func newIOWorker(kind core.JobKind, logger *slog.Logger) *ioWorker {
	return &ioWorker{
		BaseWorker: worker.NewBaseWorker(string(kind) + "-worker"),
		kind:       kind,
		jobs:       make(chan *Job, 1),
		results:    make(chan *Job, 1),
		logger:     logger,
	}
}

func (w *ioWorker) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	status := w.State().Status
	if status != worker.StatusCreated && status != worker.StatusPending {
		return fmt.Errorf("%s worker already started (status: %s)", w.kind, status)
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.SetStatus(worker.StatusRunning)
	return w.StartFunc(runCtx, w.run)
}

func (w *ioWorker) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.StopRequested = true
		w.cancel()
	}
	return w.BaseWorker.Stop(ctx)
}

func (w *ioWorker) State() worker.State {
	return w.ExportState(func(s *worker.State) {
		s.Metadata = map[string]string{
			worker.MetadataType: string(worker.TypeGoroutine),
			"direction":         string(w.kind),
		}
	})
}

func (w *ioWorker) run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case job := <-w.jobs:
			w.execute(ctx, job)
			// Never blocks: one job per direction is in flight and the
			// control goroutine drains the slot before submitting another.
			w.results <- job
		}
	}
}

// execute calls the codec. A panicking codec is reported as a failed job.
func (w *ioWorker) execute(ctx context.Context, job *Job) {
	defer func() {
		if recovered := recover(); recovered != nil {
			job.err = fmt.Errorf("codec panic: %v", recovered)

			if w.logger.Enabled(ctx, slog.LevelDebug) {
				w.logger.Error("codec panic", "job", job.id, "error", job.err, "stack", string(debug.Stack()))
			} else {
				w.logger.Error("codec panic", "job", job.id, "error", job.err)
			}
		}
	}()

	w.logger.Debug("job running", "job", job.id, "kind", job.kind, "path", job.path, "codec", job.codec.Identifier())
	if job.kind == core.JobWrite {
		job.err = job.codec.Write(job.doc, job.path)
	} else {
		job.err = job.codec.Read(job.path, job.doc)
	}
}
