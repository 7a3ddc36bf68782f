package session

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/aretw0/molstage/pkg/core"
)

// JobState is the lifecycle state of an I/O job.
type JobState int32

const (
	JobIdle JobState = iota
	JobRunning
	JobSucceeded
	JobFailed
	JobCancelled
)

func (s JobState) String() string {
	switch s {
	case JobRunning:
		return "running"
	case JobSucceeded:
		return "succeeded"
	case JobFailed:
		return "failed"
	case JobCancelled:
		return "cancelled"
	default:
		return "idle"
	}
}

// Result is the terminal outcome of a job.
type Result struct {
	OK   bool
	Kind core.JobKind
	Path string
	// Document is the document read, or the snapshot written. It is nil
	// when a read failed or was cancelled.
	Document *core.Document
	Err      error
}

// Message returns the human readable failure reason, or "".
func (r Result) Message() string {
	if r.Err == nil {
		return ""
	}
	var ioErr *core.IOError
	if errors.As(r.Err, &ioErr) {
		return ioErr.Message()
	}
	return r.Err.Error()
}

// Job is a single background read or write. The worker only touches doc,
// codec and err; everything else belongs to the control goroutine.
type Job struct {
	id    string
	kind  core.JobKind
	path  string
	codec core.Codec
	doc   *core.Document

	// sourceID is the collection id of the document a write snapshot was
	// taken from.
	sourceID string
	// revision is the edit counter of the source at snapshot time.
	revision uint64
	queued   bool

	state     atomic.Int32
	cancelled atomic.Bool
	err       error
	timer     *time.Timer
	result    Result
	done      chan struct{}
}

func newJob(kind core.JobKind, path string, codec core.Codec, doc *core.Document) *Job {
	return &Job{
		id:    uuid.NewString(),
		kind:  kind,
		path:  path,
		codec: codec,
		doc:   doc,
		done:  make(chan struct{}),
	}
}

// ID returns the unique job identifier carried by I/O events.
func (j *Job) ID() string { return j.id }

// Kind returns the direction of the job.
func (j *Job) Kind() core.JobKind { return j.kind }

// Path returns the file the job reads or writes.
func (j *Job) Path() string { return j.path }

// Codec returns the identifier of the codec instance the job owns.
func (j *Job) Codec() string { return j.codec.Identifier() }

// State returns the current state.
func (j *Job) State() JobState { return JobState(j.state.Load()) }

// Cancel asks for the result to be discarded. The worker is not
// interrupted; the flag is checked when it reports completion.
func (j *Job) Cancel() { j.cancelled.Store(true) }

// Cancelled reports whether Cancel was called.
func (j *Job) Cancelled() bool { return j.cancelled.Load() }

// Done is closed once the job reached a terminal state and its outcome was
// applied to the session. A job still running when the session stops is
// closed as JobCancelled.
func (j *Job) Done() <-chan struct{} { return j.done }

// Result returns the outcome. It is only meaningful after Done is closed.
func (j *Job) Result() Result {
	select {
	case <-j.done:
		return j.result
	default:
		return Result{Kind: j.kind, Path: j.path}
	}
}

func (j *Job) running() bool { return j.State() == JobRunning }

func (j *Job) start() { j.state.Store(int32(JobRunning)) }

func (j *Job) finish(state JobState, result Result) {
	if j.timer != nil {
		j.timer.Stop()
	}
	j.result = result
	j.state.Store(int32(state))
	close(j.done)
}
