package core

import (
	"errors"
	"fmt"
	"strings"
)

// Common errors.
var (
	ErrNoCodec         = errors.New("no codec can handle this file")
	ErrAmbiguousFormat = errors.New("several codecs claim this file")
	ErrEmptyPath       = errors.New("file name is empty")
	ErrGateCancelled   = errors.New("operation cancelled at the save prompt")
	ErrCancelled       = errors.New("cancelled by user")
	ErrQueueTimeout    = errors.New("timed out waiting for a codec")
	ErrJobBusy         = errors.New("an I/O job of this kind is already running")
	ErrNoDocument      = errors.New("no active document")
	ErrClosed          = errors.New("session is closed")
)

// ResolutionError reports that no codec could be selected for a path.
// No job is started when it is returned.
type ResolutionError struct {
	Path       string
	Candidates []string
	Err        error
}

func (e *ResolutionError) Error() string {
	msg := fmt.Sprintf("cannot resolve format for %q: %v", e.Path, e.Err)
	if len(e.Candidates) > 0 {
		msg += " (" + strings.Join(e.Candidates, ", ") + ")"
	}
	return msg
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// IOError wraps a decode/encode failure reported by a codec.
type IOError struct {
	Kind  JobKind
	Path  string
	Codec string
	Err   error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("error while %s %q with %s: %v", e.Kind.verb(), e.Path, e.Codec, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// Message returns the codec supplied, human readable reason.
func (e *IOError) Message() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}
