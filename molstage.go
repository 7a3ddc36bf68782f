package molstage

import (
	"log/slog"
	"time"

	"github.com/aretw0/molstage/internal/platform"
	"github.com/aretw0/molstage/pkg/core"
	"github.com/aretw0/molstage/pkg/formats"
	"github.com/aretw0/molstage/pkg/plugin"
	"github.com/aretw0/molstage/pkg/session"
	"github.com/aretw0/molstage/pkg/settings"
)

// --- Types ---

// Session is the document session controller.
type Session = session.Coordinator

// Job is a handle on a background read or write.
type Job = session.Job

// Document is a molecular structure plus metadata.
type Document = core.Document

// Event is a session notification.
type Event = core.Event

// Codec decodes or encodes one file format.
type Codec = core.Codec

// --- Configuration ---

// Option defines a functional option for configuring a Session.
type Option = platform.Option

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithRegistry injects a prepared format registry.
func WithRegistry(r *formats.Registry) Option {
	return platform.WithRegistry(r)
}

// WithBuiltinFormats controls registration of the reference codecs.
func WithBuiltinFormats(enabled bool) Option {
	return platform.WithBuiltinFormats(enabled)
}

// WithCodec registers an additional codec.
func WithCodec(c Codec) Option {
	return platform.WithCodec(c)
}

// WithChooser sets the format/file chooser collaborator.
func WithChooser(c core.FormatChooser) Option {
	return platform.WithChooser(c)
}

// WithPrompter sets the save/discard/cancel collaborator.
func WithPrompter(p core.Prompter) Option {
	return platform.WithPrompter(p)
}

// WithSettings injects a settings store.
func WithSettings(s settings.Store) Option {
	return platform.WithSettings(s)
}

// WithSettingsFile persists settings to path.
func WithSettingsFile(path string) Option {
	return platform.WithSettingsFile(path)
}

// WithTools registers tool plugins.
func WithTools(tools ...plugin.Tool) Option {
	return platform.WithTools(tools...)
}

// WithScenes registers scene plugins.
func WithScenes(scenes ...plugin.Scene) Option {
	return platform.WithScenes(scenes...)
}

// WithExtensions registers extension plugins.
func WithExtensions(exts ...plugin.Extension) Option {
	return platform.WithExtensions(exts...)
}

// WithQueuedFiles queues paths to open once codecs are ready.
func WithQueuedFiles(paths ...string) Option {
	return platform.WithQueuedFiles(paths...)
}

// WithQueueTimeout sets the queued-open deadline.
func WithQueueTimeout(d time.Duration) Option {
	return platform.WithQueueTimeout(d)
}

// WithProgressDelay sets how long a job runs before progress is reported.
func WithProgressDelay(d time.Duration) Option {
	return platform.WithProgressDelay(d)
}

// WithRecentCapacity sets how many recent files are kept.
func WithRecentCapacity(n int) Option {
	return platform.WithRecentCapacity(n)
}

// WithEventBuffer sets the default subscriber buffer.
func WithEventBuffer(size int) Option {
	return platform.WithEventBuffer(size)
}

// WithToolNames overrides the tools selected for empty and non-empty
// documents.
func WithToolNames(edit, navigate string) Option {
	return platform.WithToolNames(edit, navigate)
}

// --- Factory ---

// New creates a Session. Call Start before issuing commands.
func New(opts ...Option) (*Session, error) {
	return platform.New(opts...)
}

// FindSettings looks upwards from dir for a project-local settings file.
func FindSettings(dir string) (string, error) {
	return platform.FindSettings(dir)
}
