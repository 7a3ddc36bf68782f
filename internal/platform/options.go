package platform

import (
	"log/slog"
	"time"

	"github.com/aretw0/molstage/pkg/core"
	"github.com/aretw0/molstage/pkg/formats"
	"github.com/aretw0/molstage/pkg/plugin"
	"github.com/aretw0/molstage/pkg/settings"
)

// options holds the internal configuration for a molstage session.
type options struct {
	logger         *slog.Logger
	registry       *formats.Registry
	builtins       bool
	codecs         []core.Codec
	chooser        core.FormatChooser
	prompter       core.Prompter
	store          settings.Store
	settingsPath   string
	tools          []plugin.Tool
	scenes         []plugin.Scene
	extensions     []plugin.Extension
	queued         []string
	queueTimeout   time.Duration
	progressDelay  time.Duration
	recentCapacity int
	eventBuffer    int
	editTool       string
	navigateTool   string
}

// Option defines a functional option for configuring a session.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{
		builtins: true,
	}
}

// WithLogger sets the logger shared by every component.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRegistry injects a prepared format registry. Built-in formats are
// still added unless WithBuiltinFormats(false) is given.
func WithRegistry(r *formats.Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

// WithBuiltinFormats controls registration of the reference codecs
// (cml, cjson, xyz, yaml). Enabled by default.
func WithBuiltinFormats(enabled bool) Option {
	return func(o *options) {
		o.builtins = enabled
	}
}

// WithCodec registers an additional codec.
func WithCodec(c core.Codec) Option {
	return func(o *options) {
		o.codecs = append(o.codecs, c)
	}
}

// WithChooser sets the collaborator asked when a format or file must be
// picked by a human.
func WithChooser(c core.FormatChooser) Option {
	return func(o *options) {
		o.chooser = c
	}
}

// WithPrompter sets the save/discard/cancel collaborator. Without one a
// modified document is never replaced.
func WithPrompter(p core.Prompter) Option {
	return func(o *options) {
		o.prompter = p
	}
}

// WithSettings injects a settings store. It takes precedence over
// WithSettingsFile.
func WithSettings(s settings.Store) Option {
	return func(o *options) {
		o.store = s
	}
}

// WithSettingsFile persists settings to path through viper. Without it
// settings are kept in memory.
func WithSettingsFile(path string) Option {
	return func(o *options) {
		o.settingsPath = path
	}
}

// WithTools registers tool plugins. The first one starts active.
func WithTools(tools ...plugin.Tool) Option {
	return func(o *options) {
		o.tools = append(o.tools, tools...)
	}
}

// WithScenes registers scene plugins.
func WithScenes(scenes ...plugin.Scene) Option {
	return func(o *options) {
		o.scenes = append(o.scenes, scenes...)
	}
}

// WithExtensions registers extension plugins.
func WithExtensions(exts ...plugin.Extension) Option {
	return func(o *options) {
		o.extensions = append(o.extensions, exts...)
	}
}

// WithQueuedFiles queues paths to open once codecs are ready.
func WithQueuedFiles(paths ...string) Option {
	return func(o *options) {
		o.queued = append(o.queued, paths...)
	}
}

// WithQueueTimeout sets the queued-open deadline. Zero means default (5s).
func WithQueueTimeout(d time.Duration) Option {
	return func(o *options) {
		o.queueTimeout = d
	}
}

// WithProgressDelay sets how long a job runs before IO_PROGRESS is sent.
// Zero means default (750ms).
func WithProgressDelay(d time.Duration) Option {
	return func(o *options) {
		o.progressDelay = d
	}
}

// WithRecentCapacity sets how many recent files are kept. Zero means
// default (10).
func WithRecentCapacity(n int) Option {
	return func(o *options) {
		o.recentCapacity = n
	}
}

// WithEventBuffer sets the default subscriber buffer.
// Zero means default (100).
func WithEventBuffer(size int) Option {
	return func(o *options) {
		o.eventBuffer = size
	}
}

// WithToolNames overrides the tools selected for empty and non-empty
// documents.
func WithToolNames(edit, navigate string) Option {
	return func(o *options) {
		o.editTool = edit
		o.navigateTool = navigate
	}
}
