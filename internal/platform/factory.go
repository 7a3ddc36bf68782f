package platform

import (
	"fmt"
	"log/slog"

	"github.com/aretw0/molstage/pkg/formats"
	"github.com/aretw0/molstage/pkg/plugin"
	"github.com/aretw0/molstage/pkg/session"
	"github.com/aretw0/molstage/pkg/settings"
)

// New wires a session coordinator from options. The coordinator is not
// started.
//
//	s, err := molstage.New(molstage.WithSettingsFile(path), molstage.WithPrompter(p))
func New(opts ...Option) (*session.Coordinator, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	registry := o.registry
	if registry == nil {
		registry = formats.NewRegistry(formats.Config{Logger: logger, Chooser: o.chooser})
	} else if o.chooser != nil {
		registry.SetChooser(o.chooser)
	}
	if o.builtins {
		for _, c := range formats.DefaultFormats() {
			if _, exists := registry.ByIdentifier(c.Identifier()); exists {
				continue
			}
			if err := registry.Register(c); err != nil {
				return nil, fmt.Errorf("failed to register built-in format: %w", err)
			}
		}
	}
	for _, c := range o.codecs {
		if err := registry.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register codec: %w", err)
		}
	}

	store := o.store
	if store == nil {
		if o.settingsPath != "" {
			store = settings.NewFileStore(o.settingsPath)
		} else {
			store = settings.NewMemoryStore()
		}
	}

	dispatcher := plugin.NewDispatcher(logger)
	for _, t := range o.tools {
		if err := dispatcher.RegisterTool(t); err != nil {
			return nil, err
		}
	}
	for _, s := range o.scenes {
		if err := dispatcher.RegisterScene(s); err != nil {
			return nil, err
		}
	}
	for _, e := range o.extensions {
		if err := dispatcher.RegisterExtension(e); err != nil {
			return nil, err
		}
	}

	return session.New(session.Config{
		Logger:         logger,
		Registry:       registry,
		Dispatcher:     dispatcher,
		Settings:       store,
		Prompter:       o.prompter,
		QueuedFiles:    o.queued,
		QueueTimeout:   o.queueTimeout,
		ProgressDelay:  o.progressDelay,
		RecentCapacity: o.recentCapacity,
		EventBuffer:    o.eventBuffer,
		EditTool:       o.editTool,
		NavigateTool:   o.navigateTool,
	}), nil
}
