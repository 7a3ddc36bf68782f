// Package lifecycle exposes session events as a lifecycle.Source so they
// can be consumed alongside other lifecycle-managed event streams.
package lifecycle

import (
	"context"
	"slices"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/molstage/pkg/core"
)

// Subscriber is implemented by session.Coordinator.
type Subscriber interface {
	Subscribe(buffer int) (<-chan core.Event, func())
}

type sessionSource struct {
	sub    Subscriber
	buffer int
	types  []core.EventType
	out    chan lifecycle.Event
}

// NewSource creates a lifecycle.Source emitting session events. When types
// is not empty only those event types are forwarded.
func NewSource(sub Subscriber, buffer int, types ...core.EventType) lifecycle.Source {
	return &sessionSource{
		sub:    sub,
		buffer: buffer,
		types:  types,
		out:    make(chan lifecycle.Event),
	}
}

func (s *sessionSource) Events() <-chan lifecycle.Event {
	return s.out
}

// Start subscribes immediately, so no event published after Start returns
// is missed, and forwards until ctx ends or the session closes.
func (s *sessionSource) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	events, cancel := s.sub.Subscribe(s.buffer)

	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(s.out)
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return nil
			case e, ok := <-events:
				if !ok {
					return nil
				}
				if len(s.types) > 0 && !slices.Contains(s.types, e.Type) {
					continue
				}
				// core.Event implements lifecycle.Event (has String())
				select {
				case s.out <- e:
				case <-ctx.Done():
					return nil
				}
			}
		}
	})
	return nil
}
