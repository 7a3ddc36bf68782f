package session

import (
	"log/slog"
	"sync"

	"github.com/aretw0/molstage/pkg/core"
)

// DefaultEventBuffer is the subscriber channel capacity used when none is
// given.
const DefaultEventBuffer = 100

// broker fans events out to subscribers. Publishing never blocks the
// control goroutine: a full subscriber loses the event.
type broker struct {
	mu     sync.Mutex
	subs   map[int]chan core.Event
	next   int
	closed bool
	buffer int
	logger *slog.Logger
}

func newBroker(logger *slog.Logger, buffer int) *broker {
	if buffer <= 0 {
		buffer = DefaultEventBuffer
	}
	return &broker{subs: make(map[int]chan core.Event), buffer: buffer, logger: logger}
}

func (b *broker) subscribe(buffer int) (<-chan core.Event, func()) {
	if buffer <= 0 {
		buffer = b.buffer
	}
	ch := make(chan core.Event, buffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch, func() {}
	}

	id := b.next
	b.next++
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}
}

func (b *broker) publish(e core.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
			b.logger.Warn("subscriber full, dropping event", "type", e.Type)
		}
	}
}

func (b *broker) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
