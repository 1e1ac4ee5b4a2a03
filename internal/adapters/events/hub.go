package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/samirrijal/campfinder/internal/core/domain"
)

const defaultBuffer = 64

// Hub is an in-process event bus used when no NATS server is configured.
// Each subscriber gets a buffered queue; a full queue drops the event for
// that subscriber only, so publishers never block.
type Hub struct {
	mu     sync.RWMutex
	subs   map[int]chan domain.Event
	nextID int
	buffer int
}

// NewHub creates a Hub with the given per-subscriber buffer size.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	return &Hub{subs: make(map[int]chan domain.Event), buffer: buffer}
}

// Publish implements ports.EventPublisher.
func (h *Hub) Publish(ctx context.Context, ev domain.Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, ch := range h.subs {
		select {
		case ch <- ev:
		default:
			slog.WarnContext(ctx, "event subscriber lagging, dropping event", "subscriber", id, "type", ev.Type)
		}
	}
	return nil
}

// Subscribe implements ports.EventSubscriber. handler runs on a dedicated
// goroutine until cancel is called or ctx is done.
func (h *Hub) Subscribe(ctx context.Context, handler func(ctx context.Context, ev domain.Event)) (func(), error) {
	ch := make(chan domain.Event, h.buffer)

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = ch
	h.mu.Unlock()

	stop := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(stop)
		})
	}

	go func() {
		for {
			select {
			case ev := <-ch:
				handler(ctx, ev)
			case <-stop:
				return
			case <-ctx.Done():
				cancel()
				return
			}
		}
	}()
	return cancel, nil
}

// Subscribers returns the number of active subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
