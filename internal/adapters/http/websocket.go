package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/campfinder/internal/core/domain"
	"github.com/samirrijal/campfinder/internal/core/ports"
	"github.com/samirrijal/campfinder/internal/pkg/metrics"
)

// wsMessage is sent from client to narrow or widen the relayed event types.
type wsMessage struct {
	Action string   `json:"action"` // "subscribe" | "unsubscribe"
	Types  []string `json:"types"`  // event types; empty means all
}

var knownEventTypes = map[domain.EventType]bool{
	domain.EventViewChanged:    true,
	domain.EventResults:        true,
	domain.EventError:          true,
	domain.EventDetailLoading:  true,
	domain.EventDetailRendered: true,
	domain.EventDetailFailed:   true,
	domain.EventAuthRequired:   true,
}

// wsFilter tracks which event types a connection wants. An empty set
// relays everything.
type wsFilter struct {
	mu    sync.RWMutex
	types map[domain.EventType]bool
}

func (f *wsFilter) allows(t domain.EventType) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.types) == 0 || f.types[t]
}

func (f *wsFilter) add(ts []domain.EventType) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.types == nil {
		f.types = make(map[domain.EventType]bool)
	}
	for _, t := range ts {
		f.types[t] = true
	}
}

func (f *wsFilter) remove(ts []domain.EventType) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(ts) == 0 {
		f.types = nil
		return
	}
	for _, t := range ts {
		delete(f.types, t)
	}
}

// parseEventTypes validates client-supplied type names.
func parseEventTypes(raw []string) ([]domain.EventType, string) {
	out := make([]domain.EventType, 0, len(raw))
	for _, r := range raw {
		t := domain.EventType(r)
		if !knownEventTypes[t] {
			return nil, r
		}
		out = append(out, t)
	}
	return out, ""
}

// WebSocketHandler returns a handler that relays view-layer events to the
// connected client. Clients send {"action":"subscribe","types":["results"]}
// to narrow the stream; by default every event is relayed.
func WebSocketHandler(events ports.EventSubscriber) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		remoteAddr := c.RemoteAddr().String()
		slog.Info("ws client connected", "remote", remoteAddr)
		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		var mu sync.Mutex
		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		filter := &wsFilter{}
		ctx, cancelCtx := context.WithCancel(context.Background())
		defer cancelCtx()

		unsubscribe, err := events.Subscribe(ctx, func(_ context.Context, ev domain.Event) {
			if filter.allows(ev.Type) {
				_ = writeJSON(ev)
			}
		})
		if err != nil {
			slog.Warn("ws event subscribe failed", "remote", remoteAddr, "error", err)
			_ = writeJSON(map[string]string{"error": "event stream unavailable"})
			return
		}
		defer unsubscribe()

		// Keep-alive ping
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}

			types, bad := parseEventTypes(m.Types)
			if bad != "" {
				_ = writeJSON(map[string]string{"error": "unknown event type: " + bad})
				continue
			}

			switch m.Action {
			case "subscribe":
				filter.add(types)
				_ = writeJSON(map[string]interface{}{"status": "subscribed", "types": m.Types})
			case "unsubscribe":
				filter.remove(types)
				_ = writeJSON(map[string]interface{}{"status": "unsubscribed", "types": m.Types})
			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		slog.Info("ws client disconnected", "remote", remoteAddr)
	}
}
