package natsadapter

import (
	"context"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/campfinder/internal/core/domain"
)

// Subscriber implements ports.EventSubscriber on a core NATS subscription.
// Every subscriber sees every event; there is no queue group.
type Subscriber struct {
	conn *nats.Conn
}

// NewSubscriber creates a subscriber sharing conn.
func NewSubscriber(conn *nats.Conn) *Subscriber {
	return &Subscriber{conn: conn}
}

// Subscribe delivers decoded events to handler until cancel is called.
func (s *Subscriber) Subscribe(ctx context.Context, handler func(ctx context.Context, ev domain.Event)) (func(), error) {
	sub, err := s.conn.Subscribe(SubjectPrefix+">", func(msg *nats.Msg) {
		ev, err := decodeEvent(msg.Subject, msg.Data)
		if err != nil {
			slog.Warn("dropping undecodable event", "subject", msg.Subject, "error", err)
			return
		}
		handler(ctx, ev)
	})
	if err != nil {
		return nil, err
	}
	return func() { _ = sub.Unsubscribe() }, nil
}
