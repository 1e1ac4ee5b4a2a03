package natsadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/campfinder/internal/core/domain"
)

// SubjectPrefix is the subject namespace of view-layer events; the event type
// is the last token.
const SubjectPrefix = "campfinder.events."

// Subject returns the subject an event of type t is published on.
func Subject(t domain.EventType) string {
	return SubjectPrefix + string(t)
}

// encodeEvent returns the subject and JSON payload for ev.
func encodeEvent(ev domain.Event) (string, []byte, error) {
	if ev.Type == "" {
		return "", nil, errors.New("event without type")
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return "", nil, fmt.Errorf("encode event: %w", err)
	}
	return Subject(ev.Type), data, nil
}

// decodeEvent parses a payload received on subject. An event without a type
// takes it from the subject's last token.
func decodeEvent(subject string, data []byte) (domain.Event, error) {
	var ev domain.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return domain.Event{}, fmt.Errorf("decode event: %w", err)
	}
	if ev.Type == "" {
		t, ok := strings.CutPrefix(subject, SubjectPrefix)
		if !ok || t == "" {
			return domain.Event{}, fmt.Errorf("decode event: no type on subject %q", subject)
		}
		ev.Type = domain.EventType(t)
	}
	return ev, nil
}

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	// Events are short-lived; the stream only bridges brief relay restarts.
	cfg := nats.StreamConfig{
		Name:      "CAMPFINDER_EVENTS",
		Subjects:  []string{SubjectPrefix + ">"},
		Retention: nats.LimitsPolicy,
		MaxAge:    15 * time.Minute,
		Storage:   nats.MemoryStorage,
	}
	if _, err := js.AddStream(&cfg); err != nil {
		// Stream may already exist; try update
		if _, err := js.UpdateStream(&cfg); err != nil {
			conn.Close()
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// Publish implements ports.EventPublisher.
func (p *Publisher) Publish(ctx context.Context, ev domain.Event) error {
	subject, data, err := encodeEvent(ev)
	if err != nil {
		return err
	}
	if _, err := p.js.Publish(subject, data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

// Conn exposes the underlying connection so a subscriber can share it.
func (p *Publisher) Conn() *nats.Conn { return p.conn }

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection.
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("campfinder"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
