package audit

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"
)

// NATSSink publishes events as JSON to a JetStream subject. Publish failures
// are logged and the event is dropped.
type NATSSink struct {
	conn    *nats.Conn
	js      nats.JetStreamContext
	subject string
	logger  *slog.Logger
}

func NewNATSSink(url, subject string, logger *slog.Logger, opts ...nats.Option) (*NATSSink, error) {
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, err
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, err
	}

	return &NATSSink{conn: nc, js: js, subject: subject, logger: logger}, nil
}

func (s *NATSSink) Emit(ctx context.Context, e Event) {
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	if _, err := s.js.Publish(s.subject+"."+e.EventType, data, nats.Context(ctx)); err != nil {
		s.logger.Warn("audit publish failed", "event_type", e.EventType, "error", err)
	}
}

// Close drains the connection, falling back to a hard close.
func (s *NATSSink) Close() {
	if s == nil {
		return
	}
	if err := s.conn.Drain(); err != nil {
		s.conn.Close()
	}
}
