// Package audit delivers security events (logins, rotations, replays,
// revocations) to a sink without blocking the request path.
package audit

import (
	"context"
	"log/slog"
	"time"
)

// Event types.
const (
	EventLoginSuccess     = "login.success"
	EventLoginFailure     = "login.failure"
	EventRegister         = "user.registered"
	EventRefreshRotated   = "refresh.rotated"
	EventReplayDetected   = "refresh.replay_detected"
	EventRevokeAll        = "refresh.revoke_all"
	EventRevokeOne        = "refresh.revoke_one"
	EventPasswordReset    = "password.reset"
	EventPasswordResetReq = "password.reset_requested"
)

type Event struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	UserID    string            `json:"user_id,omitempty"`
	IP        string            `json:"ip,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Sink receives emitted audit events.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// Emitter is what services depend on. *Dispatcher implements it.
type Emitter interface {
	Emit(ctx context.Context, event Event)
}

type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// SlogSink writes each event as a structured log line.
type SlogSink struct {
	Logger *slog.Logger
}

func (s SlogSink) Emit(ctx context.Context, e Event) {
	level := slog.LevelInfo
	if !e.Success {
		level = slog.LevelWarn
	}
	attrs := []slog.Attr{
		slog.String("event_type", e.EventType),
		slog.Time("at", e.Timestamp),
		slog.Bool("success", e.Success),
	}
	if e.UserID != "" {
		attrs = append(attrs, slog.String("user_id", e.UserID))
	}
	if e.IP != "" {
		attrs = append(attrs, slog.String("ip", e.IP))
	}
	if e.Error != "" {
		attrs = append(attrs, slog.String("error", e.Error))
	}
	for k, v := range e.Metadata {
		attrs = append(attrs, slog.String(k, v))
	}
	s.Logger.LogAttrs(ctx, level, "audit", attrs...)
}

// MultiSink fans an event out to every sink in order.
type MultiSink []Sink

func (m MultiSink) Emit(ctx context.Context, e Event) {
	for _, s := range m {
		s.Emit(ctx, e)
	}
}
