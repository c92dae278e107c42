// Package audit records every tool invocation as a structured log line.
// Records are append-only and leave the process only through the logger.
package audit

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/matiasleandrokruk/metricool-mcp/internal/domain/tool"
	"github.com/matiasleandrokruk/metricool-mcp/internal/infra/eventbus"
)

// Subscriber consumes tool.invoked events and logs them.
type Subscriber struct {
	logger *slog.Logger
	seen   atomic.Int64
}

// NewSubscriber creates a Subscriber writing to logger.
func NewSubscriber(logger *slog.Logger) *Subscriber {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Subscriber{logger: logger.With("component", "audit")}
}

// Start consumes events until ctx is done or the bus closes the subscription.
// It blocks; run it in its own goroutine.
func (s *Subscriber) Start(ctx context.Context, bus eventbus.EventBus) {
	ch := bus.Subscribe(tool.TopicInvoked)
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			if inv, isInvocation := evt.Payload.(tool.InvocationEvent); isInvocation {
				s.Log(ctx, EntryFromEvent(inv))
			}
		}
	}
}

// Log writes one audit entry. Failures are logged at warn level.
func (s *Subscriber) Log(ctx context.Context, e Entry) {
	s.seen.Add(1)

	attrs := []slog.Attr{
		slog.String("invocation_id", e.ID),
		slog.String("tool", e.Tool),
		slog.String("outcome", string(e.Outcome)),
		slog.Duration("duration", e.Duration),
	}
	if e.Outcome == OutcomeSuccess {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "tool invocation", attrs...)
		return
	}
	if e.FailureKind != "" {
		attrs = append(attrs, slog.String("failure_kind", e.FailureKind))
	}
	if e.StatusCode != 0 {
		attrs = append(attrs, slog.Int("status", e.StatusCode))
	}
	if e.Cause != "" {
		attrs = append(attrs, slog.String("cause", e.Cause))
	}
	s.logger.LogAttrs(ctx, slog.LevelWarn, "tool invocation", attrs...)
}

// Seen returns how many entries were logged.
func (s *Subscriber) Seen() int64 {
	return s.seen.Load()
}
