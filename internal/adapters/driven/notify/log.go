// Package notify provides notification sinks for cycle events.
package notify

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/custodia-labs/marketsync/internal/core/domain"
	"github.com/custodia-labs/marketsync/internal/core/ports/driven"
	"github.com/custodia-labs/marketsync/internal/logger"
)

// Ensure LogSink implements the interface.
var _ driven.NotificationSink = (*LogSink)(nil)

// LogSink writes notifications as structured log events.
type LogSink struct {
	log *zerolog.Logger
}

// NewLogSink creates a sink writing to l. A nil logger uses the
// application logger at the time of each event.
func NewLogSink(l *zerolog.Logger) *LogSink {
	return &LogSink{log: l}
}

// Emit logs the notification at a level matching its severity.
func (s *LogSink) Emit(_ context.Context, n domain.Notification) error {
	l := s.log
	if l == nil {
		l = logger.Logger()
	}

	var ev *zerolog.Event
	switch n.Severity {
	case domain.SeverityError:
		ev = l.Error()
	case domain.SeverityWarning:
		ev = l.Warn()
	default:
		ev = l.Info()
	}

	ev = ev.Str("event", string(n.Type)).Str("severity", string(n.Severity))
	if n.Message != "" {
		ev = ev.Str("detail", n.Message)
	}
	if len(n.Payload) > 0 {
		ev = ev.Fields(n.Payload)
	}
	if !n.CreatedAt.IsZero() {
		ev = ev.Time("emitted_at", n.CreatedAt)
	}
	ev.Msg(n.Title)
	return nil
}
