package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/marketsync/internal/core/domain"
	"github.com/custodia-labs/marketsync/internal/core/ports/driven"
)

// Ensure EventLog implements the interface.
var _ driven.NotificationSink = (*EventLog)(nil)

// EventLog records notifications in memory.
type EventLog struct {
	mu     sync.RWMutex
	events []domain.Notification
}

// NewEventLog creates an empty event log.
func NewEventLog() *EventLog {
	return &EventLog{}
}

// Emit appends a notification.
func (l *EventLog) Emit(_ context.Context, n domain.Notification) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, n)
	return nil
}

// Events returns recorded notifications, optionally filtered by type.
func (l *EventLog) Events(types ...domain.NotificationType) []domain.Notification {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []domain.Notification
	for _, n := range l.events {
		if len(types) == 0 {
			out = append(out, n)
			continue
		}
		for _, t := range types {
			if n.Type == t {
				out = append(out, n)
				break
			}
		}
	}
	return out
}
