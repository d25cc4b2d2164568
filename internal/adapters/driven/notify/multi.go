package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/marketsync/internal/core/domain"
	"github.com/custodia-labs/marketsync/internal/core/ports/driven"
)

// Ensure Multi implements the interface.
var _ driven.NotificationSink = (Multi)(nil)

// Multi fans a notification out to several sinks.
// Every sink is tried; the joined errors are returned.
type Multi []driven.NotificationSink

// NewMulti builds a fan-out sink, skipping nil sinks.
func NewMulti(sinks ...driven.NotificationSink) Multi {
	out := make(Multi, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

// Emit delivers n to every sink.
func (m Multi) Emit(ctx context.Context, n domain.Notification) error {
	var errs []error
	for i, s := range m {
		if err := s.Emit(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("sink %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
