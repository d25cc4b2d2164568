package driven

import (
	"context"

	"github.com/custodia-labs/marketsync/internal/core/domain"
)

// NotificationSink receives structured events after fetches, deletion
// batches and dispatcher runs. It is observational: the engine only
// depends on it for the deletion audit, which must be recorded before
// rows are removed.
type NotificationSink interface {
	Emit(ctx context.Context, n domain.Notification) error
}
