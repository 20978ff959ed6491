package port

import (
	"context"

	"gereca/internal/service/reservation/domain"
)

// HoldNotifier publishes hold lifecycle events for downstream consumers
// (push gateway, mail, dashboards).
type HoldNotifier interface {
	PublishHoldEvent(ctx context.Context, event domain.HoldEvent) error
}
