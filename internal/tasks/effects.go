package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/basket/mission-control/internal/bus"
	"github.com/basket/mission-control/internal/domain"
	"github.com/basket/mission-control/internal/persistence"
	"github.com/basket/mission-control/internal/shared"
)

// Effect is one notification to deliver after a task row has been written.
// Mutating operations return their fan-out as a list of effects so the row
// write and the delivery stay separately testable.
type Effect struct {
	AgentID   string
	TaskID    string
	MessageID string
	Content   string
	Type      domain.NotificationType
}

// Applier delivers effects: one notification row per effect plus a bus
// event. Delivery keeps going past individual failures; the errors are
// joined and returned at the end.
type Applier struct {
	store *persistence.Store
	bus   *bus.Bus
	log   *slog.Logger
}

func NewApplier(store *persistence.Store, b *bus.Bus, logger *slog.Logger) *Applier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Applier{store: store, bus: b, log: logger.With("component", "effects")}
}

func (a *Applier) Apply(ctx context.Context, effects []Effect) error {
	var errs []error
	for _, e := range effects {
		n := &domain.Notification{
			ID:        shared.NewID("NOTIF"),
			AgentID:   e.AgentID,
			MessageID: e.MessageID,
			TaskID:    e.TaskID,
			Content:   e.Content,
			Type:      e.Type,
		}
		if _, err := a.store.CreateNotification(ctx, n); err != nil {
			a.log.Error("notification delivery failed", "agent", e.AgentID, "type", e.Type, "error", err)
			errs = append(errs, fmt.Errorf("notify %s: %w", e.AgentID, err))
			continue
		}
		a.bus.Publish(bus.TopicNotificationCreated, bus.NotificationEvent{
			NotificationID: n.ID,
			AgentID:        e.AgentID,
			TaskID:         e.TaskID,
			Type:           string(e.Type),
		})
	}
	return errors.Join(errs...)
}
