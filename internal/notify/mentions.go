package notify

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/basket/mission-control/internal/bus"
	"github.com/basket/mission-control/internal/domain"
	"github.com/basket/mission-control/internal/persistence"
	"github.com/basket/mission-control/internal/shared"
)

var mentionPattern = regexp.MustCompile(`@(\w+)`)

// Mentions extracts @name tokens from text, lower-cased. Duplicates are
// preserved: each occurrence fans out its own notification.
func Mentions(text string) []string {
	matches := mentionPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.ToLower(m[1]))
	}
	return names
}

// RouteInput carries one piece of free text through the mention fan-out.
type RouteInput struct {
	Content   string
	From      string // display name shown in the notification
	MessageID string
	TaskID    string
}

// Router turns @mentions into notifications. Names that resolve to no agent
// are skipped without error so one bad handle never rejects the whole text.
type Router struct {
	store *persistence.Store
	bus   *bus.Bus
	log   *slog.Logger
}

func NewRouter(store *persistence.Store, b *bus.Bus, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{store: store, bus: b, log: logger.With("component", "mentions")}
}

// Route emits one mention notification per resolvable @name occurrence and
// returns the notified agents (with repeats for repeated mentions).
func (r *Router) Route(ctx context.Context, in RouteInput) ([]*domain.Agent, error) {
	var notified []*domain.Agent
	for _, name := range Mentions(in.Content) {
		agent, err := r.store.AgentByName(ctx, name)
		if err != nil {
			return notified, fmt.Errorf("resolve mention @%s: %w", name, err)
		}
		if agent == nil {
			r.log.Debug("skipping unresolved mention", "name", name)
			continue
		}

		n := &domain.Notification{
			ID:        shared.NewID("NOTIF"),
			AgentID:   agent.ID,
			MessageID: in.MessageID,
			TaskID:    in.TaskID,
			Content:   fmt.Sprintf("%s mentioned you: %s", in.From, shared.Truncate(in.Content, 80)),
			Type:      domain.NotificationMention,
		}
		if _, err := r.store.CreateNotification(ctx, n); err != nil {
			return notified, fmt.Errorf("notify mention @%s: %w", name, err)
		}
		r.bus.Publish(bus.TopicNotificationCreated, bus.NotificationEvent{
			NotificationID: n.ID,
			AgentID:        agent.ID,
			TaskID:         in.TaskID,
			Type:           string(domain.NotificationMention),
		})
		notified = append(notified, agent)
	}
	return notified, nil
}
