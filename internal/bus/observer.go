package bus

import (
	"context"
	"log/slog"
)

// Observe subscribes to every topic and writes one log line per event,
// so the daemon's system.jsonl carries a record of fan-out activity.
// The returned stop function unsubscribes and waits for the drain
// goroutine to exit.
func Observe(ctx context.Context, b *Bus, logger *slog.Logger) func() {
	log := logger.With("component", "bus")
	sub := b.Subscribe("")
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-sub.Ch():
				if !ok {
					return
				}
				logEvent(log, event)
			}
		}
	}()

	return func() {
		b.Unsubscribe(sub)
		<-done
	}
}

func logEvent(log *slog.Logger, event Event) {
	switch p := event.Payload.(type) {
	case NotificationEvent:
		log.Info("event", "topic", event.Topic,
			"notification", p.NotificationID, "agent", p.AgentID, "task", p.TaskID, "type", p.Type)
	case MessageIngestedEvent:
		log.Info("event", "topic", event.Topic,
			"file", p.File, "from", p.From, "mentions", p.Mentions)
	case TaskDueSoonEvent:
		log.Info("event", "topic", event.Topic,
			"task", p.TaskID, "agent", p.AgentID, "dedup_key", p.DedupKey)
	default:
		log.Info("event", "topic", event.Topic)
	}
}
