package bus

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestObserve_LogsEveryTopic(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	b := New()
	stop := Observe(context.Background(), b, logger)

	b.Publish(TopicNotificationCreated, NotificationEvent{
		NotificationID: "NOTIF-1", AgentID: "shuri", TaskID: "TASK-1", Type: "mention",
	})
	b.Publish(TopicMessageIngested, MessageIngestedEvent{
		File: "drop.json", From: "jarvis", Mentions: 2,
	})
	b.Publish(TopicTaskDueSoon, TaskDueSoonEvent{
		TaskID: "TASK-1", AgentID: "fury", DedupKey: "due:TASK-1:2026-09-02T00:00:00Z",
	})

	// Unsubscribing closes the channel; stop returns after the observer
	// drains everything still buffered.
	stop()

	out := buf.String()
	for _, want := range []string{
		TopicNotificationCreated,
		TopicMessageIngested,
		TopicTaskDueSoon,
		"NOTIF-1",
		"drop.json",
		"due:TASK-1:2026-09-02T00:00:00Z",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected log output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestObserve_StopsOnContextCancel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	ctx, cancel := context.WithCancel(context.Background())
	b := New()
	stop := Observe(ctx, b, logger)

	cancel()
	// Must return rather than hang on the drained goroutine.
	stop()

	if b.SubscriberCount() != 0 {
		t.Fatalf("expected subscription removed, still have %d", b.SubscriberCount())
	}
}
