package notify

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/basket/mission-control/internal/domain"
	"github.com/basket/mission-control/internal/persistence"
)

func openTestStore(t *testing.T) *persistence.Store {
	t.Helper()
	store, err := persistence.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	roster := []domain.Agent{
		{Name: "Jarvis", Role: "Squad Lead", SessionKey: "agent:squad-lead:main"},
		{Name: "Shuri", Role: "Product Analyst", SessionKey: "agent:product-analyst:main"},
		{Name: "Fury", Role: "Customer Researcher", SessionKey: "agent:customer-researcher:main"},
	}
	if err := store.SeedAgents(context.Background(), roster); err != nil {
		t.Fatalf("SeedAgents: %v", err)
	}
	return store
}

func TestMentions(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"none", "no handles here", nil},
		{"single", "ping @Shuri about this", []string{"shuri"}},
		{"lowercased", "@FURY take a look", []string{"fury"}},
		{"duplicates preserved", "@shuri and again @shuri", []string{"shuri", "shuri"}},
		{"punctuation boundary", "thanks @jarvis, merged", []string{"jarvis"}},
		{"email not special-cased", "mail me at a@b.com", []string{"b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Mentions(tt.text)
			if len(got) != len(tt.want) {
				t.Fatalf("Mentions(%q) = %v, want %v", tt.text, got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Fatalf("Mentions(%q)[%d] = %q, want %q", tt.text, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestRouteSkipsUnknownNames(t *testing.T) {
	store := openTestStore(t)
	router := NewRouter(store, nil, nil)
	ctx := context.Background()

	notified, err := router.Route(ctx, RouteInput{
		Content: "@Shuri @unknown @Fury please review",
		From:    "Jarvis",
	})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if len(notified) != 2 {
		t.Fatalf("expected 2 notified agents, got %d", len(notified))
	}
	if notified[0].ID != "shuri" || notified[1].ID != "fury" {
		t.Fatalf("unexpected recipients: %s, %s", notified[0].ID, notified[1].ID)
	}

	for _, agentID := range []string{"shuri", "fury"} {
		count, err := store.UnreadCount(ctx, agentID)
		if err != nil {
			t.Fatalf("UnreadCount %s: %v", agentID, err)
		}
		if count != 1 {
			t.Fatalf("%s unread = %d, want 1", agentID, count)
		}
	}
}

func TestRouteDuplicateMentionsEachNotify(t *testing.T) {
	store := openTestStore(t)
	router := NewRouter(store, nil, nil)
	ctx := context.Background()

	notified, err := router.Route(ctx, RouteInput{
		Content: "@fury then @fury again",
		From:    "Jarvis",
		TaskID:  "TASK-X",
	})
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if len(notified) != 2 {
		t.Fatalf("expected 2 notifications for duplicate mention, got %d", len(notified))
	}

	count, err := store.UnreadCount(ctx, "fury")
	if err != nil {
		t.Fatalf("UnreadCount: %v", err)
	}
	if count != 2 {
		t.Fatalf("fury unread = %d, want 2", count)
	}
}

func TestRouteNotificationContent(t *testing.T) {
	store := openTestStore(t)
	router := NewRouter(store, nil, nil)
	ctx := context.Background()

	long := "@shuri " + strings.Repeat("x", 200)
	if _, err := router.Route(ctx, RouteInput{Content: long, From: "Fury"}); err != nil {
		t.Fatalf("Route: %v", err)
	}

	notifs, err := store.ListNotifications(ctx, persistence.NotificationFilter{AgentID: "shuri"})
	if err != nil {
		t.Fatalf("ListNotifications: %v", err)
	}
	if len(notifs) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifs))
	}
	n := notifs[0]
	if n.Type != domain.NotificationMention {
		t.Fatalf("type = %q", n.Type)
	}
	if !strings.HasPrefix(n.Content, "Fury mentioned you: ") {
		t.Fatalf("content = %q", n.Content)
	}
	if len(n.Content) > len("Fury mentioned you: ")+83 {
		t.Fatalf("content not truncated: %d chars", len(n.Content))
	}
}
