package persistence

import (
	"context"
	"testing"
)

func TestSubscribeIsIdempotent(t *testing.T) {
	store := openTestStore(t)
	seedTestRoster(t, store)
	ctx := context.Background()

	task := newTestTask(t, store, nil)

	added, err := store.Subscribe(ctx, "shuri", task.ID)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if !added {
		t.Fatal("first subscribe should add a row")
	}

	added, err = store.Subscribe(ctx, "shuri", task.ID)
	if err != nil {
		t.Fatalf("Subscribe twice: %v", err)
	}
	if added {
		t.Fatal("second subscribe should be a no-op")
	}

	subs, err := store.Subscribers(ctx, task.ID)
	if err != nil {
		t.Fatalf("Subscribers: %v", err)
	}
	if len(subs) != 1 || subs[0] != "shuri" {
		t.Fatalf("unexpected subscribers: %v", subs)
	}
}

func TestUnsubscribe(t *testing.T) {
	store := openTestStore(t)
	seedTestRoster(t, store)
	ctx := context.Background()

	task := newTestTask(t, store, nil)
	if _, err := store.Subscribe(ctx, "fury", task.ID); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	removed, err := store.Unsubscribe(ctx, "fury", task.ID)
	if err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}
	if !removed {
		t.Fatal("expected removal")
	}

	removed, err = store.Unsubscribe(ctx, "fury", task.ID)
	if err != nil {
		t.Fatalf("Unsubscribe twice: %v", err)
	}
	if removed {
		t.Fatal("second unsubscribe should report nothing removed")
	}

	ok, err := store.IsSubscribed(ctx, "fury", task.ID)
	if err != nil {
		t.Fatalf("IsSubscribed: %v", err)
	}
	if ok {
		t.Fatal("subscription should be gone")
	}
}

func TestSubscribersOrderedByJoin(t *testing.T) {
	store := openTestStore(t)
	seedTestRoster(t, store)
	ctx := context.Background()

	task := newTestTask(t, store, nil)
	for _, agent := range []string{"fury", "jarvis", "shuri"} {
		if _, err := store.Subscribe(ctx, agent, task.ID); err != nil {
			t.Fatalf("Subscribe %s: %v", agent, err)
		}
	}

	subs, err := store.Subscribers(ctx, task.ID)
	if err != nil {
		t.Fatalf("Subscribers: %v", err)
	}
	want := []string{"fury", "jarvis", "shuri"}
	if len(subs) != len(want) {
		t.Fatalf("got %d subscribers", len(subs))
	}
	for i := range want {
		if subs[i] != want[i] {
			t.Fatalf("order mismatch at %d: got %v", i, subs)
		}
	}
}
