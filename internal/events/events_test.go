package events

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestPublishReachesSubscriber(t *testing.T) {
	bus := New()
	ch := bus.Subscribe()

	bus.Publish(Event{Kind: KildCreated, Branch: "feat-a"})

	select {
	case ev := <-ch:
		if ev.Kind != KildCreated || ev.Branch != "feat-a" {
			t.Fatalf("got %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestPublishFansOutToMultipleSubscribers(t *testing.T) {
	bus := New()
	a := bus.Subscribe()
	b := bus.Subscribe()

	bus.Publish(Event{Kind: KildStopped, Branch: "feat-b"})

	for _, ch := range []<-chan Event{a, b} {
		select {
		case ev := <-ch:
			if ev.Kind != KildStopped {
				t.Fatalf("got %+v", ev)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestWatcherDebouncesBursts(t *testing.T) {
	dir := t.TempDir()
	bus := New()
	ch := bus.Subscribe()

	w := NewWatcher(dir, bus)
	w.Start()
	defer w.Stop()

	// Give the watcher time to register before we poke the filesystem.
	time.Sleep(50 * time.Millisecond)

	for i := 0; i < 5; i++ {
		touch(t, dir, "burst.json")
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("expected a coalesced refresh event")
	}
}

func touch(t *testing.T, dir, name string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("{}"), 0644); err != nil {
		t.Fatalf("touch: %v", err)
	}
}
