// internal/history/history_test.go
package history

import (
	"sync"
	"testing"

	"github.com/user/goalstream/internal/types"
)

func TestStoreAppendTailCount(t *testing.T) {
	store := NewStore(t.TempDir())
	id := types.NewStreamID()

	ev := types.NewStreamEvent(types.EventLogUpdate, map[string]any{"message": "hello"})
	if err := store.Append(id, ev); err != nil {
		t.Fatal(err)
	}

	events, err := store.Tail(id, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].Type != types.EventLogUpdate {
		t.Errorf("expected log_update, got %s", events[0].Type)
	}
	if events[0].Data["message"] != "hello" {
		t.Errorf("payload lost: %v", events[0].Data)
	}

	count, err := store.Count(id)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("expected count 1, got %d", count)
	}
}

func TestStoreTailLimit(t *testing.T) {
	store := NewStore(t.TempDir())
	id := types.NewStreamID()

	for i := 0; i < 5; i++ {
		ev := types.NewStreamEvent(types.EventLogUpdate, map[string]any{"n": i})
		if err := store.Append(id, ev); err != nil {
			t.Fatal(err)
		}
	}

	events, err := store.Tail(id, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	// JSON numbers come back as float64.
	if events[0].Data["n"] != float64(3) || events[1].Data["n"] != float64(4) {
		t.Errorf("expected the last two events, got %v", events)
	}
}

func TestStoreUnknownStream(t *testing.T) {
	store := NewStore(t.TempDir())

	events, err := store.Tail(types.NewStreamID(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if events != nil {
		t.Errorf("expected nil for unknown stream, got %v", events)
	}

	count, err := store.Count(types.NewStreamID())
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("expected count 0, got %d", count)
	}
}

func TestStoreIsolatesStreams(t *testing.T) {
	store := NewStore(t.TempDir())
	a, b := types.NewStreamID(), types.NewStreamID()

	if err := store.Append(a, types.NewStreamEvent(types.EventLogUpdate, nil)); err != nil {
		t.Fatal(err)
	}
	count, err := store.Count(b)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("stream b should be empty, got %d", count)
	}
}

func TestStoreConcurrentAppends(t *testing.T) {
	store := NewStore(t.TempDir())
	id := types.NewStreamID()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.Record(id, types.NewStreamEvent(types.EventLogUpdate, nil))
		}()
	}
	wg.Wait()

	count, err := store.Count(id)
	if err != nil {
		t.Fatal(err)
	}
	if count != 20 {
		t.Errorf("expected 20 events, got %d", count)
	}
}
