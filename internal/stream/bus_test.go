// internal/stream/bus_test.go
package stream

import (
	"fmt"
	"testing"

	"github.com/user/goalstream/internal/types"
)

func TestBrokerFIFOWithinSession(t *testing.T) {
	b := NewBroker()
	s := b.Subscribe()
	defer b.Unsubscribe(s)

	for i := 0; i < 50; i++ {
		b.Publish(types.NewStreamEvent(types.EventLogUpdate, map[string]any{"n": i}))
	}

	for i := 0; i < 50; i++ {
		ev := <-s.Events()
		if ev.Data["n"] != i {
			t.Fatalf("delivery order broken at %d: got %v", i, ev.Data["n"])
		}
	}
}

func TestBrokerFanOut(t *testing.T) {
	b := NewBroker()
	s1 := b.Subscribe()
	s2 := b.Subscribe()
	defer b.Unsubscribe(s1)
	defer b.Unsubscribe(s2)

	b.Publish(types.NewStreamEvent(types.EventLogUpdate, map[string]any{"message": "hi"}))

	for _, s := range []*Session{s1, s2} {
		select {
		case ev := <-s.Events():
			if ev.Data["message"] != "hi" {
				t.Errorf("unexpected payload: %v", ev.Data)
			}
		default:
			t.Fatal("expected event delivered to every session")
		}
	}
}

func TestBrokerDropsSaturatedSession(t *testing.T) {
	b := NewBroker()
	stuck := b.Subscribe()
	healthy := b.Subscribe()
	defer b.Unsubscribe(healthy)

	// Fill both queues to capacity, then drain only the healthy one. The
	// next publish saturates the stuck session, which must be dropped
	// without affecting delivery to the healthy one.
	for i := 0; i < sessionQueueSize; i++ {
		b.Publish(types.NewStreamEvent(types.EventLogUpdate, map[string]any{"n": i}))
	}
	for i := 0; i < sessionQueueSize; i++ {
		<-healthy.Events()
	}

	b.Publish(types.NewStreamEvent(types.EventLogUpdate, map[string]any{"n": sessionQueueSize}))

	if b.Len() != 1 {
		t.Fatalf("expected saturated session dropped, have %d sessions", b.Len())
	}

	select {
	case ev := <-healthy.Events():
		if ev.Data["n"] != sessionQueueSize {
			t.Errorf("expected n=%d delivered to healthy session, got %v", sessionQueueSize, ev.Data["n"])
		}
	default:
		t.Fatal("healthy session missed delivery after peer was dropped")
	}

	// The dropped session keeps whatever was already queued.
	ev := <-stuck.Events()
	if ev.Data["n"] != 0 {
		t.Errorf("expected stuck session to retain queued events, got %v", ev.Data["n"])
	}
}

func TestBrokerUnsubscribeStopsDelivery(t *testing.T) {
	b := NewBroker()
	s := b.Subscribe()
	b.Unsubscribe(s)
	b.Unsubscribe(s) // safe to repeat

	b.Publish(types.NewStreamEvent(types.EventLogUpdate, nil))

	select {
	case ev := <-s.Events():
		t.Fatalf("expected no delivery after unsubscribe, got %v", ev)
	default:
	}
}

func TestBrokerConcurrentPublish(t *testing.T) {
	b := NewBroker()
	s := b.Subscribe()
	defer b.Unsubscribe(s)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			b.Publish(types.NewStreamEvent(types.EventLogUpdate, map[string]any{"src": "a", "n": fmt.Sprint(i)}))
		}
		close(done)
	}()
	for i := 0; i < 100; i++ {
		b.Publish(types.NewStreamEvent(types.EventLogUpdate, map[string]any{"src": "b", "n": fmt.Sprint(i)}))
	}
	<-done

	// Interleaving across publishers is unspecified, but each publisher's
	// own order must be preserved.
	lastA, lastB := -1, -1
	for i := 0; i < 200; i++ {
		ev := <-s.Events()
		var n int
		fmt.Sscan(ev.Data["n"].(string), &n)
		switch ev.Data["src"] {
		case "a":
			if n <= lastA {
				t.Fatalf("publisher a order broken: %d after %d", n, lastA)
			}
			lastA = n
		case "b":
			if n <= lastB {
				t.Fatalf("publisher b order broken: %d after %d", n, lastB)
			}
			lastB = n
		}
	}
}
