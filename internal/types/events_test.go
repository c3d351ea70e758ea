// internal/types/events_test.go
package types

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNewStreamID(t *testing.T) {
	id := NewStreamID()
	if id == "" {
		t.Error("expected non-empty StreamID")
	}
	if len(string(id)) != 36 {
		t.Errorf("expected UUID format, got %s", id)
	}
}

func TestNewStreamEventTimestamp(t *testing.T) {
	before := float64(time.Now().UnixNano()) / float64(time.Second)
	ev := NewStreamEvent(EventLogUpdate, map[string]any{"message": "hi"})
	after := float64(time.Now().UnixNano()) / float64(time.Second)

	if ev.Timestamp < before || ev.Timestamp > after {
		t.Errorf("timestamp %f outside [%f, %f]", ev.Timestamp, before, after)
	}
	if ev.Type != EventLogUpdate {
		t.Errorf("expected log_update, got %s", ev.Type)
	}
}

func TestNewStreamEventNilData(t *testing.T) {
	ev := NewStreamEvent(EventStreamEnd, nil)
	if ev.Data == nil {
		t.Fatal("expected non-nil data map")
	}
}

func TestStreamEventSerialization(t *testing.T) {
	ev := NewStreamEvent(EventBatchStart, map[string]any{"batch": "alpha"})

	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatal(err)
	}

	var decoded StreamEvent
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Type != EventBatchStart {
		t.Errorf("expected batch_start, got %s", decoded.Type)
	}
	if decoded.Data["batch"] != "alpha" {
		t.Errorf("expected batch alpha, got %v", decoded.Data["batch"])
	}
}

func TestFormDataNumber(t *testing.T) {
	form := FormData{"current_age": float64(30), "goal_type": "Retirement"}

	if n, ok := form.Number("current_age"); !ok || n != 30 {
		t.Errorf("expected 30, got %f (ok=%v)", n, ok)
	}
	if _, ok := form.Number("missing"); ok {
		t.Error("expected missing field to report not-ok")
	}
	if _, ok := form.Number("goal_type"); ok {
		t.Error("expected non-numeric field to report not-ok")
	}
	if form.GoalType() != "Retirement" {
		t.Errorf("expected Retirement, got %s", form.GoalType())
	}
}
