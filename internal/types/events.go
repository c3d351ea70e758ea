// internal/types/events.go
package types

import (
	"time"
)

// EventType is the discriminator carried in the "type" field of every SSE frame.
type EventType string

const (
	EventConnectionEstablished EventType = "connection_established"
	EventProcessingStart       EventType = "processing_start"
	EventPromptGenerated       EventType = "prompt_generated"
	EventBatchStart            EventType = "batch_start"
	EventAgentExecuting        EventType = "agent_executing"
	EventTaskCompleted         EventType = "task_completed"
	EventDagUpdate             EventType = "dag_update"
	EventLogUpdate             EventType = "log_update"
	EventFileGenerated         EventType = "file_generated"
	EventExecutionComplete     EventType = "execution_complete"
	EventStreamComplete        EventType = "stream_complete"
	EventStreamError           EventType = "stream_error"
	EventError                 EventType = "error"
	EventFatalError            EventType = "fatal_error"
	EventStreamEnd             EventType = "stream_end"
)

// StreamEvent is one unit of progress relayed to the browser. Events are
// immutable once constructed; ordering within a stream is publish order,
// not timestamp order (concurrent publishes may share a timestamp).
type StreamEvent struct {
	Type      EventType      `json:"type"`
	Data      map[string]any `json:"data"`
	Timestamp float64        `json:"timestamp"`
}

// NewStreamEvent stamps the event with the current wall clock in epoch seconds.
func NewStreamEvent(kind EventType, data map[string]any) StreamEvent {
	if data == nil {
		data = map[string]any{}
	}
	return StreamEvent{
		Type:      kind,
		Data:      data,
		Timestamp: float64(time.Now().UnixNano()) / float64(time.Second),
	}
}
