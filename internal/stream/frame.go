// internal/stream/frame.go
package stream

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/user/goalstream/internal/types"
)

// FrameWriter emits one complete SSE frame per event.
type FrameWriter interface {
	WriteFrame(ev types.StreamEvent) error
}

// sseWriter frames events as `data: <json>\n\n` over an http.ResponseWriter,
// flushing after each frame so the client sees events as they happen.
type sseWriter struct {
	w http.ResponseWriter
	f http.Flusher
}

// NewSSEWriter sets the SSE response headers and returns a FrameWriter.
// Fails if the transport cannot flush incrementally.
func NewSSEWriter(w http.ResponseWriter) (FrameWriter, error) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming unsupported by transport")
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	return &sseWriter{w: w, f: f}, nil
}

func (s *sseWriter) WriteFrame(ev types.StreamEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return err
	}
	s.f.Flush()
	return nil
}
