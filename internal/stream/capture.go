// internal/stream/capture.go
package stream

import (
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/user/goalstream/internal/types"
)

// Capture is a write-intercepting sink for engine progress output. Every
// write is passed through untouched to the underlying console writer, then
// accumulated until at least one complete line is available. Complete
// non-blank lines are classified and published on a background worker so a
// slow subscriber can never stall the producer; publish order equals write
// order.
type Capture struct {
	out     io.Writer
	publish func(types.StreamEvent)

	mu      sync.Mutex
	pending strings.Builder
	queue   []string
	cond    *sync.Cond
	closed  bool
	done    chan struct{}
}

// NewCapture creates a Capture that tees writes to out and hands classified
// events to publish.
func NewCapture(out io.Writer, publish func(types.StreamEvent)) *Capture {
	c := &Capture{
		out:     out,
		publish: publish,
		done:    make(chan struct{}),
	}
	c.cond = sync.NewCond(&c.mu)
	go c.worker()
	return c
}

// Write implements io.Writer. It never blocks on classification or
// delivery; the text is forwarded to the console first so operator
// visibility does not depend on the relay.
func (c *Capture) Write(p []byte) (int, error) {
	if c.out != nil {
		c.out.Write(p) // best-effort tee, errors deliberately ignored
	}

	c.mu.Lock()
	c.pending.Write(p)
	buf := c.pending.String()
	if idx := strings.LastIndexByte(buf, '\n'); idx >= 0 {
		complete := buf[:idx]
		c.pending.Reset()
		c.pending.WriteString(buf[idx+1:])
		for _, line := range strings.Split(complete, "\n") {
			if strings.TrimSpace(line) != "" {
				c.queue = append(c.queue, line)
			}
		}
		c.cond.Signal()
	}
	c.mu.Unlock()

	return len(p), nil
}

// Flush is a no-op pass-through kept for sink compatibility; line framing
// happens on newline boundaries, not on flush.
func (c *Capture) Flush() {}

// Close drains any queued lines through the classifier, classifies a
// trailing unterminated line if present, and waits for the worker to
// finish. After Close returns, every event derived from prior writes has
// been published.
func (c *Capture) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		<-c.done
		return
	}
	if rest := strings.TrimSpace(c.pending.String()); rest != "" {
		c.queue = append(c.queue, rest)
	}
	c.pending.Reset()
	c.closed = true
	c.cond.Signal()
	c.mu.Unlock()
	<-c.done
}

func (c *Capture) worker() {
	defer close(c.done)
	for {
		c.mu.Lock()
		for len(c.queue) == 0 && !c.closed {
			c.cond.Wait()
		}
		batch := c.queue
		c.queue = nil
		closed := c.closed
		c.mu.Unlock()

		for _, line := range batch {
			c.emit(line)
		}
		if closed && len(batch) == 0 {
			return
		}
		if closed {
			// One more pass to catch lines queued by Close itself.
			c.mu.Lock()
			empty := len(c.queue) == 0
			c.mu.Unlock()
			if empty {
				return
			}
		}
	}
}

func (c *Capture) emit(line string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("line classification failed", "panic", r)
		}
	}()
	if ev, ok := Classify(line); ok {
		c.publish(ev)
	}
}
