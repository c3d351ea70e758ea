// internal/stream/bus.go
package stream

import (
	"log/slog"
	"sync"
	"time"

	"github.com/user/goalstream/internal/types"
)

// sessionQueueSize bounds the per-session buffer. A session that falls
// this far behind is considered broken and is dropped rather than allowed
// to stall delivery to the others.
const sessionQueueSize = 1024

// Session is one subscriber's private FIFO queue of stream events. It is
// created by Broker.Subscribe, owned exclusively by the request that
// created it, and never reused.
type Session struct {
	ID        types.StreamID
	CreatedAt time.Time
	ch        chan types.StreamEvent
}

// Events returns the session's receive side. Single consumer only.
func (s *Session) Events() <-chan types.StreamEvent {
	return s.ch
}

// Broker fans published events out to every registered session. Delivery
// to one session is isolated from the others: a broken (saturated)
// session is deregistered in place and the publish continues.
type Broker struct {
	mu       sync.Mutex
	sessions map[*Session]struct{}
}

func NewBroker() *Broker {
	return &Broker{sessions: make(map[*Session]struct{})}
}

// Subscribe registers and returns a new session.
func (b *Broker) Subscribe() *Session {
	s := &Session{
		ID:        types.NewStreamID(),
		CreatedAt: time.Now(),
		ch:        make(chan types.StreamEvent, sessionQueueSize),
	}
	b.mu.Lock()
	b.sessions[s] = struct{}{}
	b.mu.Unlock()
	return s
}

// Unsubscribe removes the session. Safe to call more than once; the
// channel is not closed because publishers may still hold references.
func (b *Broker) Unsubscribe(s *Session) {
	b.mu.Lock()
	delete(b.sessions, s)
	b.mu.Unlock()
}

// Publish delivers ev to every currently registered session in FIFO order
// relative to other publishes. No ordering is promised across sessions.
func (b *Broker) Publish(ev types.StreamEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for s := range b.sessions {
		select {
		case s.ch <- ev:
		default:
			// Saturated queue: the consumer is gone or wedged. Drop the
			// session so the remaining subscribers keep receiving.
			delete(b.sessions, s)
			slog.Warn("dropping saturated stream session", "stream_id", string(s.ID))
		}
	}
}

// Len reports the number of registered sessions.
func (b *Broker) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sessions)
}
