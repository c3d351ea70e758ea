// internal/history/history.go
package history

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/user/goalstream/internal/types"
)

// record is one persisted stream event with its sequence number.
type record struct {
	Seq   int64             `json:"seq"`
	Event types.StreamEvent `json:"event"`
}

// Store is a JSONL-backed append-only log of relayed stream events,
// one file per stream in streams/<streamID>/events.jsonl. It backs the
// stream inspection endpoint.
type Store struct {
	root  string
	mu    sync.Mutex
	locks map[types.StreamID]*sync.Mutex
}

// NewStore creates a file-backed Store rooted at the given directory.
func NewStore(root string) *Store {
	return &Store{
		root:  root,
		locks: make(map[types.StreamID]*sync.Mutex),
	}
}

func (s *Store) getLock(id types.StreamID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	if lock, ok := s.locks[id]; ok {
		return lock
	}
	lock := &sync.Mutex{}
	s.locks[id] = lock
	return lock
}

func (s *Store) eventsPath(id types.StreamID) string {
	return filepath.Join(s.root, "streams", string(id), "events.jsonl")
}

// count reads the event file and counts lines. Caller must hold the
// stream lock.
func (s *Store) count(id types.StreamID) (int64, error) {
	f, err := os.Open(s.eventsPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("open events file: %w", err)
	}
	defer f.Close()

	var n int64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		n++
	}
	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("scan events file: %w", err)
	}
	return n, nil
}

// Append adds an event to the stream's log with an auto-incremented
// sequence number.
func (s *Store) Append(id types.StreamID, ev types.StreamEvent) error {
	lock := s.getLock(id)
	lock.Lock()
	defer lock.Unlock()

	dir := filepath.Dir(s.eventsPath(id))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create stream dir: %w", err)
	}

	existing, err := s.count(id)
	if err != nil {
		return err
	}

	data, err := json.Marshal(record{Seq: existing + 1, Event: ev})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	f, err := os.OpenFile(s.eventsPath(id), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open events file: %w", err)
	}
	defer f.Close()

	data = append(data, '\n')
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

// Record implements stream.Recorder. Persistence is best-effort: a
// failed write is logged and never surfaces to the stream.
func (s *Store) Record(id types.StreamID, ev types.StreamEvent) {
	if err := s.Append(id, ev); err != nil {
		slog.Warn("event history write failed", "stream_id", string(id), "error", err)
	}
}

// Tail returns the last N events for the given stream.
func (s *Store) Tail(id types.StreamID, limit int) ([]types.StreamEvent, error) {
	lock := s.getLock(id)
	lock.Lock()
	defer lock.Unlock()

	f, err := os.Open(s.eventsPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open events file: %w", err)
	}
	defer f.Close()

	var events []types.StreamEvent
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return nil, fmt.Errorf("unmarshal event: %w", err)
		}
		events = append(events, rec.Event)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan events file: %w", err)
	}

	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	return events, nil
}

// Count returns the number of recorded events for the given stream.
func (s *Store) Count(id types.StreamID) (int64, error) {
	lock := s.getLock(id)
	lock.Lock()
	defer lock.Unlock()
	return s.count(id)
}
