package notify

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/user/goalstream/internal/types"
)

// Sender delivers one message to a notification channel.
type Sender func(message string) error

// Registry fans report-ready announcements out to every registered
// channel. Channels are independent; one failing does not stop the rest.
type Registry struct {
	mu      sync.RWMutex
	senders map[string]Sender
}

// NewRegistry creates an empty notification registry.
func NewRegistry() *Registry {
	return &Registry{
		senders: make(map[string]Sender),
	}
}

// Register adds a named channel. Registering the same name again
// replaces the previous sender.
func (r *Registry) Register(name string, sender Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.senders[name] = sender
}

// Len reports the number of registered channels.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.senders)
}

// Announce sends the message to every channel and returns the joined
// errors of the ones that failed.
func (r *Registry) Announce(message string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var errs []error
	for name, sender := range r.senders {
		if err := sender(message); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// ReportReady announces a freshly generated report. Failures are logged,
// not propagated; notification is best-effort by contract.
func (r *Registry) ReportReady(rep *types.ReportFile) {
	if rep == nil {
		return
	}
	if err := r.Announce(FormatReport(rep)); err != nil {
		slog.Warn("report notification failed", "filename", rep.Filename, "error", err)
	}
}

// FormatReport renders the announcement text for a generated report.
func FormatReport(rep *types.ReportFile) string {
	msg := fmt.Sprintf("📊 Report ready: %s", rep.Filename)
	if rep.SessionID != "" {
		msg += fmt.Sprintf("\nSession: %s", rep.SessionID)
	}
	if rep.Path != "" {
		msg += fmt.Sprintf("\nPath: %s", rep.Path)
	}
	return msg
}
