package report

import (
	"context"
	"math"
	"time"
)

// PollPolicy controls repeated report-discovery attempts with exponential
// backoff. The engine writes report files asynchronously, so the first
// lookup after completion can legitimately miss.
type PollPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
	Multiplier   float64
	MaxDelay     time.Duration
}

// DefaultPollPolicy returns a PollPolicy with sensible defaults:
// 5 attempts, 200ms initial delay, 2x multiplier, 2s max delay.
func DefaultPollPolicy() *PollPolicy {
	return &PollPolicy{
		MaxAttempts:  5,
		InitialDelay: 200 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     2 * time.Second,
	}
}

// NextDelay returns the backoff delay for the given attempt number (1-indexed).
// The delay is InitialDelay * Multiplier^(attempt-1), capped at MaxDelay.
func (p *PollPolicy) NextDelay(attempt int) time.Duration {
	delay := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt-1))
	if delay > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(delay)
}

// Poll runs find up to MaxAttempts times, sleeping between attempts with
// exponential backoff, until it reports a hit or the context is done.
func (p *PollPolicy) Poll(ctx context.Context, find func() bool) bool {
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if find() {
			return true
		}
		if attempt == p.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(p.NextDelay(attempt)):
		}
	}
	return false
}
