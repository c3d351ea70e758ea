package service

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/user/goalstream/internal/stream"
	"github.com/user/goalstream/internal/types"
)

// Preparer is implemented by engines that need one-time setup before
// their first run.
type Preparer interface {
	Prepare(ctx context.Context) error
}

// Finisher is implemented by engines that hold resources needing
// teardown after the last run.
type Finisher interface {
	Finish(ctx context.Context) error
}

// Service runs engine queries for the streaming endpoints. It owns the
// concurrency limit, the output capture wiring, and the translation of
// an engine run into a stream.Result.
type Service struct {
	broker   *stream.Broker
	engine   types.Engine
	analyzer types.Analyzer
	slot     *stream.Slot
	sem      *semaphore.Weighted
	echo     io.Writer

	mu          sync.Mutex
	initialized bool
}

// New creates a Service. maxConcurrent bounds simultaneous engine runs;
// values below 1 mean one at a time.
func New(broker *stream.Broker, eng types.Engine, analyzer types.Analyzer, slot *stream.Slot, maxConcurrent int) *Service {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Service{
		broker:   broker,
		engine:   eng,
		analyzer: analyzer,
		slot:     slot,
		sem:      semaphore.NewWeighted(int64(maxConcurrent)),
		echo:     os.Stdout,
	}
}

// Initialize performs one-time engine setup. Calling it again is a
// no-op until after Shutdown.
func (s *Service) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return nil
	}
	if p, ok := s.engine.(Preparer); ok {
		if err := p.Prepare(ctx); err != nil {
			return err
		}
	}
	s.initialized = true
	slog.Info("agent service initialized")
	return nil
}

// Shutdown tears down the engine and marks the service uninitialized.
// Idempotent; in-flight runs are left to finish.
func (s *Service) Shutdown(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return
	}
	if f, ok := s.engine.(Finisher); ok {
		if err := f.Finish(ctx); err != nil {
			slog.Warn("engine teardown failed", "error", err)
		}
	}
	s.initialized = false
	slog.Info("agent service shut down")
}

// Execute runs one engine query to completion, publishing classified
// progress to the broker along the way. It implements stream.Runner.
func (s *Service) Execute(ctx context.Context, query string) *stream.Result {
	if err := s.Initialize(ctx); err != nil {
		return &stream.Result{Err: err, Message: "Failed to initialize agent service"}
	}
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return &stream.Result{Err: err, Message: "Cancelled while waiting for an execution slot"}
	}
	defer s.sem.Release(1)

	s.broker.Publish(types.NewStreamEvent(types.EventProcessingStart, map[string]any{
		"message": "Starting agent processing...",
	}))

	// The engine's output goes through the process-wide slot so anything
	// else writing there during the run is classified too. The capture
	// tees to the console writer it displaced.
	capture := stream.NewCapture(s.echo, s.broker.Publish)
	restore := s.slot.Install(capture)

	ec, err := s.engine.Run(ctx, query, nil, nil, s.slot)

	restore()
	capture.Close()

	if err != nil {
		s.broker.Publish(types.NewStreamEvent(types.EventError, map[string]any{
			"error": err.Error(),
		}))
		res := &stream.Result{Err: err, Message: "Failed to process query"}
		if ec != nil {
			res.Output = ec.Output
		}
		return res
	}

	res := &stream.Result{
		Success: true,
		Output:  ec.Output,
		Message: "Query processed successfully",
	}
	if s.analyzer != nil {
		res.Analysis = s.analyzer.Analyze(ec)
	}
	return res
}
