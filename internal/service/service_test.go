package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/user/goalstream/internal/stream"
	"github.com/user/goalstream/internal/types"
)

// fakeEngine writes scripted lines to the progress writer and returns a
// canned result.
type fakeEngine struct {
	lines    []string
	err      error
	delay    time.Duration
	prepares atomic.Int32
	finishes atomic.Int32
	running  atomic.Int32
	maxSeen  atomic.Int32
}

func (e *fakeEngine) Prepare(ctx context.Context) error {
	e.prepares.Add(1)
	return nil
}

func (e *fakeEngine) Finish(ctx context.Context) error {
	e.finishes.Add(1)
	return nil
}

func (e *fakeEngine) Run(ctx context.Context, query string, fileManifest, uploadedFiles []string, progress io.Writer) (*types.ExecutionContext, error) {
	n := e.running.Add(1)
	for {
		max := e.maxSeen.Load()
		if n <= max || e.maxSeen.CompareAndSwap(max, n) {
			break
		}
	}
	defer e.running.Add(-1)

	if e.delay > 0 {
		time.Sleep(e.delay)
	}
	var out bytes.Buffer
	for _, line := range e.lines {
		fmt.Fprintln(io.MultiWriter(progress, &out), line)
	}
	ec := &types.ExecutionContext{Query: query, Output: out.String(), Duration: time.Millisecond}
	return ec, e.err
}

type fixedAnalyzer struct{ text string }

func (a fixedAnalyzer) Analyze(ec *types.ExecutionContext) string { return a.text }

func newService(eng *fakeEngine, maxConcurrent int) (*Service, *stream.Broker) {
	broker := stream.NewBroker()
	slot := stream.NewSlot(io.Discard)
	svc := New(broker, eng, fixedAnalyzer{"summary"}, slot, maxConcurrent)
	svc.echo = io.Discard
	return svc, broker
}

func collect(sess *stream.Session) []types.StreamEvent {
	var evs []types.StreamEvent
	for {
		select {
		case ev := <-sess.Events():
			evs = append(evs, ev)
		case <-time.After(100 * time.Millisecond):
			return evs
		}
	}
}

func TestExecutePublishesProgress(t *testing.T) {
	eng := &fakeEngine{lines: []string{"T1 completed", "working away"}}
	svc, broker := newService(eng, 2)
	sess := broker.Subscribe()
	defer broker.Unsubscribe(sess)

	res := svc.Execute(context.Background(), "plan my retirement")
	if res.Err != nil {
		t.Fatal(res.Err)
	}
	if !res.Success {
		t.Error("expected success")
	}
	if res.Analysis != "summary" {
		t.Errorf("expected analyzer output, got %q", res.Analysis)
	}
	if res.Message != "Query processed successfully" {
		t.Errorf("unexpected message %q", res.Message)
	}

	evs := collect(sess)
	if len(evs) < 3 {
		t.Fatalf("expected processing_start plus classified lines, got %v", evs)
	}
	if evs[0].Type != types.EventProcessingStart {
		t.Errorf("first event should be processing_start, got %s", evs[0].Type)
	}
	var sawTask, sawLog bool
	for _, ev := range evs[1:] {
		switch ev.Type {
		case types.EventTaskCompleted:
			sawTask = true
		case types.EventLogUpdate:
			sawLog = true
		}
	}
	if !sawTask || !sawLog {
		t.Errorf("expected classified task and log events, got %v", evs)
	}
}

func TestExecuteEngineError(t *testing.T) {
	eng := &fakeEngine{lines: []string{"partial work"}, err: errors.New("boom")}
	svc, broker := newService(eng, 2)
	sess := broker.Subscribe()
	defer broker.Unsubscribe(sess)

	res := svc.Execute(context.Background(), "q")
	if res.Err == nil {
		t.Fatal("expected error result")
	}
	if res.Success {
		t.Error("failed run must not be marked successful")
	}
	if res.Message != "Failed to process query" {
		t.Errorf("unexpected message %q", res.Message)
	}
	if res.Output == "" {
		t.Error("captured output should survive failure")
	}

	evs := collect(sess)
	var sawError bool
	for _, ev := range evs {
		if ev.Type == types.EventError {
			sawError = true
		}
	}
	if !sawError {
		t.Errorf("expected an error event, got %v", evs)
	}
}

func TestInitializeOnce(t *testing.T) {
	eng := &fakeEngine{}
	svc, _ := newService(eng, 1)

	if err := svc.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := svc.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n := eng.prepares.Load(); n != 1 {
		t.Errorf("expected one Prepare call, got %d", n)
	}
}

func TestShutdownThenInitializeAgain(t *testing.T) {
	eng := &fakeEngine{}
	svc, _ := newService(eng, 1)

	if err := svc.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	svc.Shutdown(context.Background())
	svc.Shutdown(context.Background())
	if err := svc.Initialize(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n := eng.prepares.Load(); n != 2 {
		t.Errorf("expected Prepare per initialization, got %d", n)
	}
	if n := eng.finishes.Load(); n != 1 {
		t.Errorf("expected one Finish call for the repeated shutdowns, got %d", n)
	}
}

func TestExecuteAutoInitializes(t *testing.T) {
	eng := &fakeEngine{}
	svc, _ := newService(eng, 1)

	if res := svc.Execute(context.Background(), "q"); res.Err != nil {
		t.Fatal(res.Err)
	}
	if n := eng.prepares.Load(); n != 1 {
		t.Errorf("expected auto-initialize, got %d Prepare calls", n)
	}
}

func TestExecuteBoundsConcurrency(t *testing.T) {
	eng := &fakeEngine{delay: 50 * time.Millisecond}
	svc, _ := newService(eng, 1)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.Execute(context.Background(), "q")
		}()
	}
	wg.Wait()

	if max := eng.maxSeen.Load(); max != 1 {
		t.Errorf("expected at most 1 concurrent run, saw %d", max)
	}
}

func TestExecuteCancelledWhileQueued(t *testing.T) {
	eng := &fakeEngine{delay: 200 * time.Millisecond}
	svc, _ := newService(eng, 1)

	go svc.Execute(context.Background(), "first")
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := svc.Execute(ctx, "second")
	if res.Err == nil {
		t.Fatal("expected cancellation error while waiting for a slot")
	}
}
