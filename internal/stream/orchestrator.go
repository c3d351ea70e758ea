// internal/stream/orchestrator.go
package stream

import (
	"context"
	"log/slog"
	"time"

	"github.com/user/goalstream/internal/types"
)

// defaultPollInterval is the cadence of the client-disconnect liveness
// check during the streaming loop. Event delivery itself is push-based;
// this interval only bounds how long a departed client keeps consuming.
const defaultPollInterval = 100 * time.Millisecond

// Runner executes one engine query to completion, publishing classified
// progress to the broker as a side effect.
type Runner interface {
	Execute(ctx context.Context, query string) *Result
}

// Result is the terminal outcome of one engine run.
type Result struct {
	Success  bool
	Analysis string
	Output   string
	Message  string
	Err      error
}

// Recorder persists relayed events for later inspection. Best-effort; a
// recorder failure must never affect the stream.
type Recorder interface {
	Record(id types.StreamID, ev types.StreamEvent)
}

// RunSpec parameterizes one orchestrated stream.
type RunSpec struct {
	// Prompt produces the engine query. A failure here aborts before the
	// engine is started: the client gets an error frame and then the
	// normal closing frames.
	Prompt func() (string, error)

	// ConnectionData is merged into the initial connection_established
	// frame.
	ConnectionData map[string]any

	// Detect inspects a relayed event for an inline mention of a
	// generated report. The first hit is announced as a file_generated
	// frame and suppresses the fallback search.
	Detect func(ev types.StreamEvent) (*types.ReportFile, bool)

	// Locate is the best-effort fallback consulted after the engine
	// finishes when no report was observed inline.
	Locate func() (*types.ReportFile, bool)

	// OnReport runs after the terminal frames when a report was found.
	OnReport func(rep *types.ReportFile)
}

// Orchestrator drives one SSE request end-to-end: it subscribes a session,
// starts the engine in the background, interleaves queued events with the
// terminal result, and guarantees the stream always ends with a stream_end
// frame no matter how the run went.
type Orchestrator struct {
	broker   *Broker
	runner   Runner
	recorder Recorder
	poll     time.Duration
}

func NewOrchestrator(broker *Broker, runner Runner, recorder Recorder) *Orchestrator {
	return &Orchestrator{
		broker:   broker,
		runner:   runner,
		recorder: recorder,
		poll:     defaultPollInterval,
	}
}

// Stream runs the request to completion. The last frame written is always
// stream_end, even if the engine failed, the prompt could not be built, or
// the client disconnected mid-stream.
func (o *Orchestrator) Stream(ctx context.Context, fw FrameWriter, spec RunSpec) {
	sess := o.broker.Subscribe()
	defer o.broker.Unsubscribe(sess)

	emit := func(ev types.StreamEvent) {
		if o.recorder != nil {
			o.recorder.Record(sess.ID, ev)
		}
		if err := fw.WriteFrame(ev); err != nil {
			slog.Debug("frame write failed", "stream_id", string(sess.ID), "type", string(ev.Type), "error", err)
		}
	}

	defer emit(types.NewStreamEvent(types.EventStreamEnd, map[string]any{
		"message": "Stream ended",
	}))
	defer func() {
		if r := recover(); r != nil {
			slog.Error("stream orchestrator panic", "stream_id", string(sess.ID), "panic", r)
			emit(types.NewStreamEvent(types.EventFatalError, map[string]any{
				"error": "internal error",
			}))
		}
	}()

	connData := map[string]any{"message": "Connection established"}
	for k, v := range spec.ConnectionData {
		connData[k] = v
	}
	connData["stream_id"] = string(sess.ID)
	emit(types.NewStreamEvent(types.EventConnectionEstablished, connData))

	query, err := spec.Prompt()
	if err != nil {
		emit(types.NewStreamEvent(types.EventError, map[string]any{
			"error": err.Error(),
		}))
		return
	}
	emit(types.NewStreamEvent(types.EventPromptGenerated, map[string]any{
		"message": "Prompt generated, starting agent execution...",
	}))

	var report *types.ReportFile
	relay := func(ev types.StreamEvent) {
		if report == nil {
			report = reportFromEvent(ev, spec.Detect)
			if report != nil && ev.Type != types.EventFileGenerated {
				emit(fileGeneratedEvent(report))
			}
		}
		emit(ev)
	}

	// The engine is deliberately not cancelled when the client leaves; it
	// runs to completion and an orphaned result is discarded.
	resultCh := make(chan *Result, 1)
	go func() {
		resultCh <- o.runner.Execute(context.WithoutCancel(ctx), query)
	}()

	var res *Result
	disconnected := false
	ticker := time.NewTicker(o.poll)
	defer ticker.Stop()

	for res == nil && !disconnected {
		select {
		case ev := <-sess.Events():
			relay(ev)
		case r := <-resultCh:
			res = r
		case <-ticker.C:
			if ctx.Err() != nil {
				disconnected = true
				slog.Info("client disconnected, stopping stream", "stream_id", string(sess.ID))
			}
		}
	}

	// Drain events that were published before completion was observed so
	// the race between "engine done" and "queue has items" loses nothing.
	if res != nil {
	drain:
		for {
			select {
			case ev := <-sess.Events():
				relay(ev)
			default:
				break drain
			}
		}

		if res.Err != nil {
			emit(types.NewStreamEvent(types.EventStreamError, map[string]any{
				"error": res.Err.Error(),
			}))
		} else {
			emit(types.NewStreamEvent(types.EventExecutionComplete, map[string]any{
				"success":         res.Success,
				"analysis_result": res.Analysis,
				"message":         res.Message,
			}))
		}
	}

	if report == nil && spec.Locate != nil {
		if rep, ok := spec.Locate(); ok {
			report = rep
			emit(fileGeneratedEvent(report))
		}
	}

	completeData := map[string]any{"message": "Stream completed successfully"}
	if disconnected {
		completeData["message"] = "Stream closed after client disconnect"
	}
	if report != nil {
		completeData["filename"] = report.Filename
		completeData["filepath"] = report.Path
		if report.SessionID != "" {
			completeData["session_id"] = string(report.SessionID)
		}
	}
	emit(types.NewStreamEvent(types.EventStreamComplete, completeData))

	if report != nil && spec.OnReport != nil {
		spec.OnReport(report)
	}
}

// reportFromEvent extracts a report reference from a relayed event, either
// from an explicit file_generated payload or via the caller's detector.
func reportFromEvent(ev types.StreamEvent, detect func(types.StreamEvent) (*types.ReportFile, bool)) *types.ReportFile {
	if ev.Type == types.EventFileGenerated {
		rep := &types.ReportFile{}
		if s, ok := ev.Data["filename"].(string); ok {
			rep.Filename = s
		}
		if s, ok := ev.Data["filepath"].(string); ok {
			rep.Path = s
		}
		if s, ok := ev.Data["session_id"].(string); ok {
			rep.SessionID = types.SessionID(s)
		}
		return rep
	}
	if detect != nil {
		if rep, ok := detect(ev); ok {
			return rep
		}
	}
	return nil
}

func fileGeneratedEvent(rep *types.ReportFile) types.StreamEvent {
	data := map[string]any{
		"filename": rep.Filename,
		"filepath": rep.Path,
	}
	if rep.SessionID != "" {
		data["session_id"] = string(rep.SessionID)
	}
	return types.NewStreamEvent(types.EventFileGenerated, data)
}
