// internal/stream/classify.go
package stream

import (
	"regexp"
	"strings"

	"github.com/user/goalstream/internal/types"
)

// symbolTable maps the engine's decorative status icons to short ASCII
// tokens. The browser UI must not depend on the engine's choice of glyphs
// surviving the relay, so anything non-ASCII left after this substitution
// is stripped outright.
var symbolTable = map[string]string{
	"🚀":  "[run]",
	"🟢":  "[ok]",
	"💬":  "[chat]",
	"📦":  "[task]",
	"✅":  "[done]",
	"📊":  "[stats]",
	"🔄":  "[busy]",
	"🤖":  "[agent]",
	"📄":  "[file]",
	"❌":  "[fail]",
	"⚠️": "[warn]",
}

// dagIndicators are the box-drawing fragments the engine uses when it
// renders its execution DAG. They are checked against the raw line, before
// icon normalization removes them.
var dagIndicators = []string{
	"Agent Execution DAG",
	"│",
	"├──",
	"└──",
	"╭─",
	"╰─",
}

var (
	batchRe = regexp.MustCompile(`Executing batch: \['(.+?)'\]`)
	agentRe = regexp.MustCompile(`(\w+Agent) \((.+?)\)`)
	taskRe  = regexp.MustCompile(`\b(T\d+) completed`)
)

// Normalize replaces known status icons with ASCII tokens and strips any
// remaining non-ASCII code points.
func Normalize(line string) string {
	for symbol, token := range symbolTable {
		line = strings.ReplaceAll(line, symbol, token)
	}
	var b strings.Builder
	b.Grow(len(line))
	for _, r := range line {
		if r < 128 {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// Classify maps one line of engine output to at most one event. Blank and
// whitespace-only lines classify to nothing. Rules are evaluated in
// priority order and the first match wins; a line that matches nothing
// specific still produces a log_update, so classification is total over
// non-blank input and never fails.
func Classify(line string) (types.StreamEvent, bool) {
	isDag := false
	for _, indicator := range dagIndicators {
		if strings.Contains(line, indicator) {
			isDag = true
			break
		}
	}

	norm := Normalize(line)
	if norm == "" && !isDag {
		return types.StreamEvent{}, false
	}

	if m := batchRe.FindStringSubmatch(norm); m != nil {
		return types.NewStreamEvent(types.EventBatchStart, map[string]any{
			"batch":   m[1],
			"message": norm,
		}), true
	}

	if m := agentRe.FindStringSubmatch(norm); m != nil {
		return types.NewStreamEvent(types.EventAgentExecuting, map[string]any{
			"agent":   m[1],
			"type":    m[2],
			"message": norm,
		}), true
	}

	if m := taskRe.FindStringSubmatch(norm); m != nil {
		return types.NewStreamEvent(types.EventTaskCompleted, map[string]any{
			"task":    m[1],
			"message": norm,
		}), true
	}

	if isDag {
		return types.NewStreamEvent(types.EventDagUpdate, map[string]any{
			"dag_line": norm,
			"message":  "DAG updated",
		}), true
	}

	return types.NewStreamEvent(types.EventLogUpdate, map[string]any{
		"message": norm,
		"level":   "info",
	}), true
}
