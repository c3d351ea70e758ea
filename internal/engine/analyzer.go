package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/user/goalstream/internal/types"
)

const analysisTailLines = 20

// Summarizer produces a human-readable analysis of an engine run from
// its captured output.
type Summarizer struct{}

// NewSummarizer creates a Summarizer.
func NewSummarizer() *Summarizer { return &Summarizer{} }

// Analyze summarizes an execution: run duration, output volume, and the
// tail of the output, which is where the engine reports its outcome.
func (s *Summarizer) Analyze(ec *types.ExecutionContext) string {
	if ec == nil {
		return ""
	}
	lines := nonBlankLines(ec.Output)

	var b strings.Builder
	fmt.Fprintf(&b, "Run completed in %s (%d output lines).\n", ec.Duration.Round(time.Millisecond), len(lines))

	tail := lines
	if len(tail) > analysisTailLines {
		tail = tail[len(tail)-analysisTailLines:]
		b.WriteString("Final output:\n")
	} else if len(tail) > 0 {
		b.WriteString("Output:\n")
	}
	for _, line := range tail {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

func nonBlankLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}
