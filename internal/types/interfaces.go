// internal/types/interfaces.go
package types

import (
	"context"
	"io"
)

// Engine is the external multi-agent execution component. Run is a single
// long-lived call; its human-readable progress is written to the provided
// sink as a side effect while it executes.
type Engine interface {
	Run(ctx context.Context, query string, fileManifest, uploadedFiles []string, progress io.Writer) (*ExecutionContext, error)
}

// Analyzer produces a human-readable summary of a finished execution.
// Analyze is synchronous and side-effect-free.
type Analyzer interface {
	Analyze(execCtx *ExecutionContext) string
}
