package engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/user/goalstream/internal/config"
	"github.com/user/goalstream/internal/types"
)

// CLI runs the agent engine as a child process. The prompt goes to the
// engine's stdin; stdout and stderr are streamed line-by-line to the
// progress writer while being captured for the execution record.
type CLI struct {
	command      string
	args         []string
	manifestPath string
	timeout      time.Duration

	mu       sync.Mutex
	prepared bool
	manifest *config.Manifest
}

// NewCLI creates an engine adapter from config. Prepare must be called
// before the first Run.
func NewCLI(cfg *config.Config) *CLI {
	timeout := time.Duration(cfg.Engine.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &CLI{
		command:      cfg.Engine.Command,
		args:         cfg.Engine.Args,
		manifestPath: cfg.Engine.ManifestPath,
		timeout:      timeout,
	}
}

// Prepare verifies the engine binary is reachable and loads the
// tool-server manifest. Safe to call more than once; only the first
// call does the work.
func (c *CLI) Prepare(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.prepared {
		return nil
	}
	if _, err := exec.LookPath(c.command); err != nil {
		return fmt.Errorf("engine command not found: %w", err)
	}
	m, err := config.LoadManifest(c.manifestPath)
	if err != nil {
		return err
	}
	c.manifest = m
	c.prepared = true
	slog.Info("engine prepared", "command", c.command, "tool_servers", len(m.ToolServers))
	return nil
}

// Run executes one engine invocation. The returned ExecutionContext
// carries the full captured output even when the process fails.
func (c *CLI) Run(ctx context.Context, query string, fileManifest, uploadedFiles []string, progress io.Writer) (*types.ExecutionContext, error) {
	c.mu.Lock()
	prepared := c.prepared
	c.mu.Unlock()
	if !prepared {
		if err := c.Prepare(ctx); err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	args := append([]string(nil), c.args...)
	for _, f := range fileManifest {
		args = append(args, "--manifest-file", f)
	}
	for _, f := range uploadedFiles {
		args = append(args, "--uploaded-file", f)
	}

	cmd := exec.CommandContext(ctx, c.command, args...)
	cmd.Stdin = strings.NewReader(query)
	if c.manifestPath != "" {
		cmd.Env = append(cmd.Environ(), "TOOL_SERVER_MANIFEST="+c.manifestPath)
	}

	var captured bytes.Buffer
	sink := io.Writer(&captured)
	if progress != nil {
		sink = io.MultiWriter(progress, &captured)
	}
	cmd.Stdout = sink
	cmd.Stderr = sink

	start := time.Now()
	err := cmd.Run()
	result := &types.ExecutionContext{
		Query:    query,
		Output:   captured.String(),
		Duration: time.Since(start),
	}
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return result, fmt.Errorf("engine timed out after %s", c.timeout)
		}
		return result, fmt.Errorf("engine run failed: %w", err)
	}
	return result, nil
}
