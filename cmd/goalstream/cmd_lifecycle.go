package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/user/goalstream/internal/report"
)

func init() {
	rootCmd.AddCommand(statusCmd, stopCmd, restartCmd)
}

// readPIDFile parses the daemon's PID file. The file holds one decimal
// PID with a trailing newline, as written by `goalstream serve`.
func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("goalstream is not running (no PID file at %s)", path)
		}
		return 0, fmt.Errorf("read PID file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("PID file %s is corrupt: %w", path, err)
	}
	return pid, nil
}

// findDaemon locates the running daemon through its PID file and
// confirms the process is alive with a null signal.
func findDaemon(dataDir string) (int, error) {
	pid, err := readPIDFile(filepath.Join(dataDir, "goalstream.pid"))
	if err != nil {
		return 0, err
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0, fmt.Errorf("find process %d: %w", pid, err)
	}
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		return 0, fmt.Errorf("goalstream is not running (stale PID %d)", pid)
	}
	return pid, nil
}

func signalDaemon(sig syscall.Signal) (int, error) {
	cfg := loadConfig()
	pid, err := findDaemon(cfg.DataDir)
	if err != nil {
		return 0, err
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return 0, fmt.Errorf("find process: %w", err)
	}
	if err := proc.Signal(sig); err != nil {
		return 0, fmt.Errorf("signal daemon: %w", err)
	}
	return pid, nil
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the daemon is running and what it has produced",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		if pid, err := findDaemon(cfg.DataDir); err != nil {
			fmt.Fprintln(os.Stdout, err)
		} else {
			fmt.Fprintf(os.Stdout, "goalstream is running (pid %d) on %s\n", pid, cfg.Addr)
		}

		reports := report.NewResolver(cfg.MediaDir).ListAll()
		fmt.Fprintf(os.Stdout, "Generated reports: %d (under %s)\n", len(reports), filepath.Join(cfg.MediaDir, "generated"))
		return nil
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running daemon",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pid, err := signalDaemon(syscall.SIGTERM)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Stopping goalstream daemon (pid %d). In-flight streams finish their closing frames.\n", pid)
		return nil
	},
}

var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart the running daemon in place",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pid, err := signalDaemon(syscall.SIGHUP)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Restarting goalstream daemon (pid %d); it re-execs with the current config.\n", pid)
		return nil
	},
}
