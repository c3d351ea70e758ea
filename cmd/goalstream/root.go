package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/user/goalstream/internal/config"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "goalstream",
	Short: "SIP goal planning service",
	Long:  "Goalstream runs the SIP goal-planning web service: form validation,\nagent-backed analysis streaming over SSE, and generated-report serving.",
}

func init() {
	defaultPath := filepath.Join(os.Getenv("HOME"), ".goalstream", "config.json")
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", defaultPath, "config file path")
}

// loadConfig loads the config file, exiting on failure. Subcommands that
// can work without a daemon still need the shared paths from it.
func loadConfig() *config.Config {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func setupLogging(cfg *config.Config) {
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
