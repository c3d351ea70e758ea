package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/user/goalstream/internal/engine"
	"github.com/user/goalstream/internal/form"
	"github.com/user/goalstream/internal/history"
	"github.com/user/goalstream/internal/notify"
	"github.com/user/goalstream/internal/prompt"
	"github.com/user/goalstream/internal/report"
	"github.com/user/goalstream/internal/retention"
	"github.com/user/goalstream/internal/server"
	"github.com/user/goalstream/internal/service"
	"github.com/user/goalstream/internal/stream"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the goalstream daemon",
	RunE:  runServe,
}

func writePIDFile(dataDir string) (string, error) {
	pidPath := filepath.Join(dataDir, "goalstream.pid")
	pid := os.Getpid()
	if err := os.WriteFile(pidPath, []byte(strconv.Itoa(pid)+"\n"), 0644); err != nil {
		return "", fmt.Errorf("write PID file: %w", err)
	}
	return pidPath, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	setupLogging(cfg)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(cfg.MediaDir, "generated"), 0755); err != nil {
		return fmt.Errorf("create media dir: %w", err)
	}

	pidPath, err := writePIDFile(cfg.DataDir)
	if err != nil {
		return err
	}
	defer os.Remove(pidPath)

	// Form binding and prompt templates
	loader := form.NewLoader(cfg.BindingPath)
	if err := loader.Load(); err != nil {
		return fmt.Errorf("load form binding: %w", err)
	}
	renderer, err := prompt.NewRenderer(cfg.TemplateDir, cfg.Engine.Model, cfg.Engine.MaxPromptTokens)
	if err != nil {
		return fmt.Errorf("create prompt renderer: %w", err)
	}
	if err := renderer.EnsureDefaults(); err != nil {
		return fmt.Errorf("write default templates: %w", err)
	}

	// Streaming core
	broker := stream.NewBroker()
	slot := stream.NewSlot(os.Stdout)
	cli := engine.NewCLI(cfg)
	runner := service.New(broker, cli, engine.NewSummarizer(), slot, cfg.MaxConcurrent)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := runner.Initialize(ctx); err != nil {
		// The engine binary may be installed after startup; the first
		// execution retries initialization.
		slog.Warn("engine not ready at startup", "error", err)
	}
	defer runner.Shutdown(context.Background())

	events := history.NewStore(cfg.DataDir)
	orch := stream.NewOrchestrator(broker, runner, events)
	resolver := report.NewResolver(cfg.MediaDir)

	// Notifications
	notifyReg := notify.NewRegistry()
	if cfg.Telegram.Token != "" {
		tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID)
		if err != nil {
			return fmt.Errorf("create telegram notifier: %w", err)
		}
		notifyReg.Register("telegram", tg.Send)
		slog.Info("telegram notifications enabled", "chat_id", cfg.Telegram.ChatID)
	} else {
		slog.Warn("telegram notifications disabled (no token)")
	}

	// Retention sweeper
	if cfg.Retention.Enabled {
		sweeper := retention.New(cfg.MediaDir, cfg.Retention.Schedule, cfg.Retention.MaxAgeDays)
		if err := sweeper.Start(); err != nil {
			return fmt.Errorf("start retention sweeper: %w", err)
		}
		defer sweeper.Stop()
	}

	srv := server.New(loader, renderer, orch, resolver, events, cfg.BindingPath, cfg.MediaDir, notifyReg.ReportReady)
	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: srv,
	}
	go func() {
		slog.Info("goalstream started",
			"addr", cfg.Addr,
			"data_dir", cfg.DataDir,
			"media_dir", cfg.MediaDir,
			"engine", cfg.Engine.Command,
			"max_concurrent", cfg.MaxConcurrent,
			"pid_file", pidPath,
		)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("http server error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		httpServer.Close()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for {
		sig := <-sigChan
		if sig == syscall.SIGHUP {
			slog.Info("received SIGHUP, restarting")
			execPath, err := os.Executable()
			if err != nil {
				slog.Error("failed to get executable path", "error", err)
				continue
			}
			os.Remove(pidPath)
			if err := syscall.Exec(execPath, os.Args, os.Environ()); err != nil {
				slog.Error("failed to re-exec", "error", err)
				if _, writeErr := writePIDFile(cfg.DataDir); writeErr != nil {
					slog.Error("failed to re-write PID file", "error", writeErr)
				}
				continue
			}
		}
		slog.Info("shutting down", "signal", sig)
		return nil
	}
}
