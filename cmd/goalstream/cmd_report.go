package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/user/goalstream/internal/report"
	"github.com/user/goalstream/internal/retention"
)

func init() {
	rootCmd.AddCommand(reportCmd)
	reportCmd.AddCommand(reportListCmd, reportClearCmd, reportPruneCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Manage generated reports",
}

var reportListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all generated reports",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		resolver := report.NewResolver(cfg.MediaDir)

		reports := resolver.ListAll()
		if len(reports) == 0 {
			fmt.Println("No reports found.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SESSION\tFILENAME\tMODIFIED")
		for _, r := range reports {
			fmt.Fprintf(w, "%s\t%s\t%s\n",
				r.SessionID,
				r.Filename,
				r.ModTime.Format("2006-01-02 15:04:05"),
			)
		}
		return w.Flush()
	},
}

var reportClearCmd = &cobra.Command{
	Use:   "clear <session|all>",
	Short: "Remove a session's reports or all reports",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		generatedDir := filepath.Join(cfg.MediaDir, "generated")

		if args[0] == "all" {
			if err := os.RemoveAll(generatedDir); err != nil {
				return fmt.Errorf("remove generated directory: %w", err)
			}
			fmt.Println("All reports cleared.")
			return nil
		}

		// Remove specific session directory (validate path to prevent traversal)
		sessionDir := filepath.Join(generatedDir, args[0])
		resolved, err := filepath.Abs(sessionDir)
		if err != nil {
			return fmt.Errorf("resolve path: %w", err)
		}
		absGeneratedDir, _ := filepath.Abs(generatedDir)
		if !strings.HasPrefix(resolved, absGeneratedDir+string(filepath.Separator)) {
			return fmt.Errorf("invalid session: %s", args[0])
		}
		if _, err := os.Stat(sessionDir); os.IsNotExist(err) {
			return fmt.Errorf("session not found: %s", args[0])
		}
		if err := os.RemoveAll(sessionDir); err != nil {
			return fmt.Errorf("remove session directory: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Session %s cleared.\n", args[0])
		return nil
	},
}

var reportPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Remove sessions older than the retention window now",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		sweeper := retention.New(cfg.MediaDir, cfg.Retention.Schedule, cfg.Retention.MaxAgeDays)

		removed, err := sweeper.Sweep()
		if err != nil {
			return fmt.Errorf("prune reports: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Removed %d expired session(s).\n", removed)
		return nil
	},
}
