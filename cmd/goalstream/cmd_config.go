package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/user/goalstream/internal/config"
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd, configListCmd, configGetCmd, configSetCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and edit service settings",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective settings, grouped by concern",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		fmt.Fprint(os.Stdout, renderSettings(cfg))
		return nil
	},
}

// renderSettings formats the config the way an operator reads it:
// service, engine, retention, and notification settings in that order,
// with the bot token masked.
func renderSettings(cfg *config.Config) string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)

	fmt.Fprintln(w, "Service")
	fmt.Fprintf(w, "  addr\t%s\n", cfg.Addr)
	fmt.Fprintf(w, "  data dir\t%s\n", cfg.DataDir)
	fmt.Fprintf(w, "  media dir\t%s\n", cfg.MediaDir)
	fmt.Fprintf(w, "  template dir\t%s\n", cfg.TemplateDir)
	fmt.Fprintf(w, "  form binding\t%s\n", cfg.BindingPath)
	fmt.Fprintf(w, "  log level\t%s\n", cfg.LogLevel)
	fmt.Fprintf(w, "  max concurrent runs\t%d\n", cfg.MaxConcurrent)

	fmt.Fprintln(w, "Engine")
	fmt.Fprintf(w, "  command\t%s\n", cfg.Engine.Command)
	args := "(none)"
	if len(cfg.Engine.Args) > 0 {
		args = strings.Join(cfg.Engine.Args, " ")
	}
	fmt.Fprintf(w, "  args\t%s\n", args)
	fmt.Fprintf(w, "  tool-server manifest\t%s\n", cfg.Engine.ManifestPath)
	fmt.Fprintf(w, "  timeout\t%s\n", time.Duration(cfg.Engine.TimeoutSeconds)*time.Second)
	fmt.Fprintf(w, "  model\t%s\n", cfg.Engine.Model)
	fmt.Fprintf(w, "  prompt token limit\t%d\n", cfg.Engine.MaxPromptTokens)

	fmt.Fprintln(w, "Retention")
	fmt.Fprintf(w, "  enabled\t%v\n", cfg.Retention.Enabled)
	fmt.Fprintf(w, "  schedule\t%s\n", cfg.Retention.Schedule)
	fmt.Fprintf(w, "  max report age\t%d days\n", cfg.Retention.MaxAgeDays)

	fmt.Fprintln(w, "Telegram")
	fmt.Fprintf(w, "  token\t%s\n", maskedToken(cfg.Telegram.Token))
	fmt.Fprintf(w, "  chat id\t%d\n", cfg.Telegram.ChatID)

	w.Flush()
	return b.String()
}

func maskedToken(token string) string {
	if token == "" {
		return "(not set)"
	}
	masked := config.MaskSecrets(map[string]any{"telegram.token": token})
	return masked["telegram.token"].(string)
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every setting as a flat key=value pair",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		values, err := config.ListValues(cfg, true)
		if err != nil {
			return fmt.Errorf("list settings: %w", err)
		}
		for _, k := range config.SortedKeys(values) {
			fmt.Fprintf(os.Stdout, "%s = %v\n", k, values[k])
		}
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one setting (e.g. engine.command, retention.max_age_days)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		val, err := config.GetValue(cfgPath, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(os.Stdout, val)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change one setting in the config file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.SetValue(cfgPath, args[0], args[1]); err != nil {
			return err
		}
		display := args[1]
		if config.IsSecretKey(args[0]) {
			display = maskedToken(args[1])
		}
		fmt.Fprintf(os.Stdout, "%s -> %s (restart the daemon to apply)\n", args[0], display)
		return nil
	},
}
