package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/user/goalstream/internal/config"
)

func init() {
	rootCmd.AddCommand(setupCmd)
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		scanner := bufio.NewScanner(os.Stdin)

		fmt.Println("Goalstream Setup Wizard")
		fmt.Println("Press Enter to accept the default value shown in brackets.")
		fmt.Println()

		cfg.Addr = promptValue(scanner, "Listen address", cfg.Addr)
		cfg.MediaDir = promptValue(scanner, "Media directory", cfg.MediaDir)
		cfg.Engine.Command = promptValue(scanner, "Agent engine command", cfg.Engine.Command)
		cfg.Engine.ManifestPath = promptValue(scanner, "Tool server manifest", cfg.Engine.ManifestPath)

		timeoutStr := promptValue(scanner, "Engine timeout (seconds)", strconv.Itoa(cfg.Engine.TimeoutSeconds))
		if n, err := strconv.Atoi(timeoutStr); err == nil {
			cfg.Engine.TimeoutSeconds = n
		}

		cfg.Telegram.Token = promptValue(scanner, "Telegram bot token (optional)", cfg.Telegram.Token)
		if cfg.Telegram.Token != "" {
			chatStr := promptValue(scanner, "Telegram chat ID", strconv.FormatInt(cfg.Telegram.ChatID, 10))
			if n, err := strconv.ParseInt(chatStr, 10, 64); err == nil {
				cfg.Telegram.ChatID = n
			}
		}

		retentionStr := promptValue(scanner, "Enable report retention sweeps (true/false)", strconv.FormatBool(cfg.Retention.Enabled))
		if b, err := strconv.ParseBool(retentionStr); err == nil {
			cfg.Retention.Enabled = b
		}

		if err := config.Save(cfgPath, cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}

		fmt.Println()
		fmt.Println("Configuration saved to", cfgPath)
		return nil
	},
}

func promptValue(scanner *bufio.Scanner, label, def string) string {
	if def != "" {
		fmt.Printf("%s [%s]: ", label, def)
	} else {
		fmt.Printf("%s: ", label)
	}
	if !scanner.Scan() {
		return def
	}
	input := strings.TrimSpace(scanner.Text())
	if input == "" {
		return def
	}
	return input
}
