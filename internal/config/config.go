package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

type Config struct {
	Addr          string `json:"addr"`
	DataDir       string `json:"data_dir"`
	MediaDir      string `json:"media_dir"`
	TemplateDir   string `json:"template_dir"`
	BindingPath   string `json:"binding_path"`
	LogLevel      string `json:"log_level"`
	MaxConcurrent int    `json:"max_concurrent"`
	Engine        struct {
		Command         string   `json:"command"`
		Args            []string `json:"args"`
		ManifestPath    string   `json:"manifest_path"`
		TimeoutSeconds  int      `json:"timeout_seconds"`
		Model           string   `json:"model"`
		MaxPromptTokens int      `json:"max_prompt_tokens"`
	} `json:"engine"`
	Retention struct {
		Enabled    bool   `json:"enabled"`
		Schedule   string `json:"schedule"`
		MaxAgeDays int    `json:"max_age_days"`
	} `json:"retention"`
	Telegram struct {
		Token  string `json:"token"`
		ChatID int64  `json:"chat_id"`
	} `json:"telegram"`
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		Addr:          ":8000",
		DataDir:       filepath.Join(os.Getenv("HOME"), ".goalstream"),
		MediaDir:      "media",
		TemplateDir:   "prompts",
		BindingPath:   "sip_ui_binding.json",
		LogLevel:      "info",
		MaxConcurrent: 2,
	}
	cfg.Engine.Command = "sip-agent"
	cfg.Engine.ManifestPath = filepath.Join("config", "tool_servers.yaml")
	cfg.Engine.TimeoutSeconds = 600
	cfg.Engine.Model = "gpt-4"
	cfg.Engine.MaxPromptTokens = 100000
	cfg.Retention.Schedule = "0 3 * * *"
	cfg.Retention.MaxAgeDays = 30

	// Load from file if exists, otherwise write defaults
	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if os.IsNotExist(err) {
		if err := writeDefaults(path, cfg); err != nil {
			return nil, err
		}
	}

	// Override from env (highest precedence)
	if addr := os.Getenv("GOALSTREAM_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if cmd := os.Getenv("GOALSTREAM_ENGINE_COMMAND"); cmd != "" {
		cfg.Engine.Command = cmd
	}
	if tgToken := os.Getenv("TELEGRAM_BOT_TOKEN"); tgToken != "" {
		cfg.Telegram.Token = tgToken
	}

	return cfg, nil
}

func writeDefaults(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	data = append(data, '\n')
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename default config: %w", err)
	}
	return nil
}
