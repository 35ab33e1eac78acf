// Package config defines the maitred configuration schema.
//
// JSON keys use camelCase; missing keys fall back to defaults so a partial
// ~/.maitred/config.json is always usable.
package config

import (
	"os"
	"path/filepath"
)

// MistralConfig holds credentials for the hosted LLM provider.
type MistralConfig struct {
	APIKey  string `json:"apiKey"`
	APIBase string `json:"apiBase,omitempty"`
	Model   string `json:"model,omitempty"`
}

// ProvidersConfig groups LLM provider credentials.
type ProvidersConfig struct {
	Mistral MistralConfig `json:"mistral"`
}

// VoiceConfig configures the Bland-style outbound-call provider.
type VoiceConfig struct {
	APIKey              string `json:"apiKey"`
	APIBase             string `json:"apiBase,omitempty"`
	PollIntervalSeconds int    `json:"pollIntervalSeconds"`
	PollDeadlineSeconds int    `json:"pollDeadlineSeconds"`
	ScriptsPath         string `json:"scriptsPath,omitempty"`
}

func defaultVoiceConfig() VoiceConfig {
	return VoiceConfig{
		PollIntervalSeconds: 2,
		PollDeadlineSeconds: 300,
	}
}

// ConciergeConfig holds concierge behaviour defaults.
type ConciergeConfig struct {
	Workspace string `json:"workspace"`
	Model     string `json:"model"`
}

func defaultConciergeConfig() ConciergeConfig {
	return ConciergeConfig{
		Workspace: "~/.maitred/workspace",
	}
}

// TelegramNotifyConfig configures booking notifications over Telegram.
type TelegramNotifyConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token"`
	ChatID  string `json:"chatId"`
}

// SlackNotifyConfig configures booking notifications over Slack.
type SlackNotifyConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"botToken"`
	Channel  string `json:"channel"`
}

// NotificationsConfig groups all notification channels.
type NotificationsConfig struct {
	Telegram TelegramNotifyConfig `json:"telegram"`
	Slack    SlackNotifyConfig    `json:"slack"`
}

// RemindersConfig configures the reminder scheduler.
type RemindersConfig struct {
	Enabled    bool   `json:"enabled"`
	DigestCron string `json:"digestCron,omitempty"` // e.g. "0 9 * * *"
}

func defaultRemindersConfig() RemindersConfig {
	return RemindersConfig{Enabled: true}
}

// ServerConfig holds the tool-server listen settings.
type ServerConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

func defaultServerConfig() ServerConfig {
	return ServerConfig{Host: "127.0.0.1", Port: 18980}
}

// Config is the root configuration object, loaded from ~/.maitred/config.json.
type Config struct {
	Providers     ProvidersConfig     `json:"providers"`
	Voice         VoiceConfig         `json:"voice"`
	Concierge     ConciergeConfig     `json:"concierge"`
	Notifications NotificationsConfig `json:"notifications"`
	Reminders     RemindersConfig     `json:"reminders"`
	Server        ServerConfig        `json:"server"`
}

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() Config {
	return Config{
		Voice:     defaultVoiceConfig(),
		Concierge: defaultConciergeConfig(),
		Reminders: defaultRemindersConfig(),
		Server:    defaultServerConfig(),
	}
}

// WorkspacePath returns the expanded absolute path to the workspace.
func (c *Config) WorkspacePath() string {
	ws := c.Concierge.Workspace
	if ws == "" {
		ws = "~/.maitred/workspace"
	}
	return expandHome(ws)
}

// ScriptsPath returns the expanded call-scripts override path, "" when unset.
func (c *Config) ScriptsPath() string {
	if c.Voice.ScriptsPath == "" {
		return ""
	}
	return expandHome(c.Voice.ScriptsPath)
}

func expandHome(path string) string {
	if len(path) >= 2 && path[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
