package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// Config holds the client settings read from config.toml.
type Config struct {
	ServerURL        string
	LivePath         string
	PollInterval     time.Duration
	HandshakeTimeout time.Duration
	PromptCooldown   time.Duration
	LogFile          string
	LogLevel         string
	MetricsAddr      string
}

const (
	defaultConfigPath       = "~/.config/pulse/config.toml"
	defaultServerURL        = "http://127.0.0.1:5000"
	defaultLivePath         = "/live"
	defaultPollSeconds      = 30
	defaultHandshakeSeconds = 15
	defaultCooldownSeconds  = 300
	defaultLogFile          = "~/.local/state/pulse/pulse.log"
	defaultLogLevel         = "info"
)

// DefaultPath returns the default config file path.
func DefaultPath() string {
	return defaultConfigPath
}

// Default returns the configuration used when no file exists.
func Default() Config {
	return Config{
		ServerURL:        defaultServerURL,
		LivePath:         defaultLivePath,
		PollInterval:     defaultPollSeconds * time.Second,
		HandshakeTimeout: defaultHandshakeSeconds * time.Second,
		PromptCooldown:   defaultCooldownSeconds * time.Second,
		LogFile:          mustExpand(defaultLogFile),
		LogLevel:         defaultLogLevel,
	}
}

// Load locates and parses the pulse config, falling back to defaults when missing.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	cfg := Default()

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		ServerURL        string `toml:"server_url"`
		LivePath         string `toml:"live_path"`
		PollSeconds      int    `toml:"poll_seconds"`
		HandshakeSeconds int    `toml:"handshake_timeout_seconds"`
		CooldownSeconds  int    `toml:"prompt_cooldown_seconds"`
		LogFile          string `toml:"log_file"`
		LogLevel         string `toml:"log_level"`
		MetricsAddr      string `toml:"metrics_addr"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if v := strings.TrimSpace(raw.ServerURL); v != "" {
		cfg.ServerURL = v
	}
	if v := strings.TrimSpace(raw.LivePath); v != "" {
		if !strings.HasPrefix(v, "/") {
			v = "/" + v
		}
		cfg.LivePath = v
	}
	if raw.PollSeconds > 0 {
		cfg.PollInterval = time.Duration(raw.PollSeconds) * time.Second
	}
	if raw.HandshakeSeconds > 0 {
		cfg.HandshakeTimeout = time.Duration(raw.HandshakeSeconds) * time.Second
	}
	if raw.CooldownSeconds > 0 {
		cfg.PromptCooldown = time.Duration(raw.CooldownSeconds) * time.Second
	}
	if v := strings.TrimSpace(raw.LogFile); v != "" {
		cfg.LogFile = mustExpand(v)
	}
	if v := strings.ToLower(strings.TrimSpace(raw.LogLevel)); v != "" {
		cfg.LogLevel = v
	}
	cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)

	return cfg, nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
