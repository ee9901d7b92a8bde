// Package config loads and persists per-process configuration from the user
// config directory, with environment variables taking precedence over the
// file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/tenxhq/tenx/internal/chat"
	"github.com/tenxhq/tenx/internal/permission"
	"github.com/tenxhq/tenx/internal/router"
)

// Config holds the user's persistent preferences.
type Config struct {
	APIKey    string `json:"api_key,omitempty"`    // BYOK mode
	AuthToken string `json:"auth_token,omitempty"` // hosted mode
	BaseURL   string `json:"base_url,omitempty"`

	DefaultTier  chat.Tier        `json:"default_tier,omitempty"`
	RoutingMode  chat.RoutingMode `json:"routing_mode,omitempty"`
	SystemPrompt string           `json:"system_prompt,omitempty"`

	Permissions permission.Config `json:"permissions,omitempty"`

	MaxRetries    int `json:"max_retries,omitempty"`
	RetryDelayMs  int `json:"retry_delay_ms,omitempty"`
	MaxToolHops   int `json:"max_tool_hops,omitempty"`
	BashTimeoutMs int `json:"bash_timeout_ms,omitempty"`

	// Models maps tiers to upstream model ids. Missing tiers fall back to
	// the built-in table.
	Models map[chat.Tier]string `json:"models,omitempty"`

	// SuperpowerDir overrides the global superpower root
	// ($HOME/.config/10x/superpowers). The project root is always ./.10x.
	SuperpowerDir string `json:"superpower_dir,omitempty"`

	// SandboxMode selects the bash runner backend: host, docker, or auto.
	SandboxMode string `json:"sandbox_mode,omitempty"`
}

// Manager handles loading and saving the configuration.
type Manager struct {
	configDir string
}

// NewManager creates a manager rooted at the user config dir.
func NewManager() (*Manager, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("user config dir: %w", err)
	}
	return &Manager{configDir: filepath.Join(configDir, "10x")}, nil
}

// NewManagerAt creates a manager rooted at an explicit directory.
func NewManagerAt(dir string) *Manager {
	return &Manager{configDir: dir}
}

// Dir returns the config directory. Sessions persist beneath it.
func (m *Manager) Dir() string {
	return m.configDir
}

// Path returns the absolute path to config.json.
func (m *Manager) Path() string {
	return filepath.Join(m.configDir, "config.json")
}

// Load reads the configuration from disk, applies environment overrides, and
// fills defaults. A missing file is not an error.
func (m *Manager) Load() (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(m.Path())
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("read config file: %w", err)
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config json: %w", err)
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)

	if cfg.DefaultTier != "" {
		if _, err := chat.ParseTier(string(cfg.DefaultTier)); err != nil {
			return nil, err
		}
	}
	if cfg.RoutingMode != "" {
		if _, err := chat.ParseRoutingMode(string(cfg.RoutingMode)); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// Save writes the configuration with owner-only permissions.
func (m *Manager) Save(cfg *Config) error {
	if err := os.MkdirAll(m.configDir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(m.Path(), data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Exists reports whether config.json has been created.
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.Path())
	return !os.IsNotExist(err)
}

func applyEnv(cfg *Config) {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(dst *int, key string) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}

	setString(&cfg.APIKey, "TENX_API_KEY")
	setString(&cfg.AuthToken, "TENX_AUTH_TOKEN")
	setString(&cfg.BaseURL, "TENX_BASE_URL")
	setString(&cfg.SystemPrompt, "TENX_SYSTEM_PROMPT")
	setString(&cfg.SuperpowerDir, "TENX_SUPERPOWER_DIR")
	setString(&cfg.SandboxMode, "TENX_SANDBOX_MODE")
	if v := os.Getenv("TENX_DEFAULT_TIER"); v != "" {
		cfg.DefaultTier = chat.Tier(v)
	}
	if v := os.Getenv("TENX_ROUTING_MODE"); v != "" {
		cfg.RoutingMode = chat.RoutingMode(v)
	}
	setInt(&cfg.MaxRetries, "TENX_MAX_RETRIES")
	setInt(&cfg.RetryDelayMs, "TENX_RETRY_DELAY_MS")
	setInt(&cfg.MaxToolHops, "TENX_MAX_TOOL_HOPS")
	setInt(&cfg.BashTimeoutMs, "TENX_BASH_TIMEOUT_MS")
}

func applyDefaults(cfg *Config) {
	if cfg.DefaultTier == "" {
		cfg.DefaultTier = chat.TierSmart
	}
	if cfg.RoutingMode == "" {
		cfg.RoutingMode = chat.RouteAuto
	}
	if cfg.Permissions == nil {
		cfg.Permissions = permission.DefaultConfig()
	}
	defaults := router.DefaultModels()
	if cfg.Models == nil {
		cfg.Models = defaults
	} else {
		for tier, id := range defaults {
			if cfg.Models[tier] == "" {
				cfg.Models[tier] = id
			}
		}
	}
}
