// Package config loads agent settings from YAML with environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the merged agent configuration.
type Config struct {
	API struct {
		// Key is the literal API key. KeyEnv names an environment
		// variable to read instead; the standard variables win over both.
		Key       string `yaml:"key"`
		KeyEnv    string `yaml:"key_env"`
		BaseURL   string `yaml:"base_url"`
		Model     string `yaml:"model"`
		MaxTokens int    `yaml:"max_tokens"`
		// TimeoutMS bounds one full conversation turn, retries included.
		TimeoutMS int `yaml:"timeout_ms"`
	} `yaml:"api"`

	Agent struct {
		MaxTurns   int    `yaml:"max_turns"`
		MaxHistory int    `yaml:"max_history_messages"`
		System     string `yaml:"system_prompt"`
	} `yaml:"agent"`

	AutoSave bool   `yaml:"auto_save"`
	LogPath  string `yaml:"log_path"`
}

// Load reads the YAML file at path, fills defaults, and applies
// environment overrides. A missing file is not an error; defaults apply.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	// Key resolution priority: ANTHROPIC_API_KEY, then ANTHROPIC_AUTH_TOKEN,
	// then the configured key_env variable, then the literal key.
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.API.Key = v
	} else if v := os.Getenv("ANTHROPIC_AUTH_TOKEN"); v != "" {
		cfg.API.Key = v
	} else if cfg.API.KeyEnv != "" {
		if v := os.Getenv(cfg.API.KeyEnv); v != "" {
			cfg.API.Key = v
		}
	}
	if v := os.Getenv("ANTHROPIC_BASE_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("API_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			cfg.API.TimeoutMS = ms
		}
	}

	// Defaults
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "https://api.anthropic.com"
	}
	if cfg.API.Model == "" {
		cfg.API.Model = "claude-sonnet-4-5-20250929"
	}
	if cfg.API.MaxTokens == 0 {
		cfg.API.MaxTokens = 8192
	}
	if cfg.API.TimeoutMS == 0 {
		// Must stay above the client's 120s retry budget.
		cfg.API.TimeoutMS = 180_000
	}
	if cfg.Agent.MaxTurns == 0 {
		cfg.Agent.MaxTurns = 10
	}
	if cfg.Agent.MaxHistory == 0 {
		cfg.Agent.MaxHistory = 50
	}

	return cfg, nil
}
