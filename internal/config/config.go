package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all AUA configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Memory service configuration
	Memory MemoryConfig `yaml:"memory"`

	// Agent / executor settings
	Agent AgentConfig `yaml:"agent"`

	// Outbound HTTP settings
	HTTP HTTPConfig `yaml:"http"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// MemoryConfig configures the local store and remote graph sync.
type MemoryConfig struct {
	// SQLite database path for interactions and graph edges.
	DatabasePath string `yaml:"database_path"`

	// Primary remote graph endpoint.
	RemoteURL string `yaml:"remote_url"`

	// Alternate (e.g. tunneled) endpoint used when the primary is not set.
	FallbackRemoteURL string `yaml:"fallback_remote_url"`

	// Per-sync wall clock bound.
	SyncTimeout time.Duration `yaml:"sync_timeout"`

	// Transient fetch retries (4xx responses are never retried).
	MaxRetries int `yaml:"max_retries"`

	// Default number of interactions returned by context queries.
	RecentLimit int `yaml:"recent_limit"`

	// TTL for explicitly cached overview/context queries.
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// AgentConfig configures command execution.
type AgentConfig struct {
	// WorkspaceRoot scopes all filesystem and download operations.
	WorkspaceRoot string `yaml:"workspace_root"`

	// SensitiveEnvPatterns marks environment variable names whose values
	// are redacted in listings.
	SensitiveEnvPatterns []string `yaml:"sensitive_env_patterns"`

	// CommandTimeout bounds shelled-out version control commands.
	CommandTimeout time.Duration `yaml:"command_timeout"`
}

// HTTPConfig configures the http executor.
type HTTPConfig struct {
	AllowedSchemes []string      `yaml:"allowed_schemes"`
	Timeout        time.Duration `yaml:"timeout"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the baseline configuration before file and env overrides.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Name:    "aua",
		Version: "1.0.0",
		Memory: MemoryConfig{
			DatabasePath: filepath.Join(home, ".aua", "aua_memory.db"),
			SyncTimeout:  15 * time.Second,
			MaxRetries:   2,
			RecentLimit:  10,
			CacheTTL:     time.Minute,
		},
		Agent: AgentConfig{
			WorkspaceRoot:        mustGetwd(),
			SensitiveEnvPatterns: []string{"KEY", "TOKEN", "SECRET", "PASSWORD"},
			CommandTimeout:       60 * time.Second,
		},
		HTTP: HTTPConfig{
			AllowedSchemes: []string{"http", "https"},
			Timeout:        30 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func mustGetwd() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

// Load reads configuration from path (if it exists), layered over defaults,
// then applies environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides layers environment variables over file values.
// Env always wins so daemons can be repointed without editing the file.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("AUA_DB_PATH"); v != "" {
		c.Memory.DatabasePath = v
	}
	if v := os.Getenv("REMOTE_MEMORY_SERVER_URL"); v != "" {
		c.Memory.RemoteURL = v
	}
	if v := os.Getenv("REMOTE_MEMORY_FALLBACK_URL"); v != "" {
		c.Memory.FallbackRemoteURL = v
	}
	if v := os.Getenv("AUA_WORKSPACE_ROOT"); v != "" {
		c.Agent.WorkspaceRoot = v
	}
	if v := os.Getenv("AUA_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// EffectiveRemoteURL returns the primary endpoint, falling back to the
// alternate one. Empty means no remote graph is configured.
func (c *Config) EffectiveRemoteURL() string {
	if c.Memory.RemoteURL != "" {
		return c.Memory.RemoteURL
	}
	return c.Memory.FallbackRemoteURL
}

// Validate checks invariants that would otherwise surface as confusing
// runtime failures.
func (c *Config) Validate() error {
	if c.Agent.WorkspaceRoot == "" {
		return fmt.Errorf("agent.workspace_root must not be empty")
	}
	if c.Memory.SyncTimeout <= 0 {
		return fmt.Errorf("memory.sync_timeout must be positive, got %v", c.Memory.SyncTimeout)
	}
	if c.Memory.MaxRetries < 0 {
		return fmt.Errorf("memory.max_retries must not be negative, got %d", c.Memory.MaxRetries)
	}
	if c.Agent.CommandTimeout <= 0 {
		return fmt.Errorf("agent.command_timeout must be positive, got %v", c.Agent.CommandTimeout)
	}
	for _, raw := range []string{c.Memory.RemoteURL, c.Memory.FallbackRemoteURL} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid remote memory URL %q: %w", raw, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("remote memory URL %q must use http or https", raw)
		}
	}
	return nil
}
