// Package config provides configuration management for the idebridge server.
//
// Configuration controls:
//   - Capability mode (readonly vs full): determines which tools are available
//   - Host transport settings: address, port, timeout, dial retries
//   - Cold-start polling: attempts and backoff while the host index warms up
//   - Workspace root: where launch.json and relative paths are anchored
//
// Configuration is resolved in three layers: built-in defaults, an optional
// JSON file, then environment variables (a .env file is honored via
// godotenv). The readonly mode exposes only inspection tools, while full
// mode enables session and breakpoint mutation.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// CapabilityMode defines the level of host capabilities exposed
type CapabilityMode string

const (
	ModeReadOnly CapabilityMode = "readonly" // Inspection tools only
	ModeFull     CapabilityMode = "full"     // All tools enabled
)

// Environment variables recognized after file-based configuration.
const (
	EnvHostAddr       = "IDEBRIDGE_HOST_ADDR"
	EnvHostPort       = "IDEBRIDGE_HOST_PORT"
	EnvMode           = "IDEBRIDGE_MODE"
	EnvWorkspace      = "IDEBRIDGE_WORKSPACE"
	EnvTimeoutSeconds = "IDEBRIDGE_TIMEOUT_SECONDS"
)

// DefaultHostPort is the fixed port the editor host listens on unless
// overridden by configuration or IDEBRIDGE_HOST_PORT.
const DefaultHostPort = 8991

// Config holds the server configuration
type Config struct {
	// Capability level
	Mode CapabilityMode `json:"mode"`

	// Workspace root; launch.json discovery and workspace-relative paths
	// are anchored here
	Workspace string `json:"workspace"`

	// Host transport settings
	Host HostConfig `json:"host"`

	// Cold-start polling while the host symbol index warms up
	ColdStart ColdStartConfig `json:"coldStart"`
}

// HostConfig holds settings for the HTTP/WebSocket hop to the editor host
type HostConfig struct {
	Addr           string `json:"addr"`           // Host address, default 127.0.0.1
	Port           int    `json:"port"`           // Host port, default 8991
	TimeoutSeconds int    `json:"timeoutSeconds"` // Per-request timeout
	DialRetries    int    `json:"dialRetries"`    // Attempts when the connection is refused
	DialRetryMs    int    `json:"dialRetryMs"`    // Delay between dial attempts
}

// ColdStartConfig bounds the retry loop that distinguishes a warming index
// from an empty result
type ColdStartConfig struct {
	MaxAttempts    int `json:"maxAttempts"`
	InitialDelayMs int `json:"initialDelayMs"`
	MaxDelayMs     int `json:"maxDelayMs"`
}

// BaseURL returns the host's HTTP endpoint root.
func (h HostConfig) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", h.Addr, h.Port)
}

// EventsURL returns the host's WebSocket event-stream endpoint.
func (h HostConfig) EventsURL() string {
	return fmt.Sprintf("ws://%s:%d/events", h.Addr, h.Port)
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Mode:      ModeFull,
		Workspace: ".",
		Host: HostConfig{
			Addr:           "127.0.0.1",
			Port:           DefaultHostPort,
			TimeoutSeconds: 10,
			DialRetries:    3,
			DialRetryMs:    200,
		},
		ColdStart: ColdStartConfig{
			MaxAttempts:    5,
			InitialDelayMs: 150,
			MaxDelayMs:     2000,
		},
	}
}

// LoadConfig loads configuration from defaults, an optional JSON file, and
// the environment, in that order. A .env file next to the working directory
// is loaded first so that environment overrides work the same in development
// and under an MCP client.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnv overlays environment variables onto the configuration.
func (c *Config) applyEnv() {
	if addr := os.Getenv(EnvHostAddr); addr != "" {
		c.Host.Addr = addr
	}
	if port := os.Getenv(EnvHostPort); port != "" {
		if p, err := strconv.Atoi(port); err == nil && p > 0 {
			c.Host.Port = p
		}
	}
	if mode := os.Getenv(EnvMode); mode != "" {
		c.Mode = CapabilityMode(mode)
	}
	if ws := os.Getenv(EnvWorkspace); ws != "" {
		c.Workspace = ws
	}
	if timeout := os.Getenv(EnvTimeoutSeconds); timeout != "" {
		if t, err := strconv.Atoi(timeout); err == nil && t > 0 {
			c.Host.TimeoutSeconds = t
		}
	}
}

func (c *Config) validate() error {
	switch c.Mode {
	case ModeReadOnly, ModeFull:
	default:
		return fmt.Errorf("invalid mode %q: must be %q or %q", c.Mode, ModeReadOnly, ModeFull)
	}
	if c.Host.Port <= 0 || c.Host.Port > 65535 {
		return fmt.Errorf("invalid host port %d", c.Host.Port)
	}
	if c.ColdStart.MaxAttempts < 1 {
		return fmt.Errorf("coldStart.maxAttempts must be at least 1, got %d", c.ColdStart.MaxAttempts)
	}
	return nil
}

// CanUseControlTools returns true if session and breakpoint mutation tools
// are enabled
func (c *Config) CanUseControlTools() bool {
	return c.Mode == ModeFull
}
