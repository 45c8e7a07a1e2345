// Package config provides configuration loading for procd.
package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/tessro/procd/internal/paths"
)

// Defaults for the daemon configuration.
const (
	// DefaultBufferChars is the per-stream output ring buffer budget.
	DefaultBufferChars = 100_000

	// DefaultStopTimeout is how long stop waits after SIGTERM before
	// escalating to SIGKILL.
	DefaultStopTimeout = 10 * time.Second
)

// GlobalConfig represents the global procd configuration (config.toml).
type GlobalConfig struct {
	// Daemon contains daemon-level settings.
	Daemon DaemonConfig `toml:"daemon"`
}

// DaemonConfig contains daemon-level settings.
type DaemonConfig struct {
	// SocketPath overrides the Unix socket path.
	SocketPath string `toml:"socket-path"`

	// LogPath overrides the log file path.
	LogPath string `toml:"log-path"`

	// LogLevel is the logging verbosity ("debug", "info", "warn", "error").
	LogLevel string `toml:"log-level"`

	// BufferChars is the per-stream output buffer budget in characters.
	BufferChars int `toml:"buffer-chars"`

	// StopTimeoutSeconds is the graceful-stop wait before SIGKILL escalation.
	StopTimeoutSeconds int `toml:"stop-timeout-seconds"`

	// Services overrides the declarative services file path.
	Services string `toml:"services"`
}

// LoadGlobalConfig loads the global procd configuration.
// Returns nil config and nil error if the file doesn't exist.
func LoadGlobalConfig() (*GlobalConfig, error) {
	path, err := paths.ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadGlobalConfigFromPath(path)
}

// LoadGlobalConfigFromPath loads the global config from a specific path.
// Returns nil config and nil error if the file doesn't exist.
func LoadGlobalConfigFromPath(path string) (*GlobalConfig, error) {
	var cfg GlobalConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return &cfg, nil
}

// BufferChars returns the configured buffer budget or the default.
func (c *GlobalConfig) BufferChars() int {
	if c != nil && c.Daemon.BufferChars > 0 {
		return c.Daemon.BufferChars
	}
	return DefaultBufferChars
}

// StopTimeout returns the configured graceful-stop timeout or the default.
func (c *GlobalConfig) StopTimeout() time.Duration {
	if c != nil && c.Daemon.StopTimeoutSeconds > 0 {
		return time.Duration(c.Daemon.StopTimeoutSeconds) * time.Second
	}
	return DefaultStopTimeout
}

// LogPath returns the configured log file path (empty means default).
func (c *GlobalConfig) LogPath() string {
	if c == nil {
		return ""
	}
	return c.Daemon.LogPath
}

// LogLevel returns the configured log level string (empty means default).
func (c *GlobalConfig) LogLevel() string {
	if c == nil {
		return ""
	}
	return c.Daemon.LogLevel
}

// SocketPath returns the configured socket path or the paths default.
func (c *GlobalConfig) SocketPath() string {
	if c != nil && c.Daemon.SocketPath != "" {
		return c.Daemon.SocketPath
	}
	return paths.SocketPath()
}

// ServicesPath returns the configured services file path or the paths default.
func (c *GlobalConfig) ServicesPath() (string, error) {
	if c != nil && c.Daemon.Services != "" {
		return c.Daemon.Services, nil
	}
	return paths.ServicesPath()
}
