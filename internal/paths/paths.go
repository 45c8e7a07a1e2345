// Package paths provides a single source of truth for procd file paths.
// All path helpers honor environment variable overrides for isolated testing.
//
// Path resolution precedence:
//  1. Specific env vars (PROCD_SOCKET_PATH, PROCD_PID_PATH) take highest priority
//  2. PROCD_DIR env var sets the base directory (derives socket/pid/log/services)
//  3. Default behavior (~/.procd, ~/.config/procd) when no env vars are set
package paths

import (
	"os"
	"path/filepath"
)

// Environment variable names for path overrides.
const (
	// EnvProcdDir is the base directory override (e.g., /tmp/procd-test).
	// When set, socket, PID, and log paths derive from this directory.
	EnvProcdDir = "PROCD_DIR"

	// EnvSocketPath overrides the socket path directly.
	EnvSocketPath = "PROCD_SOCKET_PATH"

	// EnvPIDPath overrides the PID file path directly.
	EnvPIDPath = "PROCD_PID_PATH"
)

// BaseDir returns the procd base directory (~/.procd by default).
// Honors PROCD_DIR environment variable.
func BaseDir() (string, error) {
	if dir := os.Getenv(EnvProcdDir); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".procd"), nil
}

// ConfigDir returns the procd config directory (~/.config/procd by default).
// When PROCD_DIR is set, returns PROCD_DIR/config instead.
func ConfigDir() (string, error) {
	if dir := os.Getenv(EnvProcdDir); dir != "" {
		return filepath.Join(dir, "config"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "procd"), nil
}

// ConfigPath returns the path to the global procd config file
// (~/.config/procd/config.toml by default, or PROCD_DIR/config/config.toml).
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ServicesPath returns the path to the declarative services file
// (~/.config/procd/services.json by default, or PROCD_DIR/config/services.json).
func ServicesPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "services.json"), nil
}

// SocketPath returns the daemon socket path.
// Honors PROCD_SOCKET_PATH, then PROCD_DIR, then defaults to ~/.procd/procd.sock.
func SocketPath() string {
	if path := os.Getenv(EnvSocketPath); path != "" {
		return path
	}
	base, err := BaseDir()
	if err != nil {
		return "/tmp/procd.sock"
	}
	return filepath.Join(base, "procd.sock")
}

// PIDPath returns the daemon PID file path.
// Honors PROCD_PID_PATH, then PROCD_DIR, then defaults to ~/.procd/procd.pid.
func PIDPath() string {
	if path := os.Getenv(EnvPIDPath); path != "" {
		return path
	}
	base, err := BaseDir()
	if err != nil {
		return "/tmp/procd.pid"
	}
	return filepath.Join(base, "procd.pid")
}

// LogPath returns the daemon log file path (~/.procd/procd.log by default).
func LogPath() string {
	base, err := BaseDir()
	if err != nil {
		return "/tmp/procd.log"
	}
	return filepath.Join(base, "procd.log")
}
