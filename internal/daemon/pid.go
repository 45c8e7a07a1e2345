package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/tessro/procd/internal/paths"
)

// The daemon records its PID on startup so a second `procd serve`
// against the same state directory refuses to start, and so a file left
// behind by a crash can be recognized as stale and cleared.

// DefaultPIDPath returns the default PID file path.
func DefaultPIDPath() string {
	return paths.PIDPath()
}

// WritePID records the current process in the PID file, creating the
// parent directory as needed.
func WritePID(path string) error {
	if path == "" {
		path = DefaultPIDPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create pid directory: %w", err)
	}

	data := strconv.Itoa(os.Getpid()) + "\n"
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	return nil
}

// ReadPID parses the PID file. A missing file surfaces as the raw
// not-exist error so callers can treat it as "no daemon".
func ReadPID(path string) (int, error) {
	if path == "" {
		path = DefaultPIDPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, err
		}
		return 0, fmt.Errorf("read pid file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parse pid: %w", err)
	}
	return pid, nil
}

// RemovePID deletes the PID file. A missing file is not an error.
func RemovePID(path string) error {
	if path == "" {
		path = DefaultPIDPath()
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove pid file: %w", err)
	}
	return nil
}

// IsProcessRunning reports whether a process with the given PID exists.
// Signal 0 probes without delivering anything; EPERM still proves the
// process is alive, just owned by someone else.
func IsProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	err = proc.Signal(syscall.Signal(0))
	switch {
	case err == nil:
		return true
	case errors.Is(err, syscall.EPERM):
		return true
	default:
		return false
	}
}

// IsDaemonRunning reads the PID file and probes the recorded process.
// A readable file naming a dead process reports not running.
func IsDaemonRunning(pidPath string) (bool, int) {
	pid, err := ReadPID(pidPath)
	if err != nil {
		return false, 0
	}
	if !IsProcessRunning(pid) {
		return false, 0
	}
	return true, pid
}

// CleanStalePID removes the PID file when its process is gone.
// Returns true if a stale file was cleared.
func CleanStalePID(pidPath string) bool {
	if running, _ := IsDaemonRunning(pidPath); running {
		return false
	}
	_ = RemovePID(pidPath)
	return true
}
