package supervisor

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tessro/procd/internal/logging"
)

// watchDebounce coalesces bursts of filesystem events (editors often
// write a file several times in quick succession).
const watchDebounce = 500 * time.Millisecond

// WatchServices re-runs the bootstrap reconciliation pass whenever the
// services file changes. The parent directory is watched rather than the
// file itself so atomic rename-into-place saves are observed. Returns a
// stop function that releases the watcher.
func (s *Supervisor) WatchServices(path string) (stop func(), err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	base := filepath.Base(path)
	go func() {
		defer logging.LogPanic("services-watcher", nil)

		var debounce *time.Timer
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != base {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				slog.Debug("services file changed", "path", path, "op", event.Op.String())
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(watchDebounce, func() {
					slog.Info("reloading services after change", "path", path)
					if err := s.Bootstrap(path); err != nil {
						slog.Error("services reload failed", "path", path, "error", err)
					}
				})
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("services watcher error", "error", err)
			}
		}
	}()

	slog.Info("watching services file", "path", path)
	return func() { watcher.Close() }, nil
}
