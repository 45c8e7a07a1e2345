package supervisor

import (
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/tessro/procd/internal/config"
)

// Bootstrap starts every service declared in the given file. A missing
// file is a soft no-op. Each entry is started independently: one bad
// entry is logged and skipped, never aborting the rest. Because Start is
// idempotent for live processes, Bootstrap doubles as a reconciliation
// pass and is safe to re-run.
func (s *Supervisor) Bootstrap(path string) error {
	services, err := config.LoadServices(path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("no services config, skipping bootstrap", "path", path)
			return nil
		}
		return fmt.Errorf("load services: %w", err)
	}

	names := make([]string, 0, len(services))
	for name := range services {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		svc := services[name]
		if err := svc.Validate(); err != nil {
			slog.Error("invalid service entry", "name", name, "error", err)
			continue
		}
		info, err := s.Start(name, svc.Command, svc.Args, svc.Cwd, svc.Env)
		if err != nil {
			slog.Error("bootstrap service failed", "name", name, "error", err)
			continue
		}
		slog.Info("bootstrapped service", "name", name, "pid", info.PID)
	}
	return nil
}
