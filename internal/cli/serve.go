package cli

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tessro/procd/internal/config"
	"github.com/tessro/procd/internal/daemon"
	"github.com/tessro/procd/internal/logging"
	"github.com/tessro/procd/internal/supervisor"
)

var (
	serveSocket   string
	serveServices string
	serveLogLevel string
	serveVerbose  bool
	serveWatch    bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the procd daemon in the foreground",
	Long:  "Run the procd daemon: bootstrap the declared services, listen for commands on the Unix socket, and stop all managed processes on shutdown.",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadGlobalConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := cfg.LogLevel()
	if serveLogLevel != "" {
		level = serveLogLevel
	}
	var cleanup func()
	if serveVerbose {
		cleanup, err = logging.SetupMulti(cfg.LogPath(), os.Stderr, logging.ParseLevel(level))
	} else {
		cleanup, err = logging.Setup(cfg.LogPath(), logging.ParseLevel(level))
	}
	if err != nil {
		return fmt.Errorf("set up logging: %w", err)
	}
	defer cleanup()

	// Refuse to start a second daemon against the same state directory.
	pidPath := daemon.DefaultPIDPath()
	if running, pid := daemon.IsDaemonRunning(pidPath); running {
		return fmt.Errorf("procd daemon already running (pid %d)", pid)
	}
	daemon.CleanStalePID(pidPath)
	if err := daemon.WritePID(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer func() { _ = daemon.RemovePID(pidPath) }()

	servicesPath := serveServices
	if servicesPath == "" {
		servicesPath, err = cfg.ServicesPath()
		if err != nil {
			return fmt.Errorf("resolve services path: %w", err)
		}
	}

	sv := supervisor.New(supervisor.Config{
		BufferChars:  cfg.BufferChars(),
		StopTimeout:  cfg.StopTimeout(),
		ServicesPath: servicesPath,
	})

	socket := serveSocket
	if socket == "" {
		socket = cfg.SocketPath()
	}
	server := daemon.NewServer(socket, sv)
	if err := server.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	defer server.Stop()

	// Bring up declared services once the socket is live.
	if err := sv.Bootstrap(servicesPath); err != nil {
		slog.Error("bootstrap failed", "error", err)
	}

	if serveWatch {
		stopWatch, err := sv.WatchServices(servicesPath)
		if err != nil {
			slog.Warn("services watch unavailable", "error", err)
		} else {
			defer stopWatch()
		}
	}

	fmt.Printf("procd daemon listening on %s\n", server.SocketPath())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("signal received, shutting down", "signal", sig.String())
	case <-sv.ShutdownRequested():
		slog.Info("shutdown requested over IPC")
	}

	// Managed processes do not survive the daemon.
	slog.Info("stopping all managed processes")
	sv.StopAll()

	return nil
}

func init() {
	serveCmd.Flags().StringVar(&serveSocket, "socket", "", "Unix socket path (overrides config)")
	serveCmd.Flags().StringVar(&serveServices, "services", "", "services file to bootstrap (overrides config)")
	serveCmd.Flags().StringVar(&serveLogLevel, "log-level", "", "log level: debug, info, warn, error")
	serveCmd.Flags().BoolVarP(&serveVerbose, "verbose", "v", false, "also log to stderr")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "reload services when the services file changes")
	rootCmd.AddCommand(serveCmd)
}
