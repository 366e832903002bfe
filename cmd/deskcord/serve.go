package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	deskcord "tools.zach/dev/deskcord"
	"tools.zach/dev/deskcord/internal/atomicfile"
	"tools.zach/dev/deskcord/internal/bridge"
	"tools.zach/dev/deskcord/internal/config"
	"tools.zach/dev/deskcord/internal/logger"
	"tools.zach/dev/deskcord/internal/paths"
	"tools.zach/dev/deskcord/internal/presence"
	"tools.zach/dev/deskcord/internal/update"
	"tools.zach/dev/deskcord/internal/window"
)

// ///////////////////////////////////////////////
// serve
// ///////////////////////////////////////////////

func newServeCmd(opts *rootOptions) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bridge for the shell",
		Long: `Start the loopback HTTP bridge. The shell calls presence and window
commands through it, and it keeps the Discord connection open until the
process is stopped.

Only one instance runs per data directory.`,
		Example: `  # Start on the configured address
  deskcord serve

  # Log to the terminal too
  deskcord serve --verbose

  # Use another port for this run
  deskcord serve --listen 127.0.0.1:48000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), shutdownSignals...)
			defer stop()
			var console io.Writer
			if opts.verbose {
				console = cmd.ErrOrStderr()
			}
			return serve(ctx, opts.paths(), listen, console)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "address to bind instead of server.listen")
	return cmd
}

// serve runs the bridge until ctx is done.
func serve(ctx context.Context, dd paths.DataDir, listen string, console io.Writer) error {
	if err := os.MkdirAll(dd.Root, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if alive, pid := runningInstance(dd); alive {
		return fmt.Errorf("deskcord is already running (pid %d)", pid)
	}

	cfg, err := config.Load(dd.Root)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(logger.Options{
		Path:      dd.Log(),
		Level:     cfg.Log.Level,
		MaxSizeMB: cfg.Log.MaxSizeMB,
		Console:   console,
	})
	defer log.Close()
	slog.SetDefault(log.Logger)

	ver := resolveVersion()
	slog.Info("deskcord starting", "version", ver, "data_dir", dd.Root)
	writeDefaultConfig(dd)

	token := pidToken()
	pidFile, err := acquirePID(dd, token)
	if err != nil {
		return err
	}
	defer releasePID(dd, token, pidFile)

	catalog, err := window.LoadCatalogFile(dd.AllowedProcesses(), deskcord.DefaultAllowedProcesses)
	if err != nil {
		return fmt.Errorf("load allowed processes: %w", err)
	}
	platform, err := window.NewPlatform()
	if err != nil {
		slog.Warn("window queries unavailable", "error", err)
	}
	defer platform.Close()

	scanner := window.NewScanner(catalog, platform, cfg.Privacy.Ignore)
	monitor := window.NewMonitor(scanner, cfg.AutoCheckInterval())

	app := bridge.NewApp(bridge.AppOptions{
		Supervisor: presence.NewSupervisor(presence.Options{
			Attempts: cfg.Connect.Attempts,
			Delay:    cfg.ConnectDelay(),
			Coalesce: cfg.Presence.CoalesceUpdates,
		}),
		Scanner:    scanner,
		Monitor:    monitor,
		Config:     cfg,
		ConfigPath: dd.Config(),
		Version:    ver,
		OnConfig: func(c *config.Config) {
			log.Level.Set(logger.ParseLevel(c.Log.Level))
		},
	})
	defer app.Shutdown()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go monitor.Run(ctx)

	if watcher, werr := config.NewWatcher(dd.Root); werr != nil {
		slog.Warn("config hot reload disabled", "error", werr)
	} else {
		defer watcher.Close()
		if watcher.Polling() {
			slog.Info("using polling mode for config reloads")
		}
		go config.Follow(watcher, dd.Root, ctx.Done(), app.ApplyConfig)
	}

	if cfg.Behavior.CheckUpdates {
		go func() {
			defer func() {
				if r := recover(); r != nil {
					slog.Error("update check panic", "error", r)
				}
			}()
			update.Check(ctx, update.NewChecker(), ver)
		}()
	}

	addr := cfg.Server.Listen
	if listen != "" {
		addr = listen
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Fail(log.Logger, "cannot bind bridge", "addr", addr, "error", err)
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	err = bridge.NewServer(app, monitor, cfg.Server.AllowedOrigins).Serve(ctx, ln)
	slog.Info("deskcord stopping")
	return err
}

// writeDefaultConfig drops the commented default config into a data
// directory that has none, so users have something to edit.
func writeDefaultConfig(dd paths.DataDir) {
	err := atomicfile.WriteNew(dd.Config(), deskcord.DefaultConfigTOML, 0o644)
	switch {
	case errors.Is(err, atomicfile.ErrExists):
	case err != nil:
		slog.Warn("failed to write default config", "path", dd.Config(), "error", err)
	default:
		slog.Info("wrote default config", "path", dd.Config())
	}
}
