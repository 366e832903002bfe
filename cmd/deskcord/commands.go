package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	deskcord "tools.zach/dev/deskcord"
	"tools.zach/dev/deskcord/internal/atomicfile"
	"tools.zach/dev/deskcord/internal/bridge"
	"tools.zach/dev/deskcord/internal/config"
	"tools.zach/dev/deskcord/internal/discord"
	"tools.zach/dev/deskcord/internal/logger"
	"tools.zach/dev/deskcord/internal/paths"
	"tools.zach/dev/deskcord/internal/presence"
	"tools.zach/dev/deskcord/internal/update"
	"tools.zach/dev/deskcord/internal/window"
)

// ///////////////////////////////////////////////
// Shared Helpers
// ///////////////////////////////////////////////

func loadCatalog(dd paths.DataDir) (*window.Catalog, error) {
	catalog, err := window.LoadCatalogFile(dd.AllowedProcesses(), deskcord.DefaultAllowedProcesses)
	if err != nil {
		return nil, fmt.Errorf("load allowed processes: %w", err)
	}
	return catalog, nil
}

func checkFormat(format string) error {
	if format != "table" && format != "json" {
		return fmt.Errorf("unknown format %q (use table or json)", format)
	}
	return nil
}

func writeIndentedJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ///////////////////////////////////////////////
// windows
// ///////////////////////////////////////////////

func newWindowsCmd(opts *rootOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "windows",
		Short: "List open windows of known applications",
		Example: `  deskcord windows
  deskcord windows --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			dd := opts.paths()
			cfg, err := config.Load(dd.Root)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			catalog, err := loadCatalog(dd)
			if err != nil {
				return err
			}
			platform, err := window.NewPlatform()
			if err != nil {
				return err
			}
			defer platform.Close()

			infos, err := window.NewScanner(catalog, platform, cfg.Privacy.Ignore).List()
			if err != nil {
				return err
			}
			return printWindows(cmd.OutOrStdout(), infos, platform.IsActive, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format (table or json)")
	return cmd
}

// printWindows renders infos. active marks the foreground window in the
// table.
func printWindows(w io.Writer, infos []window.Info, active func(window.ID) bool, format string) error {
	if format == "json" {
		return writeIndentedJSON(w, infos)
	}
	if len(infos) == 0 {
		_, err := fmt.Fprintln(w, "No windows of known applications are open.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "HWND\tACTIVE\tAPPLICATION\tDOCUMENT\tAPP ID")
	for _, info := range infos {
		mark := ""
		if active != nil && active(info.HWND) {
			mark = "*"
		}
		appID := info.AppID
		if appID == "" {
			appID = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", info.HWND, mark, info.DisplayName, info.DocumentName, appID)
	}
	return tw.Flush()
}

// ///////////////////////////////////////////////
// processes
// ///////////////////////////////////////////////

func newProcessesCmd(opts *rootOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "processes",
		Short: "Show the allowed-process catalog",
		Long: `Show the applications deskcord recognizes. The built-in catalog is
replaced by allowed_processes.json in the data directory when that file
exists.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			catalog, err := loadCatalog(opts.paths())
			if err != nil {
				return err
			}
			return printProcesses(cmd.OutOrStdout(), catalog.Processes(), format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "table", "output format (table or json)")
	return cmd
}

func printProcesses(w io.Writer, procs []window.AllowedProcess, format string) error {
	if format == "json" {
		return writeIndentedJSON(w, procs)
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PROCESS\tNAME\tICON\tAPP ID\tPATTERNS")
	for _, p := range procs {
		appID := p.AppID
		if appID == "" {
			appID = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n", p.ProcessName, p.DisplayName, p.IconPath, appID, len(p.TitleExtractPatterns))
	}
	return tw.Flush()
}

// ///////////////////////////////////////////////
// pipes
// ///////////////////////////////////////////////

func newPipesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pipes",
		Short: "List Discord IPC named pipes (Windows)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			names, err := discord.ListEndpoints()
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

// ///////////////////////////////////////////////
// presence
// ///////////////////////////////////////////////

// presenceFactory builds the Discord client for `presence set`.
var presenceFactory presence.Factory = presence.DiscordFactory

func newPresenceCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presence",
		Short: "Set or clear Rich Presence from the terminal",
	}
	cmd.AddCommand(newPresenceSetCmd(opts), newPresenceClearCmd(opts))
	return cmd
}

func newPresenceSetCmd(opts *rootOptions) *cobra.Command {
	var (
		appID string
		args  bridge.UpdateArgs
		hold  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Publish a presence and hold it until interrupted",
		Long: `Connect to Discord and publish a presence. Discord drops the card when
the connection closes, so the command keeps running until Ctrl+C or until
--for elapses.

Unset image and type flags fall back to the [presence] section of the config.`,
		Example: `  deskcord presence set --details "Reviewing" --state "pull requests"
  deskcord presence set --app-id 123456789012345678 --type watching --for 10m`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.paths().Root)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if args.LargeImage == "" {
				args.LargeImage = cfg.Presence.LargeImage
			}
			if args.SmallImage == "" {
				args.SmallImage = cfg.Presence.SmallImage
			}
			if args.ActivityType == "" {
				args.ActivityType = cfg.Presence.ActivityType
			}

			app := bridge.NewApp(bridge.AppOptions{
				Supervisor: presence.NewSupervisor(presence.Options{
					Factory:  presenceFactory,
					Attempts: cfg.Connect.Attempts,
					Delay:    cfg.ConnectDelay(),
				}),
				Config:  cfg,
				Version: resolveVersion(),
			})
			defer app.Shutdown()

			if err := app.InitRPC(appID); err != nil {
				return err
			}
			if err := app.UpdateRPC(args); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), shutdownSignals...)
			defer stop()
			if hold > 0 {
				timer := time.NewTimer(hold)
				defer timer.Stop()
				fmt.Fprintf(cmd.OutOrStdout(), "Presence set for %s.\n", hold)
				select {
				case <-ctx.Done():
				case <-timer.C:
				}
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Presence set. Press Ctrl+C to clear it.")
			<-ctx.Done()
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&appID, "app-id", "", "Discord application ID (default discord.app_id)")
	f.StringVar(&args.Details, "details", "", "first line of the card")
	f.StringVar(&args.StateText, "state", "", "second line of the card")
	f.StringVar(&args.LargeImage, "large-image", "", "large image asset key")
	f.StringVar(&args.LargeText, "large-text", "", "large image tooltip")
	f.StringVar(&args.SmallImage, "small-image", "", "small image asset key")
	f.StringVar(&args.SmallText, "small-text", "", "small image tooltip")
	f.StringVar(&args.ActivityType, "type", "", "activity type: playing, listening, watching or competing")
	f.DurationVar(&hold, "for", 0, "clear the presence after this long")
	_ = cmd.RegisterFlagCompletionFunc("type", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{"playing", "listening", "watching", "competing"}, cobra.ShellCompDirectiveNoFileComp
	})
	return cmd
}

func newPresenceClearCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear the presence published by the running bridge",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				cfg, err := config.Load(opts.paths().Root)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				addr = cfg.Server.Listen
			}
			if _, err := bridge.NewClient(addr).Invoke(cmd.Context(), "clearRpc", nil); err != nil {
				return fmt.Errorf("is `deskcord serve` running? %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Presence cleared.")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "bridge", "", "bridge address (default server.listen)")
	return cmd
}

// ///////////////////////////////////////////////
// logs
// ///////////////////////////////////////////////

func newLogsCmd(opts *rootOptions) *cobra.Command {
	var lines int
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the end of the bridge log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := opts.paths().Log()
			tail, err := logger.ReadTail(path, lines)
			if errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("no log at %s yet", path)
			}
			if err != nil {
				return err
			}
			if tail != "" {
				fmt.Fprintln(cmd.OutOrStdout(), tail)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "number of lines to show (0 for all)")
	return cmd
}

// ///////////////////////////////////////////////
// version
// ///////////////////////////////////////////////

func newVersionCmd() *cobra.Command {
	var check bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ver := resolveVersion()
			fmt.Fprintf(cmd.OutOrStdout(), "deskcord %s\n", ver)
			if !check {
				return nil
			}
			res, err := update.NewChecker().Check(cmd.Context(), ver)
			if err != nil {
				return fmt.Errorf("checking for updates: %w", err)
			}
			if res.Newer {
				fmt.Fprintf(cmd.OutOrStdout(), "A newer release is available: %s\n", res.Latest)
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "You are on the latest release.")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&check, "check", false, "also check for a newer release")
	return cmd
}

// ///////////////////////////////////////////////
// config
// ///////////////////////////////////////////////

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the config file",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file location",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintln(cmd.OutOrStdout(), opts.paths().Config())
			},
		},
		&cobra.Command{
			Use:   "init",
			Short: "Write the commented default config if none exists",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				path := opts.paths().Config()
				err := atomicfile.WriteNew(path, deskcord.DefaultConfigTOML, 0o644)
				if errors.Is(err, atomicfile.ErrExists) {
					return fmt.Errorf("%s already exists", path)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "check",
			Short: "Validate the config file",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				path := opts.paths().Config()
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				if _, err := config.Parse(data); err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is valid (schema v%d)\n", path, config.PeekVersion(data))
				return nil
			},
		},
	)
	return cmd
}
