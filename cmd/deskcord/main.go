// Package main implements the deskcord command: the bridge daemon the GUI
// shell talks to, plus one-shot commands for inspecting windows, Discord
// pipes and presence from a terminal.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"
	"tools.zach/dev/deskcord/internal/logger"
	"tools.zach/dev/deskcord/internal/paths"
)

// ///////////////////////////////////////////////
// Version
// ///////////////////////////////////////////////

// version is set at build time with -ldflags "-X main.version=0.1.0".
// Without it, resolveVersion derives a dev tag from the embedded VCS info.
var version = "dev"

// resolveVersion returns version, or "dev+<hash>[.dirty]" for unreleased
// builds.
func resolveVersion() string {
	if version != "dev" {
		return version
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return version
	}
	var revision string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if revision == "" {
		return version
	}
	tag := "dev+" + revision[:min(7, len(revision))]
	if dirty {
		tag += ".dirty"
	}
	return tag
}

// ///////////////////////////////////////////////
// Root Command
// ///////////////////////////////////////////////

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	dataDir string
	verbose bool
}

func (o *rootOptions) paths() paths.DataDir { return paths.DataDir{Root: o.dataDir} }

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   paths.BinaryName,
		Short: "Discord Rich Presence and window bridge for the deskcord shell",
		Long: `deskcord keeps a Discord Rich Presence connection alive for a desktop
shell and tells it which known applications have windows open.

Run "deskcord serve" to start the bridge the shell talks to. The other
commands are one-shot helpers for checking the same state from a terminal.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			level := slog.LevelWarn
			if opts.verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(logger.NewHandler(cmd.ErrOrStderr(), level)))
		},
	}

	root.PersistentFlags().StringVar(&opts.dataDir, "data-dir", paths.ResolveRoot(), "data directory for config, PID file and logs")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log to stderr as well (debug level for one-shot commands)")

	root.AddCommand(
		newServeCmd(opts),
		newWindowsCmd(opts),
		newPipesCmd(),
		newProcessesCmd(opts),
		newPresenceCmd(opts),
		newLogsCmd(opts),
		newVersionCmd(),
		newConfigCmd(opts),
	)
	return root
}

// ///////////////////////////////////////////////
// Main
// ///////////////////////////////////////////////

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
