// Package paths centralizes file and directory names used across the project.
// All data directory file names are defined here as the single source of truth.
package paths

import (
	"os"
	"path/filepath"
)

// ///////////////////////////////////////////////
// Constants
// ///////////////////////////////////////////////

// Data directory file names.
const (
	PIDFile              = "deskcord.pid"
	ConfigFile           = "config.toml"
	LegacyConfigFile     = "config.json"
	LogFile              = "deskcord.log"
	AllowedProcessesFile = "allowed_processes.json"
)

// Process and directory names.
const (
	BinaryName = "deskcord"
	AppDirName = "deskcord"  // under os.UserConfigDir
	DataDirRel = ".deskcord" // relative to $HOME, when no config dir exists
	// HomeEnv overrides the data directory.
	HomeEnv = "DESKCORD_HOME"
)

// Remote-fetched file paths (relative to repo root).
const ReleaseManifest = ".release-manifest.json"

// ///////////////////////////////////////////////
// Root Resolution
// ///////////////////////////////////////////////

// ResolveRoot picks the data directory: $DESKCORD_HOME, then the user
// config dir (where the shell kept config.json), then ~/.deskcord.
func ResolveRoot() string {
	return resolveRoot(os.Getenv, os.UserConfigDir, os.UserHomeDir)
}

func resolveRoot(getenv func(string) string, configDir, homeDir func() (string, error)) string {
	if dir := getenv(HomeEnv); dir != "" {
		return dir
	}
	if dir, err := configDir(); err == nil && dir != "" {
		return filepath.Join(dir, AppDirName)
	}
	if home, err := homeDir(); err == nil && home != "" {
		return filepath.Join(home, DataDirRel)
	}
	return DataDirRel
}

// ///////////////////////////////////////////////
// DataDir
// ///////////////////////////////////////////////

// DataDir provides path construction methods rooted at a data directory.
type DataDir struct {
	Root string
}

// PID returns the full path to the PID file.
func (d DataDir) PID() string { return filepath.Join(d.Root, PIDFile) }

// Config returns the full path to the config file.
func (d DataDir) Config() string { return filepath.Join(d.Root, ConfigFile) }

// LegacyConfig returns the path of the shell's old JSON config.
func (d DataDir) LegacyConfig() string { return filepath.Join(d.Root, LegacyConfigFile) }

// Log returns the full path to the log file.
func (d DataDir) Log() string { return filepath.Join(d.Root, LogFile) }

// AllowedProcesses returns the path of the user's catalog override.
func (d DataDir) AllowedProcesses() string { return filepath.Join(d.Root, AllowedProcessesFile) }
