package paths

import (
	"errors"
	"path/filepath"
	"testing"
)

// ///////////////////////////////////////////////
// DataDir Method Tests
// ///////////////////////////////////////////////

func TestDataDirMethods(t *testing.T) {
	root := filepath.Join("home", "user", ".config", "deskcord")
	d := DataDir{Root: root}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"PID", d.PID(), filepath.Join(root, "deskcord.pid")},
		{"Config", d.Config(), filepath.Join(root, "config.toml")},
		{"LegacyConfig", d.LegacyConfig(), filepath.Join(root, "config.json")},
		{"Log", d.Log(), filepath.Join(root, "deskcord.log")},
		{"AllowedProcesses", d.AllowedProcesses(), filepath.Join(root, "allowed_processes.json")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("%s() = %q, want %q", tt.name, tt.got, tt.want)
			}
		})
	}
}

func TestDataDirEmptyRoot(t *testing.T) {
	d := DataDir{Root: ""}
	if got := d.PID(); got != PIDFile {
		t.Errorf("PID() with empty root = %q, want %q", got, PIDFile)
	}
	if got := d.Config(); got != ConfigFile {
		t.Errorf("Config() with empty root = %q, want %q", got, ConfigFile)
	}
}

// ///////////////////////////////////////////////
// ResolveRoot
// ///////////////////////////////////////////////

func TestResolveRoot(t *testing.T) {
	fail := func() (string, error) { return "", errors.New("unavailable") }
	dir := func(p string) func() (string, error) {
		return func() (string, error) { return p, nil }
	}
	env := func(v string) func(string) string {
		return func(k string) string {
			if k == HomeEnv {
				return v
			}
			return ""
		}
	}

	tests := []struct {
		name   string
		getenv func(string) string
		config func() (string, error)
		home   func() (string, error)
		want   string
	}{
		{"env wins", env("/custom"), dir("/cfg"), dir("/home/u"), "/custom"},
		{"config dir", env(""), dir("/cfg"), dir("/home/u"), filepath.Join("/cfg", AppDirName)},
		{"home fallback", env(""), fail, dir("/home/u"), filepath.Join("/home/u", DataDirRel)},
		{"nothing", env(""), fail, fail, DataDirRel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolveRoot(tt.getenv, tt.config, tt.home); got != tt.want {
				t.Fatalf("resolveRoot() = %q, want %q", got, tt.want)
			}
		})
	}
}
