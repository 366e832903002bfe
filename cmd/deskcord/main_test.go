package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"tools.zach/dev/deskcord/internal/bridge"
	"tools.zach/dev/deskcord/internal/config"
	"tools.zach/dev/deskcord/internal/discord"
	"tools.zach/dev/deskcord/internal/paths"
	"tools.zach/dev/deskcord/internal/presence"
	"tools.zach/dev/deskcord/internal/window"
)

// ///////////////////////////////////////////////
// Test Helpers
// ///////////////////////////////////////////////

// execute runs the root command against dataDir and returns stdout.
func execute(t *testing.T, dataDir string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"--data-dir", dataDir}, args...))
	err := root.Execute()
	return out.String(), err
}

type fakeClient struct {
	mu         sync.Mutex
	activities []*discord.Activity
	cleared    int
	closed     int
}

func (c *fakeClient) Connect() error { return nil }

func (c *fakeClient) SetActivity(a *discord.Activity) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.activities = append(c.activities, a)
	return nil
}

func (c *fakeClient) ClearActivity() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cleared++
	return nil
}

func (c *fakeClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return nil
}

// ///////////////////////////////////////////////
// resolveVersion
// ///////////////////////////////////////////////

func TestResolveVersionWithLdflags(t *testing.T) {
	original := version
	defer func() { version = original }()

	version = "1.2.3"
	if got := resolveVersion(); got != "1.2.3" {
		t.Errorf("resolveVersion() = %q, want %q", got, "1.2.3")
	}
}

func TestResolveVersionDev(t *testing.T) {
	original := version
	defer func() { version = original }()

	version = "dev"
	// Test binaries may or may not carry VCS info.
	if got := resolveVersion(); !strings.HasPrefix(got, "dev") {
		t.Errorf("resolveVersion() = %q, expected a dev tag", got)
	}
}

// ///////////////////////////////////////////////
// PID File
// ///////////////////////////////////////////////

func TestPidToken(t *testing.T) {
	a, b := pidToken(), pidToken()
	if len(a) != 16 {
		t.Errorf("token length = %d, want 16", len(a))
	}
	if a == b {
		t.Error("two tokens should differ")
	}
}

func TestAcquirePID_WritesPIDAndToken(t *testing.T) {
	dd := paths.DataDir{Root: t.TempDir()}
	f, err := acquirePID(dd, "abc123")
	if err != nil {
		t.Fatalf("acquirePID: %v", err)
	}
	defer releasePID(dd, "abc123", f)

	data, err := os.ReadFile(dd.PID())
	if err != nil {
		t.Fatal(err)
	}
	if want := strconv.Itoa(os.Getpid()) + ":abc123"; string(data) != want {
		t.Fatalf("PID file = %q, want %q", data, want)
	}
}

func TestReleasePID(t *testing.T) {
	tests := []struct {
		name    string
		release string
		removed bool
	}{
		{"matching token", "mine", true},
		{"foreign token", "someone-else", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dd := paths.DataDir{Root: t.TempDir()}
			f, err := acquirePID(dd, "mine")
			if err != nil {
				t.Fatal(err)
			}
			releasePID(dd, tt.release, f)

			_, statErr := os.Stat(dd.PID())
			if removed := os.IsNotExist(statErr); removed != tt.removed {
				t.Fatalf("removed = %v, want %v", removed, tt.removed)
			}
		})
	}
}

func TestReleasePID_NilFile(t *testing.T) {
	releasePID(paths.DataDir{Root: t.TempDir()}, "any", nil)
}

func TestRunningInstance_NoFile(t *testing.T) {
	if alive, pid := runningInstance(paths.DataDir{Root: t.TempDir()}); alive || pid != 0 {
		t.Fatalf("runningInstance() = (%v, %d), want (false, 0)", alive, pid)
	}
}

func TestRunningInstance_StaleFileRemoved(t *testing.T) {
	dd := paths.DataDir{Root: t.TempDir()}
	if err := os.WriteFile(dd.PID(), []byte("99999:stale"), 0o600); err != nil {
		t.Fatal(err)
	}
	if alive, _ := runningInstance(dd); alive {
		t.Fatal("unlocked PID file reported as alive")
	}
	if _, err := os.Stat(dd.PID()); !os.IsNotExist(err) {
		t.Fatal("stale PID file should have been removed")
	}
}

func TestRunningInstance_LockHeld(t *testing.T) {
	dd := paths.DataDir{Root: t.TempDir()}
	f, err := acquirePID(dd, "holder")
	if err != nil {
		t.Fatal(err)
	}
	defer releasePID(dd, "holder", f)

	alive, pid := runningInstance(dd)
	if !alive {
		t.Fatal("held lock not detected")
	}
	// Windows refuses reads of a locked range, so the PID is unknown there.
	if runtime.GOOS != "windows" && pid != os.Getpid() {
		t.Fatalf("pid = %d, want %d", pid, os.Getpid())
	}
}

func TestServe_RefusesSecondInstance(t *testing.T) {
	dd := paths.DataDir{Root: t.TempDir()}
	f, err := acquirePID(dd, "first")
	if err != nil {
		t.Fatal(err)
	}
	defer releasePID(dd, "first", f)

	err = serve(context.Background(), dd, "127.0.0.1:0", nil)
	if err == nil || !strings.Contains(err.Error(), "already running") {
		t.Fatalf("serve() = %v, want already running", err)
	}
}

// ///////////////////////////////////////////////
// Output Formatting
// ///////////////////////////////////////////////

func TestPrintWindows(t *testing.T) {
	infos := []window.Info{
		{HWND: 0x10, DisplayName: "Visual Studio Code", DocumentName: "main.go"},
		{HWND: 0x20, DisplayName: "Photoshop", DocumentName: "logo.psd", AppID: "222222222222222222"},
	}
	active := func(id window.ID) bool { return id == 0x20 }

	var table bytes.Buffer
	if err := printWindows(&table, infos, active, "table"); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(table.String()), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[0], "HWND") {
		t.Fatalf("unexpected table:\n%s", table.String())
	}
	if strings.Contains(lines[1], "*") || !strings.Contains(lines[2], "*") {
		t.Fatalf("active marker on the wrong row:\n%s", table.String())
	}
	if !strings.Contains(lines[1], "0x10") || !strings.Contains(lines[2], "222222222222222222") {
		t.Fatalf("missing columns:\n%s", table.String())
	}

	var js bytes.Buffer
	if err := printWindows(&js, infos, nil, "json"); err != nil {
		t.Fatal(err)
	}
	var decoded []window.Info
	if err := json.Unmarshal(js.Bytes(), &decoded); err != nil || len(decoded) != 2 || decoded[1].HWND != 0x20 {
		t.Fatalf("json output = %s (%v)", js.String(), err)
	}

	var empty bytes.Buffer
	if err := printWindows(&empty, nil, nil, "table"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(empty.String(), "No windows") {
		t.Fatalf("empty output = %q", empty.String())
	}
}

// ///////////////////////////////////////////////
// Commands
// ///////////////////////////////////////////////

func TestProcessesCmd_Builtin(t *testing.T) {
	out, err := execute(t, t.TempDir(), "processes")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Visual Studio Code") || !strings.Contains(out, "PROCESS") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestProcessesCmd_Override(t *testing.T) {
	dir := t.TempDir()
	override := `[{"process_name":"notes.exe","icon_path":"notes","display_name":"Notes"}]`
	if err := os.WriteFile(filepath.Join(dir, paths.AllowedProcessesFile), []byte(override), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, dir, "processes", "--format", "json")
	if err != nil {
		t.Fatal(err)
	}
	var procs []window.AllowedProcess
	if err := json.Unmarshal([]byte(out), &procs); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(procs) != 1 || procs[0].DisplayName != "Notes" {
		t.Fatalf("procs = %+v", procs)
	}
}

func TestProcessesCmd_BadFormat(t *testing.T) {
	if _, err := execute(t, t.TempDir(), "processes", "-f", "yaml"); err == nil {
		t.Fatal("expected an error for an unknown format")
	}
}

func TestConfigCmd(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, paths.ConfigFile)

	out, err := execute(t, dir, "config", "path")
	if err != nil || strings.TrimSpace(out) != cfgPath {
		t.Fatalf("config path = %q (%v), want %q", out, err, cfgPath)
	}

	if _, err := execute(t, dir, "config", "init"); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if _, err := os.Stat(cfgPath); err != nil {
		t.Fatalf("config not written: %v", err)
	}
	if _, err := execute(t, dir, "config", "init"); err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("second init = %v, want already exists", err)
	}

	out, err = execute(t, dir, "config", "check")
	if err != nil || !strings.Contains(out, "is valid") {
		t.Fatalf("config check = %q (%v)", out, err)
	}

	if err := os.WriteFile(cfgPath, []byte("[log]\nlevel = \"loud\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, dir, "config", "check"); err == nil {
		t.Fatal("config check accepted an invalid level")
	}
}

func TestLogsCmd(t *testing.T) {
	dir := t.TempDir()
	if _, err := execute(t, dir, "logs"); err == nil {
		t.Fatal("expected an error without a log file")
	}

	log := "one\ntwo\nthree\n"
	if err := os.WriteFile(filepath.Join(dir, paths.LogFile), []byte(log), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, dir, "logs", "-n", "2")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, "one") || !strings.Contains(out, "two") || !strings.Contains(out, "three") {
		t.Fatalf("logs -n 2 = %q", out)
	}
}

func TestVersionCmd(t *testing.T) {
	original := version
	defer func() { version = original }()
	version = "0.4.0"

	out, err := execute(t, t.TempDir(), "version")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "deskcord 0.4.0" {
		t.Fatalf("version output = %q", out)
	}
}

func TestPresenceSetCmd(t *testing.T) {
	client := &fakeClient{}
	original := presenceFactory
	defer func() { presenceFactory = original }()
	var gotAppID string
	presenceFactory = func(appID string) presence.Client {
		gotAppID = appID
		return client
	}

	out, err := execute(t, t.TempDir(), "presence", "set",
		"--app-id", "123456789012345678",
		"--details", "Reviewing",
		"--type", "watching",
		"--for", "10ms",
	)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Presence set for") {
		t.Fatalf("output = %q", out)
	}
	if gotAppID != "123456789012345678" {
		t.Fatalf("app id = %q", gotAppID)
	}

	client.mu.Lock()
	defer client.mu.Unlock()
	if len(client.activities) != 1 {
		t.Fatalf("activities = %d, want 1", len(client.activities))
	}
	act := client.activities[0]
	if act.Details != "Reviewing" || act.Type == nil || *act.Type != discord.ActivityWatching {
		t.Fatalf("activity = %+v", act)
	}
	if act.Assets == nil || act.Assets.LargeImage != "appicon" {
		t.Fatalf("large image should default from config, got %+v", act.Assets)
	}
	if client.closed != 1 {
		t.Fatalf("closed = %d, want 1 after the hold expires", client.closed)
	}
}

func TestPresenceSetCmd_TypeDefaultsFromConfig(t *testing.T) {
	client := &fakeClient{}
	original := presenceFactory
	defer func() { presenceFactory = original }()
	presenceFactory = func(string) presence.Client { return client }

	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Presence.ActivityType = "competing"
	if err := cfg.Save(filepath.Join(dir, paths.ConfigFile)); err != nil {
		t.Fatal(err)
	}

	if _, err := execute(t, dir, "presence", "set",
		"--app-id", "123456789012345678",
		"--details", "Reviewing",
		"--for", "10ms",
	); err != nil {
		t.Fatal(err)
	}

	client.mu.Lock()
	defer client.mu.Unlock()
	if len(client.activities) != 1 {
		t.Fatalf("activities = %d, want 1", len(client.activities))
	}
	if act := client.activities[0]; act.Type == nil || *act.Type != discord.ActivityCompeting {
		t.Fatalf("activity type = %v, want competing from config", act.Type)
	}
}

func TestPresenceSetCmd_NoAppID(t *testing.T) {
	if _, err := execute(t, t.TempDir(), "presence", "set", "--for", "1ms"); err == nil {
		t.Fatal("expected an error without any application ID")
	}
}

func TestPresenceClearCmd(t *testing.T) {
	client := &fakeClient{}
	sup := presence.NewSupervisor(presence.Options{
		Factory: func(string) presence.Client { return client },
		Sleep:   func(time.Duration) {},
	})
	app := bridge.NewApp(bridge.AppOptions{Supervisor: sup})
	if err := app.InitRPC("123456789012345678"); err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(bridge.NewServer(app, nil, nil).Handler())
	defer srv.Close()

	out, err := execute(t, t.TempDir(), "presence", "clear", "--bridge", srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "cleared") {
		t.Fatalf("output = %q", out)
	}
	client.mu.Lock()
	defer client.mu.Unlock()
	if client.cleared != 1 {
		t.Fatalf("cleared = %d, want 1", client.cleared)
	}
}
