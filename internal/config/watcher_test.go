package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func waitEvent(t *testing.T, w *Watcher) {
	t.Helper()
	select {
	case <-w.Events():
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for config change event")
	}
}

func TestWatcher_DetectsWrite(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	writeConfig(t, dir, "version = 2\n")
	waitEvent(t, w)
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if w.Polling() {
		t.Skip("fsnotify unavailable")
	}

	if err := os.WriteFile(filepath.Join(dir, "deskcord.log"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-w.Events():
		t.Fatal("unexpected event for unrelated file")
	case <-time.After(200 * time.Millisecond):
	}
}

func pollingWatcher(t *testing.T, dir string, interval time.Duration) *Watcher {
	t.Helper()
	w := &Watcher{
		dir:          dir,
		name:         "config.toml",
		events:       make(chan struct{}, 1),
		done:         make(chan struct{}),
		pollInterval: interval,
	}
	w.startPolling()
	t.Cleanup(func() { w.Close() })
	return w
}

func TestWatcher_PollingFallback(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "version = 2\n")

	w := pollingWatcher(t, dir, 10*time.Millisecond)

	future := time.Now().Add(time.Hour)
	if err := os.Chtimes(filepath.Join(dir, "config.toml"), future, future); err != nil {
		t.Fatal(err)
	}
	waitEvent(t, w)
	if !w.Polling() {
		t.Fatal("expected polling mode")
	}
}

// A change made before the first tick must still be reported, and an
// untouched file must not be.
func TestWatcher_PollingBaselineTakenAtStart(t *testing.T) {
	t.Run("unchanged", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "version = 2\n")
		w := pollingWatcher(t, dir, 10*time.Millisecond)

		select {
		case <-w.Events():
			t.Fatal("unexpected event for unchanged file")
		case <-time.After(100 * time.Millisecond):
		}
	})

	t.Run("changed before first tick", func(t *testing.T) {
		dir := t.TempDir()
		writeConfig(t, dir, "version = 2\n")
		w := pollingWatcher(t, dir, 50*time.Millisecond)

		future := time.Now().Add(time.Hour)
		if err := os.Chtimes(filepath.Join(dir, "config.toml"), future, future); err != nil {
			t.Fatal(err)
		}
		waitEvent(t, w)
	})

	t.Run("created after start", func(t *testing.T) {
		dir := t.TempDir()
		w := pollingWatcher(t, dir, 10*time.Millisecond)

		writeConfig(t, dir, "version = 2\n")
		waitEvent(t, w)
	})
}

func TestWatcher_CloseIdempotent(t *testing.T) {
	w, err := NewWatcher(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestFollow_AppliesValidConfigOnly(t *testing.T) {
	dir := t.TempDir()
	w := &Watcher{events: make(chan struct{}, 1), done: make(chan struct{})}
	done := make(chan struct{})
	applied := make(chan *Config, 1)
	go Follow(w, dir, done, func(c *Config) { applied <- c })
	defer close(done)

	writeConfig(t, dir, "version = 2\n[log]\nlevel = \"debug\"\n")
	w.notify()
	select {
	case c := <-applied:
		if c.Log.Level != "debug" {
			t.Fatalf("applied config has level %q", c.Log.Level)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("config never applied")
	}

	writeConfig(t, dir, "version = 2\n[log]\nlevel = \"nope\"\n")
	w.notify()
	select {
	case c := <-applied:
		t.Fatalf("invalid config applied: %+v", c.Log)
	case <-time.After(200 * time.Millisecond):
	}
}
