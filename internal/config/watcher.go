package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"tools.zach/dev/deskcord/internal/paths"
)

// ///////////////////////////////////////////////
// Watcher
// ///////////////////////////////////////////////

// Watcher reports edits to config.toml. It watches the data directory
// rather than the file because saves replace the file by rename.
type Watcher struct {
	// dir is the data directory holding the config file.
	dir string
	// name is the config file's base name.
	name string
	// events delivers a signal each time the config file changes. The
	// channel is buffered to 1 so back-to-back writes coalesce.
	events chan struct{}
	// done is closed by [Watcher.Close] to signal goroutines to exit.
	done chan struct{}
	// fsw is the underlying fsnotify watcher; nil when polling.
	fsw *fsnotify.Watcher
	// once ensures [Watcher.Close] is idempotent.
	once sync.Once
	// polling is true when the watcher has fallen back to stat-based polling.
	polling atomic.Bool
	// pollInterval is the duration between stat calls in polling mode.
	pollInterval time.Duration
}

// NewWatcher starts watching dataDir/config.toml. It falls back to polling
// when fsnotify is unavailable or the directory cannot be watched.
func NewWatcher(dataDir string) (*Watcher, error) {
	return newWatcher(dataDir, 2*time.Second)
}

func newWatcher(dataDir string, pollInterval time.Duration) (*Watcher, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	w := &Watcher{
		dir:          dataDir,
		name:         paths.ConfigFile,
		events:       make(chan struct{}, 1),
		done:         make(chan struct{}),
		pollInterval: pollInterval,
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Info("fsnotify unavailable, falling back to polling", "error", err)
		w.startPolling()
		return w, nil
	}
	if err := fsw.Add(dataDir); err != nil {
		slog.Info("cannot watch data dir, falling back to polling", "path", dataDir, "error", err)
		fsw.Close()
		w.startPolling()
		return w, nil
	}
	w.fsw = fsw
	go w.watch()
	return w, nil
}

// Polling reports whether the watcher is using polling instead of fsnotify.
func (w *Watcher) Polling() bool {
	return w.polling.Load()
}

// Events returns a channel that receives a signal when the config changes.
func (w *Watcher) Events() <-chan struct{} {
	return w.events
}

// Close stops the watcher and releases resources.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		if w.fsw != nil {
			if closeErr := w.fsw.Close(); closeErr != nil {
				err = fmt.Errorf("closing fsnotify watcher: %w", closeErr)
			}
		}
	})
	return err
}

// startPolling records the current mtime before returning, so any change
// made after the watcher starts is reported.
func (w *Watcher) startPolling() {
	w.polling.Store(true)
	var since time.Time
	if info, err := os.Stat(filepath.Join(w.dir, w.name)); err == nil {
		since = info.ModTime()
	}
	go w.poll(since)
}

// watch forwards write, create and rename-into-place events for the config
// file. On an fsnotify error it switches to polling.
func (w *Watcher) watch() {
	fsw := w.fsw
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != w.name {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.notify()
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			slog.Info("fsnotify error, switching to polling", "error", err)
			fsw.Close()
			w.startPolling()
			return
		}
	}
}

// poll stats the config file and signals when its modification time
// advances past lastMod or it appears.
func (w *Watcher) poll(lastMod time.Time) {
	path := filepath.Join(w.dir, w.name)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			info, err := os.Stat(path)
			if err != nil {
				continue
			}
			if info.ModTime().After(lastMod) {
				lastMod = info.ModTime()
				w.notify()
			}
		}
	}
}

// notify sends a single signal to the events channel. If a signal is already
// pending the call is a no-op, coalescing rapid successive changes.
func (w *Watcher) notify() {
	select {
	case w.events <- struct{}{}:
	default:
	}
}

// ///////////////////////////////////////////////
// Reload Loop
// ///////////////////////////////////////////////

// Follow reloads the config on every watcher event and hands valid configs
// to apply until done is closed. Invalid edits are logged and skipped so
// the running process keeps its last good config.
func Follow(w *Watcher, dataDir string, done <-chan struct{}, apply func(*Config)) {
	for {
		select {
		case <-done:
			return
		case <-w.Events():
			cfg, err := Load(dataDir)
			if err != nil {
				slog.Warn("config reload failed, keeping previous config", "error", err)
				continue
			}
			slog.Info("config reloaded", "path", filepath.Join(dataDir, paths.ConfigFile))
			apply(cfg)
		}
	}
}
