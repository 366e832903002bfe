// Package bridge exposes deskcord's presence and window operations to the
// GUI shell as named commands served over a loopback HTTP API.
//
// [App] implements each command against the presence [presence.Supervisor]
// and the window [window.Scanner]; [Server] routes requests to it.
package bridge

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"tools.zach/dev/deskcord/internal/config"
	"tools.zach/dev/deskcord/internal/discord"
	"tools.zach/dev/deskcord/internal/presence"
	"tools.zach/dev/deskcord/internal/window"
)

// ErrMissingAppID is returned by initRpc when neither the request nor the
// config names an application.
var ErrMissingAppID = errors.New("appId is required (pass it or set discord.app_id)")

// ///////////////////////////////////////////////
// App
// ///////////////////////////////////////////////

// App holds everything the commands operate on.
type App struct {
	supervisor *presence.Supervisor
	scanner    *window.Scanner
	monitor    *window.Monitor
	version    string

	// configPath is where saveSettings persists. Empty keeps settings in
	// memory only.
	configPath string
	cfg        atomic.Pointer[config.Config]
	// saveMu serializes read-modify-write of the config file.
	saveMu sync.Mutex

	// pipes lists IPC endpoints. Defaults to discord.ListEndpoints.
	pipes func() ([]string, error)
	// onConfig observes every applied config (log level, etc.).
	onConfig func(*config.Config)
}

// AppOptions configures [NewApp].
type AppOptions struct {
	Supervisor *presence.Supervisor
	Scanner    *window.Scanner
	// Monitor is optional; when set it follows the behavior settings.
	Monitor    *window.Monitor
	Config     *config.Config
	ConfigPath string
	Version    string
	// OnConfig is called after each config change is applied.
	OnConfig func(*config.Config)
}

// NewApp returns an App. Config defaults to [config.DefaultConfig].
func NewApp(opts AppOptions) *App {
	a := &App{
		supervisor: opts.Supervisor,
		scanner:    opts.Scanner,
		monitor:    opts.Monitor,
		version:    opts.Version,
		configPath: opts.ConfigPath,
		pipes:      discord.ListEndpoints,
		onConfig:   opts.OnConfig,
	}
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	a.cfg.Store(cfg)
	a.applyBehavior(cfg)
	return a
}

// Config returns the active config. Callers must not modify it.
func (a *App) Config() *config.Config { return a.cfg.Load() }

// ApplyConfig swaps in a reloaded config.
func (a *App) ApplyConfig(cfg *config.Config) {
	a.cfg.Store(cfg)
	a.applyBehavior(cfg)
	if a.onConfig != nil {
		a.onConfig(cfg)
	}
}

func (a *App) applyBehavior(cfg *config.Config) {
	if a.monitor == nil {
		return
	}
	a.monitor.SetInterval(cfg.AutoCheckInterval())
	a.monitor.SetEnabled(cfg.Behavior.AutoChecking)
}

// Shutdown closes the presence connection and waits for deferred work.
func (a *App) Shutdown() {
	if err := a.supervisor.Close(); err != nil {
		slog.Warn("closing presence connection on shutdown", "error", err)
	}
	a.supervisor.Wait()
}

// ///////////////////////////////////////////////
// Presence Commands
// ///////////////////////////////////////////////

// InitRPC connects to Discord as appID, falling back to discord.app_id.
func (a *App) InitRPC(appID string) error {
	if appID == "" {
		appID = a.Config().Discord.AppID
	}
	if appID == "" {
		return ErrMissingAppID
	}
	return a.supervisor.Initialize(appID)
}

// UpdateArgs is the updateRpc argument object.
type UpdateArgs struct {
	Details      string `json:"details"`
	StateText    string `json:"stateText"`
	LargeImage   string `json:"largeImage"`
	SmallImage   string `json:"smallImage"`
	LargeText    string `json:"largeText"`
	SmallText    string `json:"smallText"`
	ActivityType string `json:"activityType"`
}

// Payload converts args into a presence payload. An empty activity type
// leaves the kind unset, so no type is sent.
func (a *App) Payload(args UpdateArgs) presence.Payload {
	return presence.Payload{
		Details:    args.Details,
		State:      args.StateText,
		LargeImage: args.LargeImage,
		SmallImage: args.SmallImage,
		LargeText:  args.LargeText,
		SmallText:  args.SmallText,
		Kind:       args.ActivityType,
	}
}

// UpdateRPC publishes a presence update.
func (a *App) UpdateRPC(args UpdateArgs) error {
	return a.supervisor.Update(a.Payload(args))
}

// ClearRPC clears the published presence.
func (a *App) ClearRPC() error { return a.supervisor.Clear() }

// CloseRPC drops the connection.
func (a *App) CloseRPC() error { return a.supervisor.Close() }

// DebugIPCPipes lists the Discord IPC endpoints visible to this process.
func (a *App) DebugIPCPipes() ([]string, error) { return a.pipes() }

// ///////////////////////////////////////////////
// Window Commands
// ///////////////////////////////////////////////

// AllowedProcesses returns the catalog entries in file order.
func (a *App) AllowedProcesses() []window.AllowedProcess {
	return a.scanner.Catalog().Processes()
}

// WindowsList returns the recognized windows right now.
func (a *App) WindowsList() ([]window.Info, error) {
	return a.scanner.List()
}

// IsWindowActive reports whether hwnd is still an open visible window.
func (a *App) IsWindowActive(hwnd window.ID) bool {
	return a.scanner.Platform().IsActive(hwnd)
}

// MinimizeWindow minimizes the foreground window.
func (a *App) MinimizeWindow() error {
	return window.MinimizeForeground(a.scanner.Platform())
}

// ToggleMaximizeWindow maximizes or restores the foreground window.
func (a *App) ToggleMaximizeWindow() error {
	return window.ToggleMaximizeForeground(a.scanner.Platform())
}

// CloseWindow hides the foreground window. The owning process keeps
// running.
func (a *App) CloseWindow() error {
	return window.HideForeground(a.scanner.Platform())
}

// ///////////////////////////////////////////////
// App Commands
// ///////////////////////////////////////////////

// Version returns the build version.
func (a *App) Version() string { return a.version }

// Settings returns the shell-editable settings.
func (a *App) Settings() config.Settings { return a.Config().Settings() }

// SaveSettings validates and applies s, persists the config when a path
// is configured, and returns the stored settings.
func (a *App) SaveSettings(s config.Settings) (config.Settings, error) {
	a.saveMu.Lock()
	defer a.saveMu.Unlock()

	next, err := a.Config().WithSettings(s)
	if err != nil {
		return config.Settings{}, fmt.Errorf("invalid settings: %w", err)
	}
	if a.configPath != "" {
		if err := next.Save(a.configPath); err != nil {
			return config.Settings{}, fmt.Errorf("save settings: %w", err)
		}
	}
	a.ApplyConfig(next)
	slog.Info("settings saved", "auto_checking", next.Behavior.AutoChecking, "interval_ms", next.Behavior.AutoCheckIntervalMS)
	return next.Settings(), nil
}
