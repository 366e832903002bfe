package bridge

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"tools.zach/dev/deskcord/internal/window"
)

// ErrUnknownCommand is returned by [App.Invoke] for unregistered names.
var ErrUnknownCommand = errors.New("unknown command")

// ArgsError reports a malformed argument object.
type ArgsError struct {
	Command string
	Err     error
}

func (e *ArgsError) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %v", e.Command, e.Err)
}

func (e *ArgsError) Unwrap() error { return e.Err }

// ///////////////////////////////////////////////
// Command Table
// ///////////////////////////////////////////////

// handler runs one command. args is a JSON object, never empty.
type handler func(a *App, args json.RawMessage) (any, error)

var commands = map[string]handler{
	"initRpc": func(a *App, raw json.RawMessage) (any, error) {
		var args struct {
			AppID string `json:"appId"`
		}
		if err := json.Unmarshal(raw, &args); err != nil {
			return nil, err
		}
		return nil, a.InitRPC(args.AppID)
	},
	"updateRpc": func(a *App, raw json.RawMessage) (any, error) {
		var args UpdateArgs
		if err := json.Unmarshal(raw, &args); err != nil {
			return nil, err
		}
		return nil, a.UpdateRPC(args)
	},
	"clearRpc": func(a *App, _ json.RawMessage) (any, error) { return nil, a.ClearRPC() },
	"closeRpc": func(a *App, _ json.RawMessage) (any, error) { return nil, a.CloseRPC() },
	"debugIpcPipes": func(a *App, _ json.RawMessage) (any, error) {
		return a.DebugIPCPipes()
	},
	"getAllowedProcesses": func(a *App, _ json.RawMessage) (any, error) {
		return a.AllowedProcesses(), nil
	},
	"getWindowsList": func(a *App, _ json.RawMessage) (any, error) {
		return a.WindowsList()
	},
	"isWindowActive": func(a *App, raw json.RawMessage) (any, error) {
		var args struct {
			HWND *window.ID `json:"hwnd"`
		}
		if err := json.Unmarshal(raw, &args); err != nil {
			return nil, err
		}
		if args.HWND == nil {
			return nil, errors.New("hwnd is required")
		}
		return a.IsWindowActive(*args.HWND), nil
	},
	"minimizeWindow":       func(a *App, _ json.RawMessage) (any, error) { return nil, a.MinimizeWindow() },
	"toggleMaximizeWindow": func(a *App, _ json.RawMessage) (any, error) { return nil, a.ToggleMaximizeWindow() },
	"closeWindow":          func(a *App, _ json.RawMessage) (any, error) { return nil, a.CloseWindow() },
	"getAppVersion":        func(a *App, _ json.RawMessage) (any, error) { return a.Version(), nil },
	"getSettings":          func(a *App, _ json.RawMessage) (any, error) { return a.Settings(), nil },
	"saveSettings": func(a *App, raw json.RawMessage) (any, error) {
		// Fields the shell omits keep their current values.
		s := a.Settings()
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return a.SaveSettings(s)
	},
}

// aliases maps the shell's original snake_case command names.
var aliases = map[string]string{
	"init_rpc":               "initRpc",
	"update_rpc":             "updateRpc",
	"clear_rpc":              "clearRpc",
	"close_rpc":              "closeRpc",
	"debug_ipc_pipes":        "debugIpcPipes",
	"get_allowed_processes":  "getAllowedProcesses",
	"get_windows_list":       "getWindowsList",
	"is_window_active":       "isWindowActive",
	"minimize_window":        "minimizeWindow",
	"toggle_maximize_window": "toggleMaximizeWindow",
	"close_window":           "closeWindow",
	"get_app_version":        "getAppVersion",
	"get_settings":           "getSettings",
	"save_settings":          "saveSettings",
}

// Commands returns the registered command names, sorted.
func Commands() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// lookup resolves a command name or alias.
func lookup(name string) (string, handler, bool) {
	if canonical, ok := aliases[name]; ok {
		name = canonical
	}
	h, ok := commands[name]
	return name, h, ok
}

// Invoke runs a command by name. Empty args mean no arguments. Argument
// decoding failures are reported as [*ArgsError].
func (a *App) Invoke(name string, args json.RawMessage) (any, error) {
	canonical, h, ok := lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownCommand, name)
	}
	if len(bytes.TrimSpace(args)) == 0 || bytes.Equal(bytes.TrimSpace(args), []byte("null")) {
		args = json.RawMessage("{}")
	}
	if !json.Valid(args) {
		return nil, &ArgsError{Command: canonical, Err: errors.New("malformed JSON")}
	}

	result, err := h(a, args)
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return nil, &ArgsError{Command: canonical, Err: err}
	}
	return result, err
}
