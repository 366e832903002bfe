package window

import (
	"errors"
	"strconv"
)

// ///////////////////////////////////////////////
// Platform
// ///////////////////////////////////////////////

var (
	// ErrUnsupportedPlatform is returned by every operation of a backend
	// that cannot talk to the desktop.
	ErrUnsupportedPlatform = errors.New("window queries are not supported on this platform")
	// ErrNoForeground is returned when no window currently has focus.
	ErrNoForeground = errors.New("failed to get foreground window")
)

// ID is a native window handle: an HWND on Windows, an X11 window id on
// Linux. It is passed to the shell as a plain integer.
type ID int64

func (id ID) String() string { return "0x" + strconv.FormatInt(int64(id), 16) }

// RawWindow is one top-level window as the backend sees it.
type RawWindow struct {
	ID          ID
	Title       string
	ProcessName string
	Visible     bool
}

// Platform is the native window backend.
type Platform interface {
	// Name identifies the backend in logs ("win32", "x11", "unsupported").
	Name() string
	// Windows enumerates top-level windows in z-order. ProcessName is empty
	// when the owner cannot be resolved.
	Windows() ([]RawWindow, error)
	// Foreground returns the window with input focus.
	Foreground() (ID, error)
	// IsActive reports whether id still names an existing, visible window.
	IsActive(id ID) bool
	Minimize(id ID) error
	// ToggleMaximize restores a maximized window and maximizes any other.
	ToggleMaximize(id ID) error
	Hide(id ID) error
	Close() error
}

// Unsupported is the backend used when no desktop is reachable. Every query
// fails with [ErrUnsupportedPlatform].
type Unsupported struct{}

func (Unsupported) Name() string                  { return "unsupported" }
func (Unsupported) Windows() ([]RawWindow, error) { return nil, ErrUnsupportedPlatform }
func (Unsupported) Foreground() (ID, error)       { return 0, ErrUnsupportedPlatform }
func (Unsupported) IsActive(ID) bool              { return false }
func (Unsupported) Minimize(ID) error             { return ErrUnsupportedPlatform }
func (Unsupported) ToggleMaximize(ID) error       { return ErrUnsupportedPlatform }
func (Unsupported) Hide(ID) error                 { return ErrUnsupportedPlatform }
func (Unsupported) Close() error                  { return nil }

// ///////////////////////////////////////////////
// Foreground Operations
// ///////////////////////////////////////////////

// MinimizeForeground minimizes whichever window has focus.
func MinimizeForeground(p Platform) error {
	id, err := p.Foreground()
	if err != nil {
		return err
	}
	return p.Minimize(id)
}

// ToggleMaximizeForeground maximizes or restores the focused window.
func ToggleMaximizeForeground(p Platform) error {
	id, err := p.Foreground()
	if err != nil {
		return err
	}
	return p.ToggleMaximize(id)
}

// HideForeground hides the focused window without terminating its process.
func HideForeground(p Platform) error {
	id, err := p.Foreground()
	if err != nil {
		return err
	}
	return p.Hide(id)
}
