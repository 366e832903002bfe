//go:build windows

package window

import (
	"fmt"
	"sync"

	"golang.org/x/sys/windows"
)

var (
	user32       = windows.NewLazySystemDLL("user32.dll")
	procIsZoomed = user32.NewProc("IsZoomed")
)

// enumCallback is created once: Windows caps the number of callbacks a
// process may allocate.
var (
	enumMu       sync.Mutex
	enumFound    []windows.HWND
	enumCallback = windows.NewCallback(func(hwnd windows.HWND, _ uintptr) uintptr {
		enumFound = append(enumFound, hwnd)
		return 1
	})
)

// win32 talks to user32 through x/sys/windows.
type win32 struct{}

// NewPlatform returns the Win32 backend.
func NewPlatform() (Platform, error) { return win32{}, nil }

func (win32) Name() string { return "win32" }

func (win32) Close() error { return nil }

func (w win32) Windows() ([]RawWindow, error) {
	handles, err := topLevelWindows()
	if err != nil {
		return nil, err
	}
	out := make([]RawWindow, 0, len(handles))
	for _, hwnd := range handles {
		visible := windows.IsWindowVisible(hwnd)
		rw := RawWindow{ID: ID(hwnd), Visible: visible}
		if visible {
			rw.Title = windowTitle(hwnd)
			if rw.Title != "" {
				rw.ProcessName = windowProcessName(hwnd)
			}
		}
		out = append(out, rw)
	}
	return out, nil
}

func (win32) Foreground() (ID, error) {
	hwnd := windows.GetForegroundWindow()
	if hwnd == 0 {
		return 0, ErrNoForeground
	}
	return ID(hwnd), nil
}

func (win32) IsActive(id ID) bool {
	hwnd := windows.HWND(id)
	return windows.IsWindow(hwnd) && windows.IsWindowVisible(hwnd)
}

func (win32) Minimize(id ID) error {
	windows.ShowWindow(windows.HWND(id), windows.SW_MINIMIZE)
	return nil
}

func (win32) ToggleMaximize(id ID) error {
	hwnd := windows.HWND(id)
	if err := procIsZoomed.Find(); err != nil {
		return fmt.Errorf("failed to get window placement: %w", err)
	}
	zoomed, _, _ := procIsZoomed.Call(uintptr(hwnd))
	if zoomed != 0 {
		windows.ShowWindow(hwnd, windows.SW_RESTORE)
	} else {
		windows.ShowWindow(hwnd, windows.SW_MAXIMIZE)
	}
	return nil
}

func (win32) Hide(id ID) error {
	windows.ShowWindow(windows.HWND(id), windows.SW_HIDE)
	return nil
}

func topLevelWindows() ([]windows.HWND, error) {
	enumMu.Lock()
	defer enumMu.Unlock()

	enumFound = nil
	if err := windows.EnumWindows(enumCallback, nil); err != nil {
		return nil, fmt.Errorf("EnumWindows: %w", err)
	}
	found := enumFound
	enumFound = nil
	return found, nil
}

func windowTitle(hwnd windows.HWND) string {
	buf := make([]uint16, 512)
	n, err := windows.GetWindowText(hwnd, &buf[0], int32(len(buf)))
	if err != nil || n <= 0 {
		return ""
	}
	return windows.UTF16ToString(buf[:n])
}

// windowProcessName resolves the executable file name owning hwnd, or "".
func windowProcessName(hwnd windows.HWND) string {
	var pid uint32
	if _, err := windows.GetWindowThreadProcessId(hwnd, &pid); err != nil || pid == 0 {
		return ""
	}
	proc, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		return ""
	}
	defer windows.CloseHandle(proc)

	buf := make([]uint16, 1024)
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(proc, 0, &buf[0], &size); err != nil {
		return ""
	}
	return processBase(windows.UTF16ToString(buf[:size]))
}
