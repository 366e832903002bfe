//go:build linux

package window

import (
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
)

// EWMH constants.
const (
	wmStateToggle = 2
	iconicState   = 3
	// sourceApplication marks client messages as coming from a normal
	// application rather than a pager.
	sourceApplication = 1
)

// x11 queries an EWMH-compliant window manager through xgb.
type x11 struct {
	conn *xgb.Conn
	root xproto.Window

	atomMu sync.Mutex
	atoms  map[string]xproto.Atom
}

// NewPlatform connects to $DISPLAY. Without an X server it returns
// [Unsupported] and the connection error.
func NewPlatform() (Platform, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return Unsupported{}, fmt.Errorf("failed to connect to X server: %w", err)
	}
	screen := xproto.Setup(conn).DefaultScreen(conn)
	return &x11{conn: conn, root: screen.Root, atoms: make(map[string]xproto.Atom)}, nil
}

func (b *x11) Name() string { return "x11" }

func (b *x11) Close() error {
	b.conn.Close()
	return nil
}

// Windows prefers _NET_CLIENT_LIST and falls back to the root's children
// when the window manager does not publish one.
func (b *x11) Windows() ([]RawWindow, error) {
	ids, err := b.clientList()
	if err != nil || len(ids) == 0 {
		if err != nil {
			slog.Debug("_NET_CLIENT_LIST unavailable, falling back to QueryTree", "error", err)
		}
		tree, treeErr := xproto.QueryTree(b.conn, b.root).Reply()
		if treeErr != nil {
			return nil, fmt.Errorf("QueryTree: %w", treeErr)
		}
		return b.describe(tree.Children, false), nil
	}
	return b.describe(ids, true), nil
}

// describe builds RawWindows. Managed windows count as visible even when
// iconified, which matches how Win32 reports minimized windows.
func (b *x11) describe(ids []xproto.Window, managed bool) []RawWindow {
	out := make([]RawWindow, 0, len(ids))
	for _, win := range ids {
		rw := RawWindow{ID: ID(win), Visible: managed || b.viewable(win)}
		if rw.Visible {
			rw.Title = b.title(win)
			if rw.Title != "" {
				rw.ProcessName = b.processName(win)
			}
		}
		out = append(out, rw)
	}
	return out
}

func (b *x11) Foreground() (ID, error) {
	if atom, err := b.atom("_NET_ACTIVE_WINDOW"); err == nil {
		if vals, err := b.cardinals(b.root, atom); err == nil && len(vals) > 0 && vals[0] != 0 {
			return ID(vals[0]), nil
		}
	}
	focus, err := xproto.GetInputFocus(b.conn).Reply()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNoForeground, err)
	}
	if focus.Focus == xproto.WindowNone || focus.Focus == b.root {
		return 0, ErrNoForeground
	}
	return ID(focus.Focus), nil
}

func (b *x11) IsActive(id ID) bool {
	win := xproto.Window(id)
	if ids, err := b.clientList(); err == nil {
		for _, w := range ids {
			if w == win {
				return true
			}
		}
	}
	return b.viewable(win)
}

func (b *x11) Minimize(id ID) error {
	atom, err := b.atom("WM_CHANGE_STATE")
	if err != nil {
		return err
	}
	return b.sendClientMessage(xproto.Window(id), atom, iconicState, 0, 0)
}

func (b *x11) ToggleMaximize(id ID) error {
	state, err := b.atom("_NET_WM_STATE")
	if err != nil {
		return err
	}
	vert, err := b.atom("_NET_WM_STATE_MAXIMIZED_VERT")
	if err != nil {
		return err
	}
	horz, err := b.atom("_NET_WM_STATE_MAXIMIZED_HORZ")
	if err != nil {
		return err
	}
	return b.sendClientMessage(xproto.Window(id), state, wmStateToggle, uint32(vert), uint32(horz))
}

func (b *x11) Hide(id ID) error {
	if err := xproto.UnmapWindowChecked(b.conn, xproto.Window(id)).Check(); err != nil {
		return fmt.Errorf("UnmapWindow %s: %w", id, err)
	}
	return nil
}

// ///////////////////////////////////////////////
// Property Helpers
// ///////////////////////////////////////////////

func (b *x11) atom(name string) (xproto.Atom, error) {
	b.atomMu.Lock()
	defer b.atomMu.Unlock()
	if a, ok := b.atoms[name]; ok {
		return a, nil
	}
	reply, err := xproto.InternAtom(b.conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, fmt.Errorf("InternAtom %s: %w", name, err)
	}
	b.atoms[name] = reply.Atom
	return reply.Atom, nil
}

func (b *x11) property(win xproto.Window, atom xproto.Atom) (*xproto.GetPropertyReply, error) {
	return xproto.GetProperty(b.conn, false, win, atom, xproto.GetPropertyTypeAny, 0, (1<<32)-1).Reply()
}

// cardinals decodes a 32-bit list property.
func (b *x11) cardinals(win xproto.Window, atom xproto.Atom) ([]uint32, error) {
	reply, err := b.property(win, atom)
	if err != nil {
		return nil, err
	}
	return decodeCardinals(reply.Value), nil
}

func (b *x11) clientList() ([]xproto.Window, error) {
	atom, err := b.atom("_NET_CLIENT_LIST")
	if err != nil {
		return nil, err
	}
	vals, err := b.cardinals(b.root, atom)
	if err != nil {
		return nil, err
	}
	ids := make([]xproto.Window, len(vals))
	for i, v := range vals {
		ids[i] = xproto.Window(v)
	}
	return ids, nil
}

func (b *x11) viewable(win xproto.Window) bool {
	attrs, err := xproto.GetWindowAttributes(b.conn, win).Reply()
	return err == nil && attrs.MapState == xproto.MapStateViewable
}

// title reads _NET_WM_NAME and falls back to WM_NAME.
func (b *x11) title(win xproto.Window) string {
	for _, name := range []string{"_NET_WM_NAME", "WM_NAME"} {
		atom, err := b.atom(name)
		if err != nil {
			continue
		}
		reply, err := b.property(win, atom)
		if err == nil && len(reply.Value) > 0 {
			return string(reply.Value)
		}
	}
	return ""
}

// processName resolves _NET_WM_PID to the executable name via /proc.
func (b *x11) processName(win xproto.Window) string {
	atom, err := b.atom("_NET_WM_PID")
	if err != nil {
		return ""
	}
	vals, err := b.cardinals(win, atom)
	if err != nil || len(vals) == 0 || vals[0] == 0 {
		return ""
	}
	return procName(int(vals[0]))
}

// sendClientMessage posts a 32-bit client message to the root window on
// behalf of win. Up to three data words are used.
func (b *x11) sendClientMessage(win xproto.Window, typ xproto.Atom, data ...uint32) error {
	payload := make([]uint32, 5)
	copy(payload, data)
	payload[3] = sourceApplication
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: win,
		Type:   typ,
		Data:   xproto.ClientMessageDataUnionData32New(payload),
	}
	mask := uint32(xproto.EventMaskSubstructureNotify | xproto.EventMaskSubstructureRedirect)
	if err := xproto.SendEventChecked(b.conn, false, b.root, mask, string(ev.Bytes())).Check(); err != nil {
		return fmt.Errorf("SendEvent to %s: %w", ID(win), err)
	}
	return nil
}

// decodeCardinals splits a little-endian property value into 32-bit words,
// ignoring a trailing partial word.
func decodeCardinals(v []byte) []uint32 {
	out := make([]uint32, 0, len(v)/4)
	for i := 0; i+4 <= len(v); i += 4 {
		out = append(out, binary.LittleEndian.Uint32(v[i:i+4]))
	}
	return out
}

// procName prefers the executable link and falls back to comm, which the
// kernel truncates to 15 bytes.
func procName(pid int) string {
	dir := "/proc/" + strconv.Itoa(pid)
	if exe, err := os.Readlink(dir + "/exe"); err == nil {
		return processBase(strings.TrimSuffix(exe, " (deleted)"))
	}
	if comm, err := os.ReadFile(dir + "/comm"); err == nil {
		return strings.TrimSpace(string(comm))
	}
	return ""
}
