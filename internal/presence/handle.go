package presence

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"tools.zach/dev/deskcord/internal/discord"
)

// Client is the subset of [discord.Client] the coordinator drives. It is
// not safe for concurrent use; a [Handle] serializes access to it.
type Client interface {
	Connect() error
	SetActivity(activity *discord.Activity) error
	ClearActivity() error
	Close() error
}

// Factory creates an unconnected client for an application ID.
type Factory func(appID string) Client

// DiscordFactory builds real IPC clients.
func DiscordFactory(appID string) Client { return discord.NewClient(appID) }

// ///////////////////////////////////////////////
// Handle
// ///////////////////////////////////////////////

// Handle is one live connection shared by every caller that looked it up.
// Copies of the pointer are cheap; mutation of the client goes through mu.
type Handle struct {
	// appID is the application the client handshook with.
	appID string

	// mu grants exclusive access to client.
	mu     sync.Mutex
	client Client
	// closed is set under mu once client has been shut down.
	closed bool
	// corrupted is set when an operation panicked while holding mu.
	corrupted atomic.Bool

	// pendingMu guards the coalescing mailbox.
	pendingMu sync.Mutex
	// pending is the newest deferred payload not yet applied.
	pending *Payload
	// draining is true while a drain goroutine owns the mailbox.
	draining bool
}

func newHandle(appID string, c Client) *Handle {
	return &Handle{appID: appID, client: c}
}

// AppID returns the application ID this connection belongs to.
func (h *Handle) AppID() string { return h.appID }

// Corrupted reports whether an earlier operation aborted while holding the
// handle's lock.
func (h *Handle) Corrupted() bool { return h.corrupted.Load() }

// run calls fn with the client. The caller must hold h.mu. A panic inside fn
// marks the handle corrupted and is returned as ErrLockCorrupted. Once the
// handle is closed fn is not called and ErrHandleClosed is returned.
func (h *Handle) run(op string, fn func(Client) error) (err error) {
	if h.corrupted.Load() {
		return ErrLockCorrupted
	}
	if h.closed {
		return ErrHandleClosed
	}
	defer func() {
		if r := recover(); r != nil {
			h.corrupted.Store(true)
			slog.Error("presence client panicked", "op", op, "app_id", h.appID, "panic", r)
			err = fmt.Errorf("%w: %s: %v", ErrLockCorrupted, op, r)
		}
	}()
	if err := fn(h.client); err != nil {
		return &ApplyError{Op: op, Err: err}
	}
	return nil
}

// apply builds and sends p. The caller must hold h.mu.
func (h *Handle) apply(p Payload) error {
	activity := Build(p)
	return h.run("set activity", func(c Client) error {
		return c.SetActivity(activity)
	})
}

// clear asks Discord to drop the card, waiting for the lock.
func (h *Handle) clear() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.run("clear activity", func(c Client) error {
		return c.ClearActivity()
	})
}

// close shuts the connection down, waiting for the lock. Closing twice is a
// no-op.
func (h *Handle) close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closeLocked()
}

// closeLocked is close for callers already holding h.mu.
func (h *Handle) closeLocked() error {
	if h.closed {
		return nil
	}
	err := h.run("close Discord IPC client", func(c Client) error {
		return c.Close()
	})
	h.closed = true
	return err
}
