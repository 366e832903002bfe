// Package discord talks to the desktop Discord client over its local IPC
// endpoint (a Unix socket, or a named pipe on Windows) and sets the Rich
// Presence card with SET_ACTIVITY.
//
// Endpoint discovery is per platform (conn_*.go); pipes.go lists the
// endpoints for diagnostics. A Client serializes its own writes, but callers
// that care about the order of updates must serialize among themselves.
package discord

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strconv"
	"sync"

	"tools.zach/dev/deskcord/internal/logger"
)

// ///////////////////////////////////////////////
// Sentinel Errors
// ///////////////////////////////////////////////

// ErrNotConnected is returned by commands sent before Connect succeeds.
var ErrNotConnected = errors.New("not connected")

// ///////////////////////////////////////////////
// Data Types
// ///////////////////////////////////////////////

// ActivityType is the Discord activity verb shown in front of the
// application name ("Playing X", "Listening to X", ...).
type ActivityType int

// Values accepted by Discord for the activity "type" field. 1 (Streaming)
// and 4 (Custom) are rejected for RPC clients and intentionally absent.
const (
	ActivityPlaying   ActivityType = 0
	ActivityListening ActivityType = 2
	ActivityWatching  ActivityType = 3
	ActivityCompeting ActivityType = 5
)

// String returns the lowercase tag used in configuration and commands.
func (t ActivityType) String() string {
	switch t {
	case ActivityPlaying:
		return "playing"
	case ActivityListening:
		return "listening"
	case ActivityWatching:
		return "watching"
	case ActivityCompeting:
		return "competing"
	default:
		return "unknown(" + strconv.Itoa(int(t)) + ")"
	}
}

// Button is a link shown under the card.
type Button struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Timestamps carries the Unix start time Discord counts elapsed time from.
type Timestamps struct {
	Start int64 `json:"start,omitempty"`
}

// Assets names the uploaded art keys (or URLs) and their hover text.
type Assets struct {
	LargeImage string `json:"large_image,omitempty"`
	LargeText  string `json:"large_text,omitempty"`
	SmallImage string `json:"small_image,omitempty"`
	SmallText  string `json:"small_text,omitempty"`
}

// Activity is the card body. Empty fields are left out of the payload.
type Activity struct {
	Details    string        `json:"details,omitempty"`
	State      string        `json:"state,omitempty"`
	Type       *ActivityType `json:"type,omitempty"`
	Timestamps *Timestamps   `json:"timestamps,omitempty"`
	Assets     *Assets       `json:"assets,omitempty"`
	Buttons    []Button      `json:"buttons,omitempty"`
}

// ///////////////////////////////////////////////
// Client
// ///////////////////////////////////////////////

// Client is one IPC session for one application ID.
type Client struct {
	appID string
	// dial opens the transport; tests replace it with a net.Pipe.
	dial func() (net.Conn, error)

	mu    sync.Mutex // guards conn and nonce
	conn  net.Conn
	nonce uint64
}

// NewClient returns an unconnected Client for appID.
func NewClient(appID string) *Client {
	return &Client{appID: appID, dial: connectToDiscord}
}

// AppID is the application the client handshakes as.
func (c *Client) AppID() string { return c.appID }

// Connected reports whether a handshake has succeeded and Close has not
// been called since.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Connect dials Discord and performs the handshake, replacing any existing
// session.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.drop()
	conn, err := c.dial()
	if err != nil {
		return err
	}
	c.conn = conn
	if err := c.handshake(); err != nil {
		c.drop()
		return err
	}
	return nil
}

// SetActivity replaces the card.
func (c *Client) SetActivity(activity *Activity) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setActivity(activity)
}

// ClearActivity removes the card but keeps the session.
func (c *Client) ClearActivity() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setActivity(nil)
}

// Close clears the card, says goodbye and drops the session. It is a no-op
// on a client that is not connected.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	// Discord removes the card on disconnect as well, so failures here
	// only matter for the final Close error.
	_ = c.setActivity(nil)
	_ = c.write(OpClose, struct{}{})

	err := c.conn.Close()
	c.conn = nil
	return err
}

// ///////////////////////////////////////////////
// Wire helpers (c.mu held)
// ///////////////////////////////////////////////

type command struct {
	Cmd   string `json:"cmd"`
	Args  any    `json:"args"`
	Nonce string `json:"nonce"`
}

type activityArgs struct {
	PID      int       `json:"pid"`
	Activity *Activity `json:"activity"`
}

func (c *Client) setActivity(a *Activity) error {
	if c.conn == nil {
		return ErrNotConnected
	}
	c.nonce++
	return c.write(OpFrame, command{
		Cmd:   "SET_ACTIVITY",
		Args:  activityArgs{PID: os.Getpid(), Activity: a},
		Nonce: strconv.FormatUint(c.nonce, 10),
	})
}

// write encodes v as the payload of one frame.
func (c *Client) write(op Opcode, v any) error {
	if c.conn == nil {
		return ErrNotConnected
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s payload: %w", op, err)
	}
	frame, err := EncodeFrame(op, payload)
	if err != nil {
		return fmt.Errorf("encoding %s frame: %w", op, err)
	}
	logger.Trace(slog.Default(), "ipc send", "op", op, "bytes", len(payload))
	if _, err := c.conn.Write(frame); err != nil {
		return fmt.Errorf("writing %s frame: %w", op, err)
	}
	return nil
}

// drop closes the transport without any goodbye.
func (c *Client) drop() {
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

// handshake sends the version 1 handshake and waits for READY.
func (c *Client) handshake() error {
	err := c.write(OpHandshake, struct {
		V        int    `json:"v"`
		ClientID string `json:"client_id"`
	}{1, c.appID})
	if err != nil {
		return err
	}

	op, data, err := DecodeFrame(c.conn)
	if err != nil {
		return fmt.Errorf("reading handshake response: %w", err)
	}
	logger.Trace(slog.Default(), "ipc recv", "op", op, "bytes", len(data))
	switch op {
	case OpFrame:
	case OpClose:
		return fmt.Errorf("handshake rejected: %s", closeReason(data))
	default:
		return fmt.Errorf("unexpected handshake response opcode: %d", op)
	}

	var resp struct {
		Evt  string `json:"evt"`
		Data struct {
			Message string `json:"message"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return fmt.Errorf("parsing handshake response: %w", err)
	}
	if resp.Evt == "ERROR" {
		return fmt.Errorf("handshake rejected: %s", resp.Data.Message)
	}
	return nil
}

// closeReason formats the body of a CLOSE frame, which Discord sends
// instead of READY for an unknown client ID.
func closeReason(data []byte) string {
	var body struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &body); err != nil || body.Message == "" {
		return "connection closed by Discord"
	}
	return fmt.Sprintf("%s (code %d)", body.Message, body.Code)
}
