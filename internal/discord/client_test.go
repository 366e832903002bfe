// Tests for the [Client] type covering handshake, activity commands, the
// close sequence and connection lifecycle. A net.Pipe stands in for the
// Discord socket.
package discord

import (
	"encoding/json"
	"errors"
	"net"
	"os"
	"testing"
)

// ///////////////////////////////////////////////
// Test Helpers
// ///////////////////////////////////////////////

// readFrame reads a single frame from conn and decodes its JSON payload.
func readFrame(t *testing.T, conn net.Conn) (Opcode, map[string]any) {
	t.Helper()
	opcode, payload, err := DecodeFrame(conn)
	if err != nil {
		t.Fatalf("failed to read frame: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(payload, &m); err != nil {
		t.Fatalf("failed to parse frame payload %q: %v", payload, err)
	}
	return opcode, m
}

// writeJSONFrame encodes v and writes it to conn as a frame with opcode op.
func writeJSONFrame(t *testing.T, conn net.Conn, op Opcode, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	frame, err := EncodeFrame(op, data)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := conn.Write(frame); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// pipeClient returns a client whose dialer hands out the client side of a
// net.Pipe, plus the server side.
func pipeClient(t *testing.T) (*Client, net.Conn) {
	t.Helper()
	serverConn, clientConn := net.Pipe()
	t.Cleanup(func() {
		serverConn.Close()
		clientConn.Close()
	})
	c := NewClient("test-app-id")
	c.dial = func() (net.Conn, error) { return clientConn, nil }
	return c, serverConn
}

// activityArg extracts args.activity from a SET_ACTIVITY frame.
func activityArg(t *testing.T, m map[string]any) map[string]any {
	t.Helper()
	if m["cmd"] != "SET_ACTIVITY" {
		t.Fatalf("expected cmd=SET_ACTIVITY, got %v", m["cmd"])
	}
	args, ok := m["args"].(map[string]any)
	if !ok {
		t.Fatalf("expected args map, got %T", m["args"])
	}
	if pid, _ := args["pid"].(float64); int(pid) != os.Getpid() {
		t.Fatalf("expected pid=%d, got %v", os.Getpid(), args["pid"])
	}
	act, _ := args["activity"].(map[string]any)
	return act
}

// ///////////////////////////////////////////////
// Client.Connect
// ///////////////////////////////////////////////

func TestClient_Connect_Handshake(t *testing.T) {
	c, server := pipeClient(t)

	done := make(chan error, 1)
	go func() { done <- c.Connect() }()

	opcode, m := readFrame(t, server)
	if opcode != OpHandshake {
		t.Fatalf("expected HANDSHAKE, got %v", opcode)
	}
	if v, _ := m["v"].(float64); v != 1 {
		t.Fatalf("expected v=1, got %v", m["v"])
	}
	if m["client_id"] != "test-app-id" {
		t.Fatalf("expected client_id=test-app-id, got %v", m["client_id"])
	}
	writeJSONFrame(t, server, OpFrame, map[string]any{"cmd": "DISPATCH", "evt": "READY"})

	if err := <-done; err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	if !c.Connected() {
		t.Fatal("expected Connected() after successful handshake")
	}
}

func TestClient_Connect_Rejected(t *testing.T) {
	tests := []struct {
		name string
		op   Opcode
		body map[string]any
	}{
		{"error event", OpFrame, map[string]any{"evt": "ERROR", "data": map[string]any{"message": "invalid client_id"}}},
		{"close frame", OpClose, map[string]any{"code": 4000, "message": "Invalid Client ID"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, server := pipeClient(t)
			done := make(chan error, 1)
			go func() { done <- c.Connect() }()

			readFrame(t, server)
			writeJSONFrame(t, server, tt.op, tt.body)

			if err := <-done; err == nil {
				t.Fatal("expected handshake rejection")
			}
			if c.Connected() {
				t.Fatal("rejected handshake must leave the client disconnected")
			}
		})
	}
}

func TestClient_Connect_DialError(t *testing.T) {
	c := NewClient("test-app-id")
	c.dial = func() (net.Conn, error) { return nil, ErrIPCNotAvailable }
	if err := c.Connect(); !errors.Is(err, ErrIPCNotAvailable) {
		t.Fatalf("expected ErrIPCNotAvailable, got %v", err)
	}
}

func TestClient_Connect_ClosesOldConnection(t *testing.T) {
	oldServer, oldClient := net.Pipe()
	defer oldServer.Close()

	c := NewClient("test-app-id")
	c.conn = oldClient
	c.dial = func() (net.Conn, error) { return nil, ErrIPCNotAvailable }
	_ = c.Connect()

	if _, err := oldClient.Write([]byte("x")); err == nil {
		t.Error("expected old connection to be closed, but write succeeded")
	}
}

// ///////////////////////////////////////////////
// Client.SetActivity / ClearActivity
// ///////////////////////////////////////////////

func TestClient_SetActivity(t *testing.T) {
	server, clientConn := net.Pipe()
	defer server.Close()
	defer clientConn.Close()

	c := NewClient("test-app-id")
	c.conn = clientConn

	kind := ActivityWatching
	done := make(chan error, 1)
	go func() {
		done <- c.SetActivity(&Activity{
			Details: "Editing",
			State:   "main.go",
			Type:    &kind,
			Assets:  &Assets{LargeImage: "appicon", SmallText: "Go"},
		})
	}()

	_, m := readFrame(t, server)
	if nonce, _ := m["nonce"].(string); nonce == "" {
		t.Fatalf("expected non-empty nonce, got %v", m["nonce"])
	}
	act := activityArg(t, m)
	if act["details"] != "Editing" || act["state"] != "main.go" {
		t.Fatalf("unexpected text fields: %v", act)
	}
	if typ, _ := act["type"].(float64); int(typ) != int(ActivityWatching) {
		t.Fatalf("expected type=%d, got %v", ActivityWatching, act["type"])
	}
	assets, _ := act["assets"].(map[string]any)
	if assets["large_image"] != "appicon" || assets["small_text"] != "Go" {
		t.Fatalf("unexpected assets: %v", assets)
	}
	if _, ok := assets["small_image"]; ok {
		t.Fatal("empty small_image must be omitted")
	}

	if err := <-done; err != nil {
		t.Fatalf("SetActivity returned error: %v", err)
	}
}

func TestClient_SetActivity_OmitsTypeWhenNil(t *testing.T) {
	server, clientConn := net.Pipe()
	defer server.Close()
	defer clientConn.Close()

	c := NewClient("test-app-id")
	c.conn = clientConn

	go func() { _ = c.SetActivity(&Activity{Details: "x"}) }()

	_, m := readFrame(t, server)
	if _, ok := activityArg(t, m)["type"]; ok {
		t.Fatal("expected no type field")
	}
}

func TestClient_ClearActivity(t *testing.T) {
	server, clientConn := net.Pipe()
	defer server.Close()
	defer clientConn.Close()

	c := NewClient("test-app-id")
	c.conn = clientConn

	done := make(chan error, 1)
	go func() { done <- c.ClearActivity() }()

	_, m := readFrame(t, server)
	if act := activityArg(t, m); act != nil {
		t.Fatalf("expected null activity, got %v", act)
	}
	if err := <-done; err != nil {
		t.Fatalf("ClearActivity returned error: %v", err)
	}
}

func TestClient_NonceUniqueness(t *testing.T) {
	server, clientConn := net.Pipe()
	defer server.Close()
	defer clientConn.Close()

	c := NewClient("test-app-id")
	c.conn = clientConn

	seen := make(map[string]bool)
	for i := range 5 {
		done := make(chan error, 1)
		go func() { done <- c.SetActivity(&Activity{Details: "test"}) }()

		_, m := readFrame(t, server)
		nonce := m["nonce"].(string)
		if seen[nonce] {
			t.Fatalf("duplicate nonce on call %d: %s", i, nonce)
		}
		seen[nonce] = true
		if err := <-done; err != nil {
			t.Fatalf("SetActivity call %d: %v", i, err)
		}
	}
}

func TestClient_SendCommand_NotConnected(t *testing.T) {
	c := NewClient("test-app-id")
	if err := c.SetActivity(&Activity{}); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if err := c.ClearActivity(); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

// ///////////////////////////////////////////////
// Client.Close
// ///////////////////////////////////////////////

func TestClient_Close_SendsClearThenCloseFrame(t *testing.T) {
	server, clientConn := net.Pipe()
	defer server.Close()

	c := NewClient("test-app-id")
	c.conn = clientConn

	done := make(chan error, 1)
	go func() { done <- c.Close() }()

	_, m := readFrame(t, server)
	if act := activityArg(t, m); act != nil {
		t.Fatalf("expected clear before close, got %v", act)
	}
	op, _, err := DecodeFrame(server)
	if err != nil {
		t.Fatalf("reading close frame: %v", err)
	}
	if op != OpClose {
		t.Fatalf("expected CLOSE frame, got %v", op)
	}

	if err := <-done; err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if c.Connected() {
		t.Fatal("expected disconnected after Close")
	}
}

func TestClient_Close_NilConnection(t *testing.T) {
	c := NewClient("test-app-id")
	if err := c.Close(); err != nil {
		t.Fatalf("Close on nil connection should return nil, got: %v", err)
	}
}

// ///////////////////////////////////////////////
// ActivityType
// ///////////////////////////////////////////////

func TestActivityTypeString(t *testing.T) {
	tests := map[ActivityType]string{
		ActivityPlaying:   "playing",
		ActivityListening: "listening",
		ActivityWatching:  "watching",
		ActivityCompeting: "competing",
		ActivityType(1):   "unknown(1)",
	}
	for typ, want := range tests {
		if got := typ.String(); got != want {
			t.Errorf("ActivityType(%d).String() = %q, want %q", int(typ), got, want)
		}
	}
}
