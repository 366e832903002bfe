// frame.go: the IPC wire format. Every message is an 8-byte header (opcode,
// then payload length, both little-endian uint32) followed by a JSON
// payload.

package discord

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ///////////////////////////////////////////////
// Constants
// ///////////////////////////////////////////////

// Opcode identifies the kind of an IPC frame.
type Opcode uint32

const (
	OpHandshake Opcode = iota
	OpFrame
	// OpClose ends the session. Discord also sends it in place of READY
	// when it rejects a handshake.
	OpClose
	OpPing
	OpPong
)

var opcodeNames = [...]string{"HANDSHAKE", "FRAME", "CLOSE", "PING", "PONG"}

// String names the opcode for log lines.
func (o Opcode) String() string {
	if int(o) < len(opcodeNames) {
		return opcodeNames[o]
	}
	return fmt.Sprintf("OPCODE(%d)", uint32(o))
}

const (
	headerLen = 8

	// MaxPayloadSize bounds a frame payload in both directions.
	MaxPayloadSize = 1 << 20

	// maxIPCSlots is how many numbered endpoints Discord may listen on.
	maxIPCSlots = 10

	// pipeMarker appears in the endpoint name of every Discord build.
	pipeMarker = "discord-ipc"
)

var (
	// ErrPayloadTooLarge is returned for frames over MaxPayloadSize.
	ErrPayloadTooLarge = errors.New("payload too large")
	// ErrIPCNotAvailable means no Discord endpoint accepted a connection.
	ErrIPCNotAvailable = errors.New("discord IPC not available")
)

// ///////////////////////////////////////////////
// Codec
// ///////////////////////////////////////////////

// EncodeFrame returns the wire bytes of one frame.
func EncodeFrame(op Opcode, payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, len(payload), MaxPayloadSize)
	}
	buf := make([]byte, 0, headerLen+len(payload))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(op))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(payload)))
	return append(buf, payload...), nil
}

// DecodeFrame reads exactly one frame from r, however the bytes arrive.
func DecodeFrame(r io.Reader) (Opcode, []byte, error) {
	var hdr [headerLen]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return 0, nil, fmt.Errorf("reading frame header: %w", err)
	}
	op := Opcode(binary.LittleEndian.Uint32(hdr[:4]))
	n := binary.LittleEndian.Uint32(hdr[4:])
	if n > MaxPayloadSize {
		return 0, nil, fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, n, MaxPayloadSize)
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return 0, nil, fmt.Errorf("reading frame payload: %w", err)
	}
	return op, payload, nil
}
