// conn_windows.go implements Discord IPC discovery for Windows, where the
// client listens on named pipes (\\.\pipe\discord-ipc-N). Pipes are dialed
// through go-winio so the returned net.Conn supports deadlines.

//go:build windows

package discord

import (
	"net"
	"strconv"
	"time"

	"github.com/Microsoft/go-winio"
)

// pipeDialTimeout bounds how long a single busy pipe slot may stall the
// probe before the next slot is tried.
const pipeDialTimeout = 250 * time.Millisecond

// connectToDiscord tries each Discord named pipe slot and returns the first
// successful connection.
func connectToDiscord() (net.Conn, error) {
	timeout := pipeDialTimeout
	for i := range maxIPCSlots {
		conn, err := winio.DialPipe(pipeNamespace+pipeMarker+"-"+strconv.Itoa(i), &timeout)
		if err == nil {
			return conn, nil
		}
	}
	return nil, ErrIPCNotAvailable
}
