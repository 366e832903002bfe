package presence

import (
	"errors"
	"fmt"
	"strings"
)

// ///////////////////////////////////////////////
// Sentinel Errors
// ///////////////////////////////////////////////

// ErrNotInitialized is returned by every operation that needs a connection
// when none has been established, or after [Supervisor.Close].
var ErrNotInitialized = errors.New("RPC client not initialized, call initRpc first")

// ErrLockCorrupted is returned when a previous holder of a connection's lock
// panicked mid-operation. The connection is unusable until replaced by a new
// [Supervisor.Initialize].
var ErrLockCorrupted = errors.New("presence connection lock corrupted by an aborted operation")

// ErrHandleClosed is returned by work that reaches a connection after it was
// replaced or closed.
var ErrHandleClosed = errors.New("presence connection already closed")

// ///////////////////////////////////////////////
// Typed Errors
// ///////////////////////////////////////////////

// EstablishmentError reports that every connection attempt failed.
type EstablishmentError struct {
	// Attempts is the number of connects tried.
	Attempts int
	// Last is the error returned by the final attempt.
	Last error
}

func (e *EstablishmentError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "failed to init Discord IPC after %d attempts: %v\n", e.Attempts, e.Last)
	b.WriteString("Check that:\n")
	b.WriteString(" 1) the Discord desktop app is running (not the browser or Microsoft Store build)\n")
	b.WriteString(" 2) the application ID is correct\n")
	b.WriteString(" 3) Discord has finished loading and is not in the middle of an update\n")
	b.WriteString("Run `deskcord pipes` to list the discord-ipc endpoints, and check Discord's logs.")
	return b.String()
}

func (e *EstablishmentError) Unwrap() error { return e.Last }

// ApplyError wraps a failure returned by the Discord client for a single
// operation ("set activity", "clear activity", "close").
type ApplyError struct {
	Op  string
	Err error
}

func (e *ApplyError) Error() string { return "failed to " + e.Op + ": " + e.Err.Error() }

func (e *ApplyError) Unwrap() error { return e.Err }
