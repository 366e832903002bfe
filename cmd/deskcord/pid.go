package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"

	"tools.zach/dev/deskcord/internal/paths"
)

// ///////////////////////////////////////////////
// PID File
// ///////////////////////////////////////////////

// The PID file holds "PID:TOKEN". The token lets an instance tell its own
// file apart from one rewritten by a later instance.

func pidToken() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

// acquirePID opens the PID file, locks it and records this process. The
// returned file must stay open while serving; the lock dies with it.
func acquirePID(dd paths.DataDir, token string) (*os.File, error) {
	f, err := os.OpenFile(dd.PID(), os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open PID file: %w", err)
	}
	fail := func(step string, err error) (*os.File, error) {
		_ = unlockFile(f)
		f.Close()
		return nil, fmt.Errorf("%s PID file: %w", step, err)
	}
	if err := lockFile(f); err != nil {
		f.Close()
		return nil, fmt.Errorf("lock PID file: %w", err)
	}
	if err := f.Truncate(0); err != nil {
		return fail("truncate", err)
	}
	if _, err := f.WriteString(strconv.Itoa(os.Getpid()) + ":" + token); err != nil {
		return fail("write", err)
	}
	return f, nil
}

// releasePID unlocks and closes f, then removes the PID file if it still
// carries token.
func releasePID(dd paths.DataDir, token string, f *os.File) {
	if f != nil {
		_ = unlockFile(f)
		f.Close()
	}
	data, err := os.ReadFile(dd.PID())
	if err != nil {
		return
	}
	if _, owner, ok := strings.Cut(string(data), ":"); ok && owner == token {
		os.Remove(dd.PID())
	}
}

// runningInstance reports whether another process holds the PID lock and,
// when it can be read, that process's PID. A PID file nobody holds is
// stale and gets removed.
func runningInstance(dd paths.DataDir) (alive bool, pid int) {
	f, err := os.OpenFile(dd.PID(), os.O_RDWR, 0o600)
	if err != nil {
		return false, 0
	}

	if lockErr := lockFile(f); lockErr != nil {
		f.Close()
		data, _ := os.ReadFile(dd.PID())
		head, _, _ := strings.Cut(string(data), ":")
		pid, _ = strconv.Atoi(head)
		return true, pid
	}

	_ = unlockFile(f)
	f.Close()
	os.Remove(dd.PID())
	return false, 0
}
