//go:build !windows

package main

import (
	"os"
	"syscall"
)

// shutdownSignals stop `deskcord serve`. SIGTERM is what service managers
// send.
var shutdownSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}
