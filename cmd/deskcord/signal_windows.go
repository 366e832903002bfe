//go:build windows

package main

import "os"

// shutdownSignals stop `deskcord serve`. The runtime maps Ctrl+Break and
// console close to os.Interrupt.
var shutdownSignals = []os.Signal{os.Interrupt}
