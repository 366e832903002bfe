// conn_wsl.go adds Discord IPC socket locations used under WSL.
//
// Under WSL2 the Windows-side named pipe is not visible as a Unix socket, so
// users bridge it with socat + npiperelay.exe:
//
//	socat UNIX-LISTEN:/tmp/discord-ipc-0,fork EXEC:"npiperelay.exe -ep -s //./pipe/discord-ipc-0"
//
// The paths below are where such a relay usually listens. When no relay runs
// they do not exist and the probe falls through to ErrIPCNotAvailable.

//go:build linux

package discord

import (
	"fmt"
	"os"
	"strings"
)

// isWSL reports whether the current process is running inside WSL.
func isWSL() bool {
	data, err := os.ReadFile("/proc/version")
	if err != nil {
		return false
	}
	lower := strings.ToLower(string(data))
	return strings.Contains(lower, "microsoft")
}

// wslSocketPaths returns relay locations that socketPaths does not already
// cover: the WSLg runtime directory and a relay directory named by
// DESKCORD_WSL_RELAY_DIR.
func wslSocketPaths() []string {
	if !isWSL() {
		return nil
	}

	dirs := []string{"/mnt/wslg/runtime-dir"}
	if dir := os.Getenv("DESKCORD_WSL_RELAY_DIR"); dir != "" {
		dirs = append(dirs, dir)
	}

	var paths []string
	for _, dir := range dirs {
		for i := range maxIPCSlots {
			paths = append(paths, fmt.Sprintf("%s/%s-%d", dir, pipeMarker, i))
		}
	}
	return paths
}
