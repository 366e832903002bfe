// conn_unix.go implements Discord IPC socket discovery for Unix-like systems.
// Candidates are probed in order: XDG_RUNTIME_DIR, TMPDIR/tmp, Snap, Flatpak,
// then WSL relay locations.

//go:build !windows

package discord

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
)

// ///////////////////////////////////////////////
// Connection
// ///////////////////////////////////////////////

// socketVariants are the socket name prefixes for Discord stable, Canary and PTB.
var socketVariants = []string{"discord-ipc", "discordcanary-ipc", "discordptb-ipc"}

// connectToDiscord dials each candidate socket path and returns the first
// connection that succeeds.
func connectToDiscord() (net.Conn, error) {
	paths := socketPaths(os.Getenv, os.Getuid())
	paths = append(paths, wslSocketPaths()...)

	for _, path := range paths {
		conn, err := net.Dial("unix", path)
		if err == nil {
			return conn, nil
		}
	}

	if isWSL() {
		return nil, fmt.Errorf("%w: running under WSL, a socat + npiperelay.exe bridge is required", ErrIPCNotAvailable)
	}
	return nil, ErrIPCNotAvailable
}

// socketPaths lists every socket path Discord may be listening on, in probe
// order. getenv and uid are parameters so tests can pin the environment.
func socketPaths(getenv func(string) string, uid int) []string {
	var dirs []string
	if dir := getenv("XDG_RUNTIME_DIR"); dir != "" {
		dirs = append(dirs, dir)
	}
	for _, key := range []string{"TMPDIR", "TMP", "TEMP"} {
		if dir := getenv(key); dir != "" {
			dirs = append(dirs, dir)
		}
	}
	dirs = append(dirs, "/tmp")

	var paths []string
	for _, dir := range dirs {
		for _, v := range socketVariants {
			for i := range maxIPCSlots {
				paths = append(paths, filepath.Join(dir, v+"-"+strconv.Itoa(i)))
			}
		}
	}

	runUser := filepath.Join("/run/user", strconv.Itoa(uid))
	for _, sd := range []string{"snap.discord", "snap.discord-canary", "snap.discord-ptb"} {
		for i := range maxIPCSlots {
			paths = append(paths, filepath.Join(runUser, sd, "discord-ipc-"+strconv.Itoa(i)))
		}
	}
	for _, app := range []string{
		"com.discordapp.Discord",
		"com.discordapp.DiscordCanary",
		"com.discordapp.DiscordPTB",
	} {
		for i := range maxIPCSlots {
			paths = append(paths, filepath.Join(runUser, "app", app, "discord-ipc-"+strconv.Itoa(i)))
		}
	}
	return paths
}
