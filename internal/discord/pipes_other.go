//go:build !windows

package discord

// ListEndpoints always fails with [ErrUnsupportedPlatform]: Discord listens
// on Unix sockets here, not named pipes.
func ListEndpoints() ([]string, error) {
	return nil, ErrUnsupportedPlatform
}
