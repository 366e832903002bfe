//go:build !windows && !linux

package window

// NewPlatform returns the unsupported backend; only Windows and X11
// desktops are queried.
func NewPlatform() (Platform, error) {
	return Unsupported{}, ErrUnsupportedPlatform
}
