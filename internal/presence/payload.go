package presence

import (
	"log/slog"
	"strings"

	"tools.zach/dev/deskcord/internal/discord"
)

// Payload is a requested presence. Empty strings mean "absent": there is no
// way to ask for a field to be shown as an empty value.
type Payload struct {
	Details    string
	State      string
	LargeImage string
	SmallImage string
	LargeText  string
	SmallText  string
	// Kind is an activity type tag (playing, listening, watching,
	// competing). Empty or unrecognized tags leave the type unset.
	Kind string
}

// ParseKind maps an activity type tag to its Discord value. Matching is
// case-insensitive.
func ParseKind(tag string) (discord.ActivityType, bool) {
	switch strings.ToLower(tag) {
	case "playing":
		return discord.ActivityPlaying, true
	case "listening":
		return discord.ActivityListening, true
	case "watching":
		return discord.ActivityWatching, true
	case "competing":
		return discord.ActivityCompeting, true
	default:
		return 0, false
	}
}

// Build translates p into the wire activity. Fields are set only when their
// source string is non-empty and assets only when at least one of the four
// asset fields is. An unknown Kind is logged and skipped.
func Build(p Payload) *discord.Activity {
	a := &discord.Activity{
		Details: p.Details,
		State:   p.State,
	}

	if p.Kind != "" {
		if kind, ok := ParseKind(p.Kind); ok {
			a.Type = &kind
		} else {
			slog.Warn("unknown activity type, ignoring", "activity_type", p.Kind)
		}
	}

	if p.LargeImage != "" || p.SmallImage != "" || p.LargeText != "" || p.SmallText != "" {
		a.Assets = &discord.Assets{
			LargeImage: p.LargeImage,
			LargeText:  p.LargeText,
			SmallImage: p.SmallImage,
			SmallText:  p.SmallText,
		}
	}
	return a
}
