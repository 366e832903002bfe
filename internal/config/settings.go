package config

import (
	"errors"
	"net"
	"slices"
	"strconv"
)

// ///////////////////////////////////////////////
// Shell Settings
// ///////////////////////////////////////////////

// Settings is the part of the config the shell edits, in the shell's own
// JSON shape.
type Settings struct {
	Profile  SettingsProfile  `json:"profile"`
	Settings SettingsBehavior `json:"settings"`
}

// SettingsProfile mirrors [ProfileConfig].
type SettingsProfile struct {
	DisplayName string `json:"displayName"`
	HandleName  string `json:"handleName"`
	Roles       []Role `json:"roles"`
}

// SettingsBehavior carries the auto-check settings and the activity type.
type SettingsBehavior struct {
	AutoCheckInterval int    `json:"autoCheckInterval"`
	IsAutoChecking    bool   `json:"isAutoChecking"`
	ActivityType      string `json:"activityType,omitempty"`
}

// Settings extracts the shell-editable view.
func (c *Config) Settings() Settings {
	roles := slices.Clone(c.Profile.Roles)
	if roles == nil {
		roles = []Role{}
	}
	return Settings{
		Profile: SettingsProfile{
			DisplayName: c.Profile.DisplayName,
			HandleName:  c.Profile.HandleName,
			Roles:       roles,
		},
		Settings: SettingsBehavior{
			AutoCheckInterval: c.Behavior.AutoCheckIntervalMS,
			IsAutoChecking:    c.Behavior.AutoChecking,
			ActivityType:      c.Presence.ActivityType,
		},
	}
}

// WithSettings returns a copy of c with s applied, or an error if the
// result does not validate. c is not modified.
func (c *Config) WithSettings(s Settings) (*Config, error) {
	next := *c
	next.Profile = ProfileConfig{
		DisplayName: s.Profile.DisplayName,
		HandleName:  s.Profile.HandleName,
		Roles:       slices.Clone(s.Profile.Roles),
	}
	next.Behavior.AutoCheckIntervalMS = s.Settings.AutoCheckInterval
	next.Behavior.AutoChecking = s.Settings.IsAutoChecking
	if s.Settings.ActivityType != "" {
		next.Presence.ActivityType = s.Settings.ActivityType
	}
	if err := next.Validate(); err != nil {
		return nil, err
	}
	return &next, nil
}

// splitHostPort validates a listen address and requires a numeric port.
func splitHostPort(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 0 || port > 65535 {
		return "", 0, errors.New("port must be a number between 0 and 65535")
	}
	return host, port, nil
}
