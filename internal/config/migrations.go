package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"

	"github.com/BurntSushi/toml"
	"tools.zach/dev/deskcord/internal/migrate"
	"tools.zach/dev/deskcord/internal/paths"
)

// schema is the config.toml upgrade path. Version 1 is the shell's original
// layout.
var schema = &migrate.Chain{Target: "config", Latest: 2}

func init() {
	schema.Add(migrate.Step{
		To:    2,
		Name:  "move legacy [settings] keys into [behavior] and [presence]",
		Apply: upgradeLegacySettings,
	})
}

// ///////////////////////////////////////////////
// v1 -> v2
// ///////////////////////////////////////////////

// upgradeLegacySettings rewrites the shell's original layout:
//
//	[settings] autoCheckInterval, isAutoChecking, activityType
//	[profile]  displayName, handleName, roles
//
// into the v2 section names. Keys already present in the destination win.
func upgradeLegacySettings(doc map[string]any) error {
	if settings, ok := doc["settings"].(map[string]any); ok {
		behavior := subTable(doc, "behavior")
		presence := subTable(doc, "presence")
		moveKey(settings, "autoCheckInterval", behavior, "auto_check_interval_ms")
		moveKey(settings, "isAutoChecking", behavior, "auto_checking")
		moveKey(settings, "activityType", presence, "activity_type")
		if len(settings) > 0 {
			slog.Warn("dropping unknown legacy settings", "keys", len(settings))
		}
		delete(doc, "settings")
	}
	if profile, ok := doc["profile"].(map[string]any); ok {
		moveKey(profile, "displayName", profile, "display_name")
		moveKey(profile, "handleName", profile, "handle_name")
	}
	return nil
}

func subTable(doc map[string]any, name string) map[string]any {
	if t, ok := doc[name].(map[string]any); ok {
		return t
	}
	t := map[string]any{}
	doc[name] = t
	return t
}

func moveKey(src map[string]any, from string, dst map[string]any, to string) {
	v, ok := src[from]
	if !ok {
		return
	}
	delete(src, from)
	if _, exists := dst[to]; !exists {
		dst[to] = v
	}
}

func encodeDocument(doc map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
		return nil, fmt.Errorf("encode migrated config: %w", err)
	}
	return buf.Bytes(), nil
}

// ///////////////////////////////////////////////
// Legacy config.json
// ///////////////////////////////////////////////

// importLegacy converts the shell's config.json into config.toml. A missing
// or unreadable legacy file yields the defaults; the JSON is never deleted.
func importLegacy(dd paths.DataDir) (*Config, error) {
	data, err := os.ReadFile(dd.LegacyConfig())
	if errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}
	if err != nil {
		slog.Warn("cannot read legacy config, using defaults", "path", dd.LegacyConfig(), "error", err)
		return DefaultConfig(), nil
	}

	converted, err := LegacyJSONToTOML(data)
	if err != nil {
		slog.Warn("ignoring unparsable legacy config", "path", dd.LegacyConfig(), "error", err)
		return DefaultConfig(), nil
	}

	cfg, err := decode(converted, dd.Config(), false)
	if err != nil {
		return nil, fmt.Errorf("import legacy config: %w", err)
	}
	if err := cfg.Save(dd.Config()); err != nil {
		slog.Warn("failed to save imported config", "error", err)
	} else {
		slog.Info("imported legacy config", "from", dd.LegacyConfig(), "to", dd.Config())
	}
	return cfg, nil
}

// LegacyJSONToTOML turns a config.json document into v1 TOML so the normal
// migration path can take over.
func LegacyJSONToTOML(data []byte) ([]byte, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse legacy config: %w", err)
	}
	if doc == nil {
		return nil, errors.New("parse legacy config: not an object")
	}
	integralNumbers(doc)
	doc["version"] = 1
	return encodeDocument(doc)
}

// integralNumbers replaces whole-valued float64s from encoding/json with
// int64 so they decode into integer TOML fields.
func integralNumbers(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = integralNumbers(e)
		}
	case []any:
		for i, e := range t {
			t[i] = integralNumbers(e)
		}
	case float64:
		if t == math.Trunc(t) && math.Abs(t) < 1<<53 {
			return int64(t)
		}
	}
	return v
}
