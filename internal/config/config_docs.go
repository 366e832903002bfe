package config

// ///////////////////////////////////////////////
// Documentation Types
// ///////////////////////////////////////////////

// FieldDoc holds documentation and alternative examples for a single config field.
// The genconfig tool uses [FieldDoc] values to annotate the generated config.default.toml.
type FieldDoc struct {
	// Comment is shown as a header comment above the field in the example config.
	Comment string

	// Alternatives are shown as commented-out lines below the active value.
	Alternatives []string
}

// ///////////////////////////////////////////////
// Field Documentation Map
// ///////////////////////////////////////////////

// ConfigDocs maps TOML field paths (dot-separated, e.g. "presence.activity_type")
// to their [FieldDoc] entries.
var ConfigDocs = map[string]FieldDoc{
	// ── Root ──────────────────────────────────────────────────────
	"version": {
		Comment: "Config schema version. Do not edit.",
	},

	// ── Discord ──────────────────────────────────────────────────
	"discord.app_id": {
		Comment: "Fallback Discord application ID.\nUsed when a recognized window's allowed_processes.json entry has no app_id,\nand by `deskcord presence set` when --app-id is not given.",
		Alternatives: []string{
			`app_id = "1234567890123456789"`,
		},
	},

	// ── Connect ──────────────────────────────────────────────────
	"connect.attempts": {
		Comment: "How many times initRpc tries to reach Discord before giving up.",
	},
	"connect.delay_ms": {
		Comment: "Fixed wait between failed attempts (milliseconds).",
	},

	// ── Presence ─────────────────────────────────────────────────
	"presence.activity_type": {
		Comment: "Activity verb for `deskcord presence set` when --type is omitted. Options: \"playing\", \"listening\", \"watching\", \"competing\"",
		Alternatives: []string{
			`activity_type = "watching"`,
			`activity_type = "competing"`,
		},
	},
	"presence.large_image": {
		Comment: "Default image keys (must match assets uploaded to your Discord app)",
	},
	"presence.small_image": {},
	"presence.coalesce_updates": {
		Comment: "When several updates arrive while Discord is busy, send only the newest.\nOff keeps every update, applied in whatever order they win the connection.",
	},

	// ── Behavior ─────────────────────────────────────────────────
	"behavior.auto_check_interval_ms": {
		Comment: "How often the window list is refreshed (milliseconds, minimum 250).",
	},
	"behavior.auto_checking": {
		Comment: "Refresh the window list automatically.",
	},
	"behavior.check_updates": {
		Comment: "Check for a newer release when `deskcord serve` starts.",
	},

	// ── Profile ──────────────────────────────────────────────────
	"profile.display_name": {
		Comment: "Profile card shown by the shell.",
	},
	"profile.handle_name": {},
	"profile.roles": {
		Comment: "Role badges shown under the handle. Colors are #rrggbb.",
		Alternatives: []string{
			`[[profile.roles]]`,
			`id = "1"`,
			`name = "Developer"`,
			`color = "#5865f2"`,
		},
	},

	// ── Privacy ──────────────────────────────────────────────────
	"privacy.ignore": {
		Comment: "Windows whose document name or title matches one of these globs are never listed.",
		Alternatives: []string{
			`ignore = ["*.env", "*Private Browsing*"]`,
		},
	},

	// ── Server ───────────────────────────────────────────────────
	"server.listen": {
		Comment: "Loopback address of the local bridge the shell talks to.",
	},
	"server.allowed_origins": {
		Comment: "Webview origins allowed to call the bridge.",
	},

	// ── Log ──────────────────────────────────────────────────────
	"log": {
		Comment: "Logging configuration",
	},
	"log.level": {
		Comment: "Minimum log level. Options: \"trace\", \"debug\", \"info\", \"warn\", \"error\"",
		Alternatives: []string{
			`level = "debug"`,
			`level = "warn"`,
		},
	},
	"log.max_size_mb": {
		Comment: "Maximum log file size in megabytes before rotation.",
	},
}
