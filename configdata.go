// Package deskcord provides embedded assets for the deskcord bridge.
//
// The root package exists to embed the generated [config.default.toml] and
// the built-in window catalog.
package deskcord

import _ "embed"

// DefaultConfigTOML holds the raw bytes of config.default.toml, embedded at
// build time. `deskcord config init` writes it to the data directory.
//
//go:embed config.default.toml
var DefaultConfigTOML []byte

// DefaultAllowedProcesses is the built-in allowed_processes.json catalog,
// used when the data directory has no override.
//
//go:embed allowed_processes.json
var DefaultAllowedProcesses []byte
