// Package pctracker provides embedded assets for the pctracker binary.
//
// The root package exists solely to embed [config.default.toml] and
// [rules.default.toml]. The CLI copies them into the data directory on
// first run.
package pctracker

import _ "embed"

// DefaultConfigTOML holds the raw bytes of config.default.toml, generated by
// cmd/genconfig and embedded at build time.
//
//go:embed config.default.toml
var DefaultConfigTOML []byte

// DefaultRulesTOML holds the starter classification rules written to
// rules.toml the first time analyze runs.
//
//go:embed rules.default.toml
var DefaultRulesTOML []byte
