// Package config loads, normalizes, and validates the docsort configuration.
//
// Configuration lives in a single TOML file. Load applies defaults first, so
// a missing file yields a fully usable configuration, then expands home
// prefixes and validates ranges. Components consume the resulting Config by
// value through their constructors.
package config
