// Package logging assembles the structured slog loggers used across docsort.
//
// It owns the configurable console/JSON handlers and centralizes level and
// output plumbing. Components receive a child logger tagged with a component
// attribute at construction time; there is no process-wide logger singleton.
// A no-op logger is provided for tests and wiring code that cannot fail.
package logging
