// Package main hosts the docsort CLI entrypoint and command graph.
//
// The Cobra-based command tree covers the foreground daemon, one-shot scans
// of the watch directory, the outcome history, and configuration
// scaffolding. Configuration resolution happens once per invocation in
// commandContext so subcommands can focus on user experience instead of
// wiring.
package main
