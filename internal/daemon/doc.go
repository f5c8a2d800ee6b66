// Package daemon assembles the watcher, worker pool, registry and journal
// into a single lifecycle with flock-based locking to prevent multiple
// instances from sorting the same directory.
package daemon
