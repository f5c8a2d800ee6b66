// Package watcher turns filesystem activity in the intake directory into
// stable-file submissions to the worker pool. Two event sources are
// available: an OS-notification backend and a polling backend.
package watcher
