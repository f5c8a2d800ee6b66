package watcher

import (
	"fmt"
	"log/slog"
	"time"

	"docsort/internal/config"
)

// Event is one raw detection from an event source.
type Event struct {
	Path       string
	DetectedAt time.Time
}

// Source produces raw file events for the watch directory. Implementations
// close their Events channel after Stop.
type Source interface {
	Start() error
	Events() <-chan Event
	Stop() error
}

// NewSource builds the configured event source backend.
func NewSource(cfg *config.Config, logger *slog.Logger) (Source, error) {
	switch cfg.Watcher.Backend {
	case "notify":
		return newNotifySource(cfg.Paths.WatchDir, logger), nil
	case "poll":
		return newPollSource(cfg.Paths.WatchDir, cfg.PollInterval(), logger), nil
	default:
		return nil, fmt.Errorf("watcher backend %q not supported", cfg.Watcher.Backend)
	}
}
