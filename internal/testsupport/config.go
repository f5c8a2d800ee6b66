package testsupport

import (
	"path/filepath"
	"testing"

	"docsort/internal/config"
)

// ConfigOption customizes the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// Timings are shortened so tests exercising waits stay fast.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.WatchDir = filepath.Join(base, "watch")
	cfg.Paths.LibraryDir = filepath.Join(base, "library")
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Watcher.WatchDelaySeconds = 0
	cfg.Watcher.DebounceSeconds = 0
	cfg.Watcher.ReadyRetries = 2
	cfg.Watcher.ReadyRetrySeconds = 0
	cfg.Categories = map[string]string{
		"Finance":  "invoice payment receipt tax",
		"Research": "experiment hypothesis dataset analysis",
	}

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithThreshold overrides the confidence threshold.
func WithThreshold(threshold float64) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Pipeline.ConfidenceThreshold = threshold
	}
}

// WithCategories replaces the category index.
func WithCategories(index map[string]string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Categories = index
	}
}

// WithHistory enables the outcome journal with the given retention.
func WithHistory(keep int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.History.Enabled = true
		cfg.History.Keep = keep
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.WatchDir)
}
