package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeWatcher()
	c.normalizeExtraction()
	c.normalizeClassifier()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.WatchDir, err = expandPath(c.Paths.WatchDir); err != nil {
		return fmt.Errorf("paths.watch_dir: %w", err)
	}
	if c.Paths.LibraryDir, err = expandPath(c.Paths.LibraryDir); err != nil {
		return fmt.Errorf("paths.library_dir: %w", err)
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeWatcher() {
	c.Watcher.Backend = strings.ToLower(strings.TrimSpace(c.Watcher.Backend))
	if c.Watcher.Backend == "" {
		c.Watcher.Backend = defaultWatcherBackend
	}
	normalized := make([]string, 0, len(c.Watcher.IgnoredExtensions))
	for _, ext := range c.Watcher.IgnoredExtensions {
		if n := normalizeExt(ext); n != "" {
			normalized = append(normalized, n)
		}
	}
	c.Watcher.IgnoredExtensions = normalized
}

func (c *Config) normalizeExtraction() {
	normalized := make([]string, 0, len(c.Extraction.TextExtensions))
	for _, ext := range c.Extraction.TextExtensions {
		if n := normalizeExt(ext); n != "" {
			normalized = append(normalized, n)
		}
	}
	c.Extraction.TextExtensions = normalized

	if len(c.Extraction.Commands) > 0 {
		commands := make(map[string][]string, len(c.Extraction.Commands))
		for ext, argv := range c.Extraction.Commands {
			if n := normalizeExt(ext); n != "" && len(argv) > 0 {
				commands[n] = argv
			}
		}
		c.Extraction.Commands = commands
	}
}

func (c *Config) normalizeClassifier() {
	c.Classifier.Backend = strings.ToLower(strings.TrimSpace(c.Classifier.Backend))
	if c.Classifier.Backend == "" {
		c.Classifier.Backend = defaultClassifierBackend
	}
	c.Classifier.EndpointURL = strings.TrimSpace(c.Classifier.EndpointURL)
	c.Classifier.Model = strings.TrimSpace(c.Classifier.Model)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
