package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks configuration values for consistency. It collects every
// problem found rather than stopping at the first.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.Paths.WatchDir) == "" {
		problems = append(problems, "paths.watch_dir is required")
	}
	if strings.TrimSpace(c.Paths.LibraryDir) == "" {
		problems = append(problems, "paths.library_dir is required")
	}
	if c.Paths.WatchDir != "" && c.Paths.WatchDir == c.Paths.LibraryDir {
		problems = append(problems, "paths.watch_dir and paths.library_dir must differ")
	}

	switch c.Watcher.Backend {
	case "notify", "poll":
	default:
		problems = append(problems, fmt.Sprintf("watcher.backend: unsupported value %q (use \"notify\" or \"poll\")", c.Watcher.Backend))
	}
	if c.Watcher.WatchDelaySeconds < 0 {
		problems = append(problems, "watcher.watch_delay_seconds must not be negative")
	}
	if c.Watcher.DebounceSeconds < 0 {
		problems = append(problems, "watcher.debounce_seconds must not be negative")
	}
	if c.Watcher.ReadyRetries < 1 {
		problems = append(problems, "watcher.ready_retries must be at least 1")
	}
	if c.Watcher.ReadyRetrySeconds < 1 {
		problems = append(problems, "watcher.ready_retry_seconds must be at least 1")
	}
	if c.Watcher.PollIntervalSeconds < 1 {
		problems = append(problems, "watcher.poll_interval_seconds must be at least 1")
	}
	if c.Watcher.MaxFileSizeMB < 1 {
		problems = append(problems, "watcher.max_file_size_mb must be at least 1")
	}

	if c.Pipeline.ConfidenceThreshold < 0 || c.Pipeline.ConfidenceThreshold > 1 {
		problems = append(problems, "pipeline.confidence_threshold must be between 0 and 1")
	}
	if c.Pipeline.WorkerThreads < 1 {
		problems = append(problems, "pipeline.worker_threads must be at least 1")
	}

	if c.Extraction.MaxLines < 1 {
		problems = append(problems, "extraction.max_lines must be at least 1")
	}
	if c.Extraction.CommandTimeoutSeconds < 1 {
		problems = append(problems, "extraction.command_timeout_seconds must be at least 1")
	}
	if len(c.Extraction.TextExtensions) == 0 && len(c.Extraction.Commands) == 0 {
		problems = append(problems, "extraction: at least one text extension or converter command is required")
	}

	switch c.Classifier.Backend {
	case "keyword":
	case "embedding":
		if c.Classifier.EndpointURL == "" {
			problems = append(problems, "classifier.endpoint_url is required for the embedding backend")
		}
		if c.Classifier.Model == "" {
			problems = append(problems, "classifier.model is required for the embedding backend")
		}
	default:
		problems = append(problems, fmt.Sprintf("classifier.backend: unsupported value %q (use \"keyword\" or \"embedding\")", c.Classifier.Backend))
	}
	if c.Classifier.TimeoutSeconds < 1 {
		problems = append(problems, "classifier.timeout_seconds must be at least 1")
	}

	if c.History.Keep < 0 {
		problems = append(problems, "history.keep must not be negative")
	}

	for name := range c.Categories {
		if strings.TrimSpace(name) == "" {
			problems = append(problems, "categories: empty category name")
			break
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.New("invalid configuration:\n  - " + strings.Join(problems, "\n  - "))
}
