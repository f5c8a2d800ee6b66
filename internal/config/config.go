package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	WatchDir   string `toml:"watch_dir"`
	LibraryDir string `toml:"library_dir"`
	DataDir    string `toml:"data_dir"`
	LogDir     string `toml:"log_dir"`
}

// Watcher contains configuration for directory watching and file readiness.
type Watcher struct {
	Backend               string   `toml:"backend"`
	WatchDelaySeconds     int      `toml:"watch_delay_seconds"`
	DebounceSeconds       int      `toml:"debounce_seconds"`
	ReadyRetries          int      `toml:"ready_retries"`
	ReadyRetrySeconds     int      `toml:"ready_retry_seconds"`
	PollIntervalSeconds   int      `toml:"poll_interval_seconds"`
	MaxFileSizeMB         int      `toml:"max_file_size_mb"`
	IgnoredExtensions     []string `toml:"ignored_extensions"`
	ScanExistingOnStartup bool     `toml:"scan_existing_on_startup"`
}

// Pipeline contains configuration for job execution.
type Pipeline struct {
	ConfidenceThreshold float64 `toml:"confidence_threshold"`
	WorkerThreads       int     `toml:"worker_threads"`
}

// Extraction contains configuration for text extraction.
type Extraction struct {
	// TextExtensions are read directly as plain text (code, notes, markup).
	TextExtensions []string `toml:"text_extensions"`
	// MaxLines caps how much of a text file is read for classification.
	MaxLines int `toml:"max_lines"`
	// Commands maps an extension to an external converter invocation; the
	// source path is appended as the final argument and stdout is captured.
	// Example: ".pdf" = ["pdftotext", "-q"].
	Commands map[string][]string `toml:"commands"`
	// CommandTimeoutSeconds bounds each converter run.
	CommandTimeoutSeconds int `toml:"command_timeout_seconds"`
}

// Classifier contains configuration for the scoring backend.
type Classifier struct {
	Backend        string `toml:"backend"`
	EndpointURL    string `toml:"endpoint_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// History contains configuration for the outcome journal.
type History struct {
	Enabled bool `toml:"enabled"`
	// Keep bounds how many outcome rows are retained; older rows are pruned.
	Keep int `toml:"keep"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for docsort.
type Config struct {
	Paths      Paths             `toml:"paths"`
	Watcher    Watcher           `toml:"watcher"`
	Pipeline   Pipeline          `toml:"pipeline"`
	Extraction Extraction        `toml:"extraction"`
	Classifier Classifier        `toml:"classifier"`
	History    History           `toml:"history"`
	Logging    Logging           `toml:"logging"`
	Categories map[string]string `toml:"categories"`
}

// DefaultConfigPath returns the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/docsort/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The second return is
// the resolved path, the third reports whether the file existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	return defaultPath, false, nil
}

// WriteSample writes the embedded sample configuration to path, creating
// parent directories. It refuses to overwrite an existing file.
func WriteSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil {
		return fmt.Errorf("config file already exists: %s", expanded)
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return os.WriteFile(expanded, []byte(sampleConfig), 0o644)
}

// EnsureDirectories creates the library, data, and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.LibraryDir, c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// RegistryPath returns the location of the processed file ledger.
func (c *Config) RegistryPath() string {
	return filepath.Join(c.Paths.DataDir, "processed_files.json")
}

// HistoryPath returns the location of the outcome journal database.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.DataDir, "history.db")
}

// LockPath returns the daemon single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "docsortd.lock")
}

// MaxFileSizeBytes converts the configured megabyte limit to bytes.
func (c *Config) MaxFileSizeBytes() int64 {
	return int64(c.Watcher.MaxFileSizeMB) * 1024 * 1024
}

// SettleDelay returns the initial wait before readiness probing starts.
func (c *Config) SettleDelay() time.Duration {
	return time.Duration(c.Watcher.WatchDelaySeconds) * time.Second
}

// DebounceWindow returns the duplicate-notification suppression window.
func (c *Config) DebounceWindow() time.Duration {
	return time.Duration(c.Watcher.DebounceSeconds) * time.Second
}

// ReadyRetryInterval returns the pause between readiness attempts.
func (c *Config) ReadyRetryInterval() time.Duration {
	return time.Duration(c.Watcher.ReadyRetrySeconds) * time.Second
}

// PollInterval returns the directory scan cadence for the polling backend.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Watcher.PollIntervalSeconds) * time.Second
}

// SupportedExtensions returns the set of extensions the pipeline can handle:
// plain-text extensions plus every extension with a converter command.
func (c *Config) SupportedExtensions() map[string]struct{} {
	set := make(map[string]struct{}, len(c.Extraction.TextExtensions)+len(c.Extraction.Commands))
	for _, ext := range c.Extraction.TextExtensions {
		set[normalizeExt(ext)] = struct{}{}
	}
	for ext := range c.Extraction.Commands {
		set[normalizeExt(ext)] = struct{}{}
	}
	return set
}

// IgnoredExtensions returns the normalized ignore set.
func (c *Config) IgnoredExtensions() map[string]struct{} {
	set := make(map[string]struct{}, len(c.Watcher.IgnoredExtensions))
	for _, ext := range c.Watcher.IgnoredExtensions {
		set[normalizeExt(ext)] = struct{}{}
	}
	return set
}

// FileType groups an extension for reporting: "text", "document", or "".
func (c *Config) FileType(path string) string {
	ext := normalizeExt(filepath.Ext(path))
	for _, t := range c.Extraction.TextExtensions {
		if normalizeExt(t) == ext {
			return "text"
		}
	}
	for cmdExt := range c.Extraction.Commands {
		if normalizeExt(cmdExt) == ext {
			return "document"
		}
	}
	return ""
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}
	if trimmed == "~" || strings.HasPrefix(trimmed, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if trimmed == "~" {
			return home, nil
		}
		return filepath.Join(home, trimmed[2:]), nil
	}
	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("resolve path %q: %w", trimmed, err)
	}
	return abs, nil
}
