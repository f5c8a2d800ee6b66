package extract

import (
	"bufio"
	"context"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"docsort/internal/config"
	"docsort/internal/logging"
)

// Extractor converts a file into plain text. Implementations must tolerate
// unreadable or corrupt input by returning an empty string, and must be safe
// for concurrent use.
type Extractor interface {
	Extract(ctx context.Context, path string) string
}

type commandRunner interface {
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execCommandRunner struct{}

func (execCommandRunner) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	return cmd.Output()
}

// Dispatcher routes extraction by file extension.
type Dispatcher struct {
	logger         *slog.Logger
	textExtensions map[string]struct{}
	maxLines       int
	commands       map[string][]string
	commandTimeout time.Duration
	runner         commandRunner
}

// NewDispatcher builds the extractor configured in cfg.
func NewDispatcher(cfg *config.Config, logger *slog.Logger) *Dispatcher {
	textExts := make(map[string]struct{}, len(cfg.Extraction.TextExtensions))
	for _, ext := range cfg.Extraction.TextExtensions {
		textExts[strings.ToLower(ext)] = struct{}{}
	}
	commands := make(map[string][]string, len(cfg.Extraction.Commands))
	for ext, argv := range cfg.Extraction.Commands {
		commands[strings.ToLower(ext)] = argv
	}
	return &Dispatcher{
		logger:         logging.NewComponentLogger(logger, "extract"),
		textExtensions: textExts,
		maxLines:       cfg.Extraction.MaxLines,
		commands:       commands,
		commandTimeout: time.Duration(cfg.Extraction.CommandTimeoutSeconds) * time.Second,
		runner:         execCommandRunner{},
	}
}

// Extract returns the file's text content, or "" when nothing could be read.
func (d *Dispatcher) Extract(ctx context.Context, path string) string {
	ext := strings.ToLower(filepath.Ext(path))

	if argv, ok := d.commands[ext]; ok {
		return d.runCommand(ctx, argv, path)
	}
	if _, ok := d.textExtensions[ext]; ok {
		if ext == ".ipynb" {
			return d.readNotebook(path)
		}
		return d.readLines(path)
	}

	d.logger.Warn("no extractor for extension",
		logging.String(logging.FieldFile, filepath.Base(path)),
		logging.String("extension", ext))
	return ""
}

// readLines reads up to maxLines lines of a text file.
func (d *Dispatcher) readLines(path string) string {
	file, err := os.Open(path)
	if err != nil {
		d.logger.Error("extraction failed",
			logging.String(logging.FieldFile, filepath.Base(path)),
			logging.Error(err))
		return ""
	}
	defer file.Close()

	var b strings.Builder
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lines := 0
	for scanner.Scan() && lines < d.maxLines {
		if lines > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strings.TrimRight(scanner.Text(), "\r\n"))
		lines++
	}
	if err := scanner.Err(); err != nil {
		d.logger.Error("extraction failed",
			logging.String(logging.FieldFile, filepath.Base(path)),
			logging.Error(err))
		return ""
	}
	return b.String()
}

// runCommand invokes an external converter and captures its stdout.
func (d *Dispatcher) runCommand(ctx context.Context, argv []string, path string) string {
	if len(argv) == 0 {
		return ""
	}
	runCtx, cancel := context.WithTimeout(ctx, d.commandTimeout)
	defer cancel()

	args := append(append([]string{}, argv[1:]...), path)
	out, err := d.runner.Output(runCtx, argv[0], args...)
	if err != nil {
		d.logger.Error("converter command failed",
			logging.String(logging.FieldFile, filepath.Base(path)),
			logging.String("command", argv[0]),
			logging.Error(err))
		return ""
	}
	return strings.TrimSpace(string(out))
}
