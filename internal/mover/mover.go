package mover

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"docsort/internal/fileutil"
	"docsort/internal/logging"
)

// conflictStamp is the suffix layout appended to colliding filenames.
const conflictStamp = "20060102_150405"

// Mover places files under root/<category>/.
type Mover struct {
	root   string
	logger *slog.Logger
	now    func() time.Time
}

// Option customizes a Mover.
type Option func(*Mover)

// WithClock overrides the conflict-timestamp source (used in tests).
func WithClock(now func() time.Time) Option {
	return func(m *Mover) {
		if now != nil {
			m.now = now
		}
	}
}

// New constructs a Mover rooted at the library directory.
func New(root string, logger *slog.Logger, opts ...Option) *Mover {
	m := &Mover{
		root:   root,
		logger: logging.NewComponentLogger(logger, "mover"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Move relocates path into the category folder and returns the final
// destination. The destination directory is created on demand; an existing
// file at the target name is never touched.
func (m *Mover) Move(path, category string) (string, error) {
	folder, err := sanitizeCategory(category)
	if err != nil {
		return "", err
	}

	destDir := filepath.Join(m.root, folder)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create category directory %s: %w", destDir, err)
	}

	name := filepath.Base(path)
	target := filepath.Join(destDir, name)

	if _, err := os.Stat(target); err == nil {
		target = m.disambiguate(destDir, name)
		m.logger.Info("destination name conflict resolved",
			logging.String(logging.FieldFile, name),
			logging.String("target", filepath.Base(target)))
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("stat target %s: %w", target, err)
	}

	if err := m.relocate(path, target); err != nil {
		return "", err
	}

	m.logger.Info("moved file",
		logging.String(logging.FieldFile, name),
		logging.String(logging.FieldCategory, folder),
		logging.String("target", target))
	return target, nil
}

// disambiguate appends a timestamp before the extension; if that name is also
// taken (burst of moves within one second) a counter is added.
func (m *Mover) disambiguate(destDir, name string) string {
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	stamp := m.now().Format(conflictStamp)

	candidate := filepath.Join(destDir, fmt.Sprintf("%s_%s%s", stem, stamp, ext))
	for n := 2; ; n++ {
		if _, err := os.Stat(candidate); errors.Is(err, os.ErrNotExist) {
			return candidate
		}
		candidate = filepath.Join(destDir, fmt.Sprintf("%s_%s-%d%s", stem, stamp, n, ext))
	}
}

// relocate renames src to dst, falling back to copy-then-rename-then-delete
// when the two sit on different volumes.
func (m *Mover) relocate(src, dst string) error {
	renameErr := os.Rename(src, dst)
	if renameErr == nil {
		return nil
	}

	var linkErr *os.LinkError
	if !errors.As(renameErr, &linkErr) || !errors.Is(linkErr.Err, syscall.EXDEV) {
		return fmt.Errorf("move %s: %w", filepath.Base(src), renameErr)
	}

	// Cross-volume: stage under a partial name so the final name only ever
	// points at a complete file.
	partial := dst + ".partial"
	if err := fileutil.CopyFileVerified(src, partial); err != nil {
		_ = os.Remove(partial)
		return fmt.Errorf("copy %s across volumes: %w", filepath.Base(src), err)
	}
	if err := os.Rename(partial, dst); err != nil {
		_ = os.Remove(partial)
		return fmt.Errorf("finalize %s: %w", filepath.Base(dst), err)
	}
	if err := os.Remove(src); err != nil {
		m.logger.Warn("failed to remove source after cross-volume copy",
			logging.String(logging.FieldFile, src),
			logging.Error(err))
	}
	return nil
}

func sanitizeCategory(category string) (string, error) {
	trimmed := strings.TrimSpace(category)
	if trimmed == "" {
		return "", errors.New("category is empty")
	}
	if strings.ContainsAny(trimmed, `/\`) || trimmed == "." || trimmed == ".." {
		return "", fmt.Errorf("category %q is not a valid folder name", category)
	}
	return trimmed, nil
}
