package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"docsort/internal/logging"
)

// mtimeTolerance is how far a file's current modification time may drift from
// the recorded one and still count as the same content version. Filesystems
// with coarse timestamp resolution need the slack.
const mtimeTolerance = 1.0 // seconds

// Registry is the durable ledger answering "was this file version handled?".
// All access to the in-memory map is serialized; worker goroutines share one
// instance.
type Registry struct {
	path   string
	logger *slog.Logger

	mu      sync.Mutex
	entries map[string]float64 // basename -> mtime epoch seconds
}

// Load opens the ledger at path, reading any existing snapshot. A missing or
// malformed snapshot yields an empty ledger and a warning, never an error.
func Load(path string, logger *slog.Logger) *Registry {
	logger = logging.NewComponentLogger(logger, "registry")

	r := &Registry{
		path:    path,
		logger:  logger,
		entries: make(map[string]float64),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("could not read processed file ledger, starting empty", logging.Error(err))
		}
		return r
	}
	if len(data) == 0 {
		return r
	}
	if err := json.Unmarshal(data, &r.entries); err != nil {
		logger.Warn("could not parse processed file ledger, starting empty", logging.Error(err))
		r.entries = make(map[string]float64)
		return r
	}

	logger.Debug("loaded processed file ledger",
		logging.Int("entry_count", len(r.entries)),
		logging.String("path", path))
	return r
}

// IsProcessed reports whether the file at path was already handled with its
// current modification time. Any error reading the current mtime counts as
// not processed, so a doubtful file is reprocessed rather than skipped.
func (r *Registry) IsProcessed(path string) bool {
	name := filepath.Base(path)

	r.mu.Lock()
	recorded, ok := r.entries[name]
	r.mu.Unlock()
	if !ok {
		return false
	}

	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return math.Abs(epochSeconds(info.ModTime())-recorded) < mtimeTolerance
}

// MarkProcessed records the file's current modification time under its
// basename and persists the full ledger. When the mtime cannot be read the
// wall clock is recorded instead.
func (r *Registry) MarkProcessed(path string) error {
	name := filepath.Base(path)

	mtime := epochSeconds(time.Now())
	if info, err := os.Stat(path); err == nil {
		mtime = epochSeconds(info.ModTime())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[name] = mtime
	if err := r.save(); err != nil {
		return fmt.Errorf("persist ledger: %w", err)
	}
	return nil
}

// Flush rewrites the snapshot unconditionally. Called once during shutdown.
func (r *Registry) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.save()
}

// Len returns the number of ledger entries.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// save writes the snapshot atomically via a temp file. Caller holds r.mu.
func (r *Registry) save() error {
	data, err := json.MarshalIndent(r.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}

	if dir := filepath.Dir(r.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create ledger directory: %w", err)
		}
	}

	tmpPath := r.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, r.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

func epochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
