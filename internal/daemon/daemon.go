package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/gofrs/flock"

	"docsort/internal/classify"
	"docsort/internal/config"
	"docsort/internal/extract"
	"docsort/internal/history"
	"docsort/internal/logging"
	"docsort/internal/mover"
	"docsort/internal/pipeline"
	"docsort/internal/registry"
	"docsort/internal/watcher"
	"docsort/internal/workerpool"
)

// precomputer is implemented by classifier backends that need a warm-up
// pass over the category index before serving.
type precomputer interface {
	Precompute(ctx context.Context, index map[string]string) error
}

// Daemon owns the full sorting pipeline and enforces single-instance
// execution per data directory.
type Daemon struct {
	cfg        *config.Config
	logger     *slog.Logger
	classifier classify.Classifier
	registry   *registry.Registry
	journal    *history.Journal
	pool       *workerpool.Pool
	watcher    *watcher.Watcher

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
}

// New wires every component from the configuration.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil || logger == nil {
		return nil, errors.New("daemon requires config and logger")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	classifier, err := classify.NewFromConfig(cfg, logger)
	if err != nil {
		return nil, err
	}

	journal, err := history.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open history journal: %w", err)
	}

	reg := registry.Load(cfg.RegistryPath(), logger)
	extractor := extract.NewDispatcher(cfg, logger)
	mv := mover.New(cfg.Paths.LibraryDir, logger)
	pipe := pipeline.New(cfg, logger, extractor, classifier, mv, reg, journal)
	pool := workerpool.New(cfg.Pipeline.WorkerThreads, pipe, reg, logger)

	source, err := watcher.NewSource(cfg, logger)
	if err != nil {
		_ = journal.Close()
		return nil, err
	}

	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:        cfg,
		logger:     logging.NewComponentLogger(logger, "daemon"),
		classifier: classifier,
		registry:   reg,
		journal:    journal,
		pool:       pool,
		watcher:    watcher.New(cfg, source, pool, logger),
		lockPath:   lockPath,
		lock:       flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock, warms the classifier and begins
// watching.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another docsort daemon instance is already running")
	}

	// Jobs run detached from the caller's context: a shutdown signal
	// drains in-flight work via Stop instead of aborting it mid-file.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	d.cancel = cancel

	if warmable, ok := d.classifier.(precomputer); ok {
		if err := warmable.Precompute(runCtx, d.cfg.Categories); err != nil {
			d.release()
			return fmt.Errorf("precompute category index: %w", err)
		}
	}

	d.pool.Start(runCtx)
	if err := d.watcher.Start(runCtx); err != nil {
		d.pool.Stop()
		d.release()
		return fmt.Errorf("start watcher: %w", err)
	}

	d.running.Store(true)
	d.logger.Info("docsort daemon started",
		logging.String("watch", d.cfg.Paths.WatchDir),
		logging.String("library", d.cfg.Paths.LibraryDir),
		logging.String("lock", d.lockPath),
	)
	return nil
}

/// Stop shuts the pipeline down in dependency order: no new detections,
// then drain the workers, then flush and close persistent state.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if err := d.watcher.Stop(); err != nil {
		d.logger.Warn("watcher stop failed", logging.Error(err))
	}
	d.pool.Stop()
	if err := d.journal.Close(); err != nil {
		d.logger.Warn("history close failed", logging.Error(err))
	}
	d.release()
	d.running.Store(false)
	d.logger.Info("docsort daemon stopped")
}

func (d *Daemon) release() {
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
}

// Registry exposes the ledger for status reporting.
func (d *Daemon) Registry() *registry.Registry {
	return d.registry
}

// Running reports whether the daemon lifecycle is active.
func (d *Daemon) Running() bool {
	return d.running.Load()
}
