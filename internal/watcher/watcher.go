package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"docsort/internal/config"
	"docsort/internal/logging"
)

// Submitter accepts candidate files for processing.
type Submitter interface {
	Submit(path string) bool
}

// Watcher filters and debounces raw events, waits for each surviving file
// to stabilize, and hands ready files to the pool. Per-file waits run on
// their own goroutines so one slow download never stalls detection.
type Watcher struct {
	cfg    *config.Config
	logger *slog.Logger
	source Source
	pool   Submitter

	debounceWindow time.Duration
	settleDelay    time.Duration
	retryInterval  time.Duration
	retries        int
	maxSize        int64
	supported      map[string]struct{}
	ignored        map[string]struct{}

	mu        sync.Mutex
	lastEvent map[string]time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a watcher around the given event source and pool.
func New(cfg *config.Config, source Source, pool Submitter, logger *slog.Logger) *Watcher {
	return &Watcher{
		cfg:            cfg,
		logger:         logging.NewComponentLogger(logger, "watcher"),
		source:         source,
		pool:           pool,
		debounceWindow: cfg.DebounceWindow(),
		settleDelay:    cfg.SettleDelay(),
		retryInterval:  cfg.ReadyRetryInterval(),
		retries:        cfg.Watcher.ReadyRetries,
		maxSize:        cfg.MaxFileSizeBytes(),
		supported:      cfg.SupportedExtensions(),
		ignored:        cfg.IgnoredExtensions(),
		lastEvent:      make(map[string]time.Time),
	}
}

// Start begins consuming events. When configured, files already in the
// watch directory are scanned and submitted first.
func (w *Watcher) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)

	if w.cfg.Watcher.ScanExistingOnStartup {
		w.scanExisting()
	}

	if err := w.source.Start(); err != nil {
		w.cancel()
		return err
	}

	w.wg.Add(1)
	go w.consume()
	return nil
}

// Stop halts the event source and waits for in-flight readiness checks.
func (w *Watcher) Stop() error {
	if w.cancel != nil {
		w.cancel()
	}
	err := w.source.Stop()
	w.wg.Wait()
	return err
}

func (w *Watcher) consume() {
	defer w.wg.Done()
	events := w.source.Events()
	for {
		select {
		case <-w.ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			w.handle(ev)
		}
	}
}

func (w *Watcher) handle(ev Event) {
	if !w.admit(ev.Path) {
		return
	}
	if w.debounced(ev.Path, ev.DetectedAt) {
		w.logger.Debug("debounced duplicate event", logging.String(logging.FieldFile, ev.Path))
		return
	}

	w.wg.Add(1)
	go w.waitReady(ev.Path)
}

// admit applies the extension filters. Ignored extensions and extensions
// outside the supported set are dropped silently.
func (w *Watcher) admit(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if _, skip := w.ignored[ext]; skip {
		return false
	}
	_, ok := w.supported[ext]
	return ok
}

// debounced reports whether an event for path arrived within the debounce
// window of a prior one, recording the new arrival either way. Entries
// past the window are evicted so the map tracks only recent activity.
func (w *Watcher) debounced(path string, at time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for stale, ts := range w.lastEvent {
		if at.Sub(ts) >= w.debounceWindow {
			delete(w.lastEvent, stale)
		}
	}
	previous, seen := w.lastEvent[path]
	w.lastEvent[path] = at
	return seen && at.Sub(previous) < w.debounceWindow
}

// waitReady gives the file a settle delay, then retries until it is
// readable and sized acceptably. Abandonment is silent for files that
// vanish and logged otherwise.
func (w *Watcher) waitReady(path string) {
	defer w.wg.Done()

	if !w.sleep(w.settleDelay) {
		return
	}

	for attempt := 0; attempt < w.retries; attempt++ {
		if attempt > 0 && !w.sleep(w.retryInterval) {
			return
		}

		info, err := os.Stat(path)
		if err != nil {
			w.logger.Debug("file disappeared during readiness wait", logging.String(logging.FieldFile, path))
			return
		}

		if !readable(path) {
			continue
		}

		switch {
		case info.Size() == 0:
			w.logger.Debug("abandoning empty file", logging.String(logging.FieldFile, path))
			return
		case info.Size() > w.maxSize:
			w.logger.Warn("abandoning oversized file",
				logging.String(logging.FieldFile, path),
				logging.Int64("size", info.Size()),
				logging.Int64("max", w.maxSize),
			)
			return
		}

		w.pool.Submit(path)
		return
	}

	w.logger.Warn("file never became ready", logging.String(logging.FieldFile, path))
}

// scanExisting submits settled files already present at startup. The
// readiness retry loop is skipped; the filters and size checks still apply.
func (w *Watcher) scanExisting() {
	entries, err := os.ReadDir(w.cfg.Paths.WatchDir)
	if err != nil {
		w.logger.Warn("startup scan failed", logging.Error(err))
		return
	}

	submitted := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(w.cfg.Paths.WatchDir, entry.Name())
		if !w.admit(path) {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.Size() == 0 || info.Size() > w.maxSize {
			continue
		}
		if w.pool.Submit(path) {
			submitted++
		}
	}
	if submitted > 0 {
		w.logger.Info("startup scan complete", logging.Int("submitted", submitted))
	}
}

func (w *Watcher) sleep(d time.Duration) bool {
	if d <= 0 {
		return w.ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-w.ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func readable(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	_ = f.Close()
	return true
}
