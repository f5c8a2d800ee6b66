package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"docsort/internal/config"
	"docsort/internal/logging"
	"docsort/internal/testsupport"
)

type fakeSource struct {
	mu     sync.Mutex
	ch     chan Event
	closed bool
}

func newFakeSource() *fakeSource {
	return &fakeSource{ch: make(chan Event, 16)}
}

func (f *fakeSource) Start() error { return nil }

func (f *fakeSource) Events() <-chan Event { return f.ch }

func (f *fakeSource) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.ch)
	}
	return nil
}

func (f *fakeSource) emit(path string, at time.Time) {
	f.ch <- Event{Path: path, DetectedAt: at}
}

type recordingPool struct {
	mu    sync.Mutex
	paths []string
	ch    chan string
}

func newRecordingPool() *recordingPool {
	return &recordingPool{ch: make(chan string, 16)}
}

func (r *recordingPool) Submit(path string) bool {
	r.mu.Lock()
	r.paths = append(r.paths, path)
	r.mu.Unlock()
	r.ch <- path
	return true
}

func (r *recordingPool) submissions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func (r *recordingPool) waitFor(t *testing.T, path string) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		// Submissions arrive from independent goroutines in no fixed
		// order, so check everything recorded so far rather than
		// discarding non-matching channel entries.
		for _, got := range r.submissions() {
			if got == path {
				return
			}
		}
		select {
		case <-r.ch:
		case <-deadline:
			t.Fatalf("timed out waiting for submission of %s", path)
		}
	}
}

func startWatcher(t *testing.T, cfg *config.Config, source Source, pool Submitter) *Watcher {
	t.Helper()
	w := New(cfg, source, pool, logging.NewNop())
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = w.Stop() })
	return w
}

func TestWatcherSubmitsReadyFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	source := newFakeSource()
	pool := newRecordingPool()
	startWatcher(t, cfg, source, pool)

	path := filepath.Join(cfg.Paths.WatchDir, "notes.txt")
	testsupport.WriteFile(t, path, "content")
	source.emit(path, time.Now())

	pool.waitFor(t, path)
}

func TestWatcherDebouncesDuplicateEvents(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Watcher.DebounceSeconds = 5
	source := newFakeSource()
	pool := newRecordingPool()
	startWatcher(t, cfg, source, pool)

	path := filepath.Join(cfg.Paths.WatchDir, "paper.txt")
	testsupport.WriteFile(t, path, "content")

	now := time.Now()
	source.emit(path, now)
	source.emit(path, now.Add(time.Second))

	// A second file acts as a barrier proving both events were consumed.
	barrier := filepath.Join(cfg.Paths.WatchDir, "barrier.txt")
	testsupport.WriteFile(t, barrier, "content")
	source.emit(barrier, now.Add(10*time.Second))

	pool.waitFor(t, path)
	pool.waitFor(t, barrier)

	count := 0
	for _, p := range pool.submissions() {
		if p == path {
			count++
		}
	}
	if count != 1 {
		t.Fatalf("submissions for %s = %d, want 1", path, count)
	}
}

func TestDebounceEvictsExpiredEntries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Watcher.DebounceSeconds = 5
	w := New(cfg, newFakeSource(), newRecordingPool(), logging.NewNop())

	now := time.Now()
	for i := 0; i < 100; i++ {
		path := filepath.Join(cfg.Paths.WatchDir, fmt.Sprintf("old-%d.txt", i))
		w.debounced(path, now)
	}

	if w.debounced(filepath.Join(cfg.Paths.WatchDir, "fresh.txt"), now.Add(10*time.Second)) {
		t.Fatal("first event for a path must never be debounced")
	}
	w.mu.Lock()
	size := len(w.lastEvent)
	w.mu.Unlock()
	if size != 1 {
		t.Fatalf("tracked entries = %d, want 1 after expiry", size)
	}
}

func TestWatcherDropsFilteredExtensions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	source := newFakeSource()
	pool := newRecordingPool()
	startWatcher(t, cfg, source, pool)

	ignored := filepath.Join(cfg.Paths.WatchDir, "video.part")
	unsupported := filepath.Join(cfg.Paths.WatchDir, "image.png")
	testsupport.WriteFile(t, ignored, "content")
	testsupport.WriteFile(t, unsupported, "content")

	source.emit(ignored, time.Now())
	source.emit(unsupported, time.Now())

	barrier := filepath.Join(cfg.Paths.WatchDir, "ok.txt")
	testsupport.WriteFile(t, barrier, "content")
	source.emit(barrier, time.Now())
	pool.waitFor(t, barrier)

	for _, p := range pool.submissions() {
		if p == ignored || p == unsupported {
			t.Fatalf("filtered file %s was submitted", p)
		}
	}
}

func TestWatcherAbandonsVanishedAndEmptyFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	source := newFakeSource()
	pool := newRecordingPool()
	w := startWatcher(t, cfg, source, pool)

	vanished := filepath.Join(cfg.Paths.WatchDir, "gone.txt")
	empty := filepath.Join(cfg.Paths.WatchDir, "empty.txt")
	testsupport.WriteFileSized(t, empty, 0)

	source.emit(vanished, time.Now())
	source.emit(empty, time.Now())

	if err := w.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if got := pool.submissions(); len(got) != 0 {
		t.Fatalf("submissions = %v, want none", got)
	}
}

func TestWatcherAbandonsOversizedFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Watcher.MaxFileSizeMB = 1
	source := newFakeSource()
	pool := newRecordingPool()
	w := startWatcher(t, cfg, source, pool)

	big := filepath.Join(cfg.Paths.WatchDir, "big.txt")
	testsupport.WriteFileSized(t, big, 2*1024*1024)
	source.emit(big, time.Now())

	if err := w.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if got := pool.submissions(); len(got) != 0 {
		t.Fatalf("submissions = %v, want none", got)
	}
}

func TestWatcherStartupScan(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Watcher.ScanExistingOnStartup = true

	settled := filepath.Join(cfg.Paths.WatchDir, "settled.txt")
	skippedExt := filepath.Join(cfg.Paths.WatchDir, "skip.part")
	skippedEmpty := filepath.Join(cfg.Paths.WatchDir, "empty.txt")
	testsupport.WriteFile(t, settled, "content")
	testsupport.WriteFile(t, skippedExt, "content")
	testsupport.WriteFileSized(t, skippedEmpty, 0)

	source := newFakeSource()
	pool := newRecordingPool()
	w := startWatcher(t, cfg, source, pool)

	if err := w.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	got := pool.submissions()
	if len(got) != 1 || got[0] != settled {
		t.Fatalf("startup submissions = %v, want only %s", got, settled)
	}
}
