package watcher

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"docsort/internal/logging"
)

// pollSource scans the watch directory on a fixed interval and emits an
// event for every file it has not seen before or whose mtime changed. It
// serves filesystems where notifications are unreliable, such as network
// mounts.
type pollSource struct {
	dir      string
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	events  chan Event
	quit    chan struct{}
	running bool
	wg      sync.WaitGroup

	seen map[string]time.Time
}

func newPollSource(dir string, interval time.Duration, logger *slog.Logger) *pollSource {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &pollSource{
		dir:      dir,
		interval: interval,
		logger:   logging.NewComponentLogger(logger, "watch-source"),
		seen:     make(map[string]time.Time),
	}
}

func (s *pollSource) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	s.events = make(chan Event, 32)
	s.quit = make(chan struct{})
	s.running = true

	// Prime the seen map so files already present do not fire events;
	// startup handling is the scanner's job.
	s.scan(nil)

	s.wg.Add(1)
	go s.loop(s.events, s.quit)
	s.logger.Info("polling directory",
		logging.String("dir", s.dir),
		logging.Duration("interval", s.interval),
	)
	return nil
}

func (s *pollSource) Events() <-chan Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events
}

func (s *pollSource) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.quit)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

func (s *pollSource) loop(out chan<- Event, quit <-chan struct{}) {
	defer s.wg.Done()
	defer close(out)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-quit:
			return
		case <-ticker.C:
			for _, ev := range s.collect() {
				select {
				case out <- ev:
				case <-quit:
					return
				}
			}
		}
	}
}

func (s *pollSource) collect() []Event {
	var events []Event
	s.scan(func(path string, mtime time.Time) {
		events = append(events, Event{Path: path, DetectedAt: time.Now()})
	})
	return events
}

// scan walks the directory once, updating the seen map and invoking onNew
// for paths that are new or modified since the previous pass. A nil onNew
// records state without emitting.
func (s *pollSource) scan(onNew func(path string, mtime time.Time)) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		s.logger.Warn("poll scan failed", logging.Error(err))
		return
	}

	current := make(map[string]time.Time, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		current[path] = info.ModTime()

		previous, known := s.seen[path]
		if known && previous.Equal(info.ModTime()) {
			continue
		}
		if onNew != nil {
			onNew(path, info.ModTime())
		}
	}
	s.seen = current
}
