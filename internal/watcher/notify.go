package watcher

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"docsort/internal/logging"
)

// notifySource adapts fsnotify to the Source interface. Create and write
// notifications both surface as events; the debounce stage collapses the
// pairs a single download produces.
type notifySource struct {
	dir    string
	logger *slog.Logger

	mu      sync.Mutex
	fw      *fsnotify.Watcher
	events  chan Event
	quit    chan struct{}
	running bool
	wg      sync.WaitGroup
}

func newNotifySource(dir string, logger *slog.Logger) *notifySource {
	return &notifySource{
		dir:    dir,
		logger: logging.NewComponentLogger(logger, "watch-source"),
	}
}

func (s *notifySource) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := fw.Add(s.dir); err != nil {
		_ = fw.Close()
		return fmt.Errorf("watch %s: %w", s.dir, err)
	}

	s.fw = fw
	s.events = make(chan Event, 32)
	s.quit = make(chan struct{})
	s.running = true

	s.wg.Add(1)
	go s.loop(fw, s.events, s.quit)
	s.logger.Info("watching directory", logging.String("dir", s.dir))
	return nil
}

func (s *notifySource) Events() <-chan Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events
}

func (s *notifySource) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.quit)
	fw := s.fw
	s.mu.Unlock()

	err := fw.Close()
	s.wg.Wait()
	return err
}

func (s *notifySource) loop(fw *fsnotify.Watcher, out chan<- Event, quit <-chan struct{}) {
	defer s.wg.Done()
	defer close(out)

	for {
		select {
		case <-quit:
			return
		case ev, ok := <-fw.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			select {
			case out <- Event{Path: ev.Name, DetectedAt: time.Now()}:
			case <-quit:
				return
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			s.logger.Warn("notification error", logging.Error(err))
		}
	}
}
