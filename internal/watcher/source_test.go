package watcher

import (
	"path/filepath"
	"testing"
	"time"

	"docsort/internal/logging"
	"docsort/internal/testsupport"
)

func waitForEvent(t *testing.T, events <-chan Event, path string) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				t.Fatalf("event channel closed before seeing %s", path)
			}
			if ev.Path == path {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for event for %s", path)
		}
	}
}

func TestNotifySourceEmitsCreateEvents(t *testing.T) {
	dir := t.TempDir()
	source := newNotifySource(dir, logging.NewNop())
	if err := source.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer source.Stop()

	path := filepath.Join(dir, "incoming.txt")
	testsupport.WriteFile(t, path, "content")

	waitForEvent(t, source.Events(), path)
}

func TestPollSourceEmitsNewAndChangedFiles(t *testing.T) {
	dir := t.TempDir()

	// Present before Start: primed into the seen map, no event.
	existing := filepath.Join(dir, "existing.txt")
	testsupport.WriteFile(t, existing, "content")

	source := newPollSource(dir, 20*time.Millisecond, logging.NewNop())
	if err := source.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer source.Stop()

	fresh := filepath.Join(dir, "fresh.txt")
	testsupport.WriteFile(t, fresh, "content")
	waitForEvent(t, source.Events(), fresh)
}

func TestPollSourceStopClosesChannel(t *testing.T) {
	source := newPollSource(t.TempDir(), 20*time.Millisecond, logging.NewNop())
	if err := source.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	events := source.Events()
	if err := source.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-events:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("event channel not closed after Stop")
		}
	}
}
