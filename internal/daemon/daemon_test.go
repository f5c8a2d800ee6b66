package daemon_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"docsort/internal/daemon"
	"docsort/internal/logging"
	"docsort/internal/testsupport"
)

func waitForFile(t *testing.T, path string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(path); err == nil {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", path)
}

func TestDaemonSortsDroppedFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := os.MkdirAll(cfg.Paths.WatchDir, 0o755); err != nil {
		t.Fatalf("mkdir watch dir: %v", err)
	}

	d, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	src := filepath.Join(cfg.Paths.WatchDir, "invoice.txt")
	testsupport.WriteFile(t, src, "invoice for the payment, receipt attached, tax summary")

	waitForFile(t, filepath.Join(cfg.Paths.LibraryDir, "Finance", "invoice.txt"))

	d.Stop()
	if d.Registry().Len() != 1 {
		t.Fatalf("registry entries = %d, want 1", d.Registry().Len())
	}
}

func TestDaemonRejectsSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := os.MkdirAll(cfg.Paths.WatchDir, 0o755); err != nil {
		t.Fatalf("mkdir watch dir: %v", err)
	}

	first, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer first.Stop()

	second, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("New second: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("second instance acquired the lock")
	}
}

func TestDaemonStartupScanProcessesExistingFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Watcher.ScanExistingOnStartup = true

	src := filepath.Join(cfg.Paths.WatchDir, "report.txt")
	testsupport.WriteFile(t, src, "experiment results with dataset analysis and a hypothesis")

	d, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer d.Stop()

	waitForFile(t, filepath.Join(cfg.Paths.LibraryDir, "Research", "report.txt"))
}
