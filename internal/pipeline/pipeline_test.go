package pipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"docsort/internal/classify"
	"docsort/internal/config"
	"docsort/internal/logging"
	"docsort/internal/mover"
	"docsort/internal/pipeline"
	"docsort/internal/registry"
	"docsort/internal/testsupport"
)

type stubExtractor struct {
	text  string
	calls int
}

func (s *stubExtractor) Extract(_ context.Context, _ string) string {
	s.calls++
	return s.text
}

type stubClassifier struct {
	result classify.Result
	calls  int
}

func (s *stubClassifier) Classify(_ context.Context, _ string) classify.Result {
	s.calls++
	return s.result
}

func newPipeline(t *testing.T, cfg *config.Config, extractor *stubExtractor, classifier *stubClassifier) (*pipeline.Pipeline, *registry.Registry) {
	t.Helper()
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	reg := registry.Load(cfg.RegistryPath(), logging.NewNop())
	mv := mover.New(cfg.Paths.LibraryDir, logging.NewNop())
	return pipeline.New(cfg, logging.NewNop(), extractor, classifier, mv, reg, nil), reg
}

func TestProcessMovesAtThresholdBoundary(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithThreshold(0.50))
	extractor := &stubExtractor{text: "some document text"}
	classifier := &stubClassifier{result: classify.Result{Category: "ML", Score: 0.50}}
	p, reg := newPipeline(t, cfg, extractor, classifier)

	src := filepath.Join(cfg.Paths.WatchDir, "notes.txt")
	testsupport.WriteFile(t, src, "content")

	outcome := p.Process(context.Background(), src)
	if outcome.Action != pipeline.ActionMoved {
		t.Fatalf("action = %s, want MOVED", outcome.Action)
	}
	want := filepath.Join(cfg.Paths.LibraryDir, "ML", "notes.txt")
	if outcome.Destination != want {
		t.Fatalf("destination = %q, want %q", outcome.Destination, want)
	}
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("moved file missing: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatalf("source still present: %v", err)
	}
	if reg.Len() != 1 {
		t.Fatalf("registry entries = %d, want 1", reg.Len())
	}
}

func TestProcessKeepsBelowThreshold(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithThreshold(0.50))
	extractor := &stubExtractor{text: "some document text"}
	classifier := &stubClassifier{result: classify.Result{Category: "CS", Score: 0.30}}
	p, reg := newPipeline(t, cfg, extractor, classifier)

	src := filepath.Join(cfg.Paths.WatchDir, "draft.txt")
	testsupport.WriteFile(t, src, "content")

	outcome := p.Process(context.Background(), src)
	if outcome.Action != pipeline.ActionKept {
		t.Fatalf("action = %s, want KEPT", outcome.Action)
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("source should remain in place: %v", err)
	}
	if !reg.IsProcessed(src) {
		t.Fatal("kept file should be marked processed")
	}
}

func TestProcessKeepsEmptyTextWithoutClassifying(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	extractor := &stubExtractor{text: "   \n"}
	classifier := &stubClassifier{result: classify.Result{Category: "ML", Score: 0.99}}
	p, reg := newPipeline(t, cfg, extractor, classifier)

	src := filepath.Join(cfg.Paths.WatchDir, "blank.txt")
	testsupport.WriteFile(t, src, "content")

	outcome := p.Process(context.Background(), src)
	if outcome.Action != pipeline.ActionKept {
		t.Fatalf("action = %s, want KEPT", outcome.Action)
	}
	if outcome.Detail != "no text extracted" {
		t.Fatalf("detail = %q", outcome.Detail)
	}
	if classifier.calls != 0 {
		t.Fatalf("classifier called %d times for empty text", classifier.calls)
	}
	if !reg.IsProcessed(src) {
		t.Fatal("empty-text file should still be marked processed")
	}
}

func TestProcessMoveFailureLeavesFileUnregistered(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	extractor := &stubExtractor{text: "some document text"}
	classifier := &stubClassifier{result: classify.Result{Category: "bad/category", Score: 0.99}}
	p, reg := newPipeline(t, cfg, extractor, classifier)

	src := filepath.Join(cfg.Paths.WatchDir, "stuck.txt")
	testsupport.WriteFile(t, src, "content")

	outcome := p.Process(context.Background(), src)
	if outcome.Action != pipeline.ActionError {
		t.Fatalf("action = %s, want ERROR", outcome.Action)
	}
	if outcome.Err == nil {
		t.Fatal("expected move error in outcome")
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("source should remain after failed move: %v", err)
	}
	if reg.IsProcessed(src) {
		t.Fatal("failed job must not mark the file processed")
	}
}

func TestProcessCancelledContextLeavesFileUnregistered(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	extractor := &stubExtractor{text: ""}
	classifier := &stubClassifier{result: classify.Result{Category: "ML", Score: 0.99}}
	p, reg := newPipeline(t, cfg, extractor, classifier)

	src := filepath.Join(cfg.Paths.WatchDir, "report.pdf")
	testsupport.WriteFile(t, src, "content")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	outcome := p.Process(ctx, src)
	if outcome.Action != pipeline.ActionError {
		t.Fatalf("action = %s, want ERROR", outcome.Action)
	}
	if classifier.calls != 0 {
		t.Fatalf("classifier called %d times after cancellation", classifier.calls)
	}
	if reg.IsProcessed(src) {
		t.Fatal("cancelled job must not mark the file processed")
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("source should remain for retry: %v", err)
	}
}

type cancellingClassifier struct {
	cancel context.CancelFunc
	result classify.Result
}

func (c *cancellingClassifier) Classify(_ context.Context, _ string) classify.Result {
	c.cancel()
	return c.result
}

func TestProcessCancelledDuringClassifyLeavesFileUnregistered(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithThreshold(0.50))
	extractor := &stubExtractor{text: "some document text"}
	p, reg := newPipeline(t, cfg, extractor, &stubClassifier{})

	ctx, cancel := context.WithCancel(context.Background())
	classifier := &cancellingClassifier{cancel: cancel, result: classify.Result{Category: "ML", Score: 0.99}}
	mv := mover.New(cfg.Paths.LibraryDir, logging.NewNop())
	p = pipeline.New(cfg, logging.NewNop(), extractor, classifier, mv, reg, nil)

	src := filepath.Join(cfg.Paths.WatchDir, "paper.txt")
	testsupport.WriteFile(t, src, "content")

	outcome := p.Process(ctx, src)
	if outcome.Action != pipeline.ActionError {
		t.Fatalf("action = %s, want ERROR", outcome.Action)
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("source must not move after cancellation: %v", err)
	}
	if reg.IsProcessed(src) {
		t.Fatal("cancelled job must not mark the file processed")
	}
}

func TestProcessSkipsDisappearedFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	extractor := &stubExtractor{}
	classifier := &stubClassifier{}
	p, reg := newPipeline(t, cfg, extractor, classifier)

	src := filepath.Join(cfg.Paths.WatchDir, "gone.txt")

	outcome := p.Process(context.Background(), src)
	if outcome.Action != pipeline.ActionSkipped {
		t.Fatalf("action = %s, want SKIPPED", outcome.Action)
	}
	if extractor.calls != 0 {
		t.Fatal("extractor should not run for a missing file")
	}
	if reg.Len() != 0 {
		t.Fatal("missing file must not reach the ledger")
	}
}

func TestProcessUnknownCategoryNeverMoves(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithThreshold(0))
	extractor := &stubExtractor{text: "text"}
	classifier := &stubClassifier{result: classify.Unknown()}
	p, _ := newPipeline(t, cfg, extractor, classifier)

	src := filepath.Join(cfg.Paths.WatchDir, "odd.txt")
	testsupport.WriteFile(t, src, "content")

	outcome := p.Process(context.Background(), src)
	if outcome.Action != pipeline.ActionKept {
		t.Fatalf("action = %s, want KEPT for UNKNOWN even at zero threshold", outcome.Action)
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("source should remain in place: %v", err)
	}
}
