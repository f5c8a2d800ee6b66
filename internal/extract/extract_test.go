package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"docsort/internal/config"
)

func newTestDispatcher(t *testing.T, mutate func(*config.Config)) *Dispatcher {
	t.Helper()
	cfg := config.Default()
	if mutate != nil {
		mutate(&cfg)
	}
	return NewDispatcher(&cfg, nil)
}

func TestExtractPlainText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("alpha\nbeta\ngamma"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	d := newTestDispatcher(t, nil)
	got := d.Extract(context.Background(), path)
	if got != "alpha\nbeta\ngamma" {
		t.Fatalf("Extract = %q", got)
	}
}

func TestExtractHonorsLineCap(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.py")
	content := strings.Repeat("print('x')\n", 50)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	d := newTestDispatcher(t, func(cfg *config.Config) {
		cfg.Extraction.MaxLines = 10
	})
	got := d.Extract(context.Background(), path)
	if n := len(strings.Split(got, "\n")); n != 10 {
		t.Fatalf("line count = %d, want 10", n)
	}
}

func TestExtractMissingFileReturnsEmpty(t *testing.T) {
	d := newTestDispatcher(t, nil)
	if got := d.Extract(context.Background(), "/nope/missing.txt"); got != "" {
		t.Fatalf("Extract missing file = %q, want empty", got)
	}
}

func TestExtractUnsupportedExtensionReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "binary.exe")
	if err := os.WriteFile(path, []byte{0x4d, 0x5a}, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	d := newTestDispatcher(t, nil)
	if got := d.Extract(context.Background(), path); got != "" {
		t.Fatalf("Extract unsupported = %q, want empty", got)
	}
}

func TestExtractNotebookCells(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "analysis.ipynb")
	nb := `{
  "cells": [
    {"cell_type": "markdown", "source": ["# Title\n", "Intro text\n"]},
    {"cell_type": "code", "source": "import numpy as np\nx = np.ones(3)"}
  ]
}`
	if err := os.WriteFile(path, []byte(nb), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	d := newTestDispatcher(t, nil)
	got := d.Extract(context.Background(), path)
	for _, want := range []string{"# Title", "Intro text", "import numpy as np", "x = np.ones(3)"} {
		if !strings.Contains(got, want) {
			t.Errorf("notebook text missing %q in %q", want, got)
		}
	}
}

func TestExtractCorruptNotebookReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.ipynb")
	if err := os.WriteFile(path, []byte("{cells: nope"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	d := newTestDispatcher(t, nil)
	if got := d.Extract(context.Background(), path); got != "" {
		t.Fatalf("Extract corrupt notebook = %q, want empty", got)
	}
}

type stubRunner struct {
	out []byte
	err error

	name string
	args []string
}

func (s *stubRunner) Output(_ context.Context, name string, args ...string) ([]byte, error) {
	s.name = name
	s.args = args
	return s.out, s.err
}

func TestExtractCommandCapturesStdout(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "paper.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.7"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	d := newTestDispatcher(t, func(cfg *config.Config) {
		cfg.Extraction.Commands = map[string][]string{".pdf": {"pdftotext", "-q"}}
	})
	runner := &stubRunner{out: []byte("  extracted body  \n")}
	d.runner = runner

	got := d.Extract(context.Background(), path)
	if got != "extracted body" {
		t.Fatalf("Extract = %q", got)
	}
	if runner.name != "pdftotext" {
		t.Fatalf("command = %q", runner.name)
	}
	if len(runner.args) != 2 || runner.args[0] != "-q" || runner.args[1] != path {
		t.Fatalf("args = %v", runner.args)
	}
}

func TestExtractCommandFailureReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "paper.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.7"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	d := newTestDispatcher(t, func(cfg *config.Config) {
		cfg.Extraction.Commands = map[string][]string{".pdf": {"pdftotext"}}
	})
	d.runner = &stubRunner{err: errors.New("exit status 1")}

	if got := d.Extract(context.Background(), path); got != "" {
		t.Fatalf("Extract after command failure = %q, want empty", got)
	}
}
