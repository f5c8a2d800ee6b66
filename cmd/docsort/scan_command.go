package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"docsort/internal/classify"
	"docsort/internal/config"
	"docsort/internal/extract"
	"docsort/internal/history"
	"docsort/internal/logging"
	"docsort/internal/mover"
	"docsort/internal/pipeline"
	"docsort/internal/registry"
)

func newScanCommand(ctx *commandContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Process settled files in the watch directory once and exit",
		Long: "Scan runs one sorting pass over the watch directory without " +
			"starting the daemon. Files already recorded in the ledger are " +
			"skipped unless --all is given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return runScan(cmd.Context(), cfg, all)
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Reprocess files already recorded in the ledger")
	return cmd
}

func runScan(ctx context.Context, cfg *config.Config, all bool) error {
	logger := logging.NewNop()

	classifier, err := classify.NewFromConfig(cfg, logger)
	if err != nil {
		return err
	}
	if warmable, ok := classifier.(interface {
		Precompute(ctx context.Context, index map[string]string) error
	}); ok {
		if err := warmable.Precompute(ctx, cfg.Categories); err != nil {
			return fmt.Errorf("precompute category index: %w", err)
		}
	}

	journal, err := history.Open(cfg)
	if err != nil {
		return fmt.Errorf("open history journal: %w", err)
	}
	defer journal.Close()

	reg := registry.Load(cfg.RegistryPath(), logger)
	extractor := extract.NewDispatcher(cfg, logger)
	mv := mover.New(cfg.Paths.LibraryDir, logger)
	pipe := pipeline.New(cfg, logger, extractor, classifier, mv, reg, journal)

	candidates, err := collectCandidates(cfg, reg, all)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		fmt.Println("Nothing to process.")
		return nil
	}

	rows := make([][]string, 0, len(candidates))
	colorize := stdoutIsTerminal()
	for _, candidate := range candidates {
		outcome := pipe.Process(ctx, candidate.path)
		rows = append(rows, []string{
			outcome.FileName,
			humanize.Bytes(uint64(candidate.size)),
			outcome.FileType,
			outcome.Category,
			fmt.Sprintf("%.2f", outcome.Score),
			colorizeAction(string(outcome.Action), colorize),
			outcomeNote(outcome),
		})
	}

	fmt.Println(renderTable(
		[]string{"FILE", "SIZE", "TYPE", "CATEGORY", "SCORE", "ACTION", "NOTE"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
	))
	return reg.Flush()
}

type candidate struct {
	path string
	size int64
}

// collectCandidates applies the watcher's filters without the readiness
// retry loop, since files found in a manual scan are already settled.
func collectCandidates(cfg *config.Config, reg *registry.Registry, all bool) ([]candidate, error) {
	entries, err := os.ReadDir(cfg.Paths.WatchDir)
	if err != nil {
		return nil, fmt.Errorf("read watch directory: %w", err)
	}

	supported := cfg.SupportedExtensions()
	ignored := cfg.IgnoredExtensions()
	maxSize := cfg.MaxFileSizeBytes()

	var candidates []candidate
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if _, skip := ignored[ext]; skip {
			continue
		}
		if _, ok := supported[ext]; !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.Size() == 0 || info.Size() > maxSize {
			continue
		}
		path := filepath.Join(cfg.Paths.WatchDir, entry.Name())
		if !all && reg.IsProcessed(path) {
			continue
		}
		candidates = append(candidates, candidate{path: path, size: info.Size()})
	}
	return candidates, nil
}

func outcomeNote(outcome pipeline.Outcome) string {
	switch {
	case outcome.Destination != "":
		return outcome.Destination
	case outcome.Err != nil:
		return outcome.Err.Error()
	default:
		return outcome.Detail
	}
}
