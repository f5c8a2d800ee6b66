package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"docsort/internal/classify"
	"docsort/internal/config"
	"docsort/internal/extract"
	"docsort/internal/history"
	"docsort/internal/logging"
	"docsort/internal/mover"
	"docsort/internal/registry"
)

// Action is the final disposition of one file.
type Action string

const (
	// ActionMoved means the file was relocated into its category folder.
	ActionMoved Action = "MOVED"
	// ActionKept means the file stays in the watch directory but is
	// recorded as handled.
	ActionKept Action = "KEPT"
	// ActionSkipped means the file vanished before the job ran; nothing
	// was recorded.
	ActionSkipped Action = "SKIPPED"
	// ActionError means the job failed; the file is not recorded so a
	// future event can retry it.
	ActionError Action = "ERROR"
)

// Outcome summarizes one job.
type Outcome struct {
	JobID       string
	FileName    string
	SourcePath  string
	FileType    string
	Category    string
	Score       float64
	Action      Action
	Detail      string
	Destination string
	Elapsed     time.Duration
	Err         error
}

// Pipeline drives one file through extraction, classification, the
// threshold decision and relocation. Safe for concurrent use: every
// collaborator is either stateless or internally synchronized.
type Pipeline struct {
	logger     *slog.Logger
	threshold  float64
	fileType   func(path string) string
	extractor  extract.Extractor
	classifier classify.Classifier
	mover      *mover.Mover
	registry   *registry.Registry
	journal    *history.Journal
}

// New wires a pipeline from its collaborators. The journal may be nil.
func New(
	cfg *config.Config,
	logger *slog.Logger,
	extractor extract.Extractor,
	classifier classify.Classifier,
	mv *mover.Mover,
	reg *registry.Registry,
	journal *history.Journal,
) *Pipeline {
	return &Pipeline{
		logger:     logging.NewComponentLogger(logger, "pipeline"),
		threshold:  cfg.Pipeline.ConfidenceThreshold,
		fileType:   cfg.FileType,
		extractor:  extractor,
		classifier: classifier,
		mover:      mv,
		registry:   reg,
		journal:    journal,
	}
}

// Process runs the full job for one file and returns its outcome. Failures
// are reported in the outcome, never panicked or returned as a bare error,
// so a worker can always continue with the next job.
func (p *Pipeline) Process(ctx context.Context, path string) Outcome {
	started := time.Now()
	outcome := Outcome{
		JobID:      uuid.NewString()[:8],
		FileName:   filepath.Base(path),
		SourcePath: path,
		FileType:   p.fileType(path),
		Category:   classify.UnknownCategory,
	}

	logger := p.logger.With(
		logging.String(logging.FieldJobID, outcome.JobID),
		logging.String(logging.FieldFile, outcome.FileName),
	)

	if _, err := os.Stat(path); err != nil {
		outcome.Action = ActionSkipped
		outcome.Detail = "source disappeared before processing"
		outcome.Elapsed = time.Since(started)
		logger.Debug("file gone, skipping", logging.Error(err))
		return outcome
	}

	text := p.extractor.Extract(ctx, path)
	if err := ctx.Err(); err != nil {
		// An aborted converter or embedding call surfaces as empty or
		// truncated text; marking the file here would bury it forever.
		return p.cancelled(ctx, logger, outcome, started, err)
	}
	if strings.TrimSpace(text) == "" {
		outcome.Action = ActionKept
		outcome.Detail = "no text extracted"
		return p.finish(ctx, logger, outcome, started)
	}

	result := p.classifier.Classify(ctx, text)
	if err := ctx.Err(); err != nil {
		return p.cancelled(ctx, logger, outcome, started, err)
	}
	outcome.Category = result.Category
	outcome.Score = result.Score

	if result.Score >= p.threshold && result.Category != classify.UnknownCategory {
		destination, err := p.mover.Move(path, result.Category)
		if err != nil {
			outcome.Action = ActionError
			outcome.Detail = "move failed"
			outcome.Err = Wrap(ErrMove, "relocate", result.Category, err)
			outcome.Elapsed = time.Since(started)
			logger.Error("job failed",
				logging.String(logging.FieldCategory, outcome.Category),
				logging.Error(outcome.Err),
			)
			p.record(ctx, logger, outcome)
			return outcome
		}
		outcome.Action = ActionMoved
		outcome.Destination = destination
	} else {
		outcome.Action = ActionKept
		outcome.Detail = "below confidence threshold"
	}

	return p.finish(ctx, logger, outcome, started)
}

// cancelled reports a job interrupted mid-flight. The file stays out of
// the ledger so the next daemon run picks it up again.
func (p *Pipeline) cancelled(ctx context.Context, logger *slog.Logger, outcome Outcome, started time.Time, err error) Outcome {
	outcome.Action = ActionError
	outcome.Detail = "job cancelled"
	outcome.Err = Wrap(nil, "process", "cancelled", err)
	outcome.Elapsed = time.Since(started)
	logger.Warn("job cancelled, file left for retry", logging.Error(outcome.Err))
	p.record(ctx, logger, outcome)
	return outcome
}

// finish marks the file processed, logs the structured result and records
// the outcome in the journal.
func (p *Pipeline) finish(ctx context.Context, logger *slog.Logger, outcome Outcome, started time.Time) Outcome {
	if err := p.registry.MarkProcessed(outcome.SourcePath); err != nil {
		logger.Warn("ledger update failed", logging.Error(Wrap(ErrRegistry, "mark processed", "", err)))
	}

	outcome.Elapsed = time.Since(started)
	logger.Info("file processed",
		logging.String(logging.FieldFileType, outcome.FileType),
		logging.String(logging.FieldCategory, outcome.Category),
		logging.Float64(logging.FieldScore, outcome.Score),
		logging.String(logging.FieldAction, string(outcome.Action)),
		logging.Duration(logging.FieldElapsed, outcome.Elapsed),
	)
	p.record(ctx, logger, outcome)
	return outcome
}

func (p *Pipeline) record(ctx context.Context, logger *slog.Logger, outcome Outcome) {
	detail := outcome.Detail
	if outcome.Err != nil {
		detail = outcome.Err.Error()
	}
	// The journal write outlives a cancelled job context.
	err := p.journal.Record(context.WithoutCancel(ctx), history.Entry{
		JobID:      outcome.JobID,
		FileName:   outcome.FileName,
		SourcePath: outcome.SourcePath,
		FileType:   outcome.FileType,
		Category:   outcome.Category,
		Score:      outcome.Score,
		Action:     string(outcome.Action),
		Detail:     detail,
		Elapsed:    outcome.Elapsed,
	})
	if err != nil {
		logger.Warn("history record failed", logging.Error(err))
	}
}
