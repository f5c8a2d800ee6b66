package classify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"docsort/internal/config"
)

// UnknownCategory is the sentinel returned when no classification is
// possible: empty input, no categories configured, or backend unavailable.
const UnknownCategory = "UNKNOWN"

// Chunking parameters. Long documents are scored as overlapping word
// windows and the best window wins, which separates categories far better
// than scoring the whole document at once.
const (
	chunkSizeWords    = 200
	chunkOverlapWords = 50
	maxChunks         = 20
)

// Result is one classification outcome.
type Result struct {
	Category string
	Score    float64
}

// Unknown returns the sentinel result.
func Unknown() Result {
	return Result{Category: UnknownCategory, Score: 0}
}

// Classifier maps text to the best-matching category. Implementations must
// be safe for concurrent use and must not fail: when no answer is possible
// they return the UNKNOWN sentinel.
type Classifier interface {
	Classify(ctx context.Context, text string) Result
}

// NewFromConfig builds the configured backend. The embedding backend still
// needs Precompute called before first use.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) (Classifier, error) {
	switch cfg.Classifier.Backend {
	case "keyword":
		return NewKeywordClassifier(cfg.Categories), nil
	case "embedding":
		return NewEmbeddingClassifier(EmbeddingConfig{
			EndpointURL:    cfg.Classifier.EndpointURL,
			Model:          cfg.Classifier.Model,
			TimeoutSeconds: cfg.Classifier.TimeoutSeconds,
		}, logger), nil
	default:
		return nil, fmt.Errorf("classifier backend %q not supported", cfg.Classifier.Backend)
	}
}

// splitChunks breaks text into overlapping word windows. Short texts come
// back as a single chunk.
func splitChunks(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if len(words) <= chunkSizeWords {
		return []string{text}
	}

	step := chunkSizeWords - chunkOverlapWords
	chunks := make([]string, 0, maxChunks)
	for i := 0; i < len(words); i += step {
		end := i + chunkSizeWords
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[i:end], " "))
		if len(chunks) >= maxChunks || end == len(words) {
			break
		}
	}
	return chunks
}
