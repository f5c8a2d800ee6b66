package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"docsort/internal/logging"
)

// EmbeddingConfig holds the connection settings for the embeddings endpoint.
type EmbeddingConfig struct {
	EndpointURL    string
	Model          string
	TimeoutSeconds int
}

// EmbeddingClassifier ranks categories by cosine similarity between text
// chunk embeddings and precomputed category embeddings. The endpoint speaks
// the Ollama embeddings API.
type EmbeddingClassifier struct {
	logger   *slog.Logger
	client   *http.Client
	endpoint string
	model    string

	mu         sync.RWMutex
	names      []string
	embeddings [][]float64
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

// NewEmbeddingClassifier constructs the backend. Precompute must run before
// the first Classify call; until then every result is UNKNOWN.
func NewEmbeddingClassifier(cfg EmbeddingConfig, logger *slog.Logger) *EmbeddingClassifier {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &EmbeddingClassifier{
		logger:   logging.NewComponentLogger(logger, "classifier"),
		client:   &http.Client{Timeout: timeout},
		endpoint: strings.TrimRight(cfg.EndpointURL, "/"),
		model:    cfg.Model,
	}
}

// Precompute embeds every category keyword description once. Categories are
// processed in a stable order so repeated runs behave identically.
func (e *EmbeddingClassifier) Precompute(ctx context.Context, index map[string]string) error {
	names := make([]string, 0, len(index))
	for name := range index {
		names = append(names, name)
	}
	sort.Strings(names)

	embeddings := make([][]float64, 0, len(names))
	for _, name := range names {
		vec, err := e.embed(ctx, index[name])
		if err != nil {
			return fmt.Errorf("embed category %q: %w", name, err)
		}
		embeddings = append(embeddings, vec)
	}

	e.mu.Lock()
	e.names = names
	e.embeddings = embeddings
	e.mu.Unlock()

	e.logger.Info("category embeddings precomputed", logging.Int("categories", len(names)))
	return nil
}

// Classify embeds overlapping chunks of text and returns the category with
// the highest per-chunk cosine similarity. Endpoint failures degrade to the
// UNKNOWN sentinel rather than erroring the job.
func (e *EmbeddingClassifier) Classify(ctx context.Context, text string) Result {
	e.mu.RLock()
	names := e.names
	embeddings := e.embeddings
	e.mu.RUnlock()

	if len(names) == 0 || strings.TrimSpace(text) == "" {
		return Unknown()
	}

	chunks := splitChunks(text)
	if len(chunks) == 0 {
		return Unknown()
	}

	bestScores := make([]float64, len(names))
	embedded := 0
	for _, chunk := range chunks {
		vec, err := e.embed(ctx, chunk)
		if err != nil {
			e.logger.Warn("chunk embedding failed", logging.Error(err))
			continue
		}
		embedded++
		for i, catVec := range embeddings {
			if sim := cosineSimilarity(vec, catVec); sim > bestScores[i] {
				bestScores[i] = sim
			}
		}
	}
	if embedded == 0 {
		return Unknown()
	}

	bestIdx := 0
	for i, score := range bestScores {
		if score > bestScores[bestIdx] {
			bestIdx = i
		}
	}
	return Result{Category: names[bestIdx], Score: clampUnit(bestScores[bestIdx])}
}

func (e *EmbeddingClassifier) embed(ctx context.Context, text string) ([]float64, error) {
	body, err := json.Marshal(embedRequest{Model: e.model, Prompt: text})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("embeddings endpoint status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Embedding) == 0 {
		return nil, fmt.Errorf("embeddings endpoint returned empty vector")
	}
	return parsed.Embedding, nil
}

func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func clampUnit(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
