// Package embed wraps a Genkit embedder with the normalization and batching
// rules the rest of the system depends on: newline collapse before embedding,
// dimension verification, and rate-limited batch requests.
package embed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"golang.org/x/time/rate"

	"github.com/grovehq/grove/internal/log"
)

// ErrService wraps every provider failure so callers can distinguish
// embedding outages from their own errors with errors.Is.
var ErrService = errors.New("embedding service error")

// DefaultBatchSize is the number of texts sent per provider request.
const DefaultBatchSize = 5

// Service generates embeddings. Safe for concurrent use.
type Service struct {
	embedder  ai.Embedder
	dimension int
	batchSize int
	limiter   *rate.Limiter
	logger    log.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithBatchSize overrides the per-request batch size.
func WithBatchSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithRateLimit caps provider requests per second. Zero or negative
// disables limiting.
func WithRateLimit(rps float64) Option {
	return func(s *Service) {
		if rps > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}

// New creates a Service. dimension is the expected vector width; responses
// with any other width are rejected.
func New(embedder ai.Embedder, dimension int, logger log.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = log.NewNop()
	}
	s := &Service{
		embedder:  embedder,
		dimension: dimension,
		batchSize: DefaultBatchSize,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dimension returns the expected vector width.
func (s *Service) Dimension() int { return s.dimension }

// Embed generates a single embedding. Newlines are collapsed to spaces
// first; embedding providers treat them as soft separators and results
// degrade without normalization.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch generates embeddings for texts in order. The result has exactly
// one vector per input; a partial provider response is an error, never a
// short slice.
func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += s.batchSize {
		end := start + s.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := s.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("batch %d-%d: %w", start, end, err)
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (s *Service) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limit wait: %v", ErrService, err)
		}
	}

	docs := make([]*ai.Document, len(texts))
	for i, text := range texts {
		docs[i] = &ai.Document{Content: []*ai.Part{ai.NewTextPart(Normalize(text))}}
	}

	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{Input: docs})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrService, err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", ErrService, len(resp.Embeddings), len(texts))
	}

	vecs := make([][]float32, len(texts))
	for i, emb := range resp.Embeddings {
		if len(emb.Embedding) != s.dimension {
			return nil, fmt.Errorf("%w: embedding %d has dimension %d, want %d", ErrService, i, len(emb.Embedding), s.dimension)
		}
		vecs[i] = emb.Embedding
	}
	return vecs, nil
}

// Normalize prepares text for embedding: newlines become spaces and runs of
// whitespace collapse.
func Normalize(text string) string {
	replaced := strings.ReplaceAll(text, "\n", " ")
	return strings.Join(strings.Fields(replaced), " ")
}
