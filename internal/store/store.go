// Package store persists buckets, document chunks, and their embeddings.
//
// The Querier interface is defined here, by the consumer: callers program
// against it and tests substitute mocks without touching PostgreSQL. The
// production implementation lives in postgres.go.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/grovehq/grove/internal/log"
)

var (
	// ErrNotFound indicates the requested bucket or document does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidParams indicates a request that cannot be executed as given.
	ErrInvalidParams = errors.New("invalid parameters")
)

// searchTimeout bounds vector similarity queries so a degraded index cannot
// block callers indefinitely.
const searchTimeout = 10 * time.Second

// Querier is the persistence surface Store depends on.
type Querier interface {
	CreateBucket(ctx context.Context, params CreateBucketParams) (Bucket, error)
	GetBucket(ctx context.Context, id string) (Bucket, error)
	ListBuckets(ctx context.Context) ([]Bucket, error)
	DeleteBucket(ctx context.Context, id string) error

	InsertChunks(ctx context.Context, chunks []InsertChunkParams) error
	DeleteDocument(ctx context.Context, bucketID, fileName string) error
	ListDocuments(ctx context.Context, bucketID string) ([]DocumentSummary, error)
	DocumentChunks(ctx context.Context, bucketID, fileName string) ([]string, error)
	ListCSVDocuments(ctx context.Context, bucketID string) ([]string, error)

	SearchSimilar(ctx context.Context, params SearchParams) ([]SearchRow, error)
}

// Store wraps a Querier with validation, defaults, and query timeouts.
// Safe for concurrent use.
type Store struct {
	queries Querier
	logger  log.Logger
}

// New creates a Store. A nil logger falls back to a no-op logger.
func New(querier Querier, logger log.Logger) *Store {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{queries: querier, logger: logger}
}

// CreateBucket creates a bucket, defaulting the color when unset.
func (s *Store) CreateBucket(ctx context.Context, params CreateBucketParams) (Bucket, error) {
	if params.Name == "" {
		return Bucket{}, fmt.Errorf("%w: bucket name is required", ErrInvalidParams)
	}
	if params.Color == "" {
		params.Color = DefaultBucketColor
	}

	bucket, err := s.queries.CreateBucket(ctx, params)
	if err != nil {
		return Bucket{}, fmt.Errorf("create bucket %q: %w", params.Name, err)
	}
	s.logger.Debug("created bucket", "id", bucket.ID, "name", bucket.Name)
	return bucket, nil
}

// GetBucket fetches one bucket by ID.
func (s *Store) GetBucket(ctx context.Context, id string) (Bucket, error) {
	if id == "" {
		return Bucket{}, fmt.Errorf("%w: bucket id is required", ErrInvalidParams)
	}
	return s.queries.GetBucket(ctx, id)
}

// ListBuckets returns all buckets in creation order.
func (s *Store) ListBuckets(ctx context.Context) ([]Bucket, error) {
	return s.queries.ListBuckets(ctx)
}

// DeleteBucket removes a bucket and, through foreign key cascade, every
// chunk and embedding stored under it.
func (s *Store) DeleteBucket(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: bucket id is required", ErrInvalidParams)
	}
	if err := s.queries.DeleteBucket(ctx, id); err != nil {
		return fmt.Errorf("delete bucket %q: %w", id, err)
	}
	s.logger.Info("deleted bucket", "id", id)
	return nil
}

// InsertChunks persists chunk rows with their embeddings.
func (s *Store) InsertChunks(ctx context.Context, chunks []InsertChunkParams) error {
	if len(chunks) == 0 {
		return nil
	}
	for i, c := range chunks {
		if c.ID == "" || c.BucketID == "" || c.FileName == "" {
			return fmt.Errorf("%w: chunk %d is missing id, bucket, or file name", ErrInvalidParams, i)
		}
		if len(c.Embedding) == 0 {
			return fmt.Errorf("%w: chunk %d has no embedding", ErrInvalidParams, i)
		}
	}
	if err := s.queries.InsertChunks(ctx, chunks); err != nil {
		return fmt.Errorf("insert %d chunks: %w", len(chunks), err)
	}
	s.logger.Debug("inserted chunks", "count", len(chunks), "file", chunks[0].FileName)
	return nil
}

// DeleteDocument removes every chunk of a document, embeddings included.
func (s *Store) DeleteDocument(ctx context.Context, bucketID, fileName string) error {
	if bucketID == "" || fileName == "" {
		return fmt.Errorf("%w: bucket id and file name are required", ErrInvalidParams)
	}
	if err := s.queries.DeleteDocument(ctx, bucketID, fileName); err != nil {
		return fmt.Errorf("delete document %q: %w", fileName, err)
	}
	s.logger.Info("deleted document", "bucket", bucketID, "file", fileName)
	return nil
}

// ListDocuments returns per-document summaries for a bucket.
func (s *Store) ListDocuments(ctx context.Context, bucketID string) ([]DocumentSummary, error) {
	if bucketID == "" {
		return nil, fmt.Errorf("%w: bucket id is required", ErrInvalidParams)
	}
	return s.queries.ListDocuments(ctx, bucketID)
}

// DocumentChunks returns a document's chunk contents in chunk order.
func (s *Store) DocumentChunks(ctx context.Context, bucketID, fileName string) ([]string, error) {
	if bucketID == "" || fileName == "" {
		return nil, fmt.Errorf("%w: bucket id and file name are required", ErrInvalidParams)
	}
	return s.queries.DocumentChunks(ctx, bucketID, fileName)
}

// ListCSVDocuments returns file names of documents in the bucket whose
// stored text carries tabular section markers.
func (s *Store) ListCSVDocuments(ctx context.Context, bucketID string) ([]string, error) {
	if bucketID == "" {
		return nil, fmt.Errorf("%w: bucket id is required", ErrInvalidParams)
	}
	return s.queries.ListCSVDocuments(ctx, bucketID)
}

// SearchSimilar runs a vector similarity search with the store's query
// timeout applied.
func (s *Store) SearchSimilar(ctx context.Context, params SearchParams) ([]SearchRow, error) {
	if params.BucketID == "" {
		return nil, fmt.Errorf("%w: bucket id is required", ErrInvalidParams)
	}
	if len(params.Embedding) == 0 {
		return nil, fmt.Errorf("%w: query embedding is required", ErrInvalidParams)
	}
	if params.TopK <= 0 {
		return nil, fmt.Errorf("%w: top k must be positive", ErrInvalidParams)
	}

	queryCtx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	rows, err := s.queries.SearchSimilar(queryCtx, params)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	s.logger.Debug("similarity search", "bucket", params.BucketID, "hits", len(rows))
	return rows, nil
}
