// Package ingest orchestrates the upload path: size gate, text extraction,
// chunking, chunk-count gate, embedding, and storage.
//
// The embed-then-insert ordering is the consistency mechanism: every chunk
// is embedded before any row is written, so an embedding outage never leaves
// a document half-ingested. Insert failures trigger a compensating delete of
// the document's rows.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/grovehq/grove/internal/chunk"
	"github.com/grovehq/grove/internal/extract"
	"github.com/grovehq/grove/internal/log"
	"github.com/grovehq/grove/internal/store"
)

var (
	// ErrUploadTooLarge indicates the payload exceeds the upload limit.
	ErrUploadTooLarge = errors.New("file too large")

	// ErrTooManyChunks indicates chunking produced more segments than the
	// content-dependent ceiling allows. The upload is rejected, never
	// silently truncated.
	ErrTooManyChunks = errors.New("file too complex")
)

// DefaultMaxUploadBytes is the upload size limit.
const DefaultMaxUploadBytes = 50 * 1024 * 1024

// DefaultBrand tags chunk rows when the uploader supplies none.
const DefaultBrand = "Beforest"

// Chunk ceilings keyed on tabular section markers: summarized large CSVs
// still produce many rows-worth of text, sampled CSVs legitimately chunk
// wide, everything else gets the default.
const (
	largeCSVChunkLimit = 300
	csvChunkLimit      = 600
	defaultChunkLimit  = 500
)

// chunkCountWarning marks uploads that will take noticeably long to embed.
const chunkCountWarning = 200

// Extractor converts raw bytes into text. *extract.Extractor satisfies it.
type Extractor interface {
	Extract(data []byte, declaredType, fileName string) (extract.Result, error)
}

// Embedder generates embeddings in input order. *embed.Service satisfies it.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Storer is the persistence surface the pipeline writes through.
// *store.Store satisfies it.
type Storer interface {
	InsertChunks(ctx context.Context, chunks []store.InsertChunkParams) error
	DeleteDocument(ctx context.Context, bucketID, fileName string) error
}

// Document is one upload.
type Document struct {
	BucketID    string
	FileName    string
	FileType    string
	Data        []byte
	Description string
	UploadedBy  string
	Brand       string
}

// Summary reports a completed ingestion.
type Summary struct {
	FileName   string
	ChunkCount int
	TextLength int

	// Degraded marks a document stored with sentinel text after a failed
	// extraction (PDF parse failure or timeout).
	Degraded bool
}

// Pipeline runs ingestion. Safe for concurrent use across documents.
type Pipeline struct {
	extractor      Extractor
	embedder       Embedder
	storer         Storer
	maxUploadBytes int64
	chunkSize      int
	chunkOverlap   int
	logger         log.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithMaxUploadBytes overrides the upload size limit.
func WithMaxUploadBytes(n int64) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.maxUploadBytes = n
		}
	}
}

// WithChunking overrides chunk size and overlap.
func WithChunking(size, overlap int) Option {
	return func(p *Pipeline) {
		if size > 0 {
			p.chunkSize = size
		}
		if overlap >= 0 {
			p.chunkOverlap = overlap
		}
	}
}

// New creates a Pipeline.
func New(extractor Extractor, embedder Embedder, storer Storer, logger log.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = log.NewNop()
	}
	p := &Pipeline{
		extractor:      extractor,
		embedder:       embedder,
		storer:         storer,
		maxUploadBytes: DefaultMaxUploadBytes,
		chunkSize:      chunk.DefaultMaxSize,
		chunkOverlap:   chunk.DefaultOverlap,
		logger:         logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ingest runs the full pipeline for one document. Re-ingesting a file name
// already present in the bucket replaces the previous version.
func (p *Pipeline) Ingest(ctx context.Context, doc Document) (Summary, error) {
	if doc.BucketID == "" {
		return Summary{}, errors.New("bucket id is required")
	}
	if doc.FileName == "" {
		return Summary{}, errors.New("file name is required")
	}
	if int64(len(doc.Data)) > p.maxUploadBytes {
		return Summary{}, fmt.Errorf("%w: maximum file size is %dMB, got %.2fMB",
			ErrUploadTooLarge, p.maxUploadBytes/(1024*1024), float64(len(doc.Data))/(1024*1024))
	}

	res, err := p.extractor.Extract(doc.Data, doc.FileType, doc.FileName)
	if err != nil {
		return Summary{}, fmt.Errorf("extract %q: %w", doc.FileName, err)
	}

	chunks := chunk.Split(res.Text,
		chunk.WithMaxSize(p.chunkSize),
		chunk.WithOverlap(p.chunkOverlap))
	if len(chunks) == 0 {
		return Summary{}, fmt.Errorf("extract %q: %w", doc.FileName, extract.ErrEmptyContent)
	}

	limit := chunkLimitFor(res.Text)
	if len(chunks) > limit {
		return Summary{}, fmt.Errorf("%w: generated %d chunks, maximum allowed is %d; split the file or reduce content size",
			ErrTooManyChunks, len(chunks), limit)
	}
	if len(chunks) > chunkCountWarning {
		p.logger.Warn("large chunk count, ingestion may take a while",
			"file", doc.FileName, "chunks", len(chunks))
	}

	// All embeddings up front. A failure here leaves storage untouched.
	vectors, err := p.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return Summary{}, fmt.Errorf("embed %q: %w", doc.FileName, err)
	}

	// Replace any previous version of this document.
	if err := p.storer.DeleteDocument(ctx, doc.BucketID, doc.FileName); err != nil {
		return Summary{}, fmt.Errorf("replace %q: %w", doc.FileName, err)
	}

	brand := doc.Brand
	if brand == "" {
		brand = DefaultBrand
	}
	params := make([]store.InsertChunkParams, len(chunks))
	for i, content := range chunks {
		params[i] = store.InsertChunkParams{
			ID:          uuid.NewString(),
			BucketID:    doc.BucketID,
			FileName:    doc.FileName,
			FileType:    doc.FileType,
			FileSize:    int64(len(doc.Data)),
			Description: doc.Description,
			UploadedBy:  doc.UploadedBy,
			Brand:       brand,
			Content:     content,
			ChunkIndex:  i,
			TotalChunks: len(chunks),
			Embedding:   vectors[i],
		}
	}

	if err := p.storer.InsertChunks(ctx, params); err != nil {
		// Compensate so no partial chunk set survives.
		if delErr := p.storer.DeleteDocument(ctx, doc.BucketID, doc.FileName); delErr != nil {
			p.logger.Error("compensating delete failed, document may be partially ingested",
				"bucket", doc.BucketID, "file", doc.FileName, "error", delErr)
		}
		return Summary{}, fmt.Errorf("store %q: %w", doc.FileName, err)
	}

	p.logger.Info("ingested document",
		"bucket", doc.BucketID,
		"file", doc.FileName,
		"chunks", len(chunks),
		"text_length", len(res.Text),
		"degraded", res.Meta.Failed)

	return Summary{
		FileName:   doc.FileName,
		ChunkCount: len(chunks),
		TextLength: len(res.Text),
		Degraded:   res.Meta.Failed,
	}, nil
}

func chunkLimitFor(text string) int {
	switch {
	case strings.Contains(text, extract.MarkerLargeCSV):
		return largeCSVChunkLimit
	case strings.Contains(text, extract.MarkerCSVData):
		return csvChunkLimit
	default:
		return defaultChunkLimit
	}
}
