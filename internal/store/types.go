package store

import "time"

// DefaultBucketColor is applied when a bucket is created without a color.
const DefaultBucketColor = "#344736"

// Bucket is a named collection of documents.
type Bucket struct {
	ID          string
	Name        string
	Description string
	Color       string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Resource is one stored chunk of a document. A document with N chunks has N
// resource rows sharing FileName, distinguished by ChunkIndex.
type Resource struct {
	ID          string
	BucketID    string
	FileName    string
	FileType    string
	FileSize    int64
	Description string
	UploadedBy  string
	Brand       string
	Content     string
	ChunkIndex  int
	TotalChunks int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateBucketParams creates a bucket. Empty Color gets DefaultBucketColor.
type CreateBucketParams struct {
	Name        string
	Description string
	Color       string
}

// InsertChunkParams inserts one chunk row with its embedding.
type InsertChunkParams struct {
	ID          string
	BucketID    string
	FileName    string
	FileType    string
	FileSize    int64
	Description string
	UploadedBy  string
	Brand       string
	Content     string
	ChunkIndex  int
	TotalChunks int
	Embedding   []float32
}

// SearchParams controls a vector similarity search within one bucket.
type SearchParams struct {
	BucketID      string
	Embedding     []float32
	TopK          int
	MinSimilarity float64
}

// SearchRow is one vector search hit with its chunk provenance.
type SearchRow struct {
	ResourceID  string
	FileName    string
	FileType    string
	Content     string
	ChunkIndex  int
	TotalChunks int
	Similarity  float64
}

// DocumentSummary is the per-document rollup of chunk rows.
type DocumentSummary struct {
	FileName    string
	FileType    string
	ChunkCount  int
	TotalChunks int
	FileSize    int64
	UploadedAt  time.Time
}
