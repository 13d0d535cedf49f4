package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"
)

// DB is the pgx surface Postgres needs; *pgxpool.Pool satisfies it.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Postgres implements Querier against PostgreSQL with pgvector.
type Postgres struct {
	db DB
}

// NewPostgres creates the production Querier.
func NewPostgres(db DB) *Postgres {
	return &Postgres{db: db}
}

var _ Querier = (*Postgres)(nil)

func (p *Postgres) CreateBucket(ctx context.Context, params CreateBucketParams) (Bucket, error) {
	const q = `
		INSERT INTO buckets (name, description, color)
		VALUES ($1, $2, $3)
		RETURNING id, name, COALESCE(description, ''), color, created_at, updated_at`

	var b Bucket
	err := p.db.QueryRow(ctx, q, params.Name, params.Description, params.Color).
		Scan(&b.ID, &b.Name, &b.Description, &b.Color, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return Bucket{}, err
	}
	return b, nil
}

func (p *Postgres) GetBucket(ctx context.Context, id string) (Bucket, error) {
	const q = `
		SELECT id, name, COALESCE(description, ''), color, created_at, updated_at
		FROM buckets
		WHERE id = $1`

	var b Bucket
	err := p.db.QueryRow(ctx, q, id).
		Scan(&b.ID, &b.Name, &b.Description, &b.Color, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Bucket{}, fmt.Errorf("bucket %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return Bucket{}, err
	}
	return b, nil
}

func (p *Postgres) ListBuckets(ctx context.Context) ([]Bucket, error) {
	const q = `
		SELECT id, name, COALESCE(description, ''), color, created_at, updated_at
		FROM buckets
		ORDER BY created_at`

	rows, err := p.db.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var buckets []Bucket
	for rows.Next() {
		var b Bucket
		if err := rows.Scan(&b.ID, &b.Name, &b.Description, &b.Color, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

// DeleteBucket removes the bucket and everything under it. The cascade runs
// explicitly, innermost first; the FK ON DELETE CASCADE constraints are a
// backstop, not the mechanism.
func (p *Postgres) DeleteBucket(ctx context.Context, id string) error {
	const embeddingsQ = `
		DELETE FROM embeddings
		WHERE resource_id IN (SELECT id FROM resources WHERE bucket_id = $1)`

	if _, err := p.db.Exec(ctx, embeddingsQ, id); err != nil {
		return fmt.Errorf("delete embeddings for bucket %q: %w", id, err)
	}
	if _, err := p.db.Exec(ctx, `DELETE FROM resources WHERE bucket_id = $1`, id); err != nil {
		return fmt.Errorf("delete resources for bucket %q: %w", id, err)
	}

	tag, err := p.db.Exec(ctx, `DELETE FROM buckets WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("bucket %q: %w", id, ErrNotFound)
	}
	return nil
}

func (p *Postgres) InsertChunks(ctx context.Context, chunks []InsertChunkParams) error {
	const resourceQ = `
		INSERT INTO resources
			(id, bucket_id, file_name, file_type, file_size, description,
			 uploaded_by, brand, content, chunk_index, total_chunks)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	const embeddingQ = `
		INSERT INTO embeddings (resource_id, content, embedding)
		VALUES ($1, $2, $3)`

	for _, c := range chunks {
		_, err := p.db.Exec(ctx, resourceQ,
			c.ID, c.BucketID, c.FileName, c.FileType, c.FileSize, c.Description,
			c.UploadedBy, c.Brand, c.Content, c.ChunkIndex, c.TotalChunks)
		if err != nil {
			return fmt.Errorf("insert resource %q chunk %d: %w", c.FileName, c.ChunkIndex, err)
		}

		vec := pgvector.NewVector(c.Embedding)
		if _, err := p.db.Exec(ctx, embeddingQ, c.ID, c.Content, vec); err != nil {
			return fmt.Errorf("insert embedding for chunk %d of %q: %w", c.ChunkIndex, c.FileName, err)
		}
	}
	return nil
}

// DeleteDocument removes every chunk of one document, embeddings first.
func (p *Postgres) DeleteDocument(ctx context.Context, bucketID, fileName string) error {
	const embeddingsQ = `
		DELETE FROM embeddings
		WHERE resource_id IN (
			SELECT id FROM resources WHERE bucket_id = $1 AND file_name = $2)`

	if _, err := p.db.Exec(ctx, embeddingsQ, bucketID, fileName); err != nil {
		return fmt.Errorf("delete embeddings for %q: %w", fileName, err)
	}

	const q = `DELETE FROM resources WHERE bucket_id = $1 AND file_name = $2`
	_, err := p.db.Exec(ctx, q, bucketID, fileName)
	return err
}

func (p *Postgres) ListDocuments(ctx context.Context, bucketID string) ([]DocumentSummary, error) {
	const q = `
		SELECT file_name, file_type, COUNT(*), MAX(total_chunks),
		       MAX(file_size), MIN(created_at)
		FROM resources
		WHERE bucket_id = $1
		GROUP BY file_name, file_type
		ORDER BY MIN(created_at)`

	rows, err := p.db.Query(ctx, q, bucketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []DocumentSummary
	for rows.Next() {
		var d DocumentSummary
		if err := rows.Scan(&d.FileName, &d.FileType, &d.ChunkCount, &d.TotalChunks, &d.FileSize, &d.UploadedAt); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (p *Postgres) DocumentChunks(ctx context.Context, bucketID, fileName string) ([]string, error) {
	const q = `
		SELECT content
		FROM resources
		WHERE bucket_id = $1 AND file_name = $2
		ORDER BY chunk_index`

	rows, err := p.db.Query(ctx, q, bucketID, fileName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chunks []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

func (p *Postgres) ListCSVDocuments(ctx context.Context, bucketID string) ([]string, error) {
	const q = `
		SELECT DISTINCT file_name
		FROM resources
		WHERE bucket_id = $1
		  AND (file_type = 'text/csv' OR file_name LIKE '%.csv')
		ORDER BY file_name`

	rows, err := p.db.Query(ctx, q, bucketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

func (p *Postgres) SearchSimilar(ctx context.Context, params SearchParams) ([]SearchRow, error) {
	// Cosine distance via <=>; similarity is its complement.
	const q = `
		SELECT r.id, r.file_name, r.file_type, e.content,
		       r.chunk_index, r.total_chunks,
		       1 - (e.embedding <=> $1) AS similarity
		FROM embeddings e
		JOIN resources r ON r.id = e.resource_id
		WHERE r.bucket_id = $2
		  AND 1 - (e.embedding <=> $1) > $3
		ORDER BY similarity DESC
		LIMIT $4`

	vec := pgvector.NewVector(params.Embedding)
	rows, err := p.db.Query(ctx, q, vec, params.BucketID, params.MinSimilarity, params.TopK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []SearchRow
	for rows.Next() {
		var h SearchRow
		if err := rows.Scan(&h.ResourceID, &h.FileName, &h.FileType, &h.Content,
			&h.ChunkIndex, &h.TotalChunks, &h.Similarity); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}
