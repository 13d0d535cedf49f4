// Package retrieve implements semantic search over stored document chunks.
//
// Retrieval is deliberately forgiving: a failed search returns no matches
// instead of an error, so answer generation degrades to "no context found"
// rather than failing the whole request.
package retrieve

import (
	"context"
	"sort"
	"sync"

	"github.com/grovehq/grove/internal/log"
	"github.com/grovehq/grove/internal/store"
)

const (
	// DefaultTopK is the number of matches returned per query.
	DefaultTopK = 4
	// DefaultMinSimilarity filters out noise matches. The floor is low on
	// purpose: weakly related context is still better than none.
	DefaultMinSimilarity = 0.1
)

// Match is one retrieved chunk with its document provenance.
type Match struct {
	ResourceID  string
	FileName    string
	FileType    string
	Content     string
	ChunkIndex  int
	TotalChunks int
	Similarity  float64
}

// Searcher runs vector similarity queries. *store.Store satisfies it.
type Searcher interface {
	SearchSimilar(ctx context.Context, params store.SearchParams) ([]store.SearchRow, error)
}

// Embedder turns query text into a vector. *embed.Service satisfies it.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Retriever performs semantic retrieval within a bucket. Safe for
// concurrent use.
type Retriever struct {
	searcher      Searcher
	embedder      Embedder
	topK          int
	minSimilarity float64
	logger        log.Logger
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithTopK overrides the match count per query.
func WithTopK(k int) Option {
	return func(r *Retriever) {
		if k > 0 {
			r.topK = k
		}
	}
}

// WithMinSimilarity overrides the similarity floor. Cosine similarity spans
// [-1, 1], so negative floors are valid.
func WithMinSimilarity(min float64) Option {
	return func(r *Retriever) {
		if min >= -1 && min <= 1 {
			r.minSimilarity = min
		}
	}
}

// New creates a Retriever.
func New(searcher Searcher, embedder Embedder, logger log.Logger, opts ...Option) *Retriever {
	if logger == nil {
		logger = log.NewNop()
	}
	r := &Retriever{
		searcher:      searcher,
		embedder:      embedder,
		topK:          DefaultTopK,
		minSimilarity: DefaultMinSimilarity,
		logger:        logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FindRelevant returns the chunks most similar to query, best first. Any
// failure returns an empty slice.
func (r *Retriever) FindRelevant(ctx context.Context, bucketID, query string) []Match {
	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		r.logger.Warn("query embedding failed", "bucket", bucketID, "error", err)
		return []Match{}
	}

	rows, err := r.searcher.SearchSimilar(ctx, store.SearchParams{
		BucketID:      bucketID,
		Embedding:     vec,
		TopK:          r.topK,
		MinSimilarity: r.minSimilarity,
	})
	if err != nil {
		r.logger.Warn("similarity search failed", "bucket", bucketID, "error", err)
		return []Match{}
	}

	matches := make([]Match, len(rows))
	for i, row := range rows {
		matches[i] = Match{
			ResourceID:  row.ResourceID,
			FileName:    row.FileName,
			FileType:    row.FileType,
			Content:     row.Content,
			ChunkIndex:  row.ChunkIndex,
			TotalChunks: row.TotalChunks,
			Similarity:  row.Similarity,
		}
	}
	return matches
}

// FindRelevantMulti retrieves for several query phrasings concurrently and
// merges the results: duplicates collapse to their first occurrence in query
// order, the union is sorted by similarity, and the best topK survive.
func (r *Retriever) FindRelevantMulti(ctx context.Context, bucketID string, queries []string) []Match {
	if len(queries) == 0 {
		return []Match{}
	}
	if len(queries) == 1 {
		return r.FindRelevant(ctx, bucketID, queries[0])
	}

	perQuery := make([][]Match, len(queries))
	var wg sync.WaitGroup
	for i, q := range queries {
		wg.Add(1)
		go func(i int, q string) {
			defer wg.Done()
			perQuery[i] = r.FindRelevant(ctx, bucketID, q)
		}(i, q)
	}
	wg.Wait()

	seen := make(map[string]struct{})
	var merged []Match
	for _, matches := range perQuery {
		for _, m := range matches {
			if _, dup := seen[m.Content]; dup {
				continue
			}
			seen[m.Content] = struct{}{}
			merged = append(merged, m)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Similarity > merged[j].Similarity
	})
	if len(merged) > r.topK {
		merged = merged[:r.topK]
	}
	if merged == nil {
		merged = []Match{}
	}
	return merged
}
