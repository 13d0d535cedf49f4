package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/grovehq/grove/db"
	"github.com/grovehq/grove/internal/analyze"
	"github.com/grovehq/grove/internal/config"
	"github.com/grovehq/grove/internal/embed"
	"github.com/grovehq/grove/internal/extract"
	"github.com/grovehq/grove/internal/ingest"
	"github.com/grovehq/grove/internal/log"
	"github.com/grovehq/grove/internal/retrieve"
	"github.com/grovehq/grove/internal/store"
)

// storage bundles the components every command needs: configuration, a
// migrated database, and the store on top of it.
type storage struct {
	cfg    *config.Config
	logger log.Logger
	pool   *pgxpool.Pool
	store  *store.Store
}

// newStorage loads configuration, applies pending migrations, and opens the
// connection pool. The returned cleanup closes the pool.
func newStorage(ctx context.Context) (*storage, func(), error) {
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading configuration: %w", err)
	}

	if err := db.Migrate(cfg.PostgresURL(), logger); err != nil {
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresConnectionString())
	if err != nil {
		return nil, nil, fmt.Errorf("parsing connection config: %w", err)
	}
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("creating connection pool: %w", err)
	}

	return &storage{
		cfg:    cfg,
		logger: logger,
		pool:   pool,
		store:  store.New(store.NewPostgres(pool), logger),
	}, pool.Close, nil
}

// app is the full service graph for commands that embed or answer: the
// storage layer plus the embedding, retrieval, ingestion, and analysis
// components.
type app struct {
	*storage

	pipeline *ingest.Pipeline
	analyzer *analyze.Analyzer
}

// newApp wires the complete pipeline on top of newStorage. Requires
// GEMINI_API_KEY for the embedding model.
func newApp(ctx context.Context) (*app, func(), error) {
	if err := checkRequiredEnv(); err != nil {
		return nil, nil, err
	}

	st, cleanup, err := newStorage(ctx)
	if err != nil {
		return nil, nil, err
	}

	cfg := st.cfg
	embedder := embed.New(newEmbedder(ctx, cfg), cfg.Dimension, st.logger,
		embed.WithBatchSize(cfg.Ingest.EmbedBatchSize),
		embed.WithRateLimit(cfg.Ingest.EmbedRateLimit))

	extractor := extract.New(st.logger)
	pipeline := ingest.New(extractor, embedder, st.store, st.logger,
		ingest.WithMaxUploadBytes(cfg.Ingest.MaxUploadBytes),
		ingest.WithChunking(cfg.Chunking.MaxSize, cfg.Chunking.Overlap))

	retriever := retrieve.New(st.store, embedder, st.logger,
		retrieve.WithTopK(cfg.Retrieval.TopK),
		retrieve.WithMinSimilarity(cfg.Retrieval.MinSimilarity))

	return &app{
		storage:  st,
		pipeline: pipeline,
		analyzer: analyze.New(st.store, retriever, st.logger),
	}, cleanup, nil
}

// newEmbedder initializes Genkit with the Google AI plugin and returns the
// configured embedding model.
func newEmbedder(ctx context.Context, cfg *config.Config) ai.Embedder {
	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	return googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
}

// checkRequiredEnv verifies the environment variables the embedding model
// needs, with setup instructions when missing.
func checkRequiredEnv() error {
	if os.Getenv("GEMINI_API_KEY") == "" {
		fmt.Fprintln(os.Stderr, "Error: GEMINI_API_KEY environment variable not set")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Grove needs a Gemini API key to embed documents and questions.")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "To set your API key:")
		fmt.Fprintln(os.Stderr, "  export GEMINI_API_KEY=your-api-key")
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, "Get your API key at: https://ai.google.dev/")
		return fmt.Errorf("GEMINI_API_KEY not set")
	}
	return nil
}
