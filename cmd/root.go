// Package cmd provides the grove CLI commands.
//
// Commands:
//   - buckets: create, list, and delete knowledge buckets
//   - ingest: upload documents into a bucket
//   - documents: list and remove ingested documents
//   - ask: answer a question against a bucket
//   - migrate: apply database migrations
//
// All commands cancel their work on SIGINT/SIGTERM via context
// cancellation.
package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/grovehq/grove/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "grove",
	Short: "Grove - knowledge base with semantic and structured search",
	Long: `Grove stores documents in named buckets, indexes them with vector
embeddings, and answers questions by semantic retrieval, structured CSV
analysis, or a combination of both.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// newLogger builds the process logger. DEBUG enables debug level;
// GROVE_LOG_JSON switches to JSON output.
func newLogger() log.Logger {
	cfg := log.Config{Level: slog.LevelInfo}
	if os.Getenv("DEBUG") != "" {
		cfg.Level = slog.LevelDebug
	}
	if os.Getenv("GROVE_LOG_JSON") != "" {
		cfg.JSON = true
	}
	return log.New(cfg)
}

// signalContext returns a context canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
