package cmd

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/grovehq/grove/internal/ingest"
)

var (
	ingestDescription string
	ingestUploadedBy  string
	ingestBrand       string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [bucket-id] [file...]",
	Short: "Upload documents into a bucket",
	Long: `Ingest extracts text from each file, splits it into chunks, embeds
them, and stores the result in the bucket. Re-ingesting a file name that is
already present replaces the previous version.

Supported formats: PDF, DOCX, XLSX, CSV, JSON, HTML, XML, Markdown, plain text.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestDescription, "description", "", "document description")
	ingestCmd.Flags().StringVar(&ingestUploadedBy, "uploaded-by", "", "uploader name")
	ingestCmd.Flags().StringVar(&ingestBrand, "brand", "", "brand tag (default "+ingest.DefaultBrand+")")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	app, cleanup, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	bucketID := args[0]
	if _, err := app.store.GetBucket(ctx, bucketID); err != nil {
		return fmt.Errorf("bucket %s: %w", bucketID, err)
	}

	var failed int
	for _, path := range args[1:] {
		if err := ingestFile(ctx, app, bucketID, path); err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "Error: %s: %v\n", path, err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d files failed", failed, len(args)-1)
	}
	return nil
}

func ingestFile(ctx context.Context, app *app, bucketID, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	fileName := filepath.Base(path)
	summary, err := app.pipeline.Ingest(ctx, ingest.Document{
		BucketID:    bucketID,
		FileName:    fileName,
		FileType:    mime.TypeByExtension(filepath.Ext(fileName)),
		Data:        data,
		Description: ingestDescription,
		UploadedBy:  ingestUploadedBy,
		Brand:       ingestBrand,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Ingested %s: %d chunks, %d characters\n",
		summary.FileName, summary.ChunkCount, summary.TextLength)
	if summary.Degraded {
		fmt.Printf("  Warning: text extraction was incomplete; retrieval quality may suffer\n")
	}
	return nil
}
