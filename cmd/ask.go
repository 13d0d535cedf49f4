package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/grovehq/grove/internal/analyze"
)

var askShowSources bool

var askCmd = &cobra.Command{
	Use:   "ask [bucket-id] [question...]",
	Short: "Answer a question against a bucket",
	Long: `Ask classifies the question and routes it: quantitative questions run
structured analysis over the bucket's CSV documents, open questions run
semantic retrieval, and mixed questions run both.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askShowSources, "sources", false, "show retrieved chunks with similarity scores")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	app, cleanup, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	bucketID := args[0]
	question := strings.Join(args[1:], " ")

	if _, err := app.store.GetBucket(ctx, bucketID); err != nil {
		return fmt.Errorf("bucket %s: %w", bucketID, err)
	}

	result := app.analyzer.Analyze(ctx, bucketID, question)

	fmt.Printf("Mode: %s\n\n", result.Mode)
	fmt.Println(result.Explanation)

	if askShowSources && len(result.Matches) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		for _, m := range result.Matches {
			fmt.Printf("  [%.2f] %s: %s\n", m.Similarity, m.FileName, snippet(m.Content, 120))
		}
	}
	if askShowSources {
		printQueryRows(result.SQLResults)
	}
	return nil
}

// printQueryRows dumps every row of every executed query, beyond the samples
// already included in the explanation.
func printQueryRows(analyses []analyze.FileAnalysis) {
	for _, fa := range analyses {
		for _, qr := range fa.Results {
			fmt.Println()
			fmt.Printf("%s: %s\n", fa.FileName, qr.Query)
			for _, row := range qr.Rows {
				fmt.Printf("  %v\n", row)
			}
		}
	}
}

func snippet(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
