// Package analyze routes a natural-language question to semantic retrieval,
// structured tabular analysis, or both, and renders a combined explanation.
package analyze

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/grovehq/grove/internal/log"
	"github.com/grovehq/grove/internal/retrieve"
)

const (
	// maxCSVFiles bounds structured analysis per question.
	maxCSVFiles = 2
	// maxQueriesPerFile bounds template execution per file.
	maxQueriesPerFile = 3
)

// Storage is the persistence surface the analyzer reads from. *store.Store
// satisfies it.
type Storage interface {
	ListCSVDocuments(ctx context.Context, bucketID string) ([]string, error)
	DocumentChunks(ctx context.Context, bucketID, fileName string) ([]string, error)
}

// Retriever performs semantic search. *retrieve.Retriever satisfies it.
type Retriever interface {
	FindRelevant(ctx context.Context, bucketID, query string) []retrieve.Match
}

// QueryResult is one executed template with its rows.
type QueryResult struct {
	Query string
	Rows  []map[string]string
}

// FileAnalysis groups the template results for one CSV document.
type FileAnalysis struct {
	FileName string
	Results  []QueryResult
	Analysis string
}

// Result is the outcome of analyzing one question.
type Result struct {
	Mode        Mode
	SQLResults  []FileAnalysis
	Matches     []retrieve.Match
	Explanation string
}

// Analyzer routes questions. Safe for concurrent use.
type Analyzer struct {
	storage   Storage
	retriever Retriever
	logger    log.Logger
}

// New creates an Analyzer.
func New(storage Storage, retriever Retriever, logger log.Logger) *Analyzer {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Analyzer{storage: storage, retriever: retriever, logger: logger}
}

// Analyze classifies the question and dispatches. Structured analysis that
// finds nothing degrades to retrieval; the caller never sees a hard failure
// as long as a semantic fallback is possible.
func (a *Analyzer) Analyze(ctx context.Context, bucketID, question string) Result {
	mode, score := Classify(question)
	a.logger.Debug("classified question", "mode", mode.String(), "score", score, "bucket", bucketID)

	switch mode {
	case ModeSQL:
		return a.sqlWithFallback(ctx, bucketID, question)
	case ModeHybrid:
		return a.hybrid(ctx, bucketID, question)
	default:
		return a.rag(ctx, bucketID, question)
	}
}

func (a *Analyzer) rag(ctx context.Context, bucketID, question string) Result {
	matches := a.retriever.FindRelevant(ctx, bucketID, question)
	explanation := fmt.Sprintf("Found %d relevant documents", len(matches))
	if len(matches) == 0 {
		explanation = "I couldn't find relevant information for this question."
	}
	return Result{Mode: ModeRAG, Matches: matches, Explanation: explanation}
}

// sqlWithFallback runs structured analysis, degrading to retrieval when no
// CSV documents exist or every template comes back empty.
func (a *Analyzer) sqlWithFallback(ctx context.Context, bucketID, question string) Result {
	analyses := a.sql(ctx, bucketID, question)
	if len(analyses) == 0 {
		return a.rag(ctx, bucketID, question)
	}
	return Result{
		Mode:        ModeSQL,
		SQLResults:  analyses,
		Explanation: sqlExplanation(analyses, question),
	}
}

// sql reconstructs tables for up to maxCSVFiles documents and runs the
// selected templates over each. Per-file failures are logged and skipped.
func (a *Analyzer) sql(ctx context.Context, bucketID, question string) []FileAnalysis {
	if bucketID == "" {
		return nil
	}

	files, err := a.storage.ListCSVDocuments(ctx, bucketID)
	if err != nil {
		a.logger.Warn("listing csv documents failed", "bucket", bucketID, "error", err)
		return nil
	}
	if len(files) > maxCSVFiles {
		files = files[:maxCSVFiles]
	}

	var analyses []FileAnalysis
	for _, fileName := range files {
		chunks, err := a.storage.DocumentChunks(ctx, bucketID, fileName)
		if err != nil {
			a.logger.Warn("loading document chunks failed", "file", fileName, "error", err)
			continue
		}

		table := ParseTable(fileName, chunks)
		if len(table.Headers) == 0 {
			continue
		}

		queries := SelectQueries(question, table)
		if len(queries) > maxQueriesPerFile {
			queries = queries[:maxQueriesPerFile]
		}

		var results []QueryResult
		for _, q := range queries {
			rows := Run(table, q)
			if len(rows) == 0 {
				continue
			}
			results = append(results, QueryResult{Query: q.Describe(table.Name), Rows: rows})
		}
		if len(results) == 0 {
			continue
		}

		analyses = append(analyses, FileAnalysis{
			FileName: fileName,
			Results:  results,
			Analysis: fileAnalysisText(results),
		})
	}
	return analyses
}

// hybrid runs the structured and semantic branches concurrently with
// isolated failure domains: a panic or empty result in one branch never
// affects the other.
func (a *Analyzer) hybrid(ctx context.Context, bucketID, question string) Result {
	var (
		wg       sync.WaitGroup
		analyses []FileAnalysis
		matches  []retrieve.Match
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		defer func() {
			if r := recover(); r != nil {
				a.logger.Error("sql branch panicked", "panic", r)
			}
		}()
		analyses = a.sql(ctx, bucketID, question)
	}()
	go func() {
		defer wg.Done()
		defer func() {
			if r := recover(); r != nil {
				a.logger.Error("rag branch panicked", "panic", r)
			}
		}()
		matches = a.retriever.FindRelevant(ctx, bucketID, question)
	}()
	wg.Wait()

	if len(analyses) == 0 && len(matches) == 0 {
		return Result{
			Mode:        ModeHybrid,
			Explanation: "I couldn't find relevant information for this question.",
		}
	}

	return Result{
		Mode:        ModeHybrid,
		SQLResults:  analyses,
		Matches:     matches,
		Explanation: hybridExplanation(analyses, matches, question),
	}
}

func fileAnalysisText(results []QueryResult) string {
	var sb strings.Builder
	sb.WriteString("Analysis Results:\n\n")
	for i, r := range results {
		fmt.Fprintf(&sb, "Query %d: %s\n", i+1, r.Query)
		fmt.Fprintf(&sb, "Found %d results\n", len(r.Rows))
		if len(r.Rows) > 0 {
			fmt.Fprintf(&sb, "Sample result: %s\n", formatRow(r.Rows[0]))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

func sqlExplanation(analyses []FileAnalysis, question string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "SQL Analysis Results for: %q\n\n", question)
	for _, fa := range analyses {
		fmt.Fprintf(&sb, "File: %s\n", fa.FileName)
		sb.WriteString(fa.Analysis)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func hybridExplanation(analyses []FileAnalysis, matches []retrieve.Match, question string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Combined Analysis for: %q\n\n", question)
	if len(analyses) > 0 {
		sb.WriteString("Quantitative Analysis (SQL):\n")
		sb.WriteString(sqlExplanation(analyses, question))
		sb.WriteString("\n")
	}
	if len(matches) > 0 {
		sb.WriteString("Contextual Information (RAG):\n")
		fmt.Fprintf(&sb, "Found %d relevant documents\n", len(matches))
	}
	return sb.String()
}

// formatRow renders a result row with sorted keys so explanations are
// deterministic.
func formatRow(row map[string]string) string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%s", k, row[k])
	}
	return strings.Join(parts, ", ")
}
