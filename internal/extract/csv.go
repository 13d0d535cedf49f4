package extract

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// CSV payloads get one of three representations depending on row count. The
// section markers emitted here are load-bearing: the ingest pipeline keys its
// chunk ceiling on them and the analyzer reconstructs tables from them.
const (
	// MarkerFullCSV opens the complete-content section of a small CSV.
	MarkerFullCSV = "Full CSV Content:"
	// MarkerCSVData prefixes the sampled section of a medium CSV, as
	// "CSV Data (N rows):".
	MarkerCSVData = "CSV Data ("
	// MarkerLargeCSV opens the summary of a CSV too large to inline.
	MarkerLargeCSV = "Large CSV Dataset:"
	// MarkerJSONFormat closes a full-content section and opens the
	// structured rendering of the same rows.
	MarkerJSONFormat = "Structured JSON Format:"

	smallRowLimit    = 100
	mediumRowLimit   = 5000
	mediumSampleRows = 200
	largeExampleRows = 5
)

func extractCSV(data []byte, fileName string) (Result, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var records [][]string
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Result{}, fmt.Errorf("%w: csv parse %q: %v", ErrExtraction, fileName, err)
		}
		if isBlankRecord(rec) {
			continue
		}
		records = append(records, rec)
	}
	if len(records) == 0 {
		return Result{}, fmt.Errorf("%w: csv %q has no rows", ErrEmptyContent, fileName)
	}

	header := records[0]
	rows := records[1:]
	meta := Meta{RowCount: len(rows), ColumnCount: len(header)}

	var text string
	switch {
	case len(rows) <= smallRowLimit:
		text = renderSmallCSV(header, rows)
	case len(rows) <= mediumRowLimit:
		text = renderMediumCSV(header, rows)
	default:
		text = renderLargeCSV(header, rows)
	}
	return Result{Text: text, Meta: meta}, nil
}

// renderSmallCSV inlines everything twice: raw rows for table reconstruction
// and a JSON object list for semantic retrieval.
func renderSmallCSV(header []string, rows [][]string) string {
	var sb strings.Builder
	sb.WriteString(MarkerFullCSV)
	sb.WriteByte('\n')
	writeCSVLines(&sb, header, rows)

	sb.WriteString("\n")
	sb.WriteString(MarkerJSONFormat)
	sb.WriteByte('\n')

	objects := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		obj := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(row) {
				obj[col] = row[i]
			} else {
				obj[col] = ""
			}
		}
		objects = append(objects, obj)
	}
	if encoded, err := json.MarshalIndent(objects, "", "  "); err == nil {
		sb.Write(encoded)
	}
	return sb.String()
}

// renderMediumCSV keeps the header and a leading sample; the rest is
// summarized so the text stays embeddable.
func renderMediumCSV(header []string, rows [][]string) string {
	sample := rows
	if len(sample) > mediumSampleRows {
		sample = sample[:mediumSampleRows]
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s%d rows):\n", MarkerCSVData, len(rows))
	writeCSVLines(&sb, header, sample)
	// No commas in the trailer: table reconstruction treats comma lines
	// inside this section as candidate rows.
	if len(rows) > len(sample) {
		fmt.Fprintf(&sb, "\n... and %d more rows of %d total across %d columns\n", len(rows)-len(sample), len(rows), len(header))
	}
	return sb.String()
}

// renderLargeCSV never inlines rows: headers, counts, and a handful of
// example rows only.
func renderLargeCSV(header []string, rows [][]string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %d rows, %d columns\n", MarkerLargeCSV, len(rows), len(header))
	fmt.Fprintf(&sb, "Headers: %s\n", strings.Join(header, ", "))
	sb.WriteString("Example rows:\n")
	for i := 0; i < largeExampleRows && i < len(rows); i++ {
		sb.WriteString(joinCSVRow(rows[i]))
		sb.WriteByte('\n')
	}
	return sb.String()
}

func writeCSVLines(sb *strings.Builder, header []string, rows [][]string) {
	sb.WriteString(joinCSVRow(header))
	sb.WriteByte('\n')
	for _, row := range rows {
		sb.WriteString(joinCSVRow(row))
		sb.WriteByte('\n')
	}
}

func joinCSVRow(row []string) string {
	quoted := make([]string, len(row))
	for i, v := range row {
		quoted[i] = sanitizeCell(v)
	}
	return strings.Join(quoted, ",")
}

func isBlankRecord(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
