package analyze

import (
	"regexp"
	"strings"
)

// Table is an in-memory reconstruction of an ingested CSV document.
type Table struct {
	Name    string
	Headers []string
	Rows    [][]string
}

// RowMap returns row i keyed by header.
func (t Table) RowMap(i int) map[string]string {
	row := make(map[string]string, len(t.Headers))
	for j, h := range t.Headers {
		if j < len(t.Rows[i]) {
			row[h] = t.Rows[i][j]
		}
	}
	return row
}

// ParseTable rebuilds tabular rows from a document's stored chunk texts.
// Only lines inside a tabular section (between a CSV marker and the JSON
// rendering, if any) are considered. The section survives chunk boundaries:
// once a marker has opened it, continuation chunks keep contributing rows,
// and a chunk that re-prepends only the header row re-enters the section on
// its own. Repeated header lines are skipped, and rows whose field count
// disagrees with the header are dropped rather than guessed at.
func ParseTable(fileName string, chunks []string) Table {
	table := Table{Name: sanitizeTableName(fileName)}

	inSection := false
	for _, chunk := range chunks {
		for _, line := range strings.Split(chunk, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			if strings.Contains(line, "Full CSV Content:") || strings.Contains(line, "CSV Data (") {
				inSection = true
				continue
			}
			if inSection && strings.Contains(line, "Structured JSON Format:") {
				inSection = false
				break
			}
			if !strings.Contains(line, ",") {
				continue
			}

			fields := parseCSVRow(line)
			if !inSection {
				// A continuation chunk opens with the re-prepended header.
				if equalFields(fields, table.Headers) {
					inSection = true
				}
				continue
			}
			if table.Headers == nil {
				table.Headers = fields
				continue
			}
			if equalFields(fields, table.Headers) {
				continue
			}
			if len(fields) == len(table.Headers) {
				table.Rows = append(table.Rows, fields)
			}
		}
	}
	return table
}

// parseCSVRow splits one CSV line honoring quoted fields with embedded
// commas and doubled quotes.
func parseCSVRow(row string) []string {
	var (
		fields   []string
		current  strings.Builder
		inQuotes bool
	)
	for i := 0; i < len(row); i++ {
		c := row[i]
		switch {
		case c == '"':
			if inQuotes && i+1 < len(row) && row[i+1] == '"' {
				current.WriteByte('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
		case c == ',' && !inQuotes:
			fields = append(fields, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteByte(c)
		}
	}
	fields = append(fields, strings.TrimSpace(current.String()))
	return fields
}

func equalFields(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

var nonIdentifier = regexp.MustCompile(`[^a-zA-Z0-9_]`)

// sanitizeTableName derives a stable identifier from a file name: every
// non-alphanumeric character becomes an underscore and the result is
// lower-cased.
func sanitizeTableName(fileName string) string {
	return strings.ToLower(nonIdentifier.ReplaceAllString(fileName, "_"))
}

// numericKeywords flags likely numeric columns by header name. Approximate
// on purpose; a "zip_code" column will be flagged too. Known limitation.
var numericKeywords = []string{
	"price", "cost", "amount", "total", "sum", "count", "number", "num",
	"age", "year", "score", "rating", "quantity", "qty", "weight", "height",
	"salary", "income", "revenue", "profit", "sales", "value", "rate",
	"percentage", "percent", "ratio", "index", "level", "grade",
}

var (
	idCodeWord = regexp.MustCompile(`\b(id|code)\b`)
	hasDigit   = regexp.MustCompile(`\d`)
)

// numericColumns returns the headers heuristically classified as numeric.
func numericColumns(headers []string) []string {
	var cols []string
	for _, h := range headers {
		lower := strings.ToLower(h)
		matched := false
		for _, kw := range numericKeywords {
			if strings.Contains(lower, kw) {
				matched = true
				break
			}
		}
		if matched || idCodeWord.MatchString(lower) || hasDigit.MatchString(h) {
			cols = append(cols, h)
		}
	}
	return cols
}

// identifierColumns returns headers that look like row identity: id, email,
// or name columns. Used to scope duplicate scans.
func identifierColumns(headers []string) []string {
	var cols []string
	for _, h := range headers {
		lower := strings.ToLower(h)
		if strings.Contains(lower, "id") || strings.Contains(lower, "email") || strings.Contains(lower, "name") {
			cols = append(cols, h)
		}
	}
	return cols
}
