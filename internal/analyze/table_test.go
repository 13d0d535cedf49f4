package analyze

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTableFromChunks(t *testing.T) {
	chunks := []string{
		"Full CSV Content:\nname,email,amount\nada,ada@example.com,10\nbob,bob@example.com,20",
		// Later chunks re-prepend the header; it must not become a row.
		"name,email,amount\ncarol,carol@example.com,30",
	}

	table := ParseTable("sales.csv", chunks)
	assert.Equal(t, "sales_csv", table.Name)
	assert.Equal(t, []string{"name", "email", "amount"}, table.Headers)
	require.Len(t, table.Rows, 3)
	assert.Equal(t, []string{"carol", "carol@example.com", "30"}, table.Rows[2])
}

func TestParseTableSectionSpansChunks(t *testing.T) {
	chunks := []string{
		"CSV Data (10 rows):\nid,score\n1,50",
		// Prose-split continuation carrying neither marker nor header.
		"2,60\n3,70",
	}

	table := ParseTable("scores.csv", chunks)
	assert.Equal(t, []string{"id", "score"}, table.Headers)
	require.Len(t, table.Rows, 3)
	assert.Equal(t, []string{"3", "70"}, table.Rows[2])
}

func TestParseTableSkipsJSONSection(t *testing.T) {
	chunk := `Full CSV Content:
name,amount
ada,10

Structured JSON Format:
[
  {"name": "ada", "amount": "10"}
]`

	table := ParseTable("x.csv", []string{chunk})
	require.Len(t, table.Rows, 1)
	assert.Equal(t, []string{"ada", "10"}, table.Rows[0])
}

func TestParseTableMediumMarker(t *testing.T) {
	chunk := "CSV Data (1500 rows):\nid,score\n1,50\n2,60\n\n... and 1300 more rows of 1500 total across 2 columns"

	table := ParseTable("scores.csv", []string{chunk})
	assert.Equal(t, []string{"id", "score"}, table.Headers)
	// The comma-free summary line is not mistaken for a row.
	require.Len(t, table.Rows, 2)
}

func TestParseTableIgnoresTextOutsideSections(t *testing.T) {
	chunk := "Some prose with, commas in it\nFull CSV Content:\na,b\n1,2"

	table := ParseTable("t.csv", []string{chunk})
	assert.Equal(t, []string{"a", "b"}, table.Headers)
	require.Len(t, table.Rows, 1)
}

func TestParseCSVRowQuoting(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"plain", "a,b,c", []string{"a", "b", "c"}},
		{"quoted comma", `widget,"has, comma",5`, []string{"widget", "has, comma", "5"}},
		{"doubled quotes", `say,"he said ""hi""",x`, []string{"say", `he said "hi"`, "x"}},
		{"trailing empty", "a,b,", []string{"a", "b", ""}},
		{"spaces trimmed", " a , b ", []string{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseCSVRow(tt.in))
		})
	}
}

func TestSanitizeTableName(t *testing.T) {
	assert.Equal(t, "sales_report_2024_csv", sanitizeTableName("Sales Report-2024.csv"))
	assert.Equal(t, "a_b", sanitizeTableName("a/b"))
}

func TestNumericColumns(t *testing.T) {
	headers := []string{"name", "unit_price", "Age", "email", "col7", "order id"}
	got := numericColumns(headers)
	assert.Equal(t, []string{"unit_price", "Age", "col7", "order id"}, got)
}

func TestIdentifierColumns(t *testing.T) {
	headers := []string{"user_id", "email", "full name", "amount"}
	got := identifierColumns(headers)
	assert.Equal(t, []string{"user_id", "email", "full name"}, got)
}
