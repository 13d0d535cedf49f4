package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovehq/grove/internal/log"
)

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	return New(log.NewNop())
}

func TestDetectKind(t *testing.T) {
	tests := []struct {
		name     string
		mime     string
		fileName string
		want     Kind
	}{
		{"pdf by mime", "application/pdf", "report.bin", KindPDF},
		{"pdf by extension", "", "report.pdf", KindPDF},
		{"mime wins over extension", "text/csv", "data.json", KindCSV},
		{"mime parameters stripped", "text/plain; charset=utf-8", "notes", KindText},
		{"docx mime", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", "x", KindDOCX},
		{"xlsx extension", "application/octet-stream", "sheet.XLSX", KindXLSX},
		{"markdown", "", "README.md", KindText},
		{"html", "text/html", "page", KindHTML},
		{"unknown", "application/octet-stream", "blob.bin", KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectKind(tt.mime, tt.fileName))
		})
	}
}

func TestExtractUnsupportedType(t *testing.T) {
	e := newTestExtractor(t)

	_, err := e.Extract([]byte{0x00, 0x01}, "application/octet-stream", "blob.bin")
	require.ErrorIs(t, err, ErrUnsupportedType)
}

func TestExtractEmptyText(t *testing.T) {
	e := newTestExtractor(t)

	_, err := e.Extract([]byte("   \n\t  "), "text/plain", "blank.txt")
	require.ErrorIs(t, err, ErrEmptyContent)
}

func TestExtractPlainText(t *testing.T) {
	e := newTestExtractor(t)

	res, err := e.Extract([]byte("hello world\nsecond line"), "text/plain", "notes.txt")
	require.NoError(t, err)
	assert.Equal(t, "hello world\nsecond line", res.Text)
	assert.False(t, res.Meta.Failed)
}

func TestExtractJSONFlattensValidPayload(t *testing.T) {
	e := newTestExtractor(t)

	res, err := e.Extract([]byte(`{"name":"ada","age":36}`), "application/json", "person.json")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Text, "JSON Content:\n"))
	assert.Contains(t, res.Text, "name : ada")
	assert.Contains(t, res.Text, "age :36")
	assert.NotContains(t, res.Text, "{")
	assert.NotContains(t, res.Text, `"`)
}

func TestExtractJSONInvalidPassesThrough(t *testing.T) {
	e := newTestExtractor(t)

	res, err := e.Extract([]byte("{not json"), "application/json", "broken.json")
	require.NoError(t, err)
	assert.Equal(t, "{not json", res.Text)
}

func TestExtractXMLKeepsCharacterData(t *testing.T) {
	e := newTestExtractor(t)

	res, err := e.Extract([]byte("<doc><title>Report</title><body>Findings here</body></doc>"), "application/xml", "doc.xml")
	require.NoError(t, err)
	assert.Contains(t, res.Text, "Report")
	assert.Contains(t, res.Text, "Findings here")
	assert.NotContains(t, res.Text, "<title>")
}

func TestExtractHTMLDropsScriptsAndMarkup(t *testing.T) {
	e := newTestExtractor(t)

	html := `<html><head><style>p{color:red}</style></head><body>
		<script>alert("x")</script>
		<h1>Quarterly Review</h1>
		<p>Revenue grew.</p>
	</body></html>`
	res, err := e.Extract([]byte(html), "text/html", "page.html")
	require.NoError(t, err)
	assert.Contains(t, res.Text, "Quarterly Review")
	assert.Contains(t, res.Text, "Revenue grew.")
	assert.NotContains(t, res.Text, "alert")
	assert.NotContains(t, res.Text, "color:red")
}

func TestExtractPDFDegradesOnGarbage(t *testing.T) {
	e := newTestExtractor(t)

	res, err := e.Extract([]byte("%PDF-this is not a real pdf"), "application/pdf", "bad.pdf")
	require.NoError(t, err)
	assert.True(t, res.Meta.Failed)
	assert.NotEmpty(t, res.Meta.FailureReason)
	assert.True(t, strings.HasPrefix(res.Text, "[PDF text extraction failed:"), res.Text)
}

func TestExtractPDFTimeoutDegrades(t *testing.T) {
	e := New(log.NewNop(), WithPDFTimeout(time.Nanosecond))

	res := e.extractPDF(bytes.Repeat([]byte("%PDF-1.4 junk "), 1024))
	assert.True(t, res.Meta.Failed)
}

func buildZip(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestExtractDOCX(t *testing.T) {
	e := newTestExtractor(t)

	document := `<?xml version="1.0"?>
		<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
			<w:body>
				<w:p><w:r><w:t>First paragraph.</w:t></w:r></w:p>
				<w:p><w:r><w:t>Second </w:t></w:r><w:r><w:t>paragraph.</w:t></w:r></w:p>
			</w:body>
		</w:document>`
	data := buildZip(t, map[string]string{"word/document.xml": document})

	res, err := e.Extract(data, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", "doc.docx")
	require.NoError(t, err)
	assert.Contains(t, res.Text, "First paragraph.")
	assert.Contains(t, res.Text, "Second paragraph.")
	assert.Contains(t, res.Text, "\n\n")
}

func TestExtractDOCMislabeledOpenXML(t *testing.T) {
	e := newTestExtractor(t)

	document := `<?xml version="1.0"?>
		<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
			<w:body>
				<w:p><w:r><w:t>Renamed container text.</w:t></w:r></w:p>
			</w:body>
		</w:document>`
	data := buildZip(t, map[string]string{"word/document.xml": document})

	// A .doc that is really an OpenXML container extracts via the docx path.
	res, err := e.Extract(data, "application/msword", "report.doc")
	require.NoError(t, err)
	assert.Contains(t, res.Text, "Renamed container text.")
}

func TestExtractDOCLegacyBinaryRejected(t *testing.T) {
	e := newTestExtractor(t)

	_, err := e.Extract([]byte{0xd0, 0xcf, 0x11, 0xe0, 0x00, 0x01}, "application/msword", "old.doc")
	require.ErrorIs(t, err, ErrExtraction)
	assert.Contains(t, err.Error(), "convert to .docx")
}

func TestExtractDOCXNotAZip(t *testing.T) {
	e := newTestExtractor(t)

	_, err := e.Extract([]byte("plain bytes"), "", "doc.docx")
	require.ErrorIs(t, err, ErrExtraction)
}

func TestExtractXLSX(t *testing.T) {
	e := newTestExtractor(t)

	workbook := `<?xml version="1.0"?>
		<workbook xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
			<sheets><sheet name="Sales" sheetId="1"/></sheets>
		</workbook>`
	sharedStrings := `<?xml version="1.0"?>
		<sst xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main" count="2" uniqueCount="2">
			<si><t>region</t></si>
			<si><t>north</t></si>
		</sst>`
	sheet := `<?xml version="1.0"?>
		<worksheet xmlns="http://schemas.openxmlformats.org/spreadsheetml/2006/main">
			<sheetData>
				<row r="1"><c r="A1" t="s"><v>0</v></c><c r="B1"><v>42</v></c></row>
				<row r="2"><c r="A2" t="s"><v>1</v></c><c r="B2"><v>7</v></c></row>
			</sheetData>
		</worksheet>`
	data := buildZip(t, map[string]string{
		"xl/workbook.xml":          workbook,
		"xl/sharedStrings.xml":     sharedStrings,
		"xl/worksheets/sheet1.xml": sheet,
	})

	res, err := e.Extract(data, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "sales.xlsx")
	require.NoError(t, err)
	assert.Equal(t, []string{"Sales"}, res.Meta.Sheets)
	assert.Contains(t, res.Text, "=== Sheet: Sales ===")
	assert.Contains(t, res.Text, "region,42")
	assert.Contains(t, res.Text, "north,7")
}

func TestExtractLegacyXLSRejected(t *testing.T) {
	e := newTestExtractor(t)

	_, err := e.Extract([]byte{0xd0, 0xcf, 0x11, 0xe0}, "application/vnd.ms-excel", "old.xls")
	require.ErrorIs(t, err, ErrExtraction)
	assert.Contains(t, err.Error(), "convert to .xlsx")
}

func csvPayload(t *testing.T, rows int) []byte {
	t.Helper()
	var sb strings.Builder
	sb.WriteString("name,amount\n")
	for i := 0; i < rows; i++ {
		fmt.Fprintf(&sb, "item%d,%d\n", i, i*10)
	}
	return []byte(sb.String())
}

func TestExtractCSVSmall(t *testing.T) {
	e := newTestExtractor(t)

	res, err := e.Extract(csvPayload(t, 3), "text/csv", "small.csv")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Meta.RowCount)
	assert.Equal(t, 2, res.Meta.ColumnCount)
	assert.Contains(t, res.Text, MarkerFullCSV)
	assert.Contains(t, res.Text, MarkerJSONFormat)
	assert.Contains(t, res.Text, "item0,0")
	assert.Contains(t, res.Text, `"name": "item2"`)
}

func TestExtractCSVMediumSamplesRows(t *testing.T) {
	e := newTestExtractor(t)

	res, err := e.Extract(csvPayload(t, 1000), "text/csv", "medium.csv")
	require.NoError(t, err)
	assert.Equal(t, 1000, res.Meta.RowCount)
	assert.Contains(t, res.Text, "CSV Data (1000 rows):")
	assert.Contains(t, res.Text, "item199,1990")
	assert.NotContains(t, res.Text, "item200,2000")
	assert.Contains(t, res.Text, "800 more rows of 1000 total")
}

func TestExtractCSVLargeSummarizes(t *testing.T) {
	e := newTestExtractor(t)

	res, err := e.Extract(csvPayload(t, 6000), "text/csv", "large.csv")
	require.NoError(t, err)
	assert.Contains(t, res.Text, "Large CSV Dataset: 6000 rows, 2 columns")
	assert.Contains(t, res.Text, "Headers: name, amount")
	assert.Contains(t, res.Text, "item4,40")
	assert.NotContains(t, res.Text, "item5,50")
}

func TestExtractCSVQuotedFieldsSurviveRoundTrip(t *testing.T) {
	e := newTestExtractor(t)

	payload := "name,notes\nwidget,\"has, comma\"\n"
	res, err := e.Extract([]byte(payload), "text/csv", "quoted.csv")
	require.NoError(t, err)
	assert.Contains(t, res.Text, `widget,"has, comma"`)
}

func TestExtractCSVEmpty(t *testing.T) {
	e := newTestExtractor(t)

	_, err := e.Extract([]byte("\n\n"), "text/csv", "empty.csv")
	require.ErrorIs(t, err, ErrEmptyContent)
}
