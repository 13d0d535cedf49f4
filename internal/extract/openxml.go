package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// OpenXML documents are ZIP containers; handlers here walk the relevant parts
// with a streaming XML decoder instead of binding the full schema.

func extractDOCX(data []byte) (Result, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Result{}, fmt.Errorf("%w: docx is not a valid zip container: %v", ErrExtraction, err)
	}

	body, err := readZipFile(zr, "word/document.xml")
	if err != nil {
		return Result{}, fmt.Errorf("%w: docx missing word/document.xml: %v", ErrExtraction, err)
	}

	// Gather w:t runs, inserting paragraph breaks at w:p boundaries so the
	// chunker still sees structure.
	dec := xml.NewDecoder(bytes.NewReader(body))
	var sb strings.Builder
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Result{}, fmt.Errorf("%w: docx xml: %v", ErrExtraction, err)
		}
		switch el := tok.(type) {
		case xml.StartElement:
			if el.Name.Local == "t" {
				var v string
				if err := dec.DecodeElement(&v, &el); err == nil {
					sb.WriteString(v)
				}
			}
		case xml.EndElement:
			if el.Name.Local == "p" {
				sb.WriteString("\n\n")
			}
		}
	}

	paras := splitParagraphs(sb.String())
	return Result{Text: strings.Join(paras, "\n\n")}, nil
}

func extractDOC(data []byte) (Result, error) {
	// Many .doc files in the wild are renamed OpenXML containers; try the
	// docx path first.
	if res, err := extractDOCX(data); err == nil && strings.TrimSpace(res.Text) != "" {
		return res, nil
	}

	// True legacy binary Word files have no structured text stream we
	// parse. Salvage printable ASCII runs; if nothing readable survives,
	// reject with conversion advice.
	text := salvagePrintable(data)
	if len(text) < 32 {
		return Result{}, fmt.Errorf("%w: legacy .doc has no extractable text, convert to .docx", ErrExtraction)
	}
	return Result{Text: text}, nil
}

func extractXLSX(data []byte) (Result, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Result{}, fmt.Errorf("%w: xlsx is not a valid zip container: %v", ErrExtraction, err)
	}

	shared, err := readSharedStrings(zr)
	if err != nil {
		return Result{}, err
	}
	names := sheetNames(zr)

	var sheets []string
	var sb strings.Builder
	for i, f := range sortedSheets(zr) {
		name := fmt.Sprintf("Sheet%d", i+1)
		if i < len(names) {
			name = names[i]
		}
		body, err := readZipBytes(f)
		if err != nil {
			return Result{}, fmt.Errorf("%w: xlsx read %s: %v", ErrExtraction, f.Name, err)
		}
		rows, err := sheetRows(body, shared)
		if err != nil {
			return Result{}, fmt.Errorf("%w: xlsx parse %s: %v", ErrExtraction, f.Name, err)
		}
		if len(rows) == 0 {
			continue
		}
		sheets = append(sheets, name)
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "=== Sheet: %s ===\n", name)
		for _, row := range rows {
			sb.WriteString(strings.Join(row, ","))
			sb.WriteByte('\n')
		}
	}

	return Result{Text: sb.String(), Meta: Meta{Sheets: sheets}}, nil
}

func readZipFile(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name == name {
			return readZipBytes(f)
		}
	}
	return nil, fmt.Errorf("entry %q not found", name)
}

func readZipBytes(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// readSharedStrings loads xl/sharedStrings.xml; absent is fine (inline-string
// workbooks).
func readSharedStrings(zr *zip.Reader) ([]string, error) {
	body, err := readZipFile(zr, "xl/sharedStrings.xml")
	if err != nil {
		return nil, nil
	}
	dec := xml.NewDecoder(bytes.NewReader(body))
	var (
		shared  []string
		current strings.Builder
		inSI    bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: xlsx shared strings: %v", ErrExtraction, err)
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "si":
				inSI = true
				current.Reset()
			case "t":
				if inSI {
					var v string
					if err := dec.DecodeElement(&v, &el); err == nil {
						current.WriteString(v)
					}
				}
			}
		case xml.EndElement:
			if el.Name.Local == "si" {
				shared = append(shared, current.String())
				inSI = false
			}
		}
	}
	return shared, nil
}

// sheetNames reads display names from xl/workbook.xml in declaration order.
func sheetNames(zr *zip.Reader) []string {
	body, err := readZipFile(zr, "xl/workbook.xml")
	if err != nil {
		return nil
	}
	dec := xml.NewDecoder(bytes.NewReader(body))
	var names []string
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		el, ok := tok.(xml.StartElement)
		if !ok || el.Name.Local != "sheet" {
			continue
		}
		for _, attr := range el.Attr {
			if attr.Name.Local == "name" {
				names = append(names, attr.Value)
			}
		}
	}
	return names
}

// sortedSheets returns worksheet entries ordered by sheet number so output
// matches workbook order.
func sortedSheets(zr *zip.Reader) []*zip.File {
	var files []*zip.File
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, "xl/worksheets/sheet") && strings.HasSuffix(f.Name, ".xml") {
			files = append(files, f)
		}
	}
	sort.Slice(files, func(i, j int) bool {
		return sheetNumber(files[i].Name) < sheetNumber(files[j].Name)
	})
	return files
}

func sheetNumber(name string) int {
	base := strings.TrimSuffix(strings.TrimPrefix(name, "xl/worksheets/sheet"), ".xml")
	n, err := strconv.Atoi(base)
	if err != nil {
		return 0
	}
	return n
}

// sheetRows decodes one worksheet into rows of cell values. Shared-string
// cells (t="s") resolve through the shared table; everything else keeps its
// raw value.
func sheetRows(body []byte, shared []string) ([][]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	var (
		rows     [][]string
		row      []string
		cellType string
		inValue  bool
		value    strings.Builder
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "row":
				row = nil
			case "c":
				cellType = ""
				for _, attr := range el.Attr {
					if attr.Name.Local == "t" {
						cellType = attr.Value
					}
				}
			case "v", "t":
				inValue = true
				value.Reset()
			}
		case xml.CharData:
			if inValue {
				value.Write(el)
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "v", "t":
				inValue = false
			case "c":
				v := value.String()
				if cellType == "s" {
					if idx, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && idx >= 0 && idx < len(shared) {
						v = shared[idx]
					}
				}
				row = append(row, sanitizeCell(v))
				value.Reset()
			case "row":
				if len(row) > 0 {
					rows = append(rows, row)
				}
			}
		}
	}
	return rows, nil
}

// sanitizeCell keeps CSV-style sheet output parseable by quoting cells that
// contain separators.
func sanitizeCell(v string) string {
	v = strings.TrimSpace(v)
	if strings.ContainsAny(v, ",\"\n") {
		return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
	}
	return v
}

func splitParagraphs(s string) []string {
	var out []string
	for _, p := range strings.Split(s, "\n\n") {
		if p = collapseWhitespace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// salvagePrintable pulls ASCII word runs out of a binary payload.
func salvagePrintable(data []byte) string {
	var sb strings.Builder
	var run []byte
	flush := func() {
		if len(run) >= 4 {
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			sb.Write(run)
		}
		run = run[:0]
	}
	for _, c := range data {
		if c >= 0x20 && c <= 0x7e {
			run = append(run, c)
			continue
		}
		flush()
	}
	flush()
	return strings.TrimSpace(sb.String())
}
