// Package extract converts raw uploaded file bytes into plain text plus
// structural metadata.
//
// Dispatch is a closed enum over supported kinds, resolved from the declared
// MIME type first and the filename extension second. Binary parsing is
// delegated to format libraries; the package's own job is routing, failure
// shaping, and the tabular representation regimes.
package extract

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/grovehq/grove/internal/log"
)

var (
	// ErrUnsupportedType indicates neither MIME type nor extension matched
	// a supported kind. The upload is rejected, not retried.
	ErrUnsupportedType = errors.New("unsupported file type")

	// ErrExtraction indicates the underlying parse failed for a supported
	// kind. PDFs never return this; see pdf.go.
	ErrExtraction = errors.New("extraction failed")

	// ErrEmptyContent indicates extraction produced no usable text.
	ErrEmptyContent = errors.New("no text content")
)

// Kind identifies a supported document format.
type Kind int

const (
	KindUnknown Kind = iota
	KindPDF
	KindDOCX
	KindDOC
	KindXLSX
	KindXLS
	KindCSV
	KindJSON
	KindText
	KindHTML
	KindXML
)

var kindNames = map[Kind]string{
	KindUnknown: "unknown",
	KindPDF:     "pdf",
	KindDOCX:    "docx",
	KindDOC:     "doc",
	KindXLSX:    "xlsx",
	KindXLS:     "xls",
	KindCSV:     "csv",
	KindJSON:    "json",
	KindText:    "text",
	KindHTML:    "html",
	KindXML:     "xml",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// mimeKinds maps declared MIME types to kinds, matching the upload boundary's
// fixed dispatch table.
var mimeKinds = map[string]Kind{
	"application/pdf":    KindPDF,
	"application/msword": KindDOC,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": KindDOCX,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       KindXLSX,
	"application/vnd.ms-excel":                                                KindXLS,
	"text/csv":                                                                KindCSV,
	"application/json":                                                        KindJSON,
	"text/plain":                                                              KindText,
	"text/markdown":                                                           KindText,
	"text/html":                                                               KindHTML,
	"application/xml":                                                         KindXML,
	"text/xml":                                                                KindXML,
}

var extensionKinds = map[string]Kind{
	".pdf":  KindPDF,
	".doc":  KindDOC,
	".docx": KindDOCX,
	".xlsx": KindXLSX,
	".xls":  KindXLS,
	".csv":  KindCSV,
	".json": KindJSON,
	".txt":  KindText,
	".md":   KindText,
	".log":  KindText,
	".html": KindHTML,
	".htm":  KindHTML,
	".xml":  KindXML,
}

// DetectKind resolves the document kind from the declared MIME type, falling
// back to the filename extension.
func DetectKind(declaredType, fileName string) Kind {
	mime := strings.ToLower(strings.TrimSpace(declaredType))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	if k, ok := mimeKinds[mime]; ok {
		return k
	}
	if k, ok := extensionKinds[strings.ToLower(filepath.Ext(fileName))]; ok {
		return k
	}
	return KindUnknown
}

// Meta carries structural metadata alongside extracted text.
type Meta struct {
	Pages       int
	Sheets      []string
	RowCount    int
	ColumnCount int

	// Failed marks a degraded extraction (PDF parse failure or timeout)
	// whose Text is a sentinel placeholder rather than document content.
	Failed        bool
	FailureReason string
}

// Result is the outcome of a successful (possibly degraded) extraction.
type Result struct {
	Text string
	Meta Meta
}

// DefaultPDFTimeout bounds PDF parsing; see pdf.go.
const DefaultPDFTimeout = 30 * time.Second

// Extractor dispatches byte payloads to per-kind handlers. Safe for
// concurrent use.
type Extractor struct {
	pdfTimeout time.Duration
	logger     log.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithPDFTimeout overrides the PDF parsing time budget.
func WithPDFTimeout(d time.Duration) Option {
	return func(e *Extractor) {
		if d > 0 {
			e.pdfTimeout = d
		}
	}
}

// New creates an Extractor. A nil logger falls back to the default slog
// logger.
func New(logger log.Logger, opts ...Option) *Extractor {
	if logger == nil {
		logger = log.NewNop()
	}
	e := &Extractor{
		pdfTimeout: DefaultPDFTimeout,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract converts file bytes into plain text and metadata.
//
// Unknown kinds return ErrUnsupportedType; parse failures return
// ErrExtraction except for PDFs, which degrade to a sentinel placeholder
// (dropping a document silently is worse than ingesting a descriptive stub).
// Extractions yielding no text return ErrEmptyContent.
func (e *Extractor) Extract(data []byte, declaredType, fileName string) (Result, error) {
	kind := DetectKind(declaredType, fileName)

	var (
		res Result
		err error
	)
	switch kind {
	case KindPDF:
		res = e.extractPDF(data)
	case KindDOCX:
		res, err = extractDOCX(data)
	case KindDOC:
		res, err = extractDOC(data)
	case KindXLSX:
		res, err = extractXLSX(data)
	case KindXLS:
		err = fmt.Errorf("%w: legacy .xls is not supported, convert to .xlsx", ErrExtraction)
	case KindCSV:
		res, err = extractCSV(data, fileName)
	case KindJSON:
		res = extractJSON(data)
	case KindText:
		res = Result{Text: string(data)}
	case KindHTML:
		res, err = extractHTML(data)
	case KindXML:
		res = extractXML(data)
	default:
		return Result{}, fmt.Errorf("%w: %q (file %q)", ErrUnsupportedType, declaredType, fileName)
	}
	if err != nil {
		e.logger.Warn("extraction failed", "file", fileName, "kind", kind.String(), "error", err)
		return Result{}, err
	}

	if strings.TrimSpace(res.Text) == "" {
		return Result{}, fmt.Errorf("%w: %q produced no text (empty, image-based, or corrupted)", ErrEmptyContent, fileName)
	}

	e.logger.Debug("extracted text",
		"file", fileName,
		"kind", kind.String(),
		"bytes", len(data),
		"text_length", len(res.Text),
		"degraded", res.Meta.Failed)
	return res, nil
}
