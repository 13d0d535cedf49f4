package extract

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	pdf "github.com/ledongthuc/pdf"
)

// extractPDF parses a PDF payload with a hard time budget and a panic guard.
//
// PDF parsing failures never abort ingestion: a corrupted or image-only PDF
// degrades to a sentinel placeholder so the document stays discoverable by
// name. Meta.Failed distinguishes the placeholder from real content.
func (e *Extractor) extractPDF(data []byte) Result {
	type outcome struct {
		text  string
		pages int
		err   error
	}

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("pdf parser panic: %v", r)}
			}
		}()
		text, pages, err := parsePDF(data)
		done <- outcome{text: text, pages: pages, err: err}
	}()

	timer := time.NewTimer(e.pdfTimeout)
	defer timer.Stop()

	select {
	case out := <-done:
		if out.err != nil {
			e.logger.Warn("pdf extraction degraded", "error", out.err)
			return degradedPDF(out.err.Error())
		}
		return Result{Text: out.text, Meta: Meta{Pages: out.pages}}
	case <-timer.C:
		// The parser goroutine is abandoned; it unblocks on its own once
		// the parse finishes and the buffered channel absorbs the send.
		e.logger.Warn("pdf extraction timed out", "timeout", e.pdfTimeout)
		return degradedPDF(fmt.Sprintf("parsing exceeded %s", e.pdfTimeout))
	}
}

func degradedPDF(reason string) Result {
	return Result{
		Text: fmt.Sprintf("[PDF text extraction failed: %s]", reason),
		Meta: Meta{Failed: true, FailureReason: reason},
	}
}

func parsePDF(data []byte) (string, int, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("open reader: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", 0, fmt.Errorf("plain text: %w", err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", 0, fmt.Errorf("read text: %w", err)
	}
	return collapseWhitespace(string(b)), r.NumPage(), nil
}

// collapseWhitespace folds runs of whitespace (including NBSP) into single
// spaces. Layout-derived spacing from PDF and OpenXML parses is noise for
// embedding purposes.
func collapseWhitespace(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	return strings.Join(strings.Fields(s), " ")
}
