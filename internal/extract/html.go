package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// extractHTML strips markup and non-content elements, keeping block structure
// as paragraph breaks.
func extractHTML(data []byte) (Result, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("%w: html parse: %v", ErrExtraction, err)
	}

	doc.Find("script, style, noscript, iframe, svg").Remove()

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}

	var paras []string
	root.Find("p, h1, h2, h3, h4, h5, h6, li, td, pre, blockquote").Each(func(_ int, s *goquery.Selection) {
		if s.Children().Length() > 0 && s.Find("p, li").Length() > 0 {
			return
		}
		if t := collapseWhitespace(s.Text()); t != "" {
			paras = append(paras, t)
		}
	})
	if len(paras) == 0 {
		if t := collapseWhitespace(root.Text()); t != "" {
			paras = append(paras, t)
		}
	}

	return Result{Text: strings.Join(paras, "\n\n")}, nil
}
