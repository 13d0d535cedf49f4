package extract

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"strings"
)

// extractJSON flattens valid JSON into searchable text: structural
// punctuation becomes spaces, whitespace collapses, and a "JSON Content:"
// header marks the payload. Invalid JSON passes through as plain text.
func extractJSON(data []byte) Result {
	trimmed := bytes.TrimSpace(data)
	if !json.Valid(trimmed) {
		return Result{Text: string(data)}
	}

	flat := strings.Map(func(r rune) rune {
		switch r {
		case '{', '}', '[', ']', '"', ',':
			return ' '
		}
		return r
	}, string(trimmed))
	flat = strings.Join(strings.Fields(flat), " ")

	return Result{Text: "JSON Content:\n" + flat}
}

// extractXML gathers character data, one text node per line. Malformed
// trailing content keeps whatever was decoded before the error.
func extractXML(data []byte) Result {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var lines []string
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		cd, ok := tok.(xml.CharData)
		if !ok {
			continue
		}
		if t := collapseWhitespace(string(cd)); t != "" {
			lines = append(lines, t)
		}
	}
	return Result{Text: strings.Join(lines, "\n")}
}
