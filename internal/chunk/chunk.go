// Package chunk splits extracted document text into bounded, overlapping
// segments, the atomic units of embedding and retrieval.
//
// Splitting is pure and deterministic: the same input always yields the same
// chunks, and no chunk is ever empty. Prose is cut at natural boundaries
// (paragraph, sentence, line, word) inside a sliding window; structured
// content (CSV, JSON arrays) is cut at record boundaries so every chunk stays
// independently interpretable.
package chunk

import (
	"encoding/json"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultMaxSize is the default chunk size in bytes.
	DefaultMaxSize = 1000

	// DefaultOverlap is the default context overlap between consecutive
	// prose chunks.
	DefaultOverlap = 100

	// largeStructuredThreshold is the payload size above which structured
	// content trades overlap for fewer, larger chunks.
	largeStructuredThreshold = 100 * 1024

	// Boundary acceptance fractions: a break point is only taken when it
	// falls past this share of the window, so chunks never degenerate.
	paragraphFraction = 0.3
	sentenceFraction  = 0.5
	lineFraction      = 0.3
	wordFraction      = 0.3
)

// Option configures Split using the functional options pattern.
type Option func(*options)

type options struct {
	maxSize      int
	overlap      int
	contextCarry bool
}

// WithMaxSize sets the maximum chunk size in bytes. Values below 1 fall back
// to the default.
func WithMaxSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxSize = n
		}
	}
}

// WithOverlap sets how many bytes of context consecutive prose chunks share.
// Values equal to or above maxSize are clamped during Split.
func WithOverlap(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.overlap = n
		}
	}
}

// WithContextCarry prepends a trailing slice of the previous chunk (bounded
// by the overlap) to every chunk after the first, for extra cross-chunk
// continuity on top of the window overlap.
func WithContextCarry() Option {
	return func(o *options) {
		o.contextCarry = true
	}
}

func buildOptions(opts []Option) options {
	o := options{maxSize: DefaultMaxSize, overlap: DefaultOverlap}
	for _, opt := range opts {
		opt(&o)
	}
	if o.overlap >= o.maxSize {
		o.overlap = o.maxSize / 4
	}
	return o
}

// Split divides text into chunks of at most the configured size.
//
// Texts that fit in one chunk are returned as a single-element slice.
// Structured content (JSON arrays, CSV-shaped tables) is split at record
// boundaries; everything else goes through the sliding-window prose path.
func Split(text string, opts ...Option) []string {
	o := buildOptions(opts)

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	if len(trimmed) <= o.maxSize {
		return []string{trimmed}
	}

	var chunks []string
	switch classify(trimmed) {
	case contentJSONArray, contentCSV:
		// Large structured payloads would otherwise explode into a flood
		// of near-identical chunks; widen the window and shrink overlap.
		if len(trimmed) > largeStructuredThreshold {
			o.maxSize *= 2
			o.overlap /= 2
		}
		if classify(trimmed) == contentJSONArray {
			chunks = splitJSONArray(trimmed, o.maxSize)
		} else {
			chunks = splitCSV(trimmed, o.maxSize)
		}
	default:
		chunks = splitProse(trimmed, o.maxSize, o.overlap)
	}

	if o.contextCarry && o.overlap > 0 {
		chunks = carryContext(chunks, o.overlap)
	}
	return chunks
}

type contentClass int

const (
	contentProse contentClass = iota
	contentCSV
	contentJSONArray
)

// classify decides between the prose and structured splitting strategies.
// JSON is recognized by its leading bracket, CSV by a consistent per-line
// comma count across the first sampled lines.
func classify(text string) contentClass {
	switch text[0] {
	case '[':
		var raw []json.RawMessage
		if json.Unmarshal([]byte(text), &raw) == nil && len(raw) > 0 {
			return contentJSONArray
		}
		return contentProse
	case '{':
		// A single JSON object has no record boundary to split at; the
		// prose path handles it.
		return contentProse
	}
	if looksLikeCSV(text) {
		return contentCSV
	}
	return contentProse
}

// looksLikeCSV reports whether at least 80% of the first sampled lines share
// the same comma count of one or more.
func looksLikeCSV(text string) bool {
	lines := strings.Split(text, "\n")
	if len(lines) < 3 {
		return false
	}

	const sampleSize = 10
	counts := make(map[int]int)
	sampled := 0
	for _, line := range lines {
		if sampled == sampleSize {
			break
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		counts[strings.Count(line, ",")]++
		sampled++
	}
	if sampled < 3 {
		return false
	}

	for commas, n := range counts {
		if commas >= 1 && float64(n) >= 0.8*float64(sampled) {
			return true
		}
	}
	return false
}

// window is one prose chunk's byte range within the original text. The core
// of window i is [previous end, end); cores tile the text exactly, which is
// what makes chunking reversible.
type window struct {
	start, end int
}

// splitProse advances a sliding window over the text, preferring to break at
// a paragraph, then a sentence end, then a line break, then a word break.
// Each break point is only accepted past a minimum fraction of the window.
func splitProse(text string, maxSize, overlap int) []string {
	windows := proseWindows(text, maxSize, overlap)
	chunks := make([]string, 0, len(windows))
	for _, w := range windows {
		if c := strings.TrimSpace(text[w.start:w.end]); c != "" {
			chunks = append(chunks, c)
		}
	}
	return chunks
}

func proseWindows(text string, maxSize, overlap int) []window {
	var windows []window
	start := 0
	for start < len(text) {
		end := start + maxSize
		if end >= len(text) {
			windows = append(windows, window{start, len(text)})
			break
		}
		end = alignRune(text, end)

		if cut := breakPoint(text, start, end, maxSize); cut > start {
			end = cut
		}
		windows = append(windows, window{start, end})

		// Step back by the overlap for shared context, but always past the
		// previous start so the loop terminates.
		next := alignRune(text, end-overlap)
		if next <= start {
			next = end
		}
		start = next
	}
	return windows
}

// breakPoint picks the best boundary inside (start, end], or 0 when no
// acceptable boundary exists and the hard cut stands.
func breakPoint(text string, start, end, maxSize int) int {
	windowStart := func(frac float64) int {
		return start + int(float64(maxSize)*frac)
	}

	if p := strings.LastIndex(text[start:end], "\n\n"); p >= 0 && start+p > windowStart(paragraphFraction) {
		return start + p + 2 // keep the blank line with the chunk
	}
	if p := strings.LastIndexByte(text[start:end], '.'); p >= 0 && start+p > windowStart(sentenceFraction) {
		return start + p + 1
	}
	if p := strings.LastIndexByte(text[start:end], '\n'); p >= 0 && start+p > windowStart(lineFraction) {
		return start + p + 1
	}
	if p := strings.LastIndexByte(text[start:end], ' '); p >= 0 && start+p > windowStart(wordFraction) {
		return start + p
	}
	return 0
}

// splitCSV packs whole lines into chunks, never splitting a row. Every chunk
// after the first re-prepends the header line so each chunk remains a valid
// mini-table on its own.
func splitCSV(text string, maxSize int) []string {
	lines := strings.Split(text, "\n")
	header := lines[0]

	var chunks []string
	var b strings.Builder
	flush := func() {
		if b.Len() > 0 {
			chunks = append(chunks, strings.TrimRight(b.String(), "\n"))
			b.Reset()
		}
	}

	for i, line := range lines {
		if i > 0 && strings.TrimSpace(line) == "" {
			continue
		}
		// +1 for the joining newline
		if b.Len() > 0 && b.Len()+len(line)+1 > maxSize {
			flush()
		}
		if b.Len() == 0 && len(chunks) > 0 {
			b.WriteString(header)
			b.WriteByte('\n')
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	flush()
	return chunks
}

// splitJSONArray greedily packs whole serialized array elements; a single
// element is never split, even when it exceeds maxSize on its own. Each chunk
// is itself a valid JSON array.
func splitJSONArray(text string, maxSize int) []string {
	var elements []json.RawMessage
	if err := json.Unmarshal([]byte(text), &elements); err != nil {
		return splitProse(text, maxSize, 0)
	}

	var chunks []string
	var current []json.RawMessage
	size := 2 // brackets
	flush := func() {
		if len(current) == 0 {
			return
		}
		parts := make([]string, len(current))
		for i, el := range current {
			parts[i] = string(el)
		}
		chunks = append(chunks, "["+strings.Join(parts, ",")+"]")
		current = current[:0]
		size = 2
	}

	for _, el := range elements {
		cost := len(el) + 1
		if len(current) > 0 && size+cost > maxSize {
			flush()
		}
		current = append(current, el)
		size += cost
	}
	flush()
	return chunks
}

// carryContext prepends the tail of each previous chunk, bounded by overlap.
func carryContext(chunks []string, overlap int) []string {
	if len(chunks) < 2 {
		return chunks
	}
	out := make([]string, len(chunks))
	out[0] = chunks[0]
	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1]
		from := len(prev) - overlap
		if from < 0 {
			from = 0
		}
		from = forwardRune(prev, from)
		out[i] = strings.TrimSpace(prev[from:]) + "\n" + chunks[i]
	}
	return out
}

// alignRune backs i up to the nearest rune start so a window never splits a
// multi-byte character.
func alignRune(s string, i int) int {
	for i > 0 && i < len(s) && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}

// forwardRune advances i to the nearest rune start.
func forwardRune(s string, i int) int {
	for i < len(s) && !utf8.RuneStart(s[i]) {
		i++
	}
	return i
}
