package chunk

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
)

func TestSplitShortTextYieldsSingleChunk(t *testing.T) {
	text := "A short note about walnut trees."
	chunks := Split(text, WithMaxSize(1000), WithOverlap(100))

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != text {
		t.Errorf("chunk mutated: %q", chunks[0])
	}
}

func TestSplitTrimsAndRejectsEmpty(t *testing.T) {
	if got := Split("   \n\t  "); got != nil {
		t.Errorf("whitespace-only input must yield nil, got %v", got)
	}
	if got := Split(""); got != nil {
		t.Errorf("empty input must yield nil, got %v", got)
	}
}

func TestSplitIsDeterministic(t *testing.T) {
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 200)

	a := Split(text, WithMaxSize(500), WithOverlap(50))
	b := Split(text, WithMaxSize(500), WithOverlap(50))

	if len(a) != len(b) {
		t.Fatalf("chunk counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("chunk %d differs between runs", i)
		}
	}
}

func TestSplitNoEmptyChunks(t *testing.T) {
	inputs := []string{
		strings.Repeat("word ", 2000),
		strings.Repeat("Sentence one. Sentence two. Sentence three.\n\n", 100),
		"line\n" + strings.Repeat("another line of text here\n", 300),
	}
	for i, text := range inputs {
		for j, c := range Split(text, WithMaxSize(300), WithOverlap(30)) {
			if strings.TrimSpace(c) == "" {
				t.Errorf("input %d: chunk %d is empty", i, j)
			}
		}
	}
}

// Cores of consecutive prose windows must tile the input exactly, which is
// what keeps chunking reversible.
func TestProseWindowsRoundTrip(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("Some prose with several words per line.\nMore text follows here. ", 150))

	windows := proseWindows(text, 400, 60)
	var rebuilt strings.Builder
	prevEnd := 0
	for i, w := range windows {
		if w.start > prevEnd {
			t.Fatalf("window %d skips bytes [%d,%d)", i, prevEnd, w.start)
		}
		if w.end <= prevEnd && i > 0 {
			t.Fatalf("window %d does not advance (end %d <= prev end %d)", i, w.end, prevEnd)
		}
		rebuilt.WriteString(text[prevEnd:w.end])
		prevEnd = w.end
	}
	if rebuilt.String() != text {
		t.Error("concatenated window cores do not reconstruct the input")
	}
	if prevEnd != len(text) {
		t.Errorf("windows end at %d, want %d", prevEnd, len(text))
	}
}

func TestProseWindowsRespectMaxSize(t *testing.T) {
	text := strings.Repeat("abcdefghij ", 500)
	for i, w := range proseWindows(text, 200, 20) {
		if w.end-w.start > 200 {
			t.Errorf("window %d has size %d > 200", i, w.end-w.start)
		}
	}
}

func TestBreakPointPrefersParagraph(t *testing.T) {
	// Paragraph break falls past 30% of the window; sentence period past 50%.
	text := strings.Repeat("a", 150) + ". " + strings.Repeat("b", 100) + "\n\n" + strings.Repeat("c", 500)

	chunks := splitProse(text, 300, 0)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	if !strings.HasSuffix(chunks[0], strings.Repeat("b", 100)) {
		t.Errorf("first chunk should end at the paragraph break, got suffix %q", chunks[0][len(chunks[0])-20:])
	}
}

func TestSplitCSVHeaderPrefixAndRowIntegrity(t *testing.T) {
	header := "id,name,amount"
	var rows []string
	for i := 0; i < 200; i++ {
		rows = append(rows, fmt.Sprintf("%d,item-%d,%d.50", i, i, i*3))
	}
	text := header + "\n" + strings.Join(rows, "\n")

	chunks := Split(text, WithMaxSize(400), WithOverlap(40))
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	seen := make(map[string]bool)
	for i, c := range chunks {
		lines := strings.Split(c, "\n")
		if lines[0] != header {
			t.Errorf("chunk %d does not start with the header: %q", i, lines[0])
		}
		for _, line := range lines[1:] {
			if line == header {
				continue
			}
			if strings.Count(line, ",") != 2 {
				t.Errorf("chunk %d contains a split row: %q", i, line)
			}
			seen[line] = true
		}
	}
	for _, row := range rows {
		if !seen[row] {
			t.Errorf("row lost during chunking: %q", row)
		}
	}
}

func TestSplitJSONArrayKeepsElementsWhole(t *testing.T) {
	type item struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	var items []item
	for i := 0; i < 150; i++ {
		items = append(items, item{ID: i, Name: fmt.Sprintf("element-number-%d", i)})
	}
	raw, err := json.Marshal(items)
	if err != nil {
		t.Fatal(err)
	}

	chunks := Split(string(raw), WithMaxSize(500), WithOverlap(50))
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	var total int
	for i, c := range chunks {
		var part []item
		if err := json.Unmarshal([]byte(c), &part); err != nil {
			t.Fatalf("chunk %d is not a valid JSON array: %v", i, err)
		}
		for _, it := range part {
			if it.ID != total {
				t.Errorf("element order broken: got id %d at position %d", it.ID, total)
			}
			total++
		}
	}
	if total != len(items) {
		t.Errorf("elements lost: got %d, want %d", total, len(items))
	}
}

func TestSplitJSONOversizeElementGetsOwnChunk(t *testing.T) {
	big := `{"blob":"` + strings.Repeat("x", 900) + `"}`
	text := `[{"a":1},` + big + `,{"b":2}]`

	chunks := Split(text, WithMaxSize(200), WithOverlap(0))
	found := false
	for _, c := range chunks {
		if strings.Contains(c, "blob") {
			found = true
			var arr []json.RawMessage
			if err := json.Unmarshal([]byte(c), &arr); err != nil {
				t.Fatalf("oversize chunk invalid: %v", err)
			}
			if len(arr) != 1 {
				t.Errorf("oversize element should be alone in its chunk, got %d elements", len(arr))
			}
		}
	}
	if !found {
		t.Error("oversize element missing from output")
	}
}

func TestLargeStructuredPayloadWidensWindow(t *testing.T) {
	header := "a,b,c"
	var b strings.Builder
	b.WriteString(header)
	for i := 0; i < 20000; i++ {
		fmt.Fprintf(&b, "\n%d,value-%d,%d", i, i, i*2)
	}
	text := b.String()
	if len(text) <= largeStructuredThreshold {
		t.Fatalf("test input too small: %d bytes", len(text))
	}

	wide := Split(text, WithMaxSize(1000), WithOverlap(100))

	// Manually splitting at the un-widened size must produce more chunks.
	narrow := splitCSV(text, 1000)
	if len(wide) >= len(narrow) {
		t.Errorf("large payload should produce fewer chunks: wide=%d narrow=%d", len(wide), len(narrow))
	}
}

func TestWithContextCarry(t *testing.T) {
	text := strings.Repeat("Sentence about gardens and soil quality here. ", 100)

	plain := Split(text, WithMaxSize(400), WithOverlap(50))
	carried := Split(text, WithMaxSize(400), WithOverlap(50), WithContextCarry())

	if len(plain) != len(carried) {
		t.Fatalf("context carry must not change chunk count: %d vs %d", len(plain), len(carried))
	}
	if carried[0] != plain[0] {
		t.Error("first chunk must not receive carried context")
	}
	for i := 1; i < len(carried); i++ {
		if !strings.HasSuffix(carried[i], plain[i]) {
			t.Errorf("chunk %d lost its own content under context carry", i)
		}
		if len(carried[i]) <= len(plain[i]) {
			t.Errorf("chunk %d did not receive carried context", i)
		}
	}
}

func TestOverlapClampedBelowMaxSize(t *testing.T) {
	text := strings.Repeat("words here ", 500)
	// overlap >= maxSize would stall the window without the clamp
	chunks := Split(text, WithMaxSize(200), WithOverlap(500))
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
}

func TestMultibyteInputNeverSplitsRunes(t *testing.T) {
	text := strings.Repeat("知識の庭で学ぶことは楽しい。", 300)
	for i, c := range Split(text, WithMaxSize(250), WithOverlap(25)) {
		for _, r := range c {
			if r == '�' {
				t.Errorf("chunk %d contains a replacement rune: rune split", i)
			}
		}
	}
}
