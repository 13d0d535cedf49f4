package analyze

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		question  string
		want      Mode
		wantScore int
	}{
		{"duplicates is two hits", "Find duplicates in my sales data", ModeSQL, 2},
		{"plain question", "What is this document about?", ModeRAG, 0},
		{"how many plus unique", "How many rows are unique?", ModeSQL, 2},
		{"single keyword", "Show me the trend in revenue", ModeHybrid, 1},
		{"count and sum", "Count the entries and sum the totals", ModeSQL, 3},
		{"empty question", "", ModeRAG, 0},
		{"substring match", "I was counting on this", ModeHybrid, 1},
		{"case insensitive", "AVERAGE and MAX values please", ModeSQL, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode, score := Classify(tt.question)
			assert.Equal(t, tt.want, mode)
			assert.Equal(t, tt.wantScore, score)
		})
	}
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "rag", ModeRAG.String())
	assert.Equal(t, "sql", ModeSQL.String())
	assert.Equal(t, "hybrid", ModeHybrid.String())
}
