package analyze

import "strings"

// Mode is the terminal analysis strategy for a question.
type Mode int

const (
	// ModeRAG answers purely by semantic retrieval.
	ModeRAG Mode = iota
	// ModeSQL answers by structured analysis over ingested tabular data.
	ModeSQL
	// ModeHybrid runs both and merges.
	ModeHybrid
)

func (m Mode) String() string {
	switch m {
	case ModeSQL:
		return "sql"
	case ModeHybrid:
		return "hybrid"
	default:
		return "rag"
	}
}

// quantKeywords maps quantitative-intent keywords to weights. A weight table
// rather than a list keeps thresholds tunable without touching Classify.
var quantKeywords = map[string]int{
	"duplicate":    1,
	"duplicates":   1,
	"count":        1,
	"sum":          1,
	"average":      1,
	"avg":          1,
	"max":          1,
	"min":          1,
	"group by":     1,
	"aggregate":    1,
	"total":        1,
	"how many":     1,
	"statistics":   1,
	"stats":        1,
	"unique":       1,
	"distinct":     1,
	"sort":         1,
	"order":        1,
	"ranking":      1,
	"top":          1,
	"bottom":       1,
	"filter":       1,
	"where":        1,
	"greater than": 1,
	"less than":    1,
	"between":      1,
	"percentage":   1,
	"ratio":        1,
	"compare":      1,
	"comparison":   1,
	"trend":        1,
	"pattern":      1,
}

const (
	sqlThreshold    = 2
	hybridThreshold = 1
)

// Classify scores a question by summed weights of matched keywords and maps
// the score to a mode, returning both. Substring matching is intentional:
// "counting" matches "count". A simple, explainable heuristic, not a learned
// classifier.
func Classify(question string) (Mode, int) {
	lower := strings.ToLower(question)

	score := 0
	for keyword, weight := range quantKeywords {
		if strings.Contains(lower, keyword) {
			score += weight
		}
	}

	switch {
	case score >= sqlThreshold:
		return ModeSQL, score
	case score >= hybridThreshold:
		return ModeHybrid, score
	default:
		return ModeRAG, score
	}
}
