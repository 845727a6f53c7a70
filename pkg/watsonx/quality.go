package watsonx

import "strings"

var (
	commonWords = []string{"the", "and", "or", "but", "in", "on", "at", "to", "for", "of", "with", "by"}
	errorWords  = []string{"error", "failed", "invalid", "unknown", "not found"}
)

// AssessQuality scores text between 0 and 1 with a few cheap heuristics:
// length, presence of common English words, absence of error wording,
// sentence structure and word count.
func AssessQuality(text string) float64 {
	const (
		lengthWeight   = 0.3
		commonWeight   = 0.2
		cleanWeight    = 0.2
		sentenceWeight = 0.15
		wordsWeight    = 0.15
	)

	var score float64
	maxScore := lengthWeight + commonWeight + cleanWeight + sentenceWeight + wordsWeight

	if n := len(strings.TrimSpace(text)); n > 8 && n < 200 {
		score += lengthWeight
	}

	lower := strings.ToLower(text)
	if containsAny(lower, commonWords) {
		score += commonWeight
	}
	if !containsAny(lower, errorWords) {
		score += cleanWeight
	}

	for s := range strings.SplitSeq(text, ".") {
		if strings.TrimSpace(s) != "" {
			score += sentenceWeight
			break
		}
	}

	if words := len(strings.Fields(text)); words > 3 && words < 100 {
		score += wordsWeight
	}

	return score / maxScore
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
