package watsonx

import "strings"

const (
	answerLabel = "Answer:"
	queryMarker = "Query:"
)

// CleanAnswer trims template echoes some models append to a plain
// completion: a leading "Answer:" label is removed, anything from a
// "Query:" marker on is dropped, and only the first remaining line is kept.
//
//	CleanAnswer("Answer: Paris is the capital.\nQuery: something else")
//	// "Paris is the capital."
func CleanAnswer(text string) string {
	s := strings.TrimSpace(text)

	if rest, ok := strings.CutPrefix(s, answerLabel); ok {
		s = strings.TrimSpace(rest)
	}

	if i := strings.Index(s, queryMarker); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}

	line, _, _ := strings.Cut(s, "\n")
	return strings.TrimSpace(line)
}
