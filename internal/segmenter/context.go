package segmenter

import "strings"

// DefaultContextWords is the default number of words extracted by
// ExtractContext for use as a sliding-window context.
const DefaultContextWords = 25

// ExtractContext returns the last wordCount words of text, joined by a single
// space. It is intended for use as a sliding-window context snippet passed to
// LLM translators so they can keep terminology consistent across segments.
// If text has fewer words than wordCount, the entire text is returned.
// If wordCount ≤ 0, DefaultContextWords is used.
func ExtractContext(text string, wordCount int) string {
	if wordCount <= 0 {
		wordCount = DefaultContextWords
	}
	words := strings.Fields(text)
	if len(words) <= wordCount {
		return strings.TrimSpace(text)
	}
	return strings.Join(words[len(words)-wordCount:], " ")
}
