package tokenizer

import (
	"strings"
)

// CountTokens provides a rough token count estimate.
func CountTokens(text string) int {
	// Rough estimate: ~3 words per 4 tokens for English
	words := strings.Fields(text)
	if len(words) == 0 {
		return 0
	}
	return max(len(words)*4/3, 1)
}

// Truncate cuts text on a word boundary so its estimate stays within maxTokens.
// Truncated text ends with "...".
func Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	if CountTokens(text) <= maxTokens {
		return text
	}
	words := strings.Fields(text)
	keep := max(maxTokens*3/4, 1)
	if keep > len(words) {
		keep = len(words)
	}
	return strings.Join(words[:keep], " ") + "..."
}
