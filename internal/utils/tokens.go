package utils

import "unicode"

// Token estimates use the 1 token ~= 4 characters heuristic, rounded up so a
// budget is never underestimated. They size prompts, they do not bill them.
const charsPerToken = 4

// Ellipsis marks text cut by TruncateToTokenLimit.
const Ellipsis = "…"

// CountTokens estimates the number of tokens in text.
func CountTokens(text string) int {
	n := len([]rune(text))
	return (n + charsPerToken - 1) / charsPerToken
}

// TruncateToTokenLimit shortens text to at most limit estimated tokens. A cut
// backs up to the previous whitespace when one is close and ends with Ellipsis.
func TruncateToTokenLimit(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(text)
	keep := limit * charsPerToken
	if len(runes) <= keep {
		return text
	}
	cut := keep - 1 // room for the ellipsis
	for i := cut; i > cut/2; i-- {
		if unicode.IsSpace(runes[i]) {
			cut = i
			break
		}
	}
	for cut > 0 && unicode.IsSpace(runes[cut-1]) {
		cut--
	}
	return string(runes[:cut]) + Ellipsis
}
