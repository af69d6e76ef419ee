package analyzer

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	baseConfidence = 60
	maxConfidence  = 95
)

// ConfidenceScore rates how strongly a keyword occurrence signals its category.
// text must already be lowercased. The result is always within [60, 95]:
// base 60, +20 for keywords longer than 8 chars (else +10 above 5),
// +10 when the first occurrence starts in the first 30% of the text,
// +15 when the occurrence is bounded by whitespace or the text edges.
func ConfidenceScore(text, keyword string) int {
	confidence := baseConfidence

	switch {
	case len(keyword) > 8:
		confidence += 20
	case len(keyword) > 5:
		confidence += 10
	}

	idx := strings.Index(text, keyword)
	if idx < 0 {
		return min(confidence, maxConfidence)
	}

	if float64(idx) < float64(len(text))*0.3 {
		confidence += 10
	}

	if spaceBefore(text, idx) && spaceAfter(text, idx+len(keyword)) {
		confidence += 15
	}

	return min(confidence, maxConfidence)
}

// spaceBefore treats the start of text as whitespace
func spaceBefore(text string, idx int) bool {
	if idx <= 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:idx])
	return unicode.IsSpace(r)
}

// spaceAfter treats the end of text as whitespace
func spaceAfter(text string, end int) bool {
	if end >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[end:])
	return unicode.IsSpace(r)
}

// firstMatch returns the first keyword in declaration order that occurs in text
func firstMatch(text string, keywords []string) (string, bool) {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return kw, true
		}
	}
	return "", false
}
