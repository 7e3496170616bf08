package triage

import (
	"strings"
	"unicode/utf8"
)

const (
	// MaxSummaryLen is the summary cap in characters, ellipsis included
	MaxSummaryLen = 140

	ellipsis = "..."
)

// Summarize picks one sentence to stand for the whole email: the first
// sentence mentioning an importance keyword, or else the first sentence.
// Greetings and sign-offs never take part. The sentence keeps its case and
// ends with a period. Returns "" when nothing is left.
func Summarize(email string) string {
	lines := CleanLines(email)
	if len(lines) == 0 {
		return ""
	}

	sentences := SplitSentences(strings.Join(lines, " "))
	if len(sentences) == 0 {
		return ""
	}

	chosen := sentences[0]
	for _, s := range sentences {
		if hasImportanceKeyword(s) {
			chosen = s
			break
		}
	}

	// Only a trailing period is checked, "!" and "?" get a period too.
	// The splitter removes terminators, so in practice this always appends.
	chosen = strings.TrimSpace(chosen)
	if !strings.HasSuffix(chosen, ".") {
		chosen += "."
	}

	return truncateSummary(chosen)
}

func hasImportanceKeyword(sentence string) bool {
	lower := strings.ToLower(sentence)
	for _, kw := range ImportanceKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// truncateSummary cuts s to MaxSummaryLen characters on a word boundary and
// marks the cut with an ellipsis. A single word longer than the cap is
// hard-truncated.
func truncateSummary(s string) string {
	runes := []rune(s)
	if len(runes) <= MaxSummaryLen {
		return s
	}

	cut := string(runes[:MaxSummaryLen])
	for {
		i := strings.LastIndex(cut, " ")
		if i < 0 {
			return string(runes[:MaxSummaryLen-len(ellipsis)]) + ellipsis
		}
		cut = cut[:i]
		if utf8.RuneCountInString(cut)+len(ellipsis) <= MaxSummaryLen {
			return cut + ellipsis
		}
	}
}
