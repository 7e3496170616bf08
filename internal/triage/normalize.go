package triage

import "strings"

// CleanLines splits raw email text into trimmed, non-empty lines and drops
// greeting and sign-off lines. Only the start of a line is inspected, so
// "Thanks for the notes, see attached" is dropped as a whole.
func CleanLines(email string) []string {
	var lines []string
	for _, line := range lineBreakRE.Split(email, -1) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if greetingRE.MatchString(line) || signOffRE.MatchString(line) {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

// SplitSentences collapses whitespace and splits text on runs of . ! and ?
// There is no abbreviation or quotation handling.
func SplitSentences(text string) []string {
	text = strings.Join(strings.Fields(text), " ")

	var sentences []string
	for _, s := range sentenceBoundaryRE.Split(text, -1) {
		if s = strings.TrimSpace(s); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}
