package triage

import (
	"regexp"
	"strings"
)

// space matches what counts as whitespace in mail text: ASCII spaces, the
// C0 separators, NEL and every Unicode separator (NBSP included)
const space = `[\s\x{1c}-\x{1f}\x{85}\p{Z}]`

// Keyword tables. The matching regular expressions below are compiled from
// these, so extending a table extends the matcher.
var (
	// Greetings open a line that is dropped before summarizing
	Greetings = []string{"hi", "hello", "hey", "dear"}

	// SignOffs open a line that is dropped before summarizing
	SignOffs = []string{"thanks", "regards", "best", "cheers", "sincerely"}

	// ImportanceKeywords mark a sentence as a better summary candidate
	ImportanceKeywords = []string{
		"meeting", "deadline", "review", "update", "completed",
		"finished", "urgent", "call", "exam", "project",
	}

	// Weekdays are matched as plain substrings, "mondays" counts as monday
	Weekdays = []string{
		"monday", "tuesday", "wednesday", "thursday",
		"friday", "saturday", "sunday",
	}

	// LocationKeywords are regexp fragments, matched as whole words
	LocationKeywords = []string{"room" + space + `*\d+`, "cafe", "office", "podar", "classroom", "lab"}

	// TaskTriggers are request phrases that route an email to tasks
	TaskTriggers = []string{"please", "can you", "could you", "kindly"}
)

var (
	greetingRE = regexp.MustCompile(`(?i)^` + space + `*(` + alternation(Greetings) + `)\b`)
	signOffRE  = regexp.MustCompile(`(?i)^` + space + `*(` + alternation(SignOffs) + `)\b`)

	// line boundaries: CRLF, CR, LF, VT, FF, the file/group/record separators,
	// NEL and the Unicode line and paragraph separators
	lineBreakRE        = regexp.MustCompile(`\r\n|[\n\v\f\r\x{1c}-\x{1e}\x{85}\x{2028}\x{2029}]`)
	sentenceBoundaryRE = regexp.MustCompile(`[.!?]+`)

	dayRE      = regexp.MustCompile(`(?i)(` + alternation(Weekdays) + `)`)
	timeRE     = regexp.MustCompile(`(?i)\b\d{1,2}(:\d{2})?` + space + `?(am|pm)\b`)
	locationRE = regexp.MustCompile(`(?i)\b(` + strings.Join(LocationKeywords, "|") + `)\b`)
	meetingRE  = regexp.MustCompile(`\bmeeting\b`)

	// the request after "please" must start lower-case; "Please Review" is not a task
	taskRE = regexp.MustCompile(`(?s)(?i:please)` + space + `+([a-z].*?)(?:[.!?]|$)`)

	taskTriggerREs = compileWholeWords(TaskTriggers)
)

// alternation joins literal words into a regexp alternation
func alternation(words []string) string {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return strings.Join(quoted, "|")
}

func compileWholeWords(phrases []string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(phrases))
	for i, p := range phrases {
		res[i] = regexp.MustCompile(`\b` + regexp.QuoteMeta(p) + `\b`)
	}
	return res
}
