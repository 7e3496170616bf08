package triage

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// CalendarEvent holds the first day, time and location found in an email.
// Any field may be empty, but never all three.
type CalendarEvent struct {
	Day      string `json:"day" yaml:"day"`
	Time     string `json:"time" yaml:"time"`
	Location string `json:"location" yaml:"location"`
}

// ExtractCalendar scans the email for a weekday, a clock time and a
// location. Only the first match of each is used, so at most one event is
// returned. Returns nil when none of the three is present.
//
// Day is capitalized ("Friday"); time and location keep the lower-cased
// text as found ("3pm", "room 12").
func ExtractCalendar(email string) []CalendarEvent {
	lower := strings.ToLower(email)

	day := dayRE.FindString(lower)
	clock := timeRE.FindString(lower)
	location := locationRE.FindString(lower)

	if day == "" && clock == "" && location == "" {
		return nil
	}

	return []CalendarEvent{{
		Day:      capitalize(day),
		Time:     clock,
		Location: location,
	}}
}

// capitalize upper-cases the first character and leaves the rest as is
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
