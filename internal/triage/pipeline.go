// Package triage extracts a summary, calendar details and action items from
// plain email text and routes the email to one dominant category.
//
// Everything here is rule based: fixed keyword tables compiled into regular
// expressions. Functions are pure and safe for concurrent use.
package triage

import (
	"time"

	"github.com/rs/zerolog"
)

// Result is the outcome of analyzing one email. CalendarEvents and Tasks are
// nil when nothing was found.
type Result struct {
	Summary        string          `json:"summary" yaml:"summary"`
	CalendarEvents []CalendarEvent `json:"calendar_events" yaml:"calendar_events"`
	Tasks          []string        `json:"tasks" yaml:"tasks"`
	Route          Route           `json:"route" yaml:"route"`
}

// HasCalendarEvents reports whether any event was extracted
func (r Result) HasCalendarEvents() bool { return len(r.CalendarEvents) > 0 }

// HasTasks reports whether any task was extracted
func (r Result) HasTasks() bool { return len(r.Tasks) > 0 }

// Analyze runs the summary, calendar and task extractors and the router over
// the same input. The four analyses are independent of each other.
func Analyze(email string) Result {
	return Result{
		Summary:        Summarize(email),
		CalendarEvents: ExtractCalendar(email),
		Tasks:          ExtractTasks(email),
		Route:          DecideRoute(email),
	}
}

// Analyzer wraps Analyze with debug logging for the CLI, web and inbox
// front ends. It holds no state between calls.
type Analyzer struct {
	log zerolog.Logger
}

// NewAnalyzer creates an analyzer that logs through log. Callers tag log
// with the "triage" component.
func NewAnalyzer(log zerolog.Logger) *Analyzer {
	return &Analyzer{log: log}
}

// Analyze analyzes email and logs what was found. source names where the
// text came from ("stdin", a file name, an IMAP message id).
func (a *Analyzer) Analyze(source, email string) Result {
	start := time.Now()
	res := Analyze(email)

	a.log.Debug().
		Str("source", source).
		Int("chars", len(email)).
		Str("route", string(res.Route)).
		Bool("summary", res.Summary != "").
		Int("events", len(res.CalendarEvents)).
		Int("tasks", len(res.Tasks)).
		Dur("took", time.Since(start)).
		Msg("email analyzed")

	return res
}
