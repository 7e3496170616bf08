package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/inbox-triage/triage/internal/inbox"
	"github.com/inbox-triage/triage/internal/report"
	"github.com/inbox-triage/triage/internal/triage"
)

// input is the email text to analyze and where it came from
type input struct {
	Source string
	Text   string
}

// readInput reads path, or stdin when path is empty or "-". Messages
// (eml, or a .eml file) are parsed and their text body is returned.
func readInput(path string, stdin io.Reader, eml bool) (input, error) {
	var (
		r      io.Reader = stdin
		source           = "stdin"
	)

	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return input{}, fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer f.Close()

		r = f
		source = path
		if strings.EqualFold(filepath.Ext(path), ".eml") {
			eml = true
		}
	}

	if !eml {
		data, err := io.ReadAll(r)
		if err != nil {
			return input{}, fmt.Errorf("failed to read %s: %w", source, err)
		}
		return input{Source: source, Text: string(data)}, nil
	}

	email, err := inbox.ParseMessage(r)
	if err != nil {
		return input{}, fmt.Errorf("failed to parse message %s: %w", source, err)
	}
	if email.MessageID != "" {
		source = email.MessageID
	}
	return input{Source: source, Text: email.Text()}, nil
}

// printAnalyzedEmail writes the short per-message report used by monitor
func printAnalyzedEmail(w io.Writer, email inbox.Email, res triage.Result) {
	subject := email.Subject
	if subject == "" {
		subject = "(no subject)"
	}
	from := email.From
	if email.FromName != "" {
		from = email.FromName
	}

	fmt.Fprintf(w, "[%s] %s\n", res.Route, truncateString(subject, 60))
	fmt.Fprintf(w, "  From: %s\n", from)

	summary := res.Summary
	if summary == "" {
		summary = report.NoSummary
	}
	fmt.Fprintf(w, "  Summary: %s\n", summary)

	for _, ev := range res.CalendarEvents {
		fmt.Fprintf(w, "  Event: %s\n", formatEvent(ev))
	}
	for _, task := range res.Tasks {
		fmt.Fprintf(w, "  • %s\n", task)
	}
	fmt.Fprintln(w)
}

func formatEvent(ev triage.CalendarEvent) string {
	var parts []string
	for _, p := range []string{ev.Day, ev.Time, ev.Location} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// truncateString truncates a string to the specified length in runes
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
