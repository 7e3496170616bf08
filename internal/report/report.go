// Package report renders an analysis result for people (text) and for
// other programs (JSON, YAML).
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/inbox-triage/triage/internal/triage"
)

// Format names an output encoding
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Messages shown in place of an empty output
const (
	NoSummary = "No summary generated."
	NoEvents  = "No calendar events found."
	NoTasks   = "No tasks found."
)

// ParseFormat validates a format name
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown output format %q (text, json or yaml)", s)
	}
}

// Write renders res to w in the given format
func Write(w io.Writer, format Format, res triage.Result) error {
	switch format {
	case FormatText:
		return Text(w, res)
	case FormatJSON:
		return JSON(w, res)
	case FormatYAML:
		return YAML(w, res)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

// Text writes the route, the summary, the calendar events and the tasks
// under their own headings. Empty outputs get a "none found" line.
func Text(w io.Writer, res triage.Result) error {
	var b strings.Builder

	b.WriteString("Route\n")
	fmt.Fprintf(&b, "%s\n\n", res.Route)

	b.WriteString("Summary\n")
	if res.Summary != "" {
		fmt.Fprintf(&b, "%s\n\n", res.Summary)
	} else {
		fmt.Fprintf(&b, "%s\n\n", NoSummary)
	}

	b.WriteString("Calendar Events\n")
	if res.HasCalendarEvents() {
		events, err := json.MarshalIndent(res.CalendarEvents, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode calendar events: %w", err)
		}
		fmt.Fprintf(&b, "%s\n\n", events)
	} else {
		fmt.Fprintf(&b, "%s\n\n", NoEvents)
	}

	b.WriteString("Tasks\n")
	if res.HasTasks() {
		for _, task := range res.Tasks {
			fmt.Fprintf(&b, "• %s\n", task)
		}
	} else {
		fmt.Fprintf(&b, "%s\n", NoTasks)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// JSON writes res as indented JSON. Empty event and task lists are null.
func JSON(w io.Writer, res triage.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return nil
}

// YAML writes res as a YAML document
func YAML(w io.Writer, res triage.Result) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	return enc.Close()
}
