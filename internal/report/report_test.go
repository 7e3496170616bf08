package report

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/inbox-triage/triage/internal/triage"
)

var fullResult = triage.Result{
	Summary:        "The project review is on Friday.",
	CalendarEvents: []triage.CalendarEvent{{Day: "Friday", Time: "3pm", Location: "room 12"}},
	Tasks:          []string{"Bring laptops", "Update the tracker"},
	Route:          triage.RouteCalendar,
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in       string
		expected Format
		wantErr  bool
	}{
		{in: "text", expected: FormatText},
		{in: "JSON", expected: FormatJSON},
		{in: " yaml ", expected: FormatYAML},
		{in: "yml", expected: FormatYAML},
		{in: "xml", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Text(&buf, fullResult))

	out := buf.String()
	assert.Contains(t, out, "Route\ncalendar\n")
	assert.Contains(t, out, "Summary\nThe project review is on Friday.\n")
	assert.Contains(t, out, `"day": "Friday"`)
	assert.Contains(t, out, `"location": "room 12"`)
	assert.Contains(t, out, "• Bring laptops\n• Update the tracker\n")
	assert.NotContains(t, out, NoTasks)
}

func TestTextEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Text(&buf, triage.Analyze("")))

	out := buf.String()
	assert.Contains(t, out, "Route\nsummary\n")
	assert.Contains(t, out, NoSummary)
	assert.Contains(t, out, NoEvents)
	assert.Contains(t, out, NoTasks)
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, fullResult))

	var decoded triage.Result
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, fullResult, decoded)
}

func TestJSONEmptyListsAreNull(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, JSON(&buf, triage.Result{Route: triage.RouteSummary}))

	var raw map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &raw))
	assert.Contains(t, raw, "calendar_events")
	assert.Nil(t, raw["calendar_events"])
	assert.Nil(t, raw["tasks"])
	assert.Equal(t, "summary", raw["route"])
}

func TestYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, YAML(&buf, fullResult))

	assert.Contains(t, buf.String(), "route: calendar")

	var decoded triage.Result
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, fullResult, decoded)
}

func TestWriteUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Write(&buf, Format("xml"), fullResult))
	assert.Empty(t, buf.String())
}

func TestWriteDispatches(t *testing.T) {
	for _, f := range []Format{FormatText, FormatJSON, FormatYAML} {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, f, fullResult), "format %s", f)
		assert.Contains(t, buf.String(), "calendar")
	}
}
