package triage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractCalendar(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		expected []CalendarEvent
	}{
		{
			name:     "day time and room",
			email:    "Meeting on Friday at 3pm in Room 12.",
			expected: []CalendarEvent{{Day: "Friday", Time: "3pm", Location: "room 12"}},
		},
		{
			name:     "location only",
			email:    "Lunch at the Cafe near the station",
			expected: []CalendarEvent{{Location: "cafe"}},
		},
		{
			name:     "time with minutes and space",
			email:    "See you at 10:30 AM sharp",
			expected: []CalendarEvent{{Time: "10:30 am"}},
		},
		{
			name:     "first day wins",
			email:    "Either Sunday or Monday works",
			expected: []CalendarEvent{{Day: "Sunday"}},
		},
		{
			name:     "day matched inside a longer word",
			email:    "We ship on Mondays",
			expected: []CalendarEvent{{Day: "Monday"}},
		},
		{
			name:     "room without space",
			email:    "classes move to ROOM12",
			expected: []CalendarEvent{{Location: "room12"}},
		},
		{
			name:     "room and time with non-breaking spaces",
			email:    "Standup in Room\u00a012 at 9\u00a0AM",
			expected: []CalendarEvent{{Time: "9\u00a0am", Location: "room\u00a012"}},
		},
		{
			name:     "location needs a whole word",
			email:    "the laboratory results are in",
			expected: nil,
		},
		{
			name:     "no signals",
			email:    "The invoice is attached.",
			expected: nil,
		},
		{
			name:     "empty input",
			email:    "",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractCalendar(tt.email))
		})
	}
}

func TestExtractCalendarReturnsAtMostOneEvent(t *testing.T) {
	email := "Monday 9am in the lab, Tuesday 2pm at the office, Friday 4:15pm in room 3"

	events := ExtractCalendar(email)

	assert.Len(t, events, 1)
	assert.Equal(t, CalendarEvent{Day: "Monday", Time: "9am", Location: "lab"}, events[0])
}

func TestCapitalize(t *testing.T) {
	assert.Equal(t, "", capitalize(""))
	assert.Equal(t, "Friday", capitalize("friday"))
	assert.Equal(t, "Über", capitalize("über"))
	assert.Equal(t, "Send it", capitalize("send it"))
	assert.Equal(t, "ABC", capitalize("ABC"))
}
