package triage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractTasks(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		expected []string
	}{
		{
			name:     "two requests in order",
			email:    "Please send the report by tomorrow. Also please call John.",
			expected: []string{"Send the report by tomorrow", "Call John"},
		},
		{
			name:     "capitalized word after please is ignored",
			email:    "Please Review the doc.",
			expected: nil,
		},
		{
			name:     "runs to end of text",
			email:    "PLEASE fix the login page",
			expected: []string{"Fix the login page"},
		},
		{
			name:     "spans line breaks",
			email:    "please   update\nthe wiki! Ok?",
			expected: []string{"Update\nthe wiki"},
		},
		{
			name:     "duplicates kept",
			email:    "please check this. please check this.",
			expected: []string{"Check this", "Check this"},
		},
		{
			name:     "question terminator",
			email:    "Could you please send the file by 5pm?",
			expected: []string{"Send the file by 5pm"},
		},
		{
			name:     "trailing whitespace trimmed",
			email:    "please ship it   \n\n",
			expected: []string{"Ship it"},
		},
		{
			name:     "casing after first letter untouched",
			email:    "please ping the SRE team about DNS.",
			expected: []string{"Ping the SRE team about DNS"},
		},
		{
			name:     "non-breaking space after please",
			email:    "please\u00a0send the doc.",
			expected: []string{"Send the doc"},
		},
		{
			name:     "narrow no-break space after please",
			email:    "Kindly, please\u202fcall me back!",
			expected: []string{"Call me back"},
		},
		{
			name:     "no requests",
			email:    "The build passed.",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractTasks(tt.email))
		})
	}
}
