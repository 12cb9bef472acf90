package moderation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const replacementChar = '*'

func TestModerator_Censor(t *testing.T) {
	req := require.New(t)
	dictionary := []string{"scammer", "deadbeat"}
	mod, err := NewModerator(dictionary, replacementChar)
	req.NoError(err)

	tests := []struct {
		name     string
		input    string
		expected string
		words    []string
	}{
		{
			name:     "Simple word and space preservation",
			input:    "That landlord is a scammer honestly",
			expected: "That landlord is a ******* honestly",
			words:    []string{"scammer"},
		},
		{
			name:     "Leet speak and internal punctuation",
			input:    "what a s.c.4.m.m.e.r",
			expected: "what a *************",
			words:    []string{"scammer"},
		},
		{
			name:     "Uppercase noise",
			input:    "D-E-A-D-B-E-A-T tenant",
			expected: "*************** tenant",
			words:    []string{"deadbeat"},
		},
		{
			name:     "Nothing to censor",
			input:    "Is the flat still available?",
			expected: "Is the flat still available?",
			words:    nil,
		},
		{
			name:     "Empty string",
			input:    "",
			expected: "",
			words:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			sanitized, found := mod.Censor(tt.input)
			req.Equal(tt.expected, sanitized)
			req.Equal(tt.words, found)
		})
	}
}
