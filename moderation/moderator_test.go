package moderation

import (
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

const replacementChar = '*'

// The dictionary avoids short words that would collide inside longer ones
func TestModerator_Censor(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	dictionary := []string{"scammer", "creep", "weirdo"}
	mod, err := NewModerator(dictionary, replacementChar, log)
	req.NoError(err)

	tests := []struct {
		name     string
		input    string
		expected string
		words    []string
	}{
		{
			name:     "Simple word and space preservation",
			input:    "you are a creep honestly",
			expected: "you are a ***** honestly",
			words:    []string{"creep"},
		},
		{
			name:     "Multiple occurrences and preserved spacing",
			input:    "creep creep creep",
			expected: "***** ***** *****",
			words:    []string{"creep", "creep", "creep"},
		},
		{
			name:     "Leet speak and internal punctuation",
			input:    "what a w.3.1.r.d.0 !",
			expected: "what a *********** !",
			words:    []string{"weirdo"},
		},
		{
			name:     "Uppercase and extreme noise",
			input:    "C-R-E-E-P met a S.C.A.M.M.E.R",
			expected: "********* met a *************",
			words:    []string{"creep", "scammer"},
		},
		{
			name:     "Accents and special characters (UTF-8)",
			input:    "Un été avec un creep",
			expected: "Un été avec un *****",
			words:    []string{"creep"},
		},
		{
			name:     "Word adjacent to trailing punctuation",
			input:    "Such a creep!",
			expected: "Such a *****!",
			words:    []string{"creep"},
		},
		{
			name:     "Nothing to censor",
			input:    "Anonymous chat is fun",
			expected: "Anonymous chat is fun",
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
			content, words := mod.Censor(tt.input)
			req.Equal(tt.expected, content, "test=%s,", tt.name)
			req.Equal(tt.words, words, "expected=%s,words=%s", tt.expected, words)
			req.Equal(len(tt.words) > 0, mod.Contains(tt.input))
		})
	}
}

func TestModerator_CornerCases(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	// Given real noise mixed with a real word
	dictionary := []string{"...", ",,,", "", "creep"}

	mod, err := NewModerator(dictionary, replacementChar, log)
	req.NoError(err)

	// Then the sentence is censored
	content, words := mod.Censor("The creep is gone")
	req.Equal("The ***** is gone", content)
	req.Equal([]string{"creep"}, words)

	// Then real noise is uncensored
	content, words = mod.Censor("Hello ...")
	req.Equal("Hello ...", content)
	req.Nil(words)
}

func TestModerator_EmptyDictionary(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	mod, err := NewModerator([]string{"", "???"}, replacementChar, log)
	req.NoError(err)

	content, words := mod.Censor("anything goes")
	req.Equal("anything goes", content)
	req.Nil(words)
	req.False(mod.Contains("anything goes"))
}

func TestModerator_WordBoundaries(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)

	// Given words that hide across token boundaries of innocent text
	mod, err := NewModerator([]string{"pervert", "creep", "hell"}, replacementChar, log)
	req.NoError(err)

	tests := []struct {
		name     string
		input    string
		expected string
		words    []string
	}{
		{
			name:     "Word spread over two tokens",
			input:    "I prefer super vertical layouts",
			expected: "I prefer super vertical layouts",
		},
		{
			name:     "Suffix and prefix of adjacent tokens",
			input:    "the llama",
			expected: "the llama",
		},
		{
			name:     "Word split by spaces",
			input:    "ice cr eep",
			expected: "ice cr eep",
		},
		{
			name:     "Tabs and newlines also separate",
			input:    "super\n\tvertical",
			expected: "super\n\tvertical",
		},
		{
			name:     "Leet speak inside one token",
			input:    "a p3rv3rt",
			expected: "a *******",
			words:    []string{"pervert"},
		},
		{
			name:     "Punctuation inside one token",
			input:    "p.e.r.v.e.r.t here",
			expected: "************* here",
			words:    []string{"pervert"},
		},
		{
			name:     "Prefix of a longer token",
			input:    "hello there",
			expected: "****o there",
			words:    []string{"hell"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// When the text is censored
			content, words := mod.Censor(tt.input)

			// Then only matches inside a single token count
			req.Equal(tt.expected, content)
			req.Equal(tt.words, words)
			req.Equal(len(tt.words) > 0, mod.Contains(tt.input))
		})
	}
}
