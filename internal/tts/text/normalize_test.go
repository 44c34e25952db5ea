package text_test

import (
	"testing"

	"github.com/book-expert/mediagen/internal/tts/text"
	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"smart quotes", "“Hello,” she said. ‘Yes.’", `"Hello," she said. 'Yes.'`},
		{"dashes", "calm—steady – ready", "calm-steady - ready"},
		{"ellipsis character", "and rest…", "and rest..."},
		{"whitespace runs", "  one\t\ttwo\n\nthree  ", "one two three"},
		{"non-breaking space", "a b", "a b"},
		{"empty", "", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, text.Normalize(tc.input))
		})
	}
}

func TestNormalizeLines_KeepsLineBreaks(t *testing.T) {
	t.Parallel()

	got := text.NormalizeLines("first   line\r\nsecond\t—\tline")

	assert.Equal(t, "first line\nsecond - line", got)
}

func TestEnsureSentenceEnding(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		input    string
		expected string
	}{
		{"Hello world", "Hello world."},
		{"Hello world.", "Hello world."},
		{"Really?", "Really?"},
		{"Stop!", "Stop!"},
		{"Trailing comma,", "Trailing comma."},
		{"Wow!,", "Wow!"},
		{"  ", ""},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, text.EnsureSentenceEnding(tc.input))
		})
	}
}
