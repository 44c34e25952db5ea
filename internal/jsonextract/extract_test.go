package jsonextract_test

import (
	"testing"

	"github.com/book-expert/mediagen/internal/jsonextract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	t.Parallel()

	want := map[string]any{"a": float64(1)}

	testCases := []struct {
		name  string
		input string
	}{
		{name: "plain object", input: `{"a": 1}`},
		{name: "surrounding whitespace", input: "\n  {\"a\": 1}  \n"},
		{name: "json fence", input: "```json\n{\"a\": 1}\n```"},
		{name: "upper case json fence", input: "```JSON\n{\"a\": 1}\n```"},
		{name: "untagged fence", input: "```\n{\"a\": 1}\n```"},
		{name: "fence with prose", input: "Here is the listing:\n```json\n{\"a\": 1}\n```\nEnjoy!"},
		{name: "bare object in prose", input: `The answer is {"a": 1} as requested.`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, ok := jsonextract.Extract(tc.input)
			require.True(t, ok)
			assert.Equal(t, want, got)
		})
	}
}

func TestExtract_Failures(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		input string
	}{
		{name: "empty", input: ""},
		{name: "no braces", input: "I could not produce a listing for this product."},
		{name: "malformed inside fence", input: "```json\n{\"a\": 1,,}\n```"},
		{name: "array is not an object", input: "[1, 2, 3]"},
		{name: "null", input: "null"},
		{name: "unbalanced braces", input: "{ not json }"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, ok := jsonextract.Extract(tc.input)
			assert.False(t, ok)
			assert.Nil(t, got)
		})
	}
}

func TestExtract_MultipleObjectsIsHeuristic(t *testing.T) {
	t.Parallel()

	// The greedy brace span covers both objects and is not valid JSON.
	_, ok := jsonextract.Extract(`first {"a": 1} then {"b": 2}`)
	assert.False(t, ok)
}

func TestExtract_NestedObject(t *testing.T) {
	t.Parallel()

	got, ok := jsonextract.Extract("Result: {\"title\": \"Chair\", \"meta\": {\"x\": 2}} done")
	require.True(t, ok)
	assert.Equal(t, "Chair", got["title"])
	assert.Equal(t, map[string]any{"x": float64(2)}, got["meta"])
}

func TestDecode(t *testing.T) {
	t.Parallel()

	var listing struct {
		Title    string   `json:"title"`
		Features []string `json:"features"`
	}

	ok := jsonextract.Decode("```json\n{\"title\": \"Desk\", \"features\": [\"oak\", \"steel\"]}\n```", &listing)
	require.True(t, ok)
	assert.Equal(t, "Desk", listing.Title)
	assert.Equal(t, []string{"oak", "steel"}, listing.Features)

	assert.False(t, jsonextract.Decode("no json here", &listing))
}

func TestExtractFields(t *testing.T) {
	t.Parallel()

	data := map[string]any{"title": "Lamp", "keywords": "light"}

	got := jsonextract.ExtractFields(data, []string{"title", "description"}, "")
	assert.Equal(t, map[string]any{"title": "Lamp", "description": ""}, got)
}
