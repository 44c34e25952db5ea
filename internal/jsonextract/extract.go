// Package jsonextract recovers a JSON object from free-form model output.
//
// Model responses often wrap the requested JSON in a markdown fence or
// surround it with prose. Extract tries, in order:
//
//  1. the whole text as a JSON object;
//  2. the interior of a fence tagged "json" (case-insensitive);
//  3. the interior of an untagged fence;
//  4. the span from the first "{" to the last "}".
//
// The first candidate that parses as a JSON object wins. The brace step is a
// textual heuristic: text holding several objects is not guaranteed to yield
// any of them. A failed extraction is reported through the boolean result and
// never panics.
package jsonextract

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	jsonFencePattern  = regexp.MustCompile("(?is)```json\\s*(.*?)\\s*```")
	plainFencePattern = regexp.MustCompile("(?s)```\\s*\\n(.*?)\\s*```")
	bracePattern      = regexp.MustCompile(`(?s)\{.*\}`)
)

// Extract returns the first JSON object found in text.
func Extract(text string) (map[string]any, bool) {
	for _, candidate := range candidates(text) {
		obj, ok := parseObject(candidate)
		if ok {
			return obj, true
		}
	}

	return nil, false
}

// Decode extracts the first JSON object from text and unmarshals it into target.
func Decode(text string, target any) bool {
	for _, candidate := range candidates(text) {
		if _, ok := parseObject(candidate); !ok {
			continue
		}

		if json.Unmarshal([]byte(candidate), target) == nil {
			return true
		}
	}

	return false
}

// ExtractFields returns the requested fields from data, using defaultValue for
// any field that is absent.
func ExtractFields(data map[string]any, fields []string, defaultValue any) map[string]any {
	result := make(map[string]any, len(fields))

	for _, field := range fields {
		value, ok := data[field]
		if !ok {
			value = defaultValue
		}

		result[field] = value
	}

	return result
}

// candidates lists the substrings to try, in priority order.
func candidates(text string) []string {
	found := []string{strings.TrimSpace(text)}

	if match := jsonFencePattern.FindStringSubmatch(text); match != nil {
		found = append(found, match[1])
	}

	if match := plainFencePattern.FindStringSubmatch(text); match != nil {
		found = append(found, match[1])
	}

	if match := bracePattern.FindString(text); match != "" {
		found = append(found, match)
	}

	return found
}

func parseObject(candidate string) (map[string]any, bool) {
	var obj map[string]any

	err := json.Unmarshal([]byte(candidate), &obj)
	if err != nil || obj == nil {
		return nil, false
	}

	return obj, true
}
