// Package helpers provides small pure functions shared by the listing and podcast tools.
package helpers

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"
)

const (
	formatPrice    = "%s%.2f"
	formatProgress = "%s[%d/%d] %.1f%%"
	percent        = 100
	tokensPerRate  = 1000
)

// Per-1000-token rates in USD.
const (
	rateGPT4oMini = 0.00015
	rateGPT4o     = 0.0025
	rateGPT4      = 0.03
	rateDefault   = 0.0001
)

var whitespacePattern = regexp.MustCompile(`\s+`)

// Number is the set of numeric types accepted by Statistics.
type Number interface {
	~int | ~int32 | ~int64 | ~float32 | ~float64
}

// Stats holds summary statistics over a sequence of numbers.
// The zero value is the result for an empty sequence.
type Stats struct {
	Count int     `json:"count"`
	Sum   float64 `json:"sum"`
	Mean  float64 `json:"mean"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// IsEmpty reports whether the statistics were computed over no values.
func (s Stats) IsEmpty() bool {
	return s.Count == 0
}

// FormatPrice formats a price with two decimals after the currency symbol.
func FormatPrice(price float64, currency string) string {
	return fmt.Sprintf(formatPrice, currency, price)
}

// Batch splits items into consecutive groups of size. The last group may be
// shorter. A size below 1 yields nil.
func Batch[T any](items []T, size int) [][]T {
	if size < 1 {
		return nil
	}

	batches := make([][]T, 0, (len(items)+size-1)/size)

	for chunk := range slices.Chunk(items, size) {
		batches = append(batches, chunk)
	}

	return batches
}

// Statistics returns count, sum, mean, min and max of numbers.
func Statistics[T Number](numbers []T) Stats {
	if len(numbers) == 0 {
		return Stats{Count: 0, Sum: 0, Mean: 0, Min: 0, Max: 0}
	}

	stats := Stats{
		Count: len(numbers),
		Sum:   0,
		Mean:  0,
		Min:   float64(numbers[0]),
		Max:   float64(numbers[0]),
	}

	for _, number := range numbers {
		value := float64(number)
		stats.Sum += value
		stats.Min = min(stats.Min, value)
		stats.Max = max(stats.Max, value)
	}

	stats.Mean = stats.Sum / float64(stats.Count)

	return stats
}

// Progress renders "prefix[current/total] pct%". A zero total renders 0%.
func Progress(current, total int, prefix string) string {
	var percentage float64
	if total > 0 {
		percentage = float64(current) / float64(total) * percent
	}

	return fmt.Sprintf(formatProgress, prefix, current, total, percentage)
}

// CleanText collapses runs of whitespace into single spaces and trims the ends.
func CleanText(text string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(text, " "))
}

// TruncateText shortens text to at most maxLength runes, ending with suffix
// when truncated.
func TruncateText(text string, maxLength int, suffix string) string {
	if utf8.RuneCountInString(text) <= maxLength {
		return text
	}

	keep := max(maxLength-utf8.RuneCountInString(suffix), 0)

	return string([]rune(text)[:keep]) + suffix
}

// MergeMaps merges the given maps left to right; later keys win.
func MergeMaps[K comparable, V any](sources ...map[K]V) map[K]V {
	result := make(map[K]V)

	for _, source := range sources {
		maps.Copy(result, source)
	}

	return result
}

// FilterMap returns the entries of data whose keys are listed in keys.
func FilterMap[K comparable, V any](data map[K]V, keys []K) map[K]V {
	result := make(map[K]V, len(keys))

	for _, key := range keys {
		if value, ok := data[key]; ok {
			result[key] = value
		}
	}

	return result
}

// CalculateCost estimates the API cost in USD for the given token count.
// Unknown models use the default rate.
func CalculateCost(tokens int, model string) float64 {
	rate := rateDefault

	switch model {
	case "gpt-4o-mini":
		rate = rateGPT4oMini
	case "gpt-4o":
		rate = rateGPT4o
	case "gpt-4":
		rate = rateGPT4
	}

	return float64(tokens) * rate / tokensPerRate
}
