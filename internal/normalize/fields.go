// Package normalize converts loosely-formatted user-supplied strings into
// canonical field values. Every function returns nil for unknown input and
// never fails on malformed input.
package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/maitred-ai/maitred/internal/schema"
)

var reDigits = regexp.MustCompile(`\d+`)

// timeLayouts are tried in order; the first successful parse wins.
var timeLayouts = []string{
	"3:04 PM",
	"15:04",
	"3 PM",
	"3:04PM",
	"3PM",
}

// Time converts a time-of-day string into canonical "HH:MM".
//
// Unparseable non-empty input is returned unchanged: the raw words may still
// be useful to the orchestrator or to a human, so they are passed through
// rather than silently discarded.
func Time(raw *string) *string {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return nil
	}
	candidate := strings.ToUpper(strings.TrimSpace(*raw))
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, candidate); err == nil {
			out := t.Format("15:04")
			return &out
		}
	}
	return raw
}

// PartySize extracts the first contiguous digit run anywhere in the string.
// A party needs at least one person, so zero is treated as unknown.
func PartySize(raw *string) *int {
	if raw == nil || *raw == "" {
		return nil
	}
	m := reDigits.FindString(*raw)
	if m == "" {
		return nil
	}
	n, err := strconv.Atoi(m)
	if err != nil || n < 1 {
		return nil
	}
	return &n
}

// upperBoundWords and lowerBoundWords classify a single-number price string.
// Upper-bound wins when both match.
var (
	upperBoundWords = []string{"<", "less", "under", "max", "not more than"}
	lowerBoundWords = []string{">", "more", "over", "min"}
)

// Price parses a budget string into a min/max range.
//
// Two or more numbers: min and max of the set, order-independent.
// Exactly one number: classified by keyword scan — upper-bound words assign
// Max only, lower-bound words assign Min only, otherwise the number is an
// exact target (Min == Max). No numbers: nil.
func Price(raw *string) *schema.PriceRange {
	if raw == nil || *raw == "" {
		return nil
	}
	runs := reDigits.FindAllString(*raw, -1)
	if len(runs) == 0 {
		return nil
	}

	numbers := make([]int, 0, len(runs))
	for _, r := range runs {
		if n, err := strconv.Atoi(r); err == nil {
			numbers = append(numbers, n)
		}
	}
	if len(numbers) == 0 {
		return nil
	}

	var pr schema.PriceRange
	if len(numbers) >= 2 {
		lo, hi := numbers[0], numbers[0]
		for _, n := range numbers[1:] {
			if n < lo {
				lo = n
			}
			if n > hi {
				hi = n
			}
		}
		pr.Min, pr.Max = &lo, &hi
		return &pr
	}

	n := numbers[0]
	lowered := strings.ToLower(*raw)
	switch {
	case containsAny(lowered, upperBoundWords):
		pr.Max = &n
	case containsAny(lowered, lowerBoundWords):
		pr.Min = &n
	default:
		pr.Min, pr.Max = &n, &n
	}
	return &pr
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
