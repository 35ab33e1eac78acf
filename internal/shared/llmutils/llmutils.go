// Package llmutils holds small helpers for working with LLM output.
package llmutils

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// reFence matches a leading ```json / ``` marker or a trailing ``` marker.
var reFence = regexp.MustCompile("(?m)^```(?:json)?\\s*|\\s*```$")

// ErrNoJSON is wrapped by ExtractJSON when the payload cannot be parsed.
var ErrNoJSON = fmt.Errorf("no parseable JSON payload")

// ExtractJSON parses a model response as JSON into v.
//
// Models wrap JSON in markdown code fences often enough that the wrapper is
// stripped first. A parse failure is a recoverable error for the caller to
// surface, never a crash.
func ExtractJSON(raw string, v any) error {
	cleaned := strings.TrimSpace(reFence.ReplaceAllString(strings.TrimSpace(raw), ""))
	if cleaned == "" {
		return fmt.Errorf("%w: empty response", ErrNoJSON)
	}
	if err := json.Unmarshal([]byte(cleaned), v); err != nil {
		// Some models prepend prose; retry from the first brace.
		if i := strings.IndexAny(cleaned, "{["); i > 0 {
			if err2 := json.Unmarshal([]byte(cleaned[i:]), v); err2 == nil {
				return nil
			}
		}
		return fmt.Errorf("%w: %v", ErrNoJSON, err)
	}
	return nil
}

// Truncate shortens a string to at most n bytes, adding "..." if it was
// truncated. The cut backs up to a rune boundary so multi-byte sequences are
// never split.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
