package generator

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSONObject means the model output contains no balanced {...} span.
var ErrNoJSONObject = errors.New("no json object found")

// ExtractJSONObject returns the first balanced brace span of s that is valid
// JSON. Braces inside JSON strings, including escaped quotes, do not affect
// the depth. A stray '{' in surrounding prose is skipped and the scan resumes
// at the next one.
func ExtractJSONObject(s string) (string, error) {
	for from := 0; from < len(s); {
		off := strings.IndexByte(s[from:], '{')
		if off < 0 {
			break
		}
		start := from + off
		if span, ok := balancedSpan(s, start); ok && json.Valid([]byte(span)) {
			return span, nil
		}
		from = start + 1
	}
	return "", ErrNoJSONObject
}

// balancedSpan scans from the '{' at start to its matching '}'.
func balancedSpan(s string, start int) (string, bool) {
	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}

		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
