package validator

import (
	"encoding/json"
	"fmt"
	"strings"
)

// extractJSONArray pulls the first balanced JSON array out of a model
// response that may be wrapped in markdown fences or surrounded by prose.
func extractJSONArray(response string) (string, error) {
	if jsonStr, ok := extractBalanced(response, '[', ']'); ok {
		if json.Valid([]byte(jsonStr)) {
			return jsonStr, nil
		}
	}

	// The fallback only accepts a response that is itself a JSON array;
	// a bare object or scalar is a contract violation, not an answer.
	trimmed := strings.TrimSpace(response)
	if strings.HasPrefix(trimmed, "[") && json.Valid([]byte(trimmed)) {
		return trimmed, nil
	}

	return "", fmt.Errorf("no valid JSON array found in response")
}

// extractBalanced finds the first balanced structure delimited by openChar
// and closeChar, counting nesting depth and skipping string literals.
func extractBalanced(s string, openChar, closeChar byte) (string, bool) {
	start := strings.IndexByte(s, openChar)
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]

		if escaped {
			escaped = false
			continue
		}
		if c == '\\' {
			escaped = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch c {
		case openChar:
			depth++
		case closeChar:
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}

	return "", false
}
