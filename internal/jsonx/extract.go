// Package jsonx extracts JSON payloads from the noisy text LLMs actually
// return: fenced blocks, prose preambles, trailing commentary. Every
// adjudication call site parses through this package so the defensive rules
// live in exactly one place.
package jsonx

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractObject returns the first complete JSON object found in text.
// It tries, in order: the text as-is, fenced ```json blocks, balanced-brace
// scanning, and finally a greedy first-{ to last-} slice.
func ExtractObject(text string) (string, error) {
	return extract(text, '{', '}')
}

// ExtractArray is ExtractObject for JSON arrays.
func ExtractArray(text string) (string, error) {
	return extract(text, '[', ']')
}

// DecodeObject extracts and unmarshals the first JSON object into v.
func DecodeObject(text string, v any) error {
	raw, err := ExtractObject(text)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(raw), v)
}

// DecodeArray extracts and unmarshals the first JSON array into v.
func DecodeArray(text string, v any) error {
	raw, err := ExtractArray(text)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(raw), v)
}

func extract(text string, open, close byte) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", fmt.Errorf("jsonx: empty input")
	}

	if json.Valid([]byte(trimmed)) && len(trimmed) > 0 && trimmed[0] == open {
		return trimmed, nil
	}

	if fenced := stripFences(trimmed); fenced != "" {
		if raw, ok := scanBalanced(fenced, open, close); ok {
			return raw, nil
		}
	}

	if raw, ok := scanBalanced(trimmed, open, close); ok {
		return raw, nil
	}

	// Last resort: greedy slice between the outermost delimiters. This
	// recovers payloads with minor imbalance inside string values the
	// scanner misjudged.
	first := strings.IndexByte(trimmed, open)
	last := strings.LastIndexByte(trimmed, close)
	if first >= 0 && last > first {
		candidate := trimmed[first : last+1]
		if json.Valid([]byte(candidate)) {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("jsonx: no valid JSON %c...%c payload found", open, close)
}

// stripFences removes a leading/trailing markdown code fence, tolerating a
// language tag after the opening backticks.
func stripFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return ""
	}
	body := text[3:]
	if i := strings.IndexByte(body, '\n'); i >= 0 {
		body = body[i+1:]
	}
	if i := strings.LastIndex(body, "```"); i >= 0 {
		body = body[:i]
	}
	return strings.TrimSpace(body)
}

// scanBalanced finds the first delimiter-balanced region, skipping
// delimiters that occur inside JSON string literals.
func scanBalanced(text string, open, close byte) (string, bool) {
	depth := 0
	start := -1
	inString := false
	escaped := false

	for i := 0; i < len(text); i++ {
		ch := text[i]
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
			if depth > 0 {
				inString = true
			}
		case open:
			if depth == 0 {
				start = i
			}
			depth++
		case close:
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				candidate := text[start : i+1]
				if json.Valid([]byte(candidate)) {
					return candidate, true
				}
				start = -1
			}
		}
	}
	return "", false
}
