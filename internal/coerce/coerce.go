// Package coerce recovers a JSON object from free-form model output text.
// Coercion is best effort and never fatal: the caller keeps the raw text
// regardless of the outcome.
package coerce

import (
	"encoding/json"
	"errors"
	"strings"
)

var (
	ErrEmptyResponse = errors.New("empty response")
	ErrNotAnObject   = errors.New("parsed JSON is not an object")
	ErrNoObjectFound = errors.New("no JSON object found in text")
)

// JSONObject attempts, in order: a direct parse of the trimmed text, a
// parse after stripping a triple-backtick fence, and a parse of the
// substring between the first '{' and the last '}'. The first strategy
// producing a JSON object wins; arrays and primitives do not count.
func JSONObject(text string) (map[string]any, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return nil, ErrEmptyResponse
	}

	if obj, err := parseObject(s); err == nil {
		return obj, nil
	} else if errors.Is(err, ErrNotAnObject) {
		// Valid JSON of the wrong kind: a brace slice cannot do better.
		return nil, err
	}

	if stripped, ok := stripFence(s); ok {
		if obj, err := parseObject(stripped); err == nil {
			return obj, nil
		}
	}

	sliced, ok := braceSlice(s)
	if !ok {
		return nil, ErrNoObjectFound
	}
	obj, err := parseObject(sliced)
	if err != nil {
		return nil, errors.New("json parse failed after extraction: " + err.Error())
	}
	return obj, nil
}

func parseObject(s string) (map[string]any, error) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, ErrNotAnObject
	}
	return obj, nil
}

// stripFence removes a leading ```lang line and a trailing ``` line.
func stripFence(s string) (string, bool) {
	if !strings.HasPrefix(s, "```") {
		return "", false
	}
	body := s
	if i := strings.IndexByte(body, '\n'); i >= 0 {
		body = body[i+1:]
	} else {
		return "", false
	}
	body = strings.TrimSpace(body)
	body = strings.TrimSuffix(body, "```")
	return strings.TrimSpace(body), true
}

// braceSlice extracts the inclusive substring between the first '{' and
// the last '}'.
func braceSlice(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end == -1 || end < start {
		return "", false
	}
	return s[start : end+1], true
}
