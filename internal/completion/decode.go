package completion

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Decoded is the tagged result of parsing model output. When OK is false,
// Value holds the caller's fallback and Err says why parsing failed.
type Decoded[T any] struct {
	Value T
	OK    bool
	Err   error
}

// DecodeJSON parses text as JSON into a T. Markdown code fences and prose
// around the outermost JSON object are tolerated. On failure the fallback is
// returned with OK set to false.
func DecodeJSON[T any](text string, fallback T) Decoded[T] {
	cleaned := stripMarkdown(text)

	var v T
	err := json.Unmarshal([]byte(cleaned), &v)
	if err != nil {
		// Some models wrap the object in a sentence.
		if obj, ok := outermostObject(cleaned); ok {
			var retry T
			if json.Unmarshal([]byte(obj), &retry) == nil {
				return Decoded[T]{Value: retry, OK: true}
			}
		}
		return Decoded[T]{Value: fallback, Err: fmt.Errorf("completion: decode json: %w", err)}
	}
	return Decoded[T]{Value: v, OK: true}
}

// stripMarkdown removes optional ```json fences around model output.
func stripMarkdown(s string) string {
	s = strings.TrimSpace(s)
	for _, prefix := range []string{"```json", "```JSON", "```"} {
		if after, ok := strings.CutPrefix(s, prefix); ok {
			s = after
			break
		}
	}
	if before, ok := strings.CutSuffix(s, "```"); ok {
		s = before
	}
	return strings.TrimSpace(s)
}

func outermostObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return "", false
	}
	return s[start : end+1], true
}
