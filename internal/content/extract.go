package content

import (
	"strings"

	"edu-arena/internal/domain"
)

// ExtractJSON strips markdown code fences from AI output and returns the
// outermost JSON array or object it contains.
func ExtractJSON(raw string) (string, error) {
	s := strings.ReplaceAll(raw, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	s = strings.TrimSpace(s)

	start := strings.IndexByte(s, '[')
	if obj := strings.IndexByte(s, '{'); obj != -1 && (start == -1 || obj < start) {
		start = obj
	}
	if start == -1 {
		return "", domain.ErrNoJSON
	}

	end := strings.LastIndexByte(s, ']')
	if obj := strings.LastIndexByte(s, '}'); obj > end {
		end = obj
	}
	if end < start {
		return "", domain.ErrNoJSON
	}
	return s[start : end+1], nil
}
