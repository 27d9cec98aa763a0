package llm

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/tidwall/jsonc"
)

var errNoJSON = errors.New("no JSON value in reply")

// DecodeJSON extracts the first JSON object or array from a model reply and
// decodes it into v. Code fences, surrounding prose, comments and trailing
// commas are tolerated.
func DecodeJSON(reply string, v any) error {
	raw := ExtractJSON(reply)
	if raw == "" {
		return errNoJSON
	}
	return json.Unmarshal(jsonc.ToJSON([]byte(raw)), v)
}

// ExtractJSON returns the outermost JSON object or array in s, or "".
func ExtractJSON(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.Index(s, "```"); i >= 0 {
		rest := s[i+3:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		}
		if j := strings.Index(rest, "```"); j >= 0 {
			s = strings.TrimSpace(rest[:j])
		}
	}

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return ""
	}
	open, close := s[start], byte('}')
	if open == '[' {
		close = ']'
	}
	end := strings.LastIndexByte(s, close)
	if end <= start {
		return ""
	}
	return s[start : end+1]
}
