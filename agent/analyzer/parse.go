package analyzer

import (
	"encoding/json"
	"strings"
)

// ParseLooseJSON extracts a JSON object from model output that may be wrapped
// in Markdown fences or surrounded by prose. Returns nil when no object can
// be recovered; extraction failures must never abort a turn.
func ParseLooseJSON(raw string) map[string]any {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}

	if strings.HasPrefix(s, "```") {
		if idx := strings.IndexByte(s, '\n'); idx >= 0 {
			s = s[idx+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
		s = strings.TrimSpace(s)
		if strings.HasSuffix(s, "```") {
			s = strings.TrimSpace(s[:len(s)-3])
		}
	}

	var out map[string]any
	if err := json.Unmarshal([]byte(s), &out); err == nil {
		return out
	}

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end <= start {
		return nil
	}
	if err := json.Unmarshal([]byte(s[start:end+1]), &out); err != nil {
		return nil
	}
	return out
}
