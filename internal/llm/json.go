package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseJSONObject unmarshals an LLM reply into v, tolerating markdown
// code fences and prose around the JSON object. Models occasionally
// wrap JSON-mode output in ```json fences or prepend commentary.
func ParseJSONObject(content string, v any) error {
	s := strings.TrimSpace(content)

	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}

	// Cut to the outermost braces if there is surrounding prose.
	if !strings.HasPrefix(s, "{") {
		start := strings.Index(s, "{")
		end := strings.LastIndex(s, "}")
		if start < 0 || end <= start {
			return fmt.Errorf("no JSON object in response")
		}
		s = s[start : end+1]
	}

	if err := json.Unmarshal([]byte(s), v); err != nil {
		return fmt.Errorf("parsing JSON response: %w", err)
	}
	return nil
}
