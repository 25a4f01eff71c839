package llm

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"task-agent/internal/domain/entity"
)

// DecodeStructured decodes an oracle reply into v. Code fences and prose
// around the JSON object are tolerated; an empty reply yields
// entity.ErrEmptyResponse, anything undecodable entity.ErrMalformedResponse.
func DecodeStructured(raw string, v any) error {
	text := StripCodeFence(raw)
	if text == "" {
		return entity.ErrEmptyResponse
	}

	if err := json.Unmarshal([]byte(text), v); err == nil {
		return nil
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return fmt.Errorf("%w: no JSON object in %q", entity.ErrMalformedResponse, preview(text))
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), v); err != nil {
		return fmt.Errorf("%w: %v in %q", entity.ErrMalformedResponse, err, preview(text))
	}
	return nil
}

// StripCodeFence removes a surrounding ``` or ```json fence.
func StripCodeFence(raw string) string {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if nl := strings.IndexByte(text, '\n'); nl != -1 && !strings.Contains(text[:nl], "{") {
			text = text[nl+1:]
		} else {
			text = strings.TrimPrefix(text, "json")
		}
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

func preview(s string) string {
	if len(s) > 100 {
		cut := 100
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		return s[:cut] + "..."
	}
	return s
}
