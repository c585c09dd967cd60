package session

import (
	"encoding/json"
	"strings"
)

// analysisText renders an analyze response. initialMessage and findings are
// recognised; anything else is shown as raw JSON.
func analysisText(resp map[string]any, findingsTitle string) string {
	var parts []string

	if msg, ok := resp["initialMessage"].(string); ok && strings.TrimSpace(msg) != "" {
		parts = append(parts, msg)
	}

	if raw, ok := resp["findings"].([]any); ok {
		var lines []string
		for _, v := range raw {
			if s, ok := v.(string); ok && s != "" {
				lines = append(lines, "• "+s)
			}
		}
		if len(lines) > 0 {
			parts = append(parts, findingsTitle+"\n"+strings.Join(lines, "\n"))
		}
	}

	if len(parts) == 0 {
		return rawJSON(resp)
	}
	return strings.Join(parts, "\n\n")
}

// chatText renders a chat response from its "response" field, or raw JSON
func chatText(resp map[string]any) string {
	if msg, ok := resp["response"].(string); ok && strings.TrimSpace(msg) != "" {
		return msg
	}
	return rawJSON(resp)
}

func rawJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "```\n(unreadable response)\n```"
	}
	return "```json\n" + string(data) + "\n```"
}
