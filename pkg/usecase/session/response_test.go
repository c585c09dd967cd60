package session

import (
	"testing"

	"github.com/m-mizutani/gt"
)

func TestAnalysisText(t *testing.T) {
	testCases := []struct {
		name     string
		resp     map[string]any
		contains []string
		missing  []string
	}{
		{
			name:     "message only",
			resp:     map[string]any{"initialMessage": "Looks fine"},
			contains: []string{"Looks fine"},
			missing:  []string{"Findings", "```"},
		},
		{
			name: "message and findings",
			resp: map[string]any{
				"initialMessage": "Report ready",
				"findings":       []any{"No sitemap", 3, "", "Thin content"},
			},
			contains: []string{"Report ready", "Findings\n• No sitemap\n• Thin content"},
			missing:  []string{"• 3"},
		},
		{
			name:     "findings only",
			resp:     map[string]any{"findings": []any{"No robots.txt"}},
			contains: []string{"• No robots.txt"},
		},
		{
			name:     "unknown shape",
			resp:     map[string]any{"status": "queued"},
			contains: []string{"```json", `"status": "queued"`},
		},
		{
			name:     "blank message falls back",
			resp:     map[string]any{"initialMessage": "  "},
			contains: []string{"```json"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			text := analysisText(tc.resp, "Findings")
			for _, s := range tc.contains {
				gt.S(t, text).Contains(s)
			}
			for _, s := range tc.missing {
				gt.S(t, text).NotContains(s)
			}
		})
	}
}

func TestChatText(t *testing.T) {
	gt.Equal(t, chatText(map[string]any{"response": "hi"}), "hi")
	gt.S(t, chatText(map[string]any{"output": "hi"})).Contains(`"output": "hi"`)
	gt.S(t, chatText(map[string]any{"response": 1})).Contains("```json")
}

func TestMessagesMerge(t *testing.T) {
	merged := Messages{Greeting: "hey"}.merge(DefaultMessages())
	gt.Equal(t, merged.Greeting, "hey")
	gt.Equal(t, merged.ChatFailed, DefaultMessages().ChatFailed)
	gt.S(t, merged.Analyzing).Contains("{url}")
}
