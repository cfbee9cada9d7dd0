package summary

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/forPelevin/vidscope/internal/types"
)

// MaxTranscriptChars caps the transcript text embedded in a prompt.
const MaxTranscriptChars = 24000

// BuildPrompt asks for a JSON object {"summary": string, "key_points": [string]}.
func BuildPrompt(tr types.Transcript, moments []types.Moment) string {
	var b strings.Builder
	b.WriteString("Summarize the following video transcript. ")
	b.WriteString("Return strictly valid JSON (no markdown, no code fences) shaped as ")
	b.WriteString(`{"summary": "<one paragraph>", "key_points": ["<point>", ...]}. `)
	b.WriteString("Keep 3 to 7 key points in the order they appear in the video. ")
	if tr.Language != "" && tr.Language != "auto" {
		fmt.Fprintf(&b, "Write the summary in the transcript language (%s). ", tr.Language)
	}
	if tr.HasSpeakers() {
		b.WriteString("Speakers are labeled; attribute important statements to them. ")
	}

	if len(moments) > 0 {
		b.WriteString("\n\nKey moments:\n")
		for _, m := range moments {
			fmt.Fprintf(&b, "- [%.0fs-%.0fs] %s\n", m.StartSec, m.EndSec, truncate(m.Text, 300))
		}
	}

	b.WriteString("\n\nTranscript:\n")
	b.WriteString(truncate(transcriptText(tr), MaxTranscriptChars))
	return b.String()
}

func transcriptText(tr types.Transcript) string {
	return strings.Join(tr.Lines(), "\n")
}

// ParseResponse extracts summary text and key points from a model reply.
// Replies that are not JSON are used verbatim as the summary text.
func ParseResponse(content string) (string, []string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", nil, errors.New("summary: empty response")
	}
	clean, err := ExtractJSONObject(content)
	if err != nil {
		return content, nil, nil
	}
	var out struct {
		Summary   string   `json:"summary"`
		KeyPoints []string `json:"key_points"`
	}
	if err := json.Unmarshal([]byte(clean), &out); err != nil || strings.TrimSpace(out.Summary) == "" {
		return content, nil, nil
	}
	points := make([]string, 0, len(out.KeyPoints))
	for _, p := range out.KeyPoints {
		if p = strings.TrimSpace(p); p != "" {
			points = append(points, p)
		}
	}
	return strings.TrimSpace(out.Summary), points, nil
}

func ExtractJSONObject(s string) (string, error) {
	t := strings.TrimSpace(s)
	if t == "" {
		return "", errors.New("summary: empty content")
	}

	// Strip markdown code fences.
	if strings.HasPrefix(t, "```") {
		if i := strings.Index(t, "\n"); i >= 0 {
			t = t[i+1:]
		}
		if j := strings.LastIndex(t, "```"); j >= 0 {
			t = t[:j]
		}
		t = strings.TrimSpace(t)
	}

	start := strings.Index(t, "{")
	end := strings.LastIndex(t, "}")
	if start >= 0 && end > start {
		return t[start : end+1], nil
	}

	return "", fmt.Errorf("summary: could not locate JSON object in: %q", truncate(t, 200))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
