package flow

import (
	"strings"
	"testing"

	"github.com/kiarakitana/Thesis-Chatbot/internal/models"
)

func TestChunkReply(t *testing.T) {
	cases := []struct {
		name  string
		reply string
		want  []string
	}{
		{"short single line", "hello there", []string{"hello there"}},
		{"paragraph break", "first part\n\nsecond part", []string{"first part", "second part"}},
		{"short reply keeps single newlines", "line one\nline two", []string{"line one\nline two"}},
		{
			"long reply splits on single newlines",
			strings.Repeat("a", 200) + "\n" + strings.Repeat("b", 200),
			[]string{strings.Repeat("a", 200), strings.Repeat("b", 200)},
		},
		{"blank paragraphs dropped", "first\n\n\n\nsecond", []string{"first", "second"}},
	}
	for _, tc := range cases {
		got := chunkReply(tc.reply)
		if len(got) != len(tc.want) {
			t.Errorf("%s: got %d chunks, want %d", tc.name, len(got), len(tc.want))
			continue
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Errorf("%s: chunk %d = %q, want %q", tc.name, i, got[i], tc.want[i])
			}
		}
	}
}

func TestWithSystemPrompt(t *testing.T) {
	history := []models.ChatMessage{
		{Role: models.RoleSystem, Content: "old instructions"},
		{Role: models.RoleUser, Content: "hi"},
	}
	out := withSystemPrompt(history, "new instructions")
	if len(out) != 2 || out[0].Content != "new instructions" {
		t.Errorf("existing system prompt should be replaced, got %v", out)
	}

	out = withSystemPrompt([]models.ChatMessage{{Role: models.RoleUser, Content: "hi"}}, "new instructions")
	if len(out) != 2 || out[0].Role != models.RoleSystem {
		t.Errorf("system prompt should be prepended, got %v", out)
	}
}

func TestMeanUserMessageWords(t *testing.T) {
	history := []models.ChatMessage{
		{Role: models.RoleSystem, Content: "ignore these many instruction words entirely"},
		{Role: models.RoleUser, Content: "one two three"},
		{Role: models.RoleAssistant, Content: "reply"},
		{Role: models.RoleUser, Content: "four five"},
	}
	if got := meanUserMessageWords(history); got != 2.5 {
		t.Errorf("expected 2.5, got %v", got)
	}
	if got := meanUserMessageWords(nil); got != 0 {
		t.Errorf("expected 0 for empty transcript, got %v", got)
	}
}
