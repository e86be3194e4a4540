package flow

import (
	"strings"

	"github.com/kiarakitana/Thesis-Chatbot/internal/models"
)

// longReplyThreshold is the length above which a reply without blank lines is
// still split on single newlines for delivery as separate bubbles.
const longReplyThreshold = 300

func userMessage(content string) models.ChatMessage {
	return models.ChatMessage{Role: models.RoleUser, Content: content}
}

func assistantMessage(content string) models.ChatMessage {
	return models.ChatMessage{Role: models.RoleAssistant, Content: content}
}

// withSystemPrompt returns history with prompt as its system message. An
// existing leading system message is replaced so each phase's instructions
// supersede the previous ones; otherwise the prompt is prepended.
func withSystemPrompt(history []models.ChatMessage, prompt string) []models.ChatMessage {
	out := make([]models.ChatMessage, 0, len(history)+1)
	out = append(out, models.ChatMessage{Role: models.RoleSystem, Content: prompt})
	if len(history) > 0 && history[0].Role == models.RoleSystem {
		return append(out, history[1:]...)
	}
	return append(out, history...)
}

// chunkReply splits a reply into the message bubbles sent to the client.
// Paragraph breaks split always; single newlines only when the reply is long.
func chunkReply(reply string) []string {
	if strings.Contains(reply, "\n\n") {
		if parts := splitNonEmpty(reply, "\n\n"); len(parts) > 0 {
			return parts
		}
	}
	if len(reply) > longReplyThreshold && strings.Contains(reply, "\n") {
		if parts := splitNonEmpty(reply, "\n"); len(parts) > 0 {
			return parts
		}
	}
	return []string{reply}
}

func splitNonEmpty(s, sep string) []string {
	var out []string
	for _, part := range strings.Split(s, sep) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// meanUserMessageWords computes the average word count of the user's messages
// in a transcript. Zero when the user never spoke.
func meanUserMessageWords(history []models.ChatMessage) float64 {
	var words, count int
	for _, m := range history {
		if m.Role != models.RoleUser {
			continue
		}
		words += len(strings.Fields(m.Content))
		count++
	}
	if count == 0 {
		return 0
	}
	return float64(words) / float64(count)
}
