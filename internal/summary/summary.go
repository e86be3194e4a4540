// Package summary generates phase summaries using Google's Gemini API.
//
// Conversation turns run on OpenAI while phase summaries run on Gemini, so
// the two workloads can be tuned and billed independently.
package summary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"google.golang.org/genai"

	"github.com/kiarakitana/Thesis-Chatbot/internal/models"
)

// ErrEmptySummary indicates the model returned no usable text.
var ErrEmptySummary = errors.New("empty summary returned")

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-2.0-flash"

// textGenerator is the slice of the Gemini client the generator needs.
type textGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Opts holds configuration options for the summary generator.
type Opts struct {
	APIKey string // Gemini API key
	Model  string // Gemini model identifier
}

// Option defines a configuration option for the summary generator.
type Option func(*Opts)

// WithAPIKey sets the Gemini API key.
func WithAPIKey(key string) Option {
	return func(o *Opts) {
		o.APIKey = key
	}
}

// WithModel overrides the default Gemini model.
func WithModel(model string) Option {
	return func(o *Opts) {
		o.Model = model
	}
}

// Generator produces phase summaries from a session transcript.
type Generator struct {
	models textGenerator
	model  string
}

// NewGenerator creates a summary generator. The API key is taken from options
// or the GEMINI_API_KEY environment variable.
func NewGenerator(ctx context.Context, opts ...Option) (*Generator, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key not set")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	slog.Debug("summary.NewGenerator: client created", "model", cfg.Model)
	return &Generator{models: client.Models, model: cfg.Model}, nil
}

// SummarizePhase generates the summary for the phase that is being closed.
func (g *Generator) SummarizePhase(ctx context.Context, phase models.Phase, sess *models.Session, history []models.ChatMessage) (string, error) {
	prompt := phasePrompt(phase, sess)
	if prompt == "" {
		return "", fmt.Errorf("no summary defined for phase %q", phase)
	}
	input := prompt + "\n\nConversation:\n" + transcriptText(history)
	contents := []*genai.Content{genai.NewContentFromText(input, genai.RoleUser)}
	resp, err := g.models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		slog.Error("Generator.SummarizePhase: generation failed", "error", err, "phase", phase)
		return "", fmt.Errorf("summary generation failed: %w", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptySummary
	}
	return text, nil
}

// phasePrompt builds the therapist summary instructions for a phase.
func phasePrompt(phase models.Phase, sess *models.Session) string {
	switch phase {
	case models.PhaseIdentification:
		return fmt.Sprintf(`You are a therapist analysing a text conversation you have had with a user. Give them a summary of this phase of the conversation that sounds natural and engaged, making the user feel heard.

Your goal is to:
1. Give a very short explanation of how the WPVA structure (World, Perception, Valuation, Action) helps us understand what our emotions look and feel like as they arise.
2. Empathically paraphrase what the user has expressed in your own words, using easily understandable language, connecting it to their answers for the W, P, V and A elements of the Extended Process Model by James Gross.
3. Explain that you conclude that their emotion %s was evoked by a %s, with a short and simple explanation of what this trigger means in this context.
4. Express understanding of their situation and willingness to support them through this process.

Close by inviting the user to move on to the regulation strategies by typing 'endphase()'.`, sess.PrimaryEmotion, sess.PrimaryTrigger)

	case models.PhaseStrategyOne:
		return fmt.Sprintf(`You are a therapist analysing a text conversation you have had with a user who just practiced the %s strategy for their emotion %s. Summarize warmly what the user explored and noticed during this strategy, naming one concrete thing they did well. Keep it short and encouraging.`, sess.FirstStrategy, sess.PrimaryEmotion)

	case models.PhaseStrategyTwo:
		return fmt.Sprintf(`You are a therapist analysing a text conversation you have had with a user. The user worked through two emotion regulation strategies for their emotion %s, triggered by a %s: first %s, then %s. Summarize warmly what the user explored during the second strategy and how it built on the first, naming one concrete shift you noticed. Close by inviting them to a short final reflection by typing 'endphase()'.`, sess.PrimaryEmotion, sess.PrimaryTrigger, sess.FirstStrategy, sess.SecondStrategy)

	case models.PhaseReflection:
		return fmt.Sprintf(`You are a therapist closing an emotion regulation session. The user explored their emotion %s, its trigger (%s), and practiced %s and %s. Summarize the journey of the whole session in a few warm sentences, reflecting the insight the user reached during the final reflection. End the summary by thanking the user for their openness, then say something motivational. Tell them they can end the conversation by typing 'endphase()'.`, sess.PrimaryEmotion, sess.PrimaryTrigger, sess.FirstStrategy, sess.SecondStrategy)

	default:
		return ""
	}
}

// transcriptText renders a transcript as plain text for the summary input.
func transcriptText(history []models.ChatMessage) string {
	var b strings.Builder
	for _, m := range history {
		b.WriteString(string(m.Role))
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	return b.String()
}
