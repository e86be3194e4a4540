// Package classifier implements the LLM-backed emotion, trigger and
// reappraisal subtype classification used by the session flow.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kiarakitana/Thesis-Chatbot/internal/models"
)

// promptRunner is the slice of the GenAI client the classifier needs.
type promptRunner interface {
	GeneratePrompt(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Classifier runs classification passes over a session transcript.
type Classifier struct {
	runner promptRunner
}

// New creates a Classifier on top of a GenAI client.
func New(runner promptRunner) *Classifier {
	return &Classifier{runner: runner}
}

const emotionSystemPrompt = `You are an expert emotion recognition system based on Plutchik's Wheel of Emotions.
Given the conversation history, identify the user's most likely emotional state, even if the user does not express it directly or may mislabel it. Account for confusion between similar emotions (e.g. saying 'I'm sad' when the underlying emotion is anxiety).

Respond with only one emotion from the list below (lowercase, no punctuation) and a confidence score between 0.0 and 1.0 in JSON format:
{
  "emotion": "<emotion>",
  "confidence": <float>
}

Valid emotions (high to low intensity):
- anger: rage, anger, annoyance
- anticipation: vigilance, anticipation, interest
- joy: ecstasy, joy, serenity
- trust: admiration, trust, acceptance
- fear: terror, fear, apprehension, shame, guilt
- surprise: amazement, surprise, distraction
- sadness: grief, sadness, pensiveness
- disgust: loathing, disgust, boredom
Neutral: calm, neutral`

const triggerSystemPrompt = `You are a trigger-classification system. Scan a user's conversation about an emotional episode and return the primary cause(s) of that emotion, in order of importance. Bodily sensations are only "somatic triggers" if they are the original source of the emotion (e.g. someone feels anxious because they are hungry or in pain). If the bodily reaction follows from something else (e.g. a fight with a spouse), classify that event as the trigger instead.

Steps to follow:
1. Scan the conversation and ask: what actually happened first that made the user emotional?
2. If it was a bodily or physical state (illness, pain, fatigue, hunger, hormonal shift), label it somatic trigger.
3. Otherwise, ignore purely descriptive mentions of heart rate, butterflies, stomach drops and similar, and choose one of the non-somatic categories below based on what caused those sensations.

Trigger definitions:
1. somatic trigger: a physical or bodily state that itself caused the emotion, like illness, fatigue, pain, hunger or hormonal shifts.
2. relationship trigger: interpersonal conflict or dynamics such as conflict, rejection, betrayal, criticism, loneliness or abandonment.
3. identity trigger: events or feedback that challenge how someone sees themselves, their values or their worth.
4. trauma-related trigger: a cue that involuntarily reactivates the emotional and bodily response of a past traumatic event.
5. existential trigger: a situation or realization confronting the person with death, freedom or meaninglessness.
6. environmental and sensory trigger: external cues such as noise, light, smells, weather or crowded spaces.

Return the identified trigger(s) as a JSON array of strings containing only the triggers, in order of salience, e.g. ["relationship trigger", "somatic trigger"]. Do not return any explanation or additional text, only the array.`

const subtypeSystemPrompt = `You are a psychologist specializing in emotion regulation and trained in the Extended Process Model by James Gross, as well as Self-Efficacy Theory, Post-Traumatic Growth, Meaning-Making and Reappraisal Flexibility.

Determine which type of cognitive reappraisal best fits the user's situation. Choose between two evidence-based subtypes:

Agency Cognitive Change: use when the user feels powerless, overwhelmed, anxious or self-doubting in the face of a changeable stressor. This reframe emphasizes the user's personal influence and capacity to cope. Typical indicators: "I can't handle this", "There's nothing I can do", "I'm stuck and out of control".

Positive Cognitive Change: use when the user is grieving, ruminating or experiencing something uncontrollable or irreversible. This reframe helps the user identify growth, meaning or value in the experience. Typical indicators: "What's the point?", "This ruined everything", "I don't see any good in this".

Decision framework:
Q1: Can the user influence the situation? Yes: Agency. No: Positive.
Q2: What is the user focused on? Personal failure or asking what to do: Agency. Loss, unfairness or meaninglessness: Positive.
Q3: Emotional tone: helpless or anxious: Agency. Hopeless or sad: Positive. Angry about a fixable issue: Agency. Angry about irreversible harm: Positive.
Q4: Mixed or unclear tone: default to Positive unless the user specifically asks for guidance or problem-solving.

Return ONLY one of the following strings:
Agency Cognitive Change
or
Positive Cognitive Change`

// ClassifyEmotion identifies the user's dominant Plutchik emotion. Transport
// errors and unparseable output both degrade to the neutral reading; the
// error is returned alongside it so callers can log the failure.
func (c *Classifier) ClassifyEmotion(ctx context.Context, history []models.ChatMessage) (models.EmotionReading, error) {
	out, err := c.runner.GeneratePrompt(ctx, emotionSystemPrompt, transcriptText(withoutLeadingSystem(history)))
	if err != nil {
		return models.NeutralReading(), fmt.Errorf("emotion classification failed: %w", err)
	}
	var reading models.EmotionReading
	if err := json.Unmarshal([]byte(strings.TrimSpace(out)), &reading); err != nil {
		slog.Warn("Classifier.ClassifyEmotion: unparseable output, using neutral reading", "output", out)
		return models.NeutralReading(), nil
	}
	if reading.Label == "" {
		return models.NeutralReading(), nil
	}
	reading.Label = strings.ToLower(strings.TrimSpace(reading.Label))
	if reading.Confidence == 0 {
		reading.Confidence = 0.5
	}
	return reading, nil
}

// ExtractTriggers returns the trigger categories behind the episode, most
// salient first. Unparseable output yields an empty list.
func (c *Classifier) ExtractTriggers(ctx context.Context, history []models.ChatMessage) ([]string, error) {
	out, err := c.runner.GeneratePrompt(ctx, triggerSystemPrompt, transcriptText(history))
	if err != nil {
		return nil, fmt.Errorf("trigger extraction failed: %w", err)
	}
	cleaned := strings.ReplaceAll(strings.TrimSpace(out), "'", `"`)
	var triggers []string
	if err := json.Unmarshal([]byte(cleaned), &triggers); err != nil {
		slog.Warn("Classifier.ExtractTriggers: unparseable output, using empty list", "output", out)
		return nil, nil
	}
	return triggers, nil
}

// ReappraisalSubtype decides between the two cognitive change strategies.
// Anything other than a clear agency answer defaults to positive cognitive
// change, matching the decision framework's own fallback.
func (c *Classifier) ReappraisalSubtype(ctx context.Context, history []models.ChatMessage) (models.Strategy, error) {
	out, err := c.runner.GeneratePrompt(ctx, subtypeSystemPrompt, transcriptText(history))
	if err != nil {
		return models.StrategyPositiveCognitiveChange, fmt.Errorf("reappraisal subtype decision failed: %w", err)
	}
	answer := strings.ToLower(strings.TrimSpace(out))
	if strings.Contains(answer, "agency") {
		return models.StrategyAgencyCognitiveChange, nil
	}
	return models.StrategyPositiveCognitiveChange, nil
}

// transcriptText renders a transcript as plain text for classification input.
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

// withoutLeadingSystem drops the instruction message so classification sees
// only the exchange itself.
func withoutLeadingSystem(history []models.ChatMessage) []models.ChatMessage {
	if len(history) > 0 && history[0].Role == models.RoleSystem {
		return history[1:]
	}
	return history
}
