package classifier

import (
	"context"
	"errors"
	"testing"

	"github.com/kiarakitana/Thesis-Chatbot/internal/models"
)

// mockRunner implements promptRunner for testing.
type mockRunner struct {
	out        string
	err        error
	lastSystem string
	lastUser   string
}

func (m *mockRunner) GeneratePrompt(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	m.lastSystem = systemPrompt
	m.lastUser = userPrompt
	return m.out, m.err
}

func history() []models.ChatMessage {
	return []models.ChatMessage{
		{Role: models.RoleSystem, Content: "guide instructions"},
		{Role: models.RoleUser, Content: "my partner and I had a terrible fight"},
		{Role: models.RoleAssistant, Content: "that sounds painful"},
	}
}

func TestClassifyEmotion_Success(t *testing.T) {
	mock := &mockRunner{out: `{"emotion": "Sadness", "confidence": 0.87}`}
	c := New(mock)
	reading, err := c.ClassifyEmotion(context.Background(), history())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if reading.Label != "sadness" || reading.Confidence != 0.87 {
		t.Errorf("unexpected reading: %+v", reading)
	}
	// The leading system instructions must not leak into classification input.
	if want := "user: my partner and I had a terrible fight"; mock.lastUser == "" || mock.lastUser[:len(want)] != want {
		t.Errorf("classification input should start with the user turn, got %q", mock.lastUser)
	}
}

func TestClassifyEmotion_UnparseableOutput(t *testing.T) {
	c := New(&mockRunner{out: "I think the user is sad"})
	reading, err := c.ClassifyEmotion(context.Background(), history())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if reading.Label != "neutral" || reading.Confidence != 0.5 {
		t.Errorf("expected neutral fallback, got %+v", reading)
	}
}

func TestClassifyEmotion_ServiceError(t *testing.T) {
	c := New(&mockRunner{err: errors.New("service down")})
	reading, err := c.ClassifyEmotion(context.Background(), history())
	if err == nil {
		t.Error("expected error to be surfaced")
	}
	if reading.Label != "neutral" || reading.Confidence != 0.5 {
		t.Errorf("expected neutral fallback alongside error, got %+v", reading)
	}
}

func TestExtractTriggers_Success(t *testing.T) {
	c := New(&mockRunner{out: `["relationship trigger", "somatic trigger"]`})
	triggers, err := c.ExtractTriggers(context.Background(), history())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(triggers) != 2 || triggers[0] != "relationship trigger" {
		t.Errorf("unexpected triggers: %v", triggers)
	}
}

func TestExtractTriggers_PythonStyleQuotes(t *testing.T) {
	c := New(&mockRunner{out: `['identity trigger']`})
	triggers, err := c.ExtractTriggers(context.Background(), history())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(triggers) != 1 || triggers[0] != "identity trigger" {
		t.Errorf("unexpected triggers: %v", triggers)
	}
}

func TestExtractTriggers_UnparseableOutput(t *testing.T) {
	c := New(&mockRunner{out: "the main trigger seems to be the fight"})
	triggers, err := c.ExtractTriggers(context.Background(), history())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(triggers) != 0 {
		t.Errorf("expected empty trigger list, got %v", triggers)
	}
}

func TestReappraisalSubtype(t *testing.T) {
	cases := []struct {
		out  string
		want models.Strategy
	}{
		{"Agency Cognitive Change", models.StrategyAgencyCognitiveChange},
		{"  agency cognitive change\n", models.StrategyAgencyCognitiveChange},
		{"Positive Cognitive Change", models.StrategyPositiveCognitiveChange},
		{"something unexpected", models.StrategyPositiveCognitiveChange},
	}
	for _, tc := range cases {
		c := New(&mockRunner{out: tc.out})
		got, err := c.ReappraisalSubtype(context.Background(), history())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got != tc.want {
			t.Errorf("ReappraisalSubtype(%q) = %q, want %q", tc.out, got, tc.want)
		}
	}
}

func TestReappraisalSubtype_ServiceError(t *testing.T) {
	c := New(&mockRunner{err: errors.New("service down")})
	got, err := c.ReappraisalSubtype(context.Background(), history())
	if err == nil {
		t.Error("expected error to be surfaced")
	}
	if got != models.StrategyPositiveCognitiveChange {
		t.Errorf("expected positive fallback, got %q", got)
	}
}
