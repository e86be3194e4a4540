package models

import "time"

// Phase identifies where a session is in the five-phase intervention.
type Phase string

const (
	// PhaseIdentification is the opening phase where the trigger and primary
	// emotion are explored.
	PhaseIdentification Phase = "identification"
	// PhaseStrategyOne guides the participant through the first regulation strategy.
	PhaseStrategyOne Phase = "strategy_one"
	// PhaseStrategyTwo guides the participant through the second regulation strategy.
	PhaseStrategyTwo Phase = "strategy_two"
	// PhaseReflection is the closing guided reflection.
	PhaseReflection Phase = "reflection"
	// PhaseClosed marks a finished session; no further regulation content is accepted.
	PhaseClosed Phase = "closed"
)

// IsValid reports whether p is one of the known session phases.
func (p Phase) IsValid() bool {
	switch p {
	case PhaseIdentification, PhaseStrategyOne, PhaseStrategyTwo, PhaseReflection, PhaseClosed:
		return true
	default:
		return false
	}
}

// PendingInstruction marks which phase instruction block still has to be
// injected into the conversation. It is set when a phase exit is committed and
// cleared once the instructions have been delivered on the next regular turn.
type PendingInstruction string

const (
	PendingNone        PendingInstruction = ""
	PendingInitial     PendingInstruction = "initial"
	PendingStrategyOne PendingInstruction = "strategy_one"
	PendingStrategyTwo PendingInstruction = "strategy_two"
	PendingReflection  PendingInstruction = "reflection"
)

// Strategy identifies an emotion regulation strategy from the Extended
// Process Model.
type Strategy string

const (
	StrategyAttentionalDeployment   Strategy = "Attentional Deployment"
	StrategySituationModification   Strategy = "Situation Modification"
	StrategySituationSelection      Strategy = "Situation Selection"
	StrategyAgencyCognitiveChange   Strategy = "Agency Cognitive Change"
	StrategyPositiveCognitiveChange Strategy = "Positive Cognitive Change"
	StrategyResponseModulation      Strategy = "Response Modulation"
)

// EmotionReading is the result of an emotion classification pass.
type EmotionReading struct {
	Label      string  `json:"emotion"`
	Confidence float64 `json:"confidence"`
}

// NeutralReading is the fallback used when classification fails.
func NeutralReading() EmotionReading {
	return EmotionReading{Label: "neutral", Confidence: 0.5}
}

// Session is the persistent record of one intervention session. A participant
// may have several sessions; InterventionID is a per-participant counter.
type Session struct {
	ParticipantID  string             `json:"participant_id"`
	InterventionID int                `json:"intervention_id"`
	CurrentPhase   Phase              `json:"current_phase"`
	Pending        PendingInstruction `json:"pending_instruction,omitempty"`

	// Filled at the Identification exit.
	PrimaryEmotion    string   `json:"primary_emotion,omitempty"`
	EmotionConfidence float64  `json:"emotion_confidence,omitempty"`
	Triggers          []string `json:"triggers,omitempty"`
	PrimaryTrigger    string   `json:"primary_trigger,omitempty"`
	FirstStrategy     Strategy `json:"first_strategy,omitempty"`
	SecondStrategy    Strategy `json:"second_strategy,omitempty"`

	// Instruction blocks are materialized once at the relevant phase exit and
	// replayed verbatim afterwards.
	StrategyOnePrompt string `json:"-"`
	StrategyTwoPrompt string `json:"-"`
	ReflectionPrompt  string `json:"-"`

	// Phase summaries and emotion snapshots captured at each exit.
	IdentificationSummary   string `json:"-"`
	StrategyOneSummary      string `json:"-"`
	StrategyTwoSummary      string `json:"-"`
	ReflectionSummary       string `json:"-"`
	EmotionAfterStrategyOne string `json:"emotion_after_strategy_one,omitempty"`
	EmotionAfterStrategyTwo string `json:"emotion_after_strategy_two,omitempty"`
	EmotionAtClose          string `json:"emotion_at_close,omitempty"`

	StartTime           time.Time  `json:"start_time"`
	StrategyOneStart    *time.Time `json:"strategy_one_start,omitempty"`
	StrategyTwoStart    *time.Time `json:"strategy_two_start,omitempty"`
	ReflectionStart     *time.Time `json:"reflection_start,omitempty"`
	EndTime             *time.Time `json:"end_time,omitempty"`
	DurationSeconds     int        `json:"duration_seconds,omitempty"`
	AvgUserMessageWords float64    `json:"avg_user_message_words,omitempty"`
	TranscriptJSON      string     `json:"-"`
}

// SessionKey is the composite identifier used for logging and locking.
type SessionKey struct {
	ParticipantID  string
	InterventionID int
}

// Key returns the session's composite identifier.
func (s *Session) Key() SessionKey {
	return SessionKey{ParticipantID: s.ParticipantID, InterventionID: s.InterventionID}
}

// BiometricReading is one sample reported by the wearable companion app.
type BiometricReading struct {
	ParticipantID  string    `json:"participant_id"`
	InterventionID int       `json:"intervention_id,omitempty"`
	RecordedAt     time.Time `json:"recorded_at"`
	HeartRate      *float64  `json:"heart_rate,omitempty"`
	IBIMillis      *float64  `json:"ibi_ms,omitempty"`
	SkinTempC      *float64  `json:"skin_temp_celsius,omitempty"`
}

// Validate checks a biometric reading for storage.
func (r *BiometricReading) Validate() error {
	if r.ParticipantID == "" {
		return ErrEmptyParticipantID
	}
	return nil
}
