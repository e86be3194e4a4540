package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/kiarakitana/Thesis-Chatbot/internal/models"
)

// sessionColumns lists the sessions table columns in migration order.
const sessionColumns = `participant_id, intervention_id, current_phase, pending_instruction, primary_emotion, emotion_confidence, triggers, primary_trigger, first_strategy, second_strategy, strategy_one_prompt, strategy_two_prompt, reflection_prompt, identification_summary, strategy_one_summary, strategy_two_summary, reflection_summary, emotion_after_strategy_one, emotion_after_strategy_two, emotion_at_close, start_time, strategy_one_start, strategy_two_start, reflection_start, end_time, duration_seconds, avg_user_message_words, transcript`

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// sessionWriteArgs returns the values for the session columns that follow the
// primary key, in migration order.
func sessionWriteArgs(s models.Session) ([]interface{}, error) {
	triggersJSON := ""
	if len(s.Triggers) > 0 {
		b, err := json.Marshal(s.Triggers)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal triggers: %w", err)
		}
		triggersJSON = string(b)
	}
	return []interface{}{
		string(s.CurrentPhase),
		string(s.Pending),
		nilIfEmpty(s.PrimaryEmotion),
		s.EmotionConfidence,
		nilIfEmpty(triggersJSON),
		nilIfEmpty(s.PrimaryTrigger),
		nilIfEmpty(string(s.FirstStrategy)),
		nilIfEmpty(string(s.SecondStrategy)),
		nilIfEmpty(s.StrategyOnePrompt),
		nilIfEmpty(s.StrategyTwoPrompt),
		nilIfEmpty(s.ReflectionPrompt),
		nilIfEmpty(s.IdentificationSummary),
		nilIfEmpty(s.StrategyOneSummary),
		nilIfEmpty(s.StrategyTwoSummary),
		nilIfEmpty(s.ReflectionSummary),
		nilIfEmpty(s.EmotionAfterStrategyOne),
		nilIfEmpty(s.EmotionAfterStrategyTwo),
		nilIfEmpty(s.EmotionAtClose),
		s.StartTime,
		s.StrategyOneStart,
		s.StrategyTwoStart,
		s.ReflectionStart,
		s.EndTime,
		s.DurationSeconds,
		s.AvgUserMessageWords,
		nilIfEmpty(s.TranscriptJSON),
	}, nil
}

// scanSessionRow scans a full session record from a single sql.Row.
func scanSessionRow(row *sql.Row) (*models.Session, error) {
	var s models.Session
	var phase, pending string
	var primaryEmotion, triggersJSON, primaryTrigger, firstStrategy, secondStrategy sql.NullString
	var strategyOnePrompt, strategyTwoPrompt, reflectionPrompt sql.NullString
	var identificationSummary, strategyOneSummary, strategyTwoSummary, reflectionSummary sql.NullString
	var emotionAfterOne, emotionAfterTwo, emotionAtClose, transcript sql.NullString
	var emotionConfidence, avgWords sql.NullFloat64
	var durationSeconds sql.NullInt64
	var strategyOneStart, strategyTwoStart, reflectionStart, endTime sql.NullTime

	err := row.Scan(
		&s.ParticipantID, &s.InterventionID, &phase, &pending,
		&primaryEmotion, &emotionConfidence, &triggersJSON, &primaryTrigger,
		&firstStrategy, &secondStrategy,
		&strategyOnePrompt, &strategyTwoPrompt, &reflectionPrompt,
		&identificationSummary, &strategyOneSummary, &strategyTwoSummary, &reflectionSummary,
		&emotionAfterOne, &emotionAfterTwo, &emotionAtClose,
		&s.StartTime, &strategyOneStart, &strategyTwoStart, &reflectionStart, &endTime,
		&durationSeconds, &avgWords, &transcript,
	)
	if err != nil {
		return nil, err
	}

	s.CurrentPhase = models.Phase(phase)
	s.Pending = models.PendingInstruction(pending)
	s.PrimaryEmotion = primaryEmotion.String
	s.EmotionConfidence = emotionConfidence.Float64
	if triggersJSON.Valid && triggersJSON.String != "" {
		if err := json.Unmarshal([]byte(triggersJSON.String), &s.Triggers); err != nil {
			return nil, fmt.Errorf("failed to unmarshal triggers: %w", err)
		}
	}
	s.PrimaryTrigger = primaryTrigger.String
	s.FirstStrategy = models.Strategy(firstStrategy.String)
	s.SecondStrategy = models.Strategy(secondStrategy.String)
	s.StrategyOnePrompt = strategyOnePrompt.String
	s.StrategyTwoPrompt = strategyTwoPrompt.String
	s.ReflectionPrompt = reflectionPrompt.String
	s.IdentificationSummary = identificationSummary.String
	s.StrategyOneSummary = strategyOneSummary.String
	s.StrategyTwoSummary = strategyTwoSummary.String
	s.ReflectionSummary = reflectionSummary.String
	s.EmotionAfterStrategyOne = emotionAfterOne.String
	s.EmotionAfterStrategyTwo = emotionAfterTwo.String
	s.EmotionAtClose = emotionAtClose.String
	if strategyOneStart.Valid {
		t := strategyOneStart.Time
		s.StrategyOneStart = &t
	}
	if strategyTwoStart.Valid {
		t := strategyTwoStart.Time
		s.StrategyTwoStart = &t
	}
	if reflectionStart.Valid {
		t := reflectionStart.Time
		s.ReflectionStart = &t
	}
	if endTime.Valid {
		t := endTime.Time
		s.EndTime = &t
	}
	s.DurationSeconds = int(durationSeconds.Int64)
	s.AvgUserMessageWords = avgWords.Float64
	s.TranscriptJSON = transcript.String
	return &s, nil
}
