// Package flow implements the five-phase emotion regulation session flow.
//
// A session moves Identification -> StrategyOne -> StrategyTwo -> Reflection
// -> Closed. Each phase is closed by the participant typing the end-phase
// command; everything else is a regular guided turn. Instruction blocks for a
// new phase are materialized when the previous phase exits and delivered on
// the participant's next regular turn.
package flow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kiarakitana/Thesis-Chatbot/internal/models"
	"github.com/kiarakitana/Thesis-Chatbot/internal/store"
)

// Completer generates the assistant reply for a transcript.
type Completer interface {
	Complete(ctx context.Context, history []models.ChatMessage) (string, error)
}

// Classifier runs the LLM classification passes over a transcript.
type Classifier interface {
	ClassifyEmotion(ctx context.Context, history []models.ChatMessage) (models.EmotionReading, error)
	ExtractTriggers(ctx context.Context, history []models.ChatMessage) ([]string, error)
	ReappraisalSubtype(ctx context.Context, history []models.ChatMessage) (models.Strategy, error)
}

// Summarizer generates the summary for a phase that is being closed.
type Summarizer interface {
	SummarizePhase(ctx context.Context, phase models.Phase, sess *models.Session, history []models.ChatMessage) (string, error)
}

// SessionFlow drives the session state machine. All state lives in the store;
// the flow itself only serializes access per participant.
type SessionFlow struct {
	store      store.Store
	completer  Completer
	classifier Classifier
	summarizer Summarizer
	locks      *keyedLocks
	now        func() time.Time
}

// NewSessionFlow creates a session flow with the given collaborators.
func NewSessionFlow(st store.Store, completer Completer, classifier Classifier, summarizer Summarizer) *SessionFlow {
	return &SessionFlow{
		store:      st,
		completer:  completer,
		classifier: classifier,
		summarizer: summarizer,
		locks:      newKeyedLocks(),
		now:        time.Now,
	}
}

// ProcessMessage handles one inbound chat message and returns the reply plus
// the updated transcript. Handling is serialized per participant.
func (f *SessionFlow) ProcessMessage(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	unlock := f.locks.Lock(req.ParticipantID)
	defer unlock()

	sess, err := f.resolveSession(req)
	if err != nil {
		return nil, err
	}

	history := append([]models.ChatMessage(nil), req.History...)

	if sess.CurrentPhase == models.PhaseClosed {
		slog.Debug("SessionFlow.ProcessMessage: message after session close",
			"participant_id", sess.ParticipantID, "intervention_id", sess.InterventionID)
		history = append(history, userMessage(req.Message), assistantMessage(closedSessionReply))
		return f.response(sess, closedSessionReply, history), nil
	}

	if !sess.CurrentPhase.IsValid() {
		slog.Error("SessionFlow.ProcessMessage: session carries unknown phase",
			"participant_id", sess.ParticipantID, "intervention_id", sess.InterventionID, "phase", sess.CurrentPhase)
		history = append(history, userMessage(req.Message), assistantMessage(lostPlaceReply))
		return f.response(sess, lostPlaceReply, history), nil
	}

	if IsEndPhaseCommand(req.Message) {
		return f.exitPhase(ctx, sess, req.Message, history)
	}
	return f.handleTurn(ctx, sess, req.Message, history)
}

// resolveSession loads the session record, creating it for new sessions and
// recreating it when an ongoing session's record has gone missing.
func (f *SessionFlow) resolveSession(req models.ChatRequest) (*models.Session, error) {
	if req.NewSession {
		id, err := f.store.NextInterventionID(req.ParticipantID)
		if err != nil {
			return nil, fmt.Errorf("failed to allocate intervention id: %w", err)
		}
		sess := f.newSessionRecord(req.ParticipantID, id)
		if err := f.store.CreateSession(sess); err != nil {
			return nil, fmt.Errorf("failed to create session: %w", err)
		}
		slog.Info("SessionFlow.resolveSession: new session created",
			"participant_id", req.ParticipantID, "intervention_id", id)
		return &sess, nil
	}

	sess, err := f.store.GetSession(req.ParticipantID, req.InterventionID)
	if errors.Is(err, models.ErrSessionNotFound) {
		// The client believes this session exists. Recreate the record at the
		// starting phase rather than failing the conversation; earlier
		// progress is lost, so this is logged loudly.
		slog.Warn("SessionFlow.resolveSession: record missing for ongoing session, recreating",
			"participant_id", req.ParticipantID, "intervention_id", req.InterventionID)
		recreated := f.newSessionRecord(req.ParticipantID, req.InterventionID)
		if err := f.store.CreateSession(recreated); err != nil {
			return nil, fmt.Errorf("failed to recreate session: %w", err)
		}
		return &recreated, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return sess, nil
}

func (f *SessionFlow) newSessionRecord(participantID string, interventionID int) models.Session {
	return models.Session{
		ParticipantID:  participantID,
		InterventionID: interventionID,
		CurrentPhase:   models.PhaseIdentification,
		Pending:        models.PendingInitial,
		StartTime:      f.now(),
	}
}

// handleTurn runs a regular conversation turn: inject pending phase
// instructions if any, complete, and clear the pending marker only after a
// successful reply. Completion failures leave all session state untouched.
func (f *SessionFlow) handleTurn(ctx context.Context, sess *models.Session, message string, history []models.ChatMessage) (*models.ChatResponse, error) {
	pendingDelivered := false
	if sess.Pending != models.PendingNone {
		prompt := f.pendingSystemPrompt(sess)
		if prompt != "" {
			history = withSystemPrompt(history, prompt)
			pendingDelivered = true
			slog.Debug("SessionFlow.handleTurn: phase instructions injected",
				"participant_id", sess.ParticipantID, "intervention_id", sess.InterventionID, "pending", sess.Pending)
		}
	}

	history = append(history, userMessage(message))
	reply, err := f.completer.Complete(ctx, history)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrCompletionFailed, err)
	}
	history = append(history, assistantMessage(reply))

	if pendingDelivered {
		sess.Pending = models.PendingNone
		if err := f.store.SaveSession(*sess); err != nil {
			// The instructions stay in the returned transcript either way;
			// redelivery on the next turn is harmless.
			slog.Warn("SessionFlow.handleTurn: failed to clear pending instruction marker",
				"error", err, "participant_id", sess.ParticipantID, "intervention_id", sess.InterventionID)
		}
	}
	return f.response(sess, reply, history), nil
}

// pendingSystemPrompt returns the instruction block owed to the conversation.
// The initial prompt is built fresh so it can reference the participant's
// latest heart rate; the later blocks were materialized at phase exit.
func (f *SessionFlow) pendingSystemPrompt(sess *models.Session) string {
	switch sess.Pending {
	case models.PendingInitial:
		var hr *float64
		reading, err := f.store.LatestHeartRate(sess.ParticipantID)
		if err != nil {
			slog.Warn("SessionFlow.pendingSystemPrompt: heart rate lookup failed",
				"error", err, "participant_id", sess.ParticipantID)
		} else if reading != nil {
			hr = reading.HeartRate
		}
		return initialSystemPrompt(hr)
	case models.PendingStrategyOne:
		return sess.StrategyOnePrompt
	case models.PendingStrategyTwo:
		return sess.StrategyTwoPrompt
	case models.PendingReflection:
		return sess.ReflectionPrompt
	default:
		return ""
	}
}

// exitPhase routes an end-phase command to the current phase's exit
// procedure. Each exit commits conditionally on the phase it is leaving, so a
// duplicate command can never advance the session twice.
func (f *SessionFlow) exitPhase(ctx context.Context, sess *models.Session, command string, history []models.ChatMessage) (*models.ChatResponse, error) {
	slog.Info("SessionFlow.exitPhase: end-phase command received",
		"participant_id", sess.ParticipantID, "intervention_id", sess.InterventionID, "phase", sess.CurrentPhase)
	history = append(history, userMessage(command))

	switch sess.CurrentPhase {
	case models.PhaseIdentification:
		return f.exitIdentification(ctx, sess, history)
	case models.PhaseStrategyOne:
		return f.exitStrategyOne(ctx, sess, history)
	case models.PhaseStrategyTwo:
		return f.exitStrategyTwo(ctx, sess, history)
	case models.PhaseReflection:
		return f.exitReflection(ctx, sess, history)
	default:
		// IsValid is checked earlier; this is unreachable in practice.
		return nil, models.ErrInvalidPhase
	}
}

// exitIdentification classifies the episode, picks both strategies,
// materializes their instruction blocks and moves to the first strategy
// phase. The reply is the identification summary.
func (f *SessionFlow) exitIdentification(ctx context.Context, sess *models.Session, history []models.ChatMessage) (*models.ChatResponse, error) {
	reading, err := f.classifier.ClassifyEmotion(ctx, history)
	if err != nil {
		slog.Warn("SessionFlow.exitIdentification: emotion classification degraded to neutral",
			"error", err, "participant_id", sess.ParticipantID, "intervention_id", sess.InterventionID)
	}
	triggers, err := f.classifier.ExtractTriggers(ctx, history)
	if err != nil {
		slog.Warn("SessionFlow.exitIdentification: trigger extraction failed, continuing without triggers",
			"error", err, "participant_id", sess.ParticipantID, "intervention_id", sess.InterventionID)
		triggers = nil
	}
	primaryTrigger := "unknown"
	if len(triggers) > 0 {
		primaryTrigger = triggers[0]
	}

	first, second, needsSubtype := strategyPair(BaseEmotion(reading.Label))
	if needsSubtype {
		second, err = f.classifier.ReappraisalSubtype(ctx, history)
		if err != nil {
			slog.Warn("SessionFlow.exitIdentification: subtype decision degraded to positive cognitive change",
				"error", err, "participant_id", sess.ParticipantID, "intervention_id", sess.InterventionID)
		}
	}

	now := f.now()
	sess.PrimaryEmotion = reading.Label
	sess.EmotionConfidence = reading.Confidence
	sess.Triggers = triggers
	sess.PrimaryTrigger = primaryTrigger
	sess.FirstStrategy = first
	sess.SecondStrategy = second
	sess.StrategyOnePrompt = strategyPhasePrompt(1, reading.Label, primaryTrigger, first)
	sess.StrategyTwoPrompt = strategyPhasePrompt(2, reading.Label, primaryTrigger, second)
	sess.IdentificationSummary = f.summarize(ctx, models.PhaseIdentification, sess, history)
	sess.CurrentPhase = models.PhaseStrategyOne
	sess.Pending = models.PendingStrategyOne
	sess.StrategyOneStart = &now

	if err := f.commit(sess, models.PhaseIdentification); err != nil {
		return nil, err
	}
	reply := sess.IdentificationSummary
	history = append(history, assistantMessage(reply))
	return f.response(sess, reply, history), nil
}

// exitStrategyOne stores the first strategy's summary and emotion snapshot
// and moves on. The reply is a short acknowledgment; the stored summary is
// kept for the session record only.
func (f *SessionFlow) exitStrategyOne(ctx context.Context, sess *models.Session, history []models.ChatMessage) (*models.ChatResponse, error) {
	summary := f.summarize(ctx, models.PhaseStrategyOne, sess, history)
	reading, err := f.classifier.ClassifyEmotion(ctx, history)
	if err != nil {
		slog.Warn("SessionFlow.exitStrategyOne: emotion snapshot degraded to neutral",
			"error", err, "participant_id", sess.ParticipantID, "intervention_id", sess.InterventionID)
	}

	now := f.now()
	sess.StrategyOneSummary = summary
	sess.EmotionAfterStrategyOne = reading.Label
	sess.CurrentPhase = models.PhaseStrategyTwo
	sess.Pending = models.PendingStrategyTwo
	sess.StrategyTwoStart = &now

	if err := f.commit(sess, models.PhaseStrategyOne); err != nil {
		return nil, err
	}
	history = append(history, assistantMessage(strategyOneAck))
	return f.response(sess, strategyOneAck, history), nil
}

// exitStrategyTwo stores the second strategy's summary, materializes the
// reflection instructions and moves to the reflection phase. The reply is the
// strategy-two summary.
func (f *SessionFlow) exitStrategyTwo(ctx context.Context, sess *models.Session, history []models.ChatMessage) (*models.ChatResponse, error) {
	summary := f.summarize(ctx, models.PhaseStrategyTwo, sess, history)
	reading, err := f.classifier.ClassifyEmotion(ctx, history)
	if err != nil {
		slog.Warn("SessionFlow.exitStrategyTwo: emotion snapshot degraded to neutral",
			"error", err, "participant_id", sess.ParticipantID, "intervention_id", sess.InterventionID)
	}

	now := f.now()
	sess.StrategyTwoSummary = summary
	sess.EmotionAfterStrategyTwo = reading.Label
	sess.ReflectionPrompt = reflectionSystemPrompt(sess.FirstStrategy, sess.SecondStrategy)
	sess.CurrentPhase = models.PhaseReflection
	sess.Pending = models.PendingReflection
	sess.ReflectionStart = &now

	if err := f.commit(sess, models.PhaseStrategyTwo); err != nil {
		return nil, err
	}
	history = append(history, assistantMessage(summary))
	return f.response(sess, summary, history), nil
}

// exitReflection closes the session: final summary, closing emotion snapshot,
// duration and transcript statistics, then the transition to Closed.
func (f *SessionFlow) exitReflection(ctx context.Context, sess *models.Session, history []models.ChatMessage) (*models.ChatResponse, error) {
	summary := f.summarize(ctx, models.PhaseReflection, sess, history)
	reading, err := f.classifier.ClassifyEmotion(ctx, history)
	if err != nil {
		slog.Warn("SessionFlow.exitReflection: emotion snapshot degraded to neutral",
			"error", err, "participant_id", sess.ParticipantID, "intervention_id", sess.InterventionID)
	}

	history = append(history,
		models.ChatMessage{Role: models.RoleSystem, Content: sessionEndSystemPrompt},
		assistantMessage(summary))

	now := f.now()
	sess.ReflectionSummary = summary
	sess.EmotionAtClose = reading.Label
	sess.CurrentPhase = models.PhaseClosed
	sess.Pending = models.PendingNone
	sess.EndTime = &now
	sess.DurationSeconds = int(now.Sub(sess.StartTime).Seconds())
	sess.AvgUserMessageWords = meanUserMessageWords(history)
	if transcript, err := json.MarshalIndent(history, "", "  "); err == nil {
		sess.TranscriptJSON = string(transcript)
	} else {
		slog.Warn("SessionFlow.exitReflection: failed to marshal transcript",
			"error", err, "participant_id", sess.ParticipantID, "intervention_id", sess.InterventionID)
	}

	if err := f.commit(sess, models.PhaseReflection); err != nil {
		return nil, err
	}
	slog.Info("SessionFlow.exitReflection: session closed",
		"participant_id", sess.ParticipantID, "intervention_id", sess.InterventionID,
		"duration_seconds", sess.DurationSeconds)
	return f.response(sess, summary, history), nil
}

// summarize wraps the summarizer with a static fallback so a summary outage
// never blocks phase progression.
func (f *SessionFlow) summarize(ctx context.Context, phase models.Phase, sess *models.Session, history []models.ChatMessage) string {
	text, err := f.summarizer.SummarizePhase(ctx, phase, sess, history)
	if err != nil {
		slog.Warn("SessionFlow.summarize: phase summary unavailable, using fallback",
			"error", err, "phase", phase, "participant_id", sess.ParticipantID, "intervention_id", sess.InterventionID)
		return summaryFallback(phase)
	}
	return text
}

// commit persists a phase exit conditionally on the phase being left.
func (f *SessionFlow) commit(sess *models.Session, from models.Phase) error {
	if err := f.store.CommitPhaseTransition(*sess, from); err != nil {
		if errors.Is(err, models.ErrPhaseConflict) {
			slog.Warn("SessionFlow.commit: concurrent phase exit rejected",
				"participant_id", sess.ParticipantID, "intervention_id", sess.InterventionID, "from_phase", from)
			return err
		}
		return fmt.Errorf("failed to persist phase exit: %w", err)
	}
	return nil
}

func (f *SessionFlow) response(sess *models.Session, reply string, history []models.ChatMessage) *models.ChatResponse {
	return &models.ChatResponse{
		BotResponse:    chunkReply(reply),
		History:        history,
		ParticipantID:  sess.ParticipantID,
		InterventionID: sess.InterventionID,
		Phase:          sess.CurrentPhase,
	}
}
