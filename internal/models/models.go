// Package models defines the core data structures for the Aire emotion
// regulation service.
//
// It includes session records, chat transfer types, biometric readings, and
// the standard API response envelope shared across modules.
package models

import (
	"errors"
	"strings"
)

// Validation constants for input validation
const (
	// MaxMessageLength defines the maximum allowed length for a single chat message
	MaxMessageLength = 8192
	// MaxParticipantIDLength defines the maximum allowed length for participant identifiers
	MaxParticipantIDLength = 128
)

// Error variables for better error handling and testability
var (
	ErrEmptyParticipantID   = errors.New("participant id cannot be empty")
	ErrParticipantIDTooLong = errors.New("participant id exceeds maximum length")
	ErrEmptyMessage         = errors.New("message cannot be empty")
	ErrMessageTooLong       = errors.New("message exceeds maximum length")
	ErrMissingIntervention  = errors.New("intervention id is required for an ongoing session")
	ErrSessionNotFound      = errors.New("session not found")
	ErrPhaseConflict        = errors.New("session phase changed concurrently")
	ErrInvalidPhase         = errors.New("session is in an unknown phase")
	ErrCompletionFailed     = errors.New("chat completion failed")
)

// MessageRole identifies the author of a chat message.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// ChatMessage represents one entry in a session transcript. The client round
// trips the full transcript on every request.
type ChatMessage struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content"`
}

// ChatRequest is the inbound payload for the /chat endpoint.
type ChatRequest struct {
	ParticipantID  string        `json:"participant_id"`
	InterventionID int           `json:"intervention_id,omitempty"`
	NewSession     bool          `json:"is_new_session,omitempty"`
	Message        string        `json:"message"`
	History        []ChatMessage `json:"history,omitempty"`
}

// Validate performs basic validation on a ChatRequest.
func (r *ChatRequest) Validate() error {
	if strings.TrimSpace(r.ParticipantID) == "" {
		return ErrEmptyParticipantID
	}
	if len(r.ParticipantID) > MaxParticipantIDLength {
		return ErrParticipantIDTooLong
	}
	if r.Message == "" {
		return ErrEmptyMessage
	}
	if len(r.Message) > MaxMessageLength {
		return ErrMessageTooLong
	}
	if !r.NewSession && r.InterventionID <= 0 {
		return ErrMissingIntervention
	}
	return nil
}

// ChatResponse is the outbound payload for the /chat endpoint. BotResponse
// carries the reply split on paragraph boundaries so the client can render
// multiple bubbles.
type ChatResponse struct {
	BotResponse    []string      `json:"bot_response"`
	History        []ChatMessage `json:"history"`
	ParticipantID  string        `json:"participant_id"`
	InterventionID int           `json:"intervention_id"`
	Phase          Phase         `json:"phase"`
}

// APIStatus represents the possible status values for API responses.
type APIStatus string

const (
	// APIStatusOK indicates a successful API operation.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates a failed API operation.
	APIStatusError APIStatus = "error"
	// APIStatusRecorded indicates data was successfully recorded via API.
	APIStatusRecorded APIStatus = "recorded"
)

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`            // status of the API response
	Message string      `json:"message,omitempty"` // optional message for error responses or additional info
	Result  interface{} `json:"result,omitempty"`  // optional result data for successful responses
}

// APIResponseBuilder provides a fluent interface for building API responses.
type APIResponseBuilder struct {
	response APIResponse
}

// NewAPIResponseBuilder creates a new APIResponseBuilder instance.
func NewAPIResponseBuilder() *APIResponseBuilder {
	return &APIResponseBuilder{
		response: APIResponse{},
	}
}

// WithStatus sets the status of the API response.
func (b *APIResponseBuilder) WithStatus(status APIStatus) *APIResponseBuilder {
	b.response.Status = string(status)
	return b
}

// WithMessage sets the message of the API response.
func (b *APIResponseBuilder) WithMessage(message string) *APIResponseBuilder {
	b.response.Message = message
	return b
}

// WithResult sets the result data of the API response.
func (b *APIResponseBuilder) WithResult(result interface{}) *APIResponseBuilder {
	b.response.Result = result
	return b
}

// Build constructs and returns the final APIResponse.
func (b *APIResponseBuilder) Build() APIResponse {
	return b.response
}

// Convenience functions for common response patterns

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithResult(result).
		Build()
}

// SuccessWithMessage creates a successful API response with a message and optional result data.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusOK).
		WithMessage(message).
		WithResult(result).
		Build()
}

// Error creates an error API response with a message.
func Error(message string) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusError).
		WithMessage(message).
		Build()
}

// Recorded creates a recorded API response.
func Recorded() APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusRecorded).
		Build()
}

// RecordedWithMessage creates a recorded API response with a message.
func RecordedWithMessage(message string) APIResponse {
	return NewAPIResponseBuilder().
		WithStatus(APIStatusRecorded).
		WithMessage(message).
		Build()
}
