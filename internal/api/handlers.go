package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kiarakitana/Thesis-Chatbot/internal/biometrics"
	"github.com/kiarakitana/Thesis-Chatbot/internal/models"
)

// chatHandler drives one turn of the guided session (POST /chat).
func (s *Server) chatHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.chatHandler: processing chat request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.chatHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req models.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.chatHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}

	resp, err := s.flow.ProcessMessage(r.Context(), req)
	if err != nil {
		s.writeChatError(w, req, err)
		return
	}
	slog.Info("Server.chatHandler: turn processed",
		"participant_id", resp.ParticipantID, "intervention_id", resp.InterventionID, "phase", resp.Phase)
	writeJSONResponse(w, http.StatusOK, resp)
}

// writeChatError maps flow errors onto HTTP statuses. Client mistakes are
// 400s, upstream model failures 502, a lost race on a phase exit 409, and
// anything else is treated as a storage problem.
func (s *Server) writeChatError(w http.ResponseWriter, req models.ChatRequest, err error) {
	switch {
	case errors.Is(err, models.ErrEmptyParticipantID),
		errors.Is(err, models.ErrParticipantIDTooLong),
		errors.Is(err, models.ErrEmptyMessage),
		errors.Is(err, models.ErrMessageTooLong),
		errors.Is(err, models.ErrMissingIntervention):
		slog.Warn("Server.chatHandler: validation failed", "error", err, "participant_id", req.ParticipantID)
		writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
	case errors.Is(err, models.ErrCompletionFailed):
		slog.Error("Server.chatHandler: completion failed", "error", err, "participant_id", req.ParticipantID)
		writeJSONResponse(w, http.StatusBadGateway, models.Error("Failed to generate a reply"))
	case errors.Is(err, models.ErrPhaseConflict):
		slog.Warn("Server.chatHandler: concurrent phase exit", "participant_id", req.ParticipantID)
		writeJSONResponse(w, http.StatusConflict, models.Error("Phase was already advanced by another request"))
	default:
		slog.Error("Server.chatHandler: failed to process message", "error", err, "participant_id", req.ParticipantID)
		writeJSONResponse(w, http.StatusServiceUnavailable, models.Error("Failed to process message"))
	}
}

// biometricsHandler ingests a batch of wearable samples (POST /biometrics).
func (s *Server) biometricsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.biometricsHandler: processing ingest request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.biometricsHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var readings []models.BiometricReading
	if err := json.NewDecoder(r.Body).Decode(&readings); err != nil {
		slog.Warn("Server.biometricsHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if len(readings) == 0 {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("No readings provided"))
		return
	}
	for i := range readings {
		if readings[i].RecordedAt.IsZero() {
			readings[i].RecordedAt = time.Now().UTC()
		}
		if err := readings[i].Validate(); err != nil {
			slog.Warn("Server.biometricsHandler: validation failed", "error", err, "index", i)
			writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
			return
		}
	}
	if err := s.st.AddBiometricReadings(readings); err != nil {
		slog.Error("Server.biometricsHandler: failed to store readings", "error", err)
		writeJSONResponse(w, http.StatusServiceUnavailable, models.Error("Failed to store readings"))
		return
	}
	slog.Info("Server.biometricsHandler: readings recorded",
		"participant_id", readings[0].ParticipantID, "count", len(readings))
	writeJSONResponse(w, http.StatusCreated, models.RecordedWithMessage("Readings recorded successfully"))
}

// sensorFeaturesRequest is one raw sensor window submitted for feature
// extraction.
type sensorFeaturesRequest struct {
	ParticipantID  string                  `json:"participant_id"`
	InterventionID int                     `json:"intervention_id"`
	Window         biometrics.SensorWindow `json:"window"`
}

// sensorFeaturesResponse carries the extracted vector. Features whose source
// series was missing are null rather than zero.
type sensorFeaturesResponse struct {
	ParticipantID  string              `json:"participant_id"`
	InterventionID int                 `json:"intervention_id"`
	Features       map[string]*float64 `json:"features"`
	Valence        *float64            `json:"valence,omitempty"`
	Arousal        *float64            `json:"arousal,omitempty"`
}

// affectPrediction is the regression service's valence/arousal output.
type affectPrediction struct {
	Valence float64 `json:"valence"`
	Arousal float64 `json:"arousal"`
}

// sensorFeaturesHandler extracts the feature vector from a raw sensor window
// (POST /sensor/features) and forwards it to the affect regression service
// when one is configured. A regression outage degrades to features-only.
func (s *Server) sensorFeaturesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.sensorFeaturesHandler: processing feature request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.sensorFeaturesHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req sensorFeaturesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.sensorFeaturesHandler: failed to decode JSON", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid JSON format"))
		return
	}
	if req.ParticipantID == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error(models.ErrEmptyParticipantID.Error()))
		return
	}

	vector := biometrics.Features(req.Window)
	features := make(map[string]*float64, len(vector))
	for i, name := range biometrics.FeatureNames {
		if math.IsNaN(vector[i]) {
			features[name] = nil
			continue
		}
		v := vector[i]
		features[name] = &v
	}

	resp := sensorFeaturesResponse{
		ParticipantID:  req.ParticipantID,
		InterventionID: req.InterventionID,
		Features:       features,
	}
	if s.regressionURL != "" {
		if pred, err := s.forwardToRegression(resp); err != nil {
			slog.Warn("Server.sensorFeaturesHandler: regression service unavailable", "error", err)
		} else {
			resp.Valence = &pred.Valence
			resp.Arousal = &pred.Arousal
		}
	}
	writeJSONResponse(w, http.StatusOK, models.Success(resp))
}

// forwardToRegression posts the feature vector to the affect regression
// service and returns the predicted valence and arousal.
func (s *Server) forwardToRegression(payload sensorFeaturesResponse) (*affectPrediction, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	resp, err := s.httpClient.Post(s.regressionURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var out affectPrediction
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}

// sessionHandler returns an archived or in-progress session record
// (GET /sessions/{participantID}/{interventionID}).
func (s *Server) sessionHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.sessionHandler: processing session request", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/sessions/")
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) != 2 || segments[0] == "" {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Unknown session endpoint"))
		return
	}
	interventionID, err := strconv.Atoi(segments[1])
	if err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Invalid intervention id"))
		return
	}

	sess, err := s.st.GetSession(segments[0], interventionID)
	if errors.Is(err, models.ErrSessionNotFound) {
		writeJSONResponse(w, http.StatusNotFound, models.Error("Session not found"))
		return
	}
	if err != nil {
		slog.Error("Server.sessionHandler: failed to fetch session", "error", err)
		writeJSONResponse(w, http.StatusServiceUnavailable, models.Error("Failed to fetch session"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(sess))
}

// healthHandler provides a health check endpoint for monitoring and load balancing
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	healthData := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	writeJSONResponse(w, http.StatusOK, healthData)
}
