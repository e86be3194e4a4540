package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kiarakitana/Thesis-Chatbot/internal/biometrics"
	"github.com/kiarakitana/Thesis-Chatbot/internal/models"
	"github.com/kiarakitana/Thesis-Chatbot/internal/store"
)

// mockFlow implements messageProcessor for testing.
type mockFlow struct {
	resp    *models.ChatResponse
	err     error
	lastReq models.ChatRequest
}

func (m *mockFlow) ProcessMessage(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error) {
	m.lastReq = req
	return m.resp, m.err
}

func newTestServer(flow *mockFlow, st store.Store, opts ...Option) *httptest.Server {
	return httptest.NewServer(NewServer(flow, st, opts...).Handler())
}

func postJSON(t *testing.T, url string, payload interface{}) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("failed to marshal payload: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func TestChatHandler_Success(t *testing.T) {
	flow := &mockFlow{resp: &models.ChatResponse{
		BotResponse:    []string{"hello there"},
		ParticipantID:  "p1",
		InterventionID: 1,
		Phase:          models.PhaseIdentification,
	}}
	srv := newTestServer(flow, store.NewInMemoryStore())
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/chat", models.ChatRequest{
		ParticipantID: "p1",
		NewSession:    true,
		Message:       "hi",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var out models.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(out.BotResponse) != 1 || out.BotResponse[0] != "hello there" {
		t.Errorf("unexpected bot response: %v", out.BotResponse)
	}
	if flow.lastReq.ParticipantID != "p1" || !flow.lastReq.NewSession {
		t.Errorf("request not forwarded to flow: %+v", flow.lastReq)
	}
}

func TestChatHandler_InvalidJSON(t *testing.T) {
	srv := newTestServer(&mockFlow{}, store.NewInMemoryStore())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/chat", "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestChatHandler_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(&mockFlow{}, store.NewInMemoryStore())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/chat")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", resp.StatusCode)
	}
}

func TestChatHandler_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"validation", models.ErrEmptyMessage, http.StatusBadRequest},
		{"missing intervention", models.ErrMissingIntervention, http.StatusBadRequest},
		{"completion", fmt.Errorf("%w: upstream timeout", models.ErrCompletionFailed), http.StatusBadGateway},
		{"phase conflict", models.ErrPhaseConflict, http.StatusConflict},
		{"storage", fmt.Errorf("failed to load session: disk on fire"), http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		srv := newTestServer(&mockFlow{err: tc.err}, store.NewInMemoryStore())
		resp := postJSON(t, srv.URL+"/chat", models.ChatRequest{ParticipantID: "p1", NewSession: true, Message: "hi"})
		if resp.StatusCode != tc.want {
			t.Errorf("%s: expected %d, got %d", tc.name, tc.want, resp.StatusCode)
		}
		resp.Body.Close()
		srv.Close()
	}
}

func TestBiometricsHandler(t *testing.T) {
	st := store.NewInMemoryStore()
	srv := newTestServer(&mockFlow{}, st)
	defer srv.Close()

	hr := 88.0
	resp := postJSON(t, srv.URL+"/biometrics", []models.BiometricReading{{
		ParticipantID:  "p1",
		InterventionID: 1,
		RecordedAt:     time.Now(),
		HeartRate:      &hr,
	}})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	var out models.APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if out.Status != string(models.APIStatusRecorded) {
		t.Errorf("expected recorded status, got %q", out.Status)
	}

	latest, err := st.LatestHeartRate("p1")
	if err != nil || latest == nil || *latest.HeartRate != 88 {
		t.Errorf("reading not stored: %v %v", latest, err)
	}
}

func TestBiometricsHandler_EmptyBatch(t *testing.T) {
	srv := newTestServer(&mockFlow{}, store.NewInMemoryStore())
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/biometrics", []models.BiometricReading{})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestBiometricsHandler_InvalidReading(t *testing.T) {
	srv := newTestServer(&mockFlow{}, store.NewInMemoryStore())
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/biometrics", []models.BiometricReading{{InterventionID: 1}})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestSensorFeaturesHandler(t *testing.T) {
	srv := newTestServer(&mockFlow{}, store.NewInMemoryStore())
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/sensor/features", sensorFeaturesRequest{
		ParticipantID:  "p1",
		InterventionID: 1,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var out struct {
		Result sensorFeaturesResponse `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	// An empty window yields a full vector of nulls, never an encoding error.
	if len(out.Result.Features) != 29 {
		t.Fatalf("expected 29 features, got %d", len(out.Result.Features))
	}
	if out.Result.Features["rmssd"] != nil {
		t.Errorf("expected null rmssd for an empty window, got %v", *out.Result.Features["rmssd"])
	}
	if out.Result.Valence != nil || out.Result.Arousal != nil {
		t.Error("affect prediction should be absent without a regression service")
	}
}

func TestSensorFeaturesHandler_ForwardsToRegression(t *testing.T) {
	regression := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var in sensorFeaturesResponse
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Errorf("regression payload unreadable: %v", err)
		}
		if in.ParticipantID != "p1" {
			t.Errorf("unexpected participant in regression payload: %q", in.ParticipantID)
		}
		json.NewEncoder(w).Encode(map[string]float64{"valence": 0.72, "arousal": 0.31})
	}))
	defer regression.Close()

	srv := newTestServer(&mockFlow{}, store.NewInMemoryStore(), WithRegressionURL(regression.URL))
	defer srv.Close()

	resp := postJSON(t, srv.URL+"/sensor/features", sensorFeaturesRequest{
		ParticipantID: "p1",
		Window:        biometrics.SensorWindow{IBI: []float64{800, 850, 820}},
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var out struct {
		Result sensorFeaturesResponse `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if out.Result.Valence == nil || *out.Result.Valence != 0.72 {
		t.Errorf("expected valence 0.72, got %v", out.Result.Valence)
	}
	if out.Result.Arousal == nil || *out.Result.Arousal != 0.31 {
		t.Errorf("expected arousal 0.31, got %v", out.Result.Arousal)
	}
}

func TestSessionHandler(t *testing.T) {
	st := store.NewInMemoryStore()
	if err := st.CreateSession(models.Session{
		ParticipantID:  "p1",
		InterventionID: 2,
		CurrentPhase:   models.PhaseReflection,
		StartTime:      time.Now(),
	}); err != nil {
		t.Fatalf("failed to seed session: %v", err)
	}
	srv := newTestServer(&mockFlow{}, st)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/sessions/p1/2")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var out struct {
		Result models.Session `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if out.Result.CurrentPhase != models.PhaseReflection {
		t.Errorf("unexpected phase: %q", out.Result.CurrentPhase)
	}
}

func TestSessionHandler_NotFound(t *testing.T) {
	srv := newTestServer(&mockFlow{}, store.NewInMemoryStore())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/sessions/p1/99")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestSessionHandler_BadInterventionID(t *testing.T) {
	srv := newTestServer(&mockFlow{}, store.NewInMemoryStore())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/sessions/p1/latest")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestHealthHandler(t *testing.T) {
	srv := newTestServer(&mockFlow{}, store.NewInMemoryStore())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if out["status"] != "healthy" {
		t.Errorf("unexpected health status: %v", out["status"])
	}
}
