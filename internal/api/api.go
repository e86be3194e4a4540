// Package api provides the HTTP surface of the Aire backend.
//
// It exposes the chat endpoint driving the guided session flow, ingestion
// endpoints for wearable biometrics, and read access to archived sessions.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/kiarakitana/Thesis-Chatbot/internal/models"
	"github.com/kiarakitana/Thesis-Chatbot/internal/store"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":8080"

// regressionTimeout bounds calls to the external affect regression service.
const regressionTimeout = 10 * time.Second

// messageProcessor is the slice of the session flow the server needs.
type messageProcessor interface {
	ProcessMessage(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error)
}

// Opts holds configuration options for the API server.
type Opts struct {
	Addr          string // listen address, e.g. ":8080"
	RegressionURL string // optional URL of the affect regression service
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) {
		o.Addr = addr
	}
}

// WithRegressionURL sets the affect regression service endpoint. Sensor
// feature vectors are forwarded there when configured.
func WithRegressionURL(url string) Option {
	return func(o *Opts) {
		o.RegressionURL = url
	}
}

// Server wires the session flow and storage behind the HTTP endpoints.
type Server struct {
	addr          string
	flow          messageProcessor
	st            store.Store
	regressionURL string
	httpClient    *http.Client
}

// NewServer creates an API server around the session flow and store.
func NewServer(flow messageProcessor, st store.Store, opts ...Option) *Server {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	return &Server{
		addr:          cfg.Addr,
		flow:          flow,
		st:            st,
		regressionURL: cfg.RegressionURL,
		httpClient:    &http.Client{Timeout: regressionTimeout},
	}
}

// Handler returns the routing handler, exposed separately for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/chat", s.chatHandler)
	mux.HandleFunc("/biometrics", s.biometricsHandler)
	mux.HandleFunc("/sensor/features", s.sensorFeaturesHandler)
	mux.HandleFunc("/sessions/", s.sessionHandler)
	mux.HandleFunc("/health", s.healthHandler)
	return mux
}

// Run starts the HTTP server and blocks until it exits.
func (s *Server) Run() error {
	slog.Info("Server.Run: Aire API listening", "addr", s.addr)
	return http.ListenAndServe(s.addr, s.Handler())
}
