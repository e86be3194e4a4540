// Package store provides storage backends for Aire session and biometric data.
//
// It includes an in-memory store for tests and development, plus SQLite and
// PostgreSQL backed stores for deployment.
package store

import (
	"sort"
	"sync"

	"github.com/kiarakitana/Thesis-Chatbot/internal/models"
)

// Store is the persistence interface used by the session flow and API layer.
type Store interface {
	// CreateSession inserts a new session record.
	CreateSession(s models.Session) error
	// GetSession returns the session record, or models.ErrSessionNotFound.
	GetSession(participantID string, interventionID int) (*models.Session, error)
	// SaveSession overwrites the session record unconditionally.
	SaveSession(s models.Session) error
	// CommitPhaseTransition overwrites the session record only if the stored
	// phase still equals from. A concurrent change yields models.ErrPhaseConflict,
	// a missing record models.ErrSessionNotFound.
	CommitPhaseTransition(s models.Session, from models.Phase) error
	// NextInterventionID returns max(intervention_id)+1 for the participant.
	NextInterventionID(participantID string) (int, error)
	// AddBiometricReadings persists a batch of wearable samples.
	AddBiometricReadings(readings []models.BiometricReading) error
	// LatestHeartRate returns the most recent reading carrying a heart rate,
	// or nil when the participant has none.
	LatestHeartRate(participantID string) (*models.BiometricReading, error)
	// Close releases the underlying resources.
	Close() error
}

// InMemoryStore is a Store backed by maps, safe for concurrent use.
type InMemoryStore struct {
	mu         sync.RWMutex
	sessions   map[models.SessionKey]models.Session
	biometrics map[string][]models.BiometricReading
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions:   make(map[models.SessionKey]models.Session),
		biometrics: make(map[string][]models.BiometricReading),
	}
}

func (s *InMemoryStore) CreateSession(sess models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.Key()] = sess
	return nil
}

func (s *InMemoryStore) GetSession(participantID string, interventionID int) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[models.SessionKey{ParticipantID: participantID, InterventionID: interventionID}]
	if !ok {
		return nil, models.ErrSessionNotFound
	}
	copied := sess
	return &copied, nil
}

func (s *InMemoryStore) SaveSession(sess models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.Key()] = sess
	return nil
}

func (s *InMemoryStore) CommitPhaseTransition(sess models.Session, from models.Phase) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.sessions[sess.Key()]
	if !ok {
		return models.ErrSessionNotFound
	}
	if current.CurrentPhase != from {
		return models.ErrPhaseConflict
	}
	s.sessions[sess.Key()] = sess
	return nil
}

func (s *InMemoryStore) NextInterventionID(participantID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	max := 0
	for key := range s.sessions {
		if key.ParticipantID == participantID && key.InterventionID > max {
			max = key.InterventionID
		}
	}
	return max + 1, nil
}

func (s *InMemoryStore) AddBiometricReadings(readings []models.BiometricReading) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range readings {
		if err := r.Validate(); err != nil {
			return err
		}
		s.biometrics[r.ParticipantID] = append(s.biometrics[r.ParticipantID], r)
	}
	return nil
}

func (s *InMemoryStore) LatestHeartRate(participantID string) (*models.BiometricReading, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	readings := s.biometrics[participantID]
	withHR := make([]models.BiometricReading, 0, len(readings))
	for _, r := range readings {
		if r.HeartRate != nil {
			withHR = append(withHR, r)
		}
	}
	if len(withHR) == 0 {
		return nil, nil
	}
	sort.Slice(withHR, func(i, j int) bool { return withHR[i].RecordedAt.After(withHR[j].RecordedAt) })
	latest := withHR[0]
	return &latest, nil
}

func (s *InMemoryStore) Close() error {
	return nil
}
