// Package store provides storage backends for Aire session and biometric data.
//
// This file implements the PostgreSQL-backed store.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/kiarakitana/Thesis-Chatbot/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

const postgresSessionUpdateSet = `current_phase = $1, pending_instruction = $2, primary_emotion = $3, emotion_confidence = $4, triggers = $5, primary_trigger = $6, first_strategy = $7, second_strategy = $8, strategy_one_prompt = $9, strategy_two_prompt = $10, reflection_prompt = $11, identification_summary = $12, strategy_one_summary = $13, strategy_two_summary = $14, reflection_summary = $15, emotion_after_strategy_one = $16, emotion_after_strategy_two = $17, emotion_at_close = $18, start_time = $19, strategy_one_start = $20, strategy_two_start = $21, reflection_start = $22, end_time = $23, duration_seconds = $24, avg_user_message_words = $25, transcript = $26`

type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	// Apply options
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")
	// Determine DSN (required)
	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	// Configure connection pool for better performance
	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}
	// Run migrations to ensure tables exist
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) CreateSession(sess models.Session) error {
	args, err := sessionWriteArgs(sess)
	if err != nil {
		return err
	}
	all := append([]interface{}{sess.ParticipantID, sess.InterventionID}, args...)
	_, err = s.db.Exec(`INSERT INTO sessions (`+sessionColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28)`, all...)
	if err != nil {
		slog.Error("PostgresStore CreateSession failed", "error", err, "participant_id", sess.ParticipantID, "intervention_id", sess.InterventionID)
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetSession(participantID string, interventionID int) (*models.Session, error) {
	row := s.db.QueryRow(`SELECT `+sessionColumns+` FROM sessions WHERE participant_id = $1 AND intervention_id = $2`, participantID, interventionID)
	sess, err := scanSessionRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrSessionNotFound
	}
	if err != nil {
		slog.Error("PostgresStore GetSession scan failed", "error", err, "participant_id", participantID)
		return nil, fmt.Errorf("failed to scan session row: %w", err)
	}
	return sess, nil
}

func (s *PostgresStore) SaveSession(sess models.Session) error {
	args, err := sessionWriteArgs(sess)
	if err != nil {
		return err
	}
	all := append(args, sess.ParticipantID, sess.InterventionID)
	res, err := s.db.Exec(`UPDATE sessions SET `+postgresSessionUpdateSet+` WHERE participant_id = $27 AND intervention_id = $28`, all...)
	if err != nil {
		slog.Error("PostgresStore SaveSession failed", "error", err, "participant_id", sess.ParticipantID, "intervention_id", sess.InterventionID)
		return fmt.Errorf("failed to update session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrSessionNotFound
	}
	return nil
}

func (s *PostgresStore) CommitPhaseTransition(sess models.Session, from models.Phase) error {
	args, err := sessionWriteArgs(sess)
	if err != nil {
		return err
	}
	all := append(args, sess.ParticipantID, sess.InterventionID, string(from))
	res, err := s.db.Exec(`UPDATE sessions SET `+postgresSessionUpdateSet+` WHERE participant_id = $27 AND intervention_id = $28 AND current_phase = $29`, all...)
	if err != nil {
		slog.Error("PostgresStore CommitPhaseTransition failed", "error", err, "participant_id", sess.ParticipantID, "intervention_id", sess.InterventionID)
		return fmt.Errorf("failed to commit phase transition: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		if _, getErr := s.GetSession(sess.ParticipantID, sess.InterventionID); errors.Is(getErr, models.ErrSessionNotFound) {
			return models.ErrSessionNotFound
		}
		slog.Warn("PostgresStore CommitPhaseTransition rejected stale transition", "participant_id", sess.ParticipantID, "intervention_id", sess.InterventionID, "from_phase", from)
		return models.ErrPhaseConflict
	}
	return nil
}

func (s *PostgresStore) NextInterventionID(participantID string) (int, error) {
	var next int
	err := s.db.QueryRow(`SELECT COALESCE(MAX(intervention_id), 0) + 1 FROM sessions WHERE participant_id = $1`, participantID).Scan(&next)
	if err != nil {
		slog.Error("PostgresStore NextInterventionID failed", "error", err, "participant_id", participantID)
		return 0, fmt.Errorf("failed to compute next intervention id: %w", err)
	}
	return next, nil
}

func (s *PostgresStore) AddBiometricReadings(readings []models.BiometricReading) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin biometric transaction: %w", err)
	}
	for _, r := range readings {
		if err := r.Validate(); err != nil {
			tx.Rollback()
			return err
		}
		if _, err := tx.Exec(`INSERT INTO biometric_readings (participant_id, intervention_id, recorded_at, heart_rate, ibi_ms, skin_temp_celsius) VALUES ($1, $2, $3, $4, $5, $6)`,
			r.ParticipantID, r.InterventionID, r.RecordedAt, r.HeartRate, r.IBIMillis, r.SkinTempC); err != nil {
			tx.Rollback()
			slog.Error("PostgresStore AddBiometricReadings failed", "error", err, "participant_id", r.ParticipantID)
			return fmt.Errorf("failed to insert biometric reading: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit biometric readings: %w", err)
	}
	return nil
}

func (s *PostgresStore) LatestHeartRate(participantID string) (*models.BiometricReading, error) {
	var r models.BiometricReading
	err := s.db.QueryRow(`SELECT participant_id, intervention_id, recorded_at, heart_rate, ibi_ms, skin_temp_celsius FROM biometric_readings WHERE participant_id = $1 AND heart_rate IS NOT NULL ORDER BY recorded_at DESC LIMIT 1`, participantID).
		Scan(&r.ParticipantID, &r.InterventionID, &r.RecordedAt, &r.HeartRate, &r.IBIMillis, &r.SkinTempC)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore LatestHeartRate failed", "error", err, "participant_id", participantID)
		return nil, fmt.Errorf("failed to query latest heart rate: %w", err)
	}
	return &r, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
