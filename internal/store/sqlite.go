// Package store provides storage backends for Aire session and biometric data.
//
// This file implements the SQLite-backed store.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/kiarakitana/Thesis-Chatbot/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// Constants for SQLite store configuration
const (
	// DefaultDirPermissions defines the default permissions for database directories
	DefaultDirPermissions = 0755
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

const sqliteSessionUpdateSet = `current_phase = ?, pending_instruction = ?, primary_emotion = ?, emotion_confidence = ?, triggers = ?, primary_trigger = ?, first_strategy = ?, second_strategy = ?, strategy_one_prompt = ?, strategy_two_prompt = ?, reflection_prompt = ?, identification_summary = ?, strategy_one_summary = ?, strategy_two_summary = ?, reflection_summary = ?, emotion_after_strategy_one = ?, emotion_after_strategy_two = ?, emotion_at_close = ?, start_time = ?, strategy_one_start = ?, strategy_two_start = ?, reflection_start = ?, end_time = ?, duration_seconds = ?, avg_user_message_words = ?, transcript = ?`

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	// Apply options
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	// Determine DSN (required)
	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	// Ensure the directory exists
	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}

	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	// Run migrations to ensure tables exist
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) CreateSession(sess models.Session) error {
	args, err := sessionWriteArgs(sess)
	if err != nil {
		return err
	}
	all := append([]interface{}{sess.ParticipantID, sess.InterventionID}, args...)
	_, err = s.db.Exec(`INSERT INTO sessions (`+sessionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, all...)
	if err != nil {
		slog.Error("SQLiteStore CreateSession failed", "error", err, "participant_id", sess.ParticipantID, "intervention_id", sess.InterventionID)
		return fmt.Errorf("failed to insert session: %w", err)
	}
	slog.Debug("SQLiteStore CreateSession succeeded", "participant_id", sess.ParticipantID, "intervention_id", sess.InterventionID)
	return nil
}

func (s *SQLiteStore) GetSession(participantID string, interventionID int) (*models.Session, error) {
	row := s.db.QueryRow(`SELECT `+sessionColumns+` FROM sessions WHERE participant_id = ? AND intervention_id = ?`, participantID, interventionID)
	sess, err := scanSessionRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrSessionNotFound
	}
	if err != nil {
		slog.Error("SQLiteStore GetSession scan failed", "error", err, "participant_id", participantID)
		return nil, fmt.Errorf("failed to scan session row: %w", err)
	}
	return sess, nil
}

func (s *SQLiteStore) SaveSession(sess models.Session) error {
	args, err := sessionWriteArgs(sess)
	if err != nil {
		return err
	}
	all := append(args, sess.ParticipantID, sess.InterventionID)
	res, err := s.db.Exec(`UPDATE sessions SET `+sqliteSessionUpdateSet+` WHERE participant_id = ? AND intervention_id = ?`, all...)
	if err != nil {
		slog.Error("SQLiteStore SaveSession failed", "error", err, "participant_id", sess.ParticipantID, "intervention_id", sess.InterventionID)
		return fmt.Errorf("failed to update session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.ErrSessionNotFound
	}
	return nil
}

func (s *SQLiteStore) CommitPhaseTransition(sess models.Session, from models.Phase) error {
	args, err := sessionWriteArgs(sess)
	if err != nil {
		return err
	}
	all := append(args, sess.ParticipantID, sess.InterventionID, string(from))
	res, err := s.db.Exec(`UPDATE sessions SET `+sqliteSessionUpdateSet+` WHERE participant_id = ? AND intervention_id = ? AND current_phase = ?`, all...)
	if err != nil {
		slog.Error("SQLiteStore CommitPhaseTransition failed", "error", err, "participant_id", sess.ParticipantID, "intervention_id", sess.InterventionID)
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
		slog.Warn("SQLiteStore CommitPhaseTransition rejected stale transition", "participant_id", sess.ParticipantID, "intervention_id", sess.InterventionID, "from_phase", from)
		return models.ErrPhaseConflict
	}
	return nil
}

func (s *SQLiteStore) NextInterventionID(participantID string) (int, error) {
	var next int
	err := s.db.QueryRow(`SELECT COALESCE(MAX(intervention_id), 0) + 1 FROM sessions WHERE participant_id = ?`, participantID).Scan(&next)
	if err != nil {
		slog.Error("SQLiteStore NextInterventionID failed", "error", err, "participant_id", participantID)
		return 0, fmt.Errorf("failed to compute next intervention id: %w", err)
	}
	return next, nil
}

func (s *SQLiteStore) AddBiometricReadings(readings []models.BiometricReading) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin biometric transaction: %w", err)
	}
	for _, r := range readings {
		if err := r.Validate(); err != nil {
			tx.Rollback()
			return err
		}
		if _, err := tx.Exec(`INSERT INTO biometric_readings (participant_id, intervention_id, recorded_at, heart_rate, ibi_ms, skin_temp_celsius) VALUES (?, ?, ?, ?, ?, ?)`,
			r.ParticipantID, r.InterventionID, r.RecordedAt, r.HeartRate, r.IBIMillis, r.SkinTempC); err != nil {
			tx.Rollback()
			slog.Error("SQLiteStore AddBiometricReadings failed", "error", err, "participant_id", r.ParticipantID)
			return fmt.Errorf("failed to insert biometric reading: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit biometric readings: %w", err)
	}
	slog.Debug("SQLiteStore AddBiometricReadings succeeded", "count", len(readings))
	return nil
}

func (s *SQLiteStore) LatestHeartRate(participantID string) (*models.BiometricReading, error) {
	var r models.BiometricReading
	err := s.db.QueryRow(`SELECT participant_id, intervention_id, recorded_at, heart_rate, ibi_ms, skin_temp_celsius FROM biometric_readings WHERE participant_id = ? AND heart_rate IS NOT NULL ORDER BY recorded_at DESC LIMIT 1`, participantID).
		Scan(&r.ParticipantID, &r.InterventionID, &r.RecordedAt, &r.HeartRate, &r.IBIMillis, &r.SkinTempC)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore LatestHeartRate failed", "error", err, "participant_id", participantID)
		return nil, fmt.Errorf("failed to query latest heart rate: %w", err)
	}
	return &r, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
