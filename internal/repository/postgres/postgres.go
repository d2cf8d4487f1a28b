// Package postgres implements every repository port on PostgreSQL through lib/pq.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"alcyxob/workout-journal/internal/repository"

	"github.com/lib/pq"
)

// DB wraps a *sql.DB and implements the repository interfaces.
type DB struct {
	sql *sql.DB
}

var _ repository.UserRepository = (*DB)(nil)
var _ repository.CatalogRepository = (*DB)(nil)
var _ repository.WorkoutRepository = (*DB)(nil)
var _ repository.DialogRepository = (*DB)(nil)
var _ repository.LockRepository = (*DB)(nil)

// Open connects to PostgreSQL, pings, and runs migrations.
func Open(connStr string) (*DB, error) {
	s, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	s.SetMaxOpenConns(10)
	s.SetMaxIdleConns(5)
	s.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.PingContext(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}

	d := &DB{sql: s}
	if err := d.migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return d, nil
}

// Close closes the underlying database connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

func (d *DB) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS exercises (
			id TEXT PRIMARY KEY,
			canonical_name TEXT NOT NULL,
			display_name_ru TEXT NOT NULL DEFAULT '',
			display_name_en TEXT NOT NULL DEFAULT '',
			muscle_groups TEXT[] NOT NULL DEFAULT '{}',
			category TEXT NOT NULL DEFAULT '',
			owner_user_id TEXT,
			created_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_exercises_global_name ON exercises(canonical_name) WHERE owner_user_id IS NULL;`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_exercises_owned_name ON exercises(canonical_name, owner_user_id) WHERE owner_user_id IS NOT NULL;`,
		`CREATE TABLE IF NOT EXISTS exercise_synonyms (
			id TEXT PRIMARY KEY,
			seq BIGSERIAL,
			exercise_id TEXT NOT NULL REFERENCES exercises(id) ON DELETE CASCADE,
			synonym TEXT NOT NULL,
			normalized TEXT NOT NULL,
			language TEXT NOT NULL DEFAULT '',
			owner_user_id TEXT,
			created_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_synonyms_normalized ON exercise_synonyms(normalized, seq);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_synonyms_scope ON exercise_synonyms(normalized, exercise_id, COALESCE(owner_user_id, ''));`,
		`CREATE TABLE IF NOT EXISTS user_exercise_mappings (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			input_text TEXT NOT NULL,
			exercise_id TEXT NOT NULL REFERENCES exercises(id) ON DELETE CASCADE,
			use_count INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL,
			UNIQUE (user_id, input_text, exercise_id)
		);`,
		`CREATE TABLE IF NOT EXISTS workouts (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			workout_date DATE NOT NULL,
			focus TEXT[] NOT NULL DEFAULT '{}',
			status TEXT NOT NULL CHECK(status IN ('draft','approved')),
			comments JSONB NOT NULL DEFAULT '[]',
			source_ref TEXT NOT NULL DEFAULT '',
			preview_ref TEXT NOT NULL DEFAULT '',
			published_ref TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_workouts_user_date ON workouts(user_id, workout_date);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_workouts_one_draft ON workouts(user_id) WHERE status = 'draft';`,
		`CREATE TABLE IF NOT EXISTS workout_exercises (
			id TEXT PRIMARY KEY,
			workout_id TEXT NOT NULL REFERENCES workouts(id) ON DELETE CASCADE,
			exercise_id TEXT,
			raw_name TEXT NOT NULL,
			sort_order INTEGER NOT NULL,
			sets JSONB NOT NULL DEFAULT '[]',
			comments JSONB NOT NULL DEFAULT '[]'
		);`,
		`CREATE INDEX IF NOT EXISTS idx_workout_exercises_workout ON workout_exercises(workout_id, sort_order);`,
		`CREATE TABLE IF NOT EXISTS dialog_sessions (
			user_id TEXT PRIMARY KEY,
			payload JSONB NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_dialog_sessions_expires_at ON dialog_sessions(expires_at);`,
		`CREATE TABLE IF NOT EXISTS processing_locks (
			key TEXT PRIMARY KEY,
			owner TEXT NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL
		);`,
	}

	for _, stmt := range stmts {
		if _, err := d.sql.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// uniqueViolation is the SQLSTATE for unique constraint failures.
const uniqueViolation = pq.ErrorCode("23505")

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
