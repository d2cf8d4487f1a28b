package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"alcyxob/workout-journal/internal/domain"
	"alcyxob/workout-journal/internal/repository"
)

// Save upserts the user's dialog session.
func (d *DB) Save(ctx context.Context, session *domain.DialogSession) error {
	if session.UserID == "" {
		return errors.New("dialog session requires userId")
	}
	payload, err := json.Marshal(session)
	if err != nil {
		return err
	}
	_, err = d.sql.ExecContext(ctx,
		`INSERT INTO dialog_sessions(user_id, payload, expires_at) VALUES($1, $2, $3)
		 ON CONFLICT (user_id) DO UPDATE SET payload = EXCLUDED.payload, expires_at = EXCLUDED.expires_at;`,
		session.UserID, string(payload), session.ExpiresAt.UTC(),
	)
	return err
}

// GetByUser loads the user's dialog session.
func (d *DB) GetByUser(ctx context.Context, userID string) (*domain.DialogSession, error) {
	var payload []byte
	err := d.sql.QueryRowContext(ctx, "SELECT payload FROM dialog_sessions WHERE user_id=$1;", userID).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	var s domain.DialogSession
	if err := json.Unmarshal(payload, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// DeleteByUser removes the user's session if any.
func (d *DB) DeleteByUser(ctx context.Context, userID string) error {
	_, err := d.sql.ExecContext(ctx, "DELETE FROM dialog_sessions WHERE user_id=$1;", userID)
	return err
}

// DeleteExpired removes sessions that expired before now.
func (d *DB) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := d.sql.ExecContext(ctx, "DELETE FROM dialog_sessions WHERE expires_at < $1;", now.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
