package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// TryAcquire inserts the lease or takes over an expired one. The conditional upsert
// returns no row while another owner holds a live lease.
func (d *DB) TryAcquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	now := nowUTC()
	var got string
	err := d.sql.QueryRowContext(ctx,
		`INSERT INTO processing_locks(key, owner, expires_at) VALUES($1, $2, $3)
		 ON CONFLICT (key) DO UPDATE SET owner = EXCLUDED.owner, expires_at = EXCLUDED.expires_at
		 WHERE processing_locks.expires_at <= $4 OR processing_locks.owner = EXCLUDED.owner
		 RETURNING owner;`,
		key, owner, now.Add(ttl), now,
	).Scan(&got)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return got == owner, nil
}

// Release deletes the lease only while owner still holds it.
func (d *DB) Release(ctx context.Context, key, owner string) error {
	_, err := d.sql.ExecContext(ctx, "DELETE FROM processing_locks WHERE key=$1 AND owner=$2;", key, owner)
	return err
}
