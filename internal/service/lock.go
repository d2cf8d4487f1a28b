package service

import (
	"alcyxob/workout-journal/internal/repository"
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// DefaultLockTTL bounds how long a crashed handler can keep a user locked out.
const DefaultLockTTL = 60 * time.Second

// ProcessingLock gates the triggering action of a capture or edit, one per user.
// It is never held across a dialog turn.
type ProcessingLock struct {
	locks  repository.LockRepository
	ttl    time.Duration
	logger *slog.Logger
}

// NewProcessingLock creates a lock over the given lease store.
func NewProcessingLock(locks repository.LockRepository, ttl time.Duration, logger *slog.Logger) *ProcessingLock {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessingLock{locks: locks, ttl: ttl, logger: logger.With("component", "processing_lock")}
}

func lockKey(userID string) string {
	return "user:" + userID
}

// WithUserLock runs fn while holding the user's lease. ErrSessionBusy when someone else
// holds it; fn does not run in that case.
func (l *ProcessingLock) WithUserLock(ctx context.Context, userID string, fn func(ctx context.Context) error) error {
	key := lockKey(userID)
	owner := uuid.NewString()

	ok, err := l.locks.TryAcquire(ctx, key, owner, l.ttl)
	if err != nil {
		return storeErr("acquire lock", err)
	}
	if !ok {
		return ErrSessionBusy
	}
	defer func() {
		// The request context may already be done; release on a fresh one.
		relCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := l.locks.Release(relCtx, key, owner); err != nil {
			l.logger.Error("failed to release lock", "user_id", userID, "error", err)
		}
	}()

	return fn(ctx)
}
