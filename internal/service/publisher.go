package service

import (
	"alcyxob/workout-journal/internal/domain"
	"alcyxob/workout-journal/internal/storage"
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Publication is where an approved workout was rendered to.
type Publication struct {
	Key string // object key, recorded as the workout's published ref
	URL string // temporary download link
}

// Publisher renders approved workouts somewhere outside the store.
type Publisher interface {
	// Publish returns nil without error when publishing is disabled.
	Publish(ctx context.Context, w *domain.Workout, text string) (*Publication, error)
}

type storagePublisher struct {
	files     storage.FileStorage
	urlExpiry time.Duration
	logger    *slog.Logger
}

// NewPublisher stores published text in files. A nil files disables publishing.
func NewPublisher(files storage.FileStorage, logger *slog.Logger) Publisher {
	if files == nil {
		return noopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &storagePublisher{
		files:     files,
		urlExpiry: storage.DefaultPresignedURLExpiry,
		logger:    logger.With("component", "publisher"),
	}
}

// PublicationKey is the object key of a workout's published text.
func PublicationKey(w *domain.Workout) string {
	return fmt.Sprintf("workouts/%s/%s-%s.txt", w.UserID, w.WorkoutDate.UTC().Format(domain.DateLayout), w.ID)
}

func (p *storagePublisher) Publish(ctx context.Context, w *domain.Workout, text string) (*Publication, error) {
	key := PublicationKey(w)
	if err := p.files.PutObject(ctx, key, "text/plain; charset=utf-8", []byte(text)); err != nil {
		return nil, fmt.Errorf("publish workout: %w", err)
	}
	url, err := p.files.GeneratePresignedDownloadURL(ctx, key, p.urlExpiry)
	if err != nil {
		// The object is stored; only the link is missing.
		p.logger.Warn("presign failed", "key", key, "error", err)
		url = ""
	}
	// An edit that moved the workout date leaves the old object behind.
	if prev := w.MessageRefs.Published; prev != "" && prev != key {
		if err := p.files.DeleteObject(ctx, prev); err != nil {
			p.logger.Warn("stale publication not removed", "key", prev, "error", err)
		}
	}
	p.logger.Info("workout published", "workout_id", w.ID, "key", key)
	return &Publication{Key: key, URL: url}, nil
}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, *domain.Workout, string) (*Publication, error) {
	return nil, nil
}
