package repository

import (
	"alcyxob/workout-journal/internal/domain" // Import our defined domain models
	"context"                                 // Standard for request-scoped deadlines, cancellation signals, etc.
	"time"
)

// Error constants for repository layer
var (
	ErrNotFound  = RepositoryError("not found")
	ErrConflict  = RepositoryError("conflict") // e.g. a second draft for the same user
	ErrDuplicate = RepositoryError("duplicate")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// UserRepository defines the interface for interacting with user data.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (string, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
}

// CatalogRepository is the Catalog Store: exercises, synonyms and per-user mappings.
// It holds no resolution policy.
type CatalogRepository interface {
	CreateExercise(ctx context.Context, exercise *domain.Exercise) (string, error)
	GetExerciseByID(ctx context.Context, id string) (*domain.Exercise, error)
	GetExerciseByCanonicalName(ctx context.Context, canonicalName string) (*domain.Exercise, error)
	ListGlobalExercises(ctx context.Context) ([]domain.Exercise, error)

	// CreateSynonym returns ErrDuplicate when the same normalized text already points at the
	// same exercise within the same scope.
	CreateSynonym(ctx context.Context, synonym *domain.ExerciseSynonym) (string, error)
	// FindSynonyms returns rows whose normalized text equals normalizedText and whose scope is
	// global or owned by userID, in insertion order.
	FindSynonyms(ctx context.Context, normalizedText, userID string) ([]domain.SynonymMatch, error)

	// FindUserMapping returns the preferred mapping for (userID, normalizedText): highest
	// UseCount, most recently confirmed first. ErrNotFound when there is none.
	FindUserMapping(ctx context.Context, userID, normalizedText string) (*domain.MappingMatch, error)
	// UpsertUserMapping creates the (user, text, exercise) row or increments its UseCount.
	UpsertUserMapping(ctx context.Context, userID, normalizedText, exerciseID string) (*domain.UserExerciseMapping, error)
}

// WorkoutRepository is the Draft Store. Every method is atomic.
type WorkoutRepository interface {
	// CreateWithChildren stores the workout with exercises, sets and comments.
	// ErrConflict when the user already has a draft.
	CreateWithChildren(ctx context.Context, workout *domain.Workout) (*domain.Workout, error)
	// SupersedeDraft deletes the user's current draft, if any, and stores workout as the new
	// draft in one unit. On error the previous draft is left as it was.
	SupersedeDraft(ctx context.Context, workout *domain.Workout) (*domain.Workout, error)
	// ReplaceChildren drops every exercise and workout-level comment, rewrites date and focus,
	// and stores the new children.
	ReplaceChildren(ctx context.Context, workoutID string, update domain.WorkoutUpdate, exercises []domain.WorkoutExercise, comments []domain.Comment) (*domain.Workout, error)
	FindByID(ctx context.Context, id string) (*domain.Workout, error)
	FindDraftByUser(ctx context.Context, userID string) (*domain.Workout, error)
	FindByUserAndDate(ctx context.Context, userID string, day time.Time) (*domain.Workout, error)
	UpdateStatus(ctx context.Context, id string, status domain.WorkoutStatus) (*domain.Workout, error)
	// UpdateMessageRefs sets only the non-empty fields of refs.
	UpdateMessageRefs(ctx context.Context, id string, refs domain.MessageRefs) error
	DeleteByID(ctx context.Context, id string) error
}

// DialogRepository persists dialog sessions, one per user.
type DialogRepository interface {
	Save(ctx context.Context, session *domain.DialogSession) error
	GetByUser(ctx context.Context, userID string) (*domain.DialogSession, error)
	DeleteByUser(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// LockRepository provides lease locks keyed by an arbitrary string.
type LockRepository interface {
	// TryAcquire takes the lock for owner unless another owner holds an unexpired lease.
	TryAcquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	// Release drops the lock only if owner still holds it.
	Release(ctx context.Context, key, owner string) error
}
