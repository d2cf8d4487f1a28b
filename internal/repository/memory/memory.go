// Package memory implements every repository port in memory for development and testing.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"alcyxob/workout-journal/internal/domain"
	"alcyxob/workout-journal/internal/repository"

	"github.com/google/uuid"
)

// DB implements an in-memory database storage.
type DB struct {
	mu        sync.Mutex
	users     []domain.User
	exercises []domain.Exercise
	synonyms  []domain.ExerciseSynonym
	mappings  []domain.UserExerciseMapping
	workouts  map[string]domain.Workout
	sessions  map[string]domain.DialogSession
	locks     map[string]lease

	now func() time.Time
}

type lease struct {
	owner     string
	expiresAt time.Time
}

// New creates a new in-memory database.
func New() *DB {
	return &DB{
		workouts: make(map[string]domain.Workout),
		sessions: make(map[string]domain.DialogSession),
		locks:    make(map[string]lease),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the time source used for lock leases.
func (db *DB) SetClock(now func() time.Time) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.now = now
}

// Ensure interfaces are met.
var _ repository.UserRepository = (*DB)(nil)
var _ repository.CatalogRepository = (*DB)(nil)
var _ repository.WorkoutRepository = (*DB)(nil)
var _ repository.DialogRepository = (*DB)(nil)
var _ repository.LockRepository = (*DB)(nil)

// --- UserRepository ---

// Create adds a user; emails are unique.
func (db *DB) Create(ctx context.Context, user *domain.User) (string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Email == user.Email {
			return "", repository.ErrDuplicate
		}
	}
	user.ID = uuid.NewString()
	now := db.now()
	user.CreatedAt = now
	user.UpdatedAt = now
	db.users = append(db.users, *user)
	return user.ID, nil
}

// GetByEmail finds a user by email.
func (db *DB) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.Email == email {
			ret := u
			return &ret, nil
		}
	}
	return nil, repository.ErrNotFound
}

// GetByID finds a user by ID.
func (db *DB) GetByID(ctx context.Context, id string) (*domain.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, u := range db.users {
		if u.ID == id {
			ret := u
			return &ret, nil
		}
	}
	return nil, repository.ErrNotFound
}

// --- CatalogRepository ---

// CreateExercise stores a catalog entry.
func (db *DB) CreateExercise(ctx context.Context, exercise *domain.Exercise) (string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, e := range db.exercises {
		if e.CanonicalName == exercise.CanonicalName && sameOwner(e.OwnerUserID, exercise.OwnerUserID) {
			return "", repository.ErrDuplicate
		}
	}
	if exercise.ID == "" {
		exercise.ID = uuid.NewString()
	}
	exercise.CreatedAt = db.now()
	db.exercises = append(db.exercises, cloneExercise(*exercise))
	return exercise.ID, nil
}

// GetExerciseByID finds an exercise by ID.
func (db *DB) GetExerciseByID(ctx context.Context, id string) (*domain.Exercise, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if e, ok := db.exerciseLocked(id); ok {
		return &e, nil
	}
	return nil, repository.ErrNotFound
}

// GetExerciseByCanonicalName finds a global exercise by canonical name.
func (db *DB) GetExerciseByCanonicalName(ctx context.Context, canonicalName string) (*domain.Exercise, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, e := range db.exercises {
		if e.CanonicalName == canonicalName && e.IsGlobal() {
			ret := cloneExercise(e)
			return &ret, nil
		}
	}
	return nil, repository.ErrNotFound
}

// ListGlobalExercises lists global exercises by canonical name.
func (db *DB) ListGlobalExercises(ctx context.Context) ([]domain.Exercise, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	out := make([]domain.Exercise, 0, len(db.exercises))
	for _, e := range db.exercises {
		if e.IsGlobal() {
			out = append(out, cloneExercise(e))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CanonicalName < out[j].CanonicalName })
	return out, nil
}

// CreateSynonym stores a synonym row.
func (db *DB) CreateSynonym(ctx context.Context, synonym *domain.ExerciseSynonym) (string, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.exerciseLocked(synonym.ExerciseID); !ok {
		return "", repository.ErrNotFound
	}
	synonym.Normalized = domain.NormalizeText(synonym.Synonym)
	for _, s := range db.synonyms {
		if s.Normalized == synonym.Normalized && s.ExerciseID == synonym.ExerciseID && sameOwner(s.OwnerUserID, synonym.OwnerUserID) {
			return "", repository.ErrDuplicate
		}
	}
	synonym.ID = uuid.NewString()
	synonym.Seq = int64(len(db.synonyms) + 1)
	synonym.CreatedAt = db.now()
	db.synonyms = append(db.synonyms, *synonym)
	return synonym.ID, nil
}

// FindSynonyms returns global and user-owned synonym rows for the text, in insertion order.
func (db *DB) FindSynonyms(ctx context.Context, normalizedText, userID string) ([]domain.SynonymMatch, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var out []domain.SynonymMatch
	for _, s := range db.synonyms {
		if s.Normalized != normalizedText {
			continue
		}
		if s.OwnerUserID != nil && *s.OwnerUserID != userID {
			continue
		}
		e, ok := db.exerciseLocked(s.ExerciseID)
		if !ok {
			continue
		}
		out = append(out, domain.SynonymMatch{Synonym: s, Exercise: e})
	}
	return out, nil
}

// FindUserMapping returns the most used, then most recent, mapping for the text.
func (db *DB) FindUserMapping(ctx context.Context, userID, normalizedText string) (*domain.MappingMatch, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var best *domain.UserExerciseMapping
	for i := range db.mappings {
		m := &db.mappings[i]
		if m.UserID != userID || m.InputText != normalizedText {
			continue
		}
		if best == nil || m.UseCount > best.UseCount || (m.UseCount == best.UseCount && m.UpdatedAt.After(best.UpdatedAt)) {
			best = m
		}
	}
	if best == nil {
		return nil, repository.ErrNotFound
	}
	e, ok := db.exerciseLocked(best.ExerciseID)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &domain.MappingMatch{Mapping: *best, Exercise: e}, nil
}

// UpsertUserMapping creates a mapping or bumps its counter.
func (db *DB) UpsertUserMapping(ctx context.Context, userID, normalizedText, exerciseID string) (*domain.UserExerciseMapping, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	now := db.now()
	for i := range db.mappings {
		m := &db.mappings[i]
		if m.UserID == userID && m.InputText == normalizedText && m.ExerciseID == exerciseID {
			m.UseCount++
			m.UpdatedAt = now
			ret := *m
			return &ret, nil
		}
	}
	m := domain.UserExerciseMapping{
		ID:         uuid.NewString(),
		UserID:     userID,
		InputText:  normalizedText,
		ExerciseID: exerciseID,
		UseCount:   1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	db.mappings = append(db.mappings, m)
	return &m, nil
}

func (db *DB) exerciseLocked(id string) (domain.Exercise, bool) {
	for _, e := range db.exercises {
		if e.ID == id {
			return cloneExercise(e), true
		}
	}
	return domain.Exercise{}, false
}

// --- WorkoutRepository ---

// CreateWithChildren stores the whole aggregate.
func (db *DB) CreateWithChildren(ctx context.Context, workout *domain.Workout) (*domain.Workout, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if workout.Status == domain.WorkoutStatusDraft {
		for _, w := range db.workouts {
			if w.UserID == workout.UserID && w.IsDraft() {
				return nil, repository.ErrConflict
			}
		}
	}
	w := cloneWorkout(*workout)
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	now := db.now()
	w.CreatedAt = now
	w.UpdatedAt = now
	db.workouts[w.ID] = w
	ret := cloneWorkout(w)
	return &ret, nil
}

// SupersedeDraft swaps the user's draft under one lock hold.
func (db *DB) SupersedeDraft(ctx context.Context, workout *domain.Workout) (*domain.Workout, error) {
	if workout.UserID == "" {
		return nil, errors.New("workout requires userId")
	}
	if !workout.IsDraft() {
		return nil, fmt.Errorf("supersede draft: workout status is %q", workout.Status)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	w := cloneWorkout(*workout)
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	if prev, ok := db.workouts[w.ID]; ok && !(prev.UserID == w.UserID && prev.IsDraft()) {
		return nil, repository.ErrConflict
	}
	for id, prev := range db.workouts {
		if prev.UserID == w.UserID && prev.IsDraft() {
			delete(db.workouts, id)
		}
	}
	now := db.now()
	w.CreatedAt = now
	w.UpdatedAt = now
	db.workouts[w.ID] = w
	ret := cloneWorkout(w)
	return &ret, nil
}

// ReplaceChildren swaps the exercise list and workout-level comments.
func (db *DB) ReplaceChildren(ctx context.Context, workoutID string, update domain.WorkoutUpdate, exercises []domain.WorkoutExercise, comments []domain.Comment) (*domain.Workout, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	w, ok := db.workouts[workoutID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	w.WorkoutDate = update.WorkoutDate
	w.Focus = append([]domain.Focus(nil), update.Focus...)
	w.Exercises = cloneExercises(exercises)
	w.Comments = append([]domain.Comment(nil), comments...)
	w.UpdatedAt = db.now()
	db.workouts[workoutID] = w
	ret := cloneWorkout(w)
	return &ret, nil
}

// FindByID finds a workout by ID.
func (db *DB) FindByID(ctx context.Context, id string) (*domain.Workout, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	w, ok := db.workouts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	ret := cloneWorkout(w)
	return &ret, nil
}

// FindDraftByUser finds the user's draft.
func (db *DB) FindDraftByUser(ctx context.Context, userID string) (*domain.Workout, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, w := range db.workouts {
		if w.UserID == userID && w.IsDraft() {
			ret := cloneWorkout(w)
			return &ret, nil
		}
	}
	return nil, repository.ErrNotFound
}

// FindByUserAndDate finds the most recently updated workout on the given day.
func (db *DB) FindByUserAndDate(ctx context.Context, userID string, day time.Time) (*domain.Workout, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	day = domain.TruncateDay(day)
	var found *domain.Workout
	for _, w := range db.workouts {
		if w.UserID != userID || !domain.TruncateDay(w.WorkoutDate).Equal(day) {
			continue
		}
		if found == nil || w.UpdatedAt.After(found.UpdatedAt) {
			c := cloneWorkout(w)
			found = &c
		}
	}
	if found == nil {
		return nil, repository.ErrNotFound
	}
	return found, nil
}

// UpdateStatus sets the workout status.
func (db *DB) UpdateStatus(ctx context.Context, id string, status domain.WorkoutStatus) (*domain.Workout, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	w, ok := db.workouts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	w.Status = status
	w.UpdatedAt = db.now()
	db.workouts[id] = w
	ret := cloneWorkout(w)
	return &ret, nil
}

// UpdateMessageRefs sets the non-empty refs.
func (db *DB) UpdateMessageRefs(ctx context.Context, id string, refs domain.MessageRefs) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	w, ok := db.workouts[id]
	if !ok {
		return repository.ErrNotFound
	}
	if refs.Source != "" {
		w.MessageRefs.Source = refs.Source
	}
	if refs.Preview != "" {
		w.MessageRefs.Preview = refs.Preview
	}
	if refs.Published != "" {
		w.MessageRefs.Published = refs.Published
	}
	w.UpdatedAt = db.now()
	db.workouts[id] = w
	return nil
}

// DeleteByID removes a workout with all its children.
func (db *DB) DeleteByID(ctx context.Context, id string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.workouts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(db.workouts, id)
	return nil
}

// --- DialogRepository ---

// Save upserts the user's session.
func (db *DB) Save(ctx context.Context, session *domain.DialogSession) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.sessions[session.UserID] = cloneSession(*session)
	return nil
}

// GetByUser loads the user's session.
func (db *DB) GetByUser(ctx context.Context, userID string) (*domain.DialogSession, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	s, ok := db.sessions[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	ret := cloneSession(s)
	return &ret, nil
}

// DeleteByUser drops the user's session; missing sessions are not an error.
func (db *DB) DeleteByUser(ctx context.Context, userID string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	delete(db.sessions, userID)
	return nil
}

// DeleteExpired drops every session whose ExpiresAt is before now.
func (db *DB) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	var n int64
	for k, s := range db.sessions {
		if s.Expired(now) {
			delete(db.sessions, k)
			n++
		}
	}
	return n, nil
}

// --- LockRepository ---

// TryAcquire takes the lease unless someone else holds an unexpired one.
func (db *DB) TryAcquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	now := db.now()
	if l, ok := db.locks[key]; ok && now.Before(l.expiresAt) {
		return false, nil
	}
	db.locks[key] = lease{owner: owner, expiresAt: now.Add(ttl)}
	return true, nil
}

// Release drops the lease if owner holds it.
func (db *DB) Release(ctx context.Context, key, owner string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if l, ok := db.locks[key]; ok && l.owner == owner {
		delete(db.locks, key)
	}
	return nil
}
