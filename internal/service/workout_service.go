package service

import (
	"alcyxob/workout-journal/internal/domain"
	"alcyxob/workout-journal/internal/repository"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// DraftStatus is the outcome class of a lifecycle operation.
type DraftStatus string

const (
	DraftStatusCreated             DraftStatus = "created"
	DraftStatusUpdated             DraftStatus = "updated"
	DraftStatusNeedsDisambiguation DraftStatus = "needs_disambiguation"
)

// AmbiguousExercise points at an unresolved entry of the submitted exercise list.
type AmbiguousExercise struct {
	Index    int
	Exercise domain.ParsedExercise
}

// DraftResult is Created(workout), Updated(workout) or NeedsDisambiguation(ambiguous).
type DraftResult struct {
	Status    DraftStatus
	Workout   *domain.Workout
	Ambiguous []AmbiguousExercise
}

// NeedsDisambiguation reports whether the caller must settle entries and resubmit.
func (r *DraftResult) NeedsDisambiguation() bool {
	return r.Status == DraftStatusNeedsDisambiguation
}

// --- Service Interface ---
type WorkoutService interface {
	// CreateDraft resolves parsed and, when nothing is left unresolved, replaces the user's
	// draft with a new one. Resolved entries are settled in place on parsed.
	CreateDraft(ctx context.Context, userID string, parsed *domain.ParsedWorkout) (*DraftResult, error)
	// ApplyEdits replaces the workout's children with delta. Resolved entries are settled in place.
	ApplyEdits(ctx context.Context, workoutID, userID string, delta *domain.EditDelta) (*DraftResult, error)
	ApproveDraft(ctx context.Context, workoutID, userID string) (*domain.Workout, error)
	// CancelDraft deletes a draft. Approved workouts are never deleted here.
	CancelDraft(ctx context.Context, workoutID, userID string) error
	GetDraftForUser(ctx context.Context, userID string) (*domain.Workout, error)
	FindByDate(ctx context.Context, userID string, date time.Time) (*domain.Workout, error)
	GetWorkout(ctx context.Context, workoutID, userID string) (*domain.Workout, error)
	UpdateMessageRefs(ctx context.Context, workoutID, userID string, refs domain.MessageRefs) error
}

// --- Service Implementation ---

type workoutService struct {
	workoutRepo repository.WorkoutRepository
	exercises   ExerciseService
	logger      *slog.Logger
}

// NewWorkoutService creates the draft lifecycle manager.
func NewWorkoutService(workoutRepo repository.WorkoutRepository, exercises ExerciseService, logger *slog.Logger) WorkoutService {
	if logger == nil {
		logger = slog.Default()
	}
	return &workoutService{
		workoutRepo: workoutRepo,
		exercises:   exercises,
		logger:      logger.With("component", "workout_service"),
	}
}

func (s *workoutService) CreateDraft(ctx context.Context, userID string, parsed *domain.ParsedWorkout) (*DraftResult, error) {
	if userID == "" {
		return nil, ErrNotAuthorized
	}
	if parsed == nil {
		return nil, fmt.Errorf("%w: parsed workout is required", ErrValidationFailed)
	}
	workoutDate, err := parsed.WorkoutDate()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	ambiguous, err := s.resolvePass(ctx, userID, parsed.Exercises)
	if err != nil {
		return nil, err
	}
	if len(ambiguous) > 0 {
		return &DraftResult{Status: DraftStatusNeedsDisambiguation, Ambiguous: ambiguous}, nil
	}

	// Last writer wins: a stale draft is dropped, never merged, in the same store
	// operation that writes the new one.
	workout := &domain.Workout{
		ID:          uuid.NewString(),
		UserID:      userID,
		WorkoutDate: workoutDate,
		Focus:       focusTags(parsed.Focus),
		Status:      domain.WorkoutStatusDraft,
		Exercises:   buildExercises(parsed.Exercises),
		Comments:    buildComments(parsed.GeneralComments),
	}
	created, err := s.workoutRepo.SupersedeDraft(ctx, workout)
	if err != nil {
		return nil, storeErr("create draft", err)
	}
	s.logger.Info("draft created", "user_id", userID, "workout_id", created.ID, "exercises", len(created.Exercises))
	return &DraftResult{Status: DraftStatusCreated, Workout: created}, nil
}

func (s *workoutService) ApplyEdits(ctx context.Context, workoutID, userID string, delta *domain.EditDelta) (*DraftResult, error) {
	if userID == "" {
		return nil, ErrNotAuthorized
	}
	if delta == nil {
		return nil, fmt.Errorf("%w: edit delta is required", ErrValidationFailed)
	}
	current, err := s.GetWorkout(ctx, workoutID, userID)
	if err != nil {
		return nil, err
	}

	update := domain.WorkoutUpdate{WorkoutDate: current.WorkoutDate, Focus: current.Focus}
	comments := current.Comments
	switch delta.Kind {
	case domain.DeltaFullWorkout:
		if delta.Workout == nil {
			return nil, fmt.Errorf("%w: full workout delta without workout", ErrValidationFailed)
		}
		d, err := delta.Workout.WorkoutDate()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
		}
		update = domain.WorkoutUpdate{WorkoutDate: d, Focus: focusTags(delta.Workout.Focus)}
		comments = buildComments(delta.Workout.GeneralComments)
	case domain.DeltaExerciseList:
		// Date, focus and workout comments stay as they are.
	default:
		return nil, fmt.Errorf("%w: unknown delta kind %q", ErrValidationFailed, delta.Kind)
	}

	list := delta.ExerciseList()
	ambiguous, err := s.resolvePass(ctx, userID, list)
	if err != nil {
		return nil, err
	}
	if len(ambiguous) > 0 {
		return &DraftResult{Status: DraftStatusNeedsDisambiguation, Ambiguous: ambiguous}, nil
	}

	updated, err := s.workoutRepo.ReplaceChildren(ctx, current.ID, update, buildExercises(list), comments)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrWorkoutNotFound
		}
		return nil, storeErr("replace workout children", err)
	}
	s.logger.Info("workout replaced", "user_id", userID, "workout_id", updated.ID, "exercises", len(updated.Exercises))
	return &DraftResult{Status: DraftStatusUpdated, Workout: updated}, nil
}

func (s *workoutService) ApproveDraft(ctx context.Context, workoutID, userID string) (*domain.Workout, error) {
	w, err := s.GetWorkout(ctx, workoutID, userID)
	if err != nil {
		return nil, err
	}
	if !w.IsDraft() {
		return nil, ErrWorkoutNotDraft
	}
	approved, err := s.workoutRepo.UpdateStatus(ctx, w.ID, domain.WorkoutStatusApproved)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrWorkoutNotFound
		}
		return nil, storeErr("approve draft", err)
	}
	s.logger.Info("draft approved", "user_id", userID, "workout_id", w.ID)
	return approved, nil
}

func (s *workoutService) CancelDraft(ctx context.Context, workoutID, userID string) error {
	w, err := s.GetWorkout(ctx, workoutID, userID)
	if err != nil {
		return err
	}
	if !w.IsDraft() {
		return ErrWorkoutNotDraft
	}
	if err := s.workoutRepo.DeleteByID(ctx, w.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return storeErr("delete draft", err)
	}
	s.logger.Info("draft cancelled", "user_id", userID, "workout_id", w.ID)
	return nil
}

func (s *workoutService) GetDraftForUser(ctx context.Context, userID string) (*domain.Workout, error) {
	if userID == "" {
		return nil, ErrNotAuthorized
	}
	w, err := s.workoutRepo.FindDraftByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrWorkoutNotFound
		}
		return nil, storeErr("find draft", err)
	}
	return w, nil
}

func (s *workoutService) FindByDate(ctx context.Context, userID string, date time.Time) (*domain.Workout, error) {
	if userID == "" {
		return nil, ErrNotAuthorized
	}
	w, err := s.workoutRepo.FindByUserAndDate(ctx, userID, domain.TruncateDay(date))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrWorkoutNotFound
		}
		return nil, storeErr("find workout by date", err)
	}
	return w, nil
}

// GetWorkout loads a workout and checks ownership.
func (s *workoutService) GetWorkout(ctx context.Context, workoutID, userID string) (*domain.Workout, error) {
	if userID == "" {
		return nil, ErrNotAuthorized
	}
	w, err := s.workoutRepo.FindByID(ctx, workoutID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrWorkoutNotFound
		}
		return nil, storeErr("find workout", err)
	}
	if w.UserID != userID {
		return nil, ErrForbidden
	}
	return w, nil
}

func (s *workoutService) UpdateMessageRefs(ctx context.Context, workoutID, userID string, refs domain.MessageRefs) error {
	if _, err := s.GetWorkout(ctx, workoutID, userID); err != nil {
		return err
	}
	if err := s.workoutRepo.UpdateMessageRefs(ctx, workoutID, refs); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrWorkoutNotFound
		}
		return storeErr("update message refs", err)
	}
	return nil
}

// --- Helpers ---

// resolvePass settles every entry the engine resolves and returns the rest. Entries that
// already carry a mapped id are accepted without a lookup.
func (s *workoutService) resolvePass(ctx context.Context, userID string, list []domain.ParsedExercise) ([]AmbiguousExercise, error) {
	var ambiguous []AmbiguousExercise
	for i := range list {
		p := &list[i]
		if p.IsSettled() {
			continue
		}
		res, err := s.exercises.Resolve(ctx, p.OriginalName, userID)
		if err != nil {
			return nil, err
		}
		if res.Status == ResolveStatusResolved {
			p.Settle(res.Exercise.ID)
			continue
		}
		p.IsAmbiguous = true
		ambiguous = append(ambiguous, AmbiguousExercise{Index: i, Exercise: *p})
	}
	return ambiguous, nil
}

func focusTags(f domain.Focus) []domain.Focus {
	if f == "" {
		return []domain.Focus{}
	}
	return []domain.Focus{f}
}

func buildExercises(list []domain.ParsedExercise) []domain.WorkoutExercise {
	out := make([]domain.WorkoutExercise, 0, len(list))
	for i := range list {
		p := &list[i]
		we := domain.WorkoutExercise{
			ID:        uuid.NewString(),
			RawName:   p.OriginalName,
			SortOrder: i,
			Sets:      make([]domain.ExerciseSet, 0, len(p.Sets)),
			Comments:  buildComments(p.Comments),
		}
		if !p.IsRaw() {
			id := *p.MappedExerciseID
			we.ExerciseID = &id
		}
		for n, ps := range p.Sets {
			set := domain.ExerciseSet{
				SetNumber: n + 1,
				Weight:    ps.Weight,
				Duration:  ps.Duration,
				Distance:  ps.Distance,
				RPE:       ps.RPE,
			}
			if ps.Reps != nil {
				set.Reps = *ps.Reps
			}
			we.Sets = append(we.Sets, set)
		}
		out = append(out, we)
	}
	return out
}

func buildComments(in []domain.ParsedComment) []domain.Comment {
	out := make([]domain.Comment, 0, len(in))
	for _, c := range in {
		out = append(out, domain.Comment{ID: uuid.NewString(), Type: domain.CommentTypeOther, Text: c.Text})
	}
	return out
}
