package service

import (
	"alcyxob/workout-journal/internal/domain"
	"alcyxob/workout-journal/internal/repository" // Import repository package
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ResolveStatus is the outcome class of a resolution.
type ResolveStatus string

const (
	ResolveStatusResolved  ResolveStatus = "resolved"
	ResolveStatusAmbiguous ResolveStatus = "ambiguous"
	ResolveStatusNotFound  ResolveStatus = "not_found"
)

// ResolveResult is Resolved(Exercise), Ambiguous(Candidates) or NotFound.
type ResolveResult struct {
	Status     ResolveStatus
	Exercise   *domain.Exercise
	Candidates []domain.Exercise
}

// --- Service Interface ---
type ExerciseService interface {
	// Resolve maps free text to a catalog exercise for userID. Ambiguity and absence are
	// results, not errors.
	Resolve(ctx context.Context, inputText, userID string) (*ResolveResult, error)
	// ConfirmMapping records the user's choice so the next Resolve of the same text short-circuits.
	ConfirmMapping(ctx context.Context, userID, inputText, exerciseID string) error
	AddUserSynonym(ctx context.Context, userID, text, exerciseID string) (*domain.ExerciseSynonym, error)
	GetExercise(ctx context.Context, exerciseID string) (*domain.Exercise, error)
	ListForNLU(ctx context.Context) ([]domain.ExerciseForNLU, error)
	ListGlobal(ctx context.Context) ([]domain.Exercise, error)
}

// --- Service Implementation ---

// exerciseService implements the ExerciseService interface.
type exerciseService struct {
	catalogRepo repository.CatalogRepository
	logger      *slog.Logger
}

// NewExerciseService creates a new instance of exerciseService.
func NewExerciseService(catalogRepo repository.CatalogRepository, logger *slog.Logger) ExerciseService {
	if logger == nil {
		logger = slog.Default()
	}
	return &exerciseService{
		catalogRepo: catalogRepo,
		logger:      logger.With("component", "exercise_service"),
	}
}

// Resolve runs, in order: user mapping, scoped synonym lookup, user-over-global priority,
// dedup by exercise. The first decisive step wins.
func (s *exerciseService) Resolve(ctx context.Context, inputText, userID string) (*ResolveResult, error) {
	normalized := domain.NormalizeText(inputText)
	if normalized == "" {
		return &ResolveResult{Status: ResolveStatusNotFound}, nil
	}

	match, err := s.catalogRepo.FindUserMapping(ctx, userID, normalized)
	switch {
	case err == nil:
		ex := match.Exercise
		return &ResolveResult{Status: ResolveStatusResolved, Exercise: &ex}, nil
	case !errors.Is(err, repository.ErrNotFound):
		return nil, storeErr("find user mapping", err)
	}

	synonyms, err := s.catalogRepo.FindSynonyms(ctx, normalized, userID)
	if err != nil {
		return nil, storeErr("find synonyms", err)
	}
	if len(synonyms) == 0 {
		return &ResolveResult{Status: ResolveStatusNotFound}, nil
	}

	relevant := synonyms
	var owned []domain.SynonymMatch
	for _, m := range synonyms {
		if m.Synonym.OwnedBy(userID) {
			owned = append(owned, m)
		}
	}
	if len(owned) > 0 {
		relevant = owned
	}

	// Dedup keeps first-seen order.
	seen := make(map[string]struct{}, len(relevant))
	candidates := make([]domain.Exercise, 0, len(relevant))
	for _, m := range relevant {
		if _, ok := seen[m.Exercise.ID]; ok {
			continue
		}
		seen[m.Exercise.ID] = struct{}{}
		candidates = append(candidates, m.Exercise)
	}

	if len(candidates) == 1 {
		return &ResolveResult{Status: ResolveStatusResolved, Exercise: &candidates[0]}, nil
	}
	return &ResolveResult{Status: ResolveStatusAmbiguous, Candidates: candidates}, nil
}

// ConfirmMapping persists a disambiguation choice.
func (s *exerciseService) ConfirmMapping(ctx context.Context, userID, inputText, exerciseID string) error {
	if userID == "" {
		return ErrNotAuthorized
	}
	normalized := domain.NormalizeText(inputText)
	if normalized == "" || exerciseID == "" {
		return fmt.Errorf("%w: input text and exercise ID are required", ErrValidationFailed)
	}
	if _, err := s.visibleExercise(ctx, exerciseID, userID); err != nil {
		return err
	}

	m, err := s.catalogRepo.UpsertUserMapping(ctx, userID, normalized, exerciseID)
	if err != nil {
		return storeErr("upsert user mapping", err)
	}
	s.logger.Debug("mapping confirmed", "user_id", userID, "input", normalized, "exercise_id", exerciseID, "use_count", m.UseCount)
	return nil
}

// AddUserSynonym creates a synonym scoped to userID.
func (s *exerciseService) AddUserSynonym(ctx context.Context, userID, text, exerciseID string) (*domain.ExerciseSynonym, error) {
	if userID == "" {
		return nil, ErrNotAuthorized
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: synonym text is required", ErrValidationFailed)
	}
	if _, err := s.visibleExercise(ctx, exerciseID, userID); err != nil {
		return nil, err
	}

	owner := userID
	syn := &domain.ExerciseSynonym{
		ExerciseID:  exerciseID,
		Synonym:     text,
		Normalized:  domain.NormalizeText(text),
		OwnerUserID: &owner,
	}
	id, err := s.catalogRepo.CreateSynonym(ctx, syn)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("%w: synonym already exists", ErrValidationFailed)
		}
		return nil, storeErr("create synonym", err)
	}
	syn.ID = id
	return syn, nil
}

// GetExercise retrieves a single exercise.
func (s *exerciseService) GetExercise(ctx context.Context, exerciseID string) (*domain.Exercise, error) {
	ex, err := s.catalogRepo.GetExerciseByID(ctx, exerciseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrExerciseNotFound
		}
		return nil, storeErr("get exercise", err)
	}
	return ex, nil
}

// ListForNLU returns the catalog slice the parser prompt needs.
func (s *exerciseService) ListForNLU(ctx context.Context) ([]domain.ExerciseForNLU, error) {
	exercises, err := s.ListGlobal(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ExerciseForNLU, len(exercises))
	for i := range exercises {
		out[i] = domain.ExerciseForNLU{
			CanonicalName: exercises[i].CanonicalName,
			DisplayName:   exercises[i].DisplayName(),
		}
	}
	return out, nil
}

// ListGlobal returns every global exercise.
func (s *exerciseService) ListGlobal(ctx context.Context) ([]domain.Exercise, error) {
	exercises, err := s.catalogRepo.ListGlobalExercises(ctx)
	if err != nil {
		return nil, storeErr("list exercises", err)
	}
	return exercises, nil
}

func (s *exerciseService) visibleExercise(ctx context.Context, exerciseID, userID string) (*domain.Exercise, error) {
	ex, err := s.GetExercise(ctx, exerciseID)
	if err != nil {
		return nil, err
	}
	if !ex.VisibleTo(userID) {
		return nil, ErrExerciseNotFound
	}
	return ex, nil
}
