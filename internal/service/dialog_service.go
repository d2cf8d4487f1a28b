package service

import (
	"alcyxob/workout-journal/internal/domain"
	"alcyxob/workout-journal/internal/nlu"
	"alcyxob/workout-journal/internal/repository"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Choice tokens understood by Choose.
const (
	ChoiceTokenMapPrefix   = "map:"
	ChoiceTokenNewExercise = "new_exercise"
)

// Review actions understood by Review.
const (
	ReviewApprove = "approve"
	ReviewEdit    = "edit"
	ReviewCancel  = "cancel"
)

// DefaultDialogTimeout is how long a session waits for the user.
const DefaultDialogTimeout = 5 * time.Minute

// Choice is one selectable option of a prompt.
type Choice struct {
	Token string `json:"token"`
	Label string `json:"label"`
}

// ChoicePrompt asks the user which exercise a mention refers to.
type ChoicePrompt struct {
	ExerciseName string   `json:"exerciseName"`
	Choices      []Choice `json:"choices"`
}

// DialogStep is what the user sees after each event.
type DialogStep struct {
	SessionID    string             `json:"sessionId,omitempty"`
	State        domain.DialogState `json:"state"`
	Prompt       *ChoicePrompt      `json:"prompt,omitempty"`
	Message      string             `json:"message,omitempty"`
	Workout      *domain.Workout    `json:"workout,omitempty"`
	Preview      string             `json:"preview,omitempty"`
	PublishedURL string             `json:"publishedUrl,omitempty"`
}

// CaptureRequest starts a new-workout dialog from text, a voice message or an already
// parsed workout.
type CaptureRequest struct {
	Text   string
	Audio  *nlu.Audio
	Parsed *domain.ParsedWorkout
}

// EditRequest starts an edit dialog from text, a voice message or an explicit delta.
type EditRequest struct {
	Text  string
	Audio *nlu.Audio
	Delta *domain.EditDelta
}

// --- Service Interface ---
type DialogService interface {
	StartCapture(ctx context.Context, userID string, req CaptureRequest) (*DialogStep, error)
	StartEdit(ctx context.Context, userID, workoutID string, req EditRequest) (*DialogStep, error)
	// Choose answers the pending prompt. Unknown tokens re-issue the same prompt.
	Choose(ctx context.Context, userID, token string) (*DialogStep, error)
	Review(ctx context.Context, userID, action, text string) (*DialogStep, error)
	// ReviewEdit is the edit review action with a full request, so voice edits work too.
	ReviewEdit(ctx context.Context, userID string, req EditRequest) (*DialogStep, error)
	// FindForEdit returns the workout on the day a phrase like "вчерашняя" names.
	FindForEdit(ctx context.Context, userID, phrase string) (*domain.Workout, error)
	Current(ctx context.Context, userID string) (*DialogStep, error)
	// Cancel ends the dialog in any state, deleting a draft the new-workout flow created.
	Cancel(ctx context.Context, userID string) (*DialogStep, error)
	SweepExpired(ctx context.Context) (int64, error)
	RunSweeper(ctx context.Context, interval time.Duration)
}

// --- Service Implementation ---

type dialogService struct {
	dialogRepo  repository.DialogRepository
	workouts    WorkoutService
	exercises   ExerciseService
	parser      nlu.Parser
	transcriber nlu.Transcriber
	publisher   Publisher
	lock        *ProcessingLock
	timeout     time.Duration
	now         func() time.Time
	logger      *slog.Logger
}

// NewDialogService wires the disambiguation dialog. parser may be nil, in which case only
// pre-parsed input is accepted; a nil transcriber rejects voice input.
func NewDialogService(
	dialogRepo repository.DialogRepository,
	workouts WorkoutService,
	exercises ExerciseService,
	parser nlu.Parser,
	transcriber nlu.Transcriber,
	publisher Publisher,
	lock *ProcessingLock,
	timeout time.Duration,
	logger *slog.Logger,
) DialogService {
	if timeout <= 0 {
		timeout = DefaultDialogTimeout
	}
	if publisher == nil {
		publisher = noopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &dialogService{
		dialogRepo:  dialogRepo,
		workouts:    workouts,
		exercises:   exercises,
		parser:      parser,
		transcriber: transcriber,
		publisher:   publisher,
		lock:        lock,
		timeout:     timeout,
		now:         time.Now,
		logger:      logger.With("component", "dialog_service"),
	}
}

// --- Entry points ---

func (s *dialogService) StartCapture(ctx context.Context, userID string, req CaptureRequest) (*DialogStep, error) {
	if userID == "" {
		return nil, ErrNotAuthorized
	}
	var step *DialogStep
	err := s.lock.WithUserLock(ctx, userID, func(ctx context.Context) error {
		parsed, err := s.captureInput(ctx, userID, req)
		if err != nil {
			return err
		}
		sess := s.newSession(userID, domain.DialogFlowNew, domain.DialogOpCreate, "", domain.FullWorkoutDelta(*parsed))
		s.logger.Info("capture started", "user_id", userID, "session_id", sess.ID, "exercises", len(parsed.Exercises))
		step, err = s.advance(ctx, sess)
		return err
	})
	return step, err
}

func (s *dialogService) StartEdit(ctx context.Context, userID, workoutID string, req EditRequest) (*DialogStep, error) {
	if userID == "" {
		return nil, ErrNotAuthorized
	}
	var step *DialogStep
	err := s.lock.WithUserLock(ctx, userID, func(ctx context.Context) error {
		w, err := s.workouts.GetWorkout(ctx, workoutID, userID)
		if err != nil {
			return err
		}
		delta, err := s.editInput(ctx, userID, w, req)
		if err != nil {
			return err
		}
		sess := s.newSession(userID, domain.DialogFlowEdit, domain.DialogOpEdit, w.ID, *delta)
		s.logger.Info("edit started", "user_id", userID, "session_id", sess.ID, "workout_id", w.ID, "kind", delta.Kind)
		step, err = s.advance(ctx, sess)
		return err
	})
	return step, err
}

func (s *dialogService) Choose(ctx context.Context, userID, token string) (*DialogStep, error) {
	if userID == "" {
		return nil, ErrNotAuthorized
	}
	var step *DialogStep
	err := s.lock.WithUserLock(ctx, userID, func(ctx context.Context) error {
		sess, err := s.load(ctx, userID)
		if err != nil {
			return err
		}
		if sess.State != domain.DialogStateAwaitingChoice || sess.Current == nil {
			return ErrInvalidDialogAction
		}

		list := sess.Delta.ExerciseList()
		pending := sess.Current
		if pending.Index < 0 || pending.Index >= len(list) {
			return fmt.Errorf("dialog session %s points past its exercise list", sess.ID)
		}
		entry := &list[pending.Index]

		token = strings.TrimSpace(token)
		switch {
		case token == ChoiceTokenNewExercise:
			entry.Settle(domain.RawExerciseID)
			s.logger.Info("exercise kept as raw", "user_id", userID, "input", pending.OriginalName)
		case strings.HasPrefix(token, ChoiceTokenMapPrefix) && pending.Offers(strings.TrimPrefix(token, ChoiceTokenMapPrefix)):
			exerciseID := strings.TrimPrefix(token, ChoiceTokenMapPrefix)
			// Committed before the next pass so the engine's mapping fast path sees it.
			if err := s.exercises.ConfirmMapping(ctx, userID, pending.OriginalName, exerciseID); err != nil {
				return err
			}
			entry.Settle(exerciseID)
		default:
			step = s.promptStep(sess)
			step.Message = "Please pick one of the options below."
			return nil
		}

		sess.Current = nil
		step, err = s.advance(ctx, sess)
		return err
	})
	return step, err
}

func (s *dialogService) Review(ctx context.Context, userID, action, text string) (*DialogStep, error) {
	if userID == "" {
		return nil, ErrNotAuthorized
	}
	var step *DialogStep
	err := s.lock.WithUserLock(ctx, userID, func(ctx context.Context) error {
		sess, err := s.load(ctx, userID)
		if err != nil {
			return err
		}
		if sess.State != domain.DialogStateAwaitingReview {
			return ErrInvalidDialogAction
		}

		switch strings.ToLower(strings.TrimSpace(action)) {
		case ReviewApprove:
			step, err = s.approve(ctx, sess)
		case ReviewEdit:
			step, err = s.reviewEdit(ctx, sess, EditRequest{Text: text})
		case ReviewCancel:
			step, err = s.cancel(ctx, sess)
		default:
			return fmt.Errorf("%w: unknown review action %q", ErrInvalidDialogAction, action)
		}
		return err
	})
	return step, err
}

func (s *dialogService) ReviewEdit(ctx context.Context, userID string, req EditRequest) (*DialogStep, error) {
	if userID == "" {
		return nil, ErrNotAuthorized
	}
	var step *DialogStep
	err := s.lock.WithUserLock(ctx, userID, func(ctx context.Context) error {
		sess, err := s.load(ctx, userID)
		if err != nil {
			return err
		}
		if sess.State != domain.DialogStateAwaitingReview {
			return ErrInvalidDialogAction
		}
		step, err = s.reviewEdit(ctx, sess, req)
		return err
	})
	return step, err
}

func (s *dialogService) FindForEdit(ctx context.Context, userID, phrase string) (*domain.Workout, error) {
	if userID == "" {
		return nil, ErrNotAuthorized
	}
	if strings.TrimSpace(phrase) == "" {
		return nil, fmt.Errorf("%w: phrase is required", ErrValidationFailed)
	}
	if s.parser == nil {
		return nil, ErrParserUnavailable
	}
	day, err := s.parser.ParseDate(ctx, phrase, s.now())
	if err != nil {
		return nil, err
	}
	w, err := s.workouts.FindByDate(ctx, userID, day)
	if err != nil {
		if errors.Is(err, ErrWorkoutNotFound) {
			return nil, fmt.Errorf("%w on %s", ErrWorkoutNotFound, day.Format(time.DateOnly))
		}
		return nil, err
	}
	s.logger.Info("workout located by phrase", "user_id", userID, "date", day.Format(time.DateOnly), "workout_id", w.ID)
	return w, nil
}

func (s *dialogService) Current(ctx context.Context, userID string) (*DialogStep, error) {
	if userID == "" {
		return nil, ErrNotAuthorized
	}
	sess, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sess.State == domain.DialogStateAwaitingChoice && sess.Current != nil {
		return s.promptStep(sess), nil
	}
	w, err := s.workouts.GetWorkout(ctx, sess.WorkoutID, userID)
	if err != nil {
		return nil, err
	}
	return s.reviewStep(ctx, sess, w, "")
}

func (s *dialogService) Cancel(ctx context.Context, userID string) (*DialogStep, error) {
	if userID == "" {
		return nil, ErrNotAuthorized
	}
	var step *DialogStep
	err := s.lock.WithUserLock(ctx, userID, func(ctx context.Context) error {
		sess, err := s.load(ctx, userID)
		if err != nil {
			return err
		}
		step, err = s.cancel(ctx, sess)
		return err
	})
	return step, err
}

// SweepExpired drops every session that outlived its wait bound.
func (s *dialogService) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.dialogRepo.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, storeErr("delete expired dialogs", err)
	}
	if n > 0 {
		s.logger.Info("expired dialogs removed", "count", n)
	}
	return n, nil
}

// RunSweeper calls SweepExpired every interval until ctx is done.
func (s *dialogService) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.SweepExpired(ctx); err != nil && ctx.Err() == nil {
				s.logger.Error("dialog sweep failed", "error", err)
			}
		}
	}
}

// --- State machine ---

// advance runs lifecycle passes and settles entries until the session needs the user again
// or the operation completes. The session is persisted before returning a prompt or review.
func (s *dialogService) advance(ctx context.Context, sess *domain.DialogSession) (*DialogStep, error) {
	list := sess.Delta.ExerciseList()
	for {
		if len(sess.Queue) == 0 {
			result, err := s.runOp(ctx, sess)
			if err != nil {
				return nil, err
			}
			if !result.NeedsDisambiguation() {
				return s.enterReview(ctx, sess, result)
			}
			for _, a := range result.Ambiguous {
				sess.Queue = append(sess.Queue, a.Index)
			}
			continue
		}

		idx := sess.Queue[0]
		sess.Queue = sess.Queue[1:]
		entry := &list[idx]
		if entry.IsSettled() {
			continue
		}

		// A mapping confirmed earlier in this dialog may settle repeated mentions.
		res, err := s.exercises.Resolve(ctx, entry.OriginalName, sess.UserID)
		if err != nil {
			return nil, err
		}
		if res.Status == ResolveStatusResolved {
			entry.Settle(res.Exercise.ID)
			continue
		}
		// Each exercise is asked about at most once per op.
		if sess.WasPresented(idx) {
			s.logger.Warn("exercise already presented, kept as raw", "user_id", sess.UserID, "session_id", sess.ID, "input", entry.OriginalName)
			entry.Settle(domain.RawExerciseID)
			continue
		}

		candidates := make([]domain.ChoiceCandidate, 0, len(res.Candidates))
		for i := range res.Candidates {
			candidates = append(candidates, domain.ChoiceCandidate{
				ExerciseID: res.Candidates[i].ID,
				Label:      res.Candidates[i].DisplayName(),
			})
		}
		sess.Current = &domain.PendingChoice{Index: idx, OriginalName: entry.OriginalName, Candidates: candidates}
		sess.Presented = append(sess.Presented, idx)
		sess.State = domain.DialogStateAwaitingChoice
		if err := s.save(ctx, sess); err != nil {
			return nil, err
		}
		return s.promptStep(sess), nil
	}
}

func (s *dialogService) runOp(ctx context.Context, sess *domain.DialogSession) (*DraftResult, error) {
	switch sess.Op {
	case domain.DialogOpCreate:
		if sess.Delta.Workout == nil {
			return nil, fmt.Errorf("dialog session %s has no workout to create", sess.ID)
		}
		return s.workouts.CreateDraft(ctx, sess.UserID, sess.Delta.Workout)
	case domain.DialogOpEdit:
		return s.workouts.ApplyEdits(ctx, sess.WorkoutID, sess.UserID, &sess.Delta)
	default:
		return nil, fmt.Errorf("dialog session %s has unknown op %q", sess.ID, sess.Op)
	}
}

func (s *dialogService) enterReview(ctx context.Context, sess *domain.DialogSession, result *DraftResult) (*DialogStep, error) {
	sess.WorkoutID = result.Workout.ID
	sess.State = domain.DialogStateAwaitingReview
	sess.Current = nil
	sess.Queue = nil
	sess.Presented = nil
	if err := s.save(ctx, sess); err != nil {
		return nil, err
	}
	msg := "Workout saved as draft. Approve, edit or cancel."
	if result.Status == DraftStatusUpdated {
		msg = "Workout updated. Approve, edit or cancel."
	}
	return s.reviewStep(ctx, sess, result.Workout, msg)
}

func (s *dialogService) approve(ctx context.Context, sess *domain.DialogSession) (*DialogStep, error) {
	w, err := s.workouts.GetWorkout(ctx, sess.WorkoutID, sess.UserID)
	if err != nil {
		return nil, err
	}
	if w.IsDraft() {
		if w, err = s.workouts.ApproveDraft(ctx, w.ID, sess.UserID); err != nil {
			return nil, err
		}
	}

	idx := s.exerciseIndex(ctx, w)
	text := FormatPreview(w, idx)
	pub, err := s.publisher.Publish(ctx, w, text)
	if err != nil {
		// The workout is approved either way.
		s.logger.Error("publish failed", "user_id", sess.UserID, "workout_id", w.ID, "error", err)
	}
	step := &DialogStep{
		SessionID: sess.ID,
		State:     domain.DialogStateCompleted,
		Message:   "Workout approved.",
		Workout:   w,
		Preview:   text,
	}
	if pub != nil {
		if err := s.workouts.UpdateMessageRefs(ctx, w.ID, sess.UserID, domain.MessageRefs{Published: pub.Key}); err != nil {
			return nil, err
		}
		w.MessageRefs.Published = pub.Key
		step.PublishedURL = pub.URL
	}
	if err := s.drop(ctx, sess.UserID); err != nil {
		return nil, err
	}
	s.logger.Info("dialog completed", "user_id", sess.UserID, "session_id", sess.ID, "workout_id", w.ID)
	return step, nil
}

func (s *dialogService) reviewEdit(ctx context.Context, sess *domain.DialogSession, req EditRequest) (*DialogStep, error) {
	if strings.TrimSpace(req.Text) == "" && req.Audio == nil && req.Delta == nil {
		return nil, fmt.Errorf("%w: edit text is required", ErrValidationFailed)
	}
	w, err := s.workouts.GetWorkout(ctx, sess.WorkoutID, sess.UserID)
	if err != nil {
		return nil, err
	}
	delta, err := s.editInput(ctx, sess.UserID, w, req)
	if err != nil {
		return nil, err
	}
	sess.Op = domain.DialogOpEdit
	sess.Delta = *delta
	sess.Queue = nil
	sess.Presented = nil
	sess.Current = nil
	return s.advance(ctx, sess)
}

func (s *dialogService) cancel(ctx context.Context, sess *domain.DialogSession) (*DialogStep, error) {
	if sess.Flow == domain.DialogFlowNew && sess.WorkoutID != "" {
		err := s.workouts.CancelDraft(ctx, sess.WorkoutID, sess.UserID)
		if err != nil && !errors.Is(err, ErrWorkoutNotFound) && !errors.Is(err, ErrWorkoutNotDraft) {
			return nil, err
		}
	}
	if err := s.drop(ctx, sess.UserID); err != nil {
		return nil, err
	}
	s.logger.Info("dialog cancelled", "user_id", sess.UserID, "session_id", sess.ID, "flow", sess.Flow)
	return &DialogStep{SessionID: sess.ID, State: domain.DialogStateCancelled, Message: "Cancelled."}, nil
}

// --- Input ---

func (s *dialogService) captureInput(ctx context.Context, userID string, req CaptureRequest) (*domain.ParsedWorkout, error) {
	if req.Parsed != nil {
		if err := nlu.ValidateWorkout(req.Parsed); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
		}
		if err := s.dropUnknownIDs(ctx, userID, req.Parsed.Exercises); err != nil {
			return nil, err
		}
		return req.Parsed, nil
	}
	text, err := s.inputText(ctx, req.Text, req.Audio)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, fmt.Errorf("%w: text or parsed workout is required", ErrValidationFailed)
	}
	if s.parser == nil {
		return nil, ErrParserUnavailable
	}
	return s.parser.Parse(ctx, text, s.now())
}

func (s *dialogService) editInput(ctx context.Context, userID string, w *domain.Workout, req EditRequest) (*domain.EditDelta, error) {
	if req.Delta != nil {
		if err := nlu.ValidateDelta(req.Delta); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
		}
		if err := s.dropUnknownIDs(ctx, userID, req.Delta.ExerciseList()); err != nil {
			return nil, err
		}
		return req.Delta, nil
	}
	text, err := s.inputText(ctx, req.Text, req.Audio)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, fmt.Errorf("%w: text or delta is required", ErrValidationFailed)
	}
	if s.parser == nil {
		return nil, ErrParserUnavailable
	}
	current, err := FormatWorkoutForNLU(w, s.exerciseIndex(ctx, w))
	if err != nil {
		return nil, err
	}
	return s.parser.ParseEdit(ctx, text, s.now(), current)
}

// inputText returns the trimmed message text, transcribing audio when it is given.
func (s *dialogService) inputText(ctx context.Context, text string, audio *nlu.Audio) (string, error) {
	if audio == nil {
		return strings.TrimSpace(text), nil
	}
	if s.transcriber == nil {
		return "", ErrTranscriberUnavailable
	}
	if s.parser == nil {
		return "", ErrParserUnavailable
	}
	out, err := s.transcriber.Transcribe(ctx, *audio)
	if err != nil {
		return "", err
	}
	s.logger.Info("voice message transcribed", "chars", len([]rune(out)))
	return strings.TrimSpace(out), nil
}

// dropUnknownIDs clears caller-supplied ids that do not name an exercise visible to userID,
// sending those entries through resolution instead.
func (s *dialogService) dropUnknownIDs(ctx context.Context, userID string, list []domain.ParsedExercise) error {
	for i := range list {
		p := &list[i]
		if !p.IsSettled() || p.IsRaw() {
			continue
		}
		ex, err := s.exercises.GetExercise(ctx, *p.MappedExerciseID)
		switch {
		case errors.Is(err, ErrExerciseNotFound):
			p.MappedExerciseID = nil
		case err != nil:
			return err
		case !ex.VisibleTo(userID):
			p.MappedExerciseID = nil
		}
	}
	return nil
}

// --- Persistence ---

func (s *dialogService) newSession(userID string, flow domain.DialogFlow, op domain.DialogOp, workoutID string, delta domain.EditDelta) *domain.DialogSession {
	now := s.now()
	return &domain.DialogSession{
		ID:        uuid.NewString(),
		UserID:    userID,
		Flow:      flow,
		Op:        op,
		WorkoutID: workoutID,
		Delta:     delta,
		CreatedAt: now,
	}
}

func (s *dialogService) load(ctx context.Context, userID string) (*domain.DialogSession, error) {
	sess, err := s.dialogRepo.GetByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoActiveDialog
		}
		return nil, storeErr("load dialog", err)
	}
	if sess.Expired(s.now()) {
		s.logger.Info("dialog expired", "user_id", userID, "session_id", sess.ID)
		if err := s.drop(ctx, userID); err != nil {
			return nil, err
		}
		return nil, ErrNoActiveDialog
	}
	return sess, nil
}

func (s *dialogService) save(ctx context.Context, sess *domain.DialogSession) error {
	now := s.now()
	sess.UpdatedAt = now
	sess.ExpiresAt = now.Add(s.timeout)
	if err := s.dialogRepo.Save(ctx, sess); err != nil {
		return storeErr("save dialog", err)
	}
	return nil
}

func (s *dialogService) drop(ctx context.Context, userID string) error {
	if err := s.dialogRepo.DeleteByUser(ctx, userID); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return storeErr("delete dialog", err)
	}
	return nil
}

// --- Presentation ---

func (s *dialogService) promptStep(sess *domain.DialogSession) *DialogStep {
	choices := make([]Choice, 0, len(sess.Current.Candidates)+1)
	for _, c := range sess.Current.Candidates {
		choices = append(choices, Choice{Token: ChoiceTokenMapPrefix + c.ExerciseID, Label: c.Label})
	}
	choices = append(choices, Choice{Token: ChoiceTokenNewExercise, Label: "Keep as a new exercise"})

	msg := fmt.Sprintf("Which exercise is %q?", sess.Current.OriginalName)
	if len(sess.Current.Candidates) == 0 {
		msg = fmt.Sprintf("%q is not in the catalog.", sess.Current.OriginalName)
	}
	return &DialogStep{
		SessionID: sess.ID,
		State:     domain.DialogStateAwaitingChoice,
		Prompt:    &ChoicePrompt{ExerciseName: sess.Current.OriginalName, Choices: choices},
		Message:   msg,
	}
}

func (s *dialogService) reviewStep(ctx context.Context, sess *domain.DialogSession, w *domain.Workout, msg string) (*DialogStep, error) {
	return &DialogStep{
		SessionID: sess.ID,
		State:     domain.DialogStateAwaitingReview,
		Message:   msg,
		Workout:   w,
		Preview:   FormatPreview(w, s.exerciseIndex(ctx, w)),
	}, nil
}

// exerciseIndex loads the catalog entries a workout references. Lookup failures only cost
// the display name, so they are logged and skipped.
func (s *dialogService) exerciseIndex(ctx context.Context, w *domain.Workout) ExerciseIndex {
	idx := make(ExerciseIndex, len(w.Exercises))
	for i := range w.Exercises {
		id := w.Exercises[i].ExerciseID
		if id == nil {
			continue
		}
		if _, ok := idx[*id]; ok {
			continue
		}
		ex, err := s.exercises.GetExercise(ctx, *id)
		if err != nil {
			s.logger.Warn("exercise lookup failed", "exercise_id", *id, "error", err)
			continue
		}
		idx[*id] = *ex
	}
	return idx
}
