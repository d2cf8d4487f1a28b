package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"alcyxob/workout-journal/internal/domain"
	"alcyxob/workout-journal/internal/nlu"
	"alcyxob/workout-journal/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func (f *fixture) dialogs(parser nlu.Parser, files storage.FileStorage) *dialogService {
	logger := discardLogger()
	var publisher Publisher
	if files != nil {
		publisher = NewPublisher(files, logger)
	}
	svc := NewDialogService(f.db, f.workouts, f.exercises, parser, nil, publisher, NewProcessingLock(f.db, time.Minute, logger), time.Minute, logger)
	return svc.(*dialogService)
}

func choiceTokens(step *DialogStep) []string {
	out := make([]string, len(step.Prompt.Choices))
	for i, c := range step.Prompt.Choices {
		out[i] = c.Token
	}
	return out
}

func TestCapture_PromptsOncePerAmbiguousText(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addGlobalSynonym(t, "жим", "overhead_press")
	svc := f.dialogs(nil, nil)

	deadlift := f.exerciseID(t, "deadlift")
	rdl := f.exerciseID(t, "romanian_deadlift")
	bench := f.exerciseID(t, "bench_press")
	ohp := f.exerciseID(t, "overhead_press")

	step, err := svc.StartCapture(ctx, "user-1", CaptureRequest{Parsed: parsedWorkout("2025-03-14",
		mention("тяга", domain.ParsedSet{Reps: intPtr(5)}),
		mention("жим"),
		mention("присед"),
		mention("Тяга"),
	)})
	require.NoError(t, err)
	require.Equal(t, domain.DialogStateAwaitingChoice, step.State)
	assert.Equal(t, "тяга", step.Prompt.ExerciseName)
	assert.Equal(t, []string{"map:" + deadlift, "map:" + rdl, ChoiceTokenNewExercise}, choiceTokens(step))

	step, err = svc.Choose(ctx, "user-1", "map:"+deadlift)
	require.NoError(t, err)
	require.Equal(t, domain.DialogStateAwaitingChoice, step.State)
	assert.Equal(t, "жим", step.Prompt.ExerciseName)
	assert.Equal(t, []string{"map:" + bench, "map:" + ohp, ChoiceTokenNewExercise}, choiceTokens(step))

	// The second "тяга" settles through the mapping confirmed above.
	step, err = svc.Choose(ctx, "user-1", "map:"+bench)
	require.NoError(t, err)
	require.Equal(t, domain.DialogStateAwaitingReview, step.State)
	require.NotNil(t, step.Workout)
	assert.NotEmpty(t, step.Preview)

	got := make([]string, 0, 4)
	for _, we := range step.Workout.Exercises {
		require.NotNil(t, we.ExerciseID)
		got = append(got, *we.ExerciseID)
	}
	assert.Equal(t, []string{deadlift, bench, f.exerciseID(t, "back_squat"), deadlift}, got)

	sess, err := f.db.GetByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, domain.DialogStateAwaitingReview, sess.State)
	assert.Equal(t, step.Workout.ID, sess.WorkoutID)
}

func TestCapture_RecordsPresentedExercises(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.dialogs(nil, nil)

	_, err := svc.StartCapture(ctx, "user-1", CaptureRequest{Parsed: parsedWorkout("2025-03-14",
		mention("тяга"), mention("присед"), mention("бёрпи"),
	)})
	require.NoError(t, err)
	sess, err := f.db.GetByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, []int{0}, sess.Presented)

	_, err = svc.Choose(ctx, "user-1", "map:"+f.exerciseID(t, "deadlift"))
	require.NoError(t, err)
	sess, err = f.db.GetByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, sess.Presented)

	step, err := svc.Choose(ctx, "user-1", ChoiceTokenNewExercise)
	require.NoError(t, err)
	require.Equal(t, domain.DialogStateAwaitingReview, step.State)
	sess, err = f.db.GetByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, sess.Presented)
}

func TestAdvance_NeverPresentsAnExerciseTwice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.dialogs(nil, nil)

	// "тяга" is unsettled but was already asked about in this op.
	sess := svc.newSession("user-1", domain.DialogFlowNew, domain.DialogOpCreate, "",
		domain.FullWorkoutDelta(*parsedWorkout("2025-03-14", mention("тяга"), mention("присед"))))
	sess.Presented = []int{0}

	step, err := svc.advance(ctx, sess)
	require.NoError(t, err)
	require.Equal(t, domain.DialogStateAwaitingReview, step.State)
	assert.Nil(t, step.Prompt)
	require.Len(t, step.Workout.Exercises, 2)
	assert.Nil(t, step.Workout.Exercises[0].ExerciseID)
	assert.Equal(t, "тяга", step.Workout.Exercises[0].RawName)
	require.NotNil(t, step.Workout.Exercises[1].ExerciseID)
	assert.Equal(t, f.exerciseID(t, "back_squat"), *step.Workout.Exercises[1].ExerciseID)
}

func TestChoose_InvalidTokenRepromptsWithoutChanges(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.dialogs(nil, nil)

	first, err := svc.StartCapture(ctx, "user-1", CaptureRequest{Parsed: parsedWorkout("2025-03-14", mention("тяга"))})
	require.NoError(t, err)

	for _, token := range []string{"banana", "map:" + f.exerciseID(t, "bench_press"), ""} {
		step, err := svc.Choose(ctx, "user-1", token)
		require.NoError(t, err, token)
		assert.Equal(t, domain.DialogStateAwaitingChoice, step.State)
		assert.Equal(t, "Please pick one of the options below.", step.Message)
		assert.Equal(t, choiceTokens(first), choiceTokens(step))
	}

	_, err = f.db.FindUserMapping(ctx, "user-1", "тяга")
	assert.Error(t, err, "no mapping is written for a rejected token")
}

func TestChoose_UnknownExerciseKeptRaw(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.dialogs(nil, nil)

	step, err := svc.StartCapture(ctx, "user-1", CaptureRequest{Parsed: parsedWorkout("2025-03-14", mention("бёрпи"), mention("присед"))})
	require.NoError(t, err)
	require.Equal(t, domain.DialogStateAwaitingChoice, step.State)
	assert.Equal(t, []string{ChoiceTokenNewExercise}, choiceTokens(step))
	assert.Contains(t, step.Message, "not in the catalog")

	step, err = svc.Choose(ctx, "user-1", ChoiceTokenNewExercise)
	require.NoError(t, err)
	require.Equal(t, domain.DialogStateAwaitingReview, step.State)
	assert.True(t, step.Workout.Exercises[0].IsRaw())
	assert.Equal(t, "бёрпи", step.Workout.Exercises[0].RawName)
	assert.Contains(t, step.Preview, "1. бёрпи")
	assert.Contains(t, step.Preview, "2. Присед со штангой")
}

func TestReview_ApprovePublishes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	files := newFakeStorage()
	svc := f.dialogs(nil, files)

	step, err := svc.StartCapture(ctx, "user-1", CaptureRequest{Parsed: parsedWorkout("2025-03-14",
		mention("присед", domain.ParsedSet{Weight: floatPtr(100), Reps: intPtr(5)}),
	)})
	require.NoError(t, err)
	require.Equal(t, domain.DialogStateAwaitingReview, step.State)
	workoutID := step.Workout.ID

	step, err = svc.Review(ctx, "user-1", "Approve", "")
	require.NoError(t, err)
	assert.Equal(t, domain.DialogStateCompleted, step.State)
	assert.Equal(t, domain.WorkoutStatusApproved, step.Workout.Status)

	key := PublicationKey(step.Workout)
	assert.Equal(t, "workouts/user-1/2025-03-14-"+workoutID+".txt", key)
	assert.Equal(t, "https://files.example.test/"+key+"?sig=1", step.PublishedURL)
	body, ok := files.object(key)
	require.True(t, ok)
	assert.Equal(t, step.Preview, body)
	assert.Contains(t, body, "Подход 1: 5 повт. @ 100 кг")

	w, err := f.workouts.GetWorkout(ctx, workoutID, "user-1")
	require.NoError(t, err)
	assert.Equal(t, domain.WorkoutStatusApproved, w.Status)
	assert.Equal(t, key, w.MessageRefs.Published)

	_, err = svc.Current(ctx, "user-1")
	assert.ErrorIs(t, err, ErrNoActiveDialog)
}

func TestReview_ApproveSurvivesPublishFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	files := newFakeStorage()
	files.putErr = assert.AnError
	svc := f.dialogs(nil, files)

	_, err := svc.StartCapture(ctx, "user-1", CaptureRequest{Parsed: parsedWorkout("2025-03-14", mention("присед"))})
	require.NoError(t, err)

	step, err := svc.Review(ctx, "user-1", ReviewApprove, "")
	require.NoError(t, err)
	assert.Equal(t, domain.DialogStateCompleted, step.State)
	assert.Empty(t, step.PublishedURL)
	assert.Empty(t, step.Workout.MessageRefs.Published)
}

func TestReview_EditThroughParser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	delta := domain.ExerciseListDelta([]domain.ParsedExercise{mention("становая"), mention("присед")})
	parser := &fakeParser{delta: &delta}
	svc := f.dialogs(parser, nil)

	step, err := svc.StartCapture(ctx, "user-1", CaptureRequest{Parsed: parsedWorkout("2025-03-14", mention("жим лежа"))})
	require.NoError(t, err)
	draftID := step.Workout.ID

	step, err = svc.Review(ctx, "user-1", ReviewEdit, "замени жим на становую и присед")
	require.NoError(t, err)
	require.Equal(t, domain.DialogStateAwaitingReview, step.State)
	assert.Equal(t, "Workout updated. Approve, edit or cancel.", step.Message)
	assert.Equal(t, draftID, step.Workout.ID)
	require.Len(t, step.Workout.Exercises, 2)
	assert.Equal(t, f.exerciseID(t, "deadlift"), *step.Workout.Exercises[0].ExerciseID)

	require.Len(t, parser.snapshots, 1)
	assert.Contains(t, parser.snapshots[0], f.exerciseID(t, "bench_press"))
	assert.Contains(t, parser.snapshots[0], `"date":"2025-03-14"`)

	_, err = svc.Review(ctx, "user-1", ReviewEdit, "  ")
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestStartEdit_ExistingWorkout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.dialogs(nil, nil)

	created, err := f.workouts.CreateDraft(ctx, "user-1", parsedWorkout("2025-03-14", mention("присед")))
	require.NoError(t, err)
	_, err = f.workouts.ApproveDraft(ctx, created.Workout.ID, "user-1")
	require.NoError(t, err)

	delta := domain.ExerciseListDelta([]domain.ParsedExercise{mention("тяга")})
	step, err := svc.StartEdit(ctx, "user-1", created.Workout.ID, EditRequest{Delta: &delta})
	require.NoError(t, err)
	require.Equal(t, domain.DialogStateAwaitingChoice, step.State)

	step, err = svc.Choose(ctx, "user-1", "map:"+f.exerciseID(t, "romanian_deadlift"))
	require.NoError(t, err)
	require.Equal(t, domain.DialogStateAwaitingReview, step.State)
	assert.Equal(t, domain.WorkoutStatusApproved, step.Workout.Status)

	// Cancelling an edit never deletes the workout.
	step, err = svc.Cancel(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, domain.DialogStateCancelled, step.State)
	_, err = f.workouts.GetWorkout(ctx, created.Workout.ID, "user-1")
	assert.NoError(t, err)

	_, err = svc.StartEdit(ctx, "user-2", created.Workout.ID, EditRequest{Delta: &delta})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCapture_InputErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.dialogs(nil, nil)

	_, err := svc.StartCapture(ctx, "user-1", CaptureRequest{Text: "присед 100х5"})
	assert.ErrorIs(t, err, ErrParserUnavailable)

	_, err = svc.StartCapture(ctx, "user-1", CaptureRequest{})
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = svc.StartCapture(ctx, "user-1", CaptureRequest{Parsed: &domain.ParsedWorkout{Date: "2025-03-14"}})
	assert.ErrorIs(t, err, ErrValidationFailed)

	_, err = svc.StartCapture(ctx, "", CaptureRequest{Text: "x"})
	assert.ErrorIs(t, err, ErrNotAuthorized)

	parser := &fakeParser{parsed: parsedWorkout("2025-03-14", mention("присед"))}
	step, err := f.dialogs(parser, nil).StartCapture(ctx, "user-1", CaptureRequest{Text: "присед 100х5"})
	require.NoError(t, err)
	assert.Equal(t, domain.DialogStateAwaitingReview, step.State)
}

func TestCapture_UnknownMappedIDIsResolvedAgain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.dialogs(nil, nil)

	bogus := "not-an-exercise"
	entry := mention("присед")
	entry.MappedExerciseID = &bogus

	step, err := svc.StartCapture(ctx, "user-1", CaptureRequest{Parsed: parsedWorkout("2025-03-14", entry)})
	require.NoError(t, err)
	require.Equal(t, domain.DialogStateAwaitingReview, step.State)
	assert.Equal(t, f.exerciseID(t, "back_squat"), *step.Workout.Exercises[0].ExerciseID)
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.dialogs(nil, nil)

	// Awaiting review: the draft goes with the dialog.
	step, err := svc.StartCapture(ctx, "user-1", CaptureRequest{Parsed: parsedWorkout("2025-03-14", mention("присед"))})
	require.NoError(t, err)
	draftID := step.Workout.ID

	step, err = svc.Review(ctx, "user-1", ReviewCancel, "")
	require.NoError(t, err)
	assert.Equal(t, domain.DialogStateCancelled, step.State)
	_, err = f.workouts.GetWorkout(ctx, draftID, "user-1")
	assert.ErrorIs(t, err, ErrWorkoutNotFound)

	// Awaiting choice: nothing was written yet.
	_, err = svc.StartCapture(ctx, "user-1", CaptureRequest{Parsed: parsedWorkout("2025-03-14", mention("тяга"))})
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, "user-1")
	require.NoError(t, err)
	_, err = f.workouts.GetDraftForUser(ctx, "user-1")
	assert.ErrorIs(t, err, ErrWorkoutNotFound)

	_, err = svc.Cancel(ctx, "user-1")
	assert.ErrorIs(t, err, ErrNoActiveDialog)
}

func TestDialog_ActionsOutOfState(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.dialogs(nil, nil)

	_, err := svc.Choose(ctx, "user-1", ChoiceTokenNewExercise)
	assert.ErrorIs(t, err, ErrNoActiveDialog)

	_, err = svc.StartCapture(ctx, "user-1", CaptureRequest{Parsed: parsedWorkout("2025-03-14", mention("присед"))})
	require.NoError(t, err)

	_, err = svc.Choose(ctx, "user-1", ChoiceTokenNewExercise)
	assert.ErrorIs(t, err, ErrInvalidDialogAction)

	_, err = svc.Review(ctx, "user-1", "publish", "")
	assert.ErrorIs(t, err, ErrInvalidDialogAction)

	step, err := svc.Current(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, domain.DialogStateAwaitingReview, step.State)
}

func TestDialog_ExpiredSessionIsGone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.dialogs(nil, nil)

	base := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }

	_, err := svc.StartCapture(ctx, "user-1", CaptureRequest{Parsed: parsedWorkout("2025-03-14", mention("тяга"))})
	require.NoError(t, err)

	svc.now = func() time.Time { return base.Add(30 * time.Second) }
	_, err = svc.Current(ctx, "user-1")
	require.NoError(t, err)

	svc.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, err = svc.Choose(ctx, "user-1", ChoiceTokenNewExercise)
	assert.ErrorIs(t, err, ErrNoActiveDialog)

	_, err = f.db.GetByUser(ctx, "user-1")
	assert.Error(t, err, "an expired session is deleted when touched")
}

func TestSweepExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.dialogs(nil, nil)

	base := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return base }
	for _, u := range []string{"user-1", "user-2"} {
		_, err := svc.StartCapture(ctx, u, CaptureRequest{Parsed: parsedWorkout("2025-03-14", mention("тяга"))})
		require.NoError(t, err)
	}

	n, err := svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	svc.now = func() time.Time { return base.Add(time.Hour) }
	n, err = svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestRunSweeper_StopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	f := newFixture(t)
	ctx := context.Background()
	svc := f.dialogs(nil, nil)

	base := time.Now()
	svc.now = func() time.Time { return base }
	_, err := svc.StartCapture(ctx, "user-1", CaptureRequest{Parsed: parsedWorkout("2025-03-14", mention("тяга"))})
	require.NoError(t, err)
	svc.now = func() time.Time { return base.Add(time.Hour) }

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.RunSweeper(runCtx, 5*time.Millisecond)
	}()

	require.Eventually(t, func() bool {
		_, err := f.db.GetByUser(ctx, "user-1")
		return err != nil
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}

func TestProcessingLock_BusyUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.dialogs(nil, nil)

	ok, err := f.db.TryAcquire(ctx, "user:user-1", "other", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = svc.StartCapture(ctx, "user-1", CaptureRequest{Parsed: parsedWorkout("2025-03-14", mention("присед"))})
	assert.ErrorIs(t, err, ErrSessionBusy)

	// Other users are not affected.
	_, err = svc.StartCapture(ctx, "user-2", CaptureRequest{Parsed: parsedWorkout("2025-03-14", mention("присед"))})
	assert.NoError(t, err)

	require.NoError(t, f.db.Release(ctx, "user:user-1", "other"))
	_, err = svc.StartCapture(ctx, "user-1", CaptureRequest{Parsed: parsedWorkout("2025-03-14", mention("присед"))})
	assert.NoError(t, err)
}

func TestProcessingLock_ReleasedAfterError(t *testing.T) {
	f := newFixture(t)
	lock := NewProcessingLock(f.db, time.Minute, discardLogger())
	ctx := context.Background()

	err := lock.WithUserLock(ctx, "user-1", func(context.Context) error { return assert.AnError })
	assert.ErrorIs(t, err, assert.AnError)

	ran := false
	err = lock.WithUserLock(ctx, "user-1", func(context.Context) error {
		ran = true
		// Re-entry from the same user is refused while held.
		inner := lock.WithUserLock(ctx, "user-1", func(context.Context) error { return nil })
		assert.ErrorIs(t, inner, ErrSessionBusy)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)
}

func TestPublicationKeyLayout(t *testing.T) {
	w := &domain.Workout{ID: "w1", UserID: "u1", WorkoutDate: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)}
	key := PublicationKey(w)
	assert.True(t, strings.HasPrefix(key, "workouts/u1/"))
	assert.Equal(t, "workouts/u1/2025-01-02-w1.txt", key)
}

func TestReview_RepublishAfterDateEditDropsOldObject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	files := newFakeStorage()
	svc := f.dialogs(nil, files)

	step, err := svc.StartCapture(ctx, "user-1", CaptureRequest{Parsed: parsedWorkout("2025-03-14", mention("присед"))})
	require.NoError(t, err)
	workoutID := step.Workout.ID
	step, err = svc.Review(ctx, "user-1", ReviewApprove, "")
	require.NoError(t, err)
	oldKey := PublicationKey(step.Workout)

	delta := domain.FullWorkoutDelta(*parsedWorkout("2025-03-15", mention("присед")))
	_, err = svc.StartEdit(ctx, "user-1", workoutID, EditRequest{Delta: &delta})
	require.NoError(t, err)
	step, err = svc.Review(ctx, "user-1", ReviewApprove, "")
	require.NoError(t, err)

	newKey := PublicationKey(step.Workout)
	assert.NotEqual(t, oldKey, newKey)
	_, ok := files.object(oldKey)
	assert.False(t, ok)
	_, ok = files.object(newKey)
	assert.True(t, ok)
}

func TestCapture_VoiceMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	parser := &fakeParser{parsed: parsedWorkout("2025-03-14", mention("присед"))}
	stt := &fakeTranscriber{text: " присед 3 по 10 по 100 "}
	svc := f.dialogs(parser, nil)
	svc.transcriber = stt

	step, err := svc.StartCapture(ctx, "user-1", CaptureRequest{Audio: &nlu.Audio{Data: []byte("OggS"), Filename: "voice.ogg"}})
	require.NoError(t, err)
	assert.Equal(t, domain.DialogStateAwaitingReview, step.State)
	assert.Equal(t, f.exerciseID(t, "back_squat"), *step.Workout.Exercises[0].ExerciseID)

	require.Len(t, stt.calls, 1)
	assert.Equal(t, "voice.ogg", stt.calls[0].Filename)
	assert.Equal(t, []string{"присед 3 по 10 по 100"}, parser.received())
}

func TestCapture_VoiceMessageErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	audio := &nlu.Audio{Data: []byte("OggS")}
	parser := &fakeParser{parsed: parsedWorkout("2025-03-14", mention("присед"))}

	_, err := f.dialogs(parser, nil).StartCapture(ctx, "user-1", CaptureRequest{Audio: audio})
	assert.ErrorIs(t, err, ErrTranscriberUnavailable)

	svc := f.dialogs(nil, nil)
	svc.transcriber = &fakeTranscriber{text: "присед"}
	_, err = svc.StartCapture(ctx, "user-1", CaptureRequest{Audio: audio})
	assert.ErrorIs(t, err, ErrParserUnavailable)

	svc = f.dialogs(parser, nil)
	svc.transcriber = &fakeTranscriber{err: nlu.ErrParseFailure}
	_, err = svc.StartCapture(ctx, "user-1", CaptureRequest{Audio: audio})
	assert.ErrorIs(t, err, nlu.ErrParseFailure)

	svc.transcriber = &fakeTranscriber{text: "   "}
	_, err = svc.StartCapture(ctx, "user-1", CaptureRequest{Audio: audio})
	assert.ErrorIs(t, err, ErrValidationFailed)

	// Nothing was parsed, so no dialog or draft exists.
	assert.Empty(t, parser.received())
	_, err = svc.Current(ctx, "user-1")
	assert.ErrorIs(t, err, ErrNoActiveDialog)
	_, err = f.workouts.GetDraftForUser(ctx, "user-1")
	assert.ErrorIs(t, err, ErrWorkoutNotFound)
}

func TestReviewEdit_VoiceMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	delta := domain.ExerciseListDelta([]domain.ParsedExercise{mention("становая")})
	parser := &fakeParser{delta: &delta}
	stt := &fakeTranscriber{text: "замени жим на становую"}
	svc := f.dialogs(parser, nil)
	svc.transcriber = stt
	audio := &nlu.Audio{Data: []byte("ID3"), Filename: "note.mp3"}

	_, err := svc.ReviewEdit(ctx, "user-1", EditRequest{Audio: audio})
	assert.ErrorIs(t, err, ErrNoActiveDialog)

	step, err := svc.StartCapture(ctx, "user-1", CaptureRequest{Parsed: parsedWorkout("2025-03-14", mention("жим лежа"))})
	require.NoError(t, err)
	draftID := step.Workout.ID

	_, err = svc.ReviewEdit(ctx, "user-1", EditRequest{})
	assert.ErrorIs(t, err, ErrValidationFailed)

	step, err = svc.ReviewEdit(ctx, "user-1", EditRequest{Audio: audio})
	require.NoError(t, err)
	require.Equal(t, domain.DialogStateAwaitingReview, step.State)
	assert.Equal(t, draftID, step.Workout.ID)
	require.Len(t, step.Workout.Exercises, 1)
	assert.Equal(t, f.exerciseID(t, "deadlift"), *step.Workout.Exercises[0].ExerciseID)
	assert.Equal(t, []string{"замени жим на становую"}, parser.received())
	require.Len(t, stt.calls, 1)
	assert.Equal(t, "note.mp3", stt.calls[0].Filename)
}

func TestReviewEdit_OnlyDuringReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	svc := f.dialogs(nil, nil)

	step, err := svc.StartCapture(ctx, "user-1", CaptureRequest{Parsed: parsedWorkout("2025-03-14", mention("тяга"))})
	require.NoError(t, err)
	require.Equal(t, domain.DialogStateAwaitingChoice, step.State)

	delta := domain.ExerciseListDelta([]domain.ParsedExercise{mention("присед")})
	_, err = svc.ReviewEdit(ctx, "user-1", EditRequest{Delta: &delta})
	assert.ErrorIs(t, err, ErrInvalidDialogAction)

	_, err = svc.ReviewEdit(ctx, "", EditRequest{Delta: &delta})
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestFindForEdit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.workouts.CreateDraft(ctx, "user-1", parsedWorkout("2025-03-14", mention("присед")))
	require.NoError(t, err)
	_, err = f.workouts.ApproveDraft(ctx, created.Workout.ID, "user-1")
	require.NoError(t, err)

	parser := &fakeParser{date: time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)}
	svc := f.dialogs(parser, nil)

	w, err := svc.FindForEdit(ctx, "user-1", "вчерашняя тренировка")
	require.NoError(t, err)
	assert.Equal(t, created.Workout.ID, w.ID)
	assert.Equal(t, []string{"вчерашняя тренировка"}, parser.received())

	_, err = svc.FindForEdit(ctx, "user-2", "вчерашняя тренировка")
	assert.ErrorIs(t, err, ErrWorkoutNotFound)

	parser.date = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	_, err = svc.FindForEdit(ctx, "user-1", "в понедельник")
	require.ErrorIs(t, err, ErrWorkoutNotFound)
	assert.Contains(t, err.Error(), "2025-03-10")

	parser.err = nlu.ErrParseFailure
	_, err = svc.FindForEdit(ctx, "user-1", "когда-то")
	assert.ErrorIs(t, err, nlu.ErrParseFailure)

	_, err = svc.FindForEdit(ctx, "user-1", "  ")
	assert.ErrorIs(t, err, ErrValidationFailed)
	_, err = f.dialogs(nil, nil).FindForEdit(ctx, "user-1", "вчера")
	assert.ErrorIs(t, err, ErrParserUnavailable)
}
