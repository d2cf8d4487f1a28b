package postgres

import (
	"context"
	"os"
	"testing"

	"alcyxob/workout-journal/internal/domain"
	"alcyxob/workout-journal/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testDB opens TEST_DATABASE_URL. Tests use fresh ids so they can share the tables.
func testDB(t *testing.T) *DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	d, err := Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestWorkouts_SupersedeDraftIsAllOrNothing(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()
	user := uuid.NewString()

	approved, err := d.CreateWithChildren(ctx, &domain.Workout{UserID: user, Status: domain.WorkoutStatusApproved})
	require.NoError(t, err)
	first, err := d.SupersedeDraft(ctx, &domain.Workout{UserID: user, Status: domain.WorkoutStatusDraft})
	require.NoError(t, err)
	second, err := d.SupersedeDraft(ctx, &domain.Workout{
		UserID: user,
		Status: domain.WorkoutStatusDraft,
		Exercises: []domain.WorkoutExercise{{
			RawName: "бёрпи",
			Sets:    []domain.ExerciseSet{{SetNumber: 1, Reps: 10}},
		}},
	})
	require.NoError(t, err)
	require.Len(t, second.Exercises, 1)

	_, err = d.FindByID(ctx, first.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	// The insert hits the primary key of the approved workout after the delete ran.
	_, err = d.SupersedeDraft(ctx, &domain.Workout{ID: approved.ID, UserID: user, Status: domain.WorkoutStatusDraft})
	assert.ErrorIs(t, err, repository.ErrConflict)

	draft, err := d.FindDraftByUser(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, second.ID, draft.ID)
	require.Len(t, draft.Exercises, 1)
	assert.Equal(t, "бёрпи", draft.Exercises[0].RawName)
}

func TestCatalog_SynonymsComeBackInInsertionOrder(t *testing.T) {
	d := testDB(t)
	ctx := context.Background()
	suffix := uuid.NewString()[:8]
	text := "тяга " + suffix

	var want []string
	for _, name := range []string{"romanian_deadlift", "deadlift", "sumo_deadlift"} {
		id, err := d.CreateExercise(ctx, &domain.Exercise{CanonicalName: name + "_" + suffix})
		require.NoError(t, err)
		_, err = d.CreateSynonym(ctx, &domain.ExerciseSynonym{ExerciseID: id, Synonym: text})
		require.NoError(t, err)
		want = append(want, id)
	}

	matches, err := d.FindSynonyms(ctx, domain.NormalizeText(text), "user-1")
	require.NoError(t, err)
	require.Len(t, matches, 3)
	for i, m := range matches {
		assert.Equal(t, want[i], m.Exercise.ID)
	}
	assert.Less(t, matches[0].Synonym.Seq, matches[1].Synonym.Seq)
}
