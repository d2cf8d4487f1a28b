package service

import (
	"context"
	"testing"

	"alcyxob/workout-journal/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedCatalog_Idempotent(t *testing.T) {
	ctx := context.Background()
	db := memory.New()

	report, err := SeedCatalog(ctx, db, DefaultCatalog())
	require.NoError(t, err)
	assert.Equal(t, 24, report.ExercisesCreated)
	assert.Equal(t, 79, report.SynonymsCreated)
	assert.Zero(t, report.ExercisesSkipped)
	assert.Zero(t, report.SynonymsSkipped)

	report, err = SeedCatalog(ctx, db, DefaultCatalog())
	require.NoError(t, err)
	assert.Zero(t, report.ExercisesCreated)
	assert.Zero(t, report.SynonymsCreated)
	assert.Equal(t, 24, report.ExercisesSkipped)
	assert.Equal(t, 79, report.SynonymsSkipped)

	list, err := db.ListGlobalExercises(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 24)
}

func TestSeedCatalog_CustomFile(t *testing.T) {
	ctx := context.Background()
	db := memory.New()

	data := []byte(`
exercises:
  - canonical: sled_push
    ru: Толкание саней
    category: conditioning
    synonyms:
      - {text: сани, lang: ru}
      - {text: Сани, lang: ru}
`)
	report, err := SeedCatalog(ctx, db, data)
	require.NoError(t, err)
	assert.Equal(t, 1, report.ExercisesCreated)
	assert.Equal(t, 1, report.SynonymsCreated)
	assert.Equal(t, 1, report.SynonymsSkipped, "synonyms equal after normalization are stored once")

	res, err := NewExerciseService(db, discardLogger()).Resolve(ctx, "САНИ", "user-1")
	require.NoError(t, err)
	assert.Equal(t, ResolveStatusResolved, res.Status)
	assert.Equal(t, "sled_push", res.Exercise.CanonicalName)
}

func TestParseCatalog_Invalid(t *testing.T) {
	for name, data := range map[string]string{
		"not yaml":          "exercises: [",
		"missing exercises": "other: 1",
		"missing canonical": "exercises:\n  - ru: Без имени\n",
		"empty synonym":     "exercises:\n  - canonical: x\n    synonyms:\n      - {lang: ru}\n",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(data))
			assert.ErrorIs(t, err, ErrValidationFailed)
		})
	}
}
