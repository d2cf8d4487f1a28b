package nlu

import (
	"testing"
	"time"

	"alcyxob/workout-journal/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const workoutJSON = `{
  "date": "2025-03-14",
  "focus": "legs",
  "exercises": [
    {"originalName": "присед", "sets": [{"weight": 100, "reps": 5}, {"weight": 100}]}
  ],
  "generalComments": [{"text": "тяжело"}]
}`

func TestDecodeWorkout(t *testing.T) {
	p, err := DecodeWorkout([]byte(workoutJSON))
	require.NoError(t, err)
	assert.Equal(t, "2025-03-14", p.Date)
	assert.Equal(t, domain.FocusLegs, p.Focus)
	require.Len(t, p.Exercises, 1)
	require.Len(t, p.Exercises[0].Sets, 2)
	assert.Nil(t, p.Exercises[0].Sets[1].Reps)
}

func TestDecodeWorkout_StripsCodeFence(t *testing.T) {
	p, err := DecodeWorkout([]byte("```json\n" + workoutJSON + "\n```"))
	require.NoError(t, err)
	assert.Equal(t, "2025-03-14", p.Date)
}

func TestDecodeWorkout_Rejects(t *testing.T) {
	tests := map[string]string{
		"malformed":     `{"date": "2025-03-14",`,
		"bad date":      `{"date": "14.03.2025", "focus": "legs", "exercises": []}`,
		"unknown focus": `{"date": "2025-03-14", "focus": "yoga", "exercises": []}`,
		"nameless":      `{"date": "2025-03-14", "focus": "legs", "exercises": [{"sets": []}]}`,
		"rpe range":     `{"date": "2025-03-14", "focus": "legs", "exercises": [{"originalName": "x", "sets": [{"rpe": 11}]}]}`,
		"negative reps": `{"date": "2025-03-14", "focus": "legs", "exercises": [{"originalName": "x", "sets": [{"reps": -1}]}]}`,
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeWorkout([]byte(data))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrParseFailure)
		})
	}
}

func TestDecodeEdit_Shapes(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		kind      domain.DeltaKind
		exercises int
	}{
		{
			name:      "explicit delta",
			data:      `{"kind": "exercise_list", "exercises": [{"originalName": "тяга"}]}`,
			kind:      domain.DeltaExerciseList,
			exercises: 1,
		},
		{
			name:      "whole workout",
			data:      workoutJSON,
			kind:      domain.DeltaFullWorkout,
			exercises: 1,
		},
		{
			name:      "exercises object",
			data:      `{"exercises": [{"originalName": "тяга"}, {"originalName": "жим"}]}`,
			kind:      domain.DeltaExerciseList,
			exercises: 2,
		},
		{
			name:      "bare array",
			data:      "```\n[{\"originalName\": \"тяга\"}]\n```",
			kind:      domain.DeltaExerciseList,
			exercises: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := DecodeEdit([]byte(tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.kind, d.Kind)
			assert.Len(t, d.ExerciseList(), tt.exercises)
		})
	}
}

func TestDecodeEdit_Rejects(t *testing.T) {
	for name, data := range map[string]string{
		"unknown shape":        `{"note": "nothing to do"}`,
		"full without workout": `{"kind": "full_workout"}`,
		"unknown kind":         `{"kind": "merge", "exercises": []}`,
		"invalid nested":       `[{"sets": []}]`,
		"not json":             `sure, here you go`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeEdit([]byte(data))
			assert.ErrorIs(t, err, ErrParseFailure)
		})
	}
}

func TestKeepKnownIDs(t *testing.T) {
	known, invented, raw := "ex-1", "ex-invented", domain.RawExerciseID
	d := domain.ExerciseListDelta([]domain.ParsedExercise{
		{OriginalName: "a", MappedExerciseID: &known},
		{OriginalName: "b", MappedExerciseID: &invented},
		{OriginalName: "c", MappedExerciseID: &raw},
		{OriginalName: "d"},
	})

	KeepKnownIDs(&d, `{"date":"2025-03-14","exercises":[{"exerciseId":"ex-1","name":"A"}]}`)

	require.NotNil(t, d.Exercises[0].MappedExerciseID)
	assert.Equal(t, "ex-1", *d.Exercises[0].MappedExerciseID)
	assert.Nil(t, d.Exercises[1].MappedExerciseID)
	assert.True(t, d.Exercises[2].IsRaw())
	assert.Nil(t, d.Exercises[3].MappedExerciseID)
}

func TestDecodeDate(t *testing.T) {
	day, err := DecodeDate([]byte("```json\n{\"date\": \"2025-02-28\"}\n```"))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC), day)

	for _, data := range []string{
		`{}`,
		`{"date": ""}`,
		`{"date": "2025-02-30"}`,
		`{"date": "yesterday"}`,
		`"2025-02-28"`,
	} {
		_, err := DecodeDate([]byte(data))
		assert.ErrorIs(t, err, ErrParseFailure, data)
	}
}
