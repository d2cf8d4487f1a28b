package domain

import (
	"fmt"
	"time"
)

// Focus is the coarse workout focus tag produced by the parser.
type Focus string

const (
	FocusLegs      Focus = "legs"
	FocusGlutes    Focus = "glutes"
	FocusBack      Focus = "back"
	FocusChest     Focus = "chest"
	FocusShoulders Focus = "shoulders"
	FocusArms      Focus = "arms"
	FocusCore      Focus = "core"
	FocusFullBody  Focus = "fullbody"
	FocusCardio    Focus = "cardio"
	FocusMixed     Focus = "mixed"
)

// RawExerciseID marks a parsed exercise the user chose to keep as free text.
const RawExerciseID = "raw"

// ParsedSet is one set as understood by the parser. Every field is optional.
type ParsedSet struct {
	Weight   *float64 `json:"weight" validate:"omitempty,gte=0"`
	Reps     *int     `json:"reps" validate:"omitempty,gte=0"`
	Duration *float64 `json:"duration" validate:"omitempty,gte=0"`
	Distance *float64 `json:"distance" validate:"omitempty,gte=0"`
	RPE      *float64 `json:"rpe" validate:"omitempty,min=1,max=10"`
}

// ParsedComment is a free-text note.
type ParsedComment struct {
	Text string `json:"text" validate:"required"`
}

// ParsedExercise is one exercise mention. MappedExerciseID is filled in once the mention is
// settled, either with a catalog id or with RawExerciseID.
type ParsedExercise struct {
	OriginalName     string          `json:"originalName" validate:"required"`
	MappedExerciseID *string         `json:"mappedExerciseId"`
	IsAmbiguous      bool            `json:"isAmbiguous"`
	Sets             []ParsedSet     `json:"sets" validate:"dive"`
	Comments         []ParsedComment `json:"comments" validate:"dive"`
}

// IsSettled reports whether the mention already carries a resolution.
func (p *ParsedExercise) IsSettled() bool {
	return p.MappedExerciseID != nil && *p.MappedExerciseID != ""
}

// IsRaw reports whether the user kept the mention as free text.
func (p *ParsedExercise) IsRaw() bool {
	return p.MappedExerciseID != nil && *p.MappedExerciseID == RawExerciseID
}

// Settle records the resolution for the mention.
func (p *ParsedExercise) Settle(exerciseID string) {
	id := exerciseID
	p.MappedExerciseID = &id
	p.IsAmbiguous = false
}

// ParsedWorkout is the parser's view of a whole workout.
type ParsedWorkout struct {
	Date            string           `json:"date" validate:"required,datetime=2006-01-02"`
	Focus           Focus            `json:"focus" validate:"required,oneof=legs glutes back chest shoulders arms core fullbody cardio mixed"`
	Exercises       []ParsedExercise `json:"exercises" validate:"dive"`
	GeneralComments []ParsedComment  `json:"generalComments" validate:"dive"`
}

// WorkoutDate parses Date into UTC midnight.
func (p *ParsedWorkout) WorkoutDate() (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, p.Date, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid workout date %q: %w", p.Date, err)
	}
	return t, nil
}

// DeltaKind tags the shape of an edit.
type DeltaKind string

const (
	// DeltaFullWorkout replaces date, focus, comments and the exercise list.
	DeltaFullWorkout DeltaKind = "full_workout"
	// DeltaExerciseList replaces only the exercise list.
	DeltaExerciseList DeltaKind = "exercise_list"
)

// EditDelta is the tagged edit variant. Both kinds become one "replace all children" write.
type EditDelta struct {
	Kind      DeltaKind        `json:"kind" validate:"required,oneof=full_workout exercise_list"`
	Workout   *ParsedWorkout   `json:"workout,omitempty" validate:"required_if=Kind full_workout"`
	Exercises []ParsedExercise `json:"exercises,omitempty" validate:"dive"`
}

// FullWorkoutDelta wraps a whole parsed workout as an edit.
func FullWorkoutDelta(p ParsedWorkout) EditDelta {
	return EditDelta{Kind: DeltaFullWorkout, Workout: &p}
}

// ExerciseListDelta wraps a bare exercise list as an edit.
func ExerciseListDelta(exercises []ParsedExercise) EditDelta {
	return EditDelta{Kind: DeltaExerciseList, Exercises: exercises}
}

// ExerciseList returns the exercise slice the delta carries. Elements are shared with the
// delta, so annotating them in place updates the delta.
func (d *EditDelta) ExerciseList() []ParsedExercise {
	if d.Kind == DeltaFullWorkout && d.Workout != nil {
		return d.Workout.Exercises
	}
	return d.Exercises
}
