// Package nlu turns free text into structured workouts through a language-model backend.
package nlu

import (
	"alcyxob/workout-journal/internal/domain"
	"context"
	"errors"
	"time"
)

// ErrParseFailure matches every *ParseError.
var ErrParseFailure = errors.New("parse failure")

// ParseError reports unusable parser output: malformed JSON, schema violations, refusals
// or an unreachable backend. The parser never returns an empty workout instead.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return "nlu: " + e.Reason + ": " + e.Err.Error()
	}
	return "nlu: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParseFailure }

func parseErr(reason string, err error) *ParseError {
	return &ParseError{Reason: reason, Err: err}
}

// Parser is the contract the dialog needs from the NLU backend.
type Parser interface {
	// Parse reads a new workout. Relative dates resolve against currentDate.
	Parse(ctx context.Context, text string, currentDate time.Time) (*domain.ParsedWorkout, error)
	// ParseEdit reads a change request against the workout serialized in currentWorkoutJSON.
	ParseEdit(ctx context.Context, text string, currentDate time.Time, currentWorkoutJSON string) (*domain.EditDelta, error)
	// ParseDate reads the day a phrase refers to, as UTC midnight.
	ParseDate(ctx context.Context, text string, currentDate time.Time) (time.Time, error)
}

// Audio is a recorded voice message. The file name extension tells the backend the format.
type Audio struct {
	Data     []byte
	Filename string
}

// Transcriber turns speech into text. An empty transcript is a *ParseError.
type Transcriber interface {
	Transcribe(ctx context.Context, audio Audio) (string, error)
}

// CatalogSource supplies the exercise names put into the prompt.
type CatalogSource interface {
	ListForNLU(ctx context.Context) ([]domain.ExerciseForNLU, error)
}

// WorkoutSnapshot is the compact workout shape sent to the backend as edit context.
type WorkoutSnapshot struct {
	Date      string             `json:"date"`
	Focus     []domain.Focus     `json:"focus"`
	Comments  []string           `json:"comments"`
	Exercises []ExerciseSnapshot `json:"exercises"`
}

// ExerciseSnapshot is one exercise inside a WorkoutSnapshot. ExerciseID lets the backend
// carry an already-resolved exercise through an edit untouched.
type ExerciseSnapshot struct {
	ExerciseID *string       `json:"exerciseId"`
	Name       string        `json:"name"`
	Sets       []SetSnapshot `json:"sets"`
	Comments   []string      `json:"comments"`
}

// SetSnapshot is one set inside an ExerciseSnapshot.
type SetSnapshot struct {
	Reps     int      `json:"reps"`
	Weight   *float64 `json:"weight"`
	Duration *float64 `json:"duration,omitempty"`
	Distance *float64 `json:"distance,omitempty"`
	RPE      *float64 `json:"rpe,omitempty"`
}
