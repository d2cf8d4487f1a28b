package domain

import (
	"time"
)

// WorkoutStatus tracks the workout lifecycle. A cancelled workout is deleted, not flagged.
type WorkoutStatus string

const (
	WorkoutStatusDraft    WorkoutStatus = "draft"
	WorkoutStatusApproved WorkoutStatus = "approved"
)

// CommentType classifies a workout comment.
type CommentType string

const (
	CommentTypeOther CommentType = "other"
)

// Comment is free text attached either to the workout or to one of its exercises.
type Comment struct {
	ID   string      `bson:"id" json:"id"`
	Type CommentType `bson:"type" json:"type"`
	Text string      `bson:"text" json:"text"`
}

// ExerciseSet is one recorded set. Reps is never null: a set without reps stores 0.
type ExerciseSet struct {
	SetNumber int      `bson:"setNumber" json:"setNumber"` // 1..N in parsed order
	Reps      int      `bson:"reps" json:"reps"`
	Weight    *float64 `bson:"weight,omitempty" json:"weight,omitempty"`     // kg
	Duration  *float64 `bson:"duration,omitempty" json:"duration,omitempty"` // seconds
	Distance  *float64 `bson:"distance,omitempty" json:"distance,omitempty"` // km
	RPE       *float64 `bson:"rpe,omitempty" json:"rpe,omitempty"`
}

// WorkoutExercise is one exercise inside a workout.
// ExerciseID is nil when the user kept the mention as free text.
type WorkoutExercise struct {
	ID         string        `bson:"id" json:"id"`
	ExerciseID *string       `bson:"exerciseId,omitempty" json:"exerciseId,omitempty"`
	RawName    string        `bson:"rawName" json:"rawName"`
	SortOrder  int           `bson:"sortOrder" json:"sortOrder"`
	Sets       []ExerciseSet `bson:"sets" json:"sets"`
	Comments   []Comment     `bson:"comments" json:"comments"`
}

// IsRaw reports whether the exercise carries no catalog link.
func (we *WorkoutExercise) IsRaw() bool {
	return we.ExerciseID == nil
}

// MessageRefs are opaque references to the messages/objects a workout was rendered into.
type MessageRefs struct {
	Source    string `bson:"source,omitempty" json:"source,omitempty"`
	Preview   string `bson:"preview,omitempty" json:"preview,omitempty"`
	Published string `bson:"published,omitempty" json:"published,omitempty"`
}

// Workout is the draft aggregate: the workout row owns its exercises, their sets and all comments.
// At most one workout per user may be in WorkoutStatusDraft.
type Workout struct {
	ID          string            `bson:"_id" json:"id"`
	UserID      string            `bson:"userId" json:"userId"`
	WorkoutDate time.Time         `bson:"workoutDate" json:"workoutDate"` // UTC midnight
	Focus       []Focus           `bson:"focus" json:"focus"`
	Status      WorkoutStatus     `bson:"status" json:"status"`
	Exercises   []WorkoutExercise `bson:"exercises" json:"exercises"`
	Comments    []Comment         `bson:"comments" json:"comments"` // workout-level only
	MessageRefs MessageRefs       `bson:"messageRefs" json:"messageRefs"`
	CreatedAt   time.Time         `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time         `bson:"updatedAt" json:"updatedAt"`
}

// IsDraft reports whether the workout is still a draft.
func (w *Workout) IsDraft() bool {
	return w.Status == WorkoutStatusDraft
}

// WorkoutUpdate carries the top-level fields rewritten by a structural replacement.
type WorkoutUpdate struct {
	WorkoutDate time.Time
	Focus       []Focus
}

// DateLayout is the wire format of workout dates.
const DateLayout = "2006-01-02"

// TruncateDay returns t's calendar day at UTC midnight.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
