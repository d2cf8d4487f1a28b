package domain

import (
	"time"
)

// DialogFlow is how a dialog session was started. It decides what "cancel" means.
type DialogFlow string

const (
	DialogFlowNew  DialogFlow = "new"  // capture of a new workout; cancel deletes the draft
	DialogFlowEdit DialogFlow = "edit" // edit of an existing workout; cancel just closes
)

// DialogOp is the lifecycle operation the pending parse is submitted to.
type DialogOp string

const (
	DialogOpCreate DialogOp = "create"
	DialogOpEdit   DialogOp = "edit"
)

// DialogState is the persisted state of a dialog session.
type DialogState string

const (
	DialogStateAwaitingChoice DialogState = "awaiting_choice"
	DialogStateAwaitingReview DialogState = "awaiting_review"
	// Terminal states are reported to callers but never persisted.
	DialogStateCompleted DialogState = "completed"
	DialogStateCancelled DialogState = "cancelled"
)

// ChoiceCandidate is one catalog exercise offered to the user.
type ChoiceCandidate struct {
	ExerciseID string `bson:"exerciseId" json:"exerciseId"`
	Label      string `bson:"label" json:"label"`
}

// PendingChoice is the question currently put to the user.
type PendingChoice struct {
	Index        int               `bson:"index" json:"index"` // position in the delta's exercise list
	OriginalName string            `bson:"originalName" json:"originalName"`
	Candidates   []ChoiceCandidate `bson:"candidates" json:"candidates"`
}

// Offers reports whether exerciseID is one of the candidates.
func (p *PendingChoice) Offers(exerciseID string) bool {
	for _, c := range p.Candidates {
		if c.ExerciseID == exerciseID {
			return true
		}
	}
	return false
}

// DialogSession is the resumable disambiguation/review state machine for one user.
// It is re-persisted after every event and never cached in memory across turns.
type DialogSession struct {
	ID        string         `bson:"sessionId" json:"id"`
	UserID    string         `bson:"_id" json:"userId"` // one session per user
	Flow      DialogFlow     `bson:"flow" json:"flow"`
	Op        DialogOp       `bson:"op" json:"op"`
	State     DialogState    `bson:"state" json:"state"`
	WorkoutID string         `bson:"workoutId,omitempty" json:"workoutId,omitempty"`
	Delta     EditDelta      `bson:"delta" json:"delta"`
	Queue     []int          `bson:"queue" json:"queue"` // exercise indexes still to ask about
	Current   *PendingChoice `bson:"current,omitempty" json:"current,omitempty"`
	Presented []int          `bson:"presented" json:"presented"` // indexes already asked in this op
	CreatedAt time.Time      `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time      `bson:"updatedAt" json:"updatedAt"`
	ExpiresAt time.Time      `bson:"expiresAt" json:"expiresAt"`
}

// WasPresented reports whether the exercise at index was already put to the user in this op.
func (s *DialogSession) WasPresented(index int) bool {
	for _, i := range s.Presented {
		if i == index {
			return true
		}
	}
	return false
}

// Expired reports whether the session outlived its wait bound.
func (s *DialogSession) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
