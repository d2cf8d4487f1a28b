// internal/domain/exercise.go
package domain

import (
	"time"
)

// Exercise is a canonical catalog entry.
// OwnerUserID is nil for global exercises, which are visible to every user.
type Exercise struct {
	ID            string    `bson:"_id" json:"id"`
	CanonicalName string    `bson:"canonicalName" json:"canonicalName"` // e.g. "back_squat"
	DisplayNameRu string    `bson:"displayNameRu,omitempty" json:"displayNameRu,omitempty"`
	DisplayNameEn string    `bson:"displayNameEn,omitempty" json:"displayNameEn,omitempty"`
	MuscleGroups  []string  `bson:"muscleGroups,omitempty" json:"muscleGroups,omitempty"`
	Category      string    `bson:"category,omitempty" json:"category,omitempty"` // e.g. "compound", "isolation"
	OwnerUserID   *string   `bson:"ownerUserId,omitempty" json:"ownerUserId,omitempty"`
	CreatedAt     time.Time `bson:"createdAt" json:"createdAt"`
}

// IsGlobal reports whether the exercise is visible to all users.
func (e *Exercise) IsGlobal() bool {
	return e.OwnerUserID == nil
}

// VisibleTo reports whether userID may reference the exercise.
func (e *Exercise) VisibleTo(userID string) bool {
	return e.OwnerUserID == nil || *e.OwnerUserID == userID
}

// DisplayName picks the best human-readable label.
func (e *Exercise) DisplayName() string {
	switch {
	case e.DisplayNameRu != "":
		return e.DisplayNameRu
	case e.DisplayNameEn != "":
		return e.DisplayNameEn
	default:
		return e.CanonicalName
	}
}

// ExerciseSynonym is an alternate text that refers to an Exercise.
// The same synonym text may point at different exercises under different scopes.
type ExerciseSynonym struct {
	ID          string    `bson:"_id" json:"id"`
	ExerciseID  string    `bson:"exerciseId" json:"exerciseId"`
	Synonym     string    `bson:"synonym" json:"synonym"` // original casing as entered
	Normalized  string    `bson:"normalized" json:"-"`    // NormalizeText(Synonym), used for lookups
	Language    string    `bson:"language,omitempty" json:"language,omitempty"`
	OwnerUserID *string   `bson:"ownerUserId,omitempty" json:"ownerUserId,omitempty"` // nil = global
	Seq         int64     `bson:"seq" json:"-"`                                       // insertion order, assigned by the store
	CreatedAt   time.Time `bson:"createdAt" json:"createdAt"`
}

// OwnedBy reports whether the synonym is scoped to userID.
func (s *ExerciseSynonym) OwnedBy(userID string) bool {
	return s.OwnerUserID != nil && *s.OwnerUserID == userID
}

// SynonymMatch is a synonym row joined with the exercise it points to.
type SynonymMatch struct {
	Synonym  ExerciseSynonym
	Exercise Exercise
}

// UserExerciseMapping caches a confirmed resolution of a literal input for one user.
// At most one row exists per (UserID, InputText, ExerciseID); confirmations bump UseCount.
type UserExerciseMapping struct {
	ID         string    `bson:"_id" json:"id"`
	UserID     string    `bson:"userId" json:"userId"`
	InputText  string    `bson:"inputText" json:"inputText"` // normalized
	ExerciseID string    `bson:"exerciseId" json:"exerciseId"`
	UseCount   int       `bson:"useCount" json:"useCount"`
	CreatedAt  time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time `bson:"updatedAt" json:"updatedAt"`
}

// MappingMatch is a mapping row joined with its exercise.
type MappingMatch struct {
	Mapping  UserExerciseMapping
	Exercise Exercise
}

// ExerciseForNLU is the slice of catalog data handed to the parser prompt.
type ExerciseForNLU struct {
	CanonicalName string `json:"canonicalName"`
	DisplayName   string `json:"displayName"`
}
