package domain

import (
	"time"
)

// User is an account that captures workouts.
type User struct {
	ID           string    `bson:"_id" json:"id"`
	Name         string    `bson:"name" json:"name"`
	Email        string    `bson:"email" json:"email"`    // Should be unique
	PasswordHash string    `bson:"passwordHash" json:"-"` // Never expose this via JSON
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updatedAt"`
}
