package service

import (
	"errors"
	"fmt"
)

// --- Error Definitions ---
var (
	ErrNotAuthorized          = errors.New("user is not authorized")
	ErrWorkoutNotFound        = errors.New("workout not found")
	ErrExerciseNotFound       = errors.New("exercise not found")
	ErrForbidden              = errors.New("access denied: workout belongs to another user")
	ErrWorkoutNotDraft        = errors.New("workout is not a draft")
	ErrValidationFailed       = errors.New("validation failed")
	ErrSessionBusy            = errors.New("still processing previous request")
	ErrNoActiveDialog         = errors.New("no active dialog")
	ErrInvalidDialogAction    = errors.New("action is not valid in the current dialog state")
	ErrParserUnavailable      = errors.New("text parsing is not configured")
	ErrTranscriberUnavailable = errors.New("voice input is not configured")

	// ErrStoreFailure matches every *StoreError.
	ErrStoreFailure = errors.New("store failure")
)

// StoreError wraps a persistence failure. The core never retries these.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Is(target error) bool { return target == ErrStoreFailure }

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StoreError
	if errors.As(err, &se) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}
