package nlu

import (
	"alcyxob/workout-journal/internal/domain"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateWorkout checks a parsed workout against its struct tags.
func ValidateWorkout(p *domain.ParsedWorkout) error {
	if p == nil {
		return parseErr("empty workout", nil)
	}
	if err := validate.Struct(p); err != nil {
		return parseErr("workout does not match schema", flattenValidation(err))
	}
	return nil
}

// ValidateDelta checks an edit delta against its struct tags.
func ValidateDelta(d *domain.EditDelta) error {
	if d == nil {
		return parseErr("empty edit", nil)
	}
	if err := validate.Struct(d); err != nil {
		return parseErr("edit does not match schema", flattenValidation(err))
	}
	return nil
}

// DecodeWorkout decodes and validates a ParsedWorkout.
func DecodeWorkout(data []byte) (*domain.ParsedWorkout, error) {
	data = stripFence(data)
	var p domain.ParsedWorkout
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, parseErr("invalid JSON", err)
	}
	if err := ValidateWorkout(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

type dateAnswer struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"`
}

// DecodeDate decodes a {"date": "YYYY-MM-DD"} answer into UTC midnight of that day.
func DecodeDate(data []byte) (time.Time, error) {
	data = stripFence(data)
	var a dateAnswer
	if err := json.Unmarshal(data, &a); err != nil {
		return time.Time{}, parseErr("invalid JSON", err)
	}
	if err := validate.Struct(a); err != nil {
		return time.Time{}, parseErr("date does not match schema", flattenValidation(err))
	}
	day, err := time.ParseInLocation(domain.DateLayout, a.Date, time.UTC)
	if err != nil {
		return time.Time{}, parseErr("invalid date", err)
	}
	return day, nil
}

// DecodeEdit accepts any of the shapes an edit comes in: an explicit {"kind": ...} delta,
// a whole workout object, an {"exercises": [...]} object or a bare exercise array.
func DecodeEdit(data []byte) (*domain.EditDelta, error) {
	data = stripFence(data)
	var d domain.EditDelta
	if len(data) > 0 && data[0] == '[' {
		var list []domain.ParsedExercise
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, parseErr("invalid JSON", err)
		}
		d = domain.ExerciseListDelta(list)
		if err := ValidateDelta(&d); err != nil {
			return nil, err
		}
		return &d, nil
	}

	var shape struct {
		Kind      *domain.DeltaKind `json:"kind"`
		Date      *string           `json:"date"`
		Exercises json.RawMessage   `json:"exercises"`
	}
	if err := json.Unmarshal(data, &shape); err != nil {
		return nil, parseErr("invalid JSON", err)
	}

	switch {
	case shape.Kind != nil:
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, parseErr("invalid JSON", err)
		}
	case shape.Date != nil:
		var p domain.ParsedWorkout
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, parseErr("invalid JSON", err)
		}
		d = domain.FullWorkoutDelta(p)
	case shape.Exercises != nil:
		var list []domain.ParsedExercise
		if err := json.Unmarshal(shape.Exercises, &list); err != nil {
			return nil, parseErr("invalid JSON", err)
		}
		d = domain.ExerciseListDelta(list)
	default:
		return nil, parseErr("unrecognized edit shape", nil)
	}
	if err := ValidateDelta(&d); err != nil {
		return nil, err
	}
	return &d, nil
}

func stripFence(data []byte) []byte {
	data = bytes.TrimSpace(data)
	if !bytes.HasPrefix(data, []byte("```")) {
		return data
	}
	data = bytes.TrimPrefix(data, []byte("```"))
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		data = data[i+1:]
	}
	data = bytes.TrimSuffix(bytes.TrimSpace(data), []byte("```"))
	return bytes.TrimSpace(data)
}

func flattenValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s: %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Namespace(), fe.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}
