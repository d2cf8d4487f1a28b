package memory

import (
	"alcyxob/workout-journal/internal/domain"
)

// Stored values are copied on the way in and out so callers never alias internal state.

func sameOwner(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func cloneStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneFloatPtr(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

func cloneIntPtr(i *int) *int {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}

func cloneExercise(e domain.Exercise) domain.Exercise {
	e.MuscleGroups = append([]string(nil), e.MuscleGroups...)
	e.OwnerUserID = cloneStringPtr(e.OwnerUserID)
	return e
}

func cloneExercises(in []domain.WorkoutExercise) []domain.WorkoutExercise {
	if in == nil {
		return nil
	}
	out := make([]domain.WorkoutExercise, len(in))
	for i, we := range in {
		we.ExerciseID = cloneStringPtr(we.ExerciseID)
		sets := make([]domain.ExerciseSet, len(we.Sets))
		for j, s := range we.Sets {
			s.Weight = cloneFloatPtr(s.Weight)
			s.Duration = cloneFloatPtr(s.Duration)
			s.Distance = cloneFloatPtr(s.Distance)
			s.RPE = cloneFloatPtr(s.RPE)
			sets[j] = s
		}
		we.Sets = sets
		we.Comments = append([]domain.Comment(nil), we.Comments...)
		out[i] = we
	}
	return out
}

func cloneWorkout(w domain.Workout) domain.Workout {
	w.Focus = append([]domain.Focus(nil), w.Focus...)
	w.Exercises = cloneExercises(w.Exercises)
	w.Comments = append([]domain.Comment(nil), w.Comments...)
	return w
}

func cloneParsedExercises(in []domain.ParsedExercise) []domain.ParsedExercise {
	if in == nil {
		return nil
	}
	out := make([]domain.ParsedExercise, len(in))
	for i, p := range in {
		p.MappedExerciseID = cloneStringPtr(p.MappedExerciseID)
		sets := make([]domain.ParsedSet, len(p.Sets))
		for j, s := range p.Sets {
			s.Weight = cloneFloatPtr(s.Weight)
			s.Reps = cloneIntPtr(s.Reps)
			s.Duration = cloneFloatPtr(s.Duration)
			s.Distance = cloneFloatPtr(s.Distance)
			s.RPE = cloneFloatPtr(s.RPE)
			sets[j] = s
		}
		p.Sets = sets
		p.Comments = append([]domain.ParsedComment(nil), p.Comments...)
		out[i] = p
	}
	return out
}

func cloneSession(s domain.DialogSession) domain.DialogSession {
	if s.Delta.Workout != nil {
		pw := *s.Delta.Workout
		pw.Exercises = cloneParsedExercises(pw.Exercises)
		pw.GeneralComments = append([]domain.ParsedComment(nil), pw.GeneralComments...)
		s.Delta.Workout = &pw
	}
	s.Delta.Exercises = cloneParsedExercises(s.Delta.Exercises)
	s.Queue = append([]int(nil), s.Queue...)
	s.Presented = append([]int(nil), s.Presented...)
	if s.Current != nil {
		c := *s.Current
		c.Candidates = append([]domain.ChoiceCandidate(nil), c.Candidates...)
		s.Current = &c
	}
	return s
}
