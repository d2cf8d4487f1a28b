package service

import (
	"alcyxob/workout-journal/internal/domain"
	"alcyxob/workout-journal/internal/nlu"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ExerciseIndex maps catalog ids to exercises for rendering.
type ExerciseIndex map[string]domain.Exercise

func (idx ExerciseIndex) nameOf(we *domain.WorkoutExercise) string {
	if we.ExerciseID != nil {
		if ex, ok := idx[*we.ExerciseID]; ok {
			return ex.DisplayName()
		}
	}
	if we.RawName != "" {
		return we.RawName
	}
	return "Упражнение"
}

// FormatPreview renders a workout as plain text for review and publication.
func FormatPreview(w *domain.Workout, idx ExerciseIndex) string {
	var b strings.Builder

	b.WriteString("📅 ")
	b.WriteString(w.WorkoutDate.UTC().Format("02.01.2006"))
	if len(w.Focus) > 0 {
		focus := make([]string, len(w.Focus))
		for i, f := range w.Focus {
			focus[i] = string(f)
		}
		b.WriteString(" | 🎯 ")
		b.WriteString(strings.Join(focus, ", "))
	}
	b.WriteString("\n\n")

	for i := range w.Exercises {
		we := &w.Exercises[i]
		fmt.Fprintf(&b, "%d. %s", i+1, idx.nameOf(we))
		if len(we.Sets) > 0 {
			fmt.Fprintf(&b, " • %d подх.", len(we.Sets))
		}
		b.WriteString("\n")
		for _, set := range we.Sets {
			fmt.Fprintf(&b, "    └ Подход %d: %s\n", set.SetNumber, describeSet(set))
		}
		for _, c := range we.Comments {
			fmt.Fprintf(&b, "    💬 %s\n", c.Text)
		}
	}

	if len(w.Comments) > 0 {
		b.WriteString("\n📝 Комментарии:\n")
		for _, c := range w.Comments {
			fmt.Fprintf(&b, "• %s\n", c.Text)
		}
	}
	return strings.TrimSpace(b.String())
}

func describeSet(set domain.ExerciseSet) string {
	parts := []string{strconv.Itoa(set.Reps) + " повт."}
	if set.Weight != nil && *set.Weight > 0 {
		parts[0] += " @ " + formatNumber(*set.Weight) + " кг"
	}
	if set.Duration != nil {
		parts = append(parts, formatNumber(*set.Duration)+" с")
	}
	if set.Distance != nil {
		parts = append(parts, formatNumber(*set.Distance)+" км")
	}
	if set.RPE != nil {
		parts = append(parts, "RPE "+formatNumber(*set.RPE))
	}
	return strings.Join(parts, ", ")
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// SnapshotWorkout builds the compact workout view the parser gets as edit context.
func SnapshotWorkout(w *domain.Workout, idx ExerciseIndex) nlu.WorkoutSnapshot {
	snap := nlu.WorkoutSnapshot{
		Date:      w.WorkoutDate.UTC().Format(domain.DateLayout),
		Focus:     w.Focus,
		Comments:  make([]string, 0, len(w.Comments)),
		Exercises: make([]nlu.ExerciseSnapshot, 0, len(w.Exercises)),
	}
	for _, c := range w.Comments {
		snap.Comments = append(snap.Comments, c.Text)
	}
	for i := range w.Exercises {
		we := &w.Exercises[i]
		es := nlu.ExerciseSnapshot{
			ExerciseID: we.ExerciseID,
			Name:       idx.nameOf(we),
			Sets:       make([]nlu.SetSnapshot, 0, len(we.Sets)),
			Comments:   make([]string, 0, len(we.Comments)),
		}
		if we.IsRaw() {
			raw := domain.RawExerciseID
			es.ExerciseID = &raw
		}
		for _, s := range we.Sets {
			es.Sets = append(es.Sets, nlu.SetSnapshot{
				Reps: s.Reps, Weight: s.Weight, Duration: s.Duration, Distance: s.Distance, RPE: s.RPE,
			})
		}
		for _, c := range we.Comments {
			es.Comments = append(es.Comments, c.Text)
		}
		snap.Exercises = append(snap.Exercises, es)
	}
	return snap
}

// FormatWorkoutForNLU serializes SnapshotWorkout.
func FormatWorkoutForNLU(w *domain.Workout, idx ExerciseIndex) (string, error) {
	data, err := json.Marshal(SnapshotWorkout(w, idx))
	if err != nil {
		return "", fmt.Errorf("encode workout snapshot: %w", err)
	}
	return string(data), nil
}
