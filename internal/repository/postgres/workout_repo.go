package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"alcyxob/workout-journal/internal/domain"
	"alcyxob/workout-journal/internal/repository"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const workoutColumns = "id, user_id, workout_date, focus, status, comments, source_ref, preview_ref, published_ref, created_at, updated_at"

// CreateWithChildren inserts the workout row and its exercises in one transaction.
func (d *DB) CreateWithChildren(ctx context.Context, workout *domain.Workout) (*domain.Workout, error) {
	if workout.UserID == "" {
		return nil, errors.New("workout requires userId")
	}
	prepareWorkout(workout)
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		return insertWorkout(ctx, tx, workout)
	})
	if err != nil {
		return nil, err
	}
	return d.FindByID(ctx, workout.ID)
}

// SupersedeDraft deletes the user's draft and inserts the new one in the same transaction.
func (d *DB) SupersedeDraft(ctx context.Context, workout *domain.Workout) (*domain.Workout, error) {
	if workout.UserID == "" {
		return nil, errors.New("workout requires userId")
	}
	if !workout.IsDraft() {
		return nil, fmt.Errorf("supersede draft: workout status is %q", workout.Status)
	}
	prepareWorkout(workout)
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		// Child rows cascade.
		if _, err := tx.ExecContext(ctx, "DELETE FROM workouts WHERE user_id=$1 AND status='draft';", workout.UserID); err != nil {
			return err
		}
		return insertWorkout(ctx, tx, workout)
	})
	if err != nil {
		return nil, err
	}
	return d.FindByID(ctx, workout.ID)
}

// ReplaceChildren rewrites the top-level fields and swaps every child row atomically.
func (d *DB) ReplaceChildren(ctx context.Context, workoutID string, update domain.WorkoutUpdate, exercises []domain.WorkoutExercise, comments []domain.Comment) (*domain.Workout, error) {
	commentsJSON, err := marshalJSON(comments)
	if err != nil {
		return nil, err
	}

	err = d.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			"UPDATE workouts SET workout_date=$2, focus=$3, comments=$4, updated_at=$5 WHERE id=$1;",
			workoutID, domain.TruncateDay(update.WorkoutDate), pq.Array(focusStrings(update.Focus)), commentsJSON, nowUTC(),
		)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return repository.ErrNotFound
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM workout_exercises WHERE workout_id=$1;", workoutID); err != nil {
			return err
		}
		return insertExercises(ctx, tx, workoutID, exercises)
	})
	if err != nil {
		return nil, err
	}
	return d.FindByID(ctx, workoutID)
}

// FindByID loads the aggregate.
func (d *DB) FindByID(ctx context.Context, id string) (*domain.Workout, error) {
	return d.loadWorkout(ctx, d.sql.QueryRowContext(ctx, "SELECT "+workoutColumns+" FROM workouts WHERE id=$1;", id))
}

// FindDraftByUser loads the user's draft.
func (d *DB) FindDraftByUser(ctx context.Context, userID string) (*domain.Workout, error) {
	return d.loadWorkout(ctx, d.sql.QueryRowContext(ctx,
		"SELECT "+workoutColumns+" FROM workouts WHERE user_id=$1 AND status='draft';", userID))
}

// FindByUserAndDate loads the most recently updated workout on the given day.
func (d *DB) FindByUserAndDate(ctx context.Context, userID string, day time.Time) (*domain.Workout, error) {
	return d.loadWorkout(ctx, d.sql.QueryRowContext(ctx,
		"SELECT "+workoutColumns+" FROM workouts WHERE user_id=$1 AND workout_date=$2 ORDER BY updated_at DESC LIMIT 1;",
		userID, domain.TruncateDay(day)))
}

// UpdateStatus sets the workout status.
func (d *DB) UpdateStatus(ctx context.Context, id string, status domain.WorkoutStatus) (*domain.Workout, error) {
	res, err := d.sql.ExecContext(ctx, "UPDATE workouts SET status=$2, updated_at=$3 WHERE id=$1;", id, string(status), nowUTC())
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrConflict
		}
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, repository.ErrNotFound
	}
	return d.FindByID(ctx, id)
}

// UpdateMessageRefs sets the non-empty refs and leaves the others untouched.
func (d *DB) UpdateMessageRefs(ctx context.Context, id string, refs domain.MessageRefs) error {
	res, err := d.sql.ExecContext(ctx,
		`UPDATE workouts SET
			source_ref = COALESCE(NULLIF($2, ''), source_ref),
			preview_ref = COALESCE(NULLIF($3, ''), preview_ref),
			published_ref = COALESCE(NULLIF($4, ''), published_ref),
			updated_at = $5
		 WHERE id=$1;`,
		id, refs.Source, refs.Preview, refs.Published, nowUTC(),
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteByID removes the workout; child rows cascade.
func (d *DB) DeleteByID(ctx context.Context, id string) error {
	res, err := d.sql.ExecContext(ctx, "DELETE FROM workouts WHERE id=$1;", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// --- helpers ---

func prepareWorkout(workout *domain.Workout) {
	if workout.ID == "" {
		workout.ID = uuid.NewString()
	}
	now := nowUTC()
	workout.CreatedAt = now
	workout.UpdatedAt = now
}

func insertWorkout(ctx context.Context, tx *sql.Tx, workout *domain.Workout) error {
	comments, err := marshalJSON(workout.Comments)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO workouts(id, user_id, workout_date, focus, status, comments, source_ref, preview_ref, published_ref, created_at, updated_at)
		 VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);`,
		workout.ID, workout.UserID, domain.TruncateDay(workout.WorkoutDate), pq.Array(focusStrings(workout.Focus)),
		string(workout.Status), comments, workout.MessageRefs.Source, workout.MessageRefs.Preview,
		workout.MessageRefs.Published, workout.CreatedAt, workout.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return err
	}
	return insertExercises(ctx, tx, workout.ID, workout.Exercises)
}

func (d *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func insertExercises(ctx context.Context, tx *sql.Tx, workoutID string, exercises []domain.WorkoutExercise) error {
	for _, we := range exercises {
		id := we.ID
		if id == "" {
			id = uuid.NewString()
		}
		sets, err := marshalJSON(we.Sets)
		if err != nil {
			return err
		}
		comments, err := marshalJSON(we.Comments)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO workout_exercises(id, workout_id, exercise_id, raw_name, sort_order, sets, comments)
			 VALUES($1, $2, $3, $4, $5, $6, $7);`,
			id, workoutID, nullString(we.ExerciseID), we.RawName, we.SortOrder, sets, comments,
		)
		if err != nil {
			return fmt.Errorf("insert workout exercise %d: %w", we.SortOrder, err)
		}
	}
	return nil
}

func (d *DB) loadWorkout(ctx context.Context, row *sql.Row) (*domain.Workout, error) {
	var w domain.Workout
	var focus []string
	var status string
	var comments []byte
	err := row.Scan(&w.ID, &w.UserID, &w.WorkoutDate, pq.Array(&focus), &status, &comments,
		&w.MessageRefs.Source, &w.MessageRefs.Preview, &w.MessageRefs.Published, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	w.WorkoutDate = domain.TruncateDay(w.WorkoutDate)
	w.Status = domain.WorkoutStatus(status)
	w.Focus = make([]domain.Focus, 0, len(focus))
	for _, f := range focus {
		w.Focus = append(w.Focus, domain.Focus(f))
	}
	if err := json.Unmarshal(comments, &w.Comments); err != nil {
		return nil, fmt.Errorf("decode workout comments: %w", err)
	}

	rows, err := d.sql.QueryContext(ctx,
		"SELECT id, exercise_id, raw_name, sort_order, sets, comments FROM workout_exercises WHERE workout_id=$1 ORDER BY sort_order;",
		w.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	w.Exercises = []domain.WorkoutExercise{}
	for rows.Next() {
		var we domain.WorkoutExercise
		var exerciseID sql.NullString
		var sets, exComments []byte
		if err := rows.Scan(&we.ID, &exerciseID, &we.RawName, &we.SortOrder, &sets, &exComments); err != nil {
			return nil, err
		}
		we.ExerciseID = stringPtr(exerciseID)
		if err := json.Unmarshal(sets, &we.Sets); err != nil {
			return nil, fmt.Errorf("decode sets: %w", err)
		}
		if err := json.Unmarshal(exComments, &we.Comments); err != nil {
			return nil, fmt.Errorf("decode exercise comments: %w", err)
		}
		w.Exercises = append(w.Exercises, we)
	}
	return &w, rows.Err()
}

func focusStrings(focus []domain.Focus) []string {
	out := make([]string, 0, len(focus))
	for _, f := range focus {
		out = append(out, string(f))
	}
	return out
}

// marshalJSON encodes v for a JSONB column, writing [] for nil slices. The result is
// a string because lib/pq sends []byte parameters as bytea.
func marshalJSON[T any](v []T) (string, error) {
	if v == nil {
		v = []T{}
	}
	b, err := json.Marshal(v)
	return string(b), err
}
