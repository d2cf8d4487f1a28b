package postgres

import (
	"context"
	"database/sql"
	"errors"

	"alcyxob/workout-journal/internal/domain"
	"alcyxob/workout-journal/internal/repository"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const exerciseColumns = "e.id, e.canonical_name, e.display_name_ru, e.display_name_en, e.muscle_groups, e.category, e.owner_user_id, e.created_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExercise(row rowScanner, extra ...any) (domain.Exercise, error) {
	var e domain.Exercise
	var owner sql.NullString
	dest := append([]any{
		&e.ID, &e.CanonicalName, &e.DisplayNameRu, &e.DisplayNameEn,
		pq.Array(&e.MuscleGroups), &e.Category, &owner, &e.CreatedAt,
	}, extra...)
	if err := row.Scan(dest...); err != nil {
		return domain.Exercise{}, err
	}
	e.OwnerUserID = stringPtr(owner)
	return e, nil
}

// --- Exercises ---

// CreateExercise inserts a catalog entry.
func (d *DB) CreateExercise(ctx context.Context, exercise *domain.Exercise) (string, error) {
	if exercise.CanonicalName == "" {
		return "", errors.New("exercise canonical name is required")
	}
	if exercise.ID == "" {
		exercise.ID = uuid.NewString()
	}
	exercise.CreatedAt = nowUTC()
	muscles := exercise.MuscleGroups
	if muscles == nil {
		muscles = []string{}
	}

	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO exercises(id, canonical_name, display_name_ru, display_name_en, muscle_groups, category, owner_user_id, created_at)
		 VALUES($1, $2, $3, $4, $5, $6, $7, $8);`,
		exercise.ID, exercise.CanonicalName, exercise.DisplayNameRu, exercise.DisplayNameEn,
		pq.Array(muscles), exercise.Category, nullString(exercise.OwnerUserID), exercise.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", repository.ErrDuplicate
		}
		return "", err
	}
	return exercise.ID, nil
}

// GetExerciseByID finds an exercise by ID.
func (d *DB) GetExerciseByID(ctx context.Context, id string) (*domain.Exercise, error) {
	return d.getExercise(ctx, "SELECT "+exerciseColumns+" FROM exercises e WHERE e.id=$1;", id)
}

// GetExerciseByCanonicalName finds a global exercise by canonical name.
func (d *DB) GetExerciseByCanonicalName(ctx context.Context, canonicalName string) (*domain.Exercise, error) {
	return d.getExercise(ctx, "SELECT "+exerciseColumns+" FROM exercises e WHERE e.canonical_name=$1 AND e.owner_user_id IS NULL;", canonicalName)
}

func (d *DB) getExercise(ctx context.Context, query, arg string) (*domain.Exercise, error) {
	e, err := scanExercise(d.sql.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// ListGlobalExercises lists global exercises by canonical name.
func (d *DB) ListGlobalExercises(ctx context.Context) ([]domain.Exercise, error) {
	rows, err := d.sql.QueryContext(ctx,
		"SELECT "+exerciseColumns+" FROM exercises e WHERE e.owner_user_id IS NULL ORDER BY e.canonical_name;")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Exercise{}
	for rows.Next() {
		e, err := scanExercise(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// --- Synonyms ---

// CreateSynonym stores a synonym row. The exercise must exist.
func (d *DB) CreateSynonym(ctx context.Context, synonym *domain.ExerciseSynonym) (string, error) {
	if _, err := d.GetExerciseByID(ctx, synonym.ExerciseID); err != nil {
		return "", err
	}
	synonym.ID = uuid.NewString()
	synonym.Normalized = domain.NormalizeText(synonym.Synonym)
	synonym.CreatedAt = nowUTC()

	err := d.sql.QueryRowContext(ctx,
		`INSERT INTO exercise_synonyms(id, exercise_id, synonym, normalized, language, owner_user_id, created_at)
		 VALUES($1, $2, $3, $4, $5, $6, $7) RETURNING seq;`,
		synonym.ID, synonym.ExerciseID, synonym.Synonym, synonym.Normalized, synonym.Language,
		nullString(synonym.OwnerUserID), synonym.CreatedAt,
	).Scan(&synonym.Seq)
	if err != nil {
		if isUniqueViolation(err) {
			return "", repository.ErrDuplicate
		}
		return "", err
	}
	return synonym.ID, nil
}

// FindSynonyms returns global and user-owned synonym rows in insertion order.
func (d *DB) FindSynonyms(ctx context.Context, normalizedText, userID string) ([]domain.SynonymMatch, error) {
	rows, err := d.sql.QueryContext(ctx,
		`SELECT `+exerciseColumns+`, s.id, s.exercise_id, s.synonym, s.normalized, s.language, s.owner_user_id, s.seq, s.created_at
		 FROM exercise_synonyms s JOIN exercises e ON e.id = s.exercise_id
		 WHERE s.normalized=$1 AND (s.owner_user_id IS NULL OR s.owner_user_id=$2)
		 ORDER BY s.seq;`,
		normalizedText, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.SynonymMatch
	for rows.Next() {
		var s domain.ExerciseSynonym
		var owner sql.NullString
		e, err := scanExercise(rows, &s.ID, &s.ExerciseID, &s.Synonym, &s.Normalized, &s.Language, &owner, &s.Seq, &s.CreatedAt)
		if err != nil {
			return nil, err
		}
		s.OwnerUserID = stringPtr(owner)
		out = append(out, domain.SynonymMatch{Synonym: s, Exercise: e})
	}
	return out, rows.Err()
}

// --- User Mappings ---

// FindUserMapping returns the most used, then most recent, mapping for the text.
func (d *DB) FindUserMapping(ctx context.Context, userID, normalizedText string) (*domain.MappingMatch, error) {
	row := d.sql.QueryRowContext(ctx,
		`SELECT `+exerciseColumns+`, m.id, m.user_id, m.input_text, m.exercise_id, m.use_count, m.created_at, m.updated_at
		 FROM user_exercise_mappings m JOIN exercises e ON e.id = m.exercise_id
		 WHERE m.user_id=$1 AND m.input_text=$2
		 ORDER BY m.use_count DESC, m.updated_at DESC LIMIT 1;`,
		userID, normalizedText,
	)
	var m domain.UserExerciseMapping
	e, err := scanExercise(row, &m.ID, &m.UserID, &m.InputText, &m.ExerciseID, &m.UseCount, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &domain.MappingMatch{Mapping: m, Exercise: e}, nil
}

// UpsertUserMapping creates the mapping or bumps its counter.
func (d *DB) UpsertUserMapping(ctx context.Context, userID, normalizedText, exerciseID string) (*domain.UserExerciseMapping, error) {
	now := nowUTC()
	var m domain.UserExerciseMapping
	err := d.sql.QueryRowContext(ctx,
		`INSERT INTO user_exercise_mappings(id, user_id, input_text, exercise_id, use_count, created_at, updated_at)
		 VALUES($1, $2, $3, $4, 1, $5, $5)
		 ON CONFLICT (user_id, input_text, exercise_id)
		 DO UPDATE SET use_count = user_exercise_mappings.use_count + 1, updated_at = EXCLUDED.updated_at
		 RETURNING id, user_id, input_text, exercise_id, use_count, created_at, updated_at;`,
		uuid.NewString(), userID, normalizedText, exerciseID, now,
	).Scan(&m.ID, &m.UserID, &m.InputText, &m.ExerciseID, &m.UseCount, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
