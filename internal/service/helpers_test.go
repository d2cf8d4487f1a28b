package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"alcyxob/workout-journal/internal/domain"
	"alcyxob/workout-journal/internal/nlu"
	"alcyxob/workout-journal/internal/repository/memory"

	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fixture is a seeded in-memory catalog with the services on top of it.
type fixture struct {
	db        *memory.DB
	exercises ExerciseService
	workouts  WorkoutService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := memory.New()
	_, err := SeedCatalog(context.Background(), db, DefaultCatalog())
	require.NoError(t, err)

	logger := discardLogger()
	exercises := NewExerciseService(db, logger)
	return &fixture{
		db:        db,
		exercises: exercises,
		workouts:  NewWorkoutService(db, exercises, logger),
	}
}

// exerciseID returns the id of a seeded global exercise.
func (f *fixture) exerciseID(t *testing.T, canonical string) string {
	t.Helper()
	ex, err := f.db.GetExerciseByCanonicalName(context.Background(), canonical)
	require.NoError(t, err, canonical)
	return ex.ID
}

// addGlobalSynonym points another global synonym at a seeded exercise.
func (f *fixture) addGlobalSynonym(t *testing.T, text, canonical string) {
	t.Helper()
	_, err := f.db.CreateSynonym(context.Background(), &domain.ExerciseSynonym{
		ExerciseID: f.exerciseID(t, canonical),
		Synonym:    text,
	})
	require.NoError(t, err)
}

func intPtr(i int) *int           { return &i }
func floatPtr(f float64) *float64 { return &f }

func mention(name string, sets ...domain.ParsedSet) domain.ParsedExercise {
	return domain.ParsedExercise{OriginalName: name, Sets: sets}
}

func parsedWorkout(date string, exercises ...domain.ParsedExercise) *domain.ParsedWorkout {
	return &domain.ParsedWorkout{
		Date:      date,
		Focus:     domain.FocusLegs,
		Exercises: exercises,
	}
}

// --- Fakes ---

type fakeParser struct {
	mu        sync.Mutex
	parsed    *domain.ParsedWorkout
	delta     *domain.EditDelta
	date      time.Time
	err       error
	snapshots []string
	texts     []string
}

func (p *fakeParser) Parse(_ context.Context, text string, _ time.Time) (*domain.ParsedWorkout, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.texts = append(p.texts, text)
	if p.err != nil {
		return nil, p.err
	}
	if p.parsed == nil {
		return nil, errors.New("fake parser has no workout")
	}
	cp := *p.parsed
	cp.Exercises = append([]domain.ParsedExercise(nil), p.parsed.Exercises...)
	return &cp, nil
}

func (p *fakeParser) ParseEdit(_ context.Context, text string, _ time.Time, current string) (*domain.EditDelta, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.texts = append(p.texts, text)
	p.snapshots = append(p.snapshots, current)
	if p.err != nil {
		return nil, p.err
	}
	if p.delta == nil {
		return nil, errors.New("fake parser has no delta")
	}
	cp := *p.delta
	cp.Exercises = append([]domain.ParsedExercise(nil), p.delta.Exercises...)
	return &cp, nil
}

func (p *fakeParser) ParseDate(_ context.Context, text string, _ time.Time) (time.Time, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.texts = append(p.texts, text)
	if p.err != nil {
		return time.Time{}, p.err
	}
	return p.date, nil
}

func (p *fakeParser) received() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.texts...)
}

type fakeTranscriber struct {
	mu    sync.Mutex
	text  string
	err   error
	calls []nlu.Audio
}

func (tr *fakeTranscriber) Transcribe(_ context.Context, audio nlu.Audio) (string, error) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.calls = append(tr.calls, audio)
	if tr.err != nil {
		return "", tr.err
	}
	return tr.text, nil
}

type fakeStorage struct {
	mu         sync.Mutex
	objects    map[string][]byte
	putErr     error
	presignErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string][]byte)}
}

func (s *fakeStorage) PutObject(_ context.Context, key, _ string, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	s.objects[key] = append([]byte(nil), body...)
	return nil
}

func (s *fakeStorage) GeneratePresignedDownloadURL(_ context.Context, key string, _ time.Duration) (string, error) {
	if s.presignErr != nil {
		return "", s.presignErr
	}
	return "https://files.example.test/" + key + "?sig=1", nil
}

func (s *fakeStorage) DeleteObject(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *fakeStorage) object(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.objects[key]
	return string(b), ok
}
