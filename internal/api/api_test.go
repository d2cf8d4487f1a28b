package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"alcyxob/workout-journal/internal/domain"
	"alcyxob/workout-journal/internal/nlu"
	"alcyxob/workout-journal/internal/repository/memory"
	"alcyxob/workout-journal/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "api-test-secret"

type testServer struct {
	router *gin.Engine
	db     *memory.DB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWithNLU(t, nil, nil)
}

// newTestServerWithNLU wires text parsing and transcription, either of which may be nil.
func newTestServerWithNLU(t *testing.T, parser nlu.Parser, transcriber nlu.Transcriber) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := memory.New()
	_, err := service.SeedCatalog(context.Background(), db, service.DefaultCatalog())
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	auth := service.NewAuthService(db, testSecret, time.Hour)
	exercises := service.NewExerciseService(db, logger)
	workouts := service.NewWorkoutService(db, exercises, logger)
	dialogs := service.NewDialogService(db, workouts, exercises, parser, transcriber, nil,
		service.NewProcessingLock(db, time.Minute, logger), time.Minute, logger)

	router := gin.New()
	SetupRoutes(router, testSecret, auth, exercises, workouts, dialogs)
	return &testServer{router: router, db: db}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

// login registers a user and returns its token and id.
func (s *testServer) login(t *testing.T, email string) (string, string) {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/auth/register", "", RegisterRequest{Name: "Test", Email: email, Password: "password1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodPost, "/api/v1/auth/login", "", LoginRequest{Email: email, Password: "password1"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[LoginResponse](t, w)
	return resp.Token, resp.User.ID
}

func parsedBody(names ...string) CaptureWorkoutRequest {
	p := &domain.ParsedWorkout{Date: "2025-03-14", Focus: domain.FocusBack}
	for _, n := range names {
		p.Exercises = append(p.Exercises, domain.ParsedExercise{OriginalName: n})
	}
	return CaptureWorkoutRequest{Parsed: p}
}

func TestAuth(t *testing.T) {
	s := newTestServer(t)
	token, userID := s.login(t, "anna@example.com")

	w := s.do(t, http.MethodPost, "/api/v1/auth/register", "", RegisterRequest{Name: "Again", Email: "anna@example.com", Password: "password1"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/auth/login", "", LoginRequest{Email: "anna@example.com", Password: "wrong-one"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID, decode[map[string]string](t, w)["userId"])

	w = s.do(t, http.MethodGet, "/api/v1/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	w = s.do(t, http.MethodGet, "/api/v1/me", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCaptureDialogFlow(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.login(t, "anna@example.com")

	w := s.do(t, http.MethodGet, "/api/v1/dialog", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/workouts/capture", token, parsedBody("тяга", "становая"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	step := decode[service.DialogStep](t, w)
	require.Equal(t, domain.DialogStateAwaitingChoice, step.State)
	require.NotNil(t, step.Prompt)
	first := step.Prompt.Choices[0].Token

	w = s.do(t, http.MethodPost, "/api/v1/dialog/review", token, ReviewRequest{Action: "approve"})
	assert.Equal(t, http.StatusConflict, w.Code, "review is not valid while a choice is pending")

	w = s.do(t, http.MethodPost, "/api/v1/dialog/choice", token, ChoiceRequest{Token: first})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	step = decode[service.DialogStep](t, w)
	require.Equal(t, domain.DialogStateAwaitingReview, step.State)
	workoutID := step.Workout.ID

	w = s.do(t, http.MethodGet, "/api/v1/workouts/draft", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, workoutID, decode[domain.Workout](t, w).ID)

	w = s.do(t, http.MethodPost, "/api/v1/dialog/review", token, ReviewRequest{Action: "approve"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	step = decode[service.DialogStep](t, w)
	assert.Equal(t, domain.DialogStateCompleted, step.State)

	w = s.do(t, http.MethodGet, "/api/v1/workouts/by-date/2025-03-14", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[domain.Workout](t, w)
	assert.Equal(t, domain.WorkoutStatusApproved, got.Status)

	w = s.do(t, http.MethodGet, "/api/v1/workouts/by-date/14-03-2025", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCaptureErrors(t *testing.T) {
	s := newTestServer(t)
	token, userID := s.login(t, "anna@example.com")

	w := s.do(t, http.MethodPost, "/api/v1/workouts/capture", token, CaptureWorkoutRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/workouts/capture", token, CaptureWorkoutRequest{Text: "присед 100 на 5"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code, "no parser is configured")

	ok, err := s.db.TryAcquire(context.Background(), "user:"+userID, "other-request", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	w = s.do(t, http.MethodPost, "/api/v1/workouts/capture", token, parsedBody("присед"))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "still processing")
	require.NoError(t, s.db.Release(context.Background(), "user:"+userID, "other-request"))

	w = s.do(t, http.MethodPost, "/api/v1/dialog/choice", token, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodDelete, "/api/v1/dialog", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWorkoutOwnership(t *testing.T) {
	s := newTestServer(t)
	owner, _ := s.login(t, "anna@example.com")
	other, _ := s.login(t, "boris@example.com")

	w := s.do(t, http.MethodPost, "/api/v1/workouts/capture", owner, parsedBody("присед"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	workoutID := decode[service.DialogStep](t, w).Workout.ID

	w = s.do(t, http.MethodGet, "/api/v1/workouts/"+workoutID, other, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodPost, "/api/v1/workouts/"+workoutID+"/edit", other, map[string]any{
		"delta": []map[string]string{{"originalName": "жим лежа"}},
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, "/api/v1/workouts/missing", owner, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// The owner's edit accepts a bare exercise array as the delta.
	w = s.do(t, http.MethodPost, "/api/v1/workouts/"+workoutID+"/edit", owner, map[string]any{
		"delta": []map[string]string{{"originalName": "жим лежа"}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	step := decode[service.DialogStep](t, w)
	assert.Equal(t, domain.DialogStateAwaitingReview, step.State)
	require.Len(t, step.Workout.Exercises, 1)
	assert.Equal(t, "жим лежа", step.Workout.Exercises[0].RawName)

	w = s.do(t, http.MethodPost, "/api/v1/workouts/"+workoutID+"/edit", owner, map[string]any{"delta": map[string]string{"note": "?"}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestExerciseEndpoints(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.login(t, "anna@example.com")

	w := s.do(t, http.MethodGet, "/api/v1/exercises", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]ExerciseResponse](t, w)
	assert.Len(t, list, 24)

	w = s.do(t, http.MethodGet, "/api/v1/exercises/resolve?text=%D1%82%D1%8F%D0%B3%D0%B0", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[ResolveResponse](t, w)
	assert.Equal(t, service.ResolveStatusAmbiguous, res.Status)
	require.Len(t, res.Candidates, 2)

	w = s.do(t, http.MethodPost, "/api/v1/exercises/synonyms", token, AddSynonymRequest{Text: "тяга", ExerciseID: res.Candidates[1].ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/v1/exercises/resolve?text=%D1%82%D1%8F%D0%B3%D0%B0", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	res = decode[ResolveResponse](t, w)
	assert.Equal(t, service.ResolveStatusResolved, res.Status)
	assert.Equal(t, "romanian_deadlift", res.Exercise.CanonicalName)

	w = s.do(t, http.MethodGet, "/api/v1/exercises/resolve", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
