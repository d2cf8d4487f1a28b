package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"alcyxob/workout-journal/internal/config"
	"alcyxob/workout-journal/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenStores_Memory(t *testing.T) {
	ctx := context.Background()
	stores, err := OpenStores(ctx, config.DatabaseConfig{Driver: config.DriverMemory})
	require.NoError(t, err)
	defer func() { assert.NoError(t, stores.Close()) }()

	id, err := stores.Users.Create(ctx, &domain.User{Name: "Anna", Email: "anna@example.com"})
	require.NoError(t, err)
	u, err := stores.Users.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "anna@example.com", u.Email)

	// Every port is served by the same backend.
	ok, err := stores.Locks.TryAcquire(ctx, "user:"+id, "a", 0)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NotNil(t, stores.Catalog)
	assert.NotNil(t, stores.Workouts)
	assert.NotNil(t, stores.Dialogs)
}

func TestOpenStores_UnknownDriver(t *testing.T) {
	_, err := OpenStores(context.Background(), config.DatabaseConfig{Driver: "sqlite"})
	assert.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, config.LogConfig{Level: "warn", Format: "json"})

	logger.Info("hidden")
	logger.Warn("shown", "user_id", "u1")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "shown", rec["msg"])
	assert.Equal(t, "u1", rec["user_id"])
	assert.Equal(t, "WARN", rec["level"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
}
