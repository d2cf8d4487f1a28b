package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Default connection timeout
const defaultTimeout = 10 * time.Second

// ConnectDB establishes a connection to MongoDB using the provided URI.
// It returns the mongo.Client which can be used to access databases and collections.
func ConnectDB(ctx context.Context, uri string) (*mongo.Client, error) {
	connectCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	// The initial connection may succeed while the server is unresponsive.
	pingCtx, pingCancel := context.WithTimeout(ctx, 5*time.Second)
	defer pingCancel()

	if err = client.Ping(pingCtx, readpref.Primary()); err != nil {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer disconnectCancel()
		_ = client.Disconnect(disconnectCtx)
		return nil, err
	}

	return client, nil
}

// DisconnectDB gracefully disconnects the MongoDB client.
func DisconnectDB(client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	return client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes every repository relies on. The draft and lock
// invariants depend on them, so failures are returned rather than ignored.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	steps := []struct {
		name string
		fn   func(context.Context, *mongo.Database) error
	}{
		{userCollectionName, func(ctx context.Context, db *mongo.Database) error {
			return EnsureUserIndexes(ctx, db.Collection(userCollectionName))
		}},
		{"catalog", EnsureCatalogIndexes},
		{workoutCollectionName, func(ctx context.Context, db *mongo.Database) error {
			return EnsureWorkoutIndexes(ctx, db.Collection(workoutCollectionName))
		}},
		{dialogCollectionName, func(ctx context.Context, db *mongo.Database) error {
			return EnsureDialogIndexes(ctx, db.Collection(dialogCollectionName))
		}},
		{lockCollectionName, func(ctx context.Context, db *mongo.Database) error {
			return EnsureLockIndexes(ctx, db.Collection(lockCollectionName))
		}},
	}
	var errs []error
	for _, s := range steps {
		if err := s.fn(ctx, db); err != nil {
			errs = append(errs, fmt.Errorf("indexes for %s: %w", s.name, err))
		}
	}
	return errors.Join(errs...)
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
