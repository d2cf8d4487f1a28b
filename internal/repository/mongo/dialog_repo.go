package mongo

import (
	"alcyxob/workout-journal/internal/domain"
	"alcyxob/workout-journal/internal/repository"
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const dialogCollectionName = "dialog_sessions"

// mongoDialogRepository stores one session document per user, keyed by user ID.
type mongoDialogRepository struct {
	collection *mongo.Collection
}

// NewMongoDialogRepository creates a new dialog session repository.
func NewMongoDialogRepository(db *mongo.Database) repository.DialogRepository {
	return &mongoDialogRepository{
		collection: db.Collection(dialogCollectionName),
	}
}

// Save replaces the user's session, creating it when absent.
func (r *mongoDialogRepository) Save(ctx context.Context, session *domain.DialogSession) error {
	if session.UserID == "" {
		return errors.New("dialog session requires userId")
	}
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": session.UserID}, session, options.Replace().SetUpsert(true))
	return err
}

// GetByUser loads the user's session.
func (r *mongoDialogRepository) GetByUser(ctx context.Context, userID string) (*domain.DialogSession, error) {
	var session domain.DialogSession
	if err := r.collection.FindOne(ctx, bson.M{"_id": userID}).Decode(&session); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

// DeleteByUser drops the user's session. A missing session is not an error.
func (r *mongoDialogRepository) DeleteByUser(ctx context.Context, userID string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": userID})
	return err
}

// DeleteExpired drops every session whose expiry has passed.
func (r *mongoDialogRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"expiresAt": bson.M{"$lt": now}})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// EnsureDialogIndexes adds a TTL index so the server reaps sessions the sweeper missed.
func EnsureDialogIndexes(ctx context.Context, collection *mongo.Collection) error {
	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expiresAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	return err
}
