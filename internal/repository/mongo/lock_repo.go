package mongo

import (
	"alcyxob/workout-journal/internal/repository"
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const lockCollectionName = "processing_locks"

// mongoLockRepository implements lease locks with one document per key.
type mongoLockRepository struct {
	collection *mongo.Collection
}

// NewMongoLockRepository creates a new lock repository.
func NewMongoLockRepository(db *mongo.Database) repository.LockRepository {
	return &mongoLockRepository{
		collection: db.Collection(lockCollectionName),
	}
}

// TryAcquire takes over the key when it is free or its lease expired. While another owner
// holds a live lease the filter misses, the upsert collides on _id and the call returns false.
func (r *mongoLockRepository) TryAcquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	now := nowUTC()
	filter := bson.M{
		"_id": key,
		"$or": bson.A{
			bson.M{"expiresAt": bson.M{"$lte": now}},
			bson.M{"owner": owner},
		},
	}
	update := bson.M{"$set": bson.M{"owner": owner, "expiresAt": now.Add(ttl)}}

	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Release deletes the lock only while owner still holds it.
func (r *mongoLockRepository) Release(ctx context.Context, key, owner string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": key, "owner": owner})
	return err
}

// EnsureLockIndexes lets the server clean up leases abandoned by crashed processes.
func EnsureLockIndexes(ctx context.Context, collection *mongo.Collection) error {
	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expiresAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	return err
}
