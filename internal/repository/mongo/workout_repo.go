package mongo

import (
	"alcyxob/workout-journal/internal/domain"
	"alcyxob/workout-journal/internal/repository"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const workoutCollectionName = "workouts"

// mongoWorkoutRepository implements repository.WorkoutRepository.
// A workout is stored as one document with its exercises, sets and comments embedded,
// so every write to the aggregate is a single-document atomic operation.
type mongoWorkoutRepository struct {
	collection *mongo.Collection
}

// NewMongoWorkoutRepository creates a new Workout repository.
func NewMongoWorkoutRepository(db *mongo.Database) repository.WorkoutRepository {
	return &mongoWorkoutRepository{
		collection: db.Collection(workoutCollectionName),
	}
}

// CreateWithChildren inserts the aggregate. The partial unique index on drafts turns a
// second draft for the same user into ErrConflict.
func (r *mongoWorkoutRepository) CreateWithChildren(ctx context.Context, workout *domain.Workout) (*domain.Workout, error) {
	if workout.UserID == "" {
		return nil, errors.New("workout requires userId")
	}
	if workout.ID == "" {
		workout.ID = uuid.NewString()
	}
	now := nowUTC()
	workout.CreatedAt = now
	workout.UpdatedAt = now
	normalizeChildren(workout)

	if _, err := r.collection.InsertOne(ctx, workout); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, repository.ErrConflict
		}
		return nil, err
	}
	return workout, nil
}

// SupersedeDraft deletes the user's draft and inserts the new one in a transaction, so the
// server must run as a replica set. The partial unique index still guards the invariant.
func (r *mongoWorkoutRepository) SupersedeDraft(ctx context.Context, workout *domain.Workout) (*domain.Workout, error) {
	if workout.UserID == "" {
		return nil, errors.New("workout requires userId")
	}
	if !workout.IsDraft() {
		return nil, fmt.Errorf("supersede draft: workout status is %q", workout.Status)
	}
	if workout.ID == "" {
		workout.ID = uuid.NewString()
	}
	now := nowUTC()
	workout.CreatedAt = now
	workout.UpdatedAt = now
	normalizeChildren(workout)

	session, err := r.collection.Database().Client().StartSession()
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if _, err := r.collection.DeleteMany(sc, bson.M{"userId": workout.UserID, "status": domain.WorkoutStatusDraft}); err != nil {
			return nil, err
		}
		if _, err := r.collection.InsertOne(sc, workout); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, repository.ErrConflict
		}
		return nil, err
	}
	return workout, nil
}

// ReplaceChildren rewrites date, focus and every child in one update.
func (r *mongoWorkoutRepository) ReplaceChildren(ctx context.Context, workoutID string, update domain.WorkoutUpdate, exercises []domain.WorkoutExercise, comments []domain.Comment) (*domain.Workout, error) {
	w := domain.Workout{Focus: update.Focus, Exercises: exercises, Comments: comments}
	normalizeChildren(&w)

	set := bson.M{
		"workoutDate": update.WorkoutDate,
		"focus":       w.Focus,
		"exercises":   w.Exercises,
		"comments":    w.Comments,
		"updatedAt":   nowUTC(),
	}
	return r.findOneAndUpdate(ctx, bson.M{"_id": workoutID}, bson.M{"$set": set})
}

// FindByID retrieves a single workout by its ID.
func (r *mongoWorkoutRepository) FindByID(ctx context.Context, id string) (*domain.Workout, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// FindDraftByUser retrieves the user's only draft.
func (r *mongoWorkoutRepository) FindDraftByUser(ctx context.Context, userID string) (*domain.Workout, error) {
	return r.findOne(ctx, bson.M{"userId": userID, "status": domain.WorkoutStatusDraft})
}

// FindByUserAndDate retrieves the most recently updated workout on the given day.
func (r *mongoWorkoutRepository) FindByUserAndDate(ctx context.Context, userID string, day time.Time) (*domain.Workout, error) {
	start := domain.TruncateDay(day)
	filter := bson.M{
		"userId":      userID,
		"workoutDate": bson.M{"$gte": start, "$lt": start.Add(24 * time.Hour)},
	}
	findOptions := options.FindOne().SetSort(bson.D{{Key: "updatedAt", Value: -1}})

	var workout domain.Workout
	if err := r.collection.FindOne(ctx, filter, findOptions).Decode(&workout); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &workout, nil
}

// UpdateStatus sets the workout status and returns the updated document.
func (r *mongoWorkoutRepository) UpdateStatus(ctx context.Context, id string, status domain.WorkoutStatus) (*domain.Workout, error) {
	update := bson.M{"$set": bson.M{"status": status, "updatedAt": nowUTC()}}
	return r.findOneAndUpdate(ctx, bson.M{"_id": id}, update)
}

// UpdateMessageRefs sets only the non-empty references.
func (r *mongoWorkoutRepository) UpdateMessageRefs(ctx context.Context, id string, refs domain.MessageRefs) error {
	set := bson.M{"updatedAt": nowUTC()}
	if refs.Source != "" {
		set["messageRefs.source"] = refs.Source
	}
	if refs.Preview != "" {
		set["messageRefs.preview"] = refs.Preview
	}
	if refs.Published != "" {
		set["messageRefs.published"] = refs.Published
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteByID removes the workout and everything embedded in it.
func (r *mongoWorkoutRepository) DeleteByID(ctx context.Context, id string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mongoWorkoutRepository) findOne(ctx context.Context, filter bson.M) (*domain.Workout, error) {
	var workout domain.Workout
	if err := r.collection.FindOne(ctx, filter).Decode(&workout); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &workout, nil
}

func (r *mongoWorkoutRepository) findOneAndUpdate(ctx context.Context, filter, update bson.M) (*domain.Workout, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var workout domain.Workout
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&workout); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &workout, nil
}

// normalizeChildren replaces nil slices so documents always carry arrays, never nulls.
func normalizeChildren(w *domain.Workout) {
	if w.Focus == nil {
		w.Focus = []domain.Focus{}
	}
	if w.Exercises == nil {
		w.Exercises = []domain.WorkoutExercise{}
	}
	if w.Comments == nil {
		w.Comments = []domain.Comment{}
	}
	for i := range w.Exercises {
		if w.Exercises[i].Sets == nil {
			w.Exercises[i].Sets = []domain.ExerciseSet{}
		}
		if w.Exercises[i].Comments == nil {
			w.Exercises[i].Comments = []domain.Comment{}
		}
	}
}

// EnsureWorkoutIndexes creates the lookup index and the one-draft-per-user constraint.
func EnsureWorkoutIndexes(ctx context.Context, collection *mongo.Collection) error {
	_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "workoutDate", Value: -1}}},
		{
			Keys: bson.D{{Key: "userId", Value: 1}},
			Options: options.Index().
				SetName("one_draft_per_user").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": domain.WorkoutStatusDraft}),
		},
	})
	return err
}
