package mongo

import (
	"alcyxob/workout-journal/internal/domain"
	"alcyxob/workout-journal/internal/repository"
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	exerciseCollectionName = "exercises"
	synonymCollectionName  = "exercise_synonyms"
	mappingCollectionName  = "user_exercise_mappings"
	counterCollectionName  = "counters"
)

// mongoCatalogRepository implements repository.CatalogRepository over three collections.
type mongoCatalogRepository struct {
	exercises *mongo.Collection
	synonyms  *mongo.Collection
	mappings  *mongo.Collection
	counters  *mongo.Collection
}

// NewMongoCatalogRepository creates a new catalog repository.
func NewMongoCatalogRepository(db *mongo.Database) repository.CatalogRepository {
	return &mongoCatalogRepository{
		exercises: db.Collection(exerciseCollectionName),
		synonyms:  db.Collection(synonymCollectionName),
		mappings:  db.Collection(mappingCollectionName),
		counters:  db.Collection(counterCollectionName),
	}
}

// --- Exercises ---

// CreateExercise inserts a catalog entry. The (canonicalName, ownerUserId) pair is unique.
func (r *mongoCatalogRepository) CreateExercise(ctx context.Context, exercise *domain.Exercise) (string, error) {
	if exercise.CanonicalName == "" {
		return "", errors.New("exercise canonical name is required")
	}
	if exercise.ID == "" {
		exercise.ID = uuid.NewString()
	}
	exercise.CreatedAt = nowUTC()

	if _, err := r.exercises.InsertOne(ctx, exercise); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", repository.ErrDuplicate
		}
		return "", err
	}
	return exercise.ID, nil
}

// GetExerciseByID retrieves a single exercise by its ID.
func (r *mongoCatalogRepository) GetExerciseByID(ctx context.Context, id string) (*domain.Exercise, error) {
	return r.findExercise(ctx, bson.M{"_id": id})
}

// GetExerciseByCanonicalName retrieves the global exercise with the given canonical name.
func (r *mongoCatalogRepository) GetExerciseByCanonicalName(ctx context.Context, canonicalName string) (*domain.Exercise, error) {
	// A nil match covers both a missing field and an explicit null.
	return r.findExercise(ctx, bson.M{"canonicalName": canonicalName, "ownerUserId": nil})
}

func (r *mongoCatalogRepository) findExercise(ctx context.Context, filter bson.M) (*domain.Exercise, error) {
	var exercise domain.Exercise
	if err := r.exercises.FindOne(ctx, filter).Decode(&exercise); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &exercise, nil
}

// ListGlobalExercises retrieves every global exercise sorted by canonical name.
func (r *mongoCatalogRepository) ListGlobalExercises(ctx context.Context) ([]domain.Exercise, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "canonicalName", Value: 1}})
	cursor, err := r.exercises.Find(ctx, bson.M{"ownerUserId": nil}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var exercises []domain.Exercise
	if err = cursor.All(ctx, &exercises); err != nil {
		return nil, err
	}
	if exercises == nil {
		exercises = []domain.Exercise{}
	}
	return exercises, nil
}

// --- Synonyms ---

// CreateSynonym stores a synonym after checking the target exercise exists.
func (r *mongoCatalogRepository) CreateSynonym(ctx context.Context, synonym *domain.ExerciseSynonym) (string, error) {
	count, err := r.exercises.CountDocuments(ctx, bson.M{"_id": synonym.ExerciseID}, options.Count().SetLimit(1))
	if err != nil {
		return "", err
	}
	if count == 0 {
		return "", repository.ErrNotFound
	}

	seq, err := r.nextSeq(ctx, synonymCollectionName)
	if err != nil {
		return "", err
	}
	synonym.ID = uuid.NewString()
	synonym.Normalized = domain.NormalizeText(synonym.Synonym)
	synonym.Seq = seq
	synonym.CreatedAt = nowUTC()

	if _, err := r.synonyms.InsertOne(ctx, synonym); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", repository.ErrDuplicate
		}
		return "", err
	}
	return synonym.ID, nil
}

// FindSynonyms returns global and userID-owned synonyms for the text joined with their exercises.
func (r *mongoCatalogRepository) FindSynonyms(ctx context.Context, normalizedText, userID string) ([]domain.SynonymMatch, error) {
	filter := bson.M{
		"normalized": normalizedText,
		"$or": bson.A{
			bson.M{"ownerUserId": nil},
			bson.M{"ownerUserId": userID},
		},
	}
	// Creation timestamps collide within a millisecond; seq does not.
	findOptions := options.Find().SetSort(bson.D{{Key: "seq", Value: 1}})
	cursor, err := r.synonyms.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []domain.ExerciseSynonym
	if err = cursor.All(ctx, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(rows))
	for _, s := range rows {
		ids = append(ids, s.ExerciseID)
	}
	byID, err := r.exercisesByID(ctx, ids)
	if err != nil {
		return nil, err
	}

	matches := make([]domain.SynonymMatch, 0, len(rows))
	for _, s := range rows {
		e, ok := byID[s.ExerciseID]
		if !ok {
			// Dangling synonym; the exercise was removed.
			continue
		}
		matches = append(matches, domain.SynonymMatch{Synonym: s, Exercise: e})
	}
	return matches, nil
}

// nextSeq hands out increasing numbers per name from the counters collection.
func (r *mongoCatalogRepository) nextSeq(ctx context.Context, name string) (int64, error) {
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := r.counters.FindOneAndUpdate(ctx, bson.M{"_id": name}, bson.M{"$inc": bson.M{"seq": int64(1)}}, opts).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("next %s seq: %w", name, err)
	}
	return counter.Seq, nil
}

func (r *mongoCatalogRepository) exercisesByID(ctx context.Context, ids []string) (map[string]domain.Exercise, error) {
	cursor, err := r.exercises.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var exercises []domain.Exercise
	if err = cursor.All(ctx, &exercises); err != nil {
		return nil, err
	}
	out := make(map[string]domain.Exercise, len(exercises))
	for _, e := range exercises {
		out[e.ID] = e
	}
	return out, nil
}

// --- User Mappings ---

// FindUserMapping returns the most used, then most recently confirmed, mapping.
func (r *mongoCatalogRepository) FindUserMapping(ctx context.Context, userID, normalizedText string) (*domain.MappingMatch, error) {
	filter := bson.M{"userId": userID, "inputText": normalizedText}
	findOptions := options.FindOne().SetSort(bson.D{{Key: "useCount", Value: -1}, {Key: "updatedAt", Value: -1}})

	var mapping domain.UserExerciseMapping
	if err := r.mappings.FindOne(ctx, filter, findOptions).Decode(&mapping); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	exercise, err := r.GetExerciseByID(ctx, mapping.ExerciseID)
	if err != nil {
		return nil, err
	}
	return &domain.MappingMatch{Mapping: mapping, Exercise: *exercise}, nil
}

// UpsertUserMapping creates the mapping or increments its use count in one round trip.
func (r *mongoCatalogRepository) UpsertUserMapping(ctx context.Context, userID, normalizedText, exerciseID string) (*domain.UserExerciseMapping, error) {
	now := nowUTC()
	filter := bson.M{"userId": userID, "inputText": normalizedText, "exerciseId": exerciseID}
	update := bson.M{
		"$inc": bson.M{"useCount": 1},
		"$set": bson.M{"updatedAt": now},
		"$setOnInsert": bson.M{
			"_id":       uuid.NewString(),
			"createdAt": now,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var mapping domain.UserExerciseMapping
	if err := r.mappings.FindOneAndUpdate(ctx, filter, update, opts).Decode(&mapping); err != nil {
		return nil, fmt.Errorf("upsert mapping: %w", err)
	}
	return &mapping, nil
}

// EnsureCatalogIndexes creates the uniqueness and lookup indexes for the catalog collections.
func EnsureCatalogIndexes(ctx context.Context, db *mongo.Database) error {
	if _, err := db.Collection(exerciseCollectionName).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "canonicalName", Value: 1}, {Key: "ownerUserId", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return err
	}

	if _, err := db.Collection(synonymCollectionName).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "normalized", Value: 1}, {Key: "exerciseId", Value: 1}, {Key: "ownerUserId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "normalized", Value: 1}, {Key: "seq", Value: 1}}},
	}); err != nil {
		return err
	}

	_, err := db.Collection(mappingCollectionName).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "inputText", Value: 1}, {Key: "exerciseId", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "inputText", Value: 1}, {Key: "useCount", Value: -1}, {Key: "updatedAt", Value: -1}}},
	})
	return err
}
