package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"gymmanager/workout-app/internal/domain"
	"gymmanager/workout-app/internal/repository"
)

const mediaCollectionName = "media"

// mongoMediaRepository implements repository.MediaRepository
type mongoMediaRepository struct {
	collection *mongo.Collection
}

// NewMongoMediaRepository creates a new Media repository backed by MongoDB.
func NewMongoMediaRepository(db *mongo.Database) repository.MediaRepository {
	return &mongoMediaRepository{
		collection: db.Collection(mediaCollectionName),
	}
}

// Create inserts media metadata. The binary must already be in the blob store.
func (r *mongoMediaRepository) Create(ctx context.Context, media *domain.Media) error {
	if media.ID == "" || media.PlanID == "" || media.StorageKey == "" {
		return errors.New("media requires id, planId and storageKey")
	}
	_, err := r.collection.InsertOne(ctx, media)
	if mongo.IsDuplicateKeyError(err) {
		return repository.ErrDuplicate
	}
	return err
}

// GetByID retrieves media metadata by its ID.
func (r *mongoMediaRepository) GetByID(ctx context.Context, id string) (*domain.Media, error) {
	var media domain.Media
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&media)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &media, nil
}

// ListByPlanID retrieves a plan's media in attach order.
func (r *mongoMediaRepository) ListByPlanID(ctx context.Context, planID string) ([]domain.Media, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"planId": planID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	media := []domain.Media{}
	if err = cursor.All(ctx, &media); err != nil {
		return nil, err
	}
	return media, nil
}

func (r *mongoMediaRepository) Delete(ctx context.Context, id string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mongoMediaRepository) DeleteByPlanID(ctx context.Context, planID string) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"planId": planID})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// CountOrphans counts media whose planId has no matching plan document.
func (r *mongoMediaRepository) CountOrphans(ctx context.Context) (int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: workoutCollectionName},
			{Key: "localField", Value: "planId"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "plan"},
		}}},
		{{Key: "$match", Value: bson.D{{Key: "plan", Value: bson.D{{Key: "$size", Value: 0}}}}}},
		{{Key: "$count", Value: "orphans"}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	var result []struct {
		Orphans int64 `bson:"orphans"`
	}
	if err := cursor.All(ctx, &result); err != nil {
		return 0, err
	}
	if len(result) == 0 {
		return 0, nil
	}
	return result[0].Orphans, nil
}

// EnsureMediaIndexes creates necessary indexes for the media collection.
func EnsureMediaIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			// Loading a plan's media and the delete cascade
			Keys:    bson.D{{Key: "planId", Value: 1}, {Key: "createdAt", Value: 1}},
			Options: options.Index(),
		},
		{
			Keys:    bson.D{{Key: "storageKey", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
