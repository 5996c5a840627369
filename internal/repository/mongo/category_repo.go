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

const categoryCollectionName = "categories"

// mongoCategoryRepository implements repository.CategoryRepository.
// Case-insensitive uniqueness is carried by the nameKey field.
type mongoCategoryRepository struct {
	collection *mongo.Collection
}

// NewMongoCategoryRepository creates a new Category repository.
func NewMongoCategoryRepository(db *mongo.Database) repository.CategoryRepository {
	return &mongoCategoryRepository{
		collection: db.Collection(categoryCollectionName),
	}
}

func (r *mongoCategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	category.NameKey = domain.CategoryKey(category.Name)
	_, err := r.collection.InsertOne(ctx, category)
	if mongo.IsDuplicateKeyError(err) {
		return repository.ErrDuplicate
	}
	return err
}

func (r *mongoCategoryRepository) GetByName(ctx context.Context, name string) (*domain.Category, error) {
	var category domain.Category
	err := r.collection.FindOne(ctx, bson.M{"nameKey": domain.CategoryKey(name)}).Decode(&category)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &category, nil
}

func (r *mongoCategoryRepository) List(ctx context.Context) ([]domain.Category, error) {
	cursor, err := r.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	categories := []domain.Category{}
	if err = cursor.All(ctx, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *mongoCategoryRepository) DeleteByName(ctx context.Context, name string) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"nameKey": domain.CategoryKey(name)})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// EnsureCategoryIndexes creates the unique index on the lower-cased name.
func EnsureCategoryIndexes(ctx context.Context, collection *mongo.Collection) error {
	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "nameKey", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
