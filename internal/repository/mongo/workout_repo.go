// internal/repository/mongo/workout_repo.go
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

const workoutCollectionName = "workout_plans"

// mongoWorkoutPlanRepository implements repository.WorkoutPlanRepository.
// Sets and url links are embedded in the plan document.
type mongoWorkoutPlanRepository struct {
	collection *mongo.Collection
}

// NewMongoWorkoutPlanRepository creates a new plan repository.
func NewMongoWorkoutPlanRepository(db *mongo.Database) repository.WorkoutPlanRepository {
	return &mongoWorkoutPlanRepository{
		collection: db.Collection(workoutCollectionName),
	}
}

// Create inserts a new plan. ID and timestamps are set by the service.
func (r *mongoWorkoutPlanRepository) Create(ctx context.Context, plan *domain.WorkoutPlan) error {
	if plan.ID == "" {
		return errors.New("workout plan requires an id")
	}
	_, err := r.collection.InsertOne(ctx, plan)
	if mongo.IsDuplicateKeyError(err) {
		return repository.ErrDuplicate
	}
	return err
}

// GetByID retrieves a single plan by its ID.
func (r *mongoWorkoutPlanRepository) GetByID(ctx context.Context, id string) (*domain.WorkoutPlan, error) {
	var plan domain.WorkoutPlan
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&plan)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	normalize(&plan)
	return &plan, nil
}

// List retrieves every plan, newest first.
func (r *mongoWorkoutPlanRepository) List(ctx context.Context) ([]domain.WorkoutPlan, error) {
	return r.find(ctx, bson.M{})
}

// ListByCategory retrieves plans with exactly the given category.
func (r *mongoWorkoutPlanRepository) ListByCategory(ctx context.Context, category string) ([]domain.WorkoutPlan, error) {
	return r.find(ctx, bson.M{"category": category})
}

func (r *mongoWorkoutPlanRepository) find(ctx context.Context, filter bson.M) ([]domain.WorkoutPlan, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	plans := []domain.WorkoutPlan{}
	if err = cursor.All(ctx, &plans); err != nil {
		return nil, err
	}
	for i := range plans {
		normalize(&plans[i])
	}
	return plans, nil
}

// Update replaces the mutable fields of a plan. CreatedAt is never rewritten.
func (r *mongoWorkoutPlanRepository) Update(ctx context.Context, plan *domain.WorkoutPlan) error {
	if plan.ID == "" {
		return errors.New("workout plan ID is required for update")
	}

	updateDoc := bson.M{
		"$set": bson.M{
			"title":       plan.Title,
			"description": plan.Description,
			"category":    plan.Category,
			"sets":        plan.Sets,
			"urlLinks":    plan.URLLinks,
			"updatedAt":   plan.UpdatedAt,
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": plan.ID}, updateDoc)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// Delete removes a plan. Owned media are removed by the caller.
func (r *mongoWorkoutPlanRepository) Delete(ctx context.Context, id string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *mongoWorkoutPlanRepository) CountByCategory(ctx context.Context, category string) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"category": category})
}

func (r *mongoWorkoutPlanRepository) DistinctCategories(ctx context.Context) ([]string, error) {
	values, err := r.collection.Distinct(ctx, "category", usedCategoryFilter())
	if err != nil {
		return nil, err
	}
	return categoryNames(values), nil
}

// usedCategoryFilter matches plans that carry a category.
func usedCategoryFilter() bson.M {
	return bson.M{"category": bson.M{"$nin": bson.A{"", nil}}}
}

// categoryNames keeps the non-empty string values of a distinct result.
func categoryNames(values []interface{}) []string {
	categories := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok && s != "" {
			categories = append(categories, s)
		}
	}
	return categories
}

// normalize replaces nil slices so plans always serialize as arrays.
func normalize(plan *domain.WorkoutPlan) {
	if plan.Sets == nil {
		plan.Sets = []domain.Set{}
	}
	if plan.URLLinks == nil {
		plan.URLLinks = []domain.URLLink{}
	}
	if plan.Media == nil {
		plan.Media = []domain.Media{}
	}
}

// EnsureWorkoutIndexes creates necessary indexes. Call during startup.
func EnsureWorkoutIndexes(ctx context.Context, collection *mongo.Collection) error {
	indexes := []mongo.IndexModel{
		{
			// List is always newest first
			Keys:    bson.D{{Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
		{
			// Category filter and the in-use check before deleting a category
			Keys:    bson.D{{Key: "category", Value: 1}},
			Options: options.Index(),
		},
	}
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
