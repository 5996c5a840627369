// Package mongo implements the local store on a MongoDB server.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"gymmanager/workout-app/internal/repository"
)

// Default connection timeout
const defaultTimeout = 10 * time.Second

// ConnectDB establishes a connection to MongoDB using the provided URI.
func ConnectDB(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	// The initial connect can succeed against an unresponsive server.
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
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

// EnsureIndexes creates the indexes every collection relies on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	if err := EnsureWorkoutIndexes(ctx, db.Collection(workoutCollectionName)); err != nil {
		return fmt.Errorf("workout_plans indexes: %w", err)
	}
	if err := EnsureMediaIndexes(ctx, db.Collection(mediaCollectionName)); err != nil {
		return fmt.Errorf("media indexes: %w", err)
	}
	if err := EnsureCategoryIndexes(ctx, db.Collection(categoryCollectionName)); err != nil {
		return fmt.Errorf("categories indexes: %w", err)
	}
	return nil
}

// NewStore wires the MongoDB-backed repositories. Close disconnects the client.
func NewStore(client *mongo.Client, dbName string) repository.Store {
	db := client.Database(dbName)
	return repository.Store{
		Plans:      NewMongoWorkoutPlanRepository(db),
		Media:      NewMongoMediaRepository(db),
		Categories: NewMongoCategoryRepository(db),
		Close: func(ctx context.Context) error {
			return client.Disconnect(ctx)
		},
	}
}
