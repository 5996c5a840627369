package repository

import (
	"context"

	"gymmanager/workout-app/internal/domain"
)

// Error constants for repository layer
var (
	ErrNotFound  = RepositoryError("not found")
	ErrDuplicate = RepositoryError("duplicate key")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// WorkoutPlanRepository persists plans together with their sets and url links.
// Media records are kept separately by MediaRepository.
type WorkoutPlanRepository interface {
	Create(ctx context.Context, plan *domain.WorkoutPlan) error
	GetByID(ctx context.Context, id string) (*domain.WorkoutPlan, error)
	// List returns every plan, newest first.
	List(ctx context.Context) ([]domain.WorkoutPlan, error)
	ListByCategory(ctx context.Context, category string) ([]domain.WorkoutPlan, error)
	// Update replaces the stored plan; ErrNotFound if it does not exist.
	Update(ctx context.Context, plan *domain.WorkoutPlan) error
	Delete(ctx context.Context, id string) error
	CountByCategory(ctx context.Context, category string) (int64, error)
	// DistinctCategories returns the non-empty category values used by plans.
	DistinctCategories(ctx context.Context) ([]string, error)
}

// MediaRepository persists media metadata. Binary content lives in storage.FileStorage.
type MediaRepository interface {
	Create(ctx context.Context, media *domain.Media) error
	GetByID(ctx context.Context, id string) (*domain.Media, error)
	// ListByPlanID returns a plan's media in the order it was attached.
	ListByPlanID(ctx context.Context, planID string) ([]domain.Media, error)
	Delete(ctx context.Context, id string) error
	DeleteByPlanID(ctx context.Context, planID string) (int64, error)
	// CountOrphans counts media whose plan no longer exists.
	CountOrphans(ctx context.Context) (int64, error)
}

// CategoryRepository persists explicit categories. Names are unique ignoring case.
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	GetByName(ctx context.Context, name string) (*domain.Category, error)
	// List returns categories ordered by name.
	List(ctx context.Context) ([]domain.Category, error)
	DeleteByName(ctx context.Context, name string) (int64, error)
}

// Store bundles the repositories backed by one local store.
type Store struct {
	Plans      WorkoutPlanRepository
	Media      MediaRepository
	Categories CategoryRepository
	Close      func(ctx context.Context) error
}
