package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"gymmanager/workout-app/internal/domain"
	"gymmanager/workout-app/internal/repository"
)

const planColumns = "id, title, description, category, sets, url_links, created_at, updated_at"

// sqliteWorkoutPlanRepository implements repository.WorkoutPlanRepository.
// Sets and url links are owned by the plan and stored as JSON columns.
type sqliteWorkoutPlanRepository struct {
	db *sql.DB
}

// NewWorkoutPlanRepository creates a plan repository backed by SQLite.
func NewWorkoutPlanRepository(db *sql.DB) repository.WorkoutPlanRepository {
	return &sqliteWorkoutPlanRepository{db: db}
}

func (r *sqliteWorkoutPlanRepository) Create(ctx context.Context, plan *domain.WorkoutPlan) error {
	sets, links, err := encodeOwned(plan)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO workout_plans (`+planColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		plan.ID, plan.Title, plan.Description, plan.Category, sets, links,
		toUnix(plan.CreatedAt), toUnix(plan.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return repository.ErrDuplicate
	}
	return err
}

func (r *sqliteWorkoutPlanRepository) GetByID(ctx context.Context, id string) (*domain.WorkoutPlan, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+planColumns+` FROM workout_plans WHERE id = ?`, id)
	plan, err := scanPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return plan, nil
}

func (r *sqliteWorkoutPlanRepository) List(ctx context.Context) ([]domain.WorkoutPlan, error) {
	return r.query(ctx, `SELECT `+planColumns+` FROM workout_plans ORDER BY created_at DESC, rowid DESC`)
}

func (r *sqliteWorkoutPlanRepository) ListByCategory(ctx context.Context, category string) ([]domain.WorkoutPlan, error) {
	return r.query(ctx,
		`SELECT `+planColumns+` FROM workout_plans WHERE category = ? ORDER BY created_at DESC, rowid DESC`,
		category)
}

func (r *sqliteWorkoutPlanRepository) Update(ctx context.Context, plan *domain.WorkoutPlan) error {
	sets, links, err := encodeOwned(plan)
	if err != nil {
		return err
	}
	result, err := r.db.ExecContext(ctx,
		`UPDATE workout_plans
		    SET title = ?, description = ?, category = ?, sets = ?, url_links = ?, updated_at = ?
		  WHERE id = ?`,
		plan.Title, plan.Description, plan.Category, sets, links, toUnix(plan.UpdatedAt), plan.ID,
	)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func (r *sqliteWorkoutPlanRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM workout_plans WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func (r *sqliteWorkoutPlanRepository) CountByCategory(ctx context.Context, category string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM workout_plans WHERE category = ?`, category).Scan(&n)
	return n, err
}

func (r *sqliteWorkoutPlanRepository) DistinctCategories(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT category FROM workout_plans WHERE category <> '' ORDER BY category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *sqliteWorkoutPlanRepository) query(ctx context.Context, q string, args ...any) ([]domain.WorkoutPlan, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	plans := []domain.WorkoutPlan{}
	for rows.Next() {
		plan, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, *plan)
	}
	return plans, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPlan(s scanner) (*domain.WorkoutPlan, error) {
	var (
		plan               domain.WorkoutPlan
		sets, links        string
		createdAt, updated int64
	)
	if err := s.Scan(&plan.ID, &plan.Title, &plan.Description, &plan.Category, &sets, &links, &createdAt, &updated); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(sets), &plan.Sets); err != nil {
		return nil, fmt.Errorf("decode sets of plan %s: %w", plan.ID, err)
	}
	if err := json.Unmarshal([]byte(links), &plan.URLLinks); err != nil {
		return nil, fmt.Errorf("decode url links of plan %s: %w", plan.ID, err)
	}
	if plan.Sets == nil {
		plan.Sets = []domain.Set{}
	}
	if plan.URLLinks == nil {
		plan.URLLinks = []domain.URLLink{}
	}
	plan.Media = []domain.Media{}
	plan.CreatedAt = fromUnix(createdAt)
	plan.UpdatedAt = fromUnix(updated)
	return &plan, nil
}

func encodeOwned(plan *domain.WorkoutPlan) (string, string, error) {
	sets := plan.Sets
	if sets == nil {
		sets = []domain.Set{}
	}
	links := plan.URLLinks
	if links == nil {
		links = []domain.URLLink{}
	}
	setsJSON, err := json.Marshal(sets)
	if err != nil {
		return "", "", fmt.Errorf("encode sets: %w", err)
	}
	linksJSON, err := json.Marshal(links)
	if err != nil {
		return "", "", fmt.Errorf("encode url links: %w", err)
	}
	return string(setsJSON), string(linksJSON), nil
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
