package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"gymmanager/workout-app/internal/domain"
	"gymmanager/workout-app/internal/repository"
)

// sqliteCategoryRepository implements repository.CategoryRepository.
type sqliteCategoryRepository struct {
	db *sql.DB
}

// NewCategoryRepository creates a category repository backed by SQLite.
func NewCategoryRepository(db *sql.DB) repository.CategoryRepository {
	return &sqliteCategoryRepository{db: db}
}

func (r *sqliteCategoryRepository) Create(ctx context.Context, c *domain.Category) error {
	c.NameKey = domain.CategoryKey(c.Name)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, name, name_key, created_at) VALUES (?, ?, ?, ?)`,
		c.ID, c.Name, c.NameKey, toUnix(c.CreatedAt),
	)
	if isUniqueViolation(err) {
		return repository.ErrDuplicate
	}
	return err
}

func (r *sqliteCategoryRepository) GetByName(ctx context.Context, name string) (*domain.Category, error) {
	var (
		c         domain.Category
		createdAt int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, name_key, created_at FROM categories WHERE name_key = ?`, domain.CategoryKey(name),
	).Scan(&c.ID, &c.Name, &c.NameKey, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	c.CreatedAt = fromUnix(createdAt)
	return &c, nil
}

func (r *sqliteCategoryRepository) List(ctx context.Context) ([]domain.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, name_key, created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []domain.Category{}
	for rows.Next() {
		var (
			c         domain.Category
			createdAt int64
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.NameKey, &createdAt); err != nil {
			return nil, err
		}
		c.CreatedAt = fromUnix(createdAt)
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *sqliteCategoryRepository) DeleteByName(ctx context.Context, name string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE name_key = ?`, domain.CategoryKey(name))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
