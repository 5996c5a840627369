package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"gymmanager/workout-app/internal/domain"
	"gymmanager/workout-app/internal/repository"
)

const mediaColumns = "id, plan_id, type, name, mime_type, size, storage_key, created_at"

// sqliteMediaRepository implements repository.MediaRepository.
type sqliteMediaRepository struct {
	db *sql.DB
}

// NewMediaRepository creates a media repository backed by SQLite.
func NewMediaRepository(db *sql.DB) repository.MediaRepository {
	return &sqliteMediaRepository{db: db}
}

func (r *sqliteMediaRepository) Create(ctx context.Context, m *domain.Media) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO media (`+mediaColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.PlanID, string(m.Type), m.Name, m.MimeType, m.Size, m.StorageKey, toUnix(m.CreatedAt),
	)
	if isUniqueViolation(err) {
		return repository.ErrDuplicate
	}
	return err
}

func (r *sqliteMediaRepository) GetByID(ctx context.Context, id string) (*domain.Media, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+mediaColumns+` FROM media WHERE id = ?`, id)
	m, err := scanMedia(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *sqliteMediaRepository) ListByPlanID(ctx context.Context, planID string) ([]domain.Media, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+mediaColumns+` FROM media WHERE plan_id = ? ORDER BY created_at, rowid`, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	media := []domain.Media{}
	for rows.Next() {
		m, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		media = append(media, *m)
	}
	return media, rows.Err()
}

func (r *sqliteMediaRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM media WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func (r *sqliteMediaRepository) DeleteByPlanID(ctx context.Context, planID string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM media WHERE plan_id = ?`, planID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *sqliteMediaRepository) CountOrphans(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM media m LEFT JOIN workout_plans p ON p.id = m.plan_id WHERE p.id IS NULL`,
	).Scan(&n)
	return n, err
}

func scanMedia(s scanner) (*domain.Media, error) {
	var (
		m         domain.Media
		typ       string
		createdAt int64
	)
	if err := s.Scan(&m.ID, &m.PlanID, &typ, &m.Name, &m.MimeType, &m.Size, &m.StorageKey, &createdAt); err != nil {
		return nil, err
	}
	m.Type = domain.MediaType(typ)
	m.CreatedAt = fromUnix(createdAt)
	return &m, nil
}
