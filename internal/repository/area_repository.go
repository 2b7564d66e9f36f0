package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// AreaRepository manages area persistence.
type AreaRepository interface {
	Create(ctx context.Context, area *domain.Area) error
	Update(ctx context.Context, area *domain.Area) error
	GetByID(ctx context.Context, id string) (*domain.Area, error)
	ListByCompany(ctx context.Context, companyID string) ([]domain.Area, error)
	ListActiveByCompany(ctx context.Context, companyID string) ([]domain.Area, error)
	Delete(ctx context.Context, id string) error
}

type areaRepository struct {
	pool *pgxpool.Pool
}

// NewAreaRepository builds the repository.
func NewAreaRepository(pool *pgxpool.Pool) AreaRepository {
	return &areaRepository{pool: pool}
}

func (r *areaRepository) Create(ctx context.Context, area *domain.Area) error {
	const query = `
        INSERT INTO areas (company_id, name, description, is_active)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	return translate(r.pool.QueryRow(ctx, query,
		area.CompanyID,
		area.Name,
		area.Description,
		area.IsActive,
	).Scan(&area.ID, &area.CreatedAt, &area.UpdatedAt))
}

func (r *areaRepository) Update(ctx context.Context, area *domain.Area) error {
	const query = `
        UPDATE areas SET name=$1, description=$2, is_active=$3, updated_at=NOW()
        WHERE id=$4`
	cmd, err := r.pool.Exec(ctx, query,
		area.Name,
		area.Description,
		area.IsActive,
		area.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *areaRepository) GetByID(ctx context.Context, id string) (*domain.Area, error) {
	const query = `
        SELECT id, company_id, name, description, is_active, created_at, updated_at
        FROM areas WHERE id=$1`
	var area domain.Area
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&area.ID,
		&area.CompanyID,
		&area.Name,
		&area.Description,
		&area.IsActive,
		&area.CreatedAt,
		&area.UpdatedAt,
	); err != nil {
		return nil, translate(err)
	}
	return &area, nil
}

func (r *areaRepository) ListByCompany(ctx context.Context, companyID string) ([]domain.Area, error) {
	const query = `
        SELECT id, company_id, name, description, is_active, created_at, updated_at
        FROM areas WHERE company_id=$1 ORDER BY name`
	return r.list(ctx, query, companyID)
}

func (r *areaRepository) ListActiveByCompany(ctx context.Context, companyID string) ([]domain.Area, error) {
	const query = `
        SELECT id, company_id, name, description, is_active, created_at, updated_at
        FROM areas WHERE company_id=$1 AND is_active = TRUE ORDER BY name`
	return r.list(ctx, query, companyID)
}

func (r *areaRepository) list(ctx context.Context, query string, companyID string) ([]domain.Area, error) {
	rows, err := r.pool.Query(ctx, query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Area
	for rows.Next() {
		var area domain.Area
		if err := rows.Scan(&area.ID, &area.CompanyID, &area.Name, &area.Description, &area.IsActive, &area.CreatedAt, &area.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, area)
	}
	return result, rows.Err()
}

func (r *areaRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM areas WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
