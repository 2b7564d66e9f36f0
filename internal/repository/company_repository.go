package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CompanyRepository manages tenant persistence.
type CompanyRepository interface {
	Create(ctx context.Context, company *domain.Company) error
	GetByID(ctx context.Context, id string) (*domain.Company, error)
}

type companyRepository struct {
	pool *pgxpool.Pool
}

// NewCompanyRepository builds the repository.
func NewCompanyRepository(pool *pgxpool.Pool) CompanyRepository {
	return &companyRepository{pool: pool}
}

func (r *companyRepository) Create(ctx context.Context, company *domain.Company) error {
	const query = `
        INSERT INTO companies (name, is_active)
        VALUES ($1,$2)
        RETURNING id, created_at, updated_at`
	return translate(r.pool.QueryRow(ctx, query,
		company.Name,
		company.IsActive,
	).Scan(&company.ID, &company.CreatedAt, &company.UpdatedAt))
}

func (r *companyRepository) GetByID(ctx context.Context, id string) (*domain.Company, error) {
	const query = `
        SELECT id, name, is_active, created_at, updated_at
        FROM companies WHERE id=$1`
	var company domain.Company
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&company.ID,
		&company.Name,
		&company.IsActive,
		&company.CreatedAt,
		&company.UpdatedAt,
	); err != nil {
		return nil, translate(err)
	}
	return &company, nil
}
