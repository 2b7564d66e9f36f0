package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CategoryRepository manages ticket category persistence.
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	Update(ctx context.Context, category *domain.Category) error
	GetByID(ctx context.Context, id string) (*domain.Category, error)
	ListByCompany(ctx context.Context, companyID string, includeInactive bool) ([]domain.Category, error)
	// DeleteIfNoActiveTickets removes the category unless tickets in one of
	// the given statuses still reference it. The count and the delete run in
	// a single transaction with the category row locked, so a concurrent
	// ticket create cannot slip past the guard. Returns the number of
	// blocking tickets; the category is deleted only when that is zero.
	DeleteIfNoActiveTickets(ctx context.Context, id string, blocking []domain.TicketStatus) (int64, error)
}

type categoryRepository struct {
	pool *pgxpool.Pool
}

// NewCategoryRepository builds the repository.
func NewCategoryRepository(pool *pgxpool.Pool) CategoryRepository {
	return &categoryRepository{pool: pool}
}

func (r *categoryRepository) Create(ctx context.Context, category *domain.Category) error {
	const query = `
        INSERT INTO categories (company_id, name, description, is_active)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	return translate(r.pool.QueryRow(ctx, query,
		category.CompanyID,
		category.Name,
		category.Description,
		category.IsActive,
	).Scan(&category.ID, &category.CreatedAt, &category.UpdatedAt))
}

func (r *categoryRepository) Update(ctx context.Context, category *domain.Category) error {
	const query = `
        UPDATE categories SET name=$1, description=$2, is_active=$3, updated_at=NOW()
        WHERE id=$4`
	cmd, err := r.pool.Exec(ctx, query,
		category.Name,
		category.Description,
		category.IsActive,
		category.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *categoryRepository) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	const query = `
        SELECT id, company_id, name, description, is_active, created_at, updated_at
        FROM categories WHERE id=$1`
	var category domain.Category
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&category.ID,
		&category.CompanyID,
		&category.Name,
		&category.Description,
		&category.IsActive,
		&category.CreatedAt,
		&category.UpdatedAt,
	); err != nil {
		return nil, translate(err)
	}
	return &category, nil
}

func (r *categoryRepository) ListByCompany(ctx context.Context, companyID string, includeInactive bool) ([]domain.Category, error) {
	query := `
        SELECT id, company_id, name, description, is_active, created_at, updated_at
        FROM categories WHERE company_id=$1`
	if !includeInactive {
		query += ` AND is_active = TRUE`
	}
	query += ` ORDER BY name`

	rows, err := r.pool.Query(ctx, query, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Category
	for rows.Next() {
		var category domain.Category
		if err := rows.Scan(&category.ID, &category.CompanyID, &category.Name, &category.Description, &category.IsActive, &category.CreatedAt, &category.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, category)
	}
	return result, rows.Err()
}

func (r *categoryRepository) DeleteIfNoActiveTickets(ctx context.Context, id string, blocking []domain.TicketStatus) (int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var categoryID string
	if err := tx.QueryRow(ctx, `SELECT id FROM categories WHERE id=$1 FOR UPDATE`, id).Scan(&categoryID); err != nil {
		return 0, translate(err)
	}

	statuses := make([]string, 0, len(blocking))
	for _, status := range blocking {
		statuses = append(statuses, string(status))
	}

	var count int64
	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM tickets WHERE category_id=$1 AND status = ANY($2)`,
		id, statuses,
	).Scan(&count)
	if err != nil {
		// The tickets table may not exist yet during bootstrap; treat the
		// count as zero instead of failing the whole delete.
		var pgErr *pgconn.PgError
		if !errors.As(err, &pgErr) || pgErr.Code != "42P01" {
			return 0, err
		}
		count = 0
	}
	if count > 0 {
		return count, nil
	}

	if _, err := tx.Exec(ctx, `DELETE FROM categories WHERE id=$1`, id); err != nil {
		return 0, err
	}
	return 0, tx.Commit(ctx)
}
