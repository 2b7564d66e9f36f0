package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// UserRepository defines persistence access for accounts and their per-company
// role grants.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GrantRole(ctx context.Context, userID string, role domain.Role, companyID string) error
	HasRoleInCompany(ctx context.Context, userID string, role domain.Role, companyID string) (bool, error)
	RolesInCompany(ctx context.Context, userID, companyID string) ([]domain.Role, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (name, email, password_hash, status)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at, updated_at`

	return translate(r.pool.QueryRow(ctx, query,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Status,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt))
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users SET name=$1, email=$2, password_hash=$3, status=$4, updated_at=NOW()
        WHERE id=$5`

	cmd, err := r.pool.Exec(ctx, query,
		user.Name,
		user.Email,
		user.PasswordHash,
		user.Status,
		user.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `
        SELECT id, name, email, password_hash, status, created_at, updated_at
        FROM users WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `
        SELECT id, name, email, password_hash, status, created_at, updated_at
        FROM users WHERE email=$1`
	return r.fetchSingle(ctx, query, email)
}

func (r *userRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.User, error) {
	var user domain.User
	if err := r.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Status,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *userRepository) GrantRole(ctx context.Context, userID string, role domain.Role, companyID string) error {
	const query = `
        INSERT INTO user_company_roles (user_id, role, company_id)
        VALUES ($1,$2,$3)
        ON CONFLICT (user_id, role, company_id) DO NOTHING`
	_, err := r.pool.Exec(ctx, query, userID, role, companyID)
	return err
}

func (r *userRepository) HasRoleInCompany(ctx context.Context, userID string, role domain.Role, companyID string) (bool, error) {
	const query = `
        SELECT EXISTS (
            SELECT 1 FROM user_company_roles
            WHERE user_id=$1 AND role=$2 AND company_id=$3
        )`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, userID, role, companyID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *userRepository) RolesInCompany(ctx context.Context, userID, companyID string) ([]domain.Role, error) {
	const query = `
        SELECT role FROM user_company_roles
        WHERE user_id=$1 AND company_id=$2`
	rows, err := r.pool.Query(ctx, query, userID, companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []domain.Role
	for rows.Next() {
		var role domain.Role
		if err := rows.Scan(&role); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}
