package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// ResponseRepository manages ticket thread responses.
type ResponseRepository interface {
	// Create inserts the response and bumps the parent ticket's
	// last_response_author_type in the same transaction. Updates and deletes
	// deliberately leave the ticket untouched.
	Create(ctx context.Context, resp *domain.TicketResponse) error
	GetByID(ctx context.Context, id string) (*domain.TicketResponse, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketResponse, error)
	Update(ctx context.Context, resp *domain.TicketResponse) error
	Delete(ctx context.Context, id string) error
}

type responseRepository struct {
	pool *pgxpool.Pool
}

// NewResponseRepository builds repository.
func NewResponseRepository(pool *pgxpool.Pool) ResponseRepository {
	return &responseRepository{pool: pool}
}

func (r *responseRepository) Create(ctx context.Context, resp *domain.TicketResponse) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const insert = `
        INSERT INTO ticket_responses (ticket_id, author_id, author_type, content)
        VALUES ($1,$2,$3,$4)
        RETURNING id, created_at, updated_at`
	if err := tx.QueryRow(ctx, insert,
		resp.TicketID,
		resp.AuthorID,
		resp.AuthorType,
		resp.Content,
	).Scan(&resp.ID, &resp.CreatedAt, &resp.UpdatedAt); err != nil {
		return translate(err)
	}

	const touch = `
        UPDATE tickets SET last_response_author_type=$1, updated_at=NOW()
        WHERE id=$2`
	cmd, err := tx.Exec(ctx, touch, resp.AuthorType, resp.TicketID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return tx.Commit(ctx)
}

func (r *responseRepository) GetByID(ctx context.Context, id string) (*domain.TicketResponse, error) {
	const query = `
        SELECT id, ticket_id, author_id, author_type, content, created_at, updated_at
        FROM ticket_responses WHERE id=$1`
	var resp domain.TicketResponse
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&resp.ID,
		&resp.TicketID,
		&resp.AuthorID,
		&resp.AuthorType,
		&resp.Content,
		&resp.CreatedAt,
		&resp.UpdatedAt,
	); err != nil {
		return nil, translate(err)
	}
	return &resp, nil
}

func (r *responseRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketResponse, error) {
	const query = `
        SELECT id, ticket_id, author_id, author_type, content, created_at, updated_at
        FROM ticket_responses WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketResponse
	for rows.Next() {
		var resp domain.TicketResponse
		if err := rows.Scan(
			&resp.ID,
			&resp.TicketID,
			&resp.AuthorID,
			&resp.AuthorType,
			&resp.Content,
			&resp.CreatedAt,
			&resp.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, resp)
	}
	return result, rows.Err()
}

func (r *responseRepository) Update(ctx context.Context, resp *domain.TicketResponse) error {
	const query = `
        UPDATE ticket_responses SET content=$1, updated_at=NOW()
        WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, resp.Content, resp.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *responseRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM ticket_responses WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
