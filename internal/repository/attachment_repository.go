package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// AttachmentRepository persists attachment metadata.
type AttachmentRepository interface {
	// Create inserts the record while holding a lock on the parent ticket
	// row, re-counting existing attachments inside the transaction. Returns
	// ErrAttachmentQuota when the ticket already carries maxPerTicket files,
	// so two concurrent uploads cannot both pass the guard.
	Create(ctx context.Context, attachment *domain.TicketAttachment, maxPerTicket int) error
	GetByID(ctx context.Context, id string) (*domain.TicketAttachment, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketAttachment, error)
	CountByTicket(ctx context.Context, ticketID string) (int64, error)
	Delete(ctx context.Context, id string) error
}

type attachmentRepository struct {
	pool *pgxpool.Pool
}

// NewAttachmentRepository constructs repository.
func NewAttachmentRepository(pool *pgxpool.Pool) AttachmentRepository {
	return &attachmentRepository{pool: pool}
}

func (r *attachmentRepository) Create(ctx context.Context, attachment *domain.TicketAttachment, maxPerTicket int) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var ticketID string
	if err := tx.QueryRow(ctx, `SELECT id FROM tickets WHERE id=$1 FOR UPDATE`, attachment.TicketID).Scan(&ticketID); err != nil {
		return translate(err)
	}

	var count int64
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM ticket_attachments WHERE ticket_id=$1`, attachment.TicketID).Scan(&count); err != nil {
		return err
	}
	if maxPerTicket > 0 && count >= int64(maxPerTicket) {
		return ErrAttachmentQuota
	}

	const insert = `
        INSERT INTO ticket_attachments (ticket_id, response_id, uploaded_by_user_id, file_name, storage_path, file_type, file_size_bytes)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at`
	if err := tx.QueryRow(ctx, insert,
		attachment.TicketID,
		attachment.ResponseID,
		attachment.UploadedByUserID,
		attachment.FileName,
		attachment.StoragePath,
		attachment.FileType,
		attachment.FileSizeBytes,
	).Scan(&attachment.ID, &attachment.CreatedAt); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *attachmentRepository) GetByID(ctx context.Context, id string) (*domain.TicketAttachment, error) {
	const query = `
        SELECT id, ticket_id, response_id, uploaded_by_user_id, file_name, storage_path, file_type, file_size_bytes, created_at
        FROM ticket_attachments WHERE id=$1`
	var attachment domain.TicketAttachment
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&attachment.ID,
		&attachment.TicketID,
		&attachment.ResponseID,
		&attachment.UploadedByUserID,
		&attachment.FileName,
		&attachment.StoragePath,
		&attachment.FileType,
		&attachment.FileSizeBytes,
		&attachment.CreatedAt,
	); err != nil {
		return nil, translate(err)
	}
	return &attachment, nil
}

func (r *attachmentRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketAttachment, error) {
	const query = `
        SELECT id, ticket_id, response_id, uploaded_by_user_id, file_name, storage_path, file_type, file_size_bytes, created_at
        FROM ticket_attachments WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketAttachment
	for rows.Next() {
		var attachment domain.TicketAttachment
		if err := rows.Scan(
			&attachment.ID,
			&attachment.TicketID,
			&attachment.ResponseID,
			&attachment.UploadedByUserID,
			&attachment.FileName,
			&attachment.StoragePath,
			&attachment.FileType,
			&attachment.FileSizeBytes,
			&attachment.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, attachment)
	}
	return result, rows.Err()
}

func (r *attachmentRepository) CountByTicket(ctx context.Context, ticketID string) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM ticket_attachments WHERE ticket_id=$1`, ticketID).Scan(&count)
	return count, err
}

func (r *attachmentRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM ticket_attachments WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
