package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TicketFilter captures listing parameters. Role scoping is expressed through
// CompanyID / CreatedByUserID, which the service fills in before anything else.
type TicketFilter struct {
	CompanyID              *string
	CreatedByUserID        *string
	CategoryID             *string
	AreaID                 *string
	OwnerAgentID           *string
	Unassigned             bool
	Statuses               []domain.TicketStatus
	Priorities             []domain.TicketPriority
	LastResponseAuthorType *domain.ResponseAuthorType
	SearchTerm             *string
	CreatedFrom            *time.Time
	CreatedTo              *time.Time
	SortBy                 string
	SortAsc                bool
	Limit                  int
	Offset                 int
}

// ticketSortColumns maps exposed sort fields onto columns. Anything outside
// this set is rejected upstream before the filter reaches the repository.
var ticketSortColumns = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"status":     "status",
	"priority":   "priority",
	"title":      "title",
}

// IsAllowedSortField reports whether the field may be used for ordering.
func IsAllowedSortField(field string) bool {
	_, ok := ticketSortColumns[field]
	return ok
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	GetByCode(ctx context.Context, code string) (*domain.Ticket, error)
	ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int64, error)
	Delete(ctx context.Context, id string) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, ticket_code, company_id, category_id, area_id, created_by_user_id,
               owner_agent_id, title, description, status, priority, last_response_author_type,
               created_at, updated_at, resolved_at, closed_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (ticket_code, company_id, category_id, area_id, created_by_user_id,
            owner_agent_id, title, description, status, priority, last_response_author_type)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, created_at, updated_at`
	return translate(r.pool.QueryRow(ctx, query,
		ticket.TicketCode,
		ticket.CompanyID,
		ticket.CategoryID,
		ticket.AreaID,
		ticket.CreatedByUserID,
		ticket.OwnerAgentID,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.LastResponseAuthorType,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt))
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET category_id=$1, area_id=$2, owner_agent_id=$3, title=$4, description=$5,
            status=$6, priority=$7, last_response_author_type=$8, resolved_at=$9, closed_at=$10,
            updated_at=NOW()
        WHERE id=$11`
	cmd, err := r.pool.Exec(ctx, query,
		ticket.CategoryID,
		ticket.AreaID,
		ticket.OwnerAgentID,
		ticket.Title,
		ticket.Description,
		ticket.Status,
		ticket.Priority,
		ticket.LastResponseAuthorType,
		ticket.ResolvedAt,
		ticket.ClosedAt,
		ticket.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	return r.fetchSingle(ctx, query, id)
}

func (r *ticketRepository) GetByCode(ctx context.Context, code string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE ticket_code=$1`
	return r.fetchSingle(ctx, query, code)
}

func (r *ticketRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Ticket, error) {
	var ticket domain.Ticket
	if err := scanTicket(r.pool.QueryRow(ctx, query, arg), &ticket); err != nil {
		return nil, translate(err)
	}
	return &ticket, nil
}

func (r *ticketRepository) ListWithFilter(ctx context.Context, filter TicketFilter) ([]domain.Ticket, int64, error) {
	clauses := []string{"1=1"}
	args := []any{}

	addArg := func(clause string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if filter.CompanyID != nil {
		addArg("company_id=$%d", *filter.CompanyID)
	}
	if filter.CreatedByUserID != nil {
		addArg("created_by_user_id=$%d", *filter.CreatedByUserID)
	}
	if filter.CategoryID != nil {
		addArg("category_id=$%d", *filter.CategoryID)
	}
	if filter.AreaID != nil {
		addArg("area_id=$%d", *filter.AreaID)
	}
	if filter.Unassigned {
		clauses = append(clauses, "owner_agent_id IS NULL")
	} else if filter.OwnerAgentID != nil {
		addArg("owner_agent_id=$%d", *filter.OwnerAgentID)
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.LastResponseAuthorType != nil {
		addArg("last_response_author_type=$%d", *filter.LastResponseAuthorType)
	}
	if filter.CreatedFrom != nil {
		addArg("created_at >= $%d", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		addArg("created_at <= $%d", *filter.CreatedTo)
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(`(LOWER(title) LIKE %[1]s OR LOWER(description) LIKE %[1]s
            OR EXISTS (SELECT 1 FROM areas a WHERE a.id=tickets.area_id AND LOWER(a.name) LIKE %[1]s)
            OR EXISTS (SELECT 1 FROM categories c WHERE c.id=tickets.category_id AND LOWER(c.name) LIKE %[1]s))`, placeholder))
	}

	sortColumn := ticketSortColumns[filter.SortBy]
	if sortColumn == "" {
		sortColumn = "created_at"
	}
	direction := "DESC"
	if filter.SortAsc {
		direction = "ASC"
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 15
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s, COUNT(*) OVER() AS total FROM tickets WHERE %s ORDER BY %s %s LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), sortColumn, direction, limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []domain.Ticket
	var total int64
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.TicketCode,
			&ticket.CompanyID,
			&ticket.CategoryID,
			&ticket.AreaID,
			&ticket.CreatedByUserID,
			&ticket.OwnerAgentID,
			&ticket.Title,
			&ticket.Description,
			&ticket.Status,
			&ticket.Priority,
			&ticket.LastResponseAuthorType,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
			&ticket.ResolvedAt,
			&ticket.ClosedAt,
			&total,
		); err != nil {
			return nil, 0, err
		}
		result = append(result, ticket)
	}
	return result, total, rows.Err()
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.TicketCode,
		&ticket.CompanyID,
		&ticket.CategoryID,
		&ticket.AreaID,
		&ticket.CreatedByUserID,
		&ticket.OwnerAgentID,
		&ticket.Title,
		&ticket.Description,
		&ticket.Status,
		&ticket.Priority,
		&ticket.LastResponseAuthorType,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ResolvedAt,
		&ticket.ClosedAt,
	)
}
