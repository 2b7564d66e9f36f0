package dto

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

var validPriorities = []interface{}{
	string(domain.TicketPriorityLow),
	string(domain.TicketPriorityMedium),
	string(domain.TicketPriorityHigh),
	string(domain.TicketPriorityUrgent),
}

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	CompanyID   string  `json:"company_id"`
	CategoryID  string  `json:"category_id"`
	AreaID      *string `json:"area_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Priority    string  `json:"priority"`
}

// Validate applies field rules.
func (r CreateTicketRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CompanyID, validation.Required, is.UUIDv4),
		validation.Field(&r.CategoryID, validation.Required, is.UUIDv4),
		validation.Field(&r.Title, validation.Required, validation.Length(1, 255)),
		validation.Field(&r.Description, validation.Required),
		validation.Field(&r.Priority, validation.In(validPriorities...)),
	)
}

// UpdateTicketRequest payload; absent fields stay unchanged.
type UpdateTicketRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Priority    *string `json:"priority"`
	CategoryID  *string `json:"category_id"`
	AreaID      *string `json:"area_id"`
}

// Validate applies field rules.
func (r UpdateTicketRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Length(1, 255)),
		validation.Field(&r.Priority, validation.In(validPriorities...)),
		validation.Field(&r.CategoryID, is.UUIDv4),
		validation.Field(&r.AreaID, is.UUIDv4),
	)
}

// AssignTicketRequest payload.
type AssignTicketRequest struct {
	AgentID string `json:"agent_id"`
}

// Validate applies field rules.
func (r AssignTicketRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.AgentID, validation.Required, is.UUIDv4),
	)
}

// CreateResponseRequest payload for thread replies.
type CreateResponseRequest struct {
	Content string `json:"content"`
}

// Validate applies field rules.
func (r CreateResponseRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Content, validation.Required, validation.Length(1, 10000)),
	)
}

// UpdateResponseRequest payload for editing a reply.
type UpdateResponseRequest struct {
	Content string `json:"content"`
}

// Validate applies field rules.
func (r UpdateResponseRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Content, validation.Required, validation.Length(1, 10000)),
	)
}

// PredictAreaRequest payload.
type PredictAreaRequest struct {
	CompanyID           string `json:"company_id"`
	CategoryName        string `json:"category_name"`
	CategoryDescription string `json:"category_description"`
}

// Validate applies field rules.
func (r PredictAreaRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CompanyID, validation.Required, is.UUIDv4),
		validation.Field(&r.CategoryName, validation.Required),
	)
}

// TicketView is the wire representation of a ticket.
type TicketView struct {
	ID                     string     `json:"id"`
	TicketCode             string     `json:"ticket_code"`
	CompanyID              string     `json:"company_id"`
	CategoryID             string     `json:"category_id"`
	AreaID                 *string    `json:"area_id"`
	CreatedByUserID        string     `json:"created_by_user_id"`
	OwnerAgentID           *string    `json:"owner_agent_id"`
	Title                  string     `json:"title"`
	Description            string     `json:"description"`
	Status                 string     `json:"status"`
	Priority               string     `json:"priority"`
	LastResponseAuthorType string     `json:"last_response_author_type"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
	ResolvedAt             *time.Time `json:"resolved_at"`
	ClosedAt               *time.Time `json:"closed_at"`
}

// NewTicketView maps the domain model.
func NewTicketView(t *domain.Ticket) TicketView {
	return TicketView{
		ID:                     t.ID,
		TicketCode:             t.TicketCode,
		CompanyID:              t.CompanyID,
		CategoryID:             t.CategoryID,
		AreaID:                 t.AreaID,
		CreatedByUserID:        t.CreatedByUserID,
		OwnerAgentID:           t.OwnerAgentID,
		Title:                  t.Title,
		Description:            t.Description,
		Status:                 string(t.Status),
		Priority:               string(t.Priority),
		LastResponseAuthorType: string(t.LastResponseAuthorType),
		CreatedAt:              t.CreatedAt,
		UpdatedAt:              t.UpdatedAt,
		ResolvedAt:             t.ResolvedAt,
		ClosedAt:               t.ClosedAt,
	}
}

// ResponseView is the wire representation of a thread response.
type ResponseView struct {
	ID         string    `json:"id"`
	TicketID   string    `json:"ticket_id"`
	AuthorID   string    `json:"author_id"`
	AuthorType string    `json:"author_type"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewResponseView maps the domain model.
func NewResponseView(r *domain.TicketResponse) ResponseView {
	return ResponseView{
		ID:         r.ID,
		TicketID:   r.TicketID,
		AuthorID:   r.AuthorID,
		AuthorType: string(r.AuthorType),
		Content:    r.Content,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
}

// AttachmentView is the wire representation of attachment metadata.
type AttachmentView struct {
	ID               string    `json:"id"`
	TicketID         string    `json:"ticket_id"`
	ResponseID       *string   `json:"response_id"`
	UploadedByUserID string    `json:"uploaded_by_user_id"`
	FileName         string    `json:"file_name"`
	FileType         string    `json:"file_type"`
	FileSizeBytes    int64     `json:"file_size_bytes"`
	CreatedAt        time.Time `json:"created_at"`
}

// NewAttachmentView maps the domain model.
func NewAttachmentView(a *domain.TicketAttachment) AttachmentView {
	return AttachmentView{
		ID:               a.ID,
		TicketID:         a.TicketID,
		ResponseID:       a.ResponseID,
		UploadedByUserID: a.UploadedByUserID,
		FileName:         a.FileName,
		FileType:         a.FileType,
		FileSizeBytes:    a.FileSizeBytes,
		CreatedAt:        a.CreatedAt,
	}
}

// PageMeta describes one page of results.
type PageMeta struct {
	Page    int   `json:"page"`
	PerPage int   `json:"per_page"`
	Total   int64 `json:"total"`
}
