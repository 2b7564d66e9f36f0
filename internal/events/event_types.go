package events

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated            EventType = "ticket_created"
	EventTicketStatusChanged      EventType = "ticket_status_changed"
	EventTicketAssigned           EventType = "ticket_assigned"
	EventTicketResponseAdded      EventType = "ticket_response_added"
	EventTicketAttachmentUploaded EventType = "ticket_attachment_uploaded"
)

// Event represents a domain event emitted by services. Actor is the identity
// that triggered the change.
type Event struct {
	ID        string       `json:"id"`
	Type      EventType    `json:"type"`
	TicketID  string       `json:"ticket_id"`
	CompanyID string       `json:"company_id"`
	Actor     domain.Actor `json:"actor"`
	Timestamp time.Time    `json:"timestamp"`
	Payload   interface{}  `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketCode string                `json:"ticket_code"`
	CategoryID string                `json:"category_id"`
	AreaID     *string               `json:"area_id,omitempty"`
	Priority   domain.TicketPriority `json:"priority"`
	Title      string                `json:"title"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	OwnerAgentID string `json:"owner_agent_id"`
}

// TicketResponseAddedPayload payload.
type TicketResponseAddedPayload struct {
	ResponseID     string                    `json:"response_id"`
	AuthorType     domain.ResponseAuthorType `json:"author_type"`
	AuthorID       string                    `json:"author_id"`
	ContentPreview string                    `json:"content_preview"`
}

// TicketAttachmentUploadedPayload payload.
type TicketAttachmentUploadedPayload struct {
	AttachmentID  string  `json:"attachment_id"`
	ResponseID    *string `json:"response_id,omitempty"`
	FileName      string  `json:"file_name"`
	FileSizeBytes int64   `json:"file_size_bytes"`
}
