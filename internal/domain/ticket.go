package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen     TicketStatus = "OPEN"
	TicketStatusPending  TicketStatus = "PENDING"
	TicketStatusResolved TicketStatus = "RESOLVED"
	TicketStatusClosed   TicketStatus = "CLOSED"
)

// ActiveTicketStatuses are the statuses that keep a ticket "live": they block
// deletion of the category the ticket references.
var ActiveTicketStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusPending,
	TicketStatusResolved,
}

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
	TicketPriorityUrgent TicketPriority = "URGENT"
)

// ResponseAuthorType tracks whose turn it is on a ticket thread.
type ResponseAuthorType string

const (
	ResponseAuthorNone  ResponseAuthorType = "NONE"
	ResponseAuthorUser  ResponseAuthorType = "USER"
	ResponseAuthorAgent ResponseAuthorType = "AGENT"
)

// Ticket is the aggregate for support requests.
type Ticket struct {
	ID                     string
	TicketCode             string
	CompanyID              string
	CategoryID             string
	AreaID                 *string
	CreatedByUserID        string
	OwnerAgentID           *string
	Title                  string
	Description            string
	Status                 TicketStatus
	Priority               TicketPriority
	LastResponseAuthorType ResponseAuthorType
	CreatedAt              time.Time
	UpdatedAt              time.Time
	ResolvedAt             *time.Time
	ClosedAt               *time.Time
}
