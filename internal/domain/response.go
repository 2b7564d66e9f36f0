package domain

import "time"

// TicketResponse captures one message in a ticket thread. AuthorType is
// derived from the author's role at write time, never client-supplied.
type TicketResponse struct {
	ID         string
	TicketID   string
	AuthorID   string
	AuthorType ResponseAuthorType
	Content    string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
