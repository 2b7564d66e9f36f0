package domain

import "time"

// Company is an isolated tenant. Tickets, categories and areas all belong to
// exactly one company.
type Company struct {
	ID        string
	Name      string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
