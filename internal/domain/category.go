package domain

import "time"

// Category is a tenant-defined classification chosen by the ticket creator.
// Tickets may only reference active categories at creation time.
type Category struct {
	ID          string
	CompanyID   string
	Name        string
	Description string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
