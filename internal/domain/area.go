package domain

import "time"

// Area is an operational team/queue within a company that tickets can be
// routed to. Areas are the prediction targets of the area predictor.
type Area struct {
	ID          string
	CompanyID   string
	Name        string
	Description string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
