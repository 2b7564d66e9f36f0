package domain

import "time"

// TicketAttachment stores metadata for a file bound to a ticket, optionally
// scoped to one of its responses.
type TicketAttachment struct {
	ID               string
	TicketID         string
	ResponseID       *string
	UploadedByUserID string
	FileName         string
	StoragePath      string
	FileType         string
	FileSizeBytes    int64
	CreatedAt        time.Time
}
