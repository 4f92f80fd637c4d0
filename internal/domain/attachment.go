package domain

import "time"

// FileAttachment stores metadata for files attached to a ticket. Blob
// storage is external; only the reference lives here.
type FileAttachment struct {
	ID         string
	TicketID   string
	UploadedBy string
	StorageKey string
	FileName   string
	MimeType   string
	SizeBytes  int64
	CreatedAt  time.Time
}
