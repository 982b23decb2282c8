package domain

import (
	"mime"
	"path/filepath"
	"time"
)

// Attachment is a file filed under a ticket's resource key.
type Attachment struct {
	ID             string
	TicketID       string
	Resource       string
	Name           string
	ContentType    string
	Data           []byte
	Size           int64
	StagedForEmail bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// GuessContentType derives a MIME type from the file extension.
func GuessContentType(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
