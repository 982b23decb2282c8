package domain

import "time"

// LogKeyword is the action recorded for a workflow transition.
type LogKeyword string

const (
	LogOpened  LogKeyword = "opened"
	LogPending LogKeyword = "pending"
	LogDrafted LogKeyword = "drafted"
	LogClosed  LogKeyword = "closed"
)

// TicketLog is an immutable audit trail entry.
type TicketLog struct {
	ID       string
	TicketID string
	Date     time.Time
	UserID   *string
	Action   LogKeyword
}
