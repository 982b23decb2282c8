package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TicketState enumerates lifecycle states for tickets.
type TicketState string

const (
	TicketStateDraft   TicketState = "draft"
	TicketStateOpen    TicketState = "open"
	TicketStatePending TicketState = "pending"
	TicketStateDone    TicketState = "done"
)

// Valid reports whether s is a known state.
func (s TicketState) Valid() bool {
	switch s {
	case TicketStateDraft, TicketStateOpen, TicketStatePending, TicketStateDone:
		return true
	}
	return false
}

// TicketPriority orders tickets by urgency. Lower values are more urgent.
type TicketPriority int

const (
	TicketPriorityImportant TicketPriority = 1
	TicketPriorityHigh      TicketPriority = 2
	TicketPriorityNormal    TicketPriority = 3
	TicketPriorityLow       TicketPriority = 4
)

func (p TicketPriority) String() string {
	switch p {
	case TicketPriorityImportant:
		return "important"
	case TicketPriorityHigh:
		return "high"
	case TicketPriorityNormal:
		return "normal"
	case TicketPriorityLow:
		return "low"
	}
	return strconv.Itoa(int(p))
}

// Valid reports whether p is one of the four known priorities.
func (p TicketPriority) Valid() bool {
	return p >= TicketPriorityImportant && p <= TicketPriorityLow
}

// MoreUrgentThan reports whether p ranks above other.
func (p TicketPriority) MoreUrgentThan(other TicketPriority) bool {
	return p < other
}

// ParseTicketPriority accepts either the name or the numeric rank.
func ParseTicketPriority(s string) (TicketPriority, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "important", "1":
		return TicketPriorityImportant, nil
	case "high", "2":
		return TicketPriorityHigh, nil
	case "normal", "3", "":
		return TicketPriorityNormal, nil
	case "low", "4":
		return TicketPriorityLow, nil
	}
	return 0, fmt.Errorf("unknown priority %q", s)
}

// DefaultKind is used when neither the caller nor the mail channel names one.
const DefaultKind = "generic"

// Ticket is the aggregate for help-desk cases.
type Ticket struct {
	ID         string
	Title      string
	Date       time.Time
	Message    string
	Priority   TicketPriority
	EmailFrom  string
	EmailCC    string
	State      TicketState
	EmployeeID *string
	PartyID    *string
	ContactID  *string
	ThreadID   string
	Kind       string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	ClosedAt   *time.Time
	LastTalkAt *time.Time

	// Derived by the store on read.
	Unread         bool
	NumAttachments int
}

// ResourceKey identifies the ticket as the owner of filed attachments.
func (t *Ticket) ResourceKey() string {
	return "helpdesk," + t.ID
}

// ReadOnly reports whether the editable fields are frozen.
func (t *Ticket) ReadOnly() bool {
	return t.State == TicketStateDone
}

// HasMessage reports whether the staging buffer holds something to send.
func (t *Ticket) HasMessage() bool {
	return strings.TrimSpace(t.Message) != ""
}
