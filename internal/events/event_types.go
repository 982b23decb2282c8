package events

import (
	"time"

	"github.com/deskline/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated      EventType = "ticket_created"
	EventTicketStateChanged EventType = "ticket_state_changed"
	EventTalkAdded          EventType = "talk_added"
	EventEmailSent          EventType = "email_sent"
	EventMailIngested       EventType = "mail_ingested"
)

// Actor identifies who caused the event. UserID is nil for ingestion.
type Actor struct {
	UserID *string `json:"user_id,omitempty"`
	System string  `json:"system,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id,omitempty"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Title    string                `json:"title"`
	Kind     string                `json:"kind"`
	Priority domain.TicketPriority `json:"priority"`
	State    domain.TicketState    `json:"state"`
	Source   string                `json:"source"`
}

// TicketStateChangedPayload payload.
type TicketStateChangedPayload struct {
	OldState domain.TicketState `json:"old_state"`
	NewState domain.TicketState `json:"new_state"`
	Action   domain.LogKeyword  `json:"action"`
}

// TalkAddedPayload payload.
type TalkAddedPayload struct {
	TalkID      string  `json:"talk_id"`
	Email       *string `json:"email,omitempty"`
	Unread      bool    `json:"unread"`
	BodyPreview string  `json:"body_preview"`
}

// EmailSentPayload payload.
type EmailSentPayload struct {
	MessageID   string `json:"message_id"`
	To          string `json:"to"`
	CC          string `json:"cc,omitempty"`
	Attachments int    `json:"attachments"`
}

// MailIngestedPayload payload.
type MailIngestedPayload struct {
	Channel            string   `json:"channel"`
	Created            int      `json:"created"`
	FollowUps          int      `json:"follow_ups"`
	Talks              int      `json:"talks"`
	AttachmentsFiled   int      `json:"attachments_filed"`
	AttachmentsSkipped int      `json:"attachments_skipped"`
	Tickets            []string `json:"tickets"`
}
