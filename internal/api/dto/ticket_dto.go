package dto

import (
	"time"

	"github.com/deskline/helpdesk-service/internal/domain"
)

// CreateTicketRequest payload. Priority accepts a name or its rank.
type CreateTicketRequest struct {
	Title      string     `json:"title"`
	Message    string     `json:"message"`
	Priority   string     `json:"priority"`
	EmailFrom  string     `json:"email_from"`
	EmailCC    string     `json:"email_cc"`
	Kind       string     `json:"kind"`
	PartyID    *string    `json:"party_id"`
	ContactID  *string    `json:"contact_id"`
	EmployeeID *string    `json:"employee_id"`
	Date       *time.Time `json:"date"`
}

// UpdateTicketRequest payload. Absent fields are left unchanged; an empty
// employee_id or contact_id clears it.
type UpdateTicketRequest struct {
	Title      *string    `json:"title"`
	Date       *time.Time `json:"date"`
	Message    *string    `json:"message"`
	Priority   *string    `json:"priority"`
	EmailFrom  *string    `json:"email_from"`
	EmailCC    *string    `json:"email_cc"`
	EmployeeID *string    `json:"employee_id"`
	ContactID  *string    `json:"contact_id"`
}

// SetPartyRequest payload. A null party clears it.
type SetPartyRequest struct {
	PartyID *string `json:"party_id"`
}

// SetUnreadRequest payload.
type SetUnreadRequest struct {
	Unread bool `json:"unread"`
}

// UploadAttachmentRequest payload. Data is base64 in JSON.
type UploadAttachmentRequest struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
	Stage       bool   `json:"stage"`
}

// StageAttachmentRequest payload. Defaults to staging.
type StageAttachmentRequest struct {
	Staged *bool `json:"staged"`
}

// TicketSummary response.
type TicketSummary struct {
	ID             string             `json:"id"`
	Title          string             `json:"title"`
	Date           time.Time          `json:"date"`
	State          domain.TicketState `json:"state"`
	Priority       string             `json:"priority"`
	PriorityRank   int                `json:"priority_rank"`
	Kind           string             `json:"kind"`
	EmailFrom      string             `json:"email_from"`
	EmailCC        string             `json:"email_cc"`
	EmployeeID     *string            `json:"employee_id"`
	PartyID        *string            `json:"party_id"`
	ContactID      *string            `json:"contact_id"`
	ThreadID       string             `json:"thread_id,omitempty"`
	Unread         bool               `json:"unread"`
	NumAttachments int                `json:"num_attachments"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
	ClosedAt       *time.Time         `json:"closed_at"`
	LastTalkAt     *time.Time         `json:"last_talk_at"`
}

// TicketDetailResponse provides full ticket info.
type TicketDetailResponse struct {
	TicketSummary
	Message        string               `json:"message"`
	Talks          []TalkResponse       `json:"talks"`
	Logs           []LogResponse        `json:"logs"`
	Attachments    []AttachmentResponse `json:"attachments"`
	AllowedActions []domain.Action      `json:"allowed_actions"`
}

// TalkResponse represents one conversation entry.
type TalkResponse struct {
	ID        string    `json:"id"`
	Date      time.Time `json:"date"`
	Email     *string   `json:"email"`
	Message   string    `json:"message"`
	Unread    bool      `json:"unread"`
	MessageID string    `json:"message_id,omitempty"`
	Display   string    `json:"display"`
}

// LogResponse represents one audit entry.
type LogResponse struct {
	ID     string            `json:"id"`
	Date   time.Time         `json:"date"`
	UserID *string           `json:"user_id"`
	Action domain.LogKeyword `json:"action"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	ContentType    string    `json:"content_type"`
	Size           int64     `json:"size"`
	StagedForEmail bool      `json:"staged_for_email"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewTicketSummary maps a ticket for listings.
func NewTicketSummary(t *domain.Ticket) TicketSummary {
	return TicketSummary{
		ID:             t.ID,
		Title:          t.Title,
		Date:           t.Date,
		State:          t.State,
		Priority:       t.Priority.String(),
		PriorityRank:   int(t.Priority),
		Kind:           t.Kind,
		EmailFrom:      t.EmailFrom,
		EmailCC:        t.EmailCC,
		EmployeeID:     t.EmployeeID,
		PartyID:        t.PartyID,
		ContactID:      t.ContactID,
		ThreadID:       t.ThreadID,
		Unread:         t.Unread,
		NumAttachments: t.NumAttachments,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
		ClosedAt:       t.ClosedAt,
		LastTalkAt:     t.LastTalkAt,
	}
}

// NewTalkResponses maps talks, rendering display text in loc.
func NewTalkResponses(talks []domain.Talk, loc *time.Location) []TalkResponse {
	resp := make([]TalkResponse, 0, len(talks))
	for i := range talks {
		t := &talks[i]
		resp = append(resp, TalkResponse{
			ID:        t.ID,
			Date:      t.Date,
			Email:     t.Email,
			Message:   t.Message,
			Unread:    t.Unread,
			MessageID: t.MessageID,
			Display:   t.DisplayText(loc),
		})
	}
	return resp
}

// NewLogResponses maps audit entries.
func NewLogResponses(logs []domain.TicketLog) []LogResponse {
	resp := make([]LogResponse, 0, len(logs))
	for _, l := range logs {
		resp = append(resp, LogResponse{ID: l.ID, Date: l.Date, UserID: l.UserID, Action: l.Action})
	}
	return resp
}

// NewAttachmentResponse maps attachment metadata without content.
func NewAttachmentResponse(a *domain.Attachment) AttachmentResponse {
	return AttachmentResponse{
		ID:             a.ID,
		Name:           a.Name,
		ContentType:    a.ContentType,
		Size:           a.Size,
		StagedForEmail: a.StagedForEmail,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	}
}

// NewAttachmentResponses maps a list of attachments.
func NewAttachmentResponses(attachments []domain.Attachment) []AttachmentResponse {
	resp := make([]AttachmentResponse, 0, len(attachments))
	for i := range attachments {
		resp = append(resp, NewAttachmentResponse(&attachments[i]))
	}
	return resp
}
