package dto

import "github.com/deskline/helpdesk-service/internal/domain"

// IngestRequest carries raw RFC 5322 messages to file as one batch.
type IngestRequest struct {
	Channel         string   `json:"channel"`
	Kind            string   `json:"kind"`
	FileAttachments *bool    `json:"file_attachments"`
	Messages        []string `json:"messages"`
}

// IngestResponse summarises a batch.
type IngestResponse struct {
	Created            int      `json:"created"`
	FollowUps          int      `json:"follow_ups"`
	Talks              int      `json:"talks"`
	AttachmentsFiled   int      `json:"attachments_filed"`
	AttachmentsSkipped int      `json:"attachments_skipped"`
	MessagesSkipped    int      `json:"messages_skipped"`
	Tickets            []string `json:"tickets"`
}

// NewIngestResponse maps a batch result.
func NewIngestResponse(result *domain.IngestResult) IngestResponse {
	tickets := result.Tickets
	if tickets == nil {
		tickets = []string{}
	}
	return IngestResponse{
		Created:            result.Created,
		FollowUps:          result.FollowUps,
		Talks:              result.Talks,
		AttachmentsFiled:   result.AttachmentsFiled,
		AttachmentsSkipped: result.AttachmentsSkipped,
		MessagesSkipped:    result.MessagesSkipped,
		Tickets:            tickets,
	}
}
