package domain

import "time"

// InboundAttachment is one file part of an inbound message.
type InboundAttachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// InboundMessage is a parsed mail with raw header values.
type InboundMessage struct {
	MessageID   string
	From        string
	To          string
	DeliveredTo string
	CC          string
	References  string
	InReplyTo   string
	Subject     string
	Date        time.Time
	Body        string
	HTML        bool
	// BodyTruncated is set when the body exceeded the parser's size cap.
	BodyTruncated bool
	Attachments   []InboundAttachment
	// Oversized names attachments dropped for exceeding the size cap.
	Oversized []string
}

// IngestChannel describes the mailbox a batch came from.
type IngestChannel struct {
	Name            string
	Kind            string
	FileAttachments bool
}

// IngestResult summarises one ingestion batch.
type IngestResult struct {
	Created            int
	FollowUps          int
	Talks              int
	AttachmentsFiled   int
	AttachmentsSkipped int
	MessagesSkipped    int
	Tickets            []string
}
