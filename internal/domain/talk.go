package domain

import (
	"strings"
	"time"
)

// talkPreviewLines bounds the conversation preview shown in listings.
const talkPreviewLines = 6

// Talk is one entry in a ticket conversation.
type Talk struct {
	ID        string
	TicketID  string
	Date      time.Time
	Email     *string
	Message   string
	Unread    bool
	MessageID string
}

// Truncated returns at most the first six lines of the message.
func (t *Talk) Truncated() string {
	if t.Message == "" {
		return ""
	}
	lines := strings.Split(t.Message, "\n")
	if len(lines) > talkPreviewLines {
		return strings.Join(lines[:talkPreviewLines], "\n\t") + "..."
	}
	return strings.Join(lines, "\n\t")
}

// DisplayText renders the sender, the date in loc and a truncated body.
func (t *Talk) DisplayText(loc *time.Location) string {
	var b strings.Builder
	if t.Email != nil && *t.Email != "" {
		b.WriteString(*t.Email)
		b.WriteString(" ")
	}
	if !t.Date.IsZero() {
		date := t.Date
		if loc != nil {
			date = date.In(loc)
		}
		b.WriteString("(")
		b.WriteString(date.Format("2006-01-02 15:04:05"))
		b.WriteString(")")
	}
	b.WriteString(":\n")
	b.WriteString(t.Truncated())
	return b.String()
}

// QuoteReply formats a message as an email quote.
func QuoteReply(message string) string {
	return "> " + strings.ReplaceAll(message, "\n", "\n> ")
}
