package mail

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"time"

	gomail "github.com/emersion/go-message/mail"

	"github.com/deskline/helpdesk-service/internal/domain"
)

// Outgoing is everything needed to render one ticket email.
type Outgoing struct {
	From        string
	To          []string
	CC          []string
	Subject     string
	Body        string
	InReplyTo   string
	Date        time.Time
	Attachments []domain.Attachment
}

// Recipients is the envelope recipient list.
func (o Outgoing) Recipients() []string {
	out := make([]string, 0, len(o.To)+len(o.CC))
	out = append(out, o.To...)
	return append(out, o.CC...)
}

// BuildMessage renders o as RFC 5322 bytes and returns the generated
// Message-ID without angle brackets.
func BuildMessage(o Outgoing) ([]byte, string, error) {
	var h gomail.Header
	date := o.Date
	if date.IsZero() {
		date = time.Now()
	}
	h.SetDate(date)
	h.SetAddressList("From", []*gomail.Address{{Address: o.From}})
	h.SetAddressList("Reply-To", []*gomail.Address{{Address: o.From}})
	h.SetAddressList("To", toAddresses(o.To))
	if len(o.CC) > 0 {
		h.SetAddressList("Cc", toAddresses(o.CC))
	}
	h.SetSubject(o.Subject)
	if err := h.GenerateMessageID(); err != nil {
		return nil, "", fmt.Errorf("generate message id: %w", err)
	}
	messageID, err := h.MessageID()
	if err != nil {
		return nil, "", fmt.Errorf("read message id: %w", err)
	}
	if o.InReplyTo != "" {
		h.SetMsgIDList("In-Reply-To", []string{o.InReplyTo})
		h.SetMsgIDList("References", []string{o.InReplyTo})
	}

	var buf bytes.Buffer
	if len(o.Attachments) == 0 {
		h.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
		w, err := gomail.CreateSingleInlineWriter(&buf, h)
		if err != nil {
			return nil, "", err
		}
		if _, err := io.WriteString(w, o.Body); err != nil {
			return nil, "", err
		}
		if err := w.Close(); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), messageID, nil
	}

	mw, err := gomail.CreateWriter(&buf, h)
	if err != nil {
		return nil, "", err
	}
	if err := writeTextPart(mw, o.Body); err != nil {
		return nil, "", err
	}
	for _, a := range o.Attachments {
		if err := writeAttachment(mw, a); err != nil {
			return nil, "", fmt.Errorf("attach %s: %w", a.Name, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), messageID, nil
}

func writeTextPart(mw *gomail.Writer, body string) error {
	tw, err := mw.CreateInline()
	if err != nil {
		return err
	}
	var ih gomail.InlineHeader
	ih.SetContentType("text/plain", map[string]string{"charset": "utf-8"})
	pw, err := tw.CreatePart(ih)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(pw, body); err != nil {
		return err
	}
	if err := pw.Close(); err != nil {
		return err
	}
	return tw.Close()
}

func writeAttachment(mw *gomail.Writer, a domain.Attachment) error {
	var ah gomail.AttachmentHeader
	contentType := a.ContentType
	if contentType == "" {
		contentType = domain.GuessContentType(a.Name)
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType, params = "application/octet-stream", nil
	}
	ah.SetContentType(mediaType, params)
	ah.SetFilename(a.Name)
	w, err := mw.CreateAttachment(ah)
	if err != nil {
		return err
	}
	if _, err := w.Write(a.Data); err != nil {
		return err
	}
	return w.Close()
}

func toAddresses(list []string) []*gomail.Address {
	out := make([]*gomail.Address, 0, len(list))
	for _, a := range list {
		out = append(out, &gomail.Address{Address: a})
	}
	return out
}
