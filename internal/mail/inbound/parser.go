package inbound

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"
	"time"

	gomessage "github.com/emersion/go-message"
	gomail "github.com/emersion/go-message/mail"
	htmlcharset "golang.org/x/net/html/charset"

	"github.com/deskline/helpdesk-service/internal/domain"
)

// Size caps per part. An attachment over its cap is dropped; a body over
// its cap is cut and flagged.
var (
	maxBodyBytes       int64 = 4 << 20
	maxAttachmentBytes int64 = 25 << 20
)

var wordDecoder = &mime.WordDecoder{CharsetReader: htmlcharset.NewReaderLabel}

func init() {
	gomessage.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		return htmlcharset.NewReaderLabel(charset, input)
	}
}

// Parse reads one RFC 5322 message. Header values are kept close to raw;
// the ingestion engine normalises them. A text/plain body is preferred over
// text/html.
func Parse(raw []byte) (domain.InboundMessage, error) {
	var msg domain.InboundMessage
	reader, err := gomail.CreateReader(bytes.NewReader(raw))
	if err != nil && !gomessage.IsUnknownCharset(err) {
		return msg, fmt.Errorf("parse message: %w", err)
	}
	defer reader.Close()

	h := reader.Header
	msg.MessageID = NormalizeMessageID(h.Get("Message-Id"))
	msg.From = decodeHeader(h.Get("From"))
	msg.To = decodeHeader(h.Get("To"))
	msg.DeliveredTo = decodeHeader(h.Get("Delivered-To"))
	msg.CC = decodeHeader(h.Get("Cc"))
	msg.References = strings.Join(h.Values("References"), " ")
	msg.InReplyTo = h.Get("In-Reply-To")
	if subject, err := h.Subject(); err == nil {
		msg.Subject = strings.TrimSpace(subject)
	} else {
		msg.Subject = decodeHeader(h.Get("Subject"))
	}
	if date, err := h.Date(); err == nil && !date.IsZero() {
		msg.Date = date
	}

	var plain, htmlBody string
	var havePlain, haveHTML, plainOver, htmlOver bool
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if gomessage.IsUnknownCharset(err) || gomessage.IsUnknownEncoding(err) {
				continue
			}
			return msg, fmt.Errorf("read part: %w", err)
		}
		switch ph := part.Header.(type) {
		case *gomail.InlineHeader:
			mediaType, _, _ := ph.ContentType()
			mediaType = strings.ToLower(mediaType)
			body, over, err := readCapped(part.Body, maxBodyBytes)
			if err != nil {
				return msg, fmt.Errorf("read body: %w", err)
			}
			switch {
			case mediaType == "text/html":
				if !haveHTML {
					htmlBody, haveHTML, htmlOver = string(body), true, over
				}
			case mediaType == "" || strings.HasPrefix(mediaType, "text/"):
				if !havePlain {
					plain, havePlain, plainOver = string(body), true, over
				}
			}
		case *gomail.AttachmentHeader:
			filename, err := ph.Filename()
			if err != nil || strings.TrimSpace(filename) == "" {
				continue
			}
			data, over, err := readCapped(part.Body, maxAttachmentBytes)
			if err != nil {
				return msg, fmt.Errorf("read attachment %s: %w", filename, err)
			}
			if over {
				msg.Oversized = append(msg.Oversized, filename)
				continue
			}
			mediaType, _, _ := ph.ContentType()
			if mediaType == "" {
				mediaType = domain.GuessContentType(filename)
			}
			msg.Attachments = append(msg.Attachments, domain.InboundAttachment{
				Filename:    filename,
				ContentType: strings.ToLower(mediaType),
				Data:        data,
			})
		}
	}

	switch {
	case havePlain:
		msg.Body, msg.BodyTruncated = plain, plainOver
	case haveHTML:
		msg.Body, msg.HTML, msg.BodyTruncated = htmlBody, true, htmlOver
	}
	return msg, nil
}

// readCapped reads at most limit bytes and reports whether r held more.
func readCapped(r io.Reader, limit int64) ([]byte, bool, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(data)) <= limit {
		return data, false, nil
	}
	return data[:limit], true, nil
}

// ParseFailure records a raw message that could not be parsed.
type ParseFailure struct {
	Index int
	Err   error
}

// ParseBatch parses every raw message. Unparseable messages are returned
// as failures and left out of the result, so one bad mail cannot hold up
// the rest of the batch.
func ParseBatch(raws [][]byte) ([]domain.InboundMessage, []ParseFailure) {
	out := make([]domain.InboundMessage, 0, len(raws))
	var failed []ParseFailure
	for i, raw := range raws {
		msg, err := Parse(raw)
		if err != nil {
			failed = append(failed, ParseFailure{Index: i, Err: err})
			continue
		}
		out = append(out, msg)
	}
	return out, failed
}

func decodeHeader(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	decoded, err := wordDecoder.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}

// LocalDate converts the message date to loc, using now when the message
// carries none.
func LocalDate(date time.Time, loc *time.Location, now func() time.Time) time.Time {
	if date.IsZero() {
		date = now()
	}
	if loc == nil {
		loc = time.UTC
	}
	return date.In(loc)
}
