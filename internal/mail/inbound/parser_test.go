package inbound

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const plainMessage = "From: \"Alice Doe\" <alice@example.com>\r\n" +
	"To: support@example.com\r\n" +
	"Cc: bob@example.com, Carol <carol@example.com>\r\n" +
	"Subject: =?UTF-8?Q?Drucker_f=C3=A4llt_aus?=\r\n" +
	"Date: Mon, 02 Jan 2006 15:04:05 +0000\r\n" +
	"Message-Id: <m1@example.com>\r\n" +
	"References: <root@example.com>\r\n" +
	"In-Reply-To: <root@example.com>\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"The printer on floor 2 is broken.\r\n"

const multipartMessage = "From: dave@example.com\r\n" +
	"To: support@example.com\r\n" +
	"Subject: Logs\r\n" +
	"Message-Id: <m2@example.com>\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/mixed; boundary=outer\r\n" +
	"\r\n" +
	"--outer\r\n" +
	"Content-Type: multipart/alternative; boundary=inner\r\n" +
	"\r\n" +
	"--inner\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<p>See <b>attached</b></p>\r\n" +
	"--inner\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"See attached\r\n" +
	"--inner--\r\n" +
	"--outer\r\n" +
	"Content-Type: text/plain\r\n" +
	"Content-Disposition: attachment; filename=\"app.log\"\r\n" +
	"\r\n" +
	"line one\r\n" +
	"--outer--\r\n"

const htmlOnlyMessage = "From: erin@example.com\r\n" +
	"Subject: Html\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<div>Hello&nbsp;there</div><div>second line</div>\r\n"

func TestParsePlainMessage(t *testing.T) {
	msg, err := Parse([]byte(plainMessage))
	require.NoError(t, err)

	assert.Equal(t, "m1@example.com", msg.MessageID)
	assert.Equal(t, "alice@example.com", ParseAddress(msg.From))
	assert.Equal(t, []string{"bob@example.com", "carol@example.com"}, ExtractAddresses(msg.CC))
	assert.Equal(t, "Drucker fällt aus", msg.Subject)
	assert.Equal(t, "<root@example.com>", strings.TrimSpace(msg.References))
	assert.Equal(t, "<root@example.com>", msg.InReplyTo)
	assert.Equal(t, time.Date(2006, 1, 2, 15, 4, 5, 0, time.UTC), msg.Date.UTC())
	assert.False(t, msg.HTML)
	assert.Contains(t, msg.Body, "The printer on floor 2 is broken.")
	assert.Empty(t, msg.Attachments)
}

func TestParseMultipartPrefersPlainAndCollectsAttachments(t *testing.T) {
	msg, err := Parse([]byte(multipartMessage))
	require.NoError(t, err)

	assert.False(t, msg.HTML)
	assert.Equal(t, "See attached", strings.TrimSpace(msg.Body))
	require.Len(t, msg.Attachments, 1)
	assert.Equal(t, "app.log", msg.Attachments[0].Filename)
	assert.Equal(t, "text/plain", msg.Attachments[0].ContentType)
	assert.Equal(t, "line one", strings.TrimSpace(string(msg.Attachments[0].Data)))
	assert.True(t, msg.Date.IsZero())
}

func TestParseHTMLOnly(t *testing.T) {
	msg, err := Parse([]byte(htmlOnlyMessage))
	require.NoError(t, err)
	assert.True(t, msg.HTML)
	assert.Equal(t, "Hello there\nsecond line", HTMLToText(msg.Body))
}

func TestParseBatch(t *testing.T) {
	msgs, failed := ParseBatch([][]byte{[]byte(plainMessage), []byte(multipartMessage)})
	assert.Empty(t, failed)
	require.Len(t, msgs, 2)
	assert.Equal(t, "m2@example.com", msgs[1].MessageID)
}

const malformedMessage = "this line has no colon and is not a header\r\n" +
	"\r\n" +
	"body\r\n"

func TestParseBatchSkipsUnparseable(t *testing.T) {
	msgs, failed := ParseBatch([][]byte{[]byte(malformedMessage), []byte(plainMessage)})
	require.Len(t, msgs, 1)
	assert.Equal(t, "m1@example.com", msgs[0].MessageID)
	require.Len(t, failed, 1)
	assert.Equal(t, 0, failed[0].Index)
	assert.Error(t, failed[0].Err)
}

func withPartLimits(t *testing.T, body, attachment int64) {
	t.Helper()
	prevBody, prevAttachment := maxBodyBytes, maxAttachmentBytes
	maxBodyBytes, maxAttachmentBytes = body, attachment
	t.Cleanup(func() { maxBodyBytes, maxAttachmentBytes = prevBody, prevAttachment })
}

func TestParseDropsOversizedAttachment(t *testing.T) {
	withPartLimits(t, 1<<20, 4)

	msg, err := Parse([]byte(multipartMessage))
	require.NoError(t, err)
	assert.Empty(t, msg.Attachments)
	assert.Equal(t, []string{"app.log"}, msg.Oversized)
	assert.False(t, msg.BodyTruncated)
}

func TestParseFlagsTruncatedBody(t *testing.T) {
	withPartLimits(t, 11, 1<<20)

	msg, err := Parse([]byte(plainMessage))
	require.NoError(t, err)
	assert.True(t, msg.BodyTruncated)
	assert.Equal(t, "The printer", msg.Body)

	msg, err = Parse([]byte(htmlOnlyMessage))
	require.NoError(t, err)
	assert.True(t, msg.BodyTruncated)
	assert.True(t, msg.HTML)
}

func TestHTMLToText(t *testing.T) {
	assert.Equal(t, "a\nb", HTMLToText("a<br/>b"))
	assert.Equal(t, "one\n\ntwo", HTMLToText("<p>one</p><p></p><p></p><p>two</p>"))
	assert.Equal(t, "x < y & z", HTMLToText("x &lt; y &amp; z"))
	assert.Equal(t, "keep\nnewline", HTMLToText("keep\nnewline"))
	assert.Empty(t, HTMLToText(""))
}

func TestParseAddress(t *testing.T) {
	assert.Equal(t, "a@example.com", ParseAddress("Alice <a@example.com>"))
	assert.Equal(t, "a@example.com", ParseAddress("a@example.com"))
	assert.Equal(t, "a@example.com", ParseAddress("broken <<a@example.com"))
	assert.Empty(t, ParseAddress(""))
	assert.Equal(t, "x@a.com,y@b.com", JoinAddresses(ExtractAddresses("x@a.com; Y <y@b.com>")))
}

func TestLocalDate(t *testing.T) {
	berlin := time.FixedZone("CET", 3600)
	fixed := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	got := LocalDate(time.Time{}, berlin, func() time.Time { return fixed })
	assert.Equal(t, 11, got.Hour())
	assert.Equal(t, fixed, LocalDate(fixed, nil, time.Now).UTC())
}
