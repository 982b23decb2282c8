package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTicketPriority(t *testing.T) {
	cases := map[string]TicketPriority{
		"important": TicketPriorityImportant,
		"1":         TicketPriorityImportant,
		"High":      TicketPriorityHigh,
		"":          TicketPriorityNormal,
		" low ":     TicketPriorityLow,
	}
	for in, want := range cases {
		got, err := ParseTicketPriority(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseTicketPriority("urgent")
	assert.Error(t, err)
}

func TestPriorityOrdering(t *testing.T) {
	assert.True(t, TicketPriorityImportant.MoreUrgentThan(TicketPriorityHigh))
	assert.True(t, TicketPriorityHigh.MoreUrgentThan(TicketPriorityNormal))
	assert.True(t, TicketPriorityNormal.MoreUrgentThan(TicketPriorityLow))
	assert.False(t, TicketPriorityLow.MoreUrgentThan(TicketPriorityLow))
	assert.False(t, TicketPriority(9).Valid())
	assert.Equal(t, "normal", TicketPriorityNormal.String())
}

func TestTicketHelpers(t *testing.T) {
	ticket := &Ticket{ID: "42", State: TicketStateDone, Message: "  \n"}
	assert.Equal(t, "helpdesk,42", ticket.ResourceKey())
	assert.True(t, ticket.ReadOnly())
	assert.False(t, ticket.HasMessage())

	ticket.State = TicketStateOpen
	ticket.Message = "hello"
	assert.False(t, ticket.ReadOnly())
	assert.True(t, ticket.HasMessage())
}

func TestTalkDisplayText(t *testing.T) {
	email := "alice@example.com"
	talk := &Talk{
		Email:   &email,
		Date:    time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		Message: "1\n2\n3\n4\n5\n6\n7\n8",
	}

	text := talk.DisplayText(time.UTC)
	assert.True(t, strings.HasPrefix(text, "alice@example.com (2024-03-01 10:00:00):\n1\n\t2"))
	assert.True(t, strings.HasSuffix(text, "6..."))
	assert.NotContains(t, text, "7")

	short := &Talk{Message: "one\ntwo"}
	assert.Equal(t, ":\none\n\ttwo", short.DisplayText(nil))
}

func TestQuoteReply(t *testing.T) {
	assert.Equal(t, "> hi\n> there", QuoteReply("hi\nthere"))
}

func TestUserSignatureBlock(t *testing.T) {
	assert.Equal(t, "\n\n--\nBest, Bob", (&User{Name: "Bob", Signature: "Best, Bob"}).SignatureBlock())
	assert.Equal(t, "\n\n--\nBob", (&User{Name: "Bob"}).SignatureBlock())
	assert.Nil(t, (&User{}).SenderEmail())
	assert.Equal(t, "bob@example.com", *(&User{Email: "bob@example.com"}).SenderEmail())
}

func TestGuessContentType(t *testing.T) {
	assert.Equal(t, "application/pdf", GuessContentType("report.PDF"))
	assert.Equal(t, "application/octet-stream", GuessContentType("noext"))
}
