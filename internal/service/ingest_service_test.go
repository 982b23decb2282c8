package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskline/helpdesk-service/internal/config"
	"github.com/deskline/helpdesk-service/internal/domain"
	"github.com/deskline/helpdesk-service/internal/events"
	"github.com/deskline/helpdesk-service/internal/repository"
	"github.com/deskline/helpdesk-service/internal/repository/memory"
	"github.com/deskline/helpdesk-service/pkg/util/errorutil"
)

type ingestFixture struct {
	store   *memory.Store
	clock   *fakeClock
	events  *recordedEvents
	service *IngestService
	tickets *TicketService
}

func newIngestFixture(t *testing.T, helpdesk config.HelpdeskConfig) *ingestFixture {
	t.Helper()
	store := memory.NewStore()
	clock := newFakeClock()
	dispatcher := events.NewInMemoryDispatcher()
	recorded := recordAll(dispatcher)
	return &ingestFixture{
		store:  store,
		clock:  clock,
		events: recorded,
		service: NewIngestService(IngestDependencies{
			Store:      store,
			Dispatcher: dispatcher,
			Helpdesk:   helpdesk,
			Clock:      clock.Now,
		}),
		tickets: NewTicketService(TicketDependencies{Store: store, Clock: clock.Now}),
	}
}

var supportChannel = domain.IngestChannel{Name: "support@desk.example.com", Kind: "support", FileAttachments: true}

func inboundMsg(id, subject string, at time.Time) domain.InboundMessage {
	return domain.InboundMessage{
		MessageID: "<" + id + ">",
		From:      "Bob Customer <Bob@Customer.example>",
		To:        "support@desk.example.com",
		Subject:   subject,
		Date:      at,
		Body:      "body of " + id,
	}
}

func reply(id, parent, subject string, at time.Time) domain.InboundMessage {
	msg := inboundMsg(id, subject, at)
	msg.InReplyTo = "<" + parent + ">"
	msg.References = "<" + parent + ">"
	return msg
}

func (f *ingestFixture) onlyTicket(t *testing.T) *TicketDetail {
	t.Helper()
	tickets, err := f.tickets.ListTickets(context.Background(), TicketListFilter{Limit: 100})
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	detail, err := f.tickets.GetTicket(context.Background(), tickets[0].ID)
	require.NoError(t, err)
	return detail
}

func TestIngestUnmatchedMessageCreatesTicket(t *testing.T) {
	f := newIngestFixture(t, config.HelpdeskConfig{MatchBySubject: true})
	party, contacts := f.store.AddParty(domain.Party{Name: "Customer Ltd"}, "bob@customer.example")
	msg := inboundMsg("first@customer.example", "Printer on fire", f.clock.Now().Add(-time.Hour))
	msg.CC = "Carol <carol@customer.example>, dave@customer.example"

	result, err := f.service.Ingest(context.Background(), supportChannel, []domain.InboundMessage{msg})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 0, result.FollowUps)
	assert.Equal(t, 1, result.Talks)

	detail := f.onlyTicket(t)
	ticket := detail.Ticket
	assert.Equal(t, "Printer on fire", ticket.Title)
	assert.Equal(t, "first@customer.example", ticket.ThreadID)
	assert.Equal(t, domain.TicketStatePending, ticket.State)
	assert.Equal(t, "support", ticket.Kind)
	assert.Equal(t, "bob@customer.example", ticket.EmailFrom)
	assert.Equal(t, "carol@customer.example,dave@customer.example", ticket.EmailCC)
	require.NotNil(t, ticket.PartyID)
	assert.Equal(t, party.ID, *ticket.PartyID)
	require.NotNil(t, ticket.ContactID)
	assert.Equal(t, contacts[0].ID, *ticket.ContactID)
	assert.True(t, ticket.Unread)
	assert.Nil(t, ticket.ClosedAt)
	require.Len(t, detail.Logs, 1)
	assert.Equal(t, domain.LogPending, detail.Logs[0].Action)
	assert.Nil(t, detail.Logs[0].UserID)

	require.Len(t, detail.Talks, 1)
	talk := detail.Talks[0]
	assert.True(t, talk.Unread)
	assert.Equal(t, "first@customer.example", talk.MessageID)
	assert.Equal(t, "body of first@customer.example", talk.Message)
	require.NotNil(t, talk.Email)
	assert.Equal(t, "bob@customer.example", *talk.Email)

	created := f.events.ofType(events.EventTicketCreated)
	require.Len(t, created, 1)
	payload := created[0].Payload.(events.TicketCreatedPayload)
	assert.Equal(t, "email", payload.Source)
	assert.Equal(t, domain.TicketStatePending, payload.State)
	assert.Len(t, f.events.ofType(events.EventMailIngested), 1)
}

func TestIngestReplyInSameBatchJoinsTicket(t *testing.T) {
	f := newIngestFixture(t, config.HelpdeskConfig{})
	base := f.clock.Now().Add(-2 * time.Hour)
	msgs := []domain.InboundMessage{
		reply("second@customer.example", "first@customer.example", "Re: Printer on fire", base.Add(time.Minute)),
		inboundMsg("first@customer.example", "Printer on fire", base),
	}

	result, err := f.service.Ingest(context.Background(), supportChannel, msgs)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.FollowUps)
	assert.Len(t, result.Tickets, 1)

	detail := f.onlyTicket(t)
	assert.Equal(t, "Printer on fire", detail.Ticket.Title)
	require.Len(t, detail.Talks, 2)
	assert.Equal(t, "second@customer.example", detail.Talks[0].MessageID)
	assert.Equal(t, "first@customer.example", detail.Talks[1].MessageID)
	assert.Equal(t, domain.TicketStatePending, detail.Ticket.State)
}

func TestIngestThreeMessageChain(t *testing.T) {
	f := newIngestFixture(t, config.HelpdeskConfig{})
	base := f.clock.Now().Add(-3 * time.Hour)
	third := reply("c@customer.example", "b@customer.example", "Re: Re: Outage", base.Add(2*time.Minute))
	third.References = "<a@customer.example> <b@customer.example>"
	msgs := []domain.InboundMessage{
		third,
		inboundMsg("a@customer.example", "Outage", base),
		reply("b@customer.example", "a@customer.example", "Re: Outage", base.Add(time.Minute)),
	}

	_, err := f.service.Ingest(context.Background(), supportChannel, msgs)
	require.NoError(t, err)

	detail := f.onlyTicket(t)
	assert.Equal(t, domain.TicketStatePending, detail.Ticket.State)
	require.Len(t, detail.Talks, 3)
	for _, talk := range detail.Talks {
		assert.True(t, talk.Unread)
	}
	require.Len(t, detail.Logs, 1)
	assert.Equal(t, domain.LogPending, detail.Logs[0].Action)
	assert.Nil(t, detail.Logs[0].UserID)
}

func TestIngestFollowUpReopensDoneTicket(t *testing.T) {
	f := newIngestFixture(t, config.HelpdeskConfig{})
	ctx := context.Background()
	closed := f.clock.Now().Add(-24 * time.Hour)
	ticket := &domain.Ticket{
		Title:     "Old issue",
		State:     domain.TicketStateDone,
		Priority:  domain.TicketPriorityNormal,
		Kind:      "support",
		EmailFrom: "bob@customer.example",
		ClosedAt:  &closed,
	}
	require.NoError(t, f.store.WithinTx(ctx, func(u repository.Unit) error {
		if err := u.Tickets().Create(ctx, ticket); err != nil {
			return err
		}
		return u.Talks().Create(ctx, &domain.Talk{
			TicketID:  ticket.ID,
			Date:      closed,
			Message:   "We fixed it.",
			MessageID: "out-1@desk.example.com",
		})
	}))

	msg := reply("again@customer.example", "out-1@desk.example.com", "Re: Old issue", f.clock.Now())
	result, err := f.service.Ingest(ctx, supportChannel, []domain.InboundMessage{msg})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Created)
	assert.Equal(t, 1, result.FollowUps)

	detail := f.onlyTicket(t)
	assert.Equal(t, ticket.ID, detail.Ticket.ID)
	assert.Equal(t, domain.TicketStatePending, detail.Ticket.State)
	assert.Nil(t, detail.Ticket.ClosedAt)
	require.Len(t, detail.Talks, 2)
	assert.True(t, detail.Talks[0].Unread)
	require.Len(t, detail.Logs, 1)
	assert.Nil(t, detail.Logs[0].UserID)
}

func TestIngestMatchesThreadID(t *testing.T) {
	f := newIngestFixture(t, config.HelpdeskConfig{})
	ctx := context.Background()
	ticket := &domain.Ticket{
		Title:    "Password reset",
		State:    domain.TicketStatePending,
		Priority: domain.TicketPriorityNormal,
		Kind:     "support",
		ThreadID: "root@customer.example",
	}
	require.NoError(t, f.store.WithinTx(ctx, func(u repository.Unit) error {
		return u.Tickets().Create(ctx, ticket)
	}))

	msg := reply("next@customer.example", "root@customer.example", "Re: Password reset", f.clock.Now())
	_, err := f.service.Ingest(ctx, supportChannel, []domain.InboundMessage{msg})
	require.NoError(t, err)

	detail := f.onlyTicket(t)
	assert.Equal(t, ticket.ID, detail.Ticket.ID)
	assert.Len(t, detail.Talks, 1)
	assert.Empty(t, detail.Logs, "already pending tickets are not logged again")
}

func TestIngestRedeliveryLandsOnSameTicket(t *testing.T) {
	f := newIngestFixture(t, config.HelpdeskConfig{})
	ctx := context.Background()
	msg := inboundMsg("dup@customer.example", "Laptop", f.clock.Now())

	_, err := f.service.Ingest(ctx, supportChannel, []domain.InboundMessage{msg})
	require.NoError(t, err)
	result, err := f.service.Ingest(ctx, supportChannel, []domain.InboundMessage{msg})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Created)

	detail := f.onlyTicket(t)
	assert.Len(t, detail.Talks, 2)
}

func TestIngestSubjectHeuristic(t *testing.T) {
	for _, enabled := range []bool{true, false} {
		f := newIngestFixture(t, config.HelpdeskConfig{MatchBySubject: enabled})
		ctx := context.Background()
		ticket := &domain.Ticket{
			Title:     "Printer on fire",
			State:     domain.TicketStateOpen,
			Priority:  domain.TicketPriorityNormal,
			Kind:      "support",
			EmailFrom: "bob@customer.example",
		}
		require.NoError(t, f.store.WithinTx(ctx, func(u repository.Unit) error {
			return u.Tickets().Create(ctx, ticket)
		}))

		msg := inboundMsg("loose@customer.example", "RE: Fwd: Printer on fire", f.clock.Now())
		result, err := f.service.Ingest(ctx, supportChannel, []domain.InboundMessage{msg})
		require.NoError(t, err)
		if enabled {
			assert.Equal(t, 0, result.Created)
			assert.Equal(t, []string{ticket.ID}, result.Tickets)
		} else {
			assert.Equal(t, 1, result.Created)
			assert.NotEqual(t, []string{ticket.ID}, result.Tickets)
		}
	}
}

func TestIngestSubjectHeuristicIgnoresDoneTickets(t *testing.T) {
	f := newIngestFixture(t, config.HelpdeskConfig{MatchBySubject: true})
	ctx := context.Background()
	require.NoError(t, f.store.WithinTx(ctx, func(u repository.Unit) error {
		return u.Tickets().Create(ctx, &domain.Ticket{
			Title:     "Printer on fire",
			State:     domain.TicketStateDone,
			Priority:  domain.TicketPriorityNormal,
			EmailFrom: "bob@customer.example",
		})
	}))

	result, err := f.service.Ingest(ctx, supportChannel, []domain.InboundMessage{
		inboundMsg("late@customer.example", "Re: Printer on fire", f.clock.Now()),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
}

func TestIngestSubjectHeuristicMatchesPendingTicket(t *testing.T) {
	f := newIngestFixture(t, config.HelpdeskConfig{MatchBySubject: true})
	ctx := context.Background()
	waiting := &domain.Ticket{
		Title:     "Printer on fire",
		State:     domain.TicketStatePending,
		Priority:  domain.TicketPriorityNormal,
		EmailFrom: "ops@customer.example",
		EmailCC:   "Bob@Customer.example",
	}
	require.NoError(t, f.store.WithinTx(ctx, func(u repository.Unit) error {
		return u.Tickets().Create(ctx, waiting)
	}))

	result, err := f.service.Ingest(ctx, supportChannel, []domain.InboundMessage{
		inboundMsg("nudge@customer.example", "Re: Printer on fire", f.clock.Now()),
	})
	require.NoError(t, err)
	assert.Zero(t, result.Created)
	assert.Equal(t, []string{waiting.ID}, result.Tickets)
}

func TestIngestSubjectHeuristicNeedsWholeCCAddress(t *testing.T) {
	f := newIngestFixture(t, config.HelpdeskConfig{MatchBySubject: true})
	ctx := context.Background()
	other := &domain.Ticket{
		Title:     "Printer on fire",
		State:     domain.TicketStateOpen,
		Priority:  domain.TicketPriorityNormal,
		EmailFrom: "jim@customer.example",
		EmailCC:   "jimbob@customer.example",
	}
	require.NoError(t, f.store.WithinTx(ctx, func(u repository.Unit) error {
		return u.Tickets().Create(ctx, other)
	}))

	result, err := f.service.Ingest(ctx, supportChannel, []domain.InboundMessage{
		inboundMsg("cc@customer.example", "Re: Printer on fire", f.clock.Now()),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	require.Len(t, result.Tickets, 1)
	assert.NotEqual(t, other.ID, result.Tickets[0])
}

func TestIngestEmptySubjectUsesFallback(t *testing.T) {
	f := newIngestFixture(t, config.HelpdeskConfig{})
	_, err := f.service.Ingest(context.Background(), domain.IngestChannel{Name: "inbox"}, []domain.InboundMessage{
		inboundMsg("blank@customer.example", "   ", f.clock.Now()),
	})
	require.NoError(t, err)

	detail := f.onlyTicket(t)
	assert.Equal(t, "No subject", detail.Ticket.Title)
	assert.Equal(t, domain.DefaultKind, detail.Ticket.Kind)
}

func TestIngestHTMLBodyConvertedToText(t *testing.T) {
	f := newIngestFixture(t, config.HelpdeskConfig{})
	msg := inboundMsg("html@customer.example", "Styled", f.clock.Now())
	msg.Body = "<html><body><p>Hello <b>desk</b></p><script>alert(1)</script></body></html>"
	msg.HTML = true

	_, err := f.service.Ingest(context.Background(), supportChannel, []domain.InboundMessage{msg})
	require.NoError(t, err)

	talk := f.onlyTicket(t).Talks[0]
	assert.Contains(t, talk.Message, "Hello")
	assert.Contains(t, talk.Message, "desk")
	assert.NotContains(t, talk.Message, "<b>")
	assert.NotContains(t, talk.Message, "alert")
}

func TestIngestReingestOverwritesAttachment(t *testing.T) {
	f := newIngestFixture(t, config.HelpdeskConfig{})
	ctx := context.Background()
	first := inboundMsg("att1@customer.example", "Logs", f.clock.Now().Add(-time.Hour))
	first.Attachments = []domain.InboundAttachment{{Filename: "app.log", ContentType: "text/plain", Data: []byte("v1")}}
	second := reply("att2@customer.example", "att1@customer.example", "Re: Logs", f.clock.Now())
	second.Attachments = []domain.InboundAttachment{{Filename: "APP.log", ContentType: "text/plain", Data: []byte("version 2")}}

	_, err := f.service.Ingest(ctx, supportChannel, []domain.InboundMessage{first})
	require.NoError(t, err)
	result, err := f.service.Ingest(ctx, supportChannel, []domain.InboundMessage{second})
	require.NoError(t, err)
	assert.Equal(t, 1, result.AttachmentsFiled)

	detail := f.onlyTicket(t)
	require.Len(t, detail.Attachments, 1)
	assert.Equal(t, "app.log", detail.Attachments[0].Name)
	assert.Equal(t, []byte("version 2"), detail.Attachments[0].Data)
	assert.Equal(t, detail.Ticket.ResourceKey(), detail.Attachments[0].Resource)
}

func TestIngestRepeatedNameInOneMessageFiledOnce(t *testing.T) {
	f := newIngestFixture(t, config.HelpdeskConfig{})
	msg := inboundMsg("twice@customer.example", "Screens", f.clock.Now())
	msg.Attachments = []domain.InboundAttachment{
		{Filename: "shot.png", Data: []byte("first")},
		{Filename: "Shot.PNG", Data: []byte("second")},
	}

	result, err := f.service.Ingest(context.Background(), supportChannel, []domain.InboundMessage{msg})
	require.NoError(t, err)
	assert.Equal(t, 1, result.AttachmentsFiled)

	attachments := f.onlyTicket(t).Attachments
	require.Len(t, attachments, 1)
	assert.Equal(t, []byte("first"), attachments[0].Data)
	assert.Equal(t, "image/png", attachments[0].ContentType)
}

func TestIngestAttachmentFailureIsSkipped(t *testing.T) {
	f := newIngestFixture(t, config.HelpdeskConfig{})
	f.store.OnAttachmentWrite = func(a domain.Attachment) error {
		if strings.HasSuffix(a.Name, ".exe") {
			return errors.New("blocked file type")
		}
		return nil
	}
	msg := inboundMsg("mixed@customer.example", "Files", f.clock.Now())
	msg.Attachments = []domain.InboundAttachment{
		{Filename: "setup.exe", Data: []byte("MZ")},
		{Filename: "readme.txt", Data: []byte("hello")},
	}

	result, err := f.service.Ingest(context.Background(), supportChannel, []domain.InboundMessage{msg})
	require.NoError(t, err)
	assert.Equal(t, 1, result.AttachmentsFiled)
	assert.Equal(t, 1, result.AttachmentsSkipped)

	detail := f.onlyTicket(t)
	assert.Len(t, detail.Talks, 1)
	require.Len(t, detail.Attachments, 1)
	assert.Equal(t, "readme.txt", detail.Attachments[0].Name)
}

func TestIngestWithoutAttachmentFiling(t *testing.T) {
	f := newIngestFixture(t, config.HelpdeskConfig{})
	msg := inboundMsg("nofile@customer.example", "Files", f.clock.Now())
	msg.Attachments = []domain.InboundAttachment{{Filename: "a.txt", Data: []byte("a")}}

	result, err := f.service.Ingest(context.Background(), domain.IngestChannel{Name: "inbox"}, []domain.InboundMessage{msg})
	require.NoError(t, err)
	assert.Zero(t, result.AttachmentsFiled)
	assert.Empty(t, f.onlyTicket(t).Attachments)
}

func TestIngestEmptyBatch(t *testing.T) {
	f := newIngestFixture(t, config.HelpdeskConfig{})
	result, err := f.service.Ingest(context.Background(), supportChannel, nil)
	require.NoError(t, err)
	assert.Zero(t, result.Created)
	assert.Empty(t, result.Tickets)
}

func TestIngestRawParsesMessages(t *testing.T) {
	f := newIngestFixture(t, config.HelpdeskConfig{})
	raw := strings.Join([]string{
		"From: Bob Customer <bob@customer.example>",
		"To: support@desk.example.com",
		"Subject: =?UTF-8?Q?Caf=C3=A9_machine?=",
		"Message-ID: <raw1@customer.example>",
		"Date: Fri, 01 Mar 2024 08:00:00 +0000",
		"Content-Type: text/plain; charset=utf-8",
		"",
		"It makes tea instead.",
		"",
	}, "\r\n")

	result, err := f.service.IngestRaw(context.Background(), supportChannel, [][]byte{[]byte(raw)})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)

	detail := f.onlyTicket(t)
	assert.Equal(t, "Café machine", detail.Ticket.Title)
	assert.Equal(t, "raw1@customer.example", detail.Ticket.ThreadID)
	assert.Equal(t, "It makes tea instead.", detail.Talks[0].Message)
}

func TestIngestRollsBackOnCancelledContext(t *testing.T) {
	f := newIngestFixture(t, config.HelpdeskConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.service.Ingest(ctx, supportChannel, []domain.InboundMessage{inboundMsg("x@customer.example", "x", f.clock.Now())})
	require.Error(t, err)
	assert.False(t, errors.Is(err, errorutil.ErrNotFound))

	tickets, err := f.tickets.ListTickets(context.Background(), TicketListFilter{})
	require.NoError(t, err)
	assert.Empty(t, tickets)
	assert.Empty(t, f.events.ofType(events.EventMailIngested))
}

func TestIngestRawSkipsUnparseableMessage(t *testing.T) {
	f := newIngestFixture(t, config.HelpdeskConfig{})
	good := strings.Join([]string{
		"From: bob@customer.example",
		"Subject: Scanner jammed",
		"Message-ID: <good@customer.example>",
		"",
		"Paper everywhere.",
		"",
	}, "\r\n")
	bad := "this line has no colon and is not a header\r\n\r\nbody\r\n"

	result, err := f.service.IngestRaw(context.Background(), supportChannel, [][]byte{[]byte(good), []byte(bad)})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 1, result.MessagesSkipped)
	assert.Equal(t, "Scanner jammed", f.onlyTicket(t).Ticket.Title)

	result, err = f.service.IngestRaw(context.Background(), supportChannel, [][]byte{[]byte(bad)})
	require.NoError(t, err)
	assert.Zero(t, result.Created)
	assert.Equal(t, 1, result.MessagesSkipped)
}

func TestIngestOversizedAttachmentKeepsEarlierCopy(t *testing.T) {
	f := newIngestFixture(t, config.HelpdeskConfig{})
	ctx := context.Background()
	first := inboundMsg("big1@customer.example", "Dump", f.clock.Now().Add(-time.Hour))
	first.Attachments = []domain.InboundAttachment{{Filename: "core.bin", Data: []byte("complete")}}
	second := reply("big2@customer.example", "big1@customer.example", "Re: Dump", f.clock.Now())
	second.Oversized = []string{"core.bin"}

	_, err := f.service.Ingest(ctx, supportChannel, []domain.InboundMessage{first})
	require.NoError(t, err)
	result, err := f.service.Ingest(ctx, supportChannel, []domain.InboundMessage{second})
	require.NoError(t, err)
	assert.Zero(t, result.AttachmentsFiled)
	assert.Equal(t, 1, result.AttachmentsSkipped)

	attachments := f.onlyTicket(t).Attachments
	require.Len(t, attachments, 1)
	assert.Equal(t, []byte("complete"), attachments[0].Data)
}

func TestIngestTruncatedBodyIsMarked(t *testing.T) {
	f := newIngestFixture(t, config.HelpdeskConfig{})
	msg := inboundMsg("long@customer.example", "Long story", f.clock.Now())
	msg.BodyTruncated = true

	_, err := f.service.Ingest(context.Background(), supportChannel, []domain.InboundMessage{msg})
	require.NoError(t, err)
	talk := f.onlyTicket(t).Talks[0]
	assert.True(t, strings.HasSuffix(talk.Message, "[message truncated]"))
	assert.True(t, strings.HasPrefix(talk.Message, "body of long@customer.example"))
}

func TestIngestRejectsUnknownKind(t *testing.T) {
	f := newIngestFixture(t, config.HelpdeskConfig{Kinds: []string{"generic", "support"}})
	ctx := context.Background()

	_, err := f.service.Ingest(ctx, domain.IngestChannel{Name: "inbox", Kind: "billing"}, []domain.InboundMessage{
		inboundMsg("kind@customer.example", "Invoice", f.clock.Now()),
	})
	var domainErr *errorutil.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, errorutil.CodeValidationFailed, domainErr.Code)

	tickets, err := f.tickets.ListTickets(ctx, TicketListFilter{})
	require.NoError(t, err)
	assert.Empty(t, tickets)

	result, err := f.service.Ingest(ctx, domain.IngestChannel{Name: "inbox", Kind: "Support"}, []domain.InboundMessage{
		inboundMsg("kind@customer.example", "Invoice", f.clock.Now()),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
}
