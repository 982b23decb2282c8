package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/deskline/helpdesk-service/internal/config"
	"github.com/deskline/helpdesk-service/internal/domain"
	"github.com/deskline/helpdesk-service/internal/events"
	"github.com/deskline/helpdesk-service/internal/mail/inbound"
	"github.com/deskline/helpdesk-service/internal/observability"
	"github.com/deskline/helpdesk-service/internal/repository"
	"github.com/deskline/helpdesk-service/pkg/util/errorutil"
)

const truncatedMarker = "\n\n[message truncated]"

var errAttachmentTooLarge = errors.New("attachment exceeds size limit")

// IngestService turns batches of inbound mail into tickets, talks and
// filed attachments.
type IngestService struct {
	store      repository.Store
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	helpdesk   config.HelpdeskConfig
	prefixes   *inbound.ReplyPrefixes
	location   *time.Location
	now        func() time.Time
}

// IngestDependencies bundles collaborators for the ingest service.
type IngestDependencies struct {
	Store         repository.Store
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
	Metrics       *observability.Metrics
	Helpdesk      config.HelpdeskConfig
	ReplyPrefixes []string
	Clock         func() time.Time
}

// NewIngestService constructs the service. An empty prefix list selects
// the built-in one.
func NewIngestService(deps IngestDependencies) *IngestService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	prefixes := deps.ReplyPrefixes
	if len(prefixes) == 0 {
		prefixes = config.DefaultReplyPrefixes
	}
	return &IngestService{
		store:      deps.Store,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		metrics:    deps.Metrics,
		helpdesk:   deps.Helpdesk,
		prefixes:   inbound.NewReplyPrefixes(prefixes),
		location:   deps.Helpdesk.Location(),
		now:        clock,
	}
}

// IngestRaw parses raw RFC 5322 messages and ingests them as one batch.
// Messages that fail to parse are logged, counted in MessagesSkipped and
// otherwise dropped; they never fail the batch.
func (s *IngestService) IngestRaw(ctx context.Context, channel domain.IngestChannel, raws [][]byte) (*domain.IngestResult, error) {
	msgs, failed := inbound.ParseBatch(raws)
	for _, f := range failed {
		s.metrics.RecordIngested("unparseable")
		s.logger.Warn("unparseable inbound email skipped",
			zap.String("channel", channel.Name),
			zap.Int("index", f.Index),
			zap.Int("bytes", len(raws[f.Index])),
			zap.Error(f.Err))
	}
	result, err := s.Ingest(ctx, channel, msgs)
	if err != nil {
		return nil, err
	}
	result.MessagesSkipped = len(failed)
	return result, nil
}

// batchState tracks what one ingestion run has done so far.
type batchState struct {
	result    domain.IngestResult
	talkIndex map[string]string // message id -> ticket id, talks created this run
	touched   []string          // tickets created or followed up, first touch order
	seen      map[string]bool
	created   []*domain.Ticket
}

func (b *batchState) addTicket(id string) {
	if b.seen[id] {
		return
	}
	b.seen[id] = true
	b.result.Tickets = append(b.result.Tickets, id)
}

func (b *batchState) touch(id string) {
	for _, existing := range b.touched {
		if existing == id {
			return
		}
	}
	b.touched = append(b.touched, id)
}

// Ingest processes msgs oldest-first inside one transaction. A storage
// error rolls the whole batch back; attachment filing failures are logged
// and skipped.
func (s *IngestService) Ingest(ctx context.Context, channel domain.IngestChannel, msgs []domain.InboundMessage) (*domain.IngestResult, error) {
	if err := s.checkKind(channel.Kind); err != nil {
		return nil, err
	}
	ordered := s.oldestFirst(msgs)
	batch := &batchState{
		talkIndex: make(map[string]string),
		seen:      make(map[string]bool),
	}

	err := s.store.WithinTx(ctx, func(u repository.Unit) error {
		for i := range ordered {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := s.ingestOne(ctx, u, channel, &ordered[i], batch); err != nil {
				return err
			}
		}
		return s.markPending(ctx, u, batch.touched)
	})
	if err != nil {
		s.logger.Error("ingestion batch rolled back", zap.String("channel", channel.Name), zap.Error(err))
		return nil, err
	}

	result := batch.result
	if result.Tickets == nil {
		result.Tickets = []string{}
	}
	for _, ticket := range batch.created {
		s.publishEvent(ctx, events.Event{
			Type:     events.EventTicketCreated,
			TicketID: ticket.ID,
			Actor:    events.Actor{System: "ingest"},
			Payload: events.TicketCreatedPayload{
				Title:    ticket.Title,
				Kind:     ticket.Kind,
				Priority: ticket.Priority,
				State:    domain.TicketStatePending,
				Source:   "email",
			},
		})
	}
	if len(msgs) > 0 {
		s.publishEvent(ctx, events.Event{
			Type:  events.EventMailIngested,
			Actor: events.Actor{System: "ingest"},
			Payload: events.MailIngestedPayload{
				Channel:            channel.Name,
				Created:            result.Created,
				FollowUps:          result.FollowUps,
				Talks:              result.Talks,
				AttachmentsFiled:   result.AttachmentsFiled,
				AttachmentsSkipped: result.AttachmentsSkipped,
				Tickets:            result.Tickets,
			},
		})
	}
	s.logger.Info("ingestion batch committed",
		zap.String("channel", channel.Name),
		zap.Int("messages", len(msgs)),
		zap.Int("created", result.Created),
		zap.Int("follow_ups", result.FollowUps),
		zap.Int("attachments_skipped", result.AttachmentsSkipped),
	)
	return &result, nil
}

// checkKind rejects a channel kind outside the configured list, as ticket
// creation does. An empty kind means the default one.
func (s *IngestService) checkKind(kind string) error {
	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind == "" {
		kind = domain.DefaultKind
	}
	if len(s.helpdesk.Kinds) > 0 && !s.helpdesk.KnownKind(kind) {
		return errorutil.NewValidationError("unknown ticket kind", map[string]any{"kind": kind})
	}
	return nil
}

// oldestFirst sorts by message date, keeping input order for equal dates.
// Undated messages count as received now.
func (s *IngestService) oldestFirst(msgs []domain.InboundMessage) []domain.InboundMessage {
	ordered := append([]domain.InboundMessage(nil), msgs...)
	received := s.now()
	dateOf := func(m domain.InboundMessage) time.Time {
		if m.Date.IsZero() {
			return received
		}
		return m.Date
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return dateOf(ordered[i]).Before(dateOf(ordered[j]))
	})
	return ordered
}

func (s *IngestService) ingestOne(ctx context.Context, u repository.Unit, channel domain.IngestChannel, msg *domain.InboundMessage, batch *batchState) error {
	messageID := inbound.NormalizeMessageID(msg.MessageID)
	sender := strings.ToLower(inbound.ParseAddress(msg.From))
	candidates := inbound.ThreadCandidates(msg.MessageID, msg.References, msg.InReplyTo)

	ticket, err := s.resolve(ctx, u, candidates, sender, msg.Subject, batch)
	if err != nil {
		return err
	}

	if ticket == nil {
		ticket, err = s.createTicket(ctx, u, channel, msg, messageID, sender)
		if err != nil {
			return err
		}
		batch.created = append(batch.created, ticket)
		batch.touch(ticket.ID)
		batch.result.Created++
		s.metrics.RecordIngested("created")
	} else {
		batch.touch(ticket.ID)
		batch.result.FollowUps++
		s.metrics.RecordIngested("follow_up")
	}
	batch.addTicket(ticket.ID)

	text := messageText(msg)
	if msg.BodyTruncated {
		text += truncatedMarker
		s.logger.Warn("inbound email body truncated",
			zap.String("message_id", messageID),
			zap.String("ticket_id", ticket.ID))
	}
	talk := &domain.Talk{
		TicketID:  ticket.ID,
		Date:      inbound.LocalDate(msg.Date, s.location, s.now),
		Email:     optionalString(sender),
		Message:   text,
		Unread:    true,
		MessageID: messageID,
	}
	if err := u.Talks().Create(ctx, talk); err != nil {
		return err
	}
	if messageID != "" {
		batch.talkIndex[messageID] = ticket.ID
	}
	batch.result.Talks++

	s.logger.Info("processed inbound email",
		zap.String("message_id", messageID),
		zap.String("ticket_id", ticket.ID),
		zap.String("from", sender),
	)

	if channel.FileAttachments {
		for _, name := range msg.Oversized {
			s.skipAttachment(batch, messageID, ticket.ID, name, errAttachmentTooLarge)
		}
		s.fileAttachments(ctx, u, ticket, messageID, msg.Attachments, batch)
	}
	return nil
}

// resolve finds the ticket a message belongs to: by persisted thread
// reference, then by talks created earlier in this run, then by subject
// and sender. It returns nil when a new ticket is needed.
func (s *IngestService) resolve(ctx context.Context, u repository.Unit, candidates []string, sender, subject string, batch *batchState) (*domain.Ticket, error) {
	if len(candidates) > 0 {
		ticketID, err := u.Talks().FindTicketIDByMessageIDs(ctx, candidates)
		if err != nil {
			return nil, err
		}
		if ticketID != "" {
			return u.Tickets().GetByID(ctx, ticketID)
		}
		ticket, err := u.Tickets().FindByThreadIDs(ctx, candidates)
		if err != nil {
			return nil, err
		}
		if ticket != nil {
			return ticket, nil
		}
		for _, id := range candidates {
			if ticketID, ok := batch.talkIndex[id]; ok {
				return u.Tickets().GetByID(ctx, ticketID)
			}
		}
	}

	if !s.helpdesk.MatchBySubject || sender == "" {
		return nil, nil
	}
	normalized := s.prefixes.Normalize(subject)
	if normalized == "" {
		return nil, nil
	}
	active, err := u.Tickets().ListActiveBySender(ctx, sender)
	if err != nil {
		return nil, err
	}
	for i := range active {
		if s.prefixes.Normalize(active[i].Title) == normalized {
			return &active[i], nil
		}
	}
	return nil, nil
}

func (s *IngestService) createTicket(ctx context.Context, u repository.Unit, channel domain.IngestChannel, msg *domain.InboundMessage, messageID, sender string) (*domain.Ticket, error) {
	title := strings.TrimSpace(msg.Subject)
	if title == "" {
		title = s.helpdesk.FallbackSubject
	}
	if title == "" {
		title = "No subject"
	}
	kind := strings.ToLower(strings.TrimSpace(channel.Kind))
	if kind == "" {
		kind = domain.DefaultKind
	}

	ticket := &domain.Ticket{
		Title:     title,
		Date:      inbound.LocalDate(msg.Date, s.location, s.now).UTC(),
		Priority:  domain.TicketPriorityNormal,
		EmailFrom: sender,
		EmailCC:   inbound.JoinAddresses(inbound.ExtractAddresses(msg.CC)),
		State:     domain.TicketStateDraft,
		ThreadID:  messageID,
		Kind:      kind,
	}
	if sender != "" {
		match, err := u.Parties().FindByEmail(ctx, sender)
		if err != nil {
			return nil, err
		}
		ticket.PartyID = match.PartyID
		ticket.ContactID = match.ContactID
	}
	if err := u.Tickets().Create(ctx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// fileAttachments stores each attachment in its own savepoint. A name
// repeated within one message is filed once; a name already filed under
// the ticket gets its content replaced.
func (s *IngestService) fileAttachments(ctx context.Context, u repository.Unit, ticket *domain.Ticket, messageID string, attachments []domain.InboundAttachment, batch *batchState) {
	names := make(map[string]bool, len(attachments))
	for _, att := range attachments {
		name := strings.TrimSpace(att.Filename)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if names[key] {
			continue
		}
		names[key] = true

		contentType := att.ContentType
		if contentType == "" {
			contentType = domain.GuessContentType(name)
		}
		err := u.Savepoint(ctx, func(sp repository.Unit) error {
			existing, err := sp.Attachments().FindByName(ctx, ticket.ID, name)
			if err != nil {
				return err
			}
			if existing != nil {
				return sp.Attachments().ReplaceContent(ctx, existing.ID, contentType, att.Data)
			}
			return sp.Attachments().Create(ctx, &domain.Attachment{
				TicketID:    ticket.ID,
				Resource:    ticket.ResourceKey(),
				Name:        name,
				ContentType: contentType,
				Data:        att.Data,
				Size:        int64(len(att.Data)),
			})
		})
		if err != nil {
			s.skipAttachment(batch, messageID, ticket.ID, name, err)
			continue
		}
		batch.result.AttachmentsFiled++
	}
}

func (s *IngestService) skipAttachment(batch *batchState, messageID, ticketID, name string, err error) {
	batch.result.AttachmentsSkipped++
	s.metrics.RecordAttachmentFailure()
	s.logger.Warn("email attachment skipped",
		zap.String("message_id", messageID),
		zap.String("ticket_id", ticketID),
		zap.String("filename", name),
		zap.Error(err))
}

// markPending moves every ticket the batch created or followed up to
// pending, once per batch, logging the change without an acting user.
// New tickets are inserted as draft and pass through here like the rest.
func (s *IngestService) markPending(ctx context.Context, u repository.Unit, ticketIDs []string) error {
	for _, id := range ticketIDs {
		ticket, err := u.Tickets().GetByID(ctx, id)
		if err != nil {
			return err
		}
		if ticket.State == domain.TicketStatePending {
			continue
		}
		ticket.State = domain.TicketStatePending
		ticket.ClosedAt = nil
		if err := u.Tickets().Update(ctx, ticket); err != nil {
			return err
		}
		if err := u.Logs().Create(ctx, &domain.TicketLog{
			TicketID: ticket.ID,
			Date:     s.now().UTC(),
			Action:   domain.LogPending,
		}); err != nil {
			return err
		}
		s.metrics.RecordTransition(string(domain.TicketStatePending))
	}
	return nil
}

func (s *IngestService) publishEvent(ctx context.Context, event events.Event) {
	publishEvent(ctx, s.dispatcher, s.logger, s.now, event)
}

// messageText converts an HTML body to text; plain bodies only get their
// line endings normalised.
func messageText(msg *domain.InboundMessage) string {
	if msg.HTML {
		return inbound.HTMLToText(msg.Body)
	}
	body := strings.ReplaceAll(msg.Body, "\r\n", "\n")
	return strings.TrimSpace(body)
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
