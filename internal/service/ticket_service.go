package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/deskline/helpdesk-service/internal/config"
	"github.com/deskline/helpdesk-service/internal/domain"
	"github.com/deskline/helpdesk-service/internal/events"
	"github.com/deskline/helpdesk-service/internal/mail"
	"github.com/deskline/helpdesk-service/internal/observability"
	"github.com/deskline/helpdesk-service/internal/repository"
	"github.com/deskline/helpdesk-service/pkg/util/errorutil"
)

// Mailer renders a ticket's message buffer and delivers it in a separate
// step, so the Message-ID is known before anything is sent.
type Mailer interface {
	Compose(ticket *domain.Ticket, sender *domain.User, attachments []domain.Attachment) (*mail.Envelope, error)
	Deliver(ctx context.Context, env *mail.Envelope) error
}

// TicketService coordinates ticket workflows.
type TicketService struct {
	store      repository.Store
	mailer     Mailer
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	helpdesk   config.HelpdeskConfig
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Store      repository.Store
	Mailer     Mailer
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	Helpdesk   config.HelpdeskConfig
	Clock      func() time.Time
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title      string
	Message    string
	Priority   domain.TicketPriority
	EmailFrom  string
	EmailCC    string
	Kind       string
	PartyID    *string
	ContactID  *string
	EmployeeID *string
	Date       *time.Time
}

// TicketUpdateInput carries the editable fields; nil leaves a field as is.
type TicketUpdateInput struct {
	Title      *string
	Date       *time.Time
	Message    *string
	Priority   *domain.TicketPriority
	EmailFrom  *string
	EmailCC    *string
	EmployeeID *string
	ContactID  *string
}

// TicketListFilter describes agent listing filters.
type TicketListFilter struct {
	States     []domain.TicketState
	Kind       string
	EmployeeID *string
	Unread     *bool
	SearchTerm string
	Limit      int
	Offset     int
}

// TicketDetail is a ticket with its conversation, audit trail and files.
type TicketDetail struct {
	Ticket         *domain.Ticket
	Talks          []domain.Talk
	Logs           []domain.TicketLog
	Attachments    []domain.Attachment
	AllowedActions []domain.Action
}

// AttachmentUploadInput describes a file attached by an agent.
type AttachmentUploadInput struct {
	Name        string
	ContentType string
	Data        []byte
	Stage       bool
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &TicketService{
		store:      deps.Store,
		mailer:     deps.Mailer,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		metrics:    deps.Metrics,
		helpdesk:   deps.Helpdesk,
		now:        clock,
	}
}

// CreateTicket creates a draft ticket. The acting user's employee becomes
// responsible when the input names none.
func (s *TicketService) CreateTicket(ctx context.Context, actor *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, errorutil.NewValidationError("title is required", nil)
	}
	kind := strings.ToLower(strings.TrimSpace(input.Kind))
	if kind == "" {
		kind = domain.DefaultKind
	}
	if len(s.helpdesk.Kinds) > 0 && !s.helpdesk.KnownKind(kind) {
		return nil, errorutil.NewValidationError("unknown ticket kind", map[string]any{"kind": kind})
	}
	priority := input.Priority
	if priority == 0 {
		priority = domain.TicketPriorityNormal
	}
	if !priority.Valid() {
		return nil, errorutil.NewValidationError("invalid priority", map[string]any{"priority": int(priority)})
	}
	date := s.now().UTC()
	if input.Date != nil {
		date = input.Date.UTC()
	}

	ticket := &domain.Ticket{
		Title:      title,
		Date:       date,
		Message:    input.Message,
		Priority:   priority,
		EmailFrom:  strings.TrimSpace(input.EmailFrom),
		EmailCC:    strings.TrimSpace(input.EmailCC),
		State:      domain.TicketStateDraft,
		EmployeeID: input.EmployeeID,
		PartyID:    input.PartyID,
		ContactID:  input.ContactID,
		Kind:       kind,
	}
	if ticket.EmployeeID == nil && actor != nil && actor.EmployeeID != nil {
		employee := *actor.EmployeeID
		ticket.EmployeeID = &employee
	}

	err := s.store.WithinTx(ctx, func(u repository.Unit) error {
		return u.Tickets().Create(ctx, ticket)
	})
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    userActor(actor),
		Payload: events.TicketCreatedPayload{
			Title:    ticket.Title,
			Kind:     ticket.Kind,
			Priority: ticket.Priority,
			State:    ticket.State,
			Source:   "agent",
		},
	})
	return ticket, nil
}

// GetTicket returns one ticket with talks, logs, attachments and the
// actions available in its current state.
func (s *TicketService) GetTicket(ctx context.Context, ticketID string) (*TicketDetail, error) {
	detail := &TicketDetail{}
	err := s.store.WithinTx(ctx, func(u repository.Unit) error {
		ticket, err := s.loadTicket(ctx, u, ticketID)
		if err != nil {
			return err
		}
		detail.Ticket = ticket
		if detail.Talks, err = u.Talks().ListByTicket(ctx, ticketID); err != nil {
			return err
		}
		if detail.Logs, err = u.Logs().ListByTicket(ctx, ticketID); err != nil {
			return err
		}
		detail.Attachments, err = u.Attachments().ListByTicket(ctx, ticketID)
		return err
	})
	if err != nil {
		return nil, err
	}
	detail.AllowedActions = domain.AllowedActions(detail.Ticket.State)
	return detail, nil
}

// ListTickets returns tickets ordered by priority, then newest date first.
func (s *TicketService) ListTickets(ctx context.Context, filter TicketListFilter) ([]domain.Ticket, error) {
	for _, state := range filter.States {
		if !state.Valid() {
			return nil, errorutil.NewValidationError("invalid state filter", map[string]any{"state": state})
		}
	}
	var tickets []domain.Ticket
	err := s.store.WithinTx(ctx, func(u repository.Unit) error {
		var err error
		tickets, err = u.Tickets().List(ctx, repository.TicketFilter{
			States:     filter.States,
			Kind:       filter.Kind,
			EmployeeID: filter.EmployeeID,
			Unread:     filter.Unread,
			SearchTerm: filter.SearchTerm,
			Limit:      filter.Limit,
			Offset:     filter.Offset,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	if tickets == nil {
		tickets = []domain.Ticket{}
	}
	return tickets, nil
}

// ListTalks returns the conversation, newest first.
func (s *TicketService) ListTalks(ctx context.Context, ticketID string) ([]domain.Talk, error) {
	var talks []domain.Talk
	err := s.store.WithinTx(ctx, func(u repository.Unit) error {
		if _, err := s.loadTicket(ctx, u, ticketID); err != nil {
			return err
		}
		var err error
		talks, err = u.Talks().ListByTicket(ctx, ticketID)
		return err
	})
	return talks, err
}

// ListLogs returns the audit trail, newest first.
func (s *TicketService) ListLogs(ctx context.Context, ticketID string) ([]domain.TicketLog, error) {
	var logs []domain.TicketLog
	err := s.store.WithinTx(ctx, func(u repository.Unit) error {
		if _, err := s.loadTicket(ctx, u, ticketID); err != nil {
			return err
		}
		var err error
		logs, err = u.Logs().ListByTicket(ctx, ticketID)
		return err
	})
	return logs, err
}

// ListAttachments returns the files filed under the ticket.
func (s *TicketService) ListAttachments(ctx context.Context, ticketID string) ([]domain.Attachment, error) {
	var attachments []domain.Attachment
	err := s.store.WithinTx(ctx, func(u repository.Unit) error {
		if _, err := s.loadTicket(ctx, u, ticketID); err != nil {
			return err
		}
		var err error
		attachments, err = u.Attachments().ListByTicket(ctx, ticketID)
		return err
	})
	return attachments, err
}

// UpdateTicket edits the ticket's fields. Done tickets are read-only.
func (s *TicketService) UpdateTicket(ctx context.Context, ticketID string, input TicketUpdateInput) (*domain.Ticket, error) {
	var ticket *domain.Ticket
	err := s.store.WithinTx(ctx, func(u repository.Unit) error {
		var err error
		ticket, err = s.loadTicket(ctx, u, ticketID)
		if err != nil {
			return err
		}
		if ticket.ReadOnly() {
			return errorutil.NewTicketReadOnly(ticket.ID)
		}
		if err := applyUpdate(ticket, input); err != nil {
			return err
		}
		return u.Tickets().Update(ctx, ticket)
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

func applyUpdate(ticket *domain.Ticket, input TicketUpdateInput) error {
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return errorutil.NewValidationError("title is required", nil)
		}
		ticket.Title = title
	}
	if input.Date != nil {
		ticket.Date = input.Date.UTC()
	}
	if input.Message != nil {
		ticket.Message = *input.Message
	}
	if input.Priority != nil {
		if !input.Priority.Valid() {
			return errorutil.NewValidationError("invalid priority", map[string]any{"priority": int(*input.Priority)})
		}
		ticket.Priority = *input.Priority
	}
	if input.EmailFrom != nil {
		ticket.EmailFrom = strings.TrimSpace(*input.EmailFrom)
	}
	if input.EmailCC != nil {
		ticket.EmailCC = strings.TrimSpace(*input.EmailCC)
	}
	if input.EmployeeID != nil {
		ticket.EmployeeID = emptyToNil(*input.EmployeeID)
	}
	if input.ContactID != nil {
		ticket.ContactID = emptyToNil(*input.ContactID)
	}
	return nil
}

// DeleteTicket removes the ticket's attachments, then the ticket. Talks
// and logs go with it.
func (s *TicketService) DeleteTicket(ctx context.Context, ticketID string) error {
	return s.store.WithinTx(ctx, func(u repository.Unit) error {
		if _, err := s.loadTicket(ctx, u, ticketID); err != nil {
			return err
		}
		if err := u.Attachments().DeleteByTicket(ctx, ticketID); err != nil {
			return err
		}
		return u.Tickets().Delete(ctx, ticketID)
	})
}

// CopyTicket duplicates a ticket as a new draft. Attachments, talks, logs
// and the thread id are not carried over.
func (s *TicketService) CopyTicket(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	var dup *domain.Ticket
	err := s.store.WithinTx(ctx, func(u repository.Unit) error {
		source, err := s.loadTicket(ctx, u, ticketID)
		if err != nil {
			return err
		}
		dup = &domain.Ticket{
			Title:      source.Title,
			Date:       s.now().UTC(),
			Message:    source.Message,
			Priority:   source.Priority,
			EmailFrom:  source.EmailFrom,
			EmailCC:    source.EmailCC,
			State:      domain.TicketStateDraft,
			EmployeeID: copyStringPtr(source.EmployeeID),
			PartyID:    copyStringPtr(source.PartyID),
			ContactID:  copyStringPtr(source.ContactID),
			Kind:       source.Kind,
		}
		return u.Tickets().Create(ctx, dup)
	})
	if err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: dup.ID,
		Actor:    userActor(actor),
		Payload: events.TicketCreatedPayload{
			Title:    dup.Title,
			Kind:     dup.Kind,
			Priority: dup.Priority,
			State:    dup.State,
			Source:   "copy:" + ticketID,
		},
	})
	return dup, nil
}

// SetParty links the ticket to a party. The party's first contact becomes
// the ticket contact and fills an empty requester address. A nil party
// clears the contact and keeps the requester address.
func (s *TicketService) SetParty(ctx context.Context, ticketID string, partyID *string) (*domain.Ticket, error) {
	var ticket *domain.Ticket
	err := s.store.WithinTx(ctx, func(u repository.Unit) error {
		var err error
		ticket, err = s.loadTicket(ctx, u, ticketID)
		if err != nil {
			return err
		}
		if ticket.ReadOnly() {
			return errorutil.NewTicketReadOnly(ticket.ID)
		}
		if partyID == nil || *partyID == "" {
			ticket.PartyID = nil
			ticket.ContactID = nil
			return u.Tickets().Update(ctx, ticket)
		}
		if _, err := u.Parties().GetByID(ctx, *partyID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return errorutil.NewNotFound("party", map[string]any{"party_id": *partyID})
			}
			return err
		}
		party := *partyID
		ticket.PartyID = &party
		ticket.ContactID = nil
		contact, err := u.Parties().FirstContact(ctx, party)
		if err != nil {
			return err
		}
		if contact != nil {
			contactID := contact.ID
			ticket.ContactID = &contactID
			if ticket.EmailFrom == "" {
				ticket.EmailFrom = contact.Email
			}
		}
		return u.Tickets().Update(ctx, ticket)
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// Open moves the ticket to open, assigning the acting user's employee when
// no one is responsible yet.
func (s *TicketService) Open(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	return s.transition(ctx, actor, ticketID, domain.TicketStateOpen)
}

// Pending moves the ticket to pending.
func (s *TicketService) Pending(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	return s.transition(ctx, actor, ticketID, domain.TicketStatePending)
}

// Draft moves the ticket back to draft.
func (s *TicketService) Draft(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	return s.transition(ctx, actor, ticketID, domain.TicketStateDraft)
}

// Done closes the ticket and stamps the closed date.
func (s *TicketService) Done(ctx context.Context, actor *domain.User, ticketID string) (*domain.Ticket, error) {
	return s.transition(ctx, actor, ticketID, domain.TicketStateDone)
}

// Transition dispatches a transition action by name.
func (s *TicketService) Transition(ctx context.Context, actor *domain.User, ticketID string, action domain.Action) (*domain.Ticket, error) {
	target, ok := domain.StateForAction(action)
	if !ok {
		return nil, errorutil.NewValidationError("unknown transition", map[string]any{"action": action})
	}
	return s.transition(ctx, actor, ticketID, target)
}

func (s *TicketService) transition(ctx context.Context, actor *domain.User, ticketID string, target domain.TicketState) (*domain.Ticket, error) {
	var (
		ticket *domain.Ticket
		from   domain.TicketState
	)
	err := s.store.WithinTx(ctx, func(u repository.Unit) error {
		var err error
		ticket, err = s.loadTicket(ctx, u, ticketID)
		if err != nil {
			return err
		}
		from = ticket.State
		if !domain.CanTransition(from, target) {
			return errorutil.NewInvalidTransition(string(from), string(target))
		}

		if target == domain.TicketStateOpen && ticket.EmployeeID == nil {
			if actor == nil || actor.EmployeeID == nil {
				return errorutil.NewNoResponsibleUser()
			}
			employee := *actor.EmployeeID
			ticket.EmployeeID = &employee
		}
		if target == domain.TicketStateDone {
			closed := s.now().UTC()
			ticket.ClosedAt = &closed
		} else {
			ticket.ClosedAt = nil
		}
		ticket.State = target

		if err := u.Tickets().Update(ctx, ticket); err != nil {
			return err
		}
		return u.Logs().Create(ctx, &domain.TicketLog{
			TicketID: ticket.ID,
			Date:     s.now().UTC(),
			UserID:   actorID(actor),
			Action:   domain.LogAction(target),
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordTransition(string(target))
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStateChanged,
		TicketID: ticket.ID,
		Actor:    userActor(actor),
		Payload: events.TicketStateChangedPayload{
			OldState: from,
			NewState: target,
			Action:   domain.LogAction(target),
		},
	})
	return ticket, nil
}

// AddReply prefixes the message buffer with the most recent talk quoted.
// Without talks the ticket is returned unchanged.
func (s *TicketService) AddReply(ctx context.Context, ticketID string) (*domain.Ticket, error) {
	var ticket *domain.Ticket
	err := s.store.WithinTx(ctx, func(u repository.Unit) error {
		var err error
		ticket, err = s.loadTicket(ctx, u, ticketID)
		if err != nil {
			return err
		}
		if err := requireAction(ticket, domain.ActionAddReply); err != nil {
			return err
		}
		latest, err := u.Talks().Latest(ctx, ticket.ID)
		if err != nil {
			return err
		}
		if latest == nil {
			return nil
		}
		ticket.Message = domain.QuoteReply(latest.Message)
		return u.Tickets().Update(ctx, ticket)
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// TalkNote records the message buffer as a read talk, marks earlier
// unread talks read and clears the buffer.
func (s *TicketService) TalkNote(ctx context.Context, actor *domain.User, ticketID string) (*domain.Talk, error) {
	var (
		ticket *domain.Ticket
		talk   *domain.Talk
	)
	err := s.store.WithinTx(ctx, func(u repository.Unit) error {
		var err error
		ticket, err = s.loadTicket(ctx, u, ticketID)
		if err != nil {
			return err
		}
		if err := requireAction(ticket, domain.ActionTalkNote); err != nil {
			return err
		}
		if !ticket.HasMessage() {
			return errorutil.NewMissingMessage()
		}
		talk, err = s.recordTalk(ctx, u, actor, ticket, "")
		return err
	})
	if err != nil {
		return nil, err
	}
	s.publishTalk(ctx, actor, ticket.ID, talk)
	return talk, nil
}

// TalkEmail mails the message buffer to the requester and CC, then records
// it like TalkNote. Delivery is the last step inside the transaction: a
// failed write sends nothing, and a failed delivery writes nothing.
func (s *TicketService) TalkEmail(ctx context.Context, actor *domain.User, ticketID string) (*domain.Talk, error) {
	var (
		ticket *domain.Ticket
		talk   *domain.Talk
		env    *mail.Envelope
	)
	err := s.store.WithinTx(ctx, func(u repository.Unit) error {
		var err error
		ticket, err = s.loadTicket(ctx, u, ticketID)
		if err != nil {
			return err
		}
		if err := requireAction(ticket, domain.ActionTalkEmail); err != nil {
			return err
		}
		if strings.TrimSpace(ticket.EmailFrom) == "" {
			return errorutil.NewMissingRecipient()
		}
		if !ticket.HasMessage() {
			return errorutil.NewMissingMessage()
		}
		if s.mailer == nil {
			return errorutil.NewNoSMTPServer(ticket.Kind)
		}

		staged, err := u.Attachments().ListStaged(ctx, ticket.ID)
		if err != nil {
			return err
		}
		env, err = s.mailer.Compose(ticket, actor, staged)
		if err != nil {
			return err
		}

		if ticket.ThreadID == "" {
			ticket.ThreadID = env.MessageID
		}
		for _, a := range staged {
			if err := u.Attachments().SetStaged(ctx, a.ID, false); err != nil {
				return err
			}
		}
		talk, err = s.recordTalk(ctx, u, actor, ticket, env.MessageID)
		if err != nil {
			return err
		}
		return s.mailer.Deliver(ctx, env)
	})
	if err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.Event{
		Type:     events.EventEmailSent,
		TicketID: ticket.ID,
		Actor:    userActor(actor),
		Payload: events.EmailSentPayload{
			MessageID:   env.MessageID,
			To:          ticket.EmailFrom,
			CC:          ticket.EmailCC,
			Attachments: env.Attachments,
		},
	})
	s.publishTalk(ctx, actor, ticket.ID, talk)
	return talk, nil
}

// recordTalk appends the buffer as a read talk, marks the rest of the
// conversation read and clears the buffer.
func (s *TicketService) recordTalk(ctx context.Context, u repository.Unit, actor *domain.User, ticket *domain.Ticket, messageID string) (*domain.Talk, error) {
	talk := &domain.Talk{
		TicketID:  ticket.ID,
		Date:      s.now().UTC(),
		Email:     actor.SenderEmail(),
		Message:   ticket.Message,
		Unread:    false,
		MessageID: messageID,
	}
	if err := u.Talks().Create(ctx, talk); err != nil {
		return nil, err
	}
	if _, err := u.Talks().MarkRead(ctx, ticket.ID); err != nil {
		return nil, err
	}
	ticket.Message = ""
	if err := u.Tickets().Update(ctx, ticket); err != nil {
		return nil, err
	}
	return talk, nil
}

// SetUnread writes the unread flag on every talk of the ticket.
func (s *TicketService) SetUnread(ctx context.Context, ticketID string, unread bool) (*domain.Ticket, error) {
	var ticket *domain.Ticket
	err := s.store.WithinTx(ctx, func(u repository.Unit) error {
		if _, err := s.loadTicket(ctx, u, ticketID); err != nil {
			return err
		}
		if err := u.Talks().SetUnread(ctx, ticketID, unread); err != nil {
			return err
		}
		var err error
		ticket, err = u.Tickets().GetByID(ctx, ticketID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// UploadAttachment files a new attachment, or overwrites the content of
// one with the same name.
func (s *TicketService) UploadAttachment(ctx context.Context, ticketID string, input AttachmentUploadInput) (*domain.Attachment, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, errorutil.NewValidationError("attachment name is required", nil)
	}
	contentType := input.ContentType
	if contentType == "" {
		contentType = domain.GuessContentType(name)
	}
	var attachment *domain.Attachment
	err := s.store.WithinTx(ctx, func(u repository.Unit) error {
		ticket, err := s.loadTicket(ctx, u, ticketID)
		if err != nil {
			return err
		}
		existing, err := u.Attachments().FindByName(ctx, ticket.ID, name)
		if err != nil {
			return err
		}
		if existing != nil {
			if err := u.Attachments().ReplaceContent(ctx, existing.ID, contentType, input.Data); err != nil {
				return err
			}
			if input.Stage {
				if err := u.Attachments().SetStaged(ctx, existing.ID, true); err != nil {
					return err
				}
			}
			attachment, err = u.Attachments().GetByID(ctx, existing.ID)
			return err
		}
		attachment = &domain.Attachment{
			TicketID:       ticket.ID,
			Resource:       ticket.ResourceKey(),
			Name:           name,
			ContentType:    contentType,
			Data:           input.Data,
			Size:           int64(len(input.Data)),
			StagedForEmail: input.Stage,
		}
		return u.Attachments().Create(ctx, attachment)
	})
	if err != nil {
		return nil, err
	}
	return attachment, nil
}

// StageAttachment marks or unmarks a ticket attachment for the next email.
func (s *TicketService) StageAttachment(ctx context.Context, ticketID, attachmentID string, staged bool) (*domain.Attachment, error) {
	var attachment *domain.Attachment
	err := s.store.WithinTx(ctx, func(u repository.Unit) error {
		if _, err := s.loadTicket(ctx, u, ticketID); err != nil {
			return err
		}
		var err error
		attachment, err = u.Attachments().GetByID(ctx, attachmentID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return errorutil.NewNotFound("attachment", map[string]any{"attachment_id": attachmentID})
			}
			return err
		}
		if attachment.TicketID != ticketID {
			return errorutil.NewValidationError("attachment belongs to another ticket", map[string]any{"attachment_id": attachmentID})
		}
		if err := u.Attachments().SetStaged(ctx, attachmentID, staged); err != nil {
			return err
		}
		attachment.StagedForEmail = staged
		return nil
	})
	if err != nil {
		return nil, err
	}
	return attachment, nil
}

// AllowedActions lists what an agent can do to the ticket right now.
func (s *TicketService) AllowedActions(ticket *domain.Ticket) []domain.Action {
	if ticket == nil {
		return nil
	}
	return domain.AllowedActions(ticket.State)
}

func (s *TicketService) loadTicket(ctx context.Context, u repository.Unit, ticketID string) (*domain.Ticket, error) {
	ticket, err := u.Tickets().GetByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, errorutil.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
		}
		return nil, err
	}
	return ticket, nil
}

func requireAction(ticket *domain.Ticket, action domain.Action) error {
	if !domain.IsActionAllowed(ticket.State, action) {
		return errorutil.NewActionNotAllowed(string(action), string(ticket.State))
	}
	return nil
}

func (s *TicketService) publishTalk(ctx context.Context, actor *domain.User, ticketID string, talk *domain.Talk) {
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTalkAdded,
		TicketID: ticketID,
		Actor:    userActor(actor),
		Payload: events.TalkAddedPayload{
			TalkID:      talk.ID,
			Email:       talk.Email,
			Unread:      talk.Unread,
			BodyPreview: stringPreview(talk.Message, 120),
		},
	})
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	publishEvent(ctx, s.dispatcher, s.logger, s.now, event)
}

func publishEvent(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, clock func() time.Time, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = clock().UTC()
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}

func userActor(user *domain.User) events.Actor {
	if user == nil {
		return events.Actor{System: "helpdesk"}
	}
	id := user.ID
	return events.Actor{UserID: &id}
}

func actorID(user *domain.User) *string {
	if user == nil || user.ID == "" {
		return nil
	}
	id := user.ID
	return &id
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func emptyToNil(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

func copyStringPtr(value *string) *string {
	if value == nil {
		return nil
	}
	v := *value
	return &v
}
