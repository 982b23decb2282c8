package mail

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/deskline/helpdesk-service/internal/domain"
	"github.com/deskline/helpdesk-service/internal/observability"
	"github.com/deskline/helpdesk-service/pkg/util/errorutil"
)

// Mailer turns a ticket's message buffer into an outbound email.
type Mailer struct {
	router    Router
	validator Validator
	logger    *zap.Logger
	metrics   *observability.Metrics
	now       func() time.Time
}

// NewMailer wires a mailer. validator may be nil to skip address checks.
func NewMailer(router Router, validator Validator, logger *zap.Logger, metrics *observability.Metrics) *Mailer {
	return &Mailer{router: router, validator: validator, logger: logger, metrics: metrics, now: time.Now}
}

// Prepare validates the ticket and renders the message without sending it.
func (m *Mailer) Prepare(ticket *domain.Ticket, sender *domain.User, attachments []domain.Attachment) (Outgoing, Route, error) {
	to := SplitAddresses(ticket.EmailFrom)
	if len(to) == 0 {
		return Outgoing{}, Route{}, errorutil.NewMissingRecipient()
	}
	if !ticket.HasMessage() {
		return Outgoing{}, Route{}, errorutil.NewMissingMessage()
	}
	cc := SplitAddresses(ticket.EmailCC)
	if err := ValidateAll(m.validator, to, cc); err != nil {
		return Outgoing{}, Route{}, err
	}

	kind := ticket.Kind
	if kind == "" {
		kind = domain.DefaultKind
	}
	route, ok := m.router.Route(kind)
	if !ok {
		return Outgoing{}, Route{}, errorutil.NewNoSMTPServer(kind)
	}

	return Outgoing{
		From:        route.From,
		To:          to,
		CC:          cc,
		Subject:     ticket.Title,
		Body:        ticket.Message + sender.SignatureBlock(),
		InReplyTo:   ticket.ThreadID,
		Date:        m.now(),
		Attachments: attachments,
	}, route, nil
}

// Envelope is a rendered message waiting for delivery. Its Message-ID is
// fixed at compose time, so callers can record it before sending.
type Envelope struct {
	MessageID   string
	TicketID    string
	From        string
	To          []string
	Recipients  []string
	Attachments int
	Raw         []byte

	transport Transport
}

// Compose validates the ticket and renders the message without sending it.
func (m *Mailer) Compose(ticket *domain.Ticket, sender *domain.User, attachments []domain.Attachment) (*Envelope, error) {
	out, route, err := m.Prepare(ticket, sender, attachments)
	if err != nil {
		return nil, err
	}
	raw, messageID, err := BuildMessage(out)
	if err != nil {
		return nil, errorutil.NewInternalError(err)
	}
	return &Envelope{
		MessageID:   messageID,
		TicketID:    ticket.ID,
		From:        out.From,
		To:          out.To,
		Recipients:  out.Recipients(),
		Attachments: len(attachments),
		Raw:         raw,
		transport:   route.Transport,
	}, nil
}

// Deliver hands a composed envelope to its transport. Transport errors
// come back as DELIVERY_FAILED.
func (m *Mailer) Deliver(ctx context.Context, env *Envelope) error {
	if env == nil || env.transport == nil {
		return errorutil.NewInternalError(errors.New("envelope has no transport"))
	}
	if err := env.transport.Send(ctx, env.From, env.Recipients, env.Raw); err != nil {
		m.metrics.RecordDeliveryFailure()
		m.logger.Warn("email delivery failed",
			zap.String("ticket_id", env.TicketID),
			zap.Strings("to", env.To),
			zap.Error(err))
		return errorutil.NewDeliveryFailed(err)
	}
	m.metrics.RecordEmailSent()
	m.logger.Info("email sent",
		zap.String("ticket_id", env.TicketID),
		zap.String("message_id", env.MessageID),
		zap.Int("attachments", env.Attachments))
	return nil
}

// Send composes and delivers in one step and returns the Message-ID.
func (m *Mailer) Send(ctx context.Context, ticket *domain.Ticket, sender *domain.User, attachments []domain.Attachment) (string, error) {
	env, err := m.Compose(ticket, sender, attachments)
	if err != nil {
		return "", err
	}
	if err := m.Deliver(ctx, env); err != nil {
		return "", err
	}
	return env.MessageID, nil
}
