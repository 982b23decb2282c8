package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/deskline/helpdesk-service/internal/config"
	"github.com/deskline/helpdesk-service/internal/domain"
	"github.com/deskline/helpdesk-service/internal/events"
	"github.com/deskline/helpdesk-service/internal/mail"
	"github.com/deskline/helpdesk-service/internal/repository"
	"github.com/deskline/helpdesk-service/internal/repository/memory"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type sentMail struct {
	TicketID    string
	To          string
	CC          string
	Body        string
	Attachments []string
}

type fakeMailer struct {
	sent     []sentMail
	composed map[string]sentMail
	err      error
	seq      int
}

func (m *fakeMailer) Compose(ticket *domain.Ticket, _ *domain.User, attachments []domain.Attachment) (*mail.Envelope, error) {
	m.seq++
	names := make([]string, 0, len(attachments))
	for _, a := range attachments {
		names = append(names, a.Name)
	}
	id := fmt.Sprintf("out-%d@desk.example.com", m.seq)
	if m.composed == nil {
		m.composed = make(map[string]sentMail)
	}
	m.composed[id] = sentMail{
		TicketID:    ticket.ID,
		To:          ticket.EmailFrom,
		CC:          ticket.EmailCC,
		Body:        ticket.Message,
		Attachments: names,
	}
	return &mail.Envelope{MessageID: id, TicketID: ticket.ID, Attachments: len(attachments)}, nil
}

func (m *fakeMailer) Deliver(_ context.Context, env *mail.Envelope) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, m.composed[env.MessageID])
	return nil
}

type recordedEvents struct {
	mu     sync.Mutex
	events []events.Event
}

func recordAll(d events.Dispatcher) *recordedEvents {
	r := &recordedEvents{}
	d.SubscribeAll(func(_ context.Context, e events.Event) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, e)
		return nil
	})
	return r
}

func (r *recordedEvents) ofType(eventType events.EventType) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

type ticketFixture struct {
	store   *memory.Store
	mailer  *fakeMailer
	clock   *fakeClock
	events  *recordedEvents
	service *TicketService
	agent   *domain.User
}

func newTicketFixture(t *testing.T) *ticketFixture {
	t.Helper()
	store := memory.NewStore()
	employee := store.AddEmployee(domain.Employee{Name: "Ada Agent", Email: "ada@desk.example.com", Active: true})
	employeeID := employee.ID
	agent := &domain.User{
		ID:         "user-ada",
		Name:       "Ada Agent",
		Email:      "ada@desk.example.com",
		EmployeeID: &employeeID,
		Role:       domain.UserRoleAgent,
		Status:     domain.UserStatusActive,
	}
	mailer := &fakeMailer{}
	clock := newFakeClock()
	dispatcher := events.NewInMemoryDispatcher()
	recorded := recordAll(dispatcher)
	svc := NewTicketService(TicketDependencies{
		Store:      store,
		Mailer:     mailer,
		Dispatcher: dispatcher,
		Helpdesk:   config.HelpdeskConfig{Kinds: []string{"generic", "support"}},
		Clock:      clock.Now,
	})
	return &ticketFixture{store: store, mailer: mailer, clock: clock, events: recorded, service: svc, agent: agent}
}

// seed stores a ticket directly, bypassing the workflow.
func (f *ticketFixture) seed(t *testing.T, ticket domain.Ticket) *domain.Ticket {
	t.Helper()
	if ticket.Title == "" {
		ticket.Title = "Printer on fire"
	}
	if ticket.Priority == 0 {
		ticket.Priority = domain.TicketPriorityNormal
	}
	if ticket.Kind == "" {
		ticket.Kind = domain.DefaultKind
	}
	if ticket.Date.IsZero() {
		ticket.Date = f.clock.Now()
	}
	require.NoError(t, f.store.WithinTx(context.Background(), func(u repository.Unit) error {
		return u.Tickets().Create(context.Background(), &ticket)
	}))
	return &ticket
}

func (f *ticketFixture) addTalk(t *testing.T, ticketID, message string, unread bool) {
	t.Helper()
	f.clock.Advance(time.Minute)
	require.NoError(t, f.store.WithinTx(context.Background(), func(u repository.Unit) error {
		return u.Talks().Create(context.Background(), &domain.Talk{
			TicketID: ticketID,
			Date:     f.clock.Now(),
			Message:  message,
			Unread:   unread,
		})
	}))
}

func (f *ticketFixture) load(t *testing.T, ticketID string) *TicketDetail {
	t.Helper()
	detail, err := f.service.GetTicket(context.Background(), ticketID)
	require.NoError(t, err)
	return detail
}

func strPtr(s string) *string { return &s }
