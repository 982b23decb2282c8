package memory

import (
	"context"
	"sync"

	"github.com/deskline/helpdesk-service/internal/domain"
	"github.com/deskline/helpdesk-service/internal/repository"
)

// Store is an in-memory repository.Store. Units of work are serialised and
// run against a copy of the data, which replaces the committed state only
// when the unit succeeds.
type Store struct {
	mu    sync.Mutex
	state *state

	// OnAttachmentWrite, when set, runs before every attachment insert,
	// overwrite or staging change and can veto it.
	OnAttachmentWrite func(domain.Attachment) error
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{state: newState()}
}

func (s *Store) WithinTx(ctx context.Context, fn func(repository.Unit) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	working := s.state.clone()
	if err := fn(&unit{store: s, st: working}); err != nil {
		return err
	}
	s.state = working
	return nil
}

// AddEmployee registers an employee record.
func (s *Store) AddEmployee(employee domain.Employee) domain.Employee {
	s.mu.Lock()
	defer s.mu.Unlock()
	if employee.ID == "" {
		employee.ID = newID()
	}
	s.state.employees[employee.ID] = employee
	return employee
}

// AddParty registers a party and its contact addresses, in order.
func (s *Store) AddParty(party domain.Party, emails ...string) (domain.Party, []domain.Contact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if party.ID == "" {
		party.ID = newID()
	}
	s.state.parties[party.ID] = party
	contacts := make([]domain.Contact, 0, len(emails))
	for _, email := range emails {
		c := domain.Contact{ID: newID(), PartyID: party.ID, Email: email}
		s.state.contacts = append(s.state.contacts, c)
		contacts = append(contacts, c)
	}
	return party, contacts
}

type unit struct {
	store *Store
	st    *state
}

func (u *unit) Tickets() repository.TicketRepository         { return ticketRepo{u} }
func (u *unit) Talks() repository.TalkRepository             { return talkRepo{u} }
func (u *unit) Logs() repository.LogRepository               { return logRepo{u} }
func (u *unit) Attachments() repository.AttachmentRepository { return attachmentRepo{u} }
func (u *unit) Users() repository.UserRepository             { return userRepo{u} }
func (u *unit) Parties() repository.PartyRepository          { return partyRepo{u} }

func (u *unit) Savepoint(ctx context.Context, fn func(repository.Unit) error) error {
	snapshot := u.st.clone()
	if err := fn(u); err != nil {
		*u.st = *snapshot
		return err
	}
	return nil
}
