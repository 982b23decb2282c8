package memory

import (
	"time"

	"github.com/google/uuid"

	"github.com/deskline/helpdesk-service/internal/domain"
)

type talkRecord struct {
	domain.Talk
	seq int64
}

type logRecord struct {
	domain.TicketLog
	seq int64
}

type state struct {
	seq         int64
	tickets     map[string]domain.Ticket
	talks       map[string]talkRecord
	logs        []logRecord
	attachments map[string]domain.Attachment
	users       map[string]domain.User
	employees   map[string]domain.Employee
	parties     map[string]domain.Party
	contacts    []domain.Contact
}

func newState() *state {
	return &state{
		tickets:     map[string]domain.Ticket{},
		talks:       map[string]talkRecord{},
		attachments: map[string]domain.Attachment{},
		users:       map[string]domain.User{},
		employees:   map[string]domain.Employee{},
		parties:     map[string]domain.Party{},
	}
}

func (s *state) next() int64 {
	s.seq++
	return s.seq
}

func (s *state) clone() *state {
	out := newState()
	out.seq = s.seq
	for id, t := range s.tickets {
		out.tickets[id] = copyTicket(t)
	}
	for id, t := range s.talks {
		t.Email = copyString(t.Email)
		out.talks[id] = t
	}
	out.logs = make([]logRecord, len(s.logs))
	for i, l := range s.logs {
		l.UserID = copyString(l.UserID)
		out.logs[i] = l
	}
	for id, a := range s.attachments {
		out.attachments[id] = copyAttachment(a)
	}
	for id, u := range s.users {
		u.EmployeeID = copyString(u.EmployeeID)
		out.users[id] = u
	}
	for id, e := range s.employees {
		out.employees[id] = e
	}
	for id, p := range s.parties {
		out.parties[id] = p
	}
	out.contacts = append([]domain.Contact(nil), s.contacts...)
	return out
}

func copyTicket(t domain.Ticket) domain.Ticket {
	t.EmployeeID = copyString(t.EmployeeID)
	t.PartyID = copyString(t.PartyID)
	t.ContactID = copyString(t.ContactID)
	t.ClosedAt = copyTime(t.ClosedAt)
	t.LastTalkAt = copyTime(t.LastTalkAt)
	return t
}

func copyAttachment(a domain.Attachment) domain.Attachment {
	a.Data = append([]byte(nil), a.Data...)
	return a
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func newID() string {
	return uuid.NewString()
}

func now() time.Time {
	return time.Now().UTC()
}
