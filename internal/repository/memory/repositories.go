package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/deskline/helpdesk-service/internal/domain"
	"github.com/deskline/helpdesk-service/internal/mail"
	"github.com/deskline/helpdesk-service/internal/repository"
)

type ticketRepo struct{ u *unit }

func (r ticketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	st := r.u.st
	ticket.ID = newID()
	ts := now()
	ticket.CreatedAt, ticket.UpdatedAt = ts, ts
	st.tickets[ticket.ID] = copyTicket(*ticket)
	return nil
}

func (r ticketRepo) Update(ctx context.Context, ticket *domain.Ticket) error {
	st := r.u.st
	existing, ok := st.tickets[ticket.ID]
	if !ok {
		return repository.ErrNotFound
	}
	updated := copyTicket(*ticket)
	updated.CreatedAt = existing.CreatedAt
	updated.LastTalkAt = copyTime(existing.LastTalkAt)
	updated.UpdatedAt = now()
	ticket.UpdatedAt = updated.UpdatedAt
	st.tickets[ticket.ID] = updated
	return nil
}

func (r ticketRepo) Delete(ctx context.Context, id string) error {
	st := r.u.st
	if _, ok := st.tickets[id]; !ok {
		return repository.ErrNotFound
	}
	delete(st.tickets, id)
	for talkID, t := range st.talks {
		if t.TicketID == id {
			delete(st.talks, talkID)
		}
	}
	logs := st.logs[:0]
	for _, l := range st.logs {
		if l.TicketID != id {
			logs = append(logs, l)
		}
	}
	st.logs = logs
	for attID, a := range st.attachments {
		if a.TicketID == id {
			delete(st.attachments, attID)
		}
	}
	return nil
}

func (r ticketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	t, ok := r.u.st.tickets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := r.withDerived(t)
	return &out, nil
}

func (r ticketRepo) withDerived(t domain.Ticket) domain.Ticket {
	out := copyTicket(t)
	out.Unread = false
	out.NumAttachments = 0
	for _, talk := range r.u.st.talks {
		if talk.TicketID == t.ID && talk.Unread {
			out.Unread = true
			break
		}
	}
	for _, a := range r.u.st.attachments {
		if a.TicketID == t.ID {
			out.NumAttachments++
		}
	}
	return out
}

func (r ticketRepo) List(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	term := strings.ToLower(strings.TrimSpace(filter.SearchTerm))
	var result []domain.Ticket
	for _, t := range r.u.st.tickets {
		if len(filter.States) > 0 && !containsState(filter.States, t.State) {
			continue
		}
		if filter.Kind != "" && t.Kind != filter.Kind {
			continue
		}
		if filter.EmployeeID != nil && (t.EmployeeID == nil || *t.EmployeeID != *filter.EmployeeID) {
			continue
		}
		if term != "" && !strings.Contains(strings.ToLower(t.Title), term) && !strings.Contains(strings.ToLower(t.EmailFrom), term) {
			continue
		}
		derived := r.withDerived(t)
		if filter.Unread != nil && derived.Unread != *filter.Unread {
			continue
		}
		result = append(result, derived)
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		return a.ID > b.ID
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(result) {
		return nil, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], nil
}

func (r ticketRepo) FindByThreadIDs(ctx context.Context, ids []string) (*domain.Ticket, error) {
	var found *domain.Ticket
	for _, t := range r.u.st.tickets {
		if t.ThreadID == "" || !containsString(ids, t.ThreadID) {
			continue
		}
		if found == nil || t.CreatedAt.Before(found.CreatedAt) {
			derived := r.withDerived(t)
			found = &derived
		}
	}
	return found, nil
}

func (r ticketRepo) ListActiveBySender(ctx context.Context, email string) ([]domain.Ticket, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, nil
	}
	var result []domain.Ticket
	for _, t := range r.u.st.tickets {
		if t.State == domain.TicketStateDone {
			continue
		}
		if strings.EqualFold(t.EmailFrom, email) || ccIncludes(t.EmailCC, email) {
			result = append(result, r.withDerived(t))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

type talkRepo struct{ u *unit }

func (r talkRepo) Create(ctx context.Context, talk *domain.Talk) error {
	st := r.u.st
	if _, ok := st.tickets[talk.TicketID]; !ok {
		return repository.ErrNotFound
	}
	talk.ID = newID()
	record := talkRecord{Talk: *talk, seq: st.next()}
	record.Email = copyString(talk.Email)
	st.talks[talk.ID] = record
	r.touch(talk.TicketID)
	return nil
}

func (r talkRepo) touch(ticketID string) {
	st := r.u.st
	if t, ok := st.tickets[ticketID]; ok {
		ts := now()
		t.LastTalkAt = &ts
		st.tickets[ticketID] = t
	}
}

func (r talkRepo) sorted(ticketID string) []talkRecord {
	var records []talkRecord
	for _, t := range r.u.st.talks {
		if t.TicketID == ticketID {
			records = append(records, t)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		return a.seq > b.seq
	})
	return records
}

func (r talkRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.Talk, error) {
	records := r.sorted(ticketID)
	result := make([]domain.Talk, 0, len(records))
	for _, rec := range records {
		talk := rec.Talk
		talk.Email = copyString(rec.Email)
		result = append(result, talk)
	}
	return result, nil
}

func (r talkRepo) Latest(ctx context.Context, ticketID string) (*domain.Talk, error) {
	records := r.sorted(ticketID)
	if len(records) == 0 {
		return nil, nil
	}
	talk := records[0].Talk
	talk.Email = copyString(records[0].Email)
	return &talk, nil
}

func (r talkRepo) MarkRead(ctx context.Context, ticketID string) (int64, error) {
	var n int64
	for id, t := range r.u.st.talks {
		if t.TicketID == ticketID && t.Unread {
			t.Unread = false
			r.u.st.talks[id] = t
			n++
		}
	}
	if n > 0 {
		r.touch(ticketID)
	}
	return n, nil
}

func (r talkRepo) SetUnread(ctx context.Context, ticketID string, unread bool) error {
	for id, t := range r.u.st.talks {
		if t.TicketID == ticketID {
			t.Unread = unread
			r.u.st.talks[id] = t
		}
	}
	r.touch(ticketID)
	return nil
}

func (r talkRepo) FindTicketIDByMessageIDs(ctx context.Context, ids []string) (string, error) {
	var best *talkRecord
	for _, t := range r.u.st.talks {
		if t.MessageID == "" || !containsString(ids, t.MessageID) {
			continue
		}
		if best == nil || t.seq < best.seq {
			rec := t
			best = &rec
		}
	}
	if best == nil {
		return "", nil
	}
	return best.TicketID, nil
}

type logRepo struct{ u *unit }

func (r logRepo) Create(ctx context.Context, log *domain.TicketLog) error {
	st := r.u.st
	if _, ok := st.tickets[log.TicketID]; !ok {
		return repository.ErrNotFound
	}
	log.ID = newID()
	record := logRecord{TicketLog: *log, seq: st.next()}
	record.UserID = copyString(log.UserID)
	st.logs = append(st.logs, record)
	return nil
}

func (r logRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketLog, error) {
	var result []domain.TicketLog
	for i := len(r.u.st.logs) - 1; i >= 0; i-- {
		if l := r.u.st.logs[i]; l.TicketID == ticketID {
			entry := l.TicketLog
			entry.UserID = copyString(l.UserID)
			result = append(result, entry)
		}
	}
	return result, nil
}

type attachmentRepo struct{ u *unit }

func (r attachmentRepo) Create(ctx context.Context, attachment *domain.Attachment) error {
	st := r.u.st
	if _, ok := st.tickets[attachment.TicketID]; !ok {
		return repository.ErrNotFound
	}
	if hook := r.u.store.OnAttachmentWrite; hook != nil {
		if err := hook(*attachment); err != nil {
			return err
		}
	}
	for _, a := range st.attachments {
		if a.TicketID == attachment.TicketID && strings.EqualFold(a.Name, attachment.Name) {
			return errDuplicateName
		}
	}
	attachment.ID = newID()
	attachment.Size = int64(len(attachment.Data))
	ts := now()
	attachment.CreatedAt, attachment.UpdatedAt = ts, ts
	st.attachments[attachment.ID] = copyAttachment(*attachment)
	return nil
}

func (r attachmentRepo) ReplaceContent(ctx context.Context, id, contentType string, data []byte) error {
	st := r.u.st
	a, ok := st.attachments[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.ContentType = contentType
	a.Data = append([]byte(nil), data...)
	a.Size = int64(len(data))
	a.UpdatedAt = now()
	if hook := r.u.store.OnAttachmentWrite; hook != nil {
		if err := hook(a); err != nil {
			return err
		}
	}
	st.attachments[id] = a
	return nil
}

func (r attachmentRepo) GetByID(ctx context.Context, id string) (*domain.Attachment, error) {
	a, ok := r.u.st.attachments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := copyAttachment(a)
	return &out, nil
}

func (r attachmentRepo) FindByName(ctx context.Context, ticketID, name string) (*domain.Attachment, error) {
	for _, a := range r.u.st.attachments {
		if a.TicketID == ticketID && strings.EqualFold(a.Name, name) {
			out := copyAttachment(a)
			return &out, nil
		}
	}
	return nil, nil
}

func (r attachmentRepo) list(ticketID string, stagedOnly bool) []domain.Attachment {
	var result []domain.Attachment
	for _, a := range r.u.st.attachments {
		if a.TicketID != ticketID || (stagedOnly && !a.StagedForEmail) {
			continue
		}
		result = append(result, copyAttachment(a))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

func (r attachmentRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.Attachment, error) {
	return r.list(ticketID, false), nil
}

func (r attachmentRepo) ListStaged(ctx context.Context, ticketID string) ([]domain.Attachment, error) {
	return r.list(ticketID, true), nil
}

func (r attachmentRepo) SetStaged(ctx context.Context, id string, staged bool) error {
	a, ok := r.u.st.attachments[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.StagedForEmail = staged
	a.UpdatedAt = now()
	if hook := r.u.store.OnAttachmentWrite; hook != nil {
		if err := hook(a); err != nil {
			return err
		}
	}
	r.u.st.attachments[id] = a
	return nil
}

func (r attachmentRepo) DeleteByTicket(ctx context.Context, ticketID string) error {
	for id, a := range r.u.st.attachments {
		if a.TicketID == ticketID {
			delete(r.u.st.attachments, id)
		}
	}
	return nil
}

type userRepo struct{ u *unit }

func (r userRepo) Create(ctx context.Context, user *domain.User) error {
	st := r.u.st
	email := strings.ToLower(user.Email)
	for _, existing := range st.users {
		if existing.Email == email {
			return errDuplicateEmail
		}
	}
	user.ID = newID()
	user.Email = email
	ts := now()
	user.CreatedAt, user.UpdatedAt = ts, ts
	stored := *user
	stored.EmployeeID = copyString(user.EmployeeID)
	st.users[user.ID] = stored
	return nil
}

func (r userRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	u, ok := r.u.st.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u.EmployeeID = copyString(u.EmployeeID)
	return &u, nil
}

func (r userRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	email = strings.ToLower(email)
	for _, u := range r.u.st.users {
		if u.Email == email {
			u.EmployeeID = copyString(u.EmployeeID)
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

type partyRepo struct{ u *unit }

func (r partyRepo) GetByID(ctx context.Context, id string) (*domain.Party, error) {
	p, ok := r.u.st.parties[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (r partyRepo) FindByEmail(ctx context.Context, email string) (domain.PartyMatch, error) {
	for _, c := range r.u.st.contacts {
		if strings.EqualFold(c.Email, email) {
			partyID, contactID := c.PartyID, c.ID
			return domain.PartyMatch{PartyID: &partyID, ContactID: &contactID}, nil
		}
	}
	return domain.PartyMatch{}, nil
}

func (r partyRepo) FirstContact(ctx context.Context, partyID string) (*domain.Contact, error) {
	for _, c := range r.u.st.contacts {
		if c.PartyID == partyID && c.Email != "" {
			contact := c
			return &contact, nil
		}
	}
	return nil, nil
}

func containsState(states []domain.TicketState, s domain.TicketState) bool {
	for _, candidate := range states {
		if candidate == s {
			return true
		}
	}
	return false
}

// ccIncludes compares whole addresses; "Name <addr>" entries are unwrapped.
func ccIncludes(cc, email string) bool {
	for _, entry := range mail.SplitAddresses(cc) {
		if strings.EqualFold(strings.Trim(entry, "<>\"'"), email) {
			return true
		}
	}
	return false
}

func containsString(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
