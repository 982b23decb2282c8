package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/deskline/helpdesk-service/internal/domain"
)

// ErrNotFound is returned by Get lookups that match no row.
var ErrNotFound = pgx.ErrNoRows

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store opens units of work. Every ticket operation and every ingestion
// batch runs inside exactly one WithinTx call; an error returned by fn rolls
// the whole unit back.
type Store interface {
	WithinTx(ctx context.Context, fn func(Unit) error) error
}

// Unit exposes the repositories bound to one transaction.
type Unit interface {
	Tickets() TicketRepository
	Talks() TalkRepository
	Logs() LogRepository
	Attachments() AttachmentRepository
	Users() UserRepository
	Parties() PartyRepository
	// Savepoint runs fn in a nested transaction. A failure inside fn rolls
	// back only fn's writes and is returned to the caller.
	Savepoint(ctx context.Context, fn func(Unit) error) error
}

// TicketFilter captures agent search parameters.
type TicketFilter struct {
	States     []domain.TicketState
	Kind       string
	EmployeeID *string
	Unread     *bool
	SearchTerm string
	Limit      int
	Offset     int
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	// FindByThreadIDs returns the oldest ticket whose thread id is one of ids, or nil.
	FindByThreadIDs(ctx context.Context, ids []string) (*domain.Ticket, error)
	// ListActiveBySender returns non-done tickets whose requester is email or
	// whose CC field mentions it.
	ListActiveBySender(ctx context.Context, email string) ([]domain.Ticket, error)
}

// TalkRepository manages the conversation of a ticket.
type TalkRepository interface {
	// Create inserts the talk and refreshes the ticket's last talk timestamp.
	Create(ctx context.Context, talk *domain.Talk) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Talk, error)
	Latest(ctx context.Context, ticketID string) (*domain.Talk, error)
	MarkRead(ctx context.Context, ticketID string) (int64, error)
	SetUnread(ctx context.Context, ticketID string, unread bool) error
	// FindTicketIDByMessageIDs returns the ticket owning a talk whose message
	// id is one of ids, or "" when none does.
	FindTicketIDByMessageIDs(ctx context.Context, ids []string) (string, error)
}

// LogRepository appends audit entries.
type LogRepository interface {
	Create(ctx context.Context, log *domain.TicketLog) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketLog, error)
}

// AttachmentRepository persists files filed under a ticket.
type AttachmentRepository interface {
	Create(ctx context.Context, attachment *domain.Attachment) error
	// ReplaceContent overwrites the data of an existing attachment.
	ReplaceContent(ctx context.Context, id string, contentType string, data []byte) error
	GetByID(ctx context.Context, id string) (*domain.Attachment, error)
	// FindByName matches the name case-insensitively, nil when absent.
	FindByName(ctx context.Context, ticketID, name string) (*domain.Attachment, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Attachment, error)
	ListStaged(ctx context.Context, ticketID string) ([]domain.Attachment, error)
	SetStaged(ctx context.Context, id string, staged bool) error
	DeleteByTicket(ctx context.Context, ticketID string) error
}

// UserRepository defines persistence access for agents.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// PartyRepository is the address book.
type PartyRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Party, error)
	// FindByEmail resolves an address to a party and contact. Both are nil
	// when the address is unknown.
	FindByEmail(ctx context.Context, email string) (domain.PartyMatch, error)
	FirstContact(ctx context.Context, partyID string) (*domain.Contact, error)
}

func now() time.Time {
	return time.Now().UTC()
}
