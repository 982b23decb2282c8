package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore runs units of work in pgx transactions.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps a pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) WithinTx(ctx context.Context, fn func(Unit) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&pgUnit{db: tx})
	})
}

type pgUnit struct {
	db pgx.Tx
}

func (u *pgUnit) Tickets() TicketRepository         { return NewTicketRepository(u.db) }
func (u *pgUnit) Talks() TalkRepository             { return NewTalkRepository(u.db) }
func (u *pgUnit) Logs() LogRepository               { return NewLogRepository(u.db) }
func (u *pgUnit) Attachments() AttachmentRepository { return NewAttachmentRepository(u.db) }
func (u *pgUnit) Users() UserRepository             { return NewUserRepository(u.db) }
func (u *pgUnit) Parties() PartyRepository          { return NewPartyRepository(u.db) }

// Savepoint maps to a nested pgx transaction, which pgx issues as SAVEPOINT.
func (u *pgUnit) Savepoint(ctx context.Context, fn func(Unit) error) error {
	return pgx.BeginFunc(ctx, u.db, func(tx pgx.Tx) error {
		return fn(&pgUnit{db: tx})
	})
}
