package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/deskline/helpdesk-service/internal/domain"
)

type talkRepository struct {
	db DBTX
}

// NewTalkRepository builds repository.
func NewTalkRepository(db DBTX) TalkRepository {
	return &talkRepository{db: db}
}

const talkColumns = `id, ticket_id, date, email, message, unread, message_id`

func (r *talkRepository) Create(ctx context.Context, talk *domain.Talk) error {
	const query = `
        INSERT INTO ticket_talks (ticket_id, date, email, message, unread, message_id)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id`
	if err := r.db.QueryRow(ctx, query,
		talk.TicketID,
		talk.Date,
		talk.Email,
		talk.Message,
		talk.Unread,
		talk.MessageID,
	).Scan(&talk.ID); err != nil {
		return err
	}
	return r.touchTicket(ctx, talk.TicketID)
}

func (r *talkRepository) touchTicket(ctx context.Context, ticketID string) error {
	_, err := r.db.Exec(ctx, `UPDATE tickets SET last_talk_at=$1 WHERE id=$2`, now(), ticketID)
	return err
}

func (r *talkRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Talk, error) {
	query := `SELECT ` + talkColumns + ` FROM ticket_talks WHERE ticket_id=$1 ORDER BY date DESC, id DESC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTalks(rows)
}

func (r *talkRepository) Latest(ctx context.Context, ticketID string) (*domain.Talk, error) {
	query := `SELECT ` + talkColumns + ` FROM ticket_talks WHERE ticket_id=$1 ORDER BY date DESC, id DESC LIMIT 1`
	var talk domain.Talk
	err := r.db.QueryRow(ctx, query, ticketID).Scan(
		&talk.ID, &talk.TicketID, &talk.Date, &talk.Email, &talk.Message, &talk.Unread, &talk.MessageID,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &talk, nil
}

func (r *talkRepository) MarkRead(ctx context.Context, ticketID string) (int64, error) {
	cmd, err := r.db.Exec(ctx, `UPDATE ticket_talks SET unread=FALSE WHERE ticket_id=$1 AND unread`, ticketID)
	if err != nil {
		return 0, err
	}
	if cmd.RowsAffected() > 0 {
		if err := r.touchTicket(ctx, ticketID); err != nil {
			return 0, err
		}
	}
	return cmd.RowsAffected(), nil
}

func (r *talkRepository) SetUnread(ctx context.Context, ticketID string, unread bool) error {
	if _, err := r.db.Exec(ctx, `UPDATE ticket_talks SET unread=$1 WHERE ticket_id=$2`, unread, ticketID); err != nil {
		return err
	}
	return r.touchTicket(ctx, ticketID)
}

func (r *talkRepository) FindTicketIDByMessageIDs(ctx context.Context, ids []string) (string, error) {
	if len(ids) == 0 {
		return "", nil
	}
	const query = `
        SELECT ticket_id FROM ticket_talks
        WHERE message_id <> '' AND message_id = ANY($1)
        ORDER BY date ASC LIMIT 1`
	var ticketID string
	err := r.db.QueryRow(ctx, query, ids).Scan(&ticketID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	return ticketID, err
}

func scanTalks(rows pgx.Rows) ([]domain.Talk, error) {
	var result []domain.Talk
	for rows.Next() {
		var talk domain.Talk
		if err := rows.Scan(
			&talk.ID,
			&talk.TicketID,
			&talk.Date,
			&talk.Email,
			&talk.Message,
			&talk.Unread,
			&talk.MessageID,
		); err != nil {
			return nil, err
		}
		result = append(result, talk)
	}
	return result, rows.Err()
}
