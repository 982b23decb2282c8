package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/deskline/helpdesk-service/internal/domain"
)

type ticketRepository struct {
	db DBTX
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(db DBTX) TicketRepository {
	return &ticketRepository{db: db}
}

// ticketColumns includes the derived unread flag and attachment count.
const ticketColumns = `
        t.id, t.title, t.date, t.message, t.priority, t.email_from, t.email_cc, t.state,
        t.employee_id, t.party_id, t.contact_id, t.thread_id, t.kind,
        t.created_at, t.updated_at, t.closed_at, t.last_talk_at,
        EXISTS (SELECT 1 FROM ticket_talks k WHERE k.ticket_id = t.id AND k.unread) AS unread,
        (SELECT COUNT(*) FROM ticket_attachments a WHERE a.ticket_id = t.id) AS num_attachments`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (title, date, message, priority, email_from, email_cc, state,
            employee_id, party_id, contact_id, thread_id, kind, closed_at, last_talk_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
        RETURNING id, created_at, updated_at`
	return r.db.QueryRow(ctx, query,
		ticket.Title,
		ticket.Date,
		ticket.Message,
		ticket.Priority,
		ticket.EmailFrom,
		ticket.EmailCC,
		ticket.State,
		ticket.EmployeeID,
		ticket.PartyID,
		ticket.ContactID,
		ticket.ThreadID,
		ticket.Kind,
		ticket.ClosedAt,
		ticket.LastTalkAt,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt)
}

func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET title=$1, date=$2, message=$3, priority=$4, email_from=$5, email_cc=$6,
            state=$7, employee_id=$8, party_id=$9, contact_id=$10, thread_id=$11, kind=$12,
            closed_at=$13, updated_at=NOW()
        WHERE id=$14
        RETURNING updated_at`
	err := r.db.QueryRow(ctx, query,
		ticket.Title,
		ticket.Date,
		ticket.Message,
		ticket.Priority,
		ticket.EmailFrom,
		ticket.EmailCC,
		ticket.State,
		ticket.EmployeeID,
		ticket.PartyID,
		ticket.ContactID,
		ticket.ThreadID,
		ticket.Kind,
		ticket.ClosedAt,
		ticket.ID,
	).Scan(&ticket.UpdatedAt)
	return err
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets t WHERE t.id=$1`
	rows, err := r.db.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tickets, err := scanTickets(rows)
	if err != nil {
		return nil, err
	}
	if len(tickets) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &tickets[0], nil
}

func (r *ticketRepository) FindByThreadIDs(ctx context.Context, ids []string) (*domain.Ticket, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + ticketColumns + `
        FROM tickets t WHERE t.thread_id <> '' AND t.thread_id = ANY($1)
        ORDER BY t.created_at ASC LIMIT 1`
	ticket, err := r.first(ctx, query, ids)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return ticket, err
}

func (r *ticketRepository) ListActiveBySender(ctx context.Context, email string) ([]domain.Ticket, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, nil
	}
	query := `SELECT ` + ticketColumns + `
        FROM tickets t
        WHERE t.state <> 'done'
          AND (LOWER(t.email_from) = $1
               OR $1 = ANY(regexp_split_to_array(LOWER(COALESCE(t.email_cc, '')), '[,;<>"''[:space:]]+')))
        ORDER BY t.created_at ASC`
	rows, err := r.db.Query(ctx, query, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if len(filter.States) > 0 {
		placeholders := make([]string, len(filter.States))
		for i, state := range filter.States {
			args = append(args, state)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("t.state IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Kind != "" {
		args = append(args, filter.Kind)
		clauses = append(clauses, fmt.Sprintf("t.kind=$%d", len(args)))
	}
	if filter.EmployeeID != nil {
		args = append(args, *filter.EmployeeID)
		clauses = append(clauses, fmt.Sprintf("t.employee_id=$%d", len(args)))
	}
	if filter.Unread != nil {
		not := ""
		if !*filter.Unread {
			not = "NOT "
		}
		clauses = append(clauses, not+"EXISTS (SELECT 1 FROM ticket_talks k WHERE k.ticket_id = t.id AND k.unread)")
	}
	if term := strings.TrimSpace(filter.SearchTerm); term != "" {
		args = append(args, "%"+strings.ToLower(term)+"%")
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(t.title) LIKE %s OR LOWER(t.email_from) LIKE %s)", placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets t WHERE %s
        ORDER BY t.priority ASC, t.date DESC, t.id DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) first(ctx context.Context, query string, args ...any) (*domain.Ticket, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	tickets, err := scanTickets(rows)
	if err != nil {
		return nil, err
	}
	if len(tickets) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &tickets[0], nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.Title,
			&ticket.Date,
			&ticket.Message,
			&ticket.Priority,
			&ticket.EmailFrom,
			&ticket.EmailCC,
			&ticket.State,
			&ticket.EmployeeID,
			&ticket.PartyID,
			&ticket.ContactID,
			&ticket.ThreadID,
			&ticket.Kind,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
			&ticket.ClosedAt,
			&ticket.LastTalkAt,
			&ticket.Unread,
			&ticket.NumAttachments,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
