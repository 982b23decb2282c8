package repository

import (
	"context"

	"github.com/deskline/helpdesk-service/internal/domain"
)

type logRepository struct {
	db DBTX
}

// NewLogRepository constructs the audit log repository.
func NewLogRepository(db DBTX) LogRepository {
	return &logRepository{db: db}
}

func (r *logRepository) Create(ctx context.Context, log *domain.TicketLog) error {
	const query = `
        INSERT INTO ticket_logs (ticket_id, date, user_id, action)
        VALUES ($1,$2,$3,$4)
        RETURNING id`
	return r.db.QueryRow(ctx, query, log.TicketID, log.Date, log.UserID, log.Action).Scan(&log.ID)
}

func (r *logRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketLog, error) {
	const query = `
        SELECT id, ticket_id, date, user_id, action
        FROM ticket_logs WHERE ticket_id=$1 ORDER BY date DESC`
	rows, err := r.db.Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketLog
	for rows.Next() {
		var entry domain.TicketLog
		if err := rows.Scan(&entry.ID, &entry.TicketID, &entry.Date, &entry.UserID, &entry.Action); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
