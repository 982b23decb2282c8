package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/deskline/helpdesk-service/internal/domain"
)

type attachmentRepository struct {
	db DBTX
}

// NewAttachmentRepository constructs repository.
func NewAttachmentRepository(db DBTX) AttachmentRepository {
	return &attachmentRepository{db: db}
}

const attachmentColumns = `id, ticket_id, resource, name, content_type, data, size, staged_for_email, created_at, updated_at`

func (r *attachmentRepository) Create(ctx context.Context, attachment *domain.Attachment) error {
	const query = `
        INSERT INTO ticket_attachments (ticket_id, resource, name, content_type, data, size, staged_for_email)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	attachment.Size = int64(len(attachment.Data))
	return r.db.QueryRow(ctx, query,
		attachment.TicketID,
		attachment.Resource,
		attachment.Name,
		attachment.ContentType,
		attachment.Data,
		attachment.Size,
		attachment.StagedForEmail,
	).Scan(&attachment.ID, &attachment.CreatedAt, &attachment.UpdatedAt)
}

func (r *attachmentRepository) ReplaceContent(ctx context.Context, id, contentType string, data []byte) error {
	const query = `
        UPDATE ticket_attachments SET content_type=$1, data=$2, size=$3, updated_at=NOW()
        WHERE id=$4`
	cmd, err := r.db.Exec(ctx, query, contentType, data, len(data), id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *attachmentRepository) GetByID(ctx context.Context, id string) (*domain.Attachment, error) {
	rows, err := r.db.Query(ctx, `SELECT `+attachmentColumns+` FROM ticket_attachments WHERE id=$1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result, err := scanAttachments(rows)
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &result[0], nil
}

func (r *attachmentRepository) FindByName(ctx context.Context, ticketID, name string) (*domain.Attachment, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+attachmentColumns+` FROM ticket_attachments WHERE ticket_id=$1 AND LOWER(name)=LOWER($2)`,
		ticketID, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result, err := scanAttachments(rows)
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, nil
	}
	return &result[0], nil
}

func (r *attachmentRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Attachment, error) {
	return r.list(ctx, `SELECT `+attachmentColumns+` FROM ticket_attachments WHERE ticket_id=$1 ORDER BY name`, ticketID)
}

func (r *attachmentRepository) ListStaged(ctx context.Context, ticketID string) ([]domain.Attachment, error) {
	return r.list(ctx, `SELECT `+attachmentColumns+` FROM ticket_attachments WHERE ticket_id=$1 AND staged_for_email ORDER BY name`, ticketID)
}

func (r *attachmentRepository) SetStaged(ctx context.Context, id string, staged bool) error {
	cmd, err := r.db.Exec(ctx, `UPDATE ticket_attachments SET staged_for_email=$1, updated_at=NOW() WHERE id=$2`, staged, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *attachmentRepository) DeleteByTicket(ctx context.Context, ticketID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM ticket_attachments WHERE ticket_id=$1`, ticketID)
	return err
}

func (r *attachmentRepository) list(ctx context.Context, query string, args ...any) ([]domain.Attachment, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAttachments(rows)
}

func scanAttachments(rows pgx.Rows) ([]domain.Attachment, error) {
	var result []domain.Attachment
	for rows.Next() {
		var a domain.Attachment
		if err := rows.Scan(
			&a.ID,
			&a.TicketID,
			&a.Resource,
			&a.Name,
			&a.ContentType,
			&a.Data,
			&a.Size,
			&a.StagedForEmail,
			&a.CreatedAt,
			&a.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

