package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/deskline/helpdesk-service/internal/domain"
)

type partyRepository struct {
	db DBTX
}

// NewPartyRepository returns the Postgres address book.
func NewPartyRepository(db DBTX) PartyRepository {
	return &partyRepository{db: db}
}

func (r *partyRepository) GetByID(ctx context.Context, id string) (*domain.Party, error) {
	var party domain.Party
	if err := r.db.QueryRow(ctx, `SELECT id, name FROM parties WHERE id=$1`, id).Scan(&party.ID, &party.Name); err != nil {
		return nil, err
	}
	return &party, nil
}

func (r *partyRepository) FindByEmail(ctx context.Context, email string) (domain.PartyMatch, error) {
	const query = `
        SELECT id, party_id FROM contacts
        WHERE LOWER(email) = LOWER($1)
        ORDER BY sequence, id LIMIT 1`
	var contactID, partyID string
	err := r.db.QueryRow(ctx, query, email).Scan(&contactID, &partyID)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.PartyMatch{}, nil
	}
	if err != nil {
		return domain.PartyMatch{}, err
	}
	return domain.PartyMatch{PartyID: &partyID, ContactID: &contactID}, nil
}

func (r *partyRepository) FirstContact(ctx context.Context, partyID string) (*domain.Contact, error) {
	const query = `
        SELECT id, party_id, email FROM contacts
        WHERE party_id=$1 AND email <> ''
        ORDER BY sequence, id LIMIT 1`
	var contact domain.Contact
	err := r.db.QueryRow(ctx, query, partyID).Scan(&contact.ID, &contact.PartyID, &contact.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &contact, nil
}
