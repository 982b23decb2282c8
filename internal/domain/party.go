package domain

// Party is an address-book entry (customer or organisation).
type Party struct {
	ID   string
	Name string
}

// Contact is one email address of a party.
type Contact struct {
	ID      string
	PartyID string
	Email   string
}

// PartyMatch is the result of an address-book lookup by email.
type PartyMatch struct {
	PartyID   *string
	ContactID *string
}
