package domain

import "time"

// UserStatus represents lifecycle states for an agent account.
type UserStatus string

const (
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
)

// UserRole separates desk agents from operators allowed to drive ingestion.
type UserRole string

const (
	UserRoleAgent UserRole = "AGENT"
	UserRoleAdmin UserRole = "ADMIN"
)

// User is the acting identity behind every ticket operation.
type User struct {
	ID           string
	Name         string
	Email        string
	Signature    string
	EmployeeID   *string
	PasswordHash string
	Role         UserRole
	Status       UserStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SenderEmail is the address recorded on talks authored by the user, nil when unknown.
func (u *User) SenderEmail() *string {
	if u == nil || u.Email == "" {
		return nil
	}
	email := u.Email
	return &email
}

// SignatureBlock is appended to outbound mail bodies.
func (u *User) SignatureBlock() string {
	if u == nil {
		return ""
	}
	if u.Signature != "" {
		return "\n\n--\n" + u.Signature
	}
	if u.Name != "" {
		return "\n\n--\n" + u.Name
	}
	return ""
}
