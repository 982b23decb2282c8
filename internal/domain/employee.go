package domain

import "time"

// Employee is a staff member who can be made responsible for tickets.
type Employee struct {
	ID        string
	Name      string
	Email     string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
