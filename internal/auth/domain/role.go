package domain

import "time"

// Built-in roles seeded by the initial migration.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

type Role struct {
	ID        string
	Name      string
	CreatedAt time.Time
}
