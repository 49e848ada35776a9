package domain

import "time"

type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal is the identity embedded in access tokens.
type Principal struct {
	ID       string
	Username string
	Email    string
	Roles    []string
}

func (u User) Principal(roles []string) Principal {
	return Principal{ID: u.ID, Username: u.Username, Email: u.Email, Roles: roles}
}
