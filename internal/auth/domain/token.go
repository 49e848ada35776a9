package domain

import "time"

// TokenPair is what login, register and refresh return.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	TokenType        string    `json:"token_type"`
	ExpiresAt        time.Time `json:"expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// RefreshToken is the stored record of an issued refresh credential. Only
// the fingerprint of the credential is kept.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
	Revoked   bool
	RevokedAt *time.Time
	// ReplacedBy is the ID of the record issued when this one was rotated.
	// Empty for records revoked by logout.
	ReplacedBy string
}

// Usable reports whether the record may still be exchanged at now.
func (t RefreshToken) Usable(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}

// RotatedWithin reports whether the record was consumed by a rotation no
// longer than window before now.
func (t RefreshToken) RotatedWithin(now time.Time, window time.Duration) bool {
	if !t.Revoked || t.RevokedAt == nil || t.ReplacedBy == "" || window <= 0 {
		return false
	}
	return now.Sub(*t.RevokedAt) <= window
}

// PasswordReset is a single-use reset credential, stored hashed.
type PasswordReset struct {
	ID        string
	UserID    string
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
	UsedAt    *time.Time
}
