package domain

import "time"

// SigningKey is a JWT signing key sealed at rest with the master key.
type SigningKey struct {
	ID                string
	Kid               string
	Algorithm         string
	MaterialEncrypted []byte
	CreatedAt         time.Time
	RetiredAt         *time.Time
}
