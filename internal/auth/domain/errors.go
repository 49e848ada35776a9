package domain

import "errors"

// Authentication and session errors. Handlers map these to stable error
// codes with errors.Is.
var (
	ErrInvalidCredentials      = errors.New("invalid credentials")
	ErrDuplicateIdentity       = errors.New("username or email already exists")
	ErrMalformedRefreshToken   = errors.New("malformed refresh token")
	ErrRefreshNotFound         = errors.New("refresh token not found")
	ErrRefreshExpiredOrRevoked = errors.New("refresh token expired or revoked")
	ErrSigningUnavailable      = errors.New("token signing unavailable")
	ErrInvalidResetToken       = errors.New("invalid or expired reset token")
	ErrRateLimited             = errors.New("too many attempts")
	ErrInvalidInput            = errors.New("invalid input")
)
