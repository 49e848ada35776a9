package authsdk

import (
	"time"

	"github.com/aussiebroadwan/habitauth/pkg/jwtx"
)

// ============================================================================
// Error Types
// ============================================================================

// ErrorResponse is the JSON body of every error response.
type ErrorResponse struct {
	// Error is a stable machine-readable code (e.g. "refresh_not_found")
	Error string `json:"error"`

	// ErrorDescription is a human-readable description of the error
	ErrorDescription string `json:"error_description,omitempty"`
}

// ============================================================================
// Session Types
// ============================================================================

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	// Identifier is a username or an email address
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`

	// Role defaults to "user", the only role open to self-registration
	Role string `json:"role,omitempty"`
}

// RefreshRequest is the body of POST /auth/refresh-token and POST /auth/logout.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// TokenResponse is returned by login, register and refresh.
type TokenResponse struct {
	// AccessToken is the signed JWT sent as "Authorization: Bearer"
	AccessToken string `json:"access_token"`

	// RefreshToken is the opaque single-use refresh credential
	RefreshToken string `json:"refresh_token"`

	// TokenType is always "Bearer"
	TokenType string `json:"token_type"`

	// ExpiresAt is when the access token expires
	ExpiresAt time.Time `json:"expires_at"`

	// RefreshExpiresAt is when the refresh token expires
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// RevokeResponse reports how many refresh tokens were revoked.
type RevokeResponse struct {
	Revoked int64 `json:"revoked"`
}

// ForgotPasswordRequest is the body of POST /auth/forgot-password.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest is the body of POST /auth/reset-password.
type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// MeResponse describes the caller as seen in its access token.
type MeResponse struct {
	UserID   string   `json:"user_id"`
	Username string   `json:"username"`
	Email    string   `json:"email,omitempty"`
	Roles    []string `json:"roles"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse represents the response structure for health check endpoints.
// Used by both /livez and /readyz endpoints (readyz includes additional Checks field).
type HealthResponse struct {
	// Status indicates the overall health status (e.g., "ok")
	Status string `json:"status"`

	// Uptime is the service uptime duration as a string (e.g., "1h23m45s")
	Uptime string `json:"uptime,omitempty"`

	// Version is the service version string
	Version string `json:"version,omitempty"`

	// Checks contains readiness check results for critical dependencies (only for /readyz)
	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks represents the status of critical service dependencies.
type HealthChecks struct {
	// Database indicates the database connection status
	Database string `json:"database"`

	// Signer indicates the JWT signing capability status
	Signer string `json:"signer"`

	// ActiveKeys is the number of keys currently signing access tokens.
	ActiveKeys int `json:"active_keys"`
}

// ============================================================================
// JWKS Types
// ============================================================================

// JWKSResponse contains the public keys used to verify access tokens.
type JWKSResponse jwtx.JWKS

// ============================================================================
// Key Rotation Types
// ============================================================================

// RotateKeyRequest represents a request to rotate signing keys.
type RotateKeyRequest struct {
	// RetireExisting stops signing with the current keys. They stay published
	// for verification.
	RetireExisting bool `json:"retire_existing"`
}

// RotateKeyResponse represents the result of a key rotation operation.
type RotateKeyResponse struct {
	NewKID      string   `json:"new_kid"`
	RetiredKIDs []string `json:"retired_kids,omitempty"`
	ActiveKIDs  []string `json:"active_kids"`
}
