package authsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Error codes returned in the "error" field of error responses.
const (
	ErrorCodeInvalidRequest          = "invalid_request"
	ErrorCodeInvalidCredentials      = "invalid_credentials"
	ErrorCodeDuplicateIdentity       = "duplicate_identity"
	ErrorCodeMalformedRefreshToken   = "malformed_refresh_token"
	ErrorCodeRefreshNotFound         = "refresh_not_found"
	ErrorCodeRefreshExpiredOrRevoked = "refresh_expired_or_revoked"
	ErrorCodeInvalidResetToken       = "invalid_reset_token"
	ErrorCodeRateLimited             = "rate_limited"
	ErrorCodeInvalidToken            = "invalid_token"
	ErrorCodeInsufficientRole        = "insufficient_role"
	ErrorCodeNotFound                = "not_found"
	ErrorCodeServerError             = "server_error"
)

// Session errors. Errors returned by Session wrap one of these, so callers
// branch with errors.Is.
var (
	// ErrTransientNetwork means the refresh could not reach a verdict
	// (transport failure or 5xx). The session is kept and may be retried.
	ErrTransientNetwork = errors.New("authsdk: transient network failure")

	// ErrTerminalAuth means the server rejected the session. The session
	// and its persisted tokens have been cleared; the user must log in.
	ErrTerminalAuth = errors.New("authsdk: session rejected, login required")

	// ErrSessionClosed is returned to callers waiting on a refresh when
	// Logout runs.
	ErrSessionClosed = errors.New("authsdk: session closed")

	// ErrNoSession means there are no tokens to authorize with.
	ErrNoSession = errors.New("authsdk: no session")
)

// APIError is an error response from the service.
type APIError struct {
	StatusCode  int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e *APIError) Error() string {
	if e.Description == "" {
		return fmt.Sprintf("%s (HTTP %d)", e.Code, e.StatusCode)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Is matches any *APIError with the same Code, so the code sentinels below
// work with errors.Is regardless of status or description.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	return ok && t.Code == e.Code
}

// Code sentinels for errors.Is.
var (
	ErrInvalidRequest          = &APIError{Code: ErrorCodeInvalidRequest}
	ErrInvalidCredentials      = &APIError{Code: ErrorCodeInvalidCredentials}
	ErrDuplicateIdentity       = &APIError{Code: ErrorCodeDuplicateIdentity}
	ErrMalformedRefreshToken   = &APIError{Code: ErrorCodeMalformedRefreshToken}
	ErrRefreshNotFound         = &APIError{Code: ErrorCodeRefreshNotFound}
	ErrRefreshExpiredOrRevoked = &APIError{Code: ErrorCodeRefreshExpiredOrRevoked}
	ErrInvalidResetToken       = &APIError{Code: ErrorCodeInvalidResetToken}
	ErrRateLimited             = &APIError{Code: ErrorCodeRateLimited}
	ErrInvalidToken            = &APIError{Code: ErrorCodeInvalidToken}
	ErrInsufficientRole        = &APIError{Code: ErrorCodeInsufficientRole}
	ErrServerError             = &APIError{Code: ErrorCodeServerError}
)

// parseErrorResponse turns a non-2xx response into an *APIError. Bodies
// that are not JSON error objects fall back to the status text.
func parseErrorResponse(resp *http.Response, body []byte) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != "" {
		return &APIError{
			StatusCode:  resp.StatusCode,
			Code:        errResp.Error,
			Description: errResp.ErrorDescription,
		}
	}

	code := ErrorCodeServerError
	if resp.StatusCode < 500 {
		code = ErrorCodeInvalidRequest
	}
	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        code,
		Description: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}
}
