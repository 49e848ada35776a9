package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/habitauth/internal/auth/domain"
	"github.com/aussiebroadwan/habitauth/pkg/authsdk"
	"github.com/aussiebroadwan/habitauth/pkg/httpx"
	"github.com/aussiebroadwan/habitauth/pkg/slogx"
)

type errorMapping struct {
	err    error
	status int
	code   string
	desc   string
}

// errorTable is the only place domain errors become HTTP responses. An
// empty desc uses the error text, which must then be safe to show.
var errorTable = []errorMapping{
	{domain.ErrInvalidCredentials, http.StatusUnauthorized, authsdk.ErrorCodeInvalidCredentials, "invalid username, email or password"},
	{domain.ErrDuplicateIdentity, http.StatusBadRequest, authsdk.ErrorCodeDuplicateIdentity, "username or email already exists"},
	{domain.ErrMalformedRefreshToken, http.StatusBadRequest, authsdk.ErrorCodeMalformedRefreshToken, "refresh token is malformed"},
	{domain.ErrRefreshNotFound, http.StatusNotFound, authsdk.ErrorCodeRefreshNotFound, "refresh token not found"},
	{domain.ErrRefreshExpiredOrRevoked, http.StatusUnauthorized, authsdk.ErrorCodeRefreshExpiredOrRevoked, "refresh token expired or revoked"},
	{domain.ErrInvalidResetToken, http.StatusBadRequest, authsdk.ErrorCodeInvalidResetToken, "reset token is invalid or expired"},
	{domain.ErrRateLimited, http.StatusTooManyRequests, authsdk.ErrorCodeRateLimited, "too many attempts, try again later"},
	{domain.ErrInvalidInput, http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest, ""},
}

// writeError maps err through errorTable. Anything unmapped, including
// ErrSigningUnavailable, is logged and answered with a bare server_error.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range errorTable {
		if !errors.Is(err, m.err) {
			continue
		}
		desc := m.desc
		if desc == "" {
			desc = err.Error()
		}
		if m.status == http.StatusUnauthorized {
			w.Header().Set("WWW-Authenticate", `Bearer error="`+m.code+`"`)
		}
		httpx.WriteError(w, m.status, m.code, desc)
		return
	}

	slogx.FromContext(r.Context()).Error("request failed", "err", err)
	httpx.WriteError(w, http.StatusInternalServerError, authsdk.ErrorCodeServerError, "")
}

// decode reads a JSON body, answering 400 invalid_request on failure.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := httpx.DecodeJSON(w, r, v); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest, "request body must be a single JSON object with known fields")
		return false
	}
	return true
}

func tokenResponse(p domain.TokenPair) authsdk.TokenResponse {
	return authsdk.TokenResponse{
		AccessToken:      p.AccessToken,
		RefreshToken:     p.RefreshToken,
		TokenType:        p.TokenType,
		ExpiresAt:        p.ExpiresAt,
		RefreshExpiresAt: p.RefreshExpiresAt,
	}
}
