package http

import (
	"net/http"

	"github.com/aussiebroadwan/habitauth/pkg/authsdk"
	"github.com/aussiebroadwan/habitauth/pkg/httpx"
)

// MeHandler godoc
//
//	@Summary		Current principal
//	@Description	Returns the identity carried by the caller's access token. The token is not checked against the store.
//	@Tags			Session
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.MeResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"invalid_token"
//	@Router			/auth/me [get].
func MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := httpx.PrincipalFromContext(r.Context())
		if !ok {
			httpx.WriteError(w, http.StatusUnauthorized, authsdk.ErrorCodeInvalidToken, "missing bearer token")
			return
		}

		roles := p.Roles
		if roles == nil {
			roles = []string{}
		}
		httpx.WriteJSON(w, http.StatusOK, authsdk.MeResponse{
			UserID:   p.ID,
			Username: p.Name,
			Email:    p.Email,
			Roles:    roles,
		})
	}
}
