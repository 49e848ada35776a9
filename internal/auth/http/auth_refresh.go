package http

import (
	"net/http"

	"github.com/aussiebroadwan/habitauth/internal/auth/service"
	"github.com/aussiebroadwan/habitauth/pkg/authsdk"
	"github.com/aussiebroadwan/habitauth/pkg/httpx"
)

// RefreshHandler serves POST /auth/refresh-token.
type RefreshHandler struct {
	TokenService *service.TokenService
}

// ServeHTTP godoc
//
//	@Summary		Rotate a refresh token
//	@Description	Consumes the presented refresh token and returns a new pair. Each refresh token is accepted once;
//	@Description	presenting an already rotated token revokes every session of its owner.
//	@Tags			Session
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.RefreshRequest	true	"Refresh token"
//	@Success		200		{object}	authsdk.TokenResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"malformed_refresh_token"
//	@Failure		401		{object}	authsdk.ErrorResponse	"refresh_expired_or_revoked"
//	@Failure		404		{object}	authsdk.ErrorResponse	"refresh_not_found"
//	@Router			/auth/refresh-token [post].
func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RefreshRequest
	if !decode(w, r, &req) {
		return
	}

	pair, err := h.TokenService.Rotate(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tokenResponse(pair))
}
