package http

import (
	"net/http"

	"github.com/aussiebroadwan/habitauth/internal/auth/service"
	"github.com/aussiebroadwan/habitauth/pkg/authsdk"
	"github.com/aussiebroadwan/habitauth/pkg/httpx"
)

// LoginHandler serves POST /auth/login.
type LoginHandler struct {
	UserService *service.UserService
}

// ServeHTTP godoc
//
//	@Summary		Log in
//	@Description	Exchanges a username or email and password for an access token and a single-use refresh token.
//	@Description	Unknown accounts and wrong passwords are indistinguishable.
//	@Tags			Session
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.LoginRequest	true	"Credentials"
//	@Success		200		{object}	authsdk.TokenResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_request"
//	@Failure		401		{object}	authsdk.ErrorResponse	"invalid_credentials"
//	@Failure		429		{object}	authsdk.ErrorResponse	"rate_limited"
//	@Header			200		{string}	Cache-Control			"no-store"
//	@Router			/auth/login [post].
func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req authsdk.LoginRequest
	if !decode(w, r, &req) {
		return
	}

	pair, err := h.UserService.Login(r.Context(), req.Identifier, req.Password, httpx.IPKeyExtractor(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, tokenResponse(pair))
}
