package http

import (
	"net/http"

	"github.com/aussiebroadwan/habitauth/internal/auth/service"
	"github.com/aussiebroadwan/habitauth/pkg/authsdk"
	"github.com/aussiebroadwan/habitauth/pkg/httpx"
)

// RegisterHandler serves POST /auth/register.
type RegisterHandler struct {
	UserService *service.UserService
}

// ServeHTTP godoc
//
//	@Summary		Register
//	@Description	Creates an account with the "user" role and returns its first token pair.
//	@Tags			Session
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.RegisterRequest	true	"New account"
//	@Success		201		{object}	authsdk.TokenResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_request or duplicate_identity"
//	@Failure		429		{object}	authsdk.ErrorResponse	"rate_limited"
//	@Router			/auth/register [post].
func (h *RegisterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RegisterRequest
	if !decode(w, r, &req) {
		return
	}

	pair, err := h.UserService.Register(r.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, tokenResponse(pair))
}
