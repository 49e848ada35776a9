package http

import (
	"net/http"

	"github.com/aussiebroadwan/habitauth/internal/auth/service"
	"github.com/aussiebroadwan/habitauth/pkg/authsdk"
	"github.com/aussiebroadwan/habitauth/pkg/httpx"
	"github.com/aussiebroadwan/habitauth/pkg/slogx"
)

// PasswordResetHandler serves the forgot and reset password endpoints.
type PasswordResetHandler struct {
	PasswordResetService *service.PasswordResetService
}

// HandleForgot godoc
//
//	@Summary		Request a password reset
//	@Description	Always answers 202 so the response does not reveal whether the address is registered.
//	@Tags			Password
//	@Accept			json
//	@Param			body	body	authsdk.ForgotPasswordRequest	true	"Account email"
//	@Success		202
//	@Failure		400	{object}	authsdk.ErrorResponse	"invalid_request"
//	@Router			/auth/forgot-password [post].
func (h *PasswordResetHandler) HandleForgot(w http.ResponseWriter, r *http.Request) {
	var req authsdk.ForgotPasswordRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.PasswordResetService.RequestReset(r.Context(), req.Email); err != nil {
		slogx.FromContext(r.Context()).Error("password reset request failed", "err", err)
	}
	httpx.NoCache(w)
	w.WriteHeader(http.StatusAccepted)
}

// HandleReset godoc
//
//	@Summary		Reset a password
//	@Description	Sets a new password with a reset token and revokes every refresh token of the account.
//	@Tags			Password
//	@Accept			json
//	@Produce		json
//	@Param			body	body	authsdk.ResetPasswordRequest	true	"Reset token and new password"
//	@Success		200
//	@Failure		400	{object}	authsdk.ErrorResponse	"invalid_reset_token or invalid_request"
//	@Router			/auth/reset-password [post].
func (h *PasswordResetHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	var req authsdk.ResetPasswordRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.PasswordResetService.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, struct{}{})
}
