package http

import (
	"net/http"

	"github.com/aussiebroadwan/habitauth/internal/auth/service"
	"github.com/aussiebroadwan/habitauth/pkg/authsdk"
	"github.com/aussiebroadwan/habitauth/pkg/httpx"
)

// RevokeHandler serves the revocation endpoints.
type RevokeHandler struct {
	TokenService *service.TokenService
}

// HandleRevokeAll godoc
//
//	@Summary		Revoke all refresh tokens
//	@Description	Revokes every live refresh token of the caller, signing out all devices.
//	@Description	Access tokens already issued stay valid until they expire.
//	@Tags			Session
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	authsdk.RevokeResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"invalid_token"
//	@Router			/auth/revoke-refresh-token [post].
func (h *RevokeHandler) HandleRevokeAll(w http.ResponseWriter, r *http.Request) {
	p, ok := httpx.PrincipalFromContext(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, authsdk.ErrorCodeInvalidToken, "missing bearer token")
		return
	}

	n, err := h.TokenService.RevokeAll(r.Context(), p.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.RevokeResponse{Revoked: n})
}

// HandleLogout godoc
//
//	@Summary		Revoke one refresh token
//	@Description	Revokes the presented refresh token only. Unknown or already revoked tokens also return 204.
//	@Tags			Session
//	@Accept			json
//	@Param			body	body	authsdk.RefreshRequest	true	"Refresh token"
//	@Success		204
//	@Failure		400	{object}	authsdk.ErrorResponse	"malformed_refresh_token"
//	@Router			/auth/logout [post].
func (h *RevokeHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RefreshRequest
	if !decode(w, r, &req) {
		return
	}

	if err := h.TokenService.RevokeOne(r.Context(), req.RefreshToken); err != nil {
		writeError(w, r, err)
		return
	}
	httpx.NoCache(w)
	w.WriteHeader(http.StatusNoContent)
}

// HandleAdminRevokeUser godoc
//
//	@Summary		Revoke another user's refresh tokens
//	@Tags			Admin
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		string	true	"User ID"
//	@Success		200	{object}	authsdk.RevokeResponse
//	@Failure		401	{object}	authsdk.ErrorResponse	"invalid_token"
//	@Failure		403	{object}	authsdk.ErrorResponse	"insufficient_role"
//	@Router			/auth/admin/users/{id}/revoke [post].
func (h *RevokeHandler) HandleAdminRevokeUser(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	if userID == "" {
		httpx.WriteError(w, http.StatusBadRequest, authsdk.ErrorCodeInvalidRequest, "user id is required")
		return
	}

	n, err := h.TokenService.RevokeAll(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.RevokeResponse{Revoked: n})
}
