package http

import (
	"net/http"

	"github.com/aussiebroadwan/habitauth/internal/auth/service"
	"github.com/aussiebroadwan/habitauth/pkg/authsdk"
	"github.com/aussiebroadwan/habitauth/pkg/httpx"
)

// KeyRotationHandler rotates JWT signing keys. Requires the admin role.
type KeyRotationHandler struct {
	KeyRotationService *service.KeyRotationService
}

// HandleRotate handles POST /auth/admin/keys/rotate
//
//	@Summary		Rotate signing keys
//	@Description	Generates a new signing key and optionally retires the current ones. Retired keys stay in the JWKS
//	@Description	so tokens they signed verify until they expire.
//	@Tags			Admin
//	@Accept			json
//	@Produce		json
//	@Param			body	body		authsdk.RotateKeyRequest	true	"Rotation options"
//	@Success		200		{object}	authsdk.RotateKeyResponse
//	@Failure		400		{object}	authsdk.ErrorResponse	"invalid_request"
//	@Failure		401		{object}	authsdk.ErrorResponse	"invalid_token"
//	@Failure		403		{object}	authsdk.ErrorResponse	"insufficient_role"
//	@Failure		500		{object}	authsdk.ErrorResponse	"server_error"
//	@Security		BearerAuth
//	@Router			/auth/admin/keys/rotate [post]
func (h *KeyRotationHandler) HandleRotate(w http.ResponseWriter, r *http.Request) {
	var req authsdk.RotateKeyRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.KeyRotationService.RotateKey(r.Context(), req.RetireExisting)
	if err != nil {
		writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, authsdk.RotateKeyResponse{
		NewKID:      res.NewKID,
		RetiredKIDs: res.RetiredKIDs,
		ActiveKIDs:  res.ActiveKIDs,
	})
}
