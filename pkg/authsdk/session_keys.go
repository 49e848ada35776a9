package authsdk

import (
	"context"
	"net/http"
)

// RotateKey generates a new signing key on the service.
// Requires: admin role
func (s *Session) RotateKey(ctx context.Context, req RotateKeyRequest) (*RotateKeyResponse, error) {
	var out RotateKeyResponse
	if err := s.doJSON(ctx, http.MethodPost, PathAdminRotateKeys, req, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}
