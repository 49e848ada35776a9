package authsdk

import (
	"context"
	"net/http"
)

// Me returns the caller's identity as carried in its access token.
func (s *Session) Me(ctx context.Context) (*MeResponse, error) {
	var me MeResponse
	if err := s.doJSON(ctx, http.MethodGet, PathMe, nil, &me, http.StatusOK); err != nil {
		return nil, err
	}
	return &me, nil
}

// RevokeAll revokes every refresh token of the account, signing out all of
// its devices. This session's access token stays valid until it expires.
func (s *Session) RevokeAll(ctx context.Context) (int64, error) {
	var out RevokeResponse
	if err := s.doJSON(ctx, http.MethodPost, PathRevokeRefreshToken, nil, &out, http.StatusOK); err != nil {
		return 0, err
	}
	return out.Revoked, nil
}

// RevokeUser revokes every refresh token of another account.
// Requires: admin role
func (s *Session) RevokeUser(ctx context.Context, userID string) (int64, error) {
	var out RevokeResponse
	if err := s.doJSON(ctx, http.MethodPost, adminRevokeUserPath(userID), nil, &out, http.StatusOK); err != nil {
		return 0, err
	}
	return out.Revoked, nil
}
