package authsdk

import (
	"context"
	"net/http"
)

// Login exchanges a username or email and password for a token pair.
func (c *Client) Login(ctx context.Context, identifier, password string) (*TokenResponse, error) {
	var out TokenResponse
	err := c.doJSON(ctx, http.MethodPost, PathLogin, LoginRequest{
		Identifier: identifier,
		Password:   password,
	}, &out, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account and returns its first token pair.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*TokenResponse, error) {
	var out TokenResponse
	if err := c.doJSON(ctx, http.MethodPost, PathRegister, req, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh exchanges a refresh token for a new pair. The presented token is
// consumed whether or not the response reaches the caller.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	var out TokenResponse
	err := c.doJSON(ctx, http.MethodPost, PathRefreshToken, RefreshRequest{
		RefreshToken: refreshToken,
	}, &out, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// RevokeRefreshToken revokes a single refresh token, ending the session on
// one device. Unknown tokens are not an error.
func (c *Client) RevokeRefreshToken(ctx context.Context, refreshToken string) error {
	return c.doJSON(ctx, http.MethodPost, PathLogout, RefreshRequest{
		RefreshToken: refreshToken,
	}, nil, http.StatusNoContent)
}

// ForgotPassword asks the service to send a reset token for email. It
// succeeds whether or not the address is registered.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	return c.doJSON(ctx, http.MethodPost, PathForgotPassword, ForgotPasswordRequest{
		Email: email,
	}, nil, http.StatusAccepted)
}

// ResetPassword sets a new password using a reset token. Every session of
// the account is revoked.
func (c *Client) ResetPassword(ctx context.Context, token, password string) error {
	return c.doJSON(ctx, http.MethodPost, PathResetPassword, ResetPasswordRequest{
		Token:    token,
		Password: password,
	}, nil, http.StatusOK)
}
