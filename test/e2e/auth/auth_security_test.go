package auth_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/habitauth/pkg/authsdk"
)

// TestInvalidCredentials verifies that a wrong password and an unknown
// account are rejected the same way.
func TestInvalidCredentials(t *testing.T) {
	baseURL := setupAuthContainer(t)
	client := authsdk.NewClient(baseURL)
	registerUser(t, client, "turing")

	_, err := client.Login(t.Context(), "turing", "wrong-password")
	require.ErrorIs(t, err, authsdk.ErrInvalidCredentials)

	_, err = client.Login(t.Context(), "nobody", testPassword)
	require.ErrorIs(t, err, authsdk.ErrInvalidCredentials)
}

// TestInvalidAccessToken verifies protected endpoints reject a forged
// bearer token.
func TestInvalidAccessToken(t *testing.T) {
	baseURL := setupAuthContainer(t)

	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, baseURL+authsdk.PathMe, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer invalid-token-12345")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("WWW-Authenticate"))
}

// TestMalformedAndUnknownRefreshTokens verifies the two client-error
// outcomes of the refresh endpoint.
func TestMalformedAndUnknownRefreshTokens(t *testing.T) {
	baseURL := setupAuthContainer(t)
	client := authsdk.NewClient(baseURL)

	_, err := client.Refresh(t.Context(), "short")
	require.ErrorIs(t, err, authsdk.ErrMalformedRefreshToken)

	unknown := make([]byte, 86)
	for i := range unknown {
		unknown[i] = 'A'
	}
	_, err = client.Refresh(t.Context(), string(unknown))
	require.ErrorIs(t, err, authsdk.ErrRefreshNotFound)
}
