package auth_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/aussiebroadwan/habitauth/pkg/authsdk"
)

// TestRegisterLoginMe covers account creation, login by username and by
// email, and reading the identity back.
func TestRegisterLoginMe(t *testing.T) {
	baseURL := setupAuthContainer(t)
	client := authsdk.NewClient(baseURL)

	registerUser(t, client, "ada")

	for _, identifier := range []string{"ada", "ada@example.com"} {
		session := client.NewSession()
		require.NoError(t, session.Login(t.Context(), identifier, testPassword))

		me, err := session.Me(t.Context())
		require.NoError(t, err)
		require.Equal(t, "ada", me.Username)
		require.Equal(t, []string{"user"}, me.Roles)
	}
}

// TestRefreshRotationAndReplay presents a consumed refresh token a second
// time and checks every session of the account is revoked.
func TestRefreshRotationAndReplay(t *testing.T) {
	baseURL := setupAuthContainer(t)
	client := authsdk.NewClient(baseURL)
	session := registerUser(t, client, "grace")

	old := currentTokens(t, session)
	fresh, err := session.Refresh(t.Context())
	require.NoError(t, err)
	require.NotEqual(t, old.AccessToken, fresh.AccessToken, "Access token should be rotated")
	require.NotEqual(t, old.RefreshToken, fresh.RefreshToken, "Refresh token should be rotated")

	_, err = client.Refresh(t.Context(), old.RefreshToken)
	require.ErrorIs(t, err, authsdk.ErrRefreshExpiredOrRevoked)

	_, err = client.Refresh(t.Context(), fresh.RefreshToken)
	require.ErrorIs(t, err, authsdk.ErrRefreshExpiredOrRevoked, "Replay should revoke the whole family")
}

// TestConcurrentSessionCallers makes many calls through one session after a
// forced refresh and checks they all succeed on a single rotation.
func TestConcurrentSessionCallers(t *testing.T) {
	baseURL := setupAuthContainer(t)
	client := authsdk.NewClient(baseURL)
	session := registerUser(t, client, "linus")

	var g errgroup.Group
	for range 10 {
		g.Go(func() error {
			_, err := session.Refresh(t.Context())
			return err
		})
	}
	require.NoError(t, g.Wait())

	_, err := session.Me(t.Context())
	require.NoError(t, err)
}

// TestRevokeAllSignsOutEveryDevice signs in twice and revokes from one
// device.
func TestRevokeAllSignsOutEveryDevice(t *testing.T) {
	baseURL := setupAuthContainer(t)
	client := authsdk.NewClient(baseURL)

	phone := registerUser(t, client, "hopper")
	laptop := client.NewSession()
	require.NoError(t, laptop.Login(t.Context(), "hopper", testPassword))

	n, err := phone.RevokeAll(t.Context())
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	_, err = laptop.Refresh(t.Context())
	require.ErrorIs(t, err, authsdk.ErrTerminalAuth)
	_, ok := laptop.Tokens()
	require.False(t, ok, "Terminal refresh failure clears the session")
}

// TestLogoutRevokesServerSide checks a logged-out refresh token is dead.
func TestLogoutRevokesServerSide(t *testing.T) {
	baseURL := setupAuthContainer(t)
	client := authsdk.NewClient(baseURL)
	session := registerUser(t, client, "lovelace")

	tokens := currentTokens(t, session)
	require.NoError(t, session.Logout(t.Context()))

	_, err := client.Refresh(t.Context(), tokens.RefreshToken)
	require.ErrorIs(t, err, authsdk.ErrRefreshExpiredOrRevoked)
}
