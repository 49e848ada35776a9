package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/habitauth/pkg/authsdk"
)

type fakeService struct {
	*httptest.Server
	refreshes atomic.Int32
	revokes   atomic.Int32
}

func newFakeService(t *testing.T) *fakeService {
	t.Helper()
	f := &fakeService{}

	issue := func(w http.ResponseWriter, access string) {
		now := time.Now().UTC()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(authsdk.TokenResponse{
			AccessToken:      access,
			RefreshToken:     "refresh-" + access,
			TokenType:        "Bearer",
			ExpiresAt:        now.Add(15 * time.Minute),
			RefreshExpiresAt: now.Add(7 * 24 * time.Hour),
		})
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req authsdk.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Password != "hunter22-long" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(authsdk.ErrorResponse{Error: authsdk.ErrorCodeInvalidCredentials})
			return
		}
		issue(w, "access-1")
	})
	mux.HandleFunc("POST /auth/refresh-token", func(w http.ResponseWriter, r *http.Request) {
		f.refreshes.Add(1)
		issue(w, "access-2")
	})
	mux.HandleFunc("GET /auth/me", func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer access-") {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(authsdk.ErrorResponse{Error: authsdk.ErrorCodeInvalidToken})
			return
		}
		_ = json.NewEncoder(w).Encode(authsdk.MeResponse{
			UserID: "01J0000000000000000000000A", Username: "ada", Email: "ada@example.com", Roles: []string{"user"},
		})
	})
	mux.HandleFunc("POST /auth/revoke-refresh-token", func(w http.ResponseWriter, r *http.Request) {
		f.revokes.Add(1)
		_ = json.NewEncoder(w).Encode(authsdk.RevokeResponse{Revoked: 2})
	})

	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func run(t *testing.T, srv *fakeService, sessionFile, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HABITAUTH_PASSWORD", "")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(append([]string{"--server", srv.URL, "--session-file", sessionFile}, args...))
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	err := cmd.ExecuteContext(t.Context())
	return out.String(), err
}

func TestLoginWhoamiLogout(t *testing.T) {
	srv := newFakeService(t)
	sessionFile := filepath.Join(t.TempDir(), "session.json")

	out, err := run(t, srv, sessionFile, "hunter22-long\n", "login", "ada")
	require.NoError(t, err)
	require.Contains(t, out, "Signed in")

	info, err := os.Stat(sessionFile)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	out, err = run(t, srv, sessionFile, "", "whoami")
	require.NoError(t, err)
	require.Contains(t, out, "Username: ada")

	out, err = run(t, srv, sessionFile, "", "refresh", "--json")
	require.NoError(t, err)
	require.Contains(t, out, "refresh_expires_at")
	require.Equal(t, int32(1), srv.refreshes.Load())

	out, err = run(t, srv, sessionFile, "", "logout")
	require.NoError(t, err)
	require.Contains(t, out, "Logged out")
	require.Equal(t, int32(1), srv.revokes.Load())

	_, err = os.Stat(sessionFile)
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = run(t, srv, sessionFile, "", "whoami")
	require.ErrorContains(t, err, "not logged in")
}

func TestLoginRejected(t *testing.T) {
	srv := newFakeService(t)
	sessionFile := filepath.Join(t.TempDir(), "session.json")

	_, err := run(t, srv, sessionFile, "wrong\n", "login", "ada")
	require.ErrorContains(t, err, "invalid username or password")

	_, err = os.Stat(sessionFile)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestRevokeAll(t *testing.T) {
	srv := newFakeService(t)
	sessionFile := filepath.Join(t.TempDir(), "session.json")

	_, err := run(t, srv, sessionFile, "hunter22-long\n", "login", "ada")
	require.NoError(t, err)

	out, err := run(t, srv, sessionFile, "", "revoke-all")
	require.NoError(t, err)
	require.Contains(t, out, "Revoked 2 refresh token(s)")

	_, err = os.Stat(sessionFile)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadPassword(t *testing.T) {
	t.Setenv("HABITAUTH_PASSWORD", "")
	_, err := readPassword(strings.NewReader("\n"), &bytes.Buffer{})
	require.Error(t, err)

	got, err := readPassword(strings.NewReader("secret value\r\n"), &bytes.Buffer{})
	require.NoError(t, err)
	require.Equal(t, "secret value", got)

	t.Setenv("HABITAUTH_PASSWORD", "from-env")
	got, err = readPassword(strings.NewReader(""), &bytes.Buffer{})
	require.NoError(t, err)
	require.Equal(t, "from-env", got)
}
