/*
Package authsdk is the client SDK for the habitauth session service.

# Client vs Session

  - Client: unauthenticated calls (login, register, refresh, password reset, health, JWKS)
  - Session: holds one user's tokens and authorizes requests with them

	client := authsdk.NewClient("https://auth.example.com")
	session := client.NewSession(authsdk.WithTokenStore(authsdk.NewFileStore(path)))

	if err := session.Restore(ctx); errors.Is(err, authsdk.ErrNoSession) {
		err = session.Login(ctx, "ada@example.com", password)
	}

	me, err := session.Me(ctx)

Any request can be sent through Session.Do, which adds the Authorization
header and handles expiry:

	req, _ := http.NewRequest(http.MethodGet, apiURL+"/habits", nil)
	resp, err := session.Do(ctx, req)

# Token Refresh

Access tokens are short-lived JWTs; refresh tokens are opaque and single
use. Before sending, Do checks the access token's expiry (read from its
"exp" claim, minus a 30 second skew) and refreshes when needed. A 401 from
a non-anonymous endpoint also triggers a refresh followed by one retry.

Refreshes are single-flight. When many goroutines find the access token
expired at once, exactly one refresh request is made and every caller
receives its outcome.

Anonymous endpoints (login, register, forgot-password, reset-password,
refresh-token, logout) never carry an Authorization header and never
trigger a refresh.

# Error Handling

Session errors wrap one of:

  - ErrTransientNetwork: the refresh did not reach a verdict (transport error or 5xx). The session is kept.
  - ErrTerminalAuth: the service rejected the refresh token. The session and its stored tokens are cleared.
  - ErrSessionClosed: Logout ran while the caller was waiting on a refresh.
  - ErrNoSession: there are no tokens.

Service errors are *APIError values that match the code sentinels with
errors.Is:

	if errors.Is(err, authsdk.ErrInvalidCredentials) { ... }

# Persistence

MemoryStore keeps tokens for the life of the process. FileStore writes them
to a 0600 JSON file. Neither coordinates between processes: two processes
sharing one refresh token race, and the loser is logged out.
*/
package authsdk
