package authsdk

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// DefaultExpirySkew is how long before its expiry an access token is
// treated as expired.
const DefaultExpirySkew = 30 * time.Second

// Session holds one user's tokens and authorizes requests with them.
//
// When the access token is expired, or a request comes back 401, the
// Session refreshes. Concurrent callers share a single refresh round-trip:
// the first becomes the leader and performs it, the rest queue and all
// receive the leader's result. A new refresh starts only after the previous
// one resolved.
//
// A Session is safe for concurrent use. It does not coordinate with other
// processes holding the same refresh token.
type Session struct {
	client *Client
	store  TokenStore
	now    func() time.Time
	skew   time.Duration

	mu         sync.Mutex
	tokens     *Tokens
	refreshing bool
	waiters    []chan refreshResult
	// gen changes whenever the session is replaced or closed, so a refresh
	// started for an older session cannot write into a newer one.
	gen uint64
}

type refreshResult struct {
	tokens Tokens
	err    error
}

type SessionOption func(*Session)

// WithTokenStore persists tokens. Defaults to a MemoryStore.
func WithTokenStore(store TokenStore) SessionOption {
	return func(s *Session) { s.store = store }
}

// WithClock replaces time.Now for expiry decisions.
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// WithExpirySkew overrides DefaultExpirySkew.
func WithExpirySkew(d time.Duration) SessionOption {
	return func(s *Session) { s.skew = d }
}

// NewSession creates an empty session. Call Restore, Login or Register
// before making authenticated requests.
func (c *Client) NewSession(opts ...SessionOption) *Session {
	s := &Session{
		client: c,
		store:  NewMemoryStore(),
		now:    time.Now,
		skew:   DefaultExpirySkew,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Restore loads tokens from the store. It returns ErrNoSession when none
// are stored or the stored refresh token has expired.
func (s *Session) Restore(ctx context.Context) error {
	t, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	if t.RefreshExpired(s.now()) {
		_ = s.store.Clear(ctx)
		return ErrNoSession
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.setTokensLocked(&t)
	return nil
}

// Login authenticates and replaces any current tokens.
func (s *Session) Login(ctx context.Context, identifier, password string) error {
	resp, err := s.client.Login(ctx, identifier, password)
	if err != nil {
		return err
	}
	return s.adopt(ctx, resp)
}

// Register creates an account and starts a session for it.
func (s *Session) Register(ctx context.Context, req RegisterRequest) error {
	resp, err := s.client.Register(ctx, req)
	if err != nil {
		return err
	}
	return s.adopt(ctx, resp)
}

func (s *Session) adopt(ctx context.Context, resp *TokenResponse) error {
	t := TokensFromResponse(resp, s.now())

	s.mu.Lock()
	defer s.mu.Unlock()
	s.setTokensLocked(&t)
	if err := s.store.Save(ctx, t); err != nil {
		return fmt.Errorf("persist tokens: %w", err)
	}
	return nil
}

// setTokensLocked starts a new generation. Pending waiters of the old one
// are released with ErrSessionClosed.
func (s *Session) setTokensLocked(t *Tokens) {
	s.tokens = t
	s.gen++
	s.refreshing = false
	for _, w := range s.waiters {
		w <- refreshResult{err: ErrSessionClosed}
	}
	s.waiters = nil
}

// Tokens returns a copy of the current tokens.
func (s *Session) Tokens() (Tokens, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tokens == nil {
		return Tokens{}, false
	}
	return *s.tokens, true
}

func (s *Session) expired(t Tokens) bool {
	return !s.now().Before(t.AccessExpiresAt.Add(-s.skew))
}

// AuthorizeRequest sets the Authorization header on req, refreshing first
// when the access token has expired. Anonymous endpoints are left without
// the header and never refresh.
func (s *Session) AuthorizeRequest(ctx context.Context, req *http.Request) error {
	if IsAnonymous(req.URL.Path) {
		req.Header.Del("Authorization")
		return nil
	}

	token, err := s.accessToken(ctx)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// accessToken returns a usable access token, refreshing when needed.
func (s *Session) accessToken(ctx context.Context) (string, error) {
	s.mu.Lock()
	if s.tokens == nil {
		s.mu.Unlock()
		return "", ErrNoSession
	}
	t := *s.tokens
	s.mu.Unlock()

	if !s.expired(t) {
		return t.AccessToken, nil
	}
	fresh, err := s.refresh(ctx, t.AccessToken)
	if err != nil {
		return "", err
	}
	return fresh.AccessToken, nil
}

// Refresh forces a refresh, joining one already in flight.
func (s *Session) Refresh(ctx context.Context) (Tokens, error) {
	return s.refresh(ctx, "")
}

// refresh runs or joins a refresh cycle. stale is the access token the
// caller found unusable; if the session already moved past it the current
// tokens are returned without another round-trip.
func (s *Session) refresh(ctx context.Context, stale string) (Tokens, error) {
	s.mu.Lock()
	if s.tokens == nil {
		s.mu.Unlock()
		return Tokens{}, ErrNoSession
	}
	if stale != "" && s.tokens.AccessToken != stale && !s.expired(*s.tokens) {
		t := *s.tokens
		s.mu.Unlock()
		return t, nil
	}

	if s.refreshing {
		ch := make(chan refreshResult, 1)
		s.waiters = append(s.waiters, ch)
		s.mu.Unlock()

		select {
		case r := <-ch:
			return r.tokens, r.err
		case <-ctx.Done():
			return Tokens{}, ctx.Err()
		}
	}

	s.refreshing = true
	gen := s.gen
	current := *s.tokens
	s.mu.Unlock()

	res := s.exchange(ctx, current)
	return s.resolve(ctx, gen, res)
}

// exchange performs the refresh round-trip. The request ignores ctx
// cancellation: the presented refresh token is consumed by the server as
// soon as it arrives, so the response must be read.
func (s *Session) exchange(ctx context.Context, current Tokens) refreshResult {
	if current.RefreshExpired(s.now()) {
		return refreshResult{err: fmt.Errorf("%w: refresh token expired", ErrTerminalAuth)}
	}

	resp, err := s.client.Refresh(context.WithoutCancel(ctx), current.RefreshToken)
	if err != nil {
		return refreshResult{err: classifyRefreshError(err)}
	}
	return refreshResult{tokens: TokensFromResponse(resp, s.now())}
}

// classifyRefreshError separates failures worth retrying from authoritative
// rejections of the refresh token.
func classifyRefreshError(err error) error {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %w", ErrTransientNetwork, err)
	}
	switch {
	case apiErr.StatusCode >= 500, apiErr.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", ErrTransientNetwork, apiErr)
	default:
		return fmt.Errorf("%w: %w", ErrTerminalAuth, apiErr)
	}
}

// resolve publishes the leader's result to the session, the store and every
// waiter of the cycle.
func (s *Session) resolve(ctx context.Context, gen uint64, res refreshResult) (Tokens, error) {
	s.mu.Lock()
	if gen != s.gen {
		// Logged out or replaced while the round-trip was in flight. The
		// service already issued the successor, so revoke it rather than
		// leave a live refresh token nobody holds.
		s.mu.Unlock()
		if res.err == nil {
			_ = s.client.RevokeRefreshToken(context.WithoutCancel(ctx), res.tokens.RefreshToken)
		}
		return Tokens{}, ErrSessionClosed
	}

	switch {
	case res.err == nil:
		t := res.tokens
		s.tokens = &t
		if err := s.store.Save(ctx, t); err != nil {
			res.err = fmt.Errorf("persist tokens: %w", err)
		}
	case errors.Is(res.err, ErrTerminalAuth):
		s.tokens = nil
		s.gen++
		_ = s.store.Clear(ctx)
	}

	waiters := s.waiters
	s.waiters = nil
	s.refreshing = false
	s.mu.Unlock()

	for _, w := range waiters {
		w <- res
	}
	return res.tokens, res.err
}

// Do sends req with the session's access token. On a 401 from a
// non-anonymous endpoint it refreshes (or joins the refresh in flight) and
// retries once; a second 401 ends the session with ErrTerminalAuth.
//
// The request body is buffered when it cannot be replayed via GetBody.
func (s *Session) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	req = req.WithContext(ctx)

	if IsAnonymous(req.URL.Path) {
		req.Header.Del("Authorization")
		return s.client.HTTPClient.Do(req)
	}

	if err := makeReplayable(req); err != nil {
		return nil, err
	}

	token, err := s.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := s.send(req, token)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}
	drain(resp)

	fresh, err := s.refresh(ctx, token)
	if err != nil {
		return nil, err
	}

	resp, err = s.send(req, fresh.AccessToken)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		s.clear(ctx)
		return nil, fmt.Errorf("%w: %w", ErrTerminalAuth, parseErrorResponse(resp, body))
	}
	return resp, nil
}

func (s *Session) send(req *http.Request, token string) (*http.Response, error) {
	out := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("rewind request body: %w", err)
		}
		out.Body = body
	}
	out.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.client.HTTPClient.Do(out)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return resp, nil
}

func makeReplayable(req *http.Request) error {
	if req.Body == nil || req.Body == http.NoBody || req.GetBody != nil {
		return nil
	}
	buf, err := io.ReadAll(req.Body)
	_ = req.Body.Close()
	if err != nil {
		return fmt.Errorf("buffer request body: %w", err)
	}
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(buf)), nil
	}
	req.Body, _ = req.GetBody()
	return nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

// clear drops the tokens and releases waiters with ErrSessionClosed.
func (s *Session) clear(ctx context.Context) *Tokens {
	s.mu.Lock()
	defer s.mu.Unlock()

	old := s.tokens
	s.setTokensLocked(nil)
	_ = s.store.Clear(ctx)
	return old
}

// Logout ends the session locally and asks the service to revoke the
// account's refresh tokens. Local state is cleared and waiters are released
// with ErrSessionClosed even when the service cannot be reached; the
// returned error only reports the remote revocation.
func (s *Session) Logout(ctx context.Context) error {
	old := s.clear(ctx)
	if old == nil {
		return nil
	}

	if !s.expired(*old) {
		req, err := s.client.newJSONRequest(ctx, http.MethodPost, PathRevokeRefreshToken, nil)
		if err != nil {
			return err
		}
		resp, err := s.send(req, old.AccessToken)
		if err == nil {
			if err = decodeJSON(resp, nil, http.StatusOK); err == nil {
				return nil
			}
		}
	}

	// The access token is unusable; revoke at least this device's token.
	return s.client.RevokeRefreshToken(ctx, old.RefreshToken)
}

// doJSON sends an authenticated JSON request through Do.
func (s *Session) doJSON(ctx context.Context, method, path string, body, target any, expectedStatus int) error {
	req, err := s.client.newJSONRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	resp, err := s.Do(ctx, req)
	if err != nil {
		return err
	}
	return decodeJSON(resp, target, expectedStatus)
}
