package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/aussiebroadwan/habitauth/internal/auth/domain"
	"github.com/aussiebroadwan/habitauth/internal/auth/metrics"
	"github.com/aussiebroadwan/habitauth/pkg/cryptox"
	"github.com/aussiebroadwan/habitauth/pkg/jwtx"
)

func TestIssueAccessCredential(t *testing.T) {
	f := newFixture(t)
	now := f.clock.Now()

	token, exp, err := f.tokens.IssueAccessCredential(domain.Principal{
		ID:       "01HZY0000000000000000000AA",
		Username: "alice",
		Email:    "alice@example.com",
		Roles:    []string{"user"},
	})
	require.NoError(t, err)
	require.Equal(t, now.Add(15*time.Minute), exp)

	claims, err := f.keys.Verifier.Verify(token)
	require.NoError(t, err)
	require.Equal(t, "01HZY0000000000000000000AA", claims.Subject)
	require.Equal(t, "alice", claims.Name)
	require.Equal(t, []string{"user"}, claims.Roles)
	require.NotEmpty(t, claims.ID)
	require.Equal(t, testAudience, []string(claims.Audience))

	f.clock.Advance(16 * time.Minute)
	_, err = f.keys.Verifier.Verify(token)
	require.ErrorIs(t, err, jwtx.ErrExpired)
}

func TestIssueAccessCredentialWithoutSigner(t *testing.T) {
	f := newFixture(t)
	signer, err := f.keys.CurrentSigner()
	require.NoError(t, err)
	require.NoError(t, f.keys.RetireSigner(signer.KID()))

	_, _, err = f.tokens.IssueAccessCredential(domain.Principal{ID: "x"})
	require.ErrorIs(t, err, domain.ErrSigningUnavailable)
}

func TestIssueRefreshCredential(t *testing.T) {
	f := newFixture(t)
	a, err := f.tokens.IssueRefreshCredential()
	require.NoError(t, err)
	b, err := f.tokens.IssueRefreshCredential()
	require.NoError(t, err)

	require.NotEqual(t, a, b)
	require.True(t, cryptox.WellFormedToken(a, cryptox.TokenSize512))
}

func TestRotateIsSingleUse(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	first := f.register(t, "alice")

	second, err := f.tokens.Rotate(ctx, first.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)
	require.Equal(t, "Bearer", second.TokenType)
	require.Equal(t, f.clock.Now().Add(7*24*time.Hour), second.RefreshExpiresAt)

	claims, err := f.keys.Verifier.Verify(second.AccessToken)
	require.NoError(t, err)
	require.Equal(t, []string{"user"}, claims.Roles)

	_, err = f.tokens.Rotate(ctx, first.RefreshToken)
	require.ErrorIs(t, err, domain.ErrRefreshExpiredOrRevoked)

	stored, err := f.store.RefreshTokens().GetRefreshTokenByHash(ctx, cryptox.FingerprintToken(first.RefreshToken))
	require.NoError(t, err)
	require.True(t, stored.Revoked)
	require.NotEmpty(t, stored.ReplacedBy)
}

func TestRotateReplayRevokesFamily(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	first := f.register(t, "bob")

	second, err := f.tokens.Rotate(ctx, first.RefreshToken)
	require.NoError(t, err)

	f.clock.Advance(10 * time.Minute)
	_, err = f.tokens.Rotate(ctx, first.RefreshToken)
	require.ErrorIs(t, err, domain.ErrRefreshExpiredOrRevoked)

	_, err = f.tokens.Rotate(ctx, second.RefreshToken)
	require.ErrorIs(t, err, domain.ErrRefreshExpiredOrRevoked)

	require.Equal(t, 1.0, counterValue(t, f.metrics, "habitauth_refresh_replay_detected_total", ""))
}

func TestRotateReplayOutsideWindow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	first := f.register(t, "carol")

	second, err := f.tokens.Rotate(ctx, first.RefreshToken)
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)
	_, err = f.tokens.Rotate(ctx, first.RefreshToken)
	require.ErrorIs(t, err, domain.ErrRefreshExpiredOrRevoked)

	_, err = f.tokens.Rotate(ctx, second.RefreshToken)
	require.NoError(t, err)
}

func TestRotateReplayDisabled(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.tokens.ReplayWindow = 0
	first := f.register(t, "dave")

	second, err := f.tokens.Rotate(ctx, first.RefreshToken)
	require.NoError(t, err)
	_, err = f.tokens.Rotate(ctx, first.RefreshToken)
	require.ErrorIs(t, err, domain.ErrRefreshExpiredOrRevoked)

	_, err = f.tokens.Rotate(ctx, second.RefreshToken)
	require.NoError(t, err)
}

func TestRotateLoggedOutTokenIsNotReplay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	first := f.register(t, "erin")
	other, err := f.users.Login(ctx, "erin", testPassword, "")
	require.NoError(t, err)

	require.NoError(t, f.tokens.RevokeOne(ctx, first.RefreshToken))
	_, err = f.tokens.Rotate(ctx, first.RefreshToken)
	require.ErrorIs(t, err, domain.ErrRefreshExpiredOrRevoked)

	_, err = f.tokens.Rotate(ctx, other.RefreshToken)
	require.NoError(t, err)
}

func TestRotateExpired(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	pair := f.register(t, "frank")

	f.clock.Advance(jwtx.DefaultRefreshTokenTTL)
	_, err := f.tokens.Rotate(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, domain.ErrRefreshExpiredOrRevoked)
}

func TestRotateMalformedAndUnknown(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for _, presented := range []string{"", "not base64url!", "c2hvcnQ", " "} {
		_, err := f.tokens.Rotate(ctx, presented)
		require.ErrorIs(t, err, domain.ErrMalformedRefreshToken, "presented %q", presented)
	}

	unknown, err := cryptox.GenerateToken(cryptox.TokenSize512)
	require.NoError(t, err)
	_, err = f.tokens.Rotate(ctx, unknown)
	require.ErrorIs(t, err, domain.ErrRefreshNotFound)
}

func TestRotateConcurrentCallersHaveOneWinner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	pair := f.register(t, "grace")

	const callers = 10
	var (
		wins   atomic.Int32
		losses atomic.Int32
		winner atomic.Pointer[domain.TokenPair]
		start  = make(chan struct{})
		g      errgroup.Group
	)
	for range callers {
		g.Go(func() error {
			<-start
			next, err := f.tokens.Rotate(ctx, pair.RefreshToken)
			switch {
			case err == nil:
				wins.Add(1)
				winner.Store(&next)
			case errors.Is(err, domain.ErrRefreshExpiredOrRevoked):
				losses.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	close(start)
	require.NoError(t, g.Wait())

	require.Equal(t, int32(1), wins.Load())
	require.Equal(t, int32(callers-1), losses.Load())
	require.Equal(t, 1.0, counterValue(t, f.metrics, "habitauth_refresh_rotations_total", metrics.OutcomeSuccess))

	// A loser presents a token that was rotated moments ago, which is
	// indistinguishable from theft: the winner's successor is revoked too.
	require.NotNil(t, winner.Load())
	rec, err := f.store.RefreshTokens().GetRefreshTokenByHash(ctx, cryptox.FingerprintToken(winner.Load().RefreshToken))
	require.NoError(t, err)
	require.True(t, rec.Revoked)
	require.GreaterOrEqual(t, counterValue(t, f.metrics, "habitauth_refresh_replay_detected_total", ""), 1.0)

	_, err = f.tokens.Rotate(ctx, winner.Load().RefreshToken)
	require.ErrorIs(t, err, domain.ErrRefreshExpiredOrRevoked)
}

func TestRevokeAllIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	pair := f.register(t, "heidi")
	_, err := f.users.Login(ctx, "heidi", testPassword, "")
	require.NoError(t, err)

	claims, err := f.keys.Verifier.Verify(pair.AccessToken)
	require.NoError(t, err)

	n, err := f.tokens.RevokeAll(ctx, claims.Subject)
	require.NoError(t, err)
	require.Equal(t, int64(2), n)

	n, err = f.tokens.RevokeAll(ctx, claims.Subject)
	require.NoError(t, err)
	require.Zero(t, n)

	_, err = f.tokens.Rotate(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, domain.ErrRefreshExpiredOrRevoked)
}

func TestRevokeOne(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	pair := f.register(t, "ivan")

	require.NoError(t, f.tokens.RevokeOne(ctx, pair.RefreshToken))
	require.NoError(t, f.tokens.RevokeOne(ctx, pair.RefreshToken))
	require.ErrorIs(t, f.tokens.RevokeOne(ctx, "bogus"), domain.ErrMalformedRefreshToken)
}
