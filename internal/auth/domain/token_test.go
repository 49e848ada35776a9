package domain_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/habitauth/internal/auth/domain"
	"github.com/stretchr/testify/require"
)

func TestRefreshToken_Usable(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	live := domain.RefreshToken{ExpiresAt: now.Add(time.Hour)}
	require.True(t, live.Usable(now))

	expired := domain.RefreshToken{ExpiresAt: now.Add(-time.Second)}
	require.False(t, expired.Usable(now))

	atBoundary := domain.RefreshToken{ExpiresAt: now}
	require.False(t, atBoundary.Usable(now))

	revoked := domain.RefreshToken{ExpiresAt: now.Add(time.Hour), Revoked: true}
	require.False(t, revoked.Usable(now))
}

func TestRefreshToken_RotatedWithin(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	at := now.Add(-10 * time.Minute)

	rotated := domain.RefreshToken{Revoked: true, RevokedAt: &at, ReplacedBy: "next"}
	require.True(t, rotated.RotatedWithin(now, time.Hour))
	require.False(t, rotated.RotatedWithin(now, 5*time.Minute))
	require.False(t, rotated.RotatedWithin(now, 0), "zero window disables detection")

	loggedOut := domain.RefreshToken{Revoked: true, RevokedAt: &at}
	require.False(t, loggedOut.RotatedWithin(now, time.Hour))

	live := domain.RefreshToken{}
	require.False(t, live.RotatedWithin(now, time.Hour))
}
