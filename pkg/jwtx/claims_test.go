package jwtx_test

import (
	"testing"
	"time"

	"github.com/aussiebroadwan/habitauth/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const exampleIssuer = "https://auth.habit.test"

func TestNewAccessClaims(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	p := jwtx.Principal{ID: "01HQ7T3Z1MZ0JQ3M6MZQ1FQ3ZV", Name: "sam", Email: "sam@example.com", Roles: []string{"user"}}

	c := jwtx.NewAccessClaims(p, exampleIssuer, []string{"habit-api"}, 15*time.Minute, now)

	require.Equal(t, p.ID, c.Subject)
	require.Equal(t, "sam", c.Name)
	require.Equal(t, "sam@example.com", c.Email)
	require.Equal(t, []string{"user"}, c.Roles)
	require.Equal(t, now.Add(15*time.Minute), c.ExpiresAt.Time)
	require.NotEmpty(t, c.ID)

	// Roles are copied so later mutation does not leak into issued claims.
	p.Roles[0] = "admin"
	require.Equal(t, []string{"user"}, c.Roles)
}

func TestValidateIssuer(t *testing.T) {
	c := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{Issuer: "auth-service"}}

	require.NoError(t, c.ValidateIssuer("auth-service"))
	require.NoError(t, c.ValidateIssuer(""))
	require.ErrorIs(t, c.ValidateIssuer("other"), jwtx.ErrIssuer)
}

func TestValidateAudience(t *testing.T) {
	c := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{Audience: []string{"habit-api", "habit-web"}}}

	require.NoError(t, c.ValidateAudience([]string{"habit-api"}))
	require.NoError(t, c.ValidateAudience([]string{"foo", "habit-web"}))
	require.NoError(t, c.ValidateAudience(nil))
	require.ErrorIs(t, c.ValidateAudience([]string{"admin"}), jwtx.ErrAudience)
}

func TestValidateTime(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		exp     *jwt.NumericDate
		nbf     *jwt.NumericDate
		leeway  time.Duration
		wantErr error
	}{
		{"valid", jwt.NewNumericDate(now.Add(time.Minute)), nil, 0, nil},
		{"expired", jwt.NewNumericDate(now.Add(-time.Minute)), nil, 0, jwtx.ErrExpired},
		{"expired within leeway", jwt.NewNumericDate(now.Add(-time.Second)), nil, 5 * time.Second, nil},
		{"not yet valid", jwt.NewNumericDate(now.Add(time.Hour)), jwt.NewNumericDate(now.Add(time.Minute)), 0, jwtx.ErrNotYetValid},
		{"missing exp", nil, nil, 0, jwtx.ErrInvalidClaim},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &jwtx.Claims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: tt.exp, NotBefore: tt.nbf}}
			err := c.ValidateTime(now, tt.leeway)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}
