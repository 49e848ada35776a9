package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/aussiebroadwan/habitauth/internal/auth/domain"
	"github.com/aussiebroadwan/habitauth/internal/auth/throttle"
	"github.com/aussiebroadwan/habitauth/pkg/idx"
)

func TestRegisterIssuesSession(t *testing.T) {
	f := newFixture(t)
	pair := f.register(t, "alice")

	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.Equal(t, f.clock.Now().Add(15*time.Minute), pair.ExpiresAt)

	claims, err := f.keys.Verifier.Verify(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "alice", claims.Name)
	require.Equal(t, "alice@example.com", claims.Email)
	require.Equal(t, []string{domain.RoleUser}, claims.Roles)

	roles, err := f.store.Roles().ListUserRoles(context.Background(), claims.Subject)
	require.NoError(t, err)
	require.Equal(t, []string{domain.RoleUser}, roles)
}

func TestRegisterDuplicate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "bob")

	_, err := f.users.Register(ctx, RegisterInput{Username: "BOB", Email: "other@example.com", Password: testPassword})
	require.ErrorIs(t, err, domain.ErrDuplicateIdentity)

	_, err = f.users.Register(ctx, RegisterInput{Username: "bobby", Email: "Bob@Example.com", Password: testPassword})
	require.ErrorIs(t, err, domain.ErrDuplicateIdentity)
}

func TestRegisterValidation(t *testing.T) {
	f := newFixture(t)

	cases := map[string]RegisterInput{
		"short username": {Username: "ab", Email: "ab@example.com", Password: testPassword},
		"bad username":   {Username: "no spaces", Email: "ns@example.com", Password: testPassword},
		"bad email":      {Username: "carol", Email: "carol", Password: testPassword},
		"short password": {Username: "carol", Email: "carol@example.com", Password: "short"},
		"admin role":     {Username: "carol", Email: "carol@example.com", Password: testPassword, Role: domain.RoleAdmin},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.users.Register(context.Background(), in)
			require.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "dave")

	byName, err := f.users.Login(ctx, "dave", testPassword, "10.0.0.1")
	require.NoError(t, err)
	byEmail, err := f.users.Login(ctx, "DAVE@example.com", testPassword, "10.0.0.1")
	require.NoError(t, err)
	require.NotEqual(t, byName.RefreshToken, byEmail.RefreshToken)

	_, err = f.users.Login(ctx, "dave", "wrong password", "")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = f.users.Login(ctx, "nobody", testPassword, "")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = f.users.Login(ctx, "  ", testPassword, "")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestLoginUpgradesLegacyHash(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	legacy, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	now := f.clock.Now()
	user := domain.User{
		ID:           idx.NewAt(now).String(),
		Username:     "erin",
		Email:        "erin@example.com",
		PasswordHash: string(legacy),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, f.store.Users().CreateUser(ctx, user))

	_, err = f.users.Login(ctx, "erin", testPassword, "")
	require.NoError(t, err)

	stored, err := f.store.Users().GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.Contains(t, stored.PasswordHash, "$argon2id$")

	_, err = f.users.Login(ctx, "erin", testPassword, "")
	require.NoError(t, err)
}

func TestLoginThrottle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "frank")

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	f.users.Throttle = throttle.NewLoginLimiter(client, throttle.Config{MaxAttempts: 3, Cooldown: time.Minute})

	for range 3 {
		_, err := f.users.Login(ctx, "frank", "wrong password", "")
		require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	}
	_, err := f.users.Login(ctx, "frank", testPassword, "")
	require.ErrorIs(t, err, domain.ErrRateLimited)

	mr.FastForward(2 * time.Minute)
	_, err = f.users.Login(ctx, "frank", testPassword, "")
	require.NoError(t, err)
}
