package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/aussiebroadwan/habitauth/internal/auth/domain"
	"github.com/aussiebroadwan/habitauth/internal/auth/store"
	"github.com/aussiebroadwan/habitauth/internal/auth/store/drivers/sqlite"
	"github.com/aussiebroadwan/habitauth/pkg/idx"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.NewStore(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())
	return s
}

func seedUser(t *testing.T, s store.Store, username string) domain.User {
	t.Helper()
	u := domain.User{
		ID:           idx.New().String(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "$argon2id$placeholder",
		CreatedAt:    epoch,
		UpdatedAt:    epoch,
	}
	require.NoError(t, s.Users().CreateUser(context.Background(), u))
	return u
}

func seedRefresh(t *testing.T, s store.Store, userID, hash string, expires time.Time) domain.RefreshToken {
	t.Helper()
	rt := domain.RefreshToken{
		ID:        idx.New().String(),
		UserID:    userID,
		TokenHash: hash,
		CreatedAt: epoch,
		ExpiresAt: expires,
	}
	require.NoError(t, s.RefreshTokens().CreateRefreshToken(context.Background(), rt))
	return rt
}

func TestApplyMigrationsIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.ApplyMigrations())

	for _, name := range []string{domain.RoleUser, domain.RoleAdmin} {
		role, err := s.Roles().GetRoleByName(context.Background(), name)
		require.NoError(t, err)
		require.Equal(t, name, role.Name)
	}
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u := seedUser(t, s, "alice")

	byName, err := s.Users().GetUserByUsername(ctx, "ALICE")
	require.NoError(t, err)
	require.Equal(t, u.ID, byName.ID)
	require.True(t, byName.CreatedAt.Equal(epoch))

	byEmail, err := s.Users().GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, byEmail.ID)

	_, err = s.Users().GetUserByID(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)

	dup := u
	dup.ID = idx.New().String()
	require.ErrorIs(t, s.Users().CreateUser(ctx, dup), store.ErrAlreadyExists)

	require.NoError(t, s.Users().UpdatePasswordHash(ctx, u.ID, "new-hash", epoch.Add(time.Hour)))
	got, err := s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "new-hash", got.PasswordHash)
	require.True(t, got.UpdatedAt.Equal(epoch.Add(time.Hour)))

	require.ErrorIs(t, s.Users().UpdatePasswordHash(ctx, "missing", "x", epoch), store.ErrNotFound)
}

func TestRoles(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u := seedUser(t, s, "bob")

	user, err := s.Roles().GetRoleByName(ctx, domain.RoleUser)
	require.NoError(t, err)
	admin, err := s.Roles().GetRoleByName(ctx, domain.RoleAdmin)
	require.NoError(t, err)

	require.NoError(t, s.Roles().AssignRole(ctx, u.ID, user.ID))
	require.NoError(t, s.Roles().AssignRole(ctx, u.ID, admin.ID))
	require.NoError(t, s.Roles().AssignRole(ctx, u.ID, admin.ID))

	roles, err := s.Roles().ListUserRoles(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"admin", "user"}, roles)

	_, err = s.Roles().GetRoleByName(ctx, "nope")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestConsumeRefreshTokenOnce(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u := seedUser(t, s, "carol")
	rt := seedRefresh(t, s, u.ID, "hash-1", epoch.Add(time.Hour))

	got, err := s.RefreshTokens().ConsumeRefreshToken(ctx, "hash-1", epoch)
	require.NoError(t, err)
	require.Equal(t, rt.ID, got.ID)
	require.True(t, got.Revoked)
	require.NotNil(t, got.RevokedAt)
	require.True(t, got.RevokedAt.Equal(epoch))

	_, err = s.RefreshTokens().ConsumeRefreshToken(ctx, "hash-1", epoch)
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.RefreshTokens().SetReplacedBy(ctx, rt.ID, "next"))
	stored, err := s.RefreshTokens().GetRefreshTokenByHash(ctx, "hash-1")
	require.NoError(t, err)
	require.Equal(t, "next", stored.ReplacedBy)
	require.False(t, stored.Usable(epoch))
}

func TestConsumeRefreshTokenExpired(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u := seedUser(t, s, "dave")
	seedRefresh(t, s, u.ID, "hash-exp", epoch.Add(time.Minute))

	_, err := s.RefreshTokens().ConsumeRefreshToken(ctx, "hash-exp", epoch.Add(time.Minute))
	require.ErrorIs(t, err, store.ErrNotFound)

	stored, err := s.RefreshTokens().GetRefreshTokenByHash(ctx, "hash-exp")
	require.NoError(t, err)
	require.False(t, stored.Revoked)
}

func TestConsumeRefreshTokenConcurrent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u := seedUser(t, s, "erin")
	seedRefresh(t, s, u.ID, "hash-race", epoch.Add(time.Hour))

	const workers = 16
	var (
		wins  atomic.Int32
		start = make(chan struct{})
		g     errgroup.Group
	)
	for range workers {
		g.Go(func() error {
			<-start
			return s.WithTx(ctx, func(tx store.Tx) error {
				_, err := tx.RefreshTokens().ConsumeRefreshToken(ctx, "hash-race", epoch)
				if errors.Is(err, store.ErrNotFound) {
					return nil
				}
				if err != nil {
					return err
				}
				wins.Add(1)
				return nil
			})
		})
	}
	close(start)
	require.NoError(t, g.Wait())
	require.Equal(t, int32(1), wins.Load())
}

func TestRevokeAllForUser(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u := seedUser(t, s, "frank")
	other := seedUser(t, s, "grace")

	seedRefresh(t, s, u.ID, "a", epoch.Add(time.Hour))
	seedRefresh(t, s, u.ID, "b", epoch.Add(time.Hour))
	seedRefresh(t, s, u.ID, "expired", epoch.Add(-time.Hour))
	seedRefresh(t, s, other.ID, "c", epoch.Add(time.Hour))
	require.NoError(t, s.RefreshTokens().RevokeRefreshToken(ctx, "b", epoch))

	n, err := s.RefreshTokens().RevokeAllForUser(ctx, u.ID, epoch)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	n, err = s.RefreshTokens().RevokeAllForUser(ctx, u.ID, epoch)
	require.NoError(t, err)
	require.Zero(t, n)

	c, err := s.RefreshTokens().GetRefreshTokenByHash(ctx, "c")
	require.NoError(t, err)
	require.False(t, c.Revoked)
}

func TestRevokeRefreshTokenIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u := seedUser(t, s, "heidi")
	seedRefresh(t, s, u.ID, "h", epoch.Add(time.Hour))

	require.NoError(t, s.RefreshTokens().RevokeRefreshToken(ctx, "h", epoch))
	require.NoError(t, s.RefreshTokens().RevokeRefreshToken(ctx, "h", epoch.Add(time.Minute)))
	require.NoError(t, s.RefreshTokens().RevokeRefreshToken(ctx, "unknown", epoch))

	got, err := s.RefreshTokens().GetRefreshTokenByHash(ctx, "h")
	require.NoError(t, err)
	require.True(t, got.RevokedAt.Equal(epoch))
}

func TestDeleteRefreshTokensBefore(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u := seedUser(t, s, "ivan")
	seedRefresh(t, s, u.ID, "dead", epoch.Add(-48*time.Hour))
	seedRefresh(t, s, u.ID, "expired", epoch.Add(-48*time.Hour))
	seedRefresh(t, s, u.ID, "logged-out", epoch.Add(48*time.Hour))
	seedRefresh(t, s, u.ID, "live", epoch.Add(48*time.Hour))

	revokedAt := epoch.Add(-72 * time.Hour)
	require.NoError(t, s.RefreshTokens().RevokeRefreshToken(ctx, "dead", revokedAt))
	require.NoError(t, s.RefreshTokens().RevokeRefreshToken(ctx, "logged-out", revokedAt))

	n, err := s.RefreshTokens().DeleteRefreshTokensBefore(ctx, epoch)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	_, err = s.RefreshTokens().GetRefreshTokenByHash(ctx, "dead")
	require.ErrorIs(t, err, store.ErrNotFound)

	for _, hash := range []string{"expired", "logged-out", "live"} {
		_, err = s.RefreshTokens().GetRefreshTokenByHash(ctx, hash)
		require.NoError(t, err, hash)
	}
}

func TestPasswordResets(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	u := seedUser(t, s, "judy")

	require.NoError(t, s.PasswordResets().CreatePasswordReset(ctx, domain.PasswordReset{
		ID:        idx.New().String(),
		UserID:    u.ID,
		TokenHash: "reset",
		CreatedAt: epoch,
		ExpiresAt: epoch.Add(30 * time.Minute),
	}))

	got, err := s.PasswordResets().ConsumePasswordReset(ctx, "reset", epoch)
	require.NoError(t, err)
	require.Equal(t, u.ID, got.UserID)
	require.NotNil(t, got.UsedAt)

	_, err = s.PasswordResets().ConsumePasswordReset(ctx, "reset", epoch)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSigningKeys(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for i, kid := range []string{"k1", "k2"} {
		require.NoError(t, s.SigningKeys().CreateSigningKey(ctx, domain.SigningKey{
			ID:                idx.New().String(),
			Kid:               kid,
			Algorithm:         "EdDSA",
			MaterialEncrypted: []byte{byte(i)},
			CreatedAt:         epoch.Add(time.Duration(i) * time.Minute),
		}))
	}

	keys, err := s.SigningKeys().ListSigningKeys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 2)
	require.Equal(t, "k2", keys[0].Kid)

	require.NoError(t, s.SigningKeys().RetireSigningKey(ctx, "k1", epoch))
	require.ErrorIs(t, s.SigningKeys().RetireSigningKey(ctx, "k1", epoch), store.ErrNotFound)

	adapter := store.NewKeyStoreAdapter(s)
	records, err := adapter.ListSigningKeys(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.NotNil(t, records[1].RetiredAt)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx store.Tx) error {
		seedUser(t, tx, "mallory")
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.Users().GetUserByUsername(ctx, "mallory")
	require.ErrorIs(t, err, store.ErrNotFound)
}
