package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/habitauth/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface implemented by the sqlite and
// postgres drivers. Sub-repositories are reached through methods so a Tx can
// hand out the same repositories bound to the transaction.
type Store interface {
	Users() Users
	Roles() Roles
	RefreshTokens() RefreshTokens
	PasswordResets() PasswordResets
	SigningKeys() SigningKeys

	ApplyMigrations() error

	// WithTx runs fn in a read/write transaction. It commits when fn returns
	// nil and rolls back otherwise. Nested transactions are not supported.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error
	Ping(ctx context.Context) error
}

// Tx is a Store bound to an open transaction.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	GetUserByID(ctx context.Context, id string) (domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// CreateUser returns ErrAlreadyExists when the username or email is taken.
	CreateUser(ctx context.Context, u domain.User) error

	UpdatePasswordHash(ctx context.Context, userID, hash string, now time.Time) error
}

type Roles interface {
	GetRoleByName(ctx context.Context, name string) (domain.Role, error)
	CreateRole(ctx context.Context, r domain.Role) error
	AssignRole(ctx context.Context, userID, roleID string) error

	// ListUserRoles returns role names sorted by name.
	ListUserRoles(ctx context.Context, userID string) ([]string, error)
}

type RefreshTokens interface {
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error
	GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// ConsumeRefreshToken atomically flips revoked on the record with hash,
	// provided it is unrevoked and unexpired at now, and returns it. Any
	// other state yields ErrNotFound so concurrent consumers of the same
	// hash see exactly one success.
	ConsumeRefreshToken(ctx context.Context, hash string, now time.Time) (domain.RefreshToken, error)

	// SetReplacedBy links a consumed record to its successor.
	SetReplacedBy(ctx context.Context, id, replacedBy string) error

	// RevokeRefreshToken revokes a single record. Revoking an already
	// revoked or unknown hash is not an error.
	RevokeRefreshToken(ctx context.Context, hash string, now time.Time) error

	// RevokeAllForUser revokes every live record of the user and returns
	// how many changed.
	RevokeAllForUser(ctx context.Context, userID string, now time.Time) (int64, error)

	// DeleteRefreshTokensBefore purges records that are revoked and expired
	// before cutoff. Live and revoked-but-unexpired records are kept so a
	// presented token is never reported as unknown while it could still be
	// valid or replayed.
	DeleteRefreshTokensBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type PasswordResets interface {
	CreatePasswordReset(ctx context.Context, r domain.PasswordReset) error

	// ConsumePasswordReset marks an unused, unexpired reset as used and
	// returns it, or ErrNotFound.
	ConsumePasswordReset(ctx context.Context, hash string, now time.Time) (domain.PasswordReset, error)

	DeletePasswordResetsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type SigningKeys interface {
	CreateSigningKey(ctx context.Context, key domain.SigningKey) error

	// ListSigningKeys returns all keys, newest first.
	ListSigningKeys(ctx context.Context) ([]domain.SigningKey, error)

	RetireSigningKey(ctx context.Context, kid string, now time.Time) error
}
