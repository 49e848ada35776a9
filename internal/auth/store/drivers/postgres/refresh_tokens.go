package postgres

import (
	"context"
	"time"

	"github.com/aussiebroadwan/habitauth/internal/auth/domain"
)

type refreshTokensRepo struct {
	db dbtx
}

type refreshTokenRow struct {
	ID         string     `db:"id"`
	UserID     string     `db:"user_id"`
	TokenHash  string     `db:"token_hash"`
	CreatedAt  time.Time  `db:"created_at"`
	ExpiresAt  time.Time  `db:"expires_at"`
	Revoked    bool       `db:"revoked"`
	RevokedAt  *time.Time `db:"revoked_at"`
	ReplacedBy *string    `db:"replaced_by"`
}

func (r refreshTokenRow) domain() domain.RefreshToken {
	t := domain.RefreshToken{
		ID:        r.ID,
		UserID:    r.UserID,
		TokenHash: r.TokenHash,
		CreatedAt: r.CreatedAt.UTC(),
		ExpiresAt: r.ExpiresAt.UTC(),
		Revoked:   r.Revoked,
	}
	if r.RevokedAt != nil {
		at := r.RevokedAt.UTC()
		t.RevokedAt = &at
	}
	if r.ReplacedBy != nil {
		t.ReplacedBy = *r.ReplacedBy
	}
	return t
}

const refreshTokenColumns = `id, user_id, token_hash, created_at, expires_at, revoked, revoked_at, replaced_by`

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	var replacedBy *string
	if t.ReplacedBy != "" {
		replacedBy = &t.ReplacedBy
	}
	_, err := exec(ctx, r.db,
		`INSERT INTO refresh_tokens (`+refreshTokenColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.ID, t.UserID, t.TokenHash, t.CreatedAt, t.ExpiresAt, t.Revoked, t.RevokedAt, replacedBy)
	return err
}

func (r *refreshTokensRepo) GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error) {
	var row refreshTokenRow
	if err := get(ctx, r.db, &row,
		`SELECT `+refreshTokenColumns+` FROM refresh_tokens WHERE token_hash = $1`, hash); err != nil {
		return domain.RefreshToken{}, err
	}
	return row.domain(), nil
}

// ConsumeRefreshToken relies on row locking: a second UPDATE on the same row
// waits for the first to commit, then re-checks revoked and matches nothing.
func (r *refreshTokensRepo) ConsumeRefreshToken(ctx context.Context, hash string, now time.Time) (domain.RefreshToken, error) {
	var row refreshTokenRow
	if err := get(ctx, r.db, &row, `
		UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $1
		WHERE token_hash = $2 AND NOT revoked AND expires_at > $1
		RETURNING `+refreshTokenColumns, now, hash); err != nil {
		return domain.RefreshToken{}, err
	}
	return row.domain(), nil
}

func (r *refreshTokensRepo) SetReplacedBy(ctx context.Context, id, replacedBy string) error {
	_, err := exec(ctx, r.db, `UPDATE refresh_tokens SET replaced_by = $1 WHERE id = $2`, replacedBy, id)
	return err
}

func (r *refreshTokensRepo) RevokeRefreshToken(ctx context.Context, hash string, now time.Time) error {
	_, err := exec(ctx, r.db,
		`UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $1 WHERE token_hash = $2 AND NOT revoked`, now, hash)
	return err
}

func (r *refreshTokensRepo) RevokeAllForUser(ctx context.Context, userID string, now time.Time) (int64, error) {
	return exec(ctx, r.db, `
		UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $1
		WHERE user_id = $2 AND NOT revoked AND expires_at > $1`, now, userID)
}

func (r *refreshTokensRepo) DeleteRefreshTokensBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return exec(ctx, r.db,
		`DELETE FROM refresh_tokens WHERE revoked AND expires_at < $1`, cutoff)
}
