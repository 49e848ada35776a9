package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/habitauth/internal/auth/domain"
)

type refreshTokensRepo struct {
	db dbtx
}

const refreshTokenColumns = `id, user_id, token_hash, created_at, expires_at, revoked, revoked_at, replaced_by`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRefreshToken(row rowScanner) (domain.RefreshToken, error) {
	var (
		t                  domain.RefreshToken
		created, expiresAt int64
		revokedAt          sql.NullInt64
		replacedBy         sql.NullString
	)
	if err := row.Scan(&t.ID, &t.UserID, &t.TokenHash, &created, &expiresAt, &t.Revoked, &revokedAt, &replacedBy); err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}
	t.CreatedAt = fromMillis(created)
	t.ExpiresAt = fromMillis(expiresAt)
	t.RevokedAt = fromNullMillis(revokedAt)
	t.ReplacedBy = replacedBy.String
	return t, nil
}

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens (`+refreshTokenColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.TokenHash, toMillis(t.CreatedAt), toMillis(t.ExpiresAt),
		t.Revoked, toNullMillis(t.RevokedAt), toNullString(t.ReplacedBy),
	)
	return mapConstraint(err)
}

func (r *refreshTokensRepo) GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error) {
	return scanRefreshToken(r.db.QueryRowContext(ctx,
		`SELECT `+refreshTokenColumns+` FROM refresh_tokens WHERE token_hash = ?`, hash))
}

func (r *refreshTokensRepo) ConsumeRefreshToken(ctx context.Context, hash string, now time.Time) (domain.RefreshToken, error) {
	ms := toMillis(now)
	return scanRefreshToken(r.db.QueryRowContext(ctx, `
		UPDATE refresh_tokens SET revoked = 1, revoked_at = ?
		WHERE token_hash = ? AND revoked = 0 AND expires_at > ?
		RETURNING `+refreshTokenColumns, ms, hash, ms))
}

func (r *refreshTokensRepo) SetReplacedBy(ctx context.Context, id, replacedBy string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET replaced_by = ? WHERE id = ?`, replacedBy, id)
	return err
}

func (r *refreshTokensRepo) RevokeRefreshToken(ctx context.Context, hash string, now time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = 1, revoked_at = ? WHERE token_hash = ? AND revoked = 0`,
		toMillis(now), hash)
	return err
}

func (r *refreshTokensRepo) RevokeAllForUser(ctx context.Context, userID string, now time.Time) (int64, error) {
	ms := toMillis(now)
	res, err := r.db.ExecContext(ctx, `
		UPDATE refresh_tokens SET revoked = 1, revoked_at = ?
		WHERE user_id = ? AND revoked = 0 AND expires_at > ?`, ms, userID, ms)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *refreshTokensRepo) DeleteRefreshTokensBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ms := toMillis(cutoff)
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM refresh_tokens
		WHERE revoked = 1 AND expires_at < ?`, ms)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
