package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/habitauth/internal/auth/domain"
)

type passwordResetsRepo struct {
	db dbtx
}

func (r *passwordResetsRepo) CreatePasswordReset(ctx context.Context, p domain.PasswordReset) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO password_resets (id, user_id, token_hash, created_at, expires_at, used_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.TokenHash, toMillis(p.CreatedAt), toMillis(p.ExpiresAt), toNullMillis(p.UsedAt),
	)
	return mapConstraint(err)
}

func (r *passwordResetsRepo) ConsumePasswordReset(ctx context.Context, hash string, now time.Time) (domain.PasswordReset, error) {
	var (
		p                  domain.PasswordReset
		created, expiresAt int64
		usedAt             sql.NullInt64
	)
	ms := toMillis(now)
	err := r.db.QueryRowContext(ctx, `
		UPDATE password_resets SET used_at = ?
		WHERE token_hash = ? AND used_at IS NULL AND expires_at > ?
		RETURNING id, user_id, token_hash, created_at, expires_at, used_at`, ms, hash, ms,
	).Scan(&p.ID, &p.UserID, &p.TokenHash, &created, &expiresAt, &usedAt)
	if err != nil {
		return domain.PasswordReset{}, mapNotFound(err)
	}
	p.CreatedAt = fromMillis(created)
	p.ExpiresAt = fromMillis(expiresAt)
	p.UsedAt = fromNullMillis(usedAt)
	return p, nil
}

func (r *passwordResetsRepo) DeletePasswordResetsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ms := toMillis(cutoff)
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM password_resets WHERE expires_at < ? OR used_at < ?`, ms, ms)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
