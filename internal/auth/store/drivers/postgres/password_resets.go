package postgres

import (
	"context"
	"time"

	"github.com/aussiebroadwan/habitauth/internal/auth/domain"
)

type passwordResetsRepo struct {
	db dbtx
}

type passwordResetRow struct {
	ID        string     `db:"id"`
	UserID    string     `db:"user_id"`
	TokenHash string     `db:"token_hash"`
	CreatedAt time.Time  `db:"created_at"`
	ExpiresAt time.Time  `db:"expires_at"`
	UsedAt    *time.Time `db:"used_at"`
}

func (r *passwordResetsRepo) CreatePasswordReset(ctx context.Context, p domain.PasswordReset) error {
	_, err := exec(ctx, r.db, `
		INSERT INTO password_resets (id, user_id, token_hash, created_at, expires_at, used_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		p.ID, p.UserID, p.TokenHash, p.CreatedAt, p.ExpiresAt, p.UsedAt)
	return err
}

func (r *passwordResetsRepo) ConsumePasswordReset(ctx context.Context, hash string, now time.Time) (domain.PasswordReset, error) {
	var row passwordResetRow
	if err := get(ctx, r.db, &row, `
		UPDATE password_resets SET used_at = $1
		WHERE token_hash = $2 AND used_at IS NULL AND expires_at > $1
		RETURNING id, user_id, token_hash, created_at, expires_at, used_at`, now, hash); err != nil {
		return domain.PasswordReset{}, err
	}
	return domain.PasswordReset{
		ID:        row.ID,
		UserID:    row.UserID,
		TokenHash: row.TokenHash,
		CreatedAt: row.CreatedAt.UTC(),
		ExpiresAt: row.ExpiresAt.UTC(),
		UsedAt:    row.UsedAt,
	}, nil
}

func (r *passwordResetsRepo) DeletePasswordResetsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return exec(ctx, r.db,
		`DELETE FROM password_resets WHERE expires_at < $1 OR used_at < $1`, cutoff)
}
