package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/habitauth/internal/auth/domain"
	"github.com/aussiebroadwan/habitauth/internal/auth/store"
)

type signingKeysRepo struct {
	db dbtx
}

func (r *signingKeysRepo) CreateSigningKey(ctx context.Context, key domain.SigningKey) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO signing_keys (id, kid, algorithm, material_encrypted, created_at, retired_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		key.ID, key.Kid, key.Algorithm, key.MaterialEncrypted, toMillis(key.CreatedAt), toNullMillis(key.RetiredAt),
	)
	return mapConstraint(err)
}

func (r *signingKeysRepo) ListSigningKeys(ctx context.Context) ([]domain.SigningKey, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kid, algorithm, material_encrypted, created_at, retired_at
		FROM signing_keys ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []domain.SigningKey
	for rows.Next() {
		var (
			k         domain.SigningKey
			created   int64
			retiredAt sql.NullInt64
		)
		if err := rows.Scan(&k.ID, &k.Kid, &k.Algorithm, &k.MaterialEncrypted, &created, &retiredAt); err != nil {
			return nil, err
		}
		k.CreatedAt = fromMillis(created)
		k.RetiredAt = fromNullMillis(retiredAt)
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (r *signingKeysRepo) RetireSigningKey(ctx context.Context, kid string, now time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE signing_keys SET retired_at = ? WHERE kid = ? AND retired_at IS NULL`, toMillis(now), kid)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
