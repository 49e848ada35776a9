package postgres

import (
	"context"
	"time"

	"github.com/aussiebroadwan/habitauth/internal/auth/domain"
	"github.com/aussiebroadwan/habitauth/internal/auth/store"
)

type signingKeysRepo struct {
	db dbtx
}

type signingKeyRow struct {
	ID                string     `db:"id"`
	Kid               string     `db:"kid"`
	Algorithm         string     `db:"algorithm"`
	MaterialEncrypted []byte     `db:"material_encrypted"`
	CreatedAt         time.Time  `db:"created_at"`
	RetiredAt         *time.Time `db:"retired_at"`
}

func (r *signingKeysRepo) CreateSigningKey(ctx context.Context, k domain.SigningKey) error {
	_, err := exec(ctx, r.db, `
		INSERT INTO signing_keys (id, kid, algorithm, material_encrypted, created_at, retired_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		k.ID, k.Kid, k.Algorithm, k.MaterialEncrypted, k.CreatedAt, k.RetiredAt)
	return err
}

func (r *signingKeysRepo) ListSigningKeys(ctx context.Context) ([]domain.SigningKey, error) {
	var rows []signingKeyRow
	if err := selectAll(ctx, r.db, &rows, `
		SELECT id, kid, algorithm, material_encrypted, created_at, retired_at
		FROM signing_keys ORDER BY created_at DESC, id DESC`); err != nil {
		return nil, err
	}

	keys := make([]domain.SigningKey, len(rows))
	for i, row := range rows {
		keys[i] = domain.SigningKey{
			ID:                row.ID,
			Kid:               row.Kid,
			Algorithm:         row.Algorithm,
			MaterialEncrypted: row.MaterialEncrypted,
			CreatedAt:         row.CreatedAt.UTC(),
			RetiredAt:         row.RetiredAt,
		}
	}
	return keys, nil
}

func (r *signingKeysRepo) RetireSigningKey(ctx context.Context, kid string, now time.Time) error {
	n, err := exec(ctx, r.db,
		`UPDATE signing_keys SET retired_at = $1 WHERE kid = $2 AND retired_at IS NULL`, now, kid)
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
