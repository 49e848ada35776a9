package store

import (
	"context"

	"github.com/aussiebroadwan/habitauth/internal/auth/domain"
	"github.com/aussiebroadwan/habitauth/pkg/jwtx"
)

// KeyStoreAdapter exposes the SigningKeys repository as a jwtx.KeyStore so
// pkg/jwtx never imports the domain package.
type KeyStoreAdapter struct {
	store Store
}

func NewKeyStoreAdapter(s Store) *KeyStoreAdapter {
	return &KeyStoreAdapter{store: s}
}

func (a *KeyStoreAdapter) ListSigningKeys(ctx context.Context) ([]jwtx.SigningKeyRecord, error) {
	keys, err := a.store.SigningKeys().ListSigningKeys(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]jwtx.SigningKeyRecord, len(keys))
	for i, k := range keys {
		out[i] = jwtx.SigningKeyRecord{
			ID:                k.ID,
			Kid:               k.Kid,
			Algorithm:         k.Algorithm,
			MaterialEncrypted: k.MaterialEncrypted,
			CreatedAt:         k.CreatedAt,
			RetiredAt:         k.RetiredAt,
		}
	}
	return out, nil
}

func (a *KeyStoreAdapter) CreateSigningKey(ctx context.Context, k jwtx.SigningKeyRecord) error {
	return a.store.SigningKeys().CreateSigningKey(ctx, domain.SigningKey{
		ID:                k.ID,
		Kid:               k.Kid,
		Algorithm:         k.Algorithm,
		MaterialEncrypted: k.MaterialEncrypted,
		CreatedAt:         k.CreatedAt,
		RetiredAt:         k.RetiredAt,
	})
}
