package jwtx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/habitauth/pkg/cryptox"
	"github.com/aussiebroadwan/habitauth/pkg/idx"
)

// SigningKeyRecord is a stored signing key with sealed key material.
type SigningKeyRecord struct {
	ID                string
	Kid               string
	Algorithm         string
	MaterialEncrypted []byte
	CreatedAt         time.Time
	RetiredAt         *time.Time
}

// KeyStore persists signing keys. It is implemented by the store layer.
type KeyStore interface {
	// ListSigningKeys returns every stored key, retired ones included.
	ListSigningKeys(ctx context.Context) ([]SigningKeyRecord, error)
	CreateSigningKey(ctx context.Context, key SigningKeyRecord) error
}

// PersistentKeyManagerOptions adds storage to KeyManagerOptions.
type PersistentKeyManagerOptions struct {
	KeyManagerOptions

	Store  KeyStore
	Sealer *cryptox.KeySealer
}

// NewPersistentKeyManager loads stored keys and tops up the active set to
// NumKeys. Retired keys only verify. Keys of another algorithm are ignored so
// switching algorithm invalidates outstanding tokens.
func NewPersistentKeyManager(ctx context.Context, opts PersistentKeyManagerOptions) (*KeyManager, error) {
	if opts.Store == nil || opts.Sealer == nil {
		return nil, errors.New("jwtx: Store and Sealer are required")
	}
	if err := opts.normalise(); err != nil {
		return nil, err
	}

	records, err := opts.Store.ListSigningKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("jwtx: load signing keys: %w", err)
	}

	keys := NewKeySet()
	active := make([]Signer, 0, opts.NumKeys)
	for _, rec := range records {
		if rec.Algorithm != opts.Algorithm {
			continue
		}
		material, err := opts.Sealer.Open(rec.MaterialEncrypted)
		if err != nil {
			return nil, fmt.Errorf("jwtx: unseal key %s: %w", rec.Kid, err)
		}
		signer, err := NewSigner(rec.Algorithm, rec.Kid, material)
		if err != nil {
			return nil, fmt.Errorf("jwtx: load key %s: %w", rec.Kid, err)
		}
		if err := keys.AddSigner(signer); err != nil {
			return nil, err
		}
		if rec.RetiredAt == nil {
			active = append(active, signer)
		}
	}

	now := time.Now().UTC()
	if opts.Now != nil {
		now = opts.Now()
	}
	for len(active) < opts.NumKeys {
		material, signer, err := generateSigner(opts.Algorithm)
		if err != nil {
			return nil, fmt.Errorf("jwtx: generate key: %w", err)
		}
		sealed, err := opts.Sealer.Seal(material)
		if err != nil {
			return nil, fmt.Errorf("jwtx: seal key: %w", err)
		}
		err = opts.Store.CreateSigningKey(ctx, SigningKeyRecord{
			ID:                idx.NewAt(now).String(),
			Kid:               signer.KID(),
			Algorithm:         opts.Algorithm,
			MaterialEncrypted: sealed,
			CreatedAt:         now,
		})
		if err != nil {
			return nil, fmt.Errorf("jwtx: store key: %w", err)
		}
		if err := keys.AddSigner(signer); err != nil {
			return nil, err
		}
		active = append(active, signer)
	}

	km := newKeyManager(opts.KeyManagerOptions, keys, active)
	km.store = opts.Store
	km.sealer = opts.Sealer
	return km, nil
}
