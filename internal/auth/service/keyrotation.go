package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/habitauth/internal/auth/store"
	"github.com/aussiebroadwan/habitauth/pkg/jwtx"
	"github.com/aussiebroadwan/habitauth/pkg/slogx"
)

// KeyRotationService adds and retires JWT signing keys at runtime.
//
// With a persistent KeyManager the new key is sealed and stored, and retired
// keys are marked in the store so they load as verify-only after a restart.
// With an ephemeral KeyManager the store has no key rows and retirement only
// affects this process.
type KeyRotationService struct {
	Store      store.Store
	KeyManager *jwtx.KeyManager
	Now        func() time.Time
}

// RotateKeyResult is returned by RotateKey.
type RotateKeyResult struct {
	NewKID      string   `json:"new_kid"`
	RetiredKIDs []string `json:"retired_kids,omitempty"`
	ActiveKIDs  []string `json:"active_kids"`
}

// RotateKey generates a new signing key. When retireExisting is set every
// previously active key stops signing but stays published for verification.
func (s *KeyRotationService) RotateKey(ctx context.Context, retireExisting bool) (RotateKeyResult, error) {
	if s.KeyManager == nil {
		return RotateKeyResult{}, errors.New("key manager is required")
	}
	previous := s.KeyManager.ActiveKIDs()

	signer, err := s.KeyManager.AddKey(ctx)
	if err != nil {
		return RotateKeyResult{}, fmt.Errorf("add signing key: %w", err)
	}

	res := RotateKeyResult{NewKID: signer.KID()}
	if retireExisting {
		for _, kid := range previous {
			if err := s.RetireKey(ctx, kid); err != nil {
				return RotateKeyResult{}, err
			}
			res.RetiredKIDs = append(res.RetiredKIDs, kid)
		}
	}
	res.ActiveKIDs = s.KeyManager.ActiveKIDs()

	slogx.FromContext(ctx).Info("signing key rotated",
		"new_kid", res.NewKID,
		"retired", len(res.RetiredKIDs),
		"active", len(res.ActiveKIDs),
	)
	return res, nil
}

// RetireKey stops signing with kid. Retiring the last active key is refused
// so the service never loses the ability to issue access credentials.
func (s *KeyRotationService) RetireKey(ctx context.Context, kid string) error {
	if s.KeyManager.NumSigners() <= 1 {
		return fmt.Errorf("retire %s: %w", kid, jwtx.ErrNoSigner)
	}
	if err := s.KeyManager.RetireSigner(kid); err != nil {
		return fmt.Errorf("retire %s: %w", kid, err)
	}

	if s.Store != nil {
		err := s.Store.SigningKeys().RetireSigningKey(ctx, kid, s.now())
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("persist retirement of %s: %w", kid, err)
		}
	}
	return nil
}

func (s *KeyRotationService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
