package jwtx

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/aussiebroadwan/habitauth/pkg/cryptox"
	"github.com/aussiebroadwan/habitauth/pkg/idx"
)

// ErrNoSigner is returned when no active signing key is loaded.
var ErrNoSigner = errors.New("jwtx: no active signing key")

const (
	defaultNumKeys = 3
	maxNumKeys     = 10
	hmacSecretSize = 64
)

// KeyManager owns the active signing keys and the verification KeySet.
// Signing picks one of the active keys at random.
type KeyManager struct {
	KeySet   *KeySet
	Verifier Verifier

	algorithm string
	now       func() time.Time
	mu        sync.RWMutex
	signers   []Signer

	// Set for persistent managers only.
	store  KeyStore
	sealer *cryptox.KeySealer
}

// KeyManagerOptions configures key generation and verification.
type KeyManagerOptions struct {
	// Algorithm is EdDSA or HS256.
	Algorithm string
	Issuer    string
	Audience  []string
	// NumKeys active signing keys; defaults to 3, capped at 10.
	NumKeys int
	Leeway  time.Duration
	// Now is the clock used for verification. Defaults to time.Now.
	Now func() time.Time
}

func (o *KeyManagerOptions) normalise() error {
	if o.Issuer == "" {
		return errors.New("jwtx: Issuer is required")
	}
	if o.Algorithm != AlgorithmEdDSA && o.Algorithm != AlgorithmHS256 {
		return fmt.Errorf("%w %q (supported: EdDSA, HS256)", ErrUnsupportedAlg, o.Algorithm)
	}
	if o.NumKeys <= 0 {
		o.NumKeys = defaultNumKeys
	}
	o.NumKeys = min(o.NumKeys, maxNumKeys)
	return nil
}

func newKeyManager(opts KeyManagerOptions, keys *KeySet, signers []Signer) *KeyManager {
	return &KeyManager{
		KeySet: keys,
		Verifier: NewVerifier(opts.Algorithm, keys, VerifyOptions{
			Issuer:   opts.Issuer,
			Audience: opts.Audience,
			Leeway:   opts.Leeway,
			Now:      opts.Now,
		}),
		algorithm: opts.Algorithm,
		now:       opts.Now,
		signers:   signers,
	}
}

// NewEphemeralKeyManager generates in-memory keys. Every token becomes
// unverifiable when the process restarts.
func NewEphemeralKeyManager(opts KeyManagerOptions) (*KeyManager, error) {
	if err := opts.normalise(); err != nil {
		return nil, err
	}

	keys := NewKeySet()
	signers := make([]Signer, 0, opts.NumKeys)
	for i := range opts.NumKeys {
		_, signer, err := generateSigner(opts.Algorithm)
		if err != nil {
			return nil, fmt.Errorf("jwtx: generate signer %d: %w", i+1, err)
		}
		if err := keys.AddSigner(signer); err != nil {
			return nil, err
		}
		signers = append(signers, signer)
	}
	return newKeyManager(opts, keys, signers), nil
}

// generateSigner creates fresh key material and returns it with its signer.
func generateSigner(alg string) ([]byte, Signer, error) {
	kid, err := newKeyID()
	if err != nil {
		return nil, nil, err
	}

	var material []byte
	switch alg {
	case AlgorithmEdDSA:
		material, err = cryptox.GenerateEd25519Key()
	case AlgorithmHS256:
		material, err = cryptox.GenerateHMACSecret(hmacSecretSize)
	default:
		err = ErrUnsupportedAlg
	}
	if err != nil {
		return nil, nil, err
	}

	signer, err := NewSigner(alg, kid, material)
	if err != nil {
		return nil, nil, err
	}
	return material, signer, nil
}

func newKeyID() (string, error) {
	token, err := cryptox.GenerateToken(16)
	if err != nil {
		return "", fmt.Errorf("generate key ID: %w", err)
	}
	return "habit-" + token, nil
}

func (km *KeyManager) Algorithm() string { return km.algorithm }

func (km *KeyManager) IsReady() bool {
	return km.KeySet.IsReady() && km.NumSigners() > 0
}

// CurrentSigner returns one of the active signers.
func (km *KeyManager) CurrentSigner() (Signer, error) {
	km.mu.RLock()
	defer km.mu.RUnlock()

	switch len(km.signers) {
	case 0:
		return nil, ErrNoSigner
	case 1:
		return km.signers[0], nil
	default:
		return km.signers[rand.IntN(len(km.signers))], nil
	}
}

func (km *KeyManager) NumSigners() int {
	km.mu.RLock()
	defer km.mu.RUnlock()
	return len(km.signers)
}

// RetireSigner stops signing with kid. The key stays in the KeySet so tokens
// it already signed verify until they expire.
func (km *KeyManager) RetireSigner(kid string) error {
	km.mu.Lock()
	defer km.mu.Unlock()

	for i, s := range km.signers {
		if s.KID() == kid {
			km.signers = append(km.signers[:i:i], km.signers[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("jwtx: signer %q not found", kid)
}

// AddKey generates a new active signing key. Persistent managers seal and
// store it before it is used for signing.
func (km *KeyManager) AddKey(ctx context.Context) (Signer, error) {
	material, signer, err := generateSigner(km.algorithm)
	if err != nil {
		return nil, fmt.Errorf("jwtx: generate key: %w", err)
	}

	if km.store != nil {
		sealed, err := km.sealer.Seal(material)
		if err != nil {
			return nil, fmt.Errorf("jwtx: seal key: %w", err)
		}
		now := time.Now().UTC()
		if km.now != nil {
			now = km.now()
		}
		if err := km.store.CreateSigningKey(ctx, SigningKeyRecord{
			ID:                idx.NewAt(now).String(),
			Kid:               signer.KID(),
			Algorithm:         km.algorithm,
			MaterialEncrypted: sealed,
			CreatedAt:         now,
		}); err != nil {
			return nil, fmt.Errorf("jwtx: store key: %w", err)
		}
	}

	if err := km.KeySet.AddSigner(signer); err != nil {
		return nil, err
	}

	km.mu.Lock()
	km.signers = append(km.signers, signer)
	km.mu.Unlock()
	return signer, nil
}

// ActiveKIDs lists the key IDs currently used for signing.
func (km *KeyManager) ActiveKIDs() []string {
	km.mu.RLock()
	defer km.mu.RUnlock()

	kids := make([]string, len(km.signers))
	for i, s := range km.signers {
		kids[i] = s.KID()
	}
	return kids
}
