package jwtx

import (
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"sync"
)

var ErrNoKey = errors.New("jwtx: key not found")

type keyEntry struct {
	alg string
	key any // ed25519.PublicKey or []byte
}

// KeySet holds verification keys by kid and the public subset as a JWKS.
// It is safe for concurrent use.
type KeySet struct {
	mu   sync.RWMutex
	jwks JWKS
	keys map[string]keyEntry
}

func NewKeySet() *KeySet {
	return &KeySet{keys: make(map[string]keyEntry)}
}

// AddSigner registers the verification half of s. Symmetric keys are kept
// for verification but left out of the published JWKS.
func (k *KeySet) AddSigner(s Signer) error {
	vk, ok := s.(interface{ verificationKey() any })
	if !ok {
		return ErrUnsupportedAlg
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	k.keys[s.KID()] = keyEntry{alg: s.Alg(), key: vk.verificationKey()}
	if j, public := s.PublicJWK(); public {
		k.jwks.Keys = append(k.jwks.Keys, j)
	}
	return nil
}

// AddJWK registers a published key, for verifiers that only see the JWKS.
func (k *KeySet) AddJWK(j JWK) error {
	pub, err := j.ed25519()
	if err != nil {
		return err
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	k.keys[j.Kid] = keyEntry{alg: AlgorithmEdDSA, key: pub}
	k.jwks.Keys = append(k.jwks.Keys, j)
	return nil
}

// Get returns the verification key and its algorithm.
func (k *KeySet) Get(kid string) (any, string, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	e, ok := k.keys[kid]
	if !ok {
		return nil, "", ErrNoKey
	}
	return e.key, e.alg, nil
}

// PublicJWKS returns a copy of the publishable keys.
func (k *KeySet) PublicJWKS() JWKS {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return JWKS{Keys: append([]JWK{}, k.jwks.Keys...)}
}

func (k *KeySet) IsReady() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return len(k.keys) > 0
}

func (j JWK) ed25519() (ed25519.PublicKey, error) {
	if j.Kty != "OKP" || j.Crv != "Ed25519" {
		return nil, errors.New("jwtx: unsupported key type " + j.Kty + "/" + j.Crv)
	}
	xb, err := base64.RawURLEncoding.DecodeString(j.X)
	if err != nil {
		return nil, err
	}
	if len(xb) != ed25519.PublicKeySize {
		return nil, errors.New("jwtx: invalid Ed25519 public key size")
	}
	return ed25519.PublicKey(xb), nil
}
