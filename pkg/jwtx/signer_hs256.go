package jwtx

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// minHMACSecret is the shortest accepted HS256 secret in bytes.
const minHMACSecret = 32

// HS256Signer signs with a shared secret. The secret also verifies, so it is
// never published in the JWKS.
type HS256Signer struct {
	kid    string
	secret []byte
}

func newHS256Signer(kid string, secret []byte) (*HS256Signer, error) {
	s := &HS256Signer{kid: kid, secret: append([]byte(nil), secret...)}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *HS256Signer) Alg() string { return AlgorithmHS256 }
func (s *HS256Signer) KID() string { return s.kid }

func (s *HS256Signer) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	t.Header["kid"] = s.kid
	return t.SignedString(s.secret)
}

func (s *HS256Signer) PublicJWK() (JWK, bool) { return JWK{}, false }

func (s *HS256Signer) verificationKey() any { return s.secret }

func (s *HS256Signer) Validate() error {
	if len(s.secret) < minHMACSecret {
		return errors.New("jwtx: HS256 secret shorter than 32 bytes")
	}
	return nil
}
