package jwtx

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier validates a JWT and returns its claims.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// VerifyOptions are the expectations checked after the signature.
type VerifyOptions struct {
	// Issuer the token must carry. Empty skips the check.
	Issuer string
	// Audience values of which at least one must be present. Empty skips the check.
	Audience []string
	// Leeway tolerates clock skew on exp and nbf.
	Leeway time.Duration
	// Now is the clock used for exp and nbf. Defaults to time.Now.
	Now func() time.Time
}

var (
	ErrMalformed      = errors.New("jwtx: malformed token")
	ErrUnsupportedAlg = errors.New("jwtx: unsupported algorithm")
	ErrUnknownKID     = errors.New("jwtx: unknown kid")
	ErrInvalidSig     = errors.New("jwtx: invalid signature")

	ErrIssuer       = errors.New("jwtx: issuer mismatch")
	ErrAudience     = errors.New("jwtx: audience mismatch")
	ErrExpired      = errors.New("jwtx: token expired")
	ErrNotYetValid  = errors.New("jwtx: token not yet valid")
	ErrInvalidClaim = errors.New("jwtx: invalid claims")
)

// TokenVerifier verifies tokens of a single algorithm against a KeySet.
type TokenVerifier struct {
	alg    string
	keys   *KeySet
	opts   VerifyOptions
	parser *jwt.Parser
}

func NewVerifier(alg string, keys *KeySet, opts VerifyOptions) *TokenVerifier {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &TokenVerifier{
		alg:  alg,
		keys: keys,
		opts: opts,
		// Time based claims are checked by Claims.ValidateTime with the
		// injected clock.
		parser: jwt.NewParser(jwt.WithValidMethods([]string{alg}), jwt.WithoutClaimsValidation()),
	}
}

func (v *TokenVerifier) Verify(tokenStr string) (Claims, error) {
	token, err := v.parser.ParseWithClaims(tokenStr, &Claims{}, v.keyFunc)
	if err != nil {
		switch {
		case errors.Is(err, ErrUnknownKID):
			return Claims{}, ErrUnknownKID
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, ErrInvalidSig
		case errors.Is(err, jwt.ErrTokenMalformed):
			return Claims{}, ErrMalformed
		default:
			return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Claims{}, ErrInvalidClaim
	}
	if err := claims.ValidateIssuer(v.opts.Issuer); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateAudience(v.opts.Audience); err != nil {
		return Claims{}, err
	}
	if err := claims.ValidateTime(v.opts.Now(), v.opts.Leeway); err != nil {
		return Claims{}, err
	}
	return *claims, nil
}

func (v *TokenVerifier) keyFunc(t *jwt.Token) (any, error) {
	kid, _ := t.Header["kid"].(string)
	if kid == "" {
		return nil, ErrUnknownKID
	}
	key, alg, err := v.keys.Get(kid)
	if err != nil || alg != v.alg {
		return nil, ErrUnknownKID
	}

	switch k := key.(type) {
	case ed25519.PublicKey:
		return k, nil
	case []byte:
		return k, nil
	default:
		return nil, ErrUnsupportedAlg
	}
}
