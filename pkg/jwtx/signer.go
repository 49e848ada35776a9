package jwtx

// Supported signing algorithms.
const (
	AlgorithmEdDSA = "EdDSA"
	AlgorithmHS256 = "HS256"
)

// Signer signs access tokens with one key.
type Signer interface {
	Alg() string
	KID() string
	Sign(Claims) (string, error)
	// PublicJWK returns the publishable key, or false for symmetric keys.
	PublicJWK() (JWK, bool)
	Validate() error
}

// NewSigner builds a signer for alg from stored key material: PKCS8 PEM for
// EdDSA, the raw secret for HS256.
func NewSigner(alg, kid string, material []byte) (Signer, error) {
	switch alg {
	case AlgorithmEdDSA:
		return newEdDSASigner(kid, material)
	case AlgorithmHS256:
		return newHS256Signer(kid, material)
	default:
		return nil, ErrUnsupportedAlg
	}
}
