package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// Opaque token sizes in raw bytes, before base64url encoding.
const (
	// TokenSize256 encodes to 43 characters.
	TokenSize256 = 32
	// TokenSize512 encodes to 86 characters. Refresh credentials use this size.
	TokenSize512 = 64
)

// GenerateToken returns size random bytes from crypto/rand encoded as
// unpadded base64url. It fails only when the random source fails.
func GenerateToken(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("token size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random source: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// WellFormedToken reports whether token decodes as unpadded base64url to
// exactly size bytes. It rejects input cheaply before any store lookup.
func WellFormedToken(token string, size int) bool {
	if len(token) != base64.RawURLEncoding.EncodedLen(size) {
		return false
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	return err == nil && len(raw) == size
}

// FingerprintToken is the one-way digest stored in place of an opaque token:
// SHA-256 of the token, base64url encoded (43 chars). It is deterministic so
// it can be used as a lookup key.
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
