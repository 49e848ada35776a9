package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordMismatch is returned when a password does not match its hash.
var ErrPasswordMismatch = errors.New("password does not match")

// ErrUnknownHashFormat is returned when no hasher recognises an encoded hash.
var ErrUnknownHashFormat = errors.New("unknown password hash format")

// SecretHasher hashes and verifies user secrets. Implementations must be safe
// for concurrent use.
type SecretHasher interface {
	Hash(secret string) (string, error)
	Verify(secret, encoded string) error
	// Recognises reports whether encoded was produced by this hasher.
	Recognises(encoded string) bool
}

// Argon2 parameters.
const (
	argonMemory      = 19 * 1024 // KiB
	argonIterations  = 2
	argonParallelism = 1
	argonKeyLength   = 32
	argonSaltLength  = 16
)

// Argon2Hasher produces PHC-format Argon2id hashes. The pepper is appended to
// the secret before hashing and is never stored with the hash.
type Argon2Hasher struct {
	Pepper string
}

func (h Argon2Hasher) Recognises(encoded string) bool {
	return strings.HasPrefix(encoded, "$argon2id$")
}

func (h Argon2Hasher) Hash(secret string) (string, error) {
	salt := make([]byte, argonSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	sum := argon2.IDKey([]byte(secret+h.Pepper), salt, argonIterations, argonMemory, argonParallelism, argonKeyLength)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argonMemory,
		argonIterations,
		argonParallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(sum),
	), nil
}

func (h Argon2Hasher) Verify(secret, encoded string) error {
	// ["", "argon2id", "v=19", "m=X,t=Y,p=Z", salt, hash]
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return ErrUnknownHashFormat
	}
	if parts[2] != fmt.Sprintf("v=%d", argon2.Version) {
		return errors.New("argon2id: unsupported version")
	}

	var mem, iters uint32
	var par uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &iters, &par); err != nil {
		return fmt.Errorf("argon2id: parse parameters: %w", err)
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return fmt.Errorf("argon2id: decode salt: %w", err)
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return fmt.Errorf("argon2id: decode hash: %w", err)
	}

	got := argon2.IDKey([]byte(secret+h.Pepper), salt, iters, mem, par, uint32(len(want))) // #nosec G115
	if subtle.ConstantTimeCompare(got, want) != 1 {
		return ErrPasswordMismatch
	}
	return nil
}

// BcryptHasher verifies and produces bcrypt hashes. Accounts imported from the
// previous habit tracker database carry bcrypt hashes.
type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Recognises(encoded string) bool {
	return strings.HasPrefix(encoded, "$2a$") ||
		strings.HasPrefix(encoded, "$2b$") ||
		strings.HasPrefix(encoded, "$2y$")
}

func (h BcryptHasher) Hash(secret string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	out, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(out), nil
}

func (h BcryptHasher) Verify(secret, encoded string) error {
	err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(secret))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrPasswordMismatch
	}
	return err
}

// MultiHasher hashes with Primary and verifies with whichever hasher
// recognises the stored format.
type MultiHasher struct {
	Primary SecretHasher
	Legacy  []SecretHasher
}

func (m MultiHasher) Recognises(encoded string) bool {
	return m.pick(encoded) != nil
}

func (m MultiHasher) Hash(secret string) (string, error) {
	return m.Primary.Hash(secret)
}

func (m MultiHasher) Verify(secret, encoded string) error {
	h := m.pick(encoded)
	if h == nil {
		return ErrUnknownHashFormat
	}
	return h.Verify(secret, encoded)
}

// NeedsRehash reports whether encoded was produced by a legacy hasher and
// should be replaced after a successful verification.
func (m MultiHasher) NeedsRehash(encoded string) bool {
	return !m.Primary.Recognises(encoded) && m.pick(encoded) != nil
}

func (m MultiHasher) pick(encoded string) SecretHasher {
	if m.Primary.Recognises(encoded) {
		return m.Primary
	}
	for _, h := range m.Legacy {
		if h.Recognises(encoded) {
			return h
		}
	}
	return nil
}
