package cryptox_test

import (
	"testing"

	"github.com/aussiebroadwan/habitauth/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestKeySealer_RoundTrip(t *testing.T) {
	s, err := cryptox.NewKeySealer([]byte("test-master-key-for-encryption-12345"))
	require.NoError(t, err)

	plaintext := []byte("sensitive-private-key-data-12345")

	a, err := s.Seal(plaintext)
	require.NoError(t, err)
	b, err := s.Seal(plaintext)
	require.NoError(t, err)
	require.NotEqual(t, a, b, "random nonce should give distinct ciphertexts")

	out, err := s.Open(a)
	require.NoError(t, err)
	require.Equal(t, plaintext, out)
}

func TestKeySealer_WrongKey(t *testing.T) {
	s1, err := cryptox.NewKeySealer([]byte("key-one"))
	require.NoError(t, err)
	s2, err := cryptox.NewKeySealer([]byte("key-two"))
	require.NoError(t, err)

	sealed, err := s1.Seal([]byte("data"))
	require.NoError(t, err)

	_, err = s2.Open(sealed)
	require.Error(t, err)

	_, err = s1.Open([]byte("short"))
	require.Error(t, err)
}

func TestNewKeySealer_EmptyKey(t *testing.T) {
	_, err := cryptox.NewKeySealer(nil)
	require.Error(t, err)
}
