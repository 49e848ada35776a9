package cryptox_test

import (
	"crypto/ed25519"
	"testing"

	"github.com/aussiebroadwan/habitauth/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestEd25519KeyRoundTrip(t *testing.T) {
	pemBytes, err := cryptox.GenerateEd25519Key()
	require.NoError(t, err)

	priv, err := cryptox.ParseEd25519Key(pemBytes)
	require.NoError(t, err)
	require.Len(t, priv, ed25519.PrivateKeySize)

	_, err = cryptox.ParseEd25519Key([]byte("not pem"))
	require.Error(t, err)
}

func TestGenerateHMACSecret(t *testing.T) {
	secret, err := cryptox.GenerateHMACSecret(64)
	require.NoError(t, err)
	require.Len(t, secret, 64)

	_, err = cryptox.GenerateHMACSecret(16)
	require.Error(t, err)
}
