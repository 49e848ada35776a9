package cryptox

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArgon2Hasher(t *testing.T) {
	h := Argon2Hasher{Pepper: "pepper"}

	tests := []struct {
		name     string
		password string
	}{
		{"simple password", "password123"},
		{"complex password", "P@ssw0rd!#$%^&*()"},
		{"long password", strings.Repeat("a", 100)},
		{"empty password", ""},
		{"unicode password", "пароль🔒密码"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := h.Hash(tt.password)
			require.NoError(t, err)
			require.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$"))
			require.Len(t, strings.Split(encoded, "$"), 6)
			require.True(t, h.Recognises(encoded))

			require.NoError(t, h.Verify(tt.password, encoded))
			require.ErrorIs(t, h.Verify(tt.password+"x", encoded), ErrPasswordMismatch)
		})
	}
}

func TestArgon2Hasher_PepperMatters(t *testing.T) {
	encoded, err := Argon2Hasher{Pepper: "one"}.Hash("secret")
	require.NoError(t, err)

	require.ErrorIs(t, Argon2Hasher{Pepper: "two"}.Verify("secret", encoded), ErrPasswordMismatch)
}

func TestArgon2Hasher_InvalidFormat(t *testing.T) {
	h := Argon2Hasher{}
	for _, encoded := range []string{
		"",
		"plaintext",
		"$argon2i$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=1,t=1,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$bogus$c2FsdA$aGFzaA",
	} {
		require.Error(t, h.Verify("secret", encoded), encoded)
	}
}

func TestMultiHasher_LegacyBcrypt(t *testing.T) {
	legacy := BcryptHasher{Cost: 4}
	m := MultiHasher{Primary: Argon2Hasher{Pepper: "p"}, Legacy: []SecretHasher{legacy}}

	old, err := legacy.Hash("hunter2")
	require.NoError(t, err)

	require.NoError(t, m.Verify("hunter2", old))
	require.ErrorIs(t, m.Verify("wrong", old), ErrPasswordMismatch)
	require.True(t, m.NeedsRehash(old))

	fresh, err := m.Hash("hunter2")
	require.NoError(t, err)
	require.False(t, m.NeedsRehash(fresh))
	require.NoError(t, m.Verify("hunter2", fresh))

	require.ErrorIs(t, m.Verify("hunter2", "md5:abc"), ErrUnknownHashFormat)
}

func TestLoadOrCreatePepper(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets", "pepper")

	first, err := LoadOrCreatePepper(path)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := LoadOrCreatePepper(path)
	require.NoError(t, err)
	require.Equal(t, first, second, "pepper must be stable across loads")

	_, err = LoadOrCreatePepper("")
	require.Error(t, err)
}
