package ldappasswd

import (
	"bytes"
	"crypto/sha512"
	"encoding/base64"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withSaltReader(t *testing.T, r io.Reader) {
	t.Helper()
	prev := saltReader
	saltReader = r
	t.Cleanup(func() { saltReader = prev })
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("entropy exhausted")
}

func TestHashPassword_Cleartext(t *testing.T) {
	for _, alg := range []Algorithm{AlgorithmCleartext, ""} {
		value, err := HashPassword(alg, "newpw")
		require.NoError(t, err)
		assert.Equal(t, "newpw", value)
	}
}

func TestHashPassword_SSHA512(t *testing.T) {
	value, err := HashPassword(AlgorithmSHA512, "newpw")
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(value, SSHA512Prefix))

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, SSHA512Prefix))
	require.NoError(t, err)
	assert.Len(t, raw, sha512.Size+SaltSize)

	assert.True(t, VerifySSHA512(value, "newpw"))
	assert.False(t, VerifySSHA512(value, "wrong"))
}

func TestHashPassword_DeterministicSalt(t *testing.T) {
	salt := []byte("12345678")
	withSaltReader(t, bytes.NewReader(salt))

	value, err := HashPassword(AlgorithmSHA512, "newpw")
	require.NoError(t, err)

	digest := sha512.Sum512(append([]byte("newpw"), salt...))
	want := SSHA512Prefix + base64.StdEncoding.EncodeToString(append(digest[:], salt...))
	assert.Equal(t, want, value)
}

func TestHashPassword_SaltDiffers(t *testing.T) {
	first, err := HashPassword(AlgorithmSHA512, "newpw")
	require.NoError(t, err)
	second, err := HashPassword(AlgorithmSHA512, "newpw")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, VerifySSHA512(first, "newpw"))
	assert.True(t, VerifySSHA512(second, "newpw"))
}

func TestHashPassword_Errors(t *testing.T) {
	_, err := HashPassword("md5", "newpw")
	var configErr *ConfigError
	require.ErrorAs(t, err, &configErr)
	assert.Equal(t, "algorithm", configErr.Field)

	withSaltReader(t, failingReader{})
	_, err = HashPassword(AlgorithmSHA512, "newpw")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to generate salt")
}

func TestVerifySSHA512_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		hashed string
	}{
		{"no prefix", "newpw"},
		{"other scheme", "{SSHA}abcd"},
		{"bad base64", SSHA512Prefix + "!!!"},
		{"too short", SSHA512Prefix + base64.StdEncoding.EncodeToString([]byte("short"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, VerifySSHA512(tt.hashed, "newpw"))
		})
	}
}
