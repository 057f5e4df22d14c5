package credential

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCipher_RoundTrip(t *testing.T) {
	c, err := NewCipher("room-key")
	require.NoError(t, err)

	for _, plain := range []string{"secret123", "", "pässwörd"} {
		enc, err := c.Encrypt(plain)
		require.NoError(t, err)
		assert.NotEqual(t, plain, enc)

		dec, err := c.Decrypt(enc)
		require.NoError(t, err)
		assert.Equal(t, plain, dec)
	}
}

func TestCipher_FreshNonce(t *testing.T) {
	c, err := NewCipher("room-key")
	require.NoError(t, err)

	a, err := c.Encrypt("same")
	require.NoError(t, err)
	b, err := c.Encrypt("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestCipher_WrongKey(t *testing.T) {
	c1, err := NewCipher("key-one")
	require.NoError(t, err)
	c2, err := NewCipher("key-two")
	require.NoError(t, err)

	enc, err := c1.Encrypt("secret123")
	require.NoError(t, err)

	_, err = c2.Decrypt(enc)
	assert.ErrorIs(t, err, ErrMalformedCiphertext)
	assert.False(t, c2.Matches(enc, "secret123"))
}

func TestCipher_Matches(t *testing.T) {
	c, err := NewCipher("room-key")
	require.NoError(t, err)

	enc, err := c.Encrypt("secret123")
	require.NoError(t, err)

	assert.True(t, c.Matches(enc, "secret123"))
	assert.False(t, c.Matches(enc, "secret124"))
	assert.False(t, c.Matches("%%%", "secret123"))
	assert.False(t, c.Matches("c2hvcnQ=", "secret123"))
}

func TestNewCipher_EmptyKey(t *testing.T) {
	_, err := NewCipher("")
	assert.ErrorIs(t, err, ErrEmptyKey)
}
