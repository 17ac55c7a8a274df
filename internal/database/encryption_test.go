package database

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptorDisabledPassesThrough(t *testing.T) {
	t.Setenv("TELEMEDIA_ENABLE_ENCRYPTION", "false")

	enc, err := NewEncryptor()
	require.NoError(t, err)

	out, err := enc.EncryptIfEnabled("plain caption")
	require.NoError(t, err)
	assert.Equal(t, "plain caption", out)

	out, err = enc.DecryptIfEnabled("plain caption")
	require.NoError(t, err)
	assert.Equal(t, "plain caption", out)
}

func TestEncryptorRoundTrip(t *testing.T) {
	t.Setenv("TELEMEDIA_ENABLE_ENCRYPTION", "true")
	t.Setenv("TELEMEDIA_ENCRYPTION_SECRET", strings.Repeat("k", 32))

	enc, err := NewEncryptor()
	require.NoError(t, err)

	ciphertext, err := enc.EncryptIfEnabled("a sensitive caption")
	require.NoError(t, err)
	assert.NotEqual(t, "a sensitive caption", ciphertext)

	plaintext, err := enc.DecryptIfEnabled(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "a sensitive caption", plaintext)
}

func TestEncryptorEmptyStringUntouched(t *testing.T) {
	t.Setenv("TELEMEDIA_ENABLE_ENCRYPTION", "true")
	t.Setenv("TELEMEDIA_ENCRYPTION_SECRET", strings.Repeat("k", 32))

	enc, err := NewEncryptor()
	require.NoError(t, err)

	out, err := enc.Encrypt("")
	require.NoError(t, err)
	assert.Equal(t, "", out)
}

func TestEncryptorUniqueNonces(t *testing.T) {
	t.Setenv("TELEMEDIA_ENABLE_ENCRYPTION", "true")
	t.Setenv("TELEMEDIA_ENCRYPTION_SECRET", strings.Repeat("k", 32))

	enc, err := NewEncryptor()
	require.NoError(t, err)

	first, err := enc.Encrypt("same input")
	require.NoError(t, err)
	second, err := enc.Encrypt("same input")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestEncryptorRequiresSecret(t *testing.T) {
	t.Setenv("TELEMEDIA_ENABLE_ENCRYPTION", "true")
	t.Setenv("TELEMEDIA_ENCRYPTION_SECRET", "")

	_, err := NewEncryptor()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TELEMEDIA_ENCRYPTION_SECRET")
}

func TestEncryptorRejectsShortSecret(t *testing.T) {
	t.Setenv("TELEMEDIA_ENABLE_ENCRYPTION", "true")
	t.Setenv("TELEMEDIA_ENCRYPTION_SECRET", "too-short")

	_, err := NewEncryptor()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 32 characters")
}

func TestEncryptorDecryptRejectsGarbage(t *testing.T) {
	t.Setenv("TELEMEDIA_ENABLE_ENCRYPTION", "true")
	t.Setenv("TELEMEDIA_ENCRYPTION_SECRET", strings.Repeat("k", 32))

	enc, err := NewEncryptor()
	require.NoError(t, err)

	_, err = enc.Decrypt("not base64 at all!!!")
	assert.Error(t, err)

	_, err = enc.Decrypt("c2hvcnQ=")
	assert.Error(t, err)
}
