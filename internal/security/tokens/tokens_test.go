package tokens

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOpaqueToken(t *testing.T) {
	tok, err := GenerateOpaqueToken(32)
	require.NoError(t, err)

	raw, err := base64.RawURLEncoding.DecodeString(tok)
	require.NoError(t, err)
	assert.Len(t, raw, 32)

	other, err := GenerateOpaqueToken(32)
	require.NoError(t, err)
	assert.NotEqual(t, tok, other)
}

func TestGenerateOpaqueTokenInvalidSize(t *testing.T) {
	_, err := GenerateOpaqueToken(0)
	assert.Error(t, err)
}

func TestSHA256Base64URL(t *testing.T) {
	a := SHA256Base64URL("hello")
	b := SHA256Base64URL("hello")
	c := SHA256Base64URL("world")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotContains(t, a, "=")
}
