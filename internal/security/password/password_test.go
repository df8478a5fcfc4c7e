package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerify(t *testing.T) {
	phc, err := Hash(Default, "S3cure-pass!")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(phc, "$argon2id$v=19$"))

	assert.True(t, Verify("S3cure-pass!", phc))
	assert.False(t, Verify("wrong", phc))
	assert.False(t, Verify("", phc))
}

func TestHashEmptyPassword(t *testing.T) {
	_, err := Hash(Default, "")
	assert.Error(t, err)
}

func TestHashSaltsDiffer(t *testing.T) {
	a, err := Hash(Default, "same-password")
	require.NoError(t, err)
	b, err := Hash(Default, "same-password")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestVerifyBcryptFallback(t *testing.T) {
	h, err := bcrypt.GenerateFromPassword([]byte("legacy-pass"), bcrypt.MinCost)
	require.NoError(t, err)

	assert.True(t, Verify("legacy-pass", string(h)))
	assert.False(t, Verify("other", string(h)))
	assert.True(t, NeedsRehash(string(h)))
}

func TestVerifyMalformed(t *testing.T) {
	for _, enc := range []string{"", "plaintext", "$argon2id$", "$argon2id$v=18$m=1,t=1,p=1$AA$AA"} {
		assert.False(t, Verify("x", enc), "encoded=%q", enc)
	}
}

func TestNeedsRehash(t *testing.T) {
	phc, err := Hash(Default, "pw-ok-123")
	require.NoError(t, err)
	assert.False(t, NeedsRehash(phc))
	assert.True(t, NeedsRehash("$2a$10$abcdefghijklmnopqrstuv"))
}

func TestPolicyValidate(t *testing.T) {
	p := Policy{MinLength: 8, RequireUpper: true, RequireDigit: true}

	ok, reasons := p.Validate("Abcdef12")
	assert.True(t, ok)
	assert.Empty(t, reasons)

	ok, reasons = p.Validate("short")
	assert.False(t, ok)
	assert.Contains(t, reasons, "too_short")

	ok, reasons = p.Validate("alllowercase1")
	assert.False(t, ok)
	assert.Contains(t, reasons, "missing_upper")

	ok, reasons = p.Validate("NoDigitsHere")
	assert.False(t, ok)
	assert.Contains(t, reasons, "missing_digit")
}
