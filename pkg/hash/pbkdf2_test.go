package hash

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Low iteration counts keep the tests fast; the format is the same.
func testHasher() *Hasher { return New(1000) }

func TestHashProducesEncodedFormat(t *testing.T) {
	h := testHasher()

	encoded, err := h.Hash("secret123")
	require.NoError(t, err)

	assert.True(t, IsEncoded(encoded))
	assert.True(t, strings.HasPrefix(encoded, "pbkdf2_sha256$1000$"))
	assert.NotContains(t, encoded, "secret123")
}

func TestHashUsesFreshSalt(t *testing.T) {
	h := testHasher()

	a, err := h.Hash("secret123")
	require.NoError(t, err)
	b, err := h.Hash("secret123")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestVerify(t *testing.T) {
	h := testHasher()
	encoded, err := h.Hash("secret123")
	require.NoError(t, err)

	assert.True(t, h.Verify("secret123", encoded))
	assert.False(t, h.Verify("secret124", encoded))
	assert.False(t, h.Verify("", encoded))
}

func TestVerifyAcceptsDifferentIterationCount(t *testing.T) {
	// Verification honors the iteration count embedded in the credential,
	// not the hasher's own setting.
	encoded, err := New(500).Hash("pw")
	require.NoError(t, err)

	assert.True(t, testHasher().Verify("pw", encoded))
}

func TestVerifyRejectsMalformed(t *testing.T) {
	h := testHasher()

	for _, encoded := range []string{
		"",
		"plaintext",
		"pbkdf2_sha256$notanumber$salt$hash",
		"pbkdf2_sha256$1000$salt",
		"md5$1000$salt$hash",
		"pbkdf2_sha256$-1$salt$hash",
	} {
		assert.False(t, h.Verify("pw", encoded), "encoded=%q", encoded)
	}
}

func TestIsEncoded(t *testing.T) {
	assert.True(t, IsEncoded("pbkdf2_sha256$600000$salt$hash"))
	assert.False(t, IsEncoded("secret123"))
	assert.False(t, IsEncoded("pbkdf2_sha256$600000$salt$ha$sh"))
	assert.False(t, IsEncoded("pbkdf2_sha1$600000$salt$hash"))
}
