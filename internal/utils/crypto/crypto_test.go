package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateOpaqueToken(t *testing.T) {
	first, err := GenerateOpaqueToken(32)
	require.NoError(t, err)
	second, err := GenerateOpaqueToken(32)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	// base64url of 32 bytes without padding is 43 characters.
	assert.Len(t, first, 43)
	assert.NotContains(t, first, "+")
	assert.NotContains(t, first, "/")
	assert.NotContains(t, first, "=")
}

func TestHashToken(t *testing.T) {
	assert.Equal(t, HashToken("abc"), HashToken("abc"))
	assert.NotEqual(t, HashToken("abc"), HashToken("abd"))
	// hex sha256 is always 64 characters.
	assert.Len(t, HashToken("anything"), 64)
}
