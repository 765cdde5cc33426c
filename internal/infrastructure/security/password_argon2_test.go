package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testParams() Argon2idParams {
	// Deliberately cheap parameters to keep the suite fast.
	return Argon2idParams{
		Memory:      8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func TestArgon2id_HashAndVerify(t *testing.T) {
	svc, err := NewArgon2idPasswordService(testParams())
	require.NoError(t, err)

	hash, err := svc.HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$"))

	match, err := svc.CheckPasswordHash("correct horse battery staple", hash)
	require.NoError(t, err)
	assert.True(t, match)

	match, err = svc.CheckPasswordHash("wrong password", hash)
	require.NoError(t, err)
	assert.False(t, match)
}

func TestArgon2id_SaltsAreUnique(t *testing.T) {
	svc, err := NewArgon2idPasswordService(testParams())
	require.NoError(t, err)

	first, err := svc.HashPassword("same password")
	require.NoError(t, err)
	second, err := svc.HashPassword("same password")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestArgon2id_MalformedHash(t *testing.T) {
	svc, err := NewArgon2idPasswordService(testParams())
	require.NoError(t, err)

	_, err = svc.CheckPasswordHash("password", "$bcrypt$not-argon2")
	assert.Error(t, err)
}

func TestArgon2id_RejectsZeroedParams(t *testing.T) {
	_, err := NewArgon2idPasswordService(Argon2idParams{})
	assert.Error(t, err)
}
