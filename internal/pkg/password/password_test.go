package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	h, err := Hash("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", h)
	assert.True(t, Verify("secret1", h))
	assert.False(t, Verify("secret2", h))
}

func TestHash_Salted(t *testing.T) {
	h1, err := Hash("secret1")
	require.NoError(t, err)
	h2, err := Hash("secret1")
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestVerify_MalformedHash_ReturnsFalse(t *testing.T) {
	assert.False(t, Verify("secret1", "not-a-bcrypt-hash"))
	assert.False(t, Verify("secret1", ""))
}
