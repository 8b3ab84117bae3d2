package jwtinfra

import (
	"testing"
	"time"

	"github.com/auth-api-nosql/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(secret string, expiry time.Duration) *Provider {
	return NewProvider(&config.Config{JWTSecret: secret, JWTExpiry: expiry})
}

func TestSignVerify_RoundTrip(t *testing.T) {
	p := newTestProvider("test-secret", 24*time.Hour)

	token, err := p.Sign("u1", "a@x.com")
	require.NoError(t, err)

	claims, err := p.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.Subject)
	assert.Equal(t, "a@x.com", claims.Email)
}

func TestVerify_Expired(t *testing.T) {
	p := newTestProvider("test-secret", -time.Hour)

	token, err := p.Sign("u1", "a@x.com")
	require.NoError(t, err)

	_, err = p.Verify(token)
	assert.Error(t, err)
}

func TestVerify_WrongSecret(t *testing.T) {
	p1 := newTestProvider("secret-one", time.Hour)
	p2 := newTestProvider("secret-two", time.Hour)

	token, err := p1.Sign("u1", "a@x.com")
	require.NoError(t, err)

	_, err = p2.Verify(token)
	assert.Error(t, err)
}

func TestVerify_Malformed(t *testing.T) {
	p := newTestProvider("test-secret", time.Hour)
	_, err := p.Verify("not-a-token")
	assert.Error(t, err)
}

func TestVerify_RejectsNoneAlgorithm(t *testing.T) {
	p := newTestProvider("test-secret", time.Hour)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = p.Verify(token)
	assert.Error(t, err)
}
