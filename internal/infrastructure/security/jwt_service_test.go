package security

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NiponJaiboon/portfolio-auth-service/internal/config"
	domainErrors "github.com/NiponJaiboon/portfolio-auth-service/internal/domain/errors"
)

func newTestJWTService(t *testing.T, ttl time.Duration) *JWTService {
	t.Helper()
	svc, err := NewJWTService(config.JWTConfig{
		Secret:         "test-signing-secret-not-for-production",
		Issuer:         "portfolio-auth-service",
		Audience:       "portfolio-platform",
		AccessTokenTTL: ttl,
	})
	require.NoError(t, err)
	return svc
}

func TestJWT_RoundTrip(t *testing.T) {
	svc := newTestJWTService(t, 15*time.Minute)
	subject := uuid.New()

	token, expiresAt, err := svc.GenerateAccessToken(subject, AccessTokenClaims{
		Username:    "investor",
		Roles:       []string{"user"},
		Permissions: []string{"portfolio:read"},
		SessionID:   "sess-1",
	})
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 5*time.Second)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, subject.String(), claims.Subject)
	assert.Equal(t, "investor", claims.Username)
	assert.Equal(t, []string{"portfolio:read"}, claims.Permissions)
	assert.Equal(t, "sess-1", claims.SessionID)
	assert.NotEmpty(t, claims.ID)
}

func TestJWT_RequiresSecret(t *testing.T) {
	_, err := NewJWTService(config.JWTConfig{Issuer: "x", Audience: "y"})
	assert.Error(t, err)
}

func TestJWT_RejectsForeignSignature(t *testing.T) {
	issuing := newTestJWTService(t, time.Minute)
	validating, err := NewJWTService(config.JWTConfig{
		Secret:         "a-completely-different-secret",
		Issuer:         "portfolio-auth-service",
		Audience:       "portfolio-platform",
		AccessTokenTTL: time.Minute,
	})
	require.NoError(t, err)

	token, _, err := issuing.GenerateAccessToken(uuid.New(), AccessTokenClaims{})
	require.NoError(t, err)

	_, err = validating.ValidateAccessToken(token)
	assert.ErrorIs(t, err, domainErrors.ErrInvalidToken)
	_, err = validating.DecodeExpired(token)
	assert.ErrorIs(t, err, domainErrors.ErrInvalidToken)
}

func TestJWT_ExpiredToken(t *testing.T) {
	svc := newTestJWTService(t, -time.Minute)
	subject := uuid.New()

	token, _, err := svc.GenerateAccessToken(subject, AccessTokenClaims{Username: "investor"})
	require.NoError(t, err)

	_, err = svc.ValidateAccessToken(token)
	assert.ErrorIs(t, err, domainErrors.ErrExpiredToken)

	// The refresh path still needs the claims out of an expired token.
	claims, err := svc.DecodeExpired(token)
	require.NoError(t, err)
	assert.Equal(t, subject.String(), claims.Subject)
	assert.Equal(t, "investor", claims.Username)
}

func TestJWT_DecodeExpiredEnforcesIssuerAndAudience(t *testing.T) {
	validating := newTestJWTService(t, time.Minute)

	foreignIssuer, err := NewJWTService(config.JWTConfig{
		Secret:         "test-signing-secret-not-for-production",
		Issuer:         "some-other-service",
		Audience:       "portfolio-platform",
		AccessTokenTTL: time.Minute,
	})
	require.NoError(t, err)
	token, _, err := foreignIssuer.GenerateAccessToken(uuid.New(), AccessTokenClaims{})
	require.NoError(t, err)
	_, err = validating.DecodeExpired(token)
	assert.ErrorIs(t, err, domainErrors.ErrInvalidToken)

	foreignAudience, err := NewJWTService(config.JWTConfig{
		Secret:         "test-signing-secret-not-for-production",
		Issuer:         "portfolio-auth-service",
		Audience:       "some-other-audience",
		AccessTokenTTL: time.Minute,
	})
	require.NoError(t, err)
	token, _, err = foreignAudience.GenerateAccessToken(uuid.New(), AccessTokenClaims{})
	require.NoError(t, err)
	_, err = validating.DecodeExpired(token)
	assert.ErrorIs(t, err, domainErrors.ErrInvalidToken)
}

func TestJWT_GarbageToken(t *testing.T) {
	svc := newTestJWTService(t, time.Minute)

	_, err := svc.ValidateAccessToken("not.a.jwt")
	assert.ErrorIs(t, err, domainErrors.ErrInvalidToken)
}
