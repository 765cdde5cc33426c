package service

import (
	"time"

	"github.com/google/uuid"

	"github.com/NiponJaiboon/portfolio-auth-service/internal/domain/models"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/infrastructure/security"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/utils/crypto"
)

// refreshTokenBytes gives 256 bits of entropy, the minimum for opaque
// refresh tokens.
const refreshTokenBytes = 32

// TokenService mints access/refresh token pairs and decodes tokens on
// behalf of the auth orchestrator and the authorization engine.
type TokenService struct {
	jwt        *security.JWTService
	refreshTTL time.Duration
	now        func() time.Time
}

// NewTokenService creates a TokenService.
func NewTokenService(jwt *security.JWTService, refreshTTL time.Duration) *TokenService {
	return &TokenService{jwt: jwt, refreshTTL: refreshTTL, now: time.Now}
}

// IssuedRefreshToken carries a freshly minted opaque refresh token along
// with the hash that gets persisted.
type IssuedRefreshToken struct {
	Token     string
	Hash      string
	ExpiresAt time.Time
}

// IssueRefreshToken mints a cryptographically random opaque refresh token.
func (s *TokenService) IssueRefreshToken() (*IssuedRefreshToken, error) {
	token, err := crypto.GenerateOpaqueToken(refreshTokenBytes)
	if err != nil {
		return nil, err
	}
	return &IssuedRefreshToken{
		Token:     token,
		Hash:      crypto.HashToken(token),
		ExpiresAt: s.now().Add(s.refreshTTL),
	}, nil
}

// IssueTokenPair mints a signed access token for the user plus a fresh
// refresh token.
func (s *TokenService) IssueTokenPair(user *models.User, sessionID uuid.UUID, roles, permissions []string) (*models.TokenPair, *IssuedRefreshToken, error) {
	claims := security.AccessTokenClaims{
		Username:    user.Username,
		Email:       user.Email,
		Roles:       roles,
		Permissions: permissions,
		SessionID:   sessionID.String(),
	}
	accessToken, expiresAt, err := s.jwt.GenerateAccessToken(user.ID, claims)
	if err != nil {
		return nil, nil, err
	}

	refresh, err := s.IssueRefreshToken()
	if err != nil {
		return nil, nil, err
	}

	return &models.TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refresh.Token,
		TokenType:        "Bearer",
		ExpiresAt:        expiresAt,
		RefreshExpiresAt: refresh.ExpiresAt,
	}, refresh, nil
}

// IssueScopedAccessToken mints an access token whose claims were built by
// the authorization engine for a granted scope set.
func (s *TokenService) IssueScopedAccessToken(user *models.User, scopes []string, custom map[string]interface{}) (string, time.Time, error) {
	claims := security.AccessTokenClaims{
		Username: user.Username,
		Scopes:   scopes,
		Custom:   custom,
	}
	return s.jwt.GenerateAccessToken(user.ID, claims)
}

// ValidateAccessToken checks signature, issuer, audience and expiry.
func (s *TokenService) ValidateAccessToken(token string) (*security.AccessTokenClaims, error) {
	return s.jwt.ValidateAccessToken(token)
}

// DecodeExpired decodes a possibly expired access token for the refresh
// exchange. Signature, algorithm, issuer and audience are still enforced.
func (s *TokenService) DecodeExpired(token string) (*security.AccessTokenClaims, error) {
	return s.jwt.DecodeExpired(token)
}
