package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/NiponJaiboon/portfolio-auth-service/internal/config"
	domainErrors "github.com/NiponJaiboon/portfolio-auth-service/internal/domain/errors"
)

// AccessTokenClaims is the claim set carried by access tokens. Custom holds
// scope-derived claims added by the authorization engine.
type AccessTokenClaims struct {
	Username    string                 `json:"username,omitempty"`
	Email       string                 `json:"email,omitempty"`
	Roles       []string               `json:"roles,omitempty"`
	Permissions []string               `json:"permissions,omitempty"`
	Scopes      []string               `json:"scopes,omitempty"`
	SessionID   string                 `json:"sid,omitempty"`
	Custom      map[string]interface{} `json:"custom,omitempty"`
	jwt.RegisteredClaims
}

// JWTService signs and validates HS256 access tokens.
type JWTService struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
}

// NewJWTService creates a JWTService from the JWT config.
func NewJWTService(cfg config.JWTConfig) (*JWTService, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt signing secret is required")
	}
	return &JWTService{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      cfg.AccessTokenTTL,
	}, nil
}

// AccessTokenTTL returns the configured access-token lifetime.
func (s *JWTService) AccessTokenTTL() time.Duration {
	return s.ttl
}

// GenerateAccessToken mints a signed access token for the subject with the
// given claim set. Returns the token string and its expiry.
func (s *JWTService) GenerateAccessToken(subject uuid.UUID, claims AccessTokenClaims) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(s.ttl)

	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   subject.String(),
		Issuer:    s.issuer,
		Audience:  jwt.ClaimStrings{s.audience},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		ID:        uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, expiresAt, nil
}

func (s *JWTService) keyFunc(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return s.secret, nil
}

// ValidateAccessToken checks signature, issuer, audience and expiry.
func (s *JWTService) ValidateAccessToken(tokenString string) (*AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domainErrors.ErrExpiredToken
		}
		return nil, domainErrors.ErrInvalidToken
	}
	if !token.Valid {
		return nil, domainErrors.ErrInvalidToken
	}
	return claims, nil
}

// DecodeExpired validates signature, algorithm, issuer and audience but not
// expiry. It exists solely to support the refresh exchange, where the access
// token may already be past its TTL.
func (s *JWTService) DecodeExpired(tokenString string) (*AccessTokenClaims, error) {
	claims := &AccessTokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil || !token.Valid {
		return nil, domainErrors.ErrInvalidToken
	}
	if claims.Issuer != s.issuer {
		return nil, domainErrors.ErrInvalidToken
	}
	var audienceOK bool
	for _, aud := range claims.Audience {
		if aud == s.audience {
			audienceOK = true
			break
		}
	}
	if !audienceOK {
		return nil, domainErrors.ErrInvalidToken
	}
	return claims, nil
}
