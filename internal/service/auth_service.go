package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/NiponJaiboon/portfolio-auth-service/internal/config"
	domainErrors "github.com/NiponJaiboon/portfolio-auth-service/internal/domain/errors"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/domain/interfaces"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/domain/models"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/domain/repository"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/events/kafka"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/infrastructure/security"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/utils/crypto"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/utils/device"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/utils/metrics"
)

// RequestMeta carries the transport-level context of an auth request.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// AuthenticatedIdentity is the outcome of a successful hybrid credential
// check: the user, plus whichever credentials were presented and verified.
type AuthenticatedIdentity struct {
	User    *models.User
	Session *models.Session
	Claims  *security.AccessTokenClaims
}

// AuthService orchestrates registration, login, token refresh and logout
// across the cookie, token and hybrid flows.
type AuthService struct {
	userRepo  repository.UserRepository
	verifier  *CredentialVerifier
	sessions  *SessionService
	tokens    *TokenService
	authz     *AuthorizationService
	password  interfaces.PasswordService
	totp      interfaces.TOTPService
	verify    repository.VerificationStore
	audit     interfaces.AuditRecorder
	publisher kafka.Publisher
	cfg       *config.Config
	logger    *zap.Logger
	now       func() time.Time
}

// NewAuthService creates an AuthService.
func NewAuthService(
	userRepo repository.UserRepository,
	verifier *CredentialVerifier,
	sessions *SessionService,
	tokens *TokenService,
	authz *AuthorizationService,
	password interfaces.PasswordService,
	totp interfaces.TOTPService,
	verify repository.VerificationStore,
	audit interfaces.AuditRecorder,
	publisher kafka.Publisher,
	cfg *config.Config,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		verifier:  verifier,
		sessions:  sessions,
		tokens:    tokens,
		authz:     authz,
		password:  password,
		totp:      totp,
		verify:    verify,
		audit:     audit,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Register creates a password-based account with the default role. The new
// account starts unverified.
func (s *AuthService) Register(ctx context.Context, req *models.RegisterRequest, meta RequestMeta) (*models.User, error) {
	hash, err := s.password.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("Failed to hash password during registration", zap.Error(err))
		metrics.RegistrationAttemptsTotal.WithLabelValues("error").Inc()
		return nil, domainErrors.ErrInternal
	}

	now := s.now()
	user := &models.User{
		ID:           uuid.New(),
		Username:     strings.TrimSpace(req.Username),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		Status:       models.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		metrics.RegistrationAttemptsTotal.WithLabelValues("conflict").Inc()
		return nil, err
	}

	defaultRole := s.cfg.Authorization.DefaultRole
	if err := s.userRepo.AssignRole(ctx, user.ID, defaultRole); err != nil {
		s.logger.Error("Failed to assign default role", zap.String("user_id", user.ID.String()), zap.Error(err))
	} else {
		user.Roles = []string{defaultRole}
	}

	s.audit.RecordAuthEvent(ctx, &user.ID, "registration", "success", meta.IPAddress, meta.UserAgent, nil)
	s.publishEvent(ctx, models.AuthUserRegisteredV1, user.ID.String(), models.UserRegisteredPayload{
		UserID:       user.ID.String(),
		Username:     user.Username,
		Email:        user.Email,
		RegisteredAt: now.UTC(),
	})
	metrics.RegistrationAttemptsTotal.WithLabelValues("success").Inc()

	return user, nil
}

// Login verifies credentials and establishes whichever credential state the
// requested mode calls for: a server-side session, a token pair, or both.
func (s *AuthService) Login(ctx context.Context, req *models.LoginRequest, meta RequestMeta) (*models.AuthResult, error) {
	user, err := s.resolveIdentifier(ctx, req.Identifier)
	if err != nil {
		if domainErrors.IsNotFound(err) {
			s.audit.RecordFailedAttempt(ctx, req.Identifier, "unknown_identifier", meta.IPAddress, meta.UserAgent)
			metrics.LoginAttemptsTotal.WithLabelValues("failure").Inc()
			return nil, domainErrors.ErrInvalidCredentials
		}
		return nil, err
	}

	outcome, err := s.verifier.Verify(ctx, user, req.Password, meta.IPAddress, meta.UserAgent)
	if err != nil {
		return nil, err
	}
	switch outcome {
	case VerifySucceeded:
	case VerifyRequiresSecondFactor:
		if req.TOTPCode == "" {
			metrics.LoginAttemptsTotal.WithLabelValues("second_factor_required").Inc()
			return nil, domainErrors.ErrSecondFactorRequired
		}
		if user.TOTPSecret == nil || !s.totp.Verify(req.TOTPCode, *user.TOTPSecret) {
			s.audit.RecordFailedAttempt(ctx, req.Identifier, "invalid_second_factor", meta.IPAddress, meta.UserAgent)
			metrics.LoginAttemptsTotal.WithLabelValues("failure").Inc()
			return nil, domainErrors.ErrInvalidSecondFactor
		}
	case VerifyLockedOut:
		metrics.LoginAttemptsTotal.WithLabelValues("locked_out").Inc()
		return nil, domainErrors.ErrUserLockedOut
	case VerifySignInDisallowed:
		metrics.LoginAttemptsTotal.WithLabelValues("failure").Inc()
		return nil, domainErrors.ErrSignInDisallowed
	default:
		metrics.LoginAttemptsTotal.WithLabelValues("failure").Inc()
		return nil, domainErrors.ErrInvalidCredentials
	}

	mode := req.Mode
	if mode == "" {
		mode = models.AuthModeCookie
	}

	session, err := s.sessions.CreateSession(ctx, models.CreateSessionParams{
		UserID:      user.ID,
		IPAddress:   meta.IPAddress,
		UserAgent:   meta.UserAgent,
		DeviceLabel: device.Label(meta.UserAgent),
		AuthType:    models.AuthType(mode),
	})
	if err != nil {
		return nil, err
	}

	result := &models.AuthResult{Mode: mode, User: user, Session: session}

	if mode == models.AuthModeToken || mode == models.AuthModeHybrid {
		roles, err := s.userRepo.GetRoles(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		user.Roles = roles
		permissions, err := s.authz.ResolvePermissions(ctx, user.ID)
		if err != nil {
			return nil, err
		}

		pair, refresh, err := s.tokens.IssueTokenPair(user, session.ID, roles, permissions)
		if err != nil {
			s.logger.Error("Failed to issue token pair", zap.String("user_id", user.ID.String()), zap.Error(err))
			return nil, domainErrors.ErrInternal
		}
		if err := s.userRepo.UpdateRefreshToken(ctx, user.ID, &refresh.Hash, &refresh.ExpiresAt); err != nil {
			return nil, err
		}
		result.Tokens = pair
	}
	if mode == models.AuthModeCookie || mode == models.AuthModeHybrid {
		sid := session.ID.String()
		result.CookieSessionID = &sid
	}

	now := s.now()
	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("Failed to update last login", zap.String("user_id", user.ID.String()), zap.Error(err))
	}

	s.publishEvent(ctx, models.AuthUserLoginSuccessV1, user.ID.String(), models.LoginSuccessPayload{
		UserID:    user.ID.String(),
		SessionID: session.ID.String(),
		AuthType:  string(mode),
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		LoginAt:   now.UTC(),
	})
	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()

	return result, nil
}

// Refresh exchanges a valid refresh token for a fresh pair. The stored token
// rotates on every exchange; a replayed or raced token is rejected.
func (s *AuthService) Refresh(ctx context.Context, req *models.RefreshRequest, expiredAccessToken string) (*models.TokenPair, error) {
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return nil, domainErrors.ErrInvalidRequest
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if domainErrors.IsNotFound(err) {
			metrics.TokenRefreshTotal.WithLabelValues("failure").Inc()
			return nil, domainErrors.ErrInvalidRefreshToken
		}
		return nil, err
	}
	if user.Status == models.UserStatusBlocked || user.Status == models.UserStatusDeleted {
		metrics.TokenRefreshTotal.WithLabelValues("failure").Inc()
		return nil, domainErrors.ErrSignInDisallowed
	}

	now := s.now()
	presentedHash := crypto.HashToken(req.RefreshToken)
	if user.RefreshTokenHash == nil || *user.RefreshTokenHash != presentedHash ||
		user.RefreshTokenExpiry == nil || now.After(*user.RefreshTokenExpiry) {
		s.audit.RecordSecurityEvent(ctx, &userID, "refresh_token_rejected", nil)
		metrics.TokenRefreshTotal.WithLabelValues("failure").Inc()
		return nil, domainErrors.ErrInvalidRefreshToken
	}

	// The expired access token, when presented, ties the refresh back to
	// its session and must belong to the same user.
	sessionID := uuid.Nil
	if expiredAccessToken != "" {
		claims, err := s.tokens.DecodeExpired(expiredAccessToken)
		if err != nil {
			metrics.TokenRefreshTotal.WithLabelValues("failure").Inc()
			return nil, domainErrors.ErrInvalidToken
		}
		if claims.Subject != userID.String() {
			s.audit.RecordSecurityEvent(ctx, &userID, "refresh_token_subject_mismatch", nil)
			metrics.TokenRefreshTotal.WithLabelValues("failure").Inc()
			return nil, domainErrors.ErrInvalidToken
		}
		if sid, parseErr := uuid.Parse(claims.SessionID); parseErr == nil {
			sessionID = sid
		}
	}

	roles, err := s.userRepo.GetRoles(ctx, userID)
	if err != nil {
		return nil, err
	}
	permissions, err := s.authz.ResolvePermissions(ctx, userID)
	if err != nil {
		return nil, err
	}

	pair, refresh, err := s.tokens.IssueTokenPair(user, sessionID, roles, permissions)
	if err != nil {
		s.logger.Error("Failed to issue token pair on refresh", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, domainErrors.ErrInternal
	}

	swapped, err := s.userRepo.RotateRefreshToken(ctx, userID, presentedHash, &refresh.Hash, &refresh.ExpiresAt)
	if err != nil {
		return nil, err
	}
	if !swapped {
		// Another exchange won the race; this token is no longer current.
		s.audit.RecordSecurityEvent(ctx, &userID, "refresh_token_rotation_race", nil)
		metrics.TokenRefreshTotal.WithLabelValues("failure").Inc()
		return nil, domainErrors.ErrInvalidRefreshToken
	}

	s.publishEvent(ctx, models.AuthTokenRefreshedV1, userID.String(), models.SessionEventPayload{
		SessionID:  sessionID.String(),
		UserID:     userID.String(),
		OccurredAt: now.UTC(),
	})
	metrics.TokenRefreshTotal.WithLabelValues("success").Inc()

	return pair, nil
}

// Logout tears down credential state. AllDevices revokes every session and
// the stored refresh token; otherwise only the named (or current) session
// is revoked.
func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID, currentSessionID *uuid.UUID, req *models.LogoutRequest) error {
	if req.AllDevices {
		if _, err := s.sessions.RevokeAllForUser(ctx, userID, nil); err != nil {
			return err
		}
		if err := s.userRepo.UpdateRefreshToken(ctx, userID, nil, nil); err != nil {
			return err
		}
	} else {
		target := currentSessionID
		if req.SessionID != nil {
			sid, err := uuid.Parse(*req.SessionID)
			if err != nil {
				return domainErrors.ErrInvalidRequest
			}
			session, err := s.sessions.GetSession(ctx, sid)
			if err != nil {
				return err
			}
			if session.UserID != userID {
				return domainErrors.ErrForbidden
			}
			target = &sid
		}
		if target != nil {
			if _, err := s.sessions.RevokeSession(ctx, *target); err != nil {
				return err
			}
		}
	}

	s.audit.RecordAuthEvent(ctx, &userID, "logout", "success", "", "", map[string]interface{}{
		"all_devices": req.AllDevices,
	})
	s.publishEvent(ctx, models.AuthUserLoggedOutV1, userID.String(), models.SessionEventPayload{
		UserID:     userID.String(),
		OccurredAt: s.now().UTC(),
	})
	return nil
}

// ValidateHybridAuth checks whichever credentials the request presented.
// Every presented credential must pass on its own, and when both are
// presented they must agree on the user.
func (s *AuthService) ValidateHybridAuth(ctx context.Context, sessionID *uuid.UUID, accessToken string) (*AuthenticatedIdentity, error) {
	if sessionID == nil && accessToken == "" {
		return nil, domainErrors.ErrUnauthorized
	}

	identity := &AuthenticatedIdentity{}
	var sessionUserID, tokenUserID uuid.UUID

	if sessionID != nil {
		valid, err := s.sessions.ValidateSession(ctx, *sessionID)
		if err != nil {
			return nil, err
		}
		if !valid {
			return nil, domainErrors.ErrSessionExpired
		}
		session, err := s.sessions.GetSession(ctx, *sessionID)
		if err != nil {
			return nil, err
		}
		identity.Session = session
		sessionUserID = session.UserID
	}

	if accessToken != "" {
		claims, err := s.tokens.ValidateAccessToken(accessToken)
		if err != nil {
			return nil, err
		}
		uid, err := uuid.Parse(claims.Subject)
		if err != nil {
			return nil, domainErrors.ErrInvalidToken
		}
		identity.Claims = claims
		tokenUserID = uid
	}

	if sessionID != nil && accessToken != "" && sessionUserID != tokenUserID {
		s.audit.RecordSecurityEvent(ctx, &sessionUserID, "hybrid_credential_mismatch", map[string]interface{}{
			"token_subject": tokenUserID.String(),
		})
		return nil, domainErrors.ErrUnauthorized
	}

	userID := sessionUserID
	if userID == uuid.Nil {
		userID = tokenUserID
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Status == models.UserStatusBlocked || user.Status == models.UserStatusDeleted {
		return nil, domainErrors.ErrSignInDisallowed
	}
	identity.User = user

	return identity, nil
}

// BeginTOTPEnrollment generates a secret for the user. The factor stays
// disabled until the user confirms a code against it.
func (s *AuthService) BeginTOTPEnrollment(ctx context.Context, userID uuid.UUID) (secret, url string, err error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return "", "", err
	}
	if user.TOTPEnabled {
		return "", "", domainErrors.ErrAlreadyExists
	}

	secret, url, err = s.totp.GenerateSecret(user.Email)
	if err != nil {
		s.logger.Error("Failed to generate TOTP secret", zap.String("user_id", userID.String()), zap.Error(err))
		return "", "", domainErrors.ErrInternal
	}

	user.TOTPSecret = &secret
	user.TOTPEnabled = false
	if err := s.userRepo.Update(ctx, user); err != nil {
		return "", "", err
	}
	return secret, url, nil
}

// ConfirmTOTPEnrollment verifies the first code and switches the factor on.
func (s *AuthService) ConfirmTOTPEnrollment(ctx context.Context, userID uuid.UUID, code string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.TOTPSecret == nil {
		return domainErrors.ErrInvalidRequest
	}
	if !s.totp.Verify(code, *user.TOTPSecret) {
		return domainErrors.ErrInvalidSecondFactor
	}

	user.TOTPEnabled = true
	if err := s.userRepo.Update(ctx, user); err != nil {
		return err
	}
	s.audit.RecordActivity(ctx, userID, "totp_enabled", nil)
	return nil
}

// DisableTOTP switches the second factor off after a password reconfirm.
func (s *AuthService) DisableTOTP(ctx context.Context, userID uuid.UUID, password string) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if !user.TOTPEnabled {
		return domainErrors.ErrInvalidRequest
	}
	if user.HasPassword() {
		match, err := s.password.CheckPasswordHash(password, user.PasswordHash)
		if err != nil {
			return err
		}
		if !match {
			return domainErrors.ErrInvalidPassword
		}
	}

	user.TOTPEnabled = false
	user.TOTPSecret = nil
	if err := s.userRepo.Update(ctx, user); err != nil {
		return err
	}
	s.audit.RecordActivity(ctx, userID, "totp_disabled", nil)
	return nil
}

// IssueEmailVerification mints a single-use verification token for the
// user's email. Delivery happens out of band.
func (s *AuthService) IssueEmailVerification(ctx context.Context, userID uuid.UUID) (string, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user.EmailVerified() {
		return "", domainErrors.ErrAlreadyExists
	}

	token, err := crypto.GenerateOpaqueToken(32)
	if err != nil {
		return "", err
	}
	if err := s.verify.Put(ctx, crypto.HashToken(token), userID, s.cfg.Security.VerificationTokenTTL); err != nil {
		return "", err
	}
	return token, nil
}

// ConfirmEmailVerification consumes a verification token and marks the
// email verified.
func (s *AuthService) ConfirmEmailVerification(ctx context.Context, token string) error {
	userID, err := s.verify.Take(ctx, crypto.HashToken(token))
	if err != nil {
		return err
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.EmailVerified() {
		return nil
	}

	now := s.now()
	user.EmailVerifiedAt = &now
	if err := s.userRepo.Update(ctx, user); err != nil {
		return err
	}
	s.audit.RecordActivity(ctx, userID, "email_verified", nil)
	return nil
}

// resolveIdentifier finds the user behind an email or username.
func (s *AuthService) resolveIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	identifier = strings.TrimSpace(identifier)
	if strings.Contains(identifier, "@") {
		return s.userRepo.FindByEmail(ctx, strings.ToLower(identifier))
	}
	return s.userRepo.FindByUsername(ctx, identifier)
}

func (s *AuthService) publishEvent(ctx context.Context, eventType, subject string, payload interface{}) {
	if err := s.publisher.Publish(ctx, eventType, subject, payload); err != nil {
		s.logger.Error("Failed to publish auth event", zap.String("event_type", eventType), zap.Error(err))
	}
}
