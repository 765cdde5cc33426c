package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/NiponJaiboon/portfolio-auth-service/internal/config"
	domainErrors "github.com/NiponJaiboon/portfolio-auth-service/internal/domain/errors"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/domain/interfaces"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/domain/models"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/domain/repository"
)

// VerifyOutcome is the result of a password verification attempt.
type VerifyOutcome string

const (
	VerifySucceeded            VerifyOutcome = "succeeded"
	VerifyIncorrectPassword    VerifyOutcome = "incorrect_password"
	VerifyLockedOut            VerifyOutcome = "locked_out"
	VerifyRequiresSecondFactor VerifyOutcome = "requires_second_factor"
	VerifySignInDisallowed     VerifyOutcome = "sign_in_disallowed"
)

// CredentialVerifier checks passwords against stored credentials and drives
// the failure-counter / lockout state machine. Every attempt, pass or fail,
// is reported to the audit sink.
type CredentialVerifier struct {
	userRepo        repository.UserRepository
	passwordService interfaces.PasswordService
	audit           interfaces.AuditRecorder
	logger          *zap.Logger
	cfg             config.SecurityConfig
	now             func() time.Time
}

// NewCredentialVerifier creates a CredentialVerifier.
func NewCredentialVerifier(
	userRepo repository.UserRepository,
	passwordService interfaces.PasswordService,
	audit interfaces.AuditRecorder,
	cfg config.SecurityConfig,
	logger *zap.Logger,
) *CredentialVerifier {
	return &CredentialVerifier{
		userRepo:        userRepo,
		passwordService: passwordService,
		audit:           audit,
		logger:          logger,
		cfg:             cfg,
		now:             time.Now,
	}
}

// Verify checks the password and updates the failure counter. A lockout
// window that has elapsed is cleared on the next attempt; reaching the
// threshold starts a new window.
func (v *CredentialVerifier) Verify(ctx context.Context, user *models.User, password, ipAddress, userAgent string) (VerifyOutcome, error) {
	now := v.now()

	if user.Status == models.UserStatusBlocked || user.Status == models.UserStatusDeleted {
		v.recordAttempt(ctx, user, string(VerifySignInDisallowed), ipAddress, userAgent)
		return VerifySignInDisallowed, nil
	}

	if user.IsLockedOut(now) {
		v.recordAttempt(ctx, user, string(VerifyLockedOut), ipAddress, userAgent)
		return VerifyLockedOut, nil
	}

	// Lockout window elapsed: clear the counter before evaluating this
	// attempt, so the user starts fresh.
	if user.LockoutUntil != nil {
		if err := v.userRepo.ResetFailedLoginAttempts(ctx, user.ID); err != nil {
			v.logger.Error("Failed to clear elapsed lockout", zap.Error(err), zap.String("user_id", user.ID.String()))
			return "", err
		}
		user.LockoutUntil = nil
		user.FailedLoginAttempts = 0
	}

	if !user.HasPassword() {
		v.recordAttempt(ctx, user, string(VerifyIncorrectPassword), ipAddress, userAgent)
		return VerifyIncorrectPassword, nil
	}

	match, err := v.passwordService.CheckPasswordHash(password, user.PasswordHash)
	if err != nil {
		v.logger.Error("Password hash check failed", zap.Error(err), zap.String("user_id", user.ID.String()))
		return "", domainErrors.ErrInternal
	}

	if !match {
		attempts, err := v.userRepo.IncrementFailedLoginAttempts(ctx, user.ID)
		if err != nil {
			v.logger.Error("Failed to increment failed login attempts", zap.Error(err), zap.String("user_id", user.ID.String()))
			return "", err
		}
		if attempts >= v.cfg.LockoutThreshold {
			until := now.Add(v.cfg.LockoutDuration)
			if err := v.userRepo.SetLockout(ctx, user.ID, &until); err != nil {
				v.logger.Error("Failed to set lockout", zap.Error(err), zap.String("user_id", user.ID.String()))
				return "", err
			}
			v.logger.Warn("Account locked out after repeated failures",
				zap.String("user_id", user.ID.String()), zap.Int("attempts", attempts))
			v.recordAttempt(ctx, user, string(VerifyLockedOut), ipAddress, userAgent)
			return VerifyLockedOut, nil
		}
		v.recordAttempt(ctx, user, string(VerifyIncorrectPassword), ipAddress, userAgent)
		return VerifyIncorrectPassword, nil
	}

	if user.FailedLoginAttempts > 0 {
		if err := v.userRepo.ResetFailedLoginAttempts(ctx, user.ID); err != nil {
			v.logger.Error("Failed to reset failed login attempts", zap.Error(err), zap.String("user_id", user.ID.String()))
		}
	}

	if user.TOTPEnabled {
		v.recordAttempt(ctx, user, string(VerifyRequiresSecondFactor), ipAddress, userAgent)
		return VerifyRequiresSecondFactor, nil
	}

	v.recordAttempt(ctx, user, string(VerifySucceeded), ipAddress, userAgent)
	return VerifySucceeded, nil
}

func (v *CredentialVerifier) recordAttempt(ctx context.Context, user *models.User, outcome, ipAddress, userAgent string) {
	status := "failure"
	if outcome == string(VerifySucceeded) || outcome == string(VerifyRequiresSecondFactor) {
		status = "success"
	}
	v.audit.RecordAuthEvent(ctx, &user.ID, "password_verification", status, ipAddress, userAgent,
		map[string]interface{}{"outcome": outcome})
}
