package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/NiponJaiboon/portfolio-auth-service/internal/config"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/domain/models"
)

func newVerifierForTest(userRepo *mockUserRepo, passwords *mockPasswordService) *CredentialVerifier {
	cfg := config.SecurityConfig{LockoutThreshold: 3, LockoutDuration: 15 * time.Minute}
	return NewCredentialVerifier(userRepo, passwords, stubAudit{}, cfg, zap.NewNop())
}

func TestVerify_Success(t *testing.T) {
	userRepo := &mockUserRepo{}
	passwords := &mockPasswordService{}
	v := newVerifierForTest(userRepo, passwords)

	user := &models.User{ID: uuid.New(), Status: models.UserStatusActive, PasswordHash: "hash"}
	passwords.On("CheckPasswordHash", "secret", "hash").Return(true, nil).Once()

	outcome, err := v.Verify(context.Background(), user, "secret", "127.0.0.1", "ua")

	require.NoError(t, err)
	assert.Equal(t, VerifySucceeded, outcome)
}

func TestVerify_LockoutAfterThreshold(t *testing.T) {
	userRepo := &mockUserRepo{}
	passwords := &mockPasswordService{}
	v := newVerifierForTest(userRepo, passwords)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	v.now = func() time.Time { return now }

	user := &models.User{ID: uuid.New(), Status: models.UserStatusActive, PasswordHash: "hash", FailedLoginAttempts: 2}
	passwords.On("CheckPasswordHash", "wrong", "hash").Return(false, nil).Once()
	userRepo.On("IncrementFailedLoginAttempts", mock.Anything, user.ID).Return(3, nil).Once()

	until := now.Add(15 * time.Minute)
	userRepo.On("SetLockout", mock.Anything, user.ID, &until).Return(nil).Once()

	outcome, err := v.Verify(context.Background(), user, "wrong", "127.0.0.1", "ua")

	require.NoError(t, err)
	assert.Equal(t, VerifyLockedOut, outcome)
	userRepo.AssertExpectations(t)
}

func TestVerify_FailureBelowThreshold(t *testing.T) {
	userRepo := &mockUserRepo{}
	passwords := &mockPasswordService{}
	v := newVerifierForTest(userRepo, passwords)

	user := &models.User{ID: uuid.New(), Status: models.UserStatusActive, PasswordHash: "hash"}
	passwords.On("CheckPasswordHash", "wrong", "hash").Return(false, nil).Once()
	userRepo.On("IncrementFailedLoginAttempts", mock.Anything, user.ID).Return(1, nil).Once()

	outcome, err := v.Verify(context.Background(), user, "wrong", "127.0.0.1", "ua")

	require.NoError(t, err)
	assert.Equal(t, VerifyIncorrectPassword, outcome)
	userRepo.AssertNotCalled(t, "SetLockout", mock.Anything, mock.Anything, mock.Anything)
}

func TestVerify_ActiveLockoutRejectsWithoutPasswordCheck(t *testing.T) {
	userRepo := &mockUserRepo{}
	passwords := &mockPasswordService{}
	v := newVerifierForTest(userRepo, passwords)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	v.now = func() time.Time { return now }

	until := now.Add(5 * time.Minute)
	user := &models.User{ID: uuid.New(), Status: models.UserStatusActive, PasswordHash: "hash", LockoutUntil: &until}

	outcome, err := v.Verify(context.Background(), user, "secret", "127.0.0.1", "ua")

	require.NoError(t, err)
	assert.Equal(t, VerifyLockedOut, outcome)
	passwords.AssertNotCalled(t, "CheckPasswordHash", mock.Anything, mock.Anything)
}

func TestVerify_ElapsedLockoutClearsCounter(t *testing.T) {
	userRepo := &mockUserRepo{}
	passwords := &mockPasswordService{}
	v := newVerifierForTest(userRepo, passwords)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	v.now = func() time.Time { return now }

	until := now.Add(-time.Minute)
	user := &models.User{ID: uuid.New(), Status: models.UserStatusActive, PasswordHash: "hash", LockoutUntil: &until, FailedLoginAttempts: 3}

	userRepo.On("ResetFailedLoginAttempts", mock.Anything, user.ID).Return(nil).Once()
	passwords.On("CheckPasswordHash", "secret", "hash").Return(true, nil).Once()

	outcome, err := v.Verify(context.Background(), user, "secret", "127.0.0.1", "ua")

	require.NoError(t, err)
	assert.Equal(t, VerifySucceeded, outcome)
	assert.Nil(t, user.LockoutUntil)
	assert.Zero(t, user.FailedLoginAttempts)
	userRepo.AssertExpectations(t)
}

func TestVerify_SecondFactorRequired(t *testing.T) {
	userRepo := &mockUserRepo{}
	passwords := &mockPasswordService{}
	v := newVerifierForTest(userRepo, passwords)

	user := &models.User{ID: uuid.New(), Status: models.UserStatusActive, PasswordHash: "hash", TOTPEnabled: true}
	passwords.On("CheckPasswordHash", "secret", "hash").Return(true, nil).Once()

	outcome, err := v.Verify(context.Background(), user, "secret", "127.0.0.1", "ua")

	require.NoError(t, err)
	assert.Equal(t, VerifyRequiresSecondFactor, outcome)
}

func TestVerify_BlockedUser(t *testing.T) {
	userRepo := &mockUserRepo{}
	passwords := &mockPasswordService{}
	v := newVerifierForTest(userRepo, passwords)

	user := &models.User{ID: uuid.New(), Status: models.UserStatusBlocked, PasswordHash: "hash"}

	outcome, err := v.Verify(context.Background(), user, "secret", "127.0.0.1", "ua")

	require.NoError(t, err)
	assert.Equal(t, VerifySignInDisallowed, outcome)
	passwords.AssertNotCalled(t, "CheckPasswordHash", mock.Anything, mock.Anything)
}

func TestVerify_PasswordlessAccount(t *testing.T) {
	userRepo := &mockUserRepo{}
	passwords := &mockPasswordService{}
	v := newVerifierForTest(userRepo, passwords)

	user := &models.User{ID: uuid.New(), Status: models.UserStatusActive}

	outcome, err := v.Verify(context.Background(), user, "secret", "127.0.0.1", "ua")

	require.NoError(t, err)
	assert.Equal(t, VerifyIncorrectPassword, outcome)
	passwords.AssertNotCalled(t, "CheckPasswordHash", mock.Anything, mock.Anything)
}
