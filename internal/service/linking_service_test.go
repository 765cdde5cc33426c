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
	domainErrors "github.com/NiponJaiboon/portfolio-auth-service/internal/domain/errors"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/domain/models"
)

type linkingFixture struct {
	users     *mockUserRepo
	external  *mockExternalAccountRepo
	conflicts *mockConflictStore
	passwords *mockPasswordService
	pub       *recordingPublisher
	svc       *LinkingService
}

func newLinkingFixture() *linkingFixture {
	f := &linkingFixture{
		users:     &mockUserRepo{},
		external:  &mockExternalAccountRepo{},
		conflicts: &mockConflictStore{},
		passwords: &mockPasswordService{},
		pub:       &recordingPublisher{},
	}
	cfg := config.LinkingConfig{ConflictTokenTTL: 10 * time.Minute}
	f.svc = NewLinkingService(f.users, f.external, f.conflicts, f.passwords, stubAudit{}, f.pub, cfg, zap.NewNop())
	return f
}

func githubIdentity(email string) *models.ExternalIdentity {
	return &models.ExternalIdentity{
		Provider:       "github",
		ProviderUserID: "gh-12345",
		Email:          email,
		DisplayName:    "octocat",
	}
}

func TestDetectConflicts_OrderAndContents(t *testing.T) {
	f := newLinkingFixture()
	user := &models.User{ID: uuid.New(), Email: "nipon@example.com", PasswordHash: "hash"}
	identity := githubIdentity("other@example.com")
	claimedBy := uuid.New()

	f.external.On("FindByProviderUserID", mock.Anything, "github", "gh-12345").
		Return(&models.ExternalAccount{UserID: claimedBy, Provider: "github", ProviderUserID: "gh-12345"}, nil).Once()
	f.external.On("ListByUserAndProvider", mock.Anything, user.ID, "github").
		Return([]models.ExternalAccount{{UserID: user.ID, Provider: "github", ProviderUserID: "gh-99999"}}, nil).Once()

	conflicts, err := f.svc.DetectConflicts(context.Background(), user, identity)

	require.NoError(t, err)
	require.Len(t, conflicts, 3)
	assert.Equal(t, models.ConflictEmailMismatch, conflicts[0].Type)
	assert.Equal(t, models.ConflictIdentityClaimed, conflicts[1].Type)
	require.NotNil(t, conflicts[1].ClaimedByUserID)
	assert.Equal(t, claimedBy, *conflicts[1].ClaimedByUserID)
	assert.Equal(t, models.ConflictDuplicateProvider, conflicts[2].Type)
}

func TestDetectConflicts_CaseInsensitiveEmail(t *testing.T) {
	f := newLinkingFixture()
	user := &models.User{ID: uuid.New(), Email: "nipon@example.com"}
	identity := githubIdentity("Nipon@Example.COM")

	f.external.On("FindByProviderUserID", mock.Anything, "github", "gh-12345").
		Return(nil, domainErrors.ErrNotFound).Once()
	f.external.On("ListByUserAndProvider", mock.Anything, user.ID, "github").
		Return([]models.ExternalAccount{}, nil).Once()

	conflicts, err := f.svc.DetectConflicts(context.Background(), user, identity)

	require.NoError(t, err)
	assert.Empty(t, conflicts)
}

func TestCompleteLinking_CleanAttach(t *testing.T) {
	f := newLinkingFixture()
	user := &models.User{ID: uuid.New(), Email: "nipon@example.com"}
	identity := githubIdentity("nipon@example.com")

	f.users.On("FindByID", mock.Anything, user.ID).Return(user, nil).Once()
	f.external.On("FindByProviderUserID", mock.Anything, "github", "gh-12345").
		Return(nil, domainErrors.ErrNotFound).Twice()
	f.external.On("ListByUserAndProvider", mock.Anything, user.ID, "github").
		Return([]models.ExternalAccount{}, nil).Once()
	f.external.On("Create", mock.Anything, mock.AnythingOfType("*models.ExternalAccount")).Return(nil).Once()

	result, err := f.svc.CompleteLinking(context.Background(), user.ID, identity, false)

	require.NoError(t, err)
	assert.True(t, result.Linked)
	require.NotNil(t, result.Account)
	assert.Equal(t, "gh-12345", result.Account.ProviderUserID)
	assert.True(t, f.pub.published(models.AuthAccountLinkedV1))
}

func TestCompleteLinking_SamePairAlreadyLinked(t *testing.T) {
	f := newLinkingFixture()
	user := &models.User{ID: uuid.New(), Email: "nipon@example.com"}
	identity := githubIdentity("nipon@example.com")

	f.users.On("FindByID", mock.Anything, user.ID).Return(user, nil).Once()
	f.external.On("FindByProviderUserID", mock.Anything, "github", "gh-12345").
		Return(&models.ExternalAccount{UserID: user.ID}, nil).Once()

	_, err := f.svc.CompleteLinking(context.Background(), user.ID, identity, false)

	assert.ErrorIs(t, err, domainErrors.ErrProviderAlreadyLinked)
}

func TestCompleteLinking_ParksOnConflict(t *testing.T) {
	f := newLinkingFixture()
	user := &models.User{ID: uuid.New(), Email: "nipon@example.com"}
	identity := githubIdentity("other@example.com")

	f.users.On("FindByID", mock.Anything, user.ID).Return(user, nil).Once()
	f.external.On("FindByProviderUserID", mock.Anything, "github", "gh-12345").
		Return(nil, domainErrors.ErrNotFound).Twice()
	f.external.On("ListByUserAndProvider", mock.Anything, user.ID, "github").
		Return([]models.ExternalAccount{}, nil).Once()

	var parked *models.PendingConflict
	f.conflicts.On("Put", mock.Anything, mock.AnythingOfType("*models.PendingConflict"), 10*time.Minute).Run(func(args mock.Arguments) {
		parked = args.Get(1).(*models.PendingConflict)
	}).Return(nil).Once()

	result, err := f.svc.CompleteLinking(context.Background(), user.ID, identity, false)

	require.NoError(t, err)
	assert.False(t, result.Linked)
	assert.NotEmpty(t, result.ConflictToken)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, models.ConflictEmailMismatch, result.Conflicts[0].Type)
	require.NotNil(t, parked)
	assert.Equal(t, result.ConflictToken, parked.Token)
	assert.True(t, f.pub.published(models.AuthLinkConflictV1))
	f.external.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCompleteLinking_ForceLinkWaivesEmailMismatchOnly(t *testing.T) {
	f := newLinkingFixture()
	user := &models.User{ID: uuid.New(), Email: "nipon@example.com"}
	identity := githubIdentity("other@example.com")

	f.users.On("FindByID", mock.Anything, user.ID).Return(user, nil).Once()
	f.external.On("FindByProviderUserID", mock.Anything, "github", "gh-12345").
		Return(nil, domainErrors.ErrNotFound).Twice()
	f.external.On("ListByUserAndProvider", mock.Anything, user.ID, "github").
		Return([]models.ExternalAccount{}, nil).Once()
	f.external.On("Create", mock.Anything, mock.AnythingOfType("*models.ExternalAccount")).Return(nil).Once()

	result, err := f.svc.CompleteLinking(context.Background(), user.ID, identity, true)

	require.NoError(t, err)
	assert.True(t, result.Linked)
}

func TestResolveConflict_TokenIsSingleUse(t *testing.T) {
	f := newLinkingFixture()
	userID := uuid.New()

	f.conflicts.On("Take", mock.Anything, "spent-token").Return(nil, domainErrors.ErrConflictTokenNotFound).Once()

	_, err := f.svc.ResolveConflict(context.Background(), userID, &models.ResolveConflictRequest{
		ConflictToken: "spent-token",
		Resolution:    models.ResolutionCancel,
	})

	assert.ErrorIs(t, err, domainErrors.ErrConflictTokenNotFound)
}

func TestResolveConflict_OwnerMismatch(t *testing.T) {
	f := newLinkingFixture()
	owner := uuid.New()
	intruder := uuid.New()

	pending := &models.PendingConflict{Token: "tok", UserID: owner, Identity: *githubIdentity("a@b.c")}
	f.conflicts.On("Take", mock.Anything, "tok").Return(pending, nil).Once()

	_, err := f.svc.ResolveConflict(context.Background(), intruder, &models.ResolveConflictRequest{
		ConflictToken: "tok",
		Resolution:    models.ResolutionCancel,
	})

	assert.ErrorIs(t, err, domainErrors.ErrForbidden)
}

func TestResolveConflict_LinkRejectedForClaimedIdentity(t *testing.T) {
	f := newLinkingFixture()
	user := &models.User{ID: uuid.New(), Email: "nipon@example.com"}
	claimedBy := uuid.New()

	pending := &models.PendingConflict{
		Token:    "tok",
		UserID:   user.ID,
		Identity: *githubIdentity("nipon@example.com"),
		Conflicts: []models.LinkingConflict{{
			Type:            models.ConflictIdentityClaimed,
			ClaimedByUserID: &claimedBy,
		}},
	}
	f.conflicts.On("Take", mock.Anything, "tok").Return(pending, nil).Once()
	f.users.On("FindByID", mock.Anything, user.ID).Return(user, nil).Once()

	_, err := f.svc.ResolveConflict(context.Background(), user.ID, &models.ResolveConflictRequest{
		ConflictToken: "tok",
		Resolution:    models.ResolutionLink,
	})

	assert.ErrorIs(t, err, domainErrors.ErrConflictConfirmation)
}

func TestResolveConflict_ReplaceDisplacesClaimedLink(t *testing.T) {
	f := newLinkingFixture()
	user := &models.User{ID: uuid.New(), Email: "nipon@example.com", PasswordHash: "hash"}
	claimedBy := uuid.New()
	identity := githubIdentity("nipon@example.com")

	pending := &models.PendingConflict{
		Token:    "tok",
		UserID:   user.ID,
		Identity: *identity,
		Conflicts: []models.LinkingConflict{{
			Type:            models.ConflictIdentityClaimed,
			ClaimedByUserID: &claimedBy,
		}},
	}
	f.conflicts.On("Take", mock.Anything, "tok").Return(pending, nil).Once()
	f.users.On("FindByID", mock.Anything, user.ID).Return(user, nil).Once()
	f.passwords.On("CheckPasswordHash", "secret", "hash").Return(true, nil).Once()
	f.external.On("DeleteByKey", mock.Anything, claimedBy, "github", "gh-12345").Return(nil).Once()
	f.external.On("Create", mock.Anything, mock.AnythingOfType("*models.ExternalAccount")).Return(nil).Once()

	result, err := f.svc.ResolveConflict(context.Background(), user.ID, &models.ResolveConflictRequest{
		ConflictToken: "tok",
		Resolution:    models.ResolutionReplace,
		Password:      "secret",
	})

	require.NoError(t, err)
	assert.True(t, result.Linked)
	assert.True(t, f.pub.published(models.AuthAccountUnlinkedV1))
	f.external.AssertExpectations(t)
}

func TestResolveConflict_ReplaceRequiresCorrectPassword(t *testing.T) {
	f := newLinkingFixture()
	user := &models.User{ID: uuid.New(), Email: "nipon@example.com", PasswordHash: "hash"}
	claimedBy := uuid.New()

	pending := &models.PendingConflict{
		Token:    "tok",
		UserID:   user.ID,
		Identity: *githubIdentity("nipon@example.com"),
		Conflicts: []models.LinkingConflict{{
			Type:            models.ConflictIdentityClaimed,
			ClaimedByUserID: &claimedBy,
		}},
	}
	f.conflicts.On("Take", mock.Anything, "tok").Return(pending, nil).Once()
	f.users.On("FindByID", mock.Anything, user.ID).Return(user, nil).Once()
	f.passwords.On("CheckPasswordHash", "wrong", "hash").Return(false, nil).Once()

	_, err := f.svc.ResolveConflict(context.Background(), user.ID, &models.ResolveConflictRequest{
		ConflictToken: "tok",
		Resolution:    models.ResolutionReplace,
		Password:      "wrong",
	})

	assert.ErrorIs(t, err, domainErrors.ErrInvalidPassword)
}

func TestResolveConflict_SuppliedPasswordMustVerify(t *testing.T) {
	f := newLinkingFixture()
	user := &models.User{ID: uuid.New(), Email: "nipon@example.com", PasswordHash: "hash"}

	pending := &models.PendingConflict{
		Token:    "tok",
		UserID:   user.ID,
		Identity: *githubIdentity("other@example.com"),
		Conflicts: []models.LinkingConflict{{
			Type: models.ConflictEmailMismatch,
		}},
	}
	f.conflicts.On("Take", mock.Anything, "tok").Return(pending, nil).Once()
	f.users.On("FindByID", mock.Anything, user.ID).Return(user, nil).Once()
	f.passwords.On("CheckPasswordHash", "definitely-wrong", "hash").Return(false, nil).Once()

	_, err := f.svc.ResolveConflict(context.Background(), user.ID, &models.ResolveConflictRequest{
		ConflictToken: "tok",
		Resolution:    models.ResolutionLink,
		Password:      "definitely-wrong",
	})

	assert.ErrorIs(t, err, domainErrors.ErrInvalidPassword)
	f.passwords.AssertExpectations(t)
	f.external.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestInitiateLinking(t *testing.T) {
	t.Run("open provider slot", func(t *testing.T) {
		f := newLinkingFixture()
		userID := uuid.New()
		f.external.On("ListByUserAndProvider", mock.Anything, userID, "github").
			Return([]models.ExternalAccount{}, nil).Once()

		assert.NoError(t, f.svc.InitiateLinking(context.Background(), userID, "github", false))
	})

	t.Run("provider already linked", func(t *testing.T) {
		f := newLinkingFixture()
		userID := uuid.New()
		f.external.On("ListByUserAndProvider", mock.Anything, userID, "github").
			Return([]models.ExternalAccount{{UserID: userID, Provider: "github", ProviderUserID: "gh-12345"}}, nil).Once()

		err := f.svc.InitiateLinking(context.Background(), userID, "github", false)
		assert.ErrorIs(t, err, domainErrors.ErrProviderAlreadyLinked)
	})

	t.Run("force waives the check", func(t *testing.T) {
		f := newLinkingFixture()
		userID := uuid.New()

		assert.NoError(t, f.svc.InitiateLinking(context.Background(), userID, "github", true))
		f.external.AssertNotCalled(t, "ListByUserAndProvider", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestUnlink_PublishesUnlinkEvent(t *testing.T) {
	f := newLinkingFixture()
	user := &models.User{ID: uuid.New(), PasswordHash: "hash"}

	f.users.On("FindByID", mock.Anything, user.ID).Return(user, nil).Once()
	f.external.On("DeleteByKey", mock.Anything, user.ID, "github", "gh-12345").Return(nil).Once()

	err := f.svc.Unlink(context.Background(), user.ID, "github", "gh-12345")

	require.NoError(t, err)
	assert.True(t, f.pub.published(models.AuthAccountUnlinkedV1))
}

func TestCanUnlink(t *testing.T) {
	t.Run("password holder can always unlink", func(t *testing.T) {
		f := newLinkingFixture()
		user := &models.User{ID: uuid.New(), PasswordHash: "hash"}
		f.users.On("FindByID", mock.Anything, user.ID).Return(user, nil).Once()

		ok, err := f.svc.CanUnlink(context.Background(), user.ID, "github", "gh-12345")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("last link of passwordless account", func(t *testing.T) {
		f := newLinkingFixture()
		user := &models.User{ID: uuid.New()}
		f.users.On("FindByID", mock.Anything, user.ID).Return(user, nil).Once()
		f.external.On("ListByUserID", mock.Anything, user.ID).Return([]models.ExternalAccount{
			{UserID: user.ID, Provider: "github", ProviderUserID: "gh-12345"},
		}, nil).Once()

		ok, err := f.svc.CanUnlink(context.Background(), user.ID, "github", "gh-12345")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("another link remains", func(t *testing.T) {
		f := newLinkingFixture()
		user := &models.User{ID: uuid.New()}
		f.users.On("FindByID", mock.Anything, user.ID).Return(user, nil).Once()
		f.external.On("ListByUserID", mock.Anything, user.ID).Return([]models.ExternalAccount{
			{UserID: user.ID, Provider: "github", ProviderUserID: "gh-12345"},
			{UserID: user.ID, Provider: "google", ProviderUserID: "g-777"},
		}, nil).Once()

		ok, err := f.svc.CanUnlink(context.Background(), user.ID, "github", "gh-12345")
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestUnlink_RefusesLastCredential(t *testing.T) {
	f := newLinkingFixture()
	user := &models.User{ID: uuid.New()}
	f.users.On("FindByID", mock.Anything, user.ID).Return(user, nil).Once()
	f.external.On("ListByUserID", mock.Anything, user.ID).Return([]models.ExternalAccount{
		{UserID: user.ID, Provider: "github", ProviderUserID: "gh-12345"},
	}, nil).Once()

	err := f.svc.Unlink(context.Background(), user.ID, "github", "gh-12345")

	assert.ErrorIs(t, err, domainErrors.ErrLastCredential)
	f.external.AssertNotCalled(t, "DeleteByKey", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestBulkAction_UnlinkAll(t *testing.T) {
	f := newLinkingFixture()
	user := &models.User{ID: uuid.New(), PasswordHash: "hash"}

	f.users.On("FindByID", mock.Anything, user.ID).Return(user, nil).Once()
	f.passwords.On("CheckPasswordHash", "secret", "hash").Return(true, nil).Once()
	f.external.On("DeleteAllByUserID", mock.Anything, user.ID).Return(int64(2), nil).Once()

	err := f.svc.BulkAction(context.Background(), user.ID, &models.BulkLinkRequest{
		Action:   models.BulkActionUnlinkAll,
		Password: "secret",
	})

	require.NoError(t, err)
	f.external.AssertExpectations(t)
}

func TestBulkAction_UnlinkAllNeedsPassword(t *testing.T) {
	f := newLinkingFixture()
	user := &models.User{ID: uuid.New()}
	f.users.On("FindByID", mock.Anything, user.ID).Return(user, nil).Once()

	err := f.svc.BulkAction(context.Background(), user.ID, &models.BulkLinkRequest{Action: models.BulkActionUnlinkAll})

	assert.ErrorIs(t, err, domainErrors.ErrLastCredential)
}

func TestCalculateSecurityScore_Bands(t *testing.T) {
	f := newLinkingFixture()
	verifiedAt := time.Now()

	cases := []struct {
		name      string
		user      *models.User
		links     []models.ExternalAccount
		wantScore int
		wantLevel models.SecurityScoreLevel
	}{
		{
			name:      "bare account",
			user:      &models.User{},
			wantScore: 20,
			wantLevel: models.SecurityLevelBasic,
		},
		{
			name:      "password only",
			user:      &models.User{PasswordHash: "hash"},
			wantScore: 45,
			wantLevel: models.SecurityLevelGood,
		},
		{
			name:      "password and verified email",
			user:      &models.User{PasswordHash: "hash", EmailVerifiedAt: &verifiedAt},
			wantScore: 65,
			wantLevel: models.SecurityLevelStrong,
		},
		{
			name:      "everything",
			user:      &models.User{PasswordHash: "hash", EmailVerifiedAt: &verifiedAt},
			links:     []models.ExternalAccount{{Provider: "github"}, {Provider: "google"}},
			wantScore: 100,
			wantLevel: models.SecurityLevelExcellent,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			score := f.svc.CalculateSecurityScore(c.user, c.links)
			assert.Equal(t, c.wantScore, score.Score)
			assert.Equal(t, c.wantLevel, score.Level)
		})
	}
}
