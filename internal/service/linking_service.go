package service

import (
	"context"
	"fmt"
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
	"github.com/NiponJaiboon/portfolio-auth-service/internal/utils/crypto"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/utils/metrics"
)

const conflictTokenBytes = 32

// LinkingService attaches and detaches external identities on existing
// accounts, mediating the conflicts that come up when an identity is already
// spoken for.
type LinkingService struct {
	userRepo      repository.UserRepository
	externalRepo  repository.ExternalAccountRepository
	conflictStore repository.ConflictStore
	passwordSvc   interfaces.PasswordService
	audit         interfaces.AuditRecorder
	publisher     kafka.Publisher
	cfg           config.LinkingConfig
	logger        *zap.Logger
	now           func() time.Time
}

// NewLinkingService creates a LinkingService.
func NewLinkingService(
	userRepo repository.UserRepository,
	externalRepo repository.ExternalAccountRepository,
	conflictStore repository.ConflictStore,
	passwordSvc interfaces.PasswordService,
	audit interfaces.AuditRecorder,
	publisher kafka.Publisher,
	cfg config.LinkingConfig,
	logger *zap.Logger,
) *LinkingService {
	return &LinkingService{
		userRepo:      userRepo,
		externalRepo:  externalRepo,
		conflictStore: conflictStore,
		passwordSvc:   passwordSvc,
		audit:         audit,
		publisher:     publisher,
		cfg:           cfg,
		logger:        logger,
		now:           time.Now,
	}
}

// DetectConflicts inspects an identity the user wants to attach and returns
// every conflict that stands in the way, in a fixed order: email mismatch,
// identity claimed elsewhere, duplicate provider.
func (s *LinkingService) DetectConflicts(ctx context.Context, user *models.User, identity *models.ExternalIdentity) ([]models.LinkingConflict, error) {
	var conflicts []models.LinkingConflict

	if identity.Email != "" && !strings.EqualFold(identity.Email, user.Email) {
		conflicts = append(conflicts, models.LinkingConflict{
			Type:               models.ConflictEmailMismatch,
			Description:        fmt.Sprintf("The %s account uses a different email address than this account.", identity.Provider),
			AllowedResolutions: []models.ConflictResolution{models.ResolutionLink, models.ResolutionCancel},
		})
	}

	existing, err := s.externalRepo.FindByProviderUserID(ctx, identity.Provider, identity.ProviderUserID)
	if err == nil && existing.UserID != user.ID {
		claimedBy := existing.UserID
		conflicts = append(conflicts, models.LinkingConflict{
			Type:               models.ConflictIdentityClaimed,
			Description:        fmt.Sprintf("This %s identity is already linked to another account.", identity.Provider),
			AllowedResolutions: []models.ConflictResolution{models.ResolutionReplace, models.ResolutionCancel},
			ClaimedByUserID:    &claimedBy,
		})
	} else if err != nil && !domainErrors.IsNotFound(err) {
		return nil, err
	}

	ownLinks, err := s.externalRepo.ListByUserAndProvider(ctx, user.ID, identity.Provider)
	if err != nil {
		return nil, err
	}
	for _, link := range ownLinks {
		if link.ProviderUserID != identity.ProviderUserID {
			conflicts = append(conflicts, models.LinkingConflict{
				Type:               models.ConflictDuplicateProvider,
				Description:        fmt.Sprintf("This account already has a different %s identity linked.", identity.Provider),
				AllowedResolutions: []models.ConflictResolution{models.ResolutionReplace, models.ResolutionCancel},
			})
			break
		}
	}

	for _, c := range conflicts {
		metrics.LinkConflictsTotal.WithLabelValues(string(c.Type)).Inc()
	}
	return conflicts, nil
}

// InitiateLinking checks that the provider slot is open before the client is
// sent off to the provider. With force the caller intends to replace the
// existing link and the check is waived.
func (s *LinkingService) InitiateLinking(ctx context.Context, userID uuid.UUID, provider string, force bool) error {
	if force {
		return nil
	}
	links, err := s.externalRepo.ListByUserAndProvider(ctx, userID, provider)
	if err != nil {
		return err
	}
	if len(links) > 0 {
		return domainErrors.ErrProviderAlreadyLinked
	}
	return nil
}

// CompleteLinking attaches the identity to the user, or parks the attempt
// behind a single-use conflict token when conflicts are detected. With
// forceLink the caller accepts an email mismatch up front; conflicts that
// involve other accounts still demand explicit resolution.
func (s *LinkingService) CompleteLinking(ctx context.Context, userID uuid.UUID, identity *models.ExternalIdentity, forceLink bool) (*models.LinkingResult, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if existing, err := s.externalRepo.FindByProviderUserID(ctx, identity.Provider, identity.ProviderUserID); err == nil && existing.UserID == userID {
		return nil, domainErrors.ErrProviderAlreadyLinked
	} else if err != nil && !domainErrors.IsNotFound(err) {
		return nil, err
	}

	conflicts, err := s.DetectConflicts(ctx, user, identity)
	if err != nil {
		return nil, err
	}
	if forceLink {
		conflicts = filterConflicts(conflicts, models.ConflictEmailMismatch)
	}
	if len(conflicts) > 0 {
		return s.parkConflicts(ctx, userID, identity, conflicts)
	}

	account, err := s.attach(ctx, userID, identity)
	if err != nil {
		return nil, err
	}
	return &models.LinkingResult{Linked: true, Account: account}, nil
}

// ResolveConflict consumes a pending conflict token and applies the chosen
// resolution. The token is invalidated on first use whatever the outcome.
func (s *LinkingService) ResolveConflict(ctx context.Context, userID uuid.UUID, req *models.ResolveConflictRequest) (*models.LinkingResult, error) {
	pending, err := s.conflictStore.Take(ctx, req.ConflictToken)
	if err != nil {
		return nil, err
	}
	if pending.UserID != userID {
		s.audit.RecordSecurityEvent(ctx, &userID, "conflict_token_owner_mismatch", map[string]interface{}{
			"token_owner": pending.UserID.String(),
		})
		return nil, domainErrors.ErrForbidden
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	// A supplied password must verify before any resolution is applied.
	// Replacing a link is destructive, so it always reconfirms the password
	// when the account has one.
	if req.Password != "" || (req.Resolution == models.ResolutionReplace && user.HasPassword()) {
		if !user.HasPassword() {
			return nil, domainErrors.ErrInvalidPassword
		}
		match, err := s.passwordSvc.CheckPasswordHash(req.Password, user.PasswordHash)
		if err != nil {
			return nil, err
		}
		if !match {
			return nil, domainErrors.ErrInvalidPassword
		}
	}

	if !resolutionAllowed(pending.Conflicts, req.Resolution) {
		return nil, domainErrors.ErrConflictConfirmation
	}

	switch req.Resolution {
	case models.ResolutionCancel:
		s.audit.RecordActivity(ctx, userID, "link_conflict_cancelled", map[string]interface{}{
			"provider": pending.Identity.Provider,
		})
		return &models.LinkingResult{Linked: false}, nil

	case models.ResolutionLink:
		account, err := s.attach(ctx, userID, &pending.Identity)
		if err != nil {
			return nil, err
		}
		return &models.LinkingResult{Linked: true, Account: account}, nil

	case models.ResolutionReplace:
		if err := s.displace(ctx, userID, pending); err != nil {
			return nil, err
		}
		account, err := s.attach(ctx, userID, &pending.Identity)
		if err != nil {
			return nil, err
		}
		return &models.LinkingResult{Linked: true, Account: account}, nil

	default:
		return nil, domainErrors.ErrInvalidRequest
	}
}

// displace clears whatever currently holds the identity or the provider
// slot, per the conflicts recorded at detection time.
func (s *LinkingService) displace(ctx context.Context, userID uuid.UUID, pending *models.PendingConflict) error {
	for _, c := range pending.Conflicts {
		switch c.Type {
		case models.ConflictIdentityClaimed:
			if c.ClaimedByUserID == nil {
				continue
			}
			if err := s.externalRepo.DeleteByKey(ctx, *c.ClaimedByUserID, pending.Identity.Provider, pending.Identity.ProviderUserID); err != nil {
				return err
			}
			s.audit.RecordSecurityEvent(ctx, c.ClaimedByUserID, "external_identity_reassigned", map[string]interface{}{
				"provider":    pending.Identity.Provider,
				"new_user_id": userID.String(),
			})
			s.publishLinkEvent(ctx, models.AuthAccountUnlinkedV1, *c.ClaimedByUserID, pending.Identity.Provider, string(c.Type), string(models.ResolutionReplace))

		case models.ConflictDuplicateProvider:
			links, err := s.externalRepo.ListByUserAndProvider(ctx, userID, pending.Identity.Provider)
			if err != nil {
				return err
			}
			for _, link := range links {
				if err := s.externalRepo.Delete(ctx, link.ID); err != nil {
					return err
				}
				s.publishLinkEvent(ctx, models.AuthAccountUnlinkedV1, userID, link.Provider, string(c.Type), string(models.ResolutionReplace))
			}
		}
	}
	return nil
}

func (s *LinkingService) parkConflicts(ctx context.Context, userID uuid.UUID, identity *models.ExternalIdentity, conflicts []models.LinkingConflict) (*models.LinkingResult, error) {
	token, err := crypto.GenerateOpaqueToken(conflictTokenBytes)
	if err != nil {
		return nil, err
	}
	now := s.now()
	pending := &models.PendingConflict{
		Token:     token,
		UserID:    userID,
		Identity:  *identity,
		Conflicts: conflicts,
		CreatedAt: now,
	}
	if err := s.conflictStore.Put(ctx, pending, s.cfg.ConflictTokenTTL); err != nil {
		return nil, err
	}

	expiresAt := now.Add(s.cfg.ConflictTokenTTL)
	s.publishLinkEvent(ctx, models.AuthLinkConflictV1, userID, identity.Provider, string(conflicts[0].Type), "")
	s.logger.Info("Linking parked on conflicts",
		zap.String("user_id", userID.String()),
		zap.String("provider", identity.Provider),
		zap.Int("conflicts", len(conflicts)))

	return &models.LinkingResult{
		Linked:        false,
		ConflictToken: token,
		Conflicts:     conflicts,
		ExpiresAt:     &expiresAt,
	}, nil
}

func (s *LinkingService) attach(ctx context.Context, userID uuid.UUID, identity *models.ExternalIdentity) (*models.ExternalAccount, error) {
	account := &models.ExternalAccount{
		ID:              uuid.New(),
		UserID:          userID,
		Provider:        identity.Provider,
		ProviderUserID:  identity.ProviderUserID,
		ProviderDisplay: identity.DisplayName,
		LinkedAt:        s.now(),
	}
	if err := s.externalRepo.Create(ctx, account); err != nil {
		return nil, err
	}

	s.audit.RecordActivity(ctx, userID, "external_identity_linked", map[string]interface{}{
		"provider": identity.Provider,
	})
	s.publishLinkEvent(ctx, models.AuthAccountLinkedV1, userID, identity.Provider, "", "")
	return account, nil
}

// CanUnlink reports whether removing the named link would leave the user
// with at least one way to sign in.
func (s *LinkingService) CanUnlink(ctx context.Context, userID uuid.UUID, provider, providerUserID string) (bool, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return false, err
	}
	if user.HasPassword() {
		return true, nil
	}
	links, err := s.externalRepo.ListByUserID(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, link := range links {
		if link.Provider == provider && link.ProviderUserID == providerUserID {
			continue
		}
		return true, nil
	}
	return false, nil
}

// Unlink removes an external identity from the account, refusing when it is
// the only remaining sign-in method.
func (s *LinkingService) Unlink(ctx context.Context, userID uuid.UUID, provider, providerUserID string) error {
	ok, err := s.CanUnlink(ctx, userID, provider, providerUserID)
	if err != nil {
		return err
	}
	if !ok {
		return domainErrors.ErrLastCredential
	}
	if err := s.externalRepo.DeleteByKey(ctx, userID, provider, providerUserID); err != nil {
		return err
	}

	s.audit.RecordActivity(ctx, userID, "external_identity_unlinked", map[string]interface{}{
		"provider": provider,
	})
	s.publishLinkEvent(ctx, models.AuthAccountUnlinkedV1, userID, provider, "", "")
	return nil
}

// BulkAction applies a bulk operation across the user's links.
func (s *LinkingService) BulkAction(ctx context.Context, userID uuid.UUID, req *models.BulkLinkRequest) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	switch req.Action {
	case models.BulkActionUnlinkAll:
		// Without a password the external links are the only credentials.
		if !user.HasPassword() {
			return domainErrors.ErrLastCredential
		}
		match, err := s.passwordSvc.CheckPasswordHash(req.Password, user.PasswordHash)
		if err != nil {
			return err
		}
		if !match {
			return domainErrors.ErrInvalidPassword
		}
		count, err := s.externalRepo.DeleteAllByUserID(ctx, userID)
		if err != nil {
			return err
		}
		s.audit.RecordActivity(ctx, userID, "external_identities_unlinked_all", map[string]interface{}{
			"count": count,
		})
		s.publishLinkEvent(ctx, models.AuthAccountUnlinkedV1, userID, "", "", "")
		return nil

	case models.BulkActionSetPrimary:
		links, err := s.externalRepo.ListByUserAndProvider(ctx, userID, req.Provider)
		if err != nil {
			return err
		}
		if len(links) == 0 {
			return domainErrors.ErrNotFound
		}
		if err := s.externalRepo.SetPrimary(ctx, userID, req.Provider, links[0].ProviderUserID); err != nil {
			return err
		}
		s.audit.RecordActivity(ctx, userID, "external_identity_set_primary", map[string]interface{}{
			"provider": req.Provider,
		})
		return nil

	default:
		return domainErrors.ErrInvalidRequest
	}
}

// CalculateSecurityScore scores how well the account is protected: the
// more independent ways to sign in and recover, the higher the score.
func (s *LinkingService) CalculateSecurityScore(user *models.User, links []models.ExternalAccount) models.SecurityScore {
	score := models.SecurityScore{Score: 20, Factors: []string{"account active"}}

	if user.HasPassword() {
		score.Score += 25
		score.Factors = append(score.Factors, "password set")
	} else {
		score.Suggestions = append(score.Suggestions, "Set a password so you can sign in without an external provider.")
	}

	if len(links) >= 1 {
		score.Score += 20
		score.Factors = append(score.Factors, "external provider linked")
	} else {
		score.Suggestions = append(score.Suggestions, "Link an external provider as a backup sign-in method.")
	}
	if len(links) > 1 {
		score.Score += 15
		score.Factors = append(score.Factors, "multiple external providers linked")
	} else if len(links) == 1 {
		score.Suggestions = append(score.Suggestions, "Link a second provider in case one becomes unavailable.")
	}

	if user.EmailVerified() {
		score.Score += 20
		score.Factors = append(score.Factors, "email verified")
	} else {
		score.Suggestions = append(score.Suggestions, "Verify your email address to enable account recovery.")
	}

	switch {
	case score.Score >= 80:
		score.Level = models.SecurityLevelExcellent
	case score.Score >= 60:
		score.Level = models.SecurityLevelStrong
	case score.Score >= 40:
		score.Level = models.SecurityLevelGood
	default:
		score.Level = models.SecurityLevelBasic
	}
	return score
}

// GetLinkSummary returns the account-linking overview: links, credentials
// on file and the derived security score.
func (s *LinkingService) GetLinkSummary(ctx context.Context, userID uuid.UUID) (*models.LinkSummary, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	links, err := s.externalRepo.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &models.LinkSummary{
		HasPassword:   user.HasPassword(),
		EmailVerified: user.EmailVerified(),
		Links:         links,
		Score:         s.CalculateSecurityScore(user, links),
	}, nil
}

func (s *LinkingService) publishLinkEvent(ctx context.Context, eventType string, userID uuid.UUID, provider, conflictType, resolution string) {
	payload := models.AccountLinkPayload{
		UserID:     userID.String(),
		Provider:   provider,
		Conflict:   conflictType,
		Resolution: resolution,
		OccurredAt: s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, eventType, userID.String(), payload); err != nil {
		s.logger.Error("Failed to publish account link event", zap.String("event_type", eventType), zap.Error(err))
	}
}

func filterConflicts(conflicts []models.LinkingConflict, drop models.ConflictType) []models.LinkingConflict {
	kept := conflicts[:0]
	for _, c := range conflicts {
		if c.Type != drop {
			kept = append(kept, c)
		}
	}
	return kept
}

func resolutionAllowed(conflicts []models.LinkingConflict, resolution models.ConflictResolution) bool {
	if len(conflicts) == 0 {
		return false
	}
	switch resolution {
	case models.ResolutionCancel:
		return true
	case models.ResolutionLink:
		// Link only accepts an email mismatch; it cannot paper over a
		// claimed identity or a duplicate provider.
		for _, c := range conflicts {
			if c.Type != models.ConflictEmailMismatch {
				return false
			}
		}
		return true
	case models.ResolutionReplace:
		// Replace addresses claimed/duplicate conflicts and implies
		// accepting an email mismatch alongside them.
		for _, c := range conflicts {
			if c.Type == models.ConflictIdentityClaimed || c.Type == models.ConflictDuplicateProvider {
				return true
			}
		}
		return false
	default:
		return false
	}
}
