package models

import (
	"time"

	"github.com/google/uuid"
)

// ConflictType identifies why attaching an external identity needs an
// explicit user decision.
type ConflictType string

const (
	ConflictEmailMismatch     ConflictType = "email_mismatch"
	ConflictIdentityClaimed   ConflictType = "identity_claimed"
	ConflictDuplicateProvider ConflictType = "duplicate_provider"
)

// ConflictResolution is the user's decision on a linking conflict.
type ConflictResolution string

const (
	ResolutionLink    ConflictResolution = "link"
	ResolutionReplace ConflictResolution = "replace"
	ResolutionCancel  ConflictResolution = "cancel"
)

// LinkingConflict describes one detected conflict and the resolutions the
// user may choose from.
type LinkingConflict struct {
	Type               ConflictType         `json:"type"`
	Description        string               `json:"description"`
	AllowedResolutions []ConflictResolution `json:"allowed_resolutions"`
	// ClaimedByUserID is set for identity_claimed conflicts.
	ClaimedByUserID *uuid.UUID `json:"claimed_by_user_id,omitempty"`
}

// PendingConflict is the ephemeral server-side record behind a conflict
// token. It lives in a TTL store and is consumed on resolution.
type PendingConflict struct {
	Token     string            `json:"token"`
	UserID    uuid.UUID         `json:"user_id"`
	Identity  ExternalIdentity  `json:"identity"`
	Conflicts []LinkingConflict `json:"conflicts"`
	CreatedAt time.Time         `json:"created_at"`
}

// LinkingResult is the outcome of CompleteLinking: either the link was
// attached, or conflicts need resolving via the returned token.
type LinkingResult struct {
	Linked        bool              `json:"linked"`
	Account       *ExternalAccount  `json:"account,omitempty"`
	ConflictToken string            `json:"conflict_token,omitempty"`
	Conflicts     []LinkingConflict `json:"conflicts,omitempty"`
	ExpiresAt     *time.Time        `json:"conflict_expires_at,omitempty"`
}

// ResolveConflictRequest is the payload for resolving a pending conflict.
type ResolveConflictRequest struct {
	ConflictToken string             `json:"conflict_token" binding:"required"`
	Resolution    ConflictResolution `json:"resolution" binding:"required"`
	Password      string             `json:"password,omitempty"`
}

// BulkLinkAction names a bulk operation over a user's external accounts.
type BulkLinkAction string

const (
	BulkActionUnlinkAll  BulkLinkAction = "unlink_all"
	BulkActionSetPrimary BulkLinkAction = "set_primary"
)

// BulkLinkRequest is the payload for bulk link operations.
type BulkLinkRequest struct {
	Action   BulkLinkAction `json:"action" binding:"required"`
	Provider string         `json:"provider,omitempty"`
	Password string         `json:"password,omitempty"`
}

// SecurityScoreLevel bands the numeric account security score.
type SecurityScoreLevel string

const (
	SecurityLevelExcellent SecurityScoreLevel = "excellent"
	SecurityLevelStrong    SecurityScoreLevel = "strong"
	SecurityLevelGood      SecurityScoreLevel = "good"
	SecurityLevelBasic     SecurityScoreLevel = "basic"
)

// SecurityScore summarizes how well an account is protected.
type SecurityScore struct {
	Score       int                `json:"score"`
	Level       SecurityScoreLevel `json:"level"`
	Factors     []string           `json:"factors"`
	Suggestions []string           `json:"suggestions"`
}

// LinkSummary is the account-linking overview returned by the summary
// endpoint.
type LinkSummary struct {
	HasPassword   bool              `json:"has_password"`
	EmailVerified bool              `json:"email_verified"`
	Links         []ExternalAccount `json:"links"`
	Score         SecurityScore     `json:"security_score"`
}
