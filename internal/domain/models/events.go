package models

import "time"

// CloudEvent type strings published to Kafka. Versioned so consumers can
// evolve independently.
const (
	AuthUserRegisteredV1      = "com.portfolio.auth.user.registered.v1"
	AuthUserLoginSuccessV1    = "com.portfolio.auth.user.login.success.v1"
	AuthUserLoginFailedV1     = "com.portfolio.auth.user.login.failed.v1"
	AuthUserLockedOutV1       = "com.portfolio.auth.user.locked_out.v1"
	AuthUserLoggedOutV1       = "com.portfolio.auth.user.logged_out.v1"
	AuthTokenRefreshedV1      = "com.portfolio.auth.token.refreshed.v1"
	AuthSessionCreatedV1      = "com.portfolio.auth.session.created.v1"
	AuthSessionRevokedV1      = "com.portfolio.auth.session.revoked.v1"
	AuthSessionEvictedV1      = "com.portfolio.auth.session.evicted.v1"
	AuthAccountLinkedV1       = "com.portfolio.auth.account.linked.v1"
	AuthAccountUnlinkedV1     = "com.portfolio.auth.account.unlinked.v1"
	AuthLinkConflictV1        = "com.portfolio.auth.account.link_conflict.v1"
	AuthConsentGrantedV1      = "com.portfolio.auth.consent.granted.v1"
	AuthConsentRevokedV1      = "com.portfolio.auth.consent.revoked.v1"
	AuthPermissionGrantedV1   = "com.portfolio.auth.permission.granted.v1"
	AuthPermissionRevokedV1   = "com.portfolio.auth.permission.revoked.v1"
	AuthSuspiciousActivityV1  = "com.portfolio.auth.suspicious_activity.v1"
	AuthAuditRecordV1         = "com.portfolio.auth.audit.record.v1"
)

// UserRegisteredPayload accompanies AuthUserRegisteredV1.
type UserRegisteredPayload struct {
	UserID       string    `json:"user_id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	External     bool      `json:"external"`
	Provider     string    `json:"provider,omitempty"`
	RegisteredAt time.Time `json:"registered_at"`
}

// LoginSuccessPayload accompanies AuthUserLoginSuccessV1.
type LoginSuccessPayload struct {
	UserID    string    `json:"user_id"`
	SessionID string    `json:"session_id"`
	AuthType  string    `json:"auth_type"`
	IPAddress string    `json:"ip_address"`
	UserAgent string    `json:"user_agent"`
	LoginAt   time.Time `json:"login_at"`
}

// LoginFailedPayload accompanies AuthUserLoginFailedV1.
type LoginFailedPayload struct {
	AttemptedIdentifier string    `json:"attempted_identifier"`
	FailureReason       string    `json:"failure_reason"`
	IPAddress           string    `json:"ip_address"`
	UserAgent           string    `json:"user_agent"`
	FailedAt            time.Time `json:"failed_at"`
}

// SessionEventPayload accompanies session lifecycle events.
type SessionEventPayload struct {
	SessionID  string    `json:"session_id"`
	UserID     string    `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// AccountLinkPayload accompanies link/unlink/conflict events.
type AccountLinkPayload struct {
	UserID     string    `json:"user_id"`
	Provider   string    `json:"provider"`
	Conflict   string    `json:"conflict,omitempty"`
	Resolution string    `json:"resolution,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ConsentPayload accompanies consent events.
type ConsentPayload struct {
	UserID        string    `json:"user_id"`
	ClientID      string    `json:"client_id"`
	GrantedScopes []string  `json:"granted_scopes,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// PermissionPayload accompanies permission grant/revoke events.
type PermissionPayload struct {
	UserID     string    `json:"user_id"`
	Permission string    `json:"permission"`
	GrantedBy  string    `json:"granted_by,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
