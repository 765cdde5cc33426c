package models

import (
	"time"

	"github.com/google/uuid"
)

// UserConsent records a user's scope grant for a client. At most one active
// (non-revoked) row exists per (user, client); ProcessConsent upserts it.
type UserConsent struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	UserID        uuid.UUID  `json:"user_id" db:"user_id"`
	ClientID      uuid.UUID  `json:"client_id" db:"client_id"`
	GrantedScopes []string   `json:"granted_scopes" db:"granted_scopes"`
	Remember      bool       `json:"remember" db:"remember"`
	Revoked       bool       `json:"revoked" db:"revoked"`
	GrantedAt     time.Time  `json:"granted_at" db:"granted_at"`
	RevokedAt     *time.Time `json:"revoked_at,omitempty" db:"revoked_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// Covers reports whether the consent's granted scopes are a superset of the
// requested scopes.
func (c *UserConsent) Covers(scopes []string) bool {
	granted := make(map[string]struct{}, len(c.GrantedScopes))
	for _, s := range c.GrantedScopes {
		granted[s] = struct{}{}
	}
	for _, s := range scopes {
		if _, ok := granted[s]; !ok {
			return false
		}
	}
	return true
}

// ConsentView is what the consent screen renders for a client request.
type ConsentView struct {
	ClientID   string      `json:"client_id"`
	ClientName string      `json:"client_name"`
	Scopes     []ScopeView `json:"scopes"`
}

// ProcessConsentRequest is the consent-decision payload.
type ProcessConsentRequest struct {
	ClientID      string   `json:"client_id" binding:"required"`
	GrantedScopes []string `json:"granted_scopes" binding:"required"`
	Remember      bool     `json:"remember"`
}
