package models

import (
	"time"

	"github.com/google/uuid"
)

// ExternalAccount binds a (provider, provider user id) pair to exactly one
// user. The pair is unique across the whole table.
type ExternalAccount struct {
	ID              uuid.UUID `json:"id" db:"id"`
	UserID          uuid.UUID `json:"user_id" db:"user_id"`
	Provider        string    `json:"provider" db:"provider"`
	ProviderUserID  string    `json:"provider_user_id" db:"provider_user_id"`
	ProviderDisplay string    `json:"provider_display" db:"provider_display"`
	IsPrimary       bool      `json:"is_primary" db:"is_primary"`
	LinkedAt        time.Time `json:"linked_at" db:"linked_at"`
}

// ExternalIdentity is the normalized view of a provider callback: what the
// provider asserted about the authenticated person.
type ExternalIdentity struct {
	Provider       string `json:"provider"`
	ProviderUserID string `json:"provider_user_id"`
	Email          string `json:"email"`
	DisplayName    string `json:"display_name"`
}

// ExternalLoginResult is the outcome of completing an external login.
type ExternalLoginResult struct {
	User      *User `json:"user"`
	IsNewUser bool  `json:"is_new_user"`
}
