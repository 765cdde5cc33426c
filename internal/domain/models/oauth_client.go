package models

import (
	"time"

	"github.com/google/uuid"
)

// OAuthClient is a registered relying application. Soft-deleted via IsActive;
// rows are never removed.
type OAuthClient struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	ClientID     string     `json:"client_id" db:"client_id"`
	SecretHash   *string    `json:"-" db:"secret_hash"`
	Name         string     `json:"name" db:"name"`
	RedirectURIs []string   `json:"redirect_uris" db:"redirect_uris"`
	Scopes       []string   `json:"scopes" db:"scopes"`
	GrantTypes   []string   `json:"grant_types" db:"grant_types"`
	RequirePKCE  bool       `json:"require_pkce" db:"require_pkce"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	CreatedBy    uuid.UUID  `json:"created_by" db:"created_by"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// AllowsRedirectURI reports whether uri is registered for the client.
// Matching is exact, per RFC 6749 §3.1.2.3.
func (c *OAuthClient) AllowsRedirectURI(uri string) bool {
	for _, u := range c.RedirectURIs {
		if u == uri {
			return true
		}
	}
	return false
}

// AllowsScope reports whether the scope is registered for the client.
func (c *OAuthClient) AllowsScope(scope string) bool {
	for _, s := range c.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// CreateClientParams carries the admin inputs for registering a client.
type CreateClientParams struct {
	Name         string   `json:"name" binding:"required"`
	RedirectURIs []string `json:"redirect_uris" binding:"required,min=1,dive,uri"`
	Scopes       []string `json:"scopes" binding:"required,min=1"`
	GrantTypes   []string `json:"grant_types"`
	RequirePKCE  bool     `json:"require_pkce"`
	Confidential bool     `json:"confidential"`
}

// UpdateClientParams carries the admin inputs for updating a client.
type UpdateClientParams struct {
	Name         *string   `json:"name,omitempty"`
	RedirectURIs *[]string `json:"redirect_uris,omitempty"`
	Scopes       *[]string `json:"scopes,omitempty"`
	RequirePKCE  *bool     `json:"require_pkce,omitempty"`
	IsActive     *bool     `json:"is_active,omitempty"`
}

// AuthorizeRequest is a raw OAuth authorize request awaiting validation.
type AuthorizeRequest struct {
	ClientID            string `json:"client_id" form:"client_id" binding:"required"`
	RedirectURI         string `json:"redirect_uri" form:"redirect_uri" binding:"required"`
	ResponseType        string `json:"response_type" form:"response_type" binding:"required"`
	Scope               string `json:"scope" form:"scope" binding:"required"`
	State               string `json:"state" form:"state"`
	CodeChallenge       string `json:"code_challenge" form:"code_challenge"`
	CodeChallengeMethod string `json:"code_challenge_method" form:"code_challenge_method"`
}

// ValidatedAuthorizeRequest is an authorize request that passed validation.
type ValidatedAuthorizeRequest struct {
	Client       *OAuthClient `json:"-"`
	ClientID     string       `json:"client_id"`
	RedirectURI  string       `json:"redirect_uri"`
	ResponseType string       `json:"response_type"`
	Scopes       []string     `json:"scopes"`
	State        string       `json:"state,omitempty"`
}

// OAuthError is a structured OAuth 2.0 error response.
type OAuthError struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func (e *OAuthError) Error() string {
	if e.Description != "" {
		return e.Code + ": " + e.Description
	}
	return e.Code
}

// OAuth 2.0 error codes used by authorize-request validation.
const (
	OAuthErrInvalidClient           = "invalid_client"
	OAuthErrInvalidRequest          = "invalid_request"
	OAuthErrUnsupportedResponseType = "unsupported_response_type"
	OAuthErrInvalidScope            = "invalid_scope"
)
