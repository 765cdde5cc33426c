package models

import (
	"time"

	"github.com/google/uuid"
)

// UserPermission is a direct permission grant, distinct from role-derived
// permissions which are computed and never stored.
type UserPermission struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	UserID     uuid.UUID  `json:"user_id" db:"user_id"`
	Permission string     `json:"permission" db:"permission"`
	GrantedBy  uuid.UUID  `json:"granted_by" db:"granted_by"`
	GrantedAt  time.Time  `json:"granted_at" db:"granted_at"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	Revoked    bool       `json:"revoked" db:"revoked"`
	RevokedAt  *time.Time `json:"revoked_at,omitempty" db:"revoked_at"`
}

// Effective reports whether the grant is live at the given time.
func (p *UserPermission) Effective(now time.Time) bool {
	if p.Revoked {
		return false
	}
	if p.ExpiresAt != nil && now.After(*p.ExpiresAt) {
		return false
	}
	return true
}

// GrantPermissionRequest is the admin payload for a direct grant.
type GrantPermissionRequest struct {
	UserID     string     `json:"user_id" binding:"required,uuid"`
	Permission string     `json:"permission" binding:"required,scope_name"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

// Well-known role names. The role→permission mapping is declarative
// configuration loaded at startup, not code.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleUser    = "user"
)
