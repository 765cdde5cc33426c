package models

import (
	"time"

	"github.com/google/uuid"
)

// AuthType records which credential kind established a session.
type AuthType string

const (
	AuthTypeCookie AuthType = "cookie"
	AuthTypeToken  AuthType = "token"
	AuthTypeHybrid AuthType = "hybrid"
)

// Session represents a per-device session. Expiry is sliding: validation
// close to the expiry pushes ExpiresAt back to the full window.
type Session struct {
	ID             uuid.UUID `json:"id" db:"id"`
	UserID         uuid.UUID `json:"user_id" db:"user_id"`
	IPAddress      *string   `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent      *string   `json:"user_agent,omitempty" db:"user_agent"`
	DeviceLabel    *string   `json:"device_label,omitempty" db:"device_label"`
	AuthType       AuthType  `json:"auth_type" db:"auth_type"`
	IsActive       bool      `json:"is_active" db:"is_active"`
	ExpiresAt      time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at" db:"last_activity_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// Expired reports whether the session is past its expiry at the given time.
func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// CreateSessionParams carries the inputs for creating a session.
type CreateSessionParams struct {
	UserID      uuid.UUID
	IPAddress   string
	UserAgent   string
	DeviceLabel string
	AuthType    AuthType
}

// SessionResponse structures the session data returned by API endpoints.
type SessionResponse struct {
	ID             uuid.UUID `json:"id"`
	UserID         uuid.UUID `json:"user_id"`
	IPAddress      *string   `json:"ip_address,omitempty"`
	DeviceLabel    *string   `json:"device_label,omitempty"`
	AuthType       AuthType  `json:"auth_type"`
	IsActive       bool      `json:"is_active"`
	ExpiresAt      time.Time `json:"expires_at"`
	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// ToResponse converts a Session model to an API SessionResponse.
func (s *Session) ToResponse() SessionResponse {
	return SessionResponse{
		ID:             s.ID,
		UserID:         s.UserID,
		IPAddress:      s.IPAddress,
		DeviceLabel:    s.DeviceLabel,
		AuthType:       s.AuthType,
		IsActive:       s.IsActive,
		ExpiresAt:      s.ExpiresAt,
		CreatedAt:      s.CreatedAt,
		LastActivityAt: s.LastActivityAt,
	}
}
