package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents the principal entity. PasswordHash may be empty for
// accounts created from an external identity that never set a password.
type User struct {
	ID                  uuid.UUID  `json:"id" db:"id"`
	Username            string     `json:"username" db:"username"`
	Email               string     `json:"email" db:"email"`
	PasswordHash        string     `json:"-" db:"password_hash"`
	Status              UserStatus `json:"status" db:"status"`
	EmailVerifiedAt     *time.Time `json:"email_verified_at,omitempty" db:"email_verified_at"`
	LastLoginAt         *time.Time `json:"last_login_at,omitempty" db:"last_login_at"`
	FailedLoginAttempts int        `json:"failed_login_attempts" db:"failed_login_attempts"`
	LockoutUntil        *time.Time `json:"lockout_until,omitempty" db:"lockout_until"`
	RefreshTokenHash    *string    `json:"-" db:"refresh_token_hash"`
	RefreshTokenExpiry  *time.Time `json:"-" db:"refresh_token_expiry"`
	TOTPSecret          *string    `json:"-" db:"totp_secret"`
	TOTPEnabled         bool       `json:"totp_enabled" db:"totp_enabled"`
	DisplayName         *string    `json:"display_name,omitempty" db:"display_name"`
	PhoneNumber         *string    `json:"phone_number,omitempty" db:"phone_number"`
	BirthDate           *time.Time `json:"birth_date,omitempty" db:"birth_date"`
	CreatedAt           time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt           *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
	Roles               []string   `json:"roles,omitempty" db:"-"` // Loaded separately
}

// UserStatus defines the possible statuses for a user.
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
	UserStatusBlocked  UserStatus = "blocked"
	UserStatusDeleted  UserStatus = "deleted"
)

// HasPassword reports whether the user can authenticate with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != ""
}

// EmailVerified reports whether the user's email has been confirmed.
func (u *User) EmailVerified() bool {
	return u.EmailVerifiedAt != nil
}

// IsLockedOut reports whether the user is inside an active lockout window.
func (u *User) IsLockedOut(now time.Time) bool {
	return u.LockoutUntil != nil && now.Before(*u.LockoutUntil)
}

// CreateUserParams carries the fields needed to persist a new user.
type CreateUserParams struct {
	Username        string
	Email           string
	PasswordHash    string
	EmailVerifiedAt *time.Time
	DisplayName     *string
}

// UserResponse structures the user data returned by API endpoints.
type UserResponse struct {
	ID              uuid.UUID  `json:"id"`
	Username        string     `json:"username"`
	Email           string     `json:"email"`
	Status          UserStatus `json:"status"`
	EmailVerified   bool       `json:"email_verified"`
	LastLoginAt     *time.Time `json:"last_login_at,omitempty"`
	TOTPEnabled     bool       `json:"totp_enabled"`
	DisplayName     *string    `json:"display_name,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	Roles           []string   `json:"roles,omitempty"`
}

// ToResponse converts a User model to an API UserResponse.
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		Status:        u.Status,
		EmailVerified: u.EmailVerified(),
		LastLoginAt:   u.LastLoginAt,
		TOTPEnabled:   u.TOTPEnabled,
		DisplayName:   u.DisplayName,
		CreatedAt:     u.CreatedAt,
		Roles:         u.Roles,
	}
}
