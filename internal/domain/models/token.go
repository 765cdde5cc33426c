package models

import "time"

// TokenPair bundles the credentials returned by login and refresh.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	TokenType        string    `json:"token_type"`
	ExpiresAt        time.Time `json:"expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// AuthMode selects which credential state a login emits.
type AuthMode string

const (
	AuthModeCookie AuthMode = "cookie"
	AuthModeToken  AuthMode = "token"
	AuthModeHybrid AuthMode = "hybrid"
)

// AuthResult is the tagged result of a hybrid login. Exactly the fields
// relevant to the chosen mode are populated: Tokens for token and hybrid,
// CookieSessionID for cookie and hybrid.
type AuthResult struct {
	Mode            AuthMode      `json:"mode"`
	User            *User         `json:"user"`
	Session         *Session      `json:"session"`
	Tokens          *TokenPair    `json:"tokens,omitempty"`
	CookieSessionID *string       `json:"cookie_session_id,omitempty"`
}

// LoginRequest is the login payload. Identifier accepts email or username.
type LoginRequest struct {
	Identifier string   `json:"identifier" binding:"required"`
	Password   string   `json:"password" binding:"required"`
	TOTPCode   string   `json:"totp_code,omitempty"`
	Mode       AuthMode `json:"mode,omitempty"`
}

// RegisterRequest is the registration payload.
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=64"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// RefreshRequest exchanges a refresh token for a new pair.
type RefreshRequest struct {
	UserID       string `json:"user_id" binding:"required,uuid"`
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// LogoutRequest names the scope of a logout.
type LogoutRequest struct {
	AllDevices bool    `json:"all_devices"`
	SessionID  *string `json:"session_id,omitempty"`
}
