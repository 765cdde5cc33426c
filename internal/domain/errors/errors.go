package errors

import (
	"errors"
	"fmt"
)

var (
	// General errors.
	ErrInternal       = errors.New("internal server error")
	ErrInvalidRequest = errors.New("invalid request")
	ErrNotFound       = errors.New("resource not found")
	ErrAlreadyExists  = errors.New("resource already exists")
	ErrForbidden      = errors.New("access denied")
	ErrUnauthorized   = errors.New("unauthorized")

	// Authentication errors.
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrInvalidToken         = errors.New("invalid token")
	ErrExpiredToken         = errors.New("token expired")
	ErrInvalidRefreshToken  = errors.New("invalid refresh token")
	ErrSecondFactorRequired = errors.New("second factor required")
	ErrInvalidSecondFactor  = errors.New("invalid second factor code")
	ErrSignInDisallowed     = errors.New("sign-in not allowed for this account")

	// User errors.
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailExists      = errors.New("email already in use")
	ErrUsernameExists   = errors.New("username already in use")
	ErrInvalidPassword  = errors.New("invalid password")
	ErrUserLockedOut    = errors.New("account temporarily locked")
	ErrEmailNotVerified = errors.New("email not verified")

	// Session errors.
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")
	ErrSessionRevoked  = errors.New("session revoked")

	// External identity and linking errors.
	ErrUnsupportedProvider   = errors.New("unsupported external provider")
	ErrMissingEmail          = errors.New("external identity has no email claim")
	ErrIdentityAlreadyLinked = errors.New("external identity already linked to another account")
	ErrProviderAlreadyLinked = errors.New("provider already linked to this account")
	ErrLastCredential        = errors.New("cannot remove the only remaining sign-in method")
	ErrConflictTokenNotFound = errors.New("linking conflict not found or already resolved")
	ErrConflictConfirmation  = errors.New("linking requires explicit conflict resolution")

	// Authorization errors.
	ErrClientNotFound     = errors.New("oauth client not found")
	ErrClientInactive     = errors.New("oauth client is deactivated")
	ErrInvalidRedirectURI = errors.New("redirect uri not registered for client")
	ErrInvalidScope       = errors.New("invalid scope")
	ErrScopeNotFound      = errors.New("scope not found")
	ErrConsentRequired    = errors.New("consent required")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrRoleNotFound       = errors.New("role not found")
)

// AppError carries a user-facing message, an HTTP status and an API error
// code alongside the wrapped cause.
type AppError struct {
	Err        error
	Message    string
	StatusCode int
	Code       string
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(err error, message string, statusCode int, code string) *AppError {
	return &AppError{Err: err, Message: message, StatusCode: statusCode, Code: code}
}

// IsNotFound reports whether err belongs to the not-found class.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrClientNotFound) ||
		errors.Is(err, ErrScopeNotFound) ||
		errors.Is(err, ErrRoleNotFound) ||
		errors.Is(err, ErrConflictTokenNotFound)
}

// IsUnauthorized reports whether err belongs to the authentication-failure class.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrExpiredToken) ||
		errors.Is(err, ErrInvalidRefreshToken) ||
		errors.Is(err, ErrUserLockedOut) ||
		errors.Is(err, ErrEmailNotVerified) ||
		errors.Is(err, ErrInvalidSecondFactor) ||
		errors.Is(err, ErrSignInDisallowed)
}

// IsForbidden reports whether err belongs to the authorization-failure class.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden) ||
		errors.Is(err, ErrPermissionDenied) ||
		errors.Is(err, ErrLastCredential)
}

// IsConflict reports whether err belongs to the conflict class.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyExists) ||
		errors.Is(err, ErrEmailExists) ||
		errors.Is(err, ErrUsernameExists) ||
		errors.Is(err, ErrIdentityAlreadyLinked) ||
		errors.Is(err, ErrProviderAlreadyLinked)
}

// IsValidation reports whether err belongs to the validation class.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidScope) ||
		errors.Is(err, ErrInvalidRedirectURI) ||
		errors.Is(err, ErrMissingEmail)
}
