package models

import (
	"time"

	"github.com/google/uuid"
)

// ScopeDefinition registers a scope name with its display metadata and the
// permissions it implies. Soft-deleted via IsActive.
type ScopeDefinition struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	DisplayName string    `json:"display_name" db:"display_name"`
	Description string    `json:"description" db:"description"`
	Category    string    `json:"category" db:"category"`
	Required    bool      `json:"required" db:"required"`
	Default     bool      `json:"default" db:"is_default"`
	Permissions []string  `json:"permissions" db:"permissions"`
	IsActive    bool      `json:"is_active" db:"is_active"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// CreateScopeParams carries the admin inputs for registering a scope.
type CreateScopeParams struct {
	Name        string   `json:"name" binding:"required,scope_name"`
	DisplayName string   `json:"display_name" binding:"required"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Required    bool     `json:"required"`
	Default     bool     `json:"default"`
	Permissions []string `json:"permissions"`
}

// ScopeView is the per-scope display info shown on a consent screen.
type ScopeView struct {
	Name           string `json:"name"`
	DisplayName    string `json:"display_name"`
	Description    string `json:"description"`
	Category       string `json:"category"`
	Required       bool   `json:"required"`
	AlreadyGranted bool   `json:"already_granted"`
}
