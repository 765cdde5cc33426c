package interfaces

import (
	"context"

	"github.com/google/uuid"
)

// AuditRecorder is the write-only audit sink. Implementations are
// fire-and-forget: callers never block on or depend on their success.
type AuditRecorder interface {
	// RecordAuthEvent records a login/logout/registration outcome.
	RecordAuthEvent(ctx context.Context, userID *uuid.UUID, action, status, ipAddress, userAgent string, details map[string]interface{})

	// RecordFailedAttempt records a failed credential check.
	RecordFailedAttempt(ctx context.Context, identifier, reason, ipAddress, userAgent string)

	// RecordActivity records a non-credential account activity
	// (linking, consent, permission changes).
	RecordActivity(ctx context.Context, userID uuid.UUID, action string, details map[string]interface{})

	// RecordSecurityEvent records a suspicious or security-relevant event.
	RecordSecurityEvent(ctx context.Context, userID *uuid.UUID, event string, details map[string]interface{})
}
