package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/NiponJaiboon/portfolio-auth-service/internal/domain/models"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/events/kafka"
)

// AuditRecorder publishes audit records as CloudEvents. All methods are
// fire-and-forget: publication failures are logged, never returned, so an
// unreachable broker cannot fail a login.
type AuditRecorder struct {
	publisher kafka.Publisher
	logger    *zap.Logger
}

// NewAuditRecorder creates an AuditRecorder on top of the event publisher.
func NewAuditRecorder(publisher kafka.Publisher, logger *zap.Logger) *AuditRecorder {
	return &AuditRecorder{publisher: publisher, logger: logger}
}

type auditRecord struct {
	UserID     *string                `json:"user_id,omitempty"`
	Identifier string                 `json:"identifier,omitempty"`
	Action     string                 `json:"action"`
	Status     string                 `json:"status,omitempty"`
	Reason     string                 `json:"reason,omitempty"`
	IPAddress  string                 `json:"ip_address,omitempty"`
	UserAgent  string                 `json:"user_agent,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty"`
	RecordedAt time.Time              `json:"recorded_at"`
}

func (r *AuditRecorder) publish(ctx context.Context, eventType, subject string, record auditRecord) {
	record.RecordedAt = time.Now().UTC()
	if err := r.publisher.Publish(ctx, eventType, subject, record); err != nil {
		r.logger.Error("Failed to publish audit record",
			zap.String("action", record.Action), zap.Error(err))
	}
}

func (r *AuditRecorder) RecordAuthEvent(ctx context.Context, userID *uuid.UUID, action, status, ipAddress, userAgent string, details map[string]interface{}) {
	record := auditRecord{
		Action:    action,
		Status:    status,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		Details:   details,
	}
	subject := ""
	if userID != nil {
		id := userID.String()
		record.UserID = &id
		subject = id
	}
	r.publish(ctx, models.AuthAuditRecordV1, subject, record)
}

func (r *AuditRecorder) RecordFailedAttempt(ctx context.Context, identifier, reason, ipAddress, userAgent string) {
	r.publish(ctx, models.AuthAuditRecordV1, "", auditRecord{
		Identifier: identifier,
		Action:     "credential_check",
		Status:     "failure",
		Reason:     reason,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
	})
}

func (r *AuditRecorder) RecordActivity(ctx context.Context, userID uuid.UUID, action string, details map[string]interface{}) {
	id := userID.String()
	r.publish(ctx, models.AuthAuditRecordV1, id, auditRecord{
		UserID:  &id,
		Action:  action,
		Status:  "success",
		Details: details,
	})
}

func (r *AuditRecorder) RecordSecurityEvent(ctx context.Context, userID *uuid.UUID, event string, details map[string]interface{}) {
	record := auditRecord{Action: event, Details: details}
	subject := ""
	if userID != nil {
		id := userID.String()
		record.UserID = &id
		subject = id
	}
	r.publish(ctx, models.AuthSuspiciousActivityV1, subject, record)
}
