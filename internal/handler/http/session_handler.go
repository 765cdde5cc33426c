package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/NiponJaiboon/portfolio-auth-service/internal/domain/models"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/handler/http/middleware"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/service"
)

// SessionHandler exposes session listing and revocation for the current
// user.
type SessionHandler struct {
	sessions *service.SessionService
	logger   *zap.Logger
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(sessions *service.SessionService, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, logger: logger.Named("session_handler")}
}

// List handles GET /api/v1/sessions.
func (h *SessionHandler) List(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	sessions, err := h.sessions.ListForUser(c.Request.Context(), userID)
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}

	responses := make([]models.SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		responses = append(responses, s.ToResponse())
	}
	RespondWithData(c, http.StatusOK, gin.H{"sessions": responses})
}

// Status handles GET /api/v1/sessions/:id/status.
func (h *SessionHandler) Status(c *gin.Context) {
	sessionID, err := h.ownSessionID(c)
	if err != nil {
		return
	}

	valid, err := h.sessions.ValidateSession(c.Request.Context(), sessionID)
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}
	RespondWithData(c, http.StatusOK, gin.H{"session_id": sessionID, "valid": valid})
}

// Revoke handles DELETE /api/v1/sessions/:id.
func (h *SessionHandler) Revoke(c *gin.Context) {
	sessionID, err := h.ownSessionID(c)
	if err != nil {
		return
	}

	revoked, err := h.sessions.RevokeSession(c.Request.Context(), sessionID)
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}
	RespondWithData(c, http.StatusOK, gin.H{"revoked": revoked})
}

// RevokeAll handles POST /api/v1/sessions/revoke-all. The current session
// survives so the caller is not logged out mid-request.
func (h *SessionHandler) RevokeAll(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	count, err := h.sessions.RevokeAllForUser(c.Request.Context(), userID, middleware.SessionID(c))
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}
	RespondWithData(c, http.StatusOK, gin.H{"revoked": count})
}

// Extend handles POST /api/v1/sessions/:id/extend.
func (h *SessionHandler) Extend(c *gin.Context) {
	sessionID, err := h.ownSessionID(c)
	if err != nil {
		return
	}

	var req struct {
		Duration string `json:"duration,omitempty"`
	}
	if bindErr := c.ShouldBindJSON(&req); bindErr != nil && c.Request.ContentLength > 0 {
		RespondWithValidationError(c, bindErr)
		return
	}

	var duration time.Duration
	if req.Duration != "" {
		parsed, parseErr := time.ParseDuration(req.Duration)
		if parseErr != nil {
			RespondWithValidationError(c, parseErr)
			return
		}
		duration = parsed
	}

	extended, err := h.sessions.ExtendSession(c.Request.Context(), sessionID, duration)
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}
	RespondWithData(c, http.StatusOK, gin.H{"extended": extended})
}

// ownSessionID parses the :id param and enforces that the session belongs
// to the caller. A response is already written when an error is returned.
func (h *SessionHandler) ownSessionID(c *gin.Context) (uuid.UUID, error) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondWithErrors(c, http.StatusBadRequest, APIError{Code: "invalid_request", Message: "invalid session id"})
		return uuid.Nil, err
	}

	userID, _ := middleware.UserID(c)
	session, err := h.sessions.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return uuid.Nil, err
	}
	if session.UserID != userID {
		RespondWithErrors(c, http.StatusForbidden, APIError{Code: "forbidden", Message: "session belongs to another user"})
		return uuid.Nil, errNotOwner
	}
	return sessionID, nil
}

var errNotOwner = errors.New("session belongs to another user")
