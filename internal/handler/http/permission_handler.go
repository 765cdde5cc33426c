package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/NiponJaiboon/portfolio-auth-service/internal/domain/models"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/handler/http/middleware"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/service"
)

// PermissionHandler exposes direct permission grants and effective
// permission resolution.
type PermissionHandler struct {
	authz  *service.AuthorizationService
	logger *zap.Logger
}

// NewPermissionHandler creates a PermissionHandler.
func NewPermissionHandler(authz *service.AuthorizationService, logger *zap.Logger) *PermissionHandler {
	return &PermissionHandler{authz: authz, logger: logger.Named("permission_handler")}
}

// Effective handles GET /api/v1/oauth/permissions/effective. Without a
// scope parameter it resolves role-derived plus direct permissions.
func (h *PermissionHandler) Effective(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	scopes := splitScope(c.Query("scope"))
	var permissions []string
	var err error
	if len(scopes) > 0 {
		permissions, err = h.authz.GetEffectivePermissions(c.Request.Context(), userID, scopes)
	} else {
		permissions, err = h.authz.ResolvePermissions(c.Request.Context(), userID)
	}
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}
	RespondWithData(c, http.StatusOK, gin.H{"permissions": permissions})
}

// ListGrants handles GET /api/v1/oauth/permissions/grants/:userID.
func (h *PermissionHandler) ListGrants(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userID"))
	if err != nil {
		RespondWithErrors(c, http.StatusBadRequest, APIError{Code: "invalid_request", Message: "invalid user id"})
		return
	}

	grants, err := h.authz.ListPermissionGrants(c.Request.Context(), userID)
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}
	RespondWithData(c, http.StatusOK, gin.H{"grants": grants})
}

// Grant handles POST /api/v1/oauth/permissions.
func (h *PermissionHandler) Grant(c *gin.Context) {
	grantedBy, _ := middleware.UserID(c)

	var req models.GrantPermissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithValidationError(c, err)
		return
	}
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		RespondWithErrors(c, http.StatusBadRequest, APIError{Code: "invalid_request", Message: "invalid user id"})
		return
	}

	if err := h.authz.GrantPermission(c.Request.Context(), userID, req.Permission, grantedBy, req.ExpiresAt); err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}
	RespondWithMessage(c, http.StatusCreated, "permission granted")
}

// Revoke handles DELETE /api/v1/oauth/permissions/grants/:userID/:permission.
func (h *PermissionHandler) Revoke(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("userID"))
	if err != nil {
		RespondWithErrors(c, http.StatusBadRequest, APIError{Code: "invalid_request", Message: "invalid user id"})
		return
	}

	if err := h.authz.RevokePermission(c.Request.Context(), userID, c.Param("permission")); err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}
	RespondWithMessage(c, http.StatusOK, "permission revoked")
}
