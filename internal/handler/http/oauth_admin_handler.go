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

// OAuthAdminHandler exposes client and scope administration. Routes are
// gated on the clients:manage / scopes:manage permissions.
type OAuthAdminHandler struct {
	authz  *service.AuthorizationService
	logger *zap.Logger
}

// NewOAuthAdminHandler creates an OAuthAdminHandler.
func NewOAuthAdminHandler(authz *service.AuthorizationService, logger *zap.Logger) *OAuthAdminHandler {
	return &OAuthAdminHandler{authz: authz, logger: logger.Named("oauth_admin_handler")}
}

// CreateClient handles POST /api/v1/oauth/clients. The plaintext secret is
// returned exactly once.
func (h *OAuthAdminHandler) CreateClient(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	var params models.CreateClientParams
	if err := c.ShouldBindJSON(&params); err != nil {
		RespondWithValidationError(c, err)
		return
	}

	client, secret, err := h.authz.CreateClient(c.Request.Context(), userID, params)
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}

	data := gin.H{"client": client}
	if secret != "" {
		data["client_secret"] = secret
	}
	RespondWithData(c, http.StatusCreated, data)
}

// ListClients handles GET /api/v1/oauth/clients.
func (h *OAuthAdminHandler) ListClients(c *gin.Context) {
	activeOnly := c.Query("active") == "true"

	clients, err := h.authz.ListClients(c.Request.Context(), activeOnly)
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}
	RespondWithData(c, http.StatusOK, gin.H{"clients": clients})
}

// GetClient handles GET /api/v1/oauth/clients/:clientID.
func (h *OAuthAdminHandler) GetClient(c *gin.Context) {
	client, err := h.authz.GetClient(c.Request.Context(), c.Param("clientID"))
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}
	RespondWithData(c, http.StatusOK, gin.H{"client": client})
}

// UpdateClient handles PATCH /api/v1/oauth/clients/:clientID.
func (h *OAuthAdminHandler) UpdateClient(c *gin.Context) {
	client, err := h.authz.GetClient(c.Request.Context(), c.Param("clientID"))
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}

	var params models.UpdateClientParams
	if err := c.ShouldBindJSON(&params); err != nil {
		RespondWithValidationError(c, err)
		return
	}

	updated, err := h.authz.UpdateClient(c.Request.Context(), client.ID, params)
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}
	RespondWithData(c, http.StatusOK, gin.H{"client": updated})
}

// DeactivateClient handles DELETE /api/v1/oauth/clients/:clientID.
func (h *OAuthAdminHandler) DeactivateClient(c *gin.Context) {
	client, err := h.authz.GetClient(c.Request.Context(), c.Param("clientID"))
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}

	if err := h.authz.DeactivateClient(c.Request.Context(), client.ID); err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}
	RespondWithMessage(c, http.StatusOK, "client deactivated")
}

// CreateScope handles POST /api/v1/oauth/scopes.
func (h *OAuthAdminHandler) CreateScope(c *gin.Context) {
	var params models.CreateScopeParams
	if err := c.ShouldBindJSON(&params); err != nil {
		RespondWithValidationError(c, err)
		return
	}

	scope, err := h.authz.CreateScope(c.Request.Context(), params)
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}
	RespondWithData(c, http.StatusCreated, gin.H{"scope": scope})
}

// ListScopes handles GET /api/v1/oauth/scopes.
func (h *OAuthAdminHandler) ListScopes(c *gin.Context) {
	activeOnly := c.Query("active") == "true"

	scopes, err := h.authz.ListScopes(c.Request.Context(), activeOnly)
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}
	RespondWithData(c, http.StatusOK, gin.H{"scopes": scopes})
}

// DeactivateScope handles DELETE /api/v1/oauth/scopes/:id.
func (h *OAuthAdminHandler) DeactivateScope(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondWithErrors(c, http.StatusBadRequest, APIError{Code: "invalid_request", Message: "invalid scope id"})
		return
	}

	if err := h.authz.DeactivateScope(c.Request.Context(), id); err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}
	RespondWithMessage(c, http.StatusOK, "scope deactivated")
}
