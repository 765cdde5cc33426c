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

// LinkingHandler exposes account-linking management for the authenticated
// user.
type LinkingHandler struct {
	linking      *service.LinkingService
	externalAuth *service.ExternalAuthService
	logger       *zap.Logger
}

// NewLinkingHandler creates a LinkingHandler.
func NewLinkingHandler(linking *service.LinkingService, externalAuth *service.ExternalAuthService, logger *zap.Logger) *LinkingHandler {
	return &LinkingHandler{
		linking:      linking,
		externalAuth: externalAuth,
		logger:       logger.Named("linking_handler"),
	}
}

// Summary handles GET /api/v1/account/links. It returns the links plus the
// derived security score.
func (h *LinkingHandler) Summary(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	summary, err := h.linking.GetLinkSummary(c.Request.Context(), userID)
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}
	RespondWithData(c, http.StatusOK, summary)
}

// SecurityScore handles GET /api/v1/account/links/security-score.
func (h *LinkingHandler) SecurityScore(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	summary, err := h.linking.GetLinkSummary(c.Request.Context(), userID)
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}
	RespondWithData(c, http.StatusOK, summary.Score)
}

// Initiate handles GET /api/v1/account/links/:provider/initiate. It hands the
// client the provider authorization URL; the code comes back through Complete.
// force=true skips the already-linked check for callers replacing a link.
func (h *LinkingHandler) Initiate(c *gin.Context) {
	userID, _ := middleware.UserID(c)
	provider := c.Param("provider")
	force := c.Query("force") == "true"

	if err := h.linking.InitiateLinking(c.Request.Context(), userID, provider, force); err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}

	state := uuid.New().String()
	authURL, err := h.externalAuth.BeginExternalLogin(provider, state)
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}
	RespondWithData(c, http.StatusOK, gin.H{"authorization_url": authURL, "state": state})
}

// Complete handles POST /api/v1/account/links/:provider/complete. The body
// carries the authorization code from the provider; force_link accepts an
// email mismatch up front.
func (h *LinkingHandler) Complete(c *gin.Context) {
	userID, _ := middleware.UserID(c)
	provider := c.Param("provider")

	var req struct {
		Code      string `json:"code" binding:"required"`
		ForceLink bool   `json:"force_link"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithValidationError(c, err)
		return
	}

	identity, err := h.externalAuth.Exchange(c.Request.Context(), provider, req.Code)
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}

	result, err := h.linking.CompleteLinking(c.Request.Context(), userID, identity, req.ForceLink)
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}

	status := http.StatusOK
	if !result.Linked {
		// Conflicts: the caller must resolve via the returned token.
		status = http.StatusConflict
	}
	RespondWithData(c, status, result)
}

// ResolveConflict handles POST /api/v1/account/links/resolve-conflict.
func (h *LinkingHandler) ResolveConflict(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	var req models.ResolveConflictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithValidationError(c, err)
		return
	}

	result, err := h.linking.ResolveConflict(c.Request.Context(), userID, &req)
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}
	RespondWithData(c, http.StatusOK, result)
}

// CanUnlink handles GET /api/v1/account/links/:provider/:providerUserID/status.
func (h *LinkingHandler) CanUnlink(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	ok, err := h.linking.CanUnlink(c.Request.Context(), userID, c.Param("provider"), c.Param("providerUserID"))
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}
	RespondWithData(c, http.StatusOK, gin.H{"can_unlink": ok})
}

// Unlink handles DELETE /api/v1/account/links/:provider/:providerUserID.
func (h *LinkingHandler) Unlink(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	if err := h.linking.Unlink(c.Request.Context(), userID, c.Param("provider"), c.Param("providerUserID")); err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}
	RespondWithMessage(c, http.StatusOK, "identity unlinked")
}

// BulkAction handles POST /api/v1/account/links/bulk.
func (h *LinkingHandler) BulkAction(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	var req models.BulkLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithValidationError(c, err)
		return
	}

	if err := h.linking.BulkAction(c.Request.Context(), userID, &req); err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}
	RespondWithMessage(c, http.StatusOK, "bulk action applied")
}
