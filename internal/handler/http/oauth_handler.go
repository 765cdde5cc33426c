package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/NiponJaiboon/portfolio-auth-service/internal/domain/models"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/handler/http/middleware"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/service"
)

// OAuthHandler drives the authorize and consent surface for registered
// clients.
type OAuthHandler struct {
	authz   *service.AuthorizationService
	consent *service.ConsentService
	tokens  *service.TokenService
	logger  *zap.Logger
}

// NewOAuthHandler creates an OAuthHandler.
func NewOAuthHandler(
	authz *service.AuthorizationService,
	consent *service.ConsentService,
	tokens *service.TokenService,
	logger *zap.Logger,
) *OAuthHandler {
	return &OAuthHandler{
		authz:   authz,
		consent: consent,
		tokens:  tokens,
		logger:  logger.Named("oauth_handler"),
	}
}

// Authorize handles GET /api/v1/oauth/authorize. With remembered consent in
// place a scoped access token is issued directly; otherwise the consent view
// is returned for the caller to render.
func (h *OAuthHandler) Authorize(c *gin.Context) {
	var req models.AuthorizeRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.OAuthError{
			Code:        models.OAuthErrInvalidRequest,
			Description: err.Error(),
		})
		return
	}

	validated, oauthErr := h.authz.ValidateAuthorizeRequest(c.Request.Context(), req)
	if oauthErr != nil {
		c.JSON(http.StatusBadRequest, oauthErr)
		return
	}

	user, _ := middleware.User(c)

	allowed, err := h.authz.Authorize(c.Request.Context(), user.ID, validated.ClientID, validated.Scopes)
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}
	if !allowed {
		RespondWithErrors(c, http.StatusForbidden, APIError{Code: "forbidden", Message: "authorization denied"})
		return
	}

	hasConsent, err := h.consent.HasValidConsent(c.Request.Context(), user.ID, validated.ClientID, validated.Scopes)
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}
	if !hasConsent {
		view, err := h.consent.GetConsentView(c.Request.Context(), user.ID, validated.ClientID, validated.Scopes)
		if err != nil {
			RespondWithDomainError(c, err, h.logger)
			return
		}
		RespondWithData(c, http.StatusOK, gin.H{
			"consent_required": true,
			"consent":          view,
			"request":          validated,
		})
		return
	}

	h.issueScopedToken(c, user, validated)
}

// Validate handles POST /api/v1/oauth/authorize/validate: validation only,
// no token issuance.
func (h *OAuthHandler) Validate(c *gin.Context) {
	var req models.AuthorizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithValidationError(c, err)
		return
	}

	validated, oauthErr := h.authz.ValidateAuthorizeRequest(c.Request.Context(), req)
	if oauthErr != nil {
		c.JSON(http.StatusBadRequest, oauthErr)
		return
	}
	RespondWithData(c, http.StatusOK, validated)
}

// ConsentView handles GET /api/v1/oauth/consent.
func (h *OAuthHandler) ConsentView(c *gin.Context) {
	user, _ := middleware.User(c)
	clientID := c.Query("client_id")
	scopes := splitScope(c.Query("scope"))

	if clientID == "" || len(scopes) == 0 {
		RespondWithErrors(c, http.StatusBadRequest, APIError{Code: "invalid_request", Message: "client_id and scope are required"})
		return
	}

	view, err := h.consent.GetConsentView(c.Request.Context(), user.ID, clientID, scopes)
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}
	RespondWithData(c, http.StatusOK, view)
}

// ProcessConsent handles POST /api/v1/oauth/consent. On acceptance a scoped
// access token is issued for the granted scopes.
func (h *OAuthHandler) ProcessConsent(c *gin.Context) {
	user, _ := middleware.User(c)

	var req models.ProcessConsentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondWithValidationError(c, err)
		return
	}

	consent, err := h.consent.ProcessConsent(c.Request.Context(), user.ID, req.ClientID, req.GrantedScopes, req.Remember)
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}

	claims, err := h.authz.BuildClaims(c.Request.Context(), user.ID, consent.GrantedScopes)
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}
	token, expiresAt, err := h.tokens.IssueScopedAccessToken(user, consent.GrantedScopes, claims)
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}

	RespondWithData(c, http.StatusOK, gin.H{
		"consent":      consent,
		"access_token": token,
		"token_type":   "Bearer",
		"expires_at":   expiresAt,
	})
}

// ListConsents handles GET /api/v1/oauth/consents.
func (h *OAuthHandler) ListConsents(c *gin.Context) {
	user, _ := middleware.User(c)

	consents, err := h.consent.ListConsents(c.Request.Context(), user.ID)
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}
	RespondWithData(c, http.StatusOK, gin.H{"consents": consents})
}

// RevokeConsent handles DELETE /api/v1/oauth/consent/:clientID.
func (h *OAuthHandler) RevokeConsent(c *gin.Context) {
	user, _ := middleware.User(c)

	if err := h.consent.RevokeConsent(c.Request.Context(), user.ID, c.Param("clientID")); err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}
	RespondWithMessage(c, http.StatusOK, "consent revoked")
}

// RevokeAllConsents handles DELETE /api/v1/oauth/consents.
func (h *OAuthHandler) RevokeAllConsents(c *gin.Context) {
	user, _ := middleware.User(c)

	count, err := h.consent.RevokeAll(c.Request.Context(), user.ID)
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}
	RespondWithData(c, http.StatusOK, gin.H{"revoked": count})
}

// splitScope splits a space-delimited OAuth scope parameter.
func splitScope(scope string) []string {
	return strings.Fields(scope)
}

func (h *OAuthHandler) issueScopedToken(c *gin.Context, user *models.User, validated *models.ValidatedAuthorizeRequest) {
	claims, err := h.authz.BuildClaims(c.Request.Context(), user.ID, validated.Scopes)
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}
	token, expiresAt, err := h.tokens.IssueScopedAccessToken(user, validated.Scopes, claims)
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}

	RespondWithData(c, http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "Bearer",
		"expires_at":   expiresAt,
		"scope":        validated.Scopes,
		"state":        validated.State,
	})
}
