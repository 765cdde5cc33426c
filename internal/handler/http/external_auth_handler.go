package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/NiponJaiboon/portfolio-auth-service/internal/config"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/domain/models"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/handler/http/middleware"
	"github.com/NiponJaiboon/portfolio-auth-service/internal/service"
)

const stateCookieName = "external_auth_state"

// ExternalAuthHandler drives the external provider login flow: redirect out
// with a CSRF state, complete on callback.
type ExternalAuthHandler struct {
	externalAuth *service.ExternalAuthService
	authService  *service.AuthService
	sessions     *service.SessionService
	cfg          *config.Config
	logger       *zap.Logger
}

// NewExternalAuthHandler creates an ExternalAuthHandler.
func NewExternalAuthHandler(
	externalAuth *service.ExternalAuthService,
	authService *service.AuthService,
	sessions *service.SessionService,
	cfg *config.Config,
	logger *zap.Logger,
) *ExternalAuthHandler {
	return &ExternalAuthHandler{
		externalAuth: externalAuth,
		authService:  authService,
		sessions:     sessions,
		cfg:          cfg,
		logger:       logger.Named("external_auth_handler"),
	}
}

// Providers handles GET /api/v1/auth/external.
func (h *ExternalAuthHandler) Providers(c *gin.Context) {
	RespondWithData(c, http.StatusOK, gin.H{"providers": h.externalAuth.SupportedProviders()})
}

// Begin handles GET /api/v1/auth/external/:provider. It redirects to the
// provider's authorization endpoint.
func (h *ExternalAuthHandler) Begin(c *gin.Context) {
	provider := c.Param("provider")
	state := uuid.New().String()

	authURL, err := h.externalAuth.BeginExternalLogin(provider, state)
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookieName, state, 600, "/", h.cfg.Server.CookieDomain, h.cfg.Server.CookieSecure, true)
	c.Redirect(http.StatusTemporaryRedirect, authURL)
}

// Callback handles GET /api/v1/auth/external/:provider/callback. On success
// the user is signed in with a cookie session.
func (h *ExternalAuthHandler) Callback(c *gin.Context) {
	provider := c.Param("provider")
	code := c.Query("code")
	state := c.Query("state")

	expectedState, err := c.Cookie(stateCookieName)
	if err != nil || state == "" || state != expectedState {
		h.logger.Warn("External callback state mismatch", zap.String("provider", provider))
		RespondWithErrors(c, http.StatusBadRequest, APIError{Code: "invalid_state", Message: "state parameter mismatch"})
		return
	}
	c.SetCookie(stateCookieName, "", -1, "/", h.cfg.Server.CookieDomain, h.cfg.Server.CookieSecure, true)

	if code == "" {
		RespondWithErrors(c, http.StatusBadRequest, APIError{Code: "invalid_request", Message: "missing authorization code"})
		return
	}

	identity, err := h.externalAuth.Exchange(c.Request.Context(), provider, code)
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}

	result, err := h.externalAuth.CompleteExternalLogin(c.Request.Context(), identity)
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}

	session, err := h.sessions.CreateSession(c.Request.Context(), models.CreateSessionParams{
		UserID:    result.User.ID,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		AuthType:  models.AuthTypeCookie,
	})
	if err != nil {
		RespondWithDomainError(c, err, h.logger)
		return
	}

	maxAge := int(h.cfg.Sessions.Timeout.Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookieName, session.ID.String(), maxAge, "/",
		h.cfg.Server.CookieDomain, h.cfg.Server.CookieSecure, true)

	status := http.StatusOK
	if result.IsNewUser {
		status = http.StatusCreated
	}
	RespondWithData(c, status, gin.H{
		"user":        result.User.ToResponse(),
		"session":     session.ToResponse(),
		"is_new_user": result.IsNewUser,
	})
}
